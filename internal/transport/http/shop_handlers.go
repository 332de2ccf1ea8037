package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/kvasir-labs/parlor/internal/shop"
	"github.com/kvasir-labs/parlor/internal/store"
)

// ShopHandlers provides the catalog and cart endpoints.
type ShopHandlers struct {
	shop *shop.Service
	log  *zerolog.Logger
}

// NewShopHandlers creates a new shop handlers instance.
func NewShopHandlers(shopService *shop.Service, logger *zerolog.Logger) *ShopHandlers {
	return &ShopHandlers{
		shop: shopService,
		log:  logger,
	}
}

// CategoryResponse represents a category in API responses.
type CategoryResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ProductResponse represents a product in API responses. Price is in cents.
type ProductResponse struct {
	ID          int64             `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Price       int64             `json:"price"`
	Stock       int               `json:"stock"`
	ImageURL    string            `json:"image_url,omitempty"`
	CategoryID  int64             `json:"category_id"`
	Category    *CategoryResponse `json:"category,omitempty"`
}

func productResponse(p *store.Product) ProductResponse {
	resp := ProductResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Stock:       p.Stock,
		ImageURL:    p.ImageURL,
		CategoryID:  p.CategoryID,
	}
	if p.Category != nil {
		resp.Category = &CategoryResponse{ID: p.Category.ID, Name: p.Category.Name}
	}
	return resp
}

// CartItemResponse represents one cart line in API responses.
type CartItemResponse struct {
	ID        int64            `json:"id"`
	ProductID int64            `json:"product_id"`
	Quantity  int              `json:"quantity"`
	Product   *ProductResponse `json:"product,omitempty"`
}

func cartItemResponse(item *store.CartItem) CartItemResponse {
	resp := CartItemResponse{
		ID:        item.ID,
		ProductID: item.ProductID,
		Quantity:  item.Quantity,
	}
	if item.Product != nil {
		p := productResponse(item.Product)
		resp.Product = &p
	}
	return resp
}

// CartResponse represents the caller's cart in API responses.
type CartResponse struct {
	ID    int64              `json:"id"`
	Items []CartItemResponse `json:"items"`
}

func idParam(c *gin.Context, what string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid " + what + " id"})
		return 0, false
	}
	return id, true
}

// ListCategories lists every category.
// GET /api/categories
func (h *ShopHandlers) ListCategories(c *gin.Context) {
	categories, err := h.shop.ListCategories(c.Request.Context())
	if err != nil {
		writeAppError(c, h.log, err)
		return
	}

	response := make([]CategoryResponse, 0, len(categories))
	for _, cat := range categories {
		response = append(response, CategoryResponse{ID: cat.ID, Name: cat.Name})
	}
	c.JSON(http.StatusOK, response)
}

// CreateCategoryRequest represents the create category request body.
type CreateCategoryRequest struct {
	Name string `json:"name" binding:"required,min=1,max=64"`
}

// CreateCategory adds a category. Admin only.
// POST /api/categories
func (h *ShopHandlers) CreateCategory(c *gin.Context) {
	user, ok := mustCurrentUser(c, h.log)
	if !ok {
		return
	}

	var req CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid create category request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	category, err := h.shop.CreateCategory(c.Request.Context(), user, req.Name)
	if err != nil {
		writeAppError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, CategoryResponse{ID: category.ID, Name: category.Name})
}

// ListProducts lists the catalog.
// GET /api/products
func (h *ShopHandlers) ListProducts(c *gin.Context) {
	products, err := h.shop.ListProducts(c.Request.Context())
	if err != nil {
		writeAppError(c, h.log, err)
		return
	}

	response := make([]ProductResponse, 0, len(products))
	for _, p := range products {
		response = append(response, productResponse(p))
	}
	c.JSON(http.StatusOK, response)
}

// GetProduct fetches one product.
// GET /api/products/:id
func (h *ShopHandlers) GetProduct(c *gin.Context) {
	id, ok := idParam(c, "product")
	if !ok {
		return
	}

	product, err := h.shop.GetProduct(c.Request.Context(), id)
	if err != nil {
		writeAppError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, productResponse(product))
}

// ProductRequest represents the product create/update request body.
type ProductRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=128"`
	Description string `json:"description"`
	Price       int64  `json:"price" binding:"min=0"`
	Stock       int    `json:"stock" binding:"min=0"`
	ImageURL    string `json:"image_url"`
	CategoryID  int64  `json:"category_id" binding:"required"`
}

func (req *ProductRequest) toModel(id int64) *store.Product {
	return &store.Product{
		ID:          id,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		ImageURL:    req.ImageURL,
		CategoryID:  req.CategoryID,
	}
}

// CreateProduct adds a product to the catalog. Admin only.
// POST /api/products
func (h *ShopHandlers) CreateProduct(c *gin.Context) {
	user, ok := mustCurrentUser(c, h.log)
	if !ok {
		return
	}

	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid create product request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	product, err := h.shop.CreateProduct(c.Request.Context(), user, req.toModel(0))
	if err != nil {
		writeAppError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, productResponse(product))
}

// UpdateProduct overwrites a product. Admin only.
// PUT /api/products/:id
func (h *ShopHandlers) UpdateProduct(c *gin.Context) {
	user, ok := mustCurrentUser(c, h.log)
	if !ok {
		return
	}
	id, ok := idParam(c, "product")
	if !ok {
		return
	}

	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid update product request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	product, err := h.shop.UpdateProduct(c.Request.Context(), user, req.toModel(id))
	if err != nil {
		writeAppError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, productResponse(product))
}

// DeleteProduct removes a product. Admin only.
// DELETE /api/products/:id
func (h *ShopHandlers) DeleteProduct(c *gin.Context) {
	user, ok := mustCurrentUser(c, h.log)
	if !ok {
		return
	}
	id, ok := idParam(c, "product")
	if !ok {
		return
	}

	if err := h.shop.DeleteProduct(c.Request.Context(), user, id); err != nil {
		writeAppError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetCart returns the caller's cart.
// GET /api/cart
func (h *ShopHandlers) GetCart(c *gin.Context) {
	user, ok := mustCurrentUser(c, h.log)
	if !ok {
		return
	}

	cart, err := h.shop.GetCart(c.Request.Context(), user)
	if err != nil {
		writeAppError(c, h.log, err)
		return
	}

	items := make([]CartItemResponse, 0, len(cart.Items))
	for _, item := range cart.Items {
		items = append(items, cartItemResponse(item))
	}
	c.JSON(http.StatusOK, CartResponse{ID: cart.ID, Items: items})
}

// AddCartItemRequest represents the add-to-cart request body.
type AddCartItemRequest struct {
	ProductID int64 `json:"product_id" binding:"required"`
	Quantity  int   `json:"quantity" binding:"required,min=1"`
}

// AddCartItem puts a product into the caller's cart.
// POST /api/cart/items
func (h *ShopHandlers) AddCartItem(c *gin.Context) {
	user, ok := mustCurrentUser(c, h.log)
	if !ok {
		return
	}

	var req AddCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid add cart item request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	item, err := h.shop.AddItem(c.Request.Context(), user, req.ProductID, req.Quantity)
	if err != nil {
		writeAppError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, cartItemResponse(item))
}

// UpdateCartItemRequest represents the cart line quantity update body.
type UpdateCartItemRequest struct {
	Quantity int `json:"quantity" binding:"required,min=1"`
}

// UpdateCartItem sets a cart line's quantity.
// PATCH /api/cart/items/:id
func (h *ShopHandlers) UpdateCartItem(c *gin.Context) {
	user, ok := mustCurrentUser(c, h.log)
	if !ok {
		return
	}
	id, ok := idParam(c, "cart item")
	if !ok {
		return
	}

	var req UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid update cart item request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	item, err := h.shop.UpdateItemQuantity(c.Request.Context(), user, id, req.Quantity)
	if err != nil {
		writeAppError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, cartItemResponse(item))
}

// RemoveCartItem deletes a cart line.
// DELETE /api/cart/items/:id
func (h *ShopHandlers) RemoveCartItem(c *gin.Context) {
	user, ok := mustCurrentUser(c, h.log)
	if !ok {
		return
	}
	id, ok := idParam(c, "cart item")
	if !ok {
		return
	}

	if err := h.shop.RemoveItem(c.Request.Context(), user, id); err != nil {
		writeAppError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ClearCart empties the caller's cart.
// DELETE /api/cart
func (h *ShopHandlers) ClearCart(c *gin.Context) {
	user, ok := mustCurrentUser(c, h.log)
	if !ok {
		return
	}

	if err := h.shop.ClearCart(c.Request.Context(), user); err != nil {
		writeAppError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}
