// Package shop implements the storefront demo: a product catalog with
// admin-only mutations and a per-user cart with stock checks.
package shop

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/kvasir-labs/parlor/internal/apperr"
	"github.com/kvasir-labs/parlor/internal/authz"
	"github.com/kvasir-labs/parlor/internal/store"
)

// Store is the slice of persistence the shop needs.
type Store interface {
	store.CatalogStore
	store.CartStore
}

// Service provides catalog and cart operations.
type Service struct {
	store Store
	log   *zerolog.Logger
}

// NewService builds a shop service.
func NewService(st Store, logger *zerolog.Logger) *Service {
	return &Service{store: st, log: logger}
}

// ListCategories lists all categories.
func (s *Service) ListCategories(ctx context.Context) ([]*store.Category, error) {
	categories, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, "list categories", err)
	}
	return categories, nil
}

// CreateCategory creates a category. Admin only.
func (s *Service) CreateCategory(ctx context.Context, user *store.User, name string) (*store.Category, error) {
	if !authz.CanPerform(user, authz.ManageCatalog, nil) {
		return nil, apperr.New(apperr.KindUnauthorized, "only admins can manage the catalog")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.New(apperr.KindInvalidInput, "category name is required")
	}

	category, err := s.store.CreateCategory(ctx, name)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return nil, apperr.New(apperr.KindInvalidInput, "category already exists")
		}
		return nil, apperr.Wrap(apperr.KindStorage, "create category", err)
	}
	return category, nil
}

// ListProducts lists the catalog.
func (s *Service) ListProducts(ctx context.Context) ([]*store.Product, error) {
	products, err := s.store.ListProducts(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, "list products", err)
	}
	return products, nil
}

// GetProduct fetches one product.
func (s *Service) GetProduct(ctx context.Context, id int64) (*store.Product, error) {
	product, err := s.store.GetProduct(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "product not found")
		}
		return nil, apperr.Wrap(apperr.KindStorage, "load product", err)
	}
	return product, nil
}

func validateProduct(p *store.Product) error {
	if strings.TrimSpace(p.Name) == "" {
		return apperr.New(apperr.KindInvalidInput, "product name is required")
	}
	if p.Price < 0 {
		return apperr.New(apperr.KindInvalidInput, "price must not be negative")
	}
	if p.Stock < 0 {
		return apperr.New(apperr.KindInvalidInput, "stock must not be negative")
	}
	return nil
}

// CreateProduct adds a product to the catalog. Admin only.
func (s *Service) CreateProduct(ctx context.Context, user *store.User, p *store.Product) (*store.Product, error) {
	if !authz.CanPerform(user, authz.ManageCatalog, nil) {
		return nil, apperr.New(apperr.KindUnauthorized, "only admins can manage the catalog")
	}
	if err := validateProduct(p); err != nil {
		return nil, err
	}

	created, err := s.store.CreateProduct(ctx, p)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, "create product", err)
	}
	return created, nil
}

// UpdateProduct overwrites a product. Admin only.
func (s *Service) UpdateProduct(ctx context.Context, user *store.User, p *store.Product) (*store.Product, error) {
	if !authz.CanPerform(user, authz.ManageCatalog, nil) {
		return nil, apperr.New(apperr.KindUnauthorized, "only admins can manage the catalog")
	}
	if err := validateProduct(p); err != nil {
		return nil, err
	}

	updated, err := s.store.UpdateProduct(ctx, p)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "product not found")
		}
		return nil, apperr.Wrap(apperr.KindStorage, "update product", err)
	}
	return updated, nil
}

// DeleteProduct removes a product. Admin only.
func (s *Service) DeleteProduct(ctx context.Context, user *store.User, id int64) error {
	if !authz.CanPerform(user, authz.ManageCatalog, nil) {
		return apperr.New(apperr.KindUnauthorized, "only admins can manage the catalog")
	}
	if err := s.store.DeleteProduct(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.New(apperr.KindNotFound, "product not found")
		}
		return apperr.Wrap(apperr.KindStorage, "delete product", err)
	}
	return nil
}

// GetCart returns the user's cart, creating it on first use.
func (s *Service) GetCart(ctx context.Context, user *store.User) (*store.Cart, error) {
	cart, err := s.store.GetOrCreateCart(ctx, user.ID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, "load cart", err)
	}
	return cart, nil
}

// AddItem puts quantity units of a product into the user's cart,
// merging with an existing line. The merged quantity must not exceed
// the product's stock.
func (s *Service) AddItem(ctx context.Context, user *store.User, productID int64, quantity int) (*store.CartItem, error) {
	if quantity <= 0 {
		return nil, apperr.New(apperr.KindInvalidInput, "quantity must be positive")
	}

	product, err := s.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	cart, err := s.GetCart(ctx, user)
	if err != nil {
		return nil, err
	}

	existing := 0
	for _, item := range cart.Items {
		if item.ProductID == productID {
			existing = item.Quantity
			break
		}
	}
	if existing+quantity > product.Stock {
		return nil, apperr.New(apperr.KindInvalidInput, "not enough stock available")
	}

	item, err := s.store.AddCartItem(ctx, user.ID, productID, quantity)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, "add cart item", err)
	}
	return item, nil
}

// UpdateItemQuantity sets a cart line's quantity, bounded by stock.
func (s *Service) UpdateItemQuantity(ctx context.Context, user *store.User, itemID int64, quantity int) (*store.CartItem, error) {
	if quantity <= 0 {
		return nil, apperr.New(apperr.KindInvalidInput, "quantity must be positive")
	}

	cart, err := s.GetCart(ctx, user)
	if err != nil {
		return nil, err
	}
	if !authz.CanPerform(user, authz.ManageCartItem, cart) {
		return nil, apperr.New(apperr.KindUnauthorized, "not your cart")
	}

	var line *store.CartItem
	for _, item := range cart.Items {
		if item.ID == itemID {
			line = item
			break
		}
	}
	if line == nil {
		return nil, apperr.New(apperr.KindNotFound, "item not found in cart")
	}
	if line.Product != nil && quantity > line.Product.Stock {
		return nil, apperr.New(apperr.KindInvalidInput, "not enough stock available")
	}

	item, err := s.store.UpdateCartItemQuantity(ctx, user.ID, itemID, quantity)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, "update cart item", err)
	}
	return item, nil
}

// RemoveItem deletes a cart line.
func (s *Service) RemoveItem(ctx context.Context, user *store.User, itemID int64) error {
	if err := s.store.RemoveCartItem(ctx, user.ID, itemID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.New(apperr.KindNotFound, "item not found in cart")
		}
		return apperr.Wrap(apperr.KindStorage, "remove cart item", err)
	}
	return nil
}

// ClearCart empties the user's cart.
func (s *Service) ClearCart(ctx context.Context, user *store.User) error {
	if err := s.store.ClearCart(ctx, user.ID); err != nil {
		return apperr.Wrap(apperr.KindStorage, "clear cart", err)
	}
	return nil
}
