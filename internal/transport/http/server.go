// Package http wires the REST and WebSocket endpoints to the services
// behind them.
package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/kvasir-labs/parlor/internal/auth"
	"github.com/kvasir-labs/parlor/internal/chat"
	"github.com/kvasir-labs/parlor/internal/config"
	"github.com/kvasir-labs/parlor/internal/shop"
	"github.com/kvasir-labs/parlor/internal/store"
	"github.com/kvasir-labs/parlor/internal/tasks"
)

// authRateLimit caps anonymous auth attempts per minute.
const authRateLimit = 30

// Services groups everything the HTTP layer serves.
type Services struct {
	Auth  *auth.Service
	Chat  *chat.Service
	Tasks *tasks.Service
	Shop  *shop.Service
	Store store.Store
}

// NewServer builds the HTTP server with all routes registered.
func NewServer(svcs Services, cfg config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger))

	apiHandlers := NewAPIHandlers(svcs.Auth, logger)
	userHandlers := NewUserHandlers(svcs.Store, logger)
	roomHandlers := NewRoomHandlers(svcs.Chat, logger)
	taskHandlers := NewTaskHandlers(svcs.Tasks, logger)
	shopHandlers := NewShopHandlers(svcs.Shop, logger)

	router.GET("/health", func(c *gin.Context) {
		c.String(stdhttp.StatusOK, "ok")
	})

	public := router.Group("/api", rateLimitMiddleware(newRateLimiter(authRateLimit)))
	{
		public.POST("/register", apiHandlers.Register)
		public.POST("/login", apiHandlers.Login)
		public.POST("/guest", apiHandlers.GuestLogin)
	}

	api := router.Group("/api", AuthMiddleware(svcs.Auth, logger))
	{
		api.GET("/hello", apiHandlers.Hello)
		api.GET("/me", apiHandlers.Me)

		api.GET("/users", userHandlers.ListUsers)
		api.POST("/users", userHandlers.CreateUser)
		api.DELETE("/users/:id", userHandlers.DeleteUser)

		api.GET("/rooms", roomHandlers.ListRooms)
		api.POST("/rooms", roomHandlers.CreateRoom)
		api.POST("/rooms/:id/join", roomHandlers.JoinRoom)
		api.GET("/rooms/:id/messages", roomHandlers.ListMessages)
		api.POST("/rooms/:id/messages", roomHandlers.SendMessage)

		api.GET("/tasks", taskHandlers.ListTasks)
		api.POST("/tasks", taskHandlers.CreateTask)
		api.POST("/tasks/:id/toggle", taskHandlers.ToggleTask)
		api.DELETE("/tasks/:id", taskHandlers.DeleteTask)

		api.GET("/categories", shopHandlers.ListCategories)
		api.POST("/categories", shopHandlers.CreateCategory)
		api.GET("/products", shopHandlers.ListProducts)
		api.POST("/products", shopHandlers.CreateProduct)
		api.GET("/products/:id", shopHandlers.GetProduct)
		api.PUT("/products/:id", shopHandlers.UpdateProduct)
		api.DELETE("/products/:id", shopHandlers.DeleteProduct)

		api.GET("/cart", shopHandlers.GetCart)
		api.DELETE("/cart", shopHandlers.ClearCart)
		api.POST("/cart/items", shopHandlers.AddCartItem)
		api.PATCH("/cart/items/:id", shopHandlers.UpdateCartItem)
		api.DELETE("/cart/items/:id", shopHandlers.RemoveCartItem)
	}

	router.GET("/ws", gin.WrapH(NewWSHandler(svcs.Auth, svcs.Chat, logger)))

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}
