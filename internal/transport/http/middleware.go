package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/kvasir-labs/parlor/internal/auth"
	"github.com/kvasir-labs/parlor/internal/store"
)

// ContextKeyUser is the gin context key holding the authenticated *store.User.
const ContextKeyUser = "user"

// AuthMiddleware validates the bearer token and resolves the account
// behind it. Handlers downstream can assume currentUser succeeds.
func AuthMiddleware(authService *auth.Service, logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			logger.Debug().Msg("missing authorization header")
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "missing authorization header"})
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			logger.Debug().Msg("invalid authorization header format")
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid authorization header format"})
			c.Abort()
			return
		}

		claims, err := authService.ValidateToken(parts[1])
		if err != nil {
			logger.Debug().Err(err).Msg("invalid token")
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid token"})
			c.Abort()
			return
		}

		user, err := authService.CurrentUser(c.Request.Context(), claims)
		if err != nil {
			logger.Debug().Err(err).Int64("user_id", claims.UserID).Msg("token for unknown user")
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid token"})
			c.Abort()
			return
		}

		c.Set(ContextKeyUser, user)
		c.Next()
	}
}

// currentUser returns the user placed in the context by AuthMiddleware.
func currentUser(c *gin.Context) (*store.User, bool) {
	v, ok := c.Get(ContextKeyUser)
	if !ok {
		return nil, false
	}
	user, ok := v.(*store.User)
	return user, ok
}

// mustCurrentUser is currentUser for routes behind AuthMiddleware; a
// miss means broken wiring and renders a 500.
func mustCurrentUser(c *gin.Context, logger *zerolog.Logger) (*store.User, bool) {
	user, ok := currentUser(c)
	if !ok {
		logger.Error().Str("path", c.Request.URL.Path).Msg("user not found in context")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
	return user, ok
}

// LoggerMiddleware logs every HTTP request after it completes.
func LoggerMiddleware(logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Msg("http request")
	}
}
