package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/kvasir-labs/parlor/internal/auth"
	"github.com/kvasir-labs/parlor/internal/authz"
	"github.com/kvasir-labs/parlor/internal/store"
)

// UserHandlers provides the admin user management endpoints.
type UserHandlers struct {
	store store.UserStore
	log   *zerolog.Logger
}

// NewUserHandlers creates a new user handlers instance.
func NewUserHandlers(st store.UserStore, logger *zerolog.Logger) *UserHandlers {
	return &UserHandlers{
		store: st,
		log:   logger,
	}
}

// UserResponse represents a user in API responses.
type UserResponse struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	Role        string `json:"role"`
	IsGuest     bool   `json:"is_guest"`
	CreatedAt   string `json:"created_at"`
}

func userResponse(u *store.User) UserResponse {
	return UserResponse{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		AvatarURL:   u.AvatarURL,
		Role:        string(u.Role),
		IsGuest:     u.IsGuest,
		CreatedAt:   u.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

func (h *UserHandlers) requireAdmin(c *gin.Context) (*store.User, bool) {
	user, ok := mustCurrentUser(c, h.log)
	if !ok {
		return nil, false
	}
	if !authz.CanPerform(user, authz.ManageUsers, nil) {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "admin access required"})
		return nil, false
	}
	return user, true
}

// ListUsers returns every account.
// GET /api/users
func (h *UserHandlers) ListUsers(c *gin.Context) {
	if _, ok := h.requireAdmin(c); !ok {
		return
	}

	users, err := h.store.ListUsers(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list users")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]UserResponse, 0, len(users))
	for _, u := range users {
		response = append(response, userResponse(u))
	}
	c.JSON(http.StatusOK, response)
}

// CreateUserRequest represents the admin user creation request body.
type CreateUserRequest struct {
	Username    string `json:"username" binding:"required,min=3,max=32"`
	DisplayName string `json:"display_name" binding:"max=64"`
	Password    string `json:"password" binding:"required,min=6"`
	Role        string `json:"role"`
}

// CreateUser creates an account with an explicit role.
// POST /api/users
func (h *UserHandlers) CreateUser(c *gin.Context) {
	if _, ok := h.requireAdmin(c); !ok {
		return
	}

	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid create user request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	role := store.Role(req.Role)
	if role == "" {
		role = store.RoleUser
	}
	if role != store.RoleUser && role != store.RoleAdmin {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "unknown role"})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to hash password")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	user, err := h.store.CreateUser(c.Request.Context(), req.Username, req.DisplayName, hash, role)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			c.JSON(http.StatusConflict, ErrorResponse{Error: "user already exists"})
			return
		}
		h.log.Error().Err(err).Str("username", req.Username).Msg("failed to create user")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Str("username", user.Username).Str("role", string(user.Role)).Msg("user created by admin")
	c.JSON(http.StatusCreated, userResponse(user))
}

// DeleteUser removes an account.
// DELETE /api/users/:id
func (h *UserHandlers) DeleteUser(c *gin.Context) {
	admin, ok := h.requireAdmin(c)
	if !ok {
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid user id"})
		return
	}
	if id == admin.ID {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "cannot delete yourself"})
		return
	}

	if err := h.store.DeleteUser(c.Request.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "user not found"})
			return
		}
		h.log.Error().Err(err).Int64("user_id", id).Msg("failed to delete user")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Int64("user_id", id).Msg("user deleted by admin")
	c.Status(http.StatusNoContent)
}
