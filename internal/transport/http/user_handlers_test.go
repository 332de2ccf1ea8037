package http

import (
	"encoding/json"
	"fmt"
	stdhttp "net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserManagementIsAdminOnly(t *testing.T) {
	env := newTestEnv(t)
	aliceToken := env.register(t, "alice")

	rec := env.do(t, stdhttp.MethodGet, "/api/users", aliceToken, nil)
	assert.Equal(t, stdhttp.StatusForbidden, rec.Code)

	rec = env.do(t, stdhttp.MethodPost, "/api/users", aliceToken, map[string]any{
		"username": "mallory",
		"password": "secret123",
	})
	assert.Equal(t, stdhttp.StatusForbidden, rec.Code)
}

func TestAdminUserLifecycle(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "root")
	env.promoteAdmin(t, "root")

	// Log in after the promotion.
	rec := env.do(t, stdhttp.MethodPost, "/api/login", "", map[string]any{
		"username": "root",
		"password": "secret123",
	})
	require.Equal(t, stdhttp.StatusOK, rec.Code)
	var login AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))
	adminToken := login.Token

	rec = env.do(t, stdhttp.MethodPost, "/api/users", adminToken, map[string]any{
		"username":     "bob",
		"display_name": "Bob",
		"password":     "secret123",
		"role":         "user",
	})
	require.Equal(t, stdhttp.StatusCreated, rec.Code, rec.Body.String())
	var bob UserResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bob))
	assert.Equal(t, "user", bob.Role)

	rec = env.do(t, stdhttp.MethodGet, "/api/users", adminToken, nil)
	require.Equal(t, stdhttp.StatusOK, rec.Code)
	var users []UserResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &users))
	assert.Len(t, users, 2)

	rec = env.do(t, stdhttp.MethodDelete, fmt.Sprintf("/api/users/%d", bob.ID), adminToken, nil)
	assert.Equal(t, stdhttp.StatusNoContent, rec.Code)

	rec = env.do(t, stdhttp.MethodDelete, fmt.Sprintf("/api/users/%d", bob.ID), adminToken, nil)
	assert.Equal(t, stdhttp.StatusNotFound, rec.Code)

	// Unknown role is rejected.
	rec = env.do(t, stdhttp.MethodPost, "/api/users", adminToken, map[string]any{
		"username": "eve",
		"password": "secret123",
		"role":     "superuser",
	})
	assert.Equal(t, stdhttp.StatusBadRequest, rec.Code)
}
