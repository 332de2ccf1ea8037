package http

import (
	"bytes"
	"context"
	"encoding/json"
	stdhttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kvasir-labs/parlor/internal/auth"
	"github.com/kvasir-labs/parlor/internal/bus"
	"github.com/kvasir-labs/parlor/internal/chat"
	"github.com/kvasir-labs/parlor/internal/config"
	"github.com/kvasir-labs/parlor/internal/log"
	"github.com/kvasir-labs/parlor/internal/shop"
	"github.com/kvasir-labs/parlor/internal/store"
	"github.com/kvasir-labs/parlor/internal/store/sqlite"
	"github.com/kvasir-labs/parlor/internal/tasks"
)

// testEnv bundles a fully wired handler over an in-memory store.
type testEnv struct {
	handler stdhttp.Handler
	store   store.Store
	auth    *auth.Service
	bus     *bus.Bus
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	logger := log.Nop()
	jwtConfig := &auth.JWTConfig{
		Secret:   []byte("test-secret"),
		Issuer:   "test",
		Audience: "test",
		TTL:      time.Hour,
	}

	authSvc := auth.NewService(st, jwtConfig)
	b := bus.New(logger, 16)
	chatSvc := chat.NewService(st, b, logger, 4096)
	taskSvc := tasks.NewService(st, logger)
	shopSvc := shop.NewService(st, logger)

	cfg := config.Default()
	srv := NewServer(Services{
		Auth:  authSvc,
		Chat:  chatSvc,
		Tasks: taskSvc,
		Shop:  shopSvc,
		Store: st,
	}, cfg, logger)

	return &testEnv{handler: srv.Handler, store: st, auth: authSvc, bus: b}
}

// register creates an account through the API and returns its token.
func (env *testEnv) register(t *testing.T, username string) string {
	t.Helper()

	rec := env.do(t, stdhttp.MethodPost, "/api/register", "", map[string]any{
		"username":     username,
		"display_name": username,
		"password":     "secret123",
	})
	require.Equal(t, stdhttp.StatusCreated, rec.Code, rec.Body.String())

	var resp AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Token
}

// promoteAdmin flips an account's role directly in the database.
func (env *testEnv) promoteAdmin(t *testing.T, username string) {
	t.Helper()

	db, ok := env.store.(*sqlite.Store)
	require.True(t, ok)
	require.NoError(t, db.SetUserRole(context.Background(), username, store.RoleAdmin))
}

// do performs a JSON request against the handler. A non-empty token is
// sent as a bearer header.
func (env *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	return rec
}
