// Package app wires configuration, storage, services, and transport
// into a runnable server.
package app

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/kvasir-labs/parlor/internal/auth"
	"github.com/kvasir-labs/parlor/internal/bus"
	"github.com/kvasir-labs/parlor/internal/chat"
	"github.com/kvasir-labs/parlor/internal/config"
	"github.com/kvasir-labs/parlor/internal/shop"
	"github.com/kvasir-labs/parlor/internal/store"
	"github.com/kvasir-labs/parlor/internal/store/sqlite"
	"github.com/kvasir-labs/parlor/internal/tasks"
	transporthttp "github.com/kvasir-labs/parlor/internal/transport/http"
)

// App bundles the HTTP server with the resources it owns.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	store           store.Store
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg config.Config, logger *zerolog.Logger) (*App, error) {
	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	logger.Info().Str("db_path", cfg.DatabasePath).Msg("database initialized")

	jwtConfig := &auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      cfg.JWTTTL,
	}
	authService := auth.NewService(st, jwtConfig)

	eventBus := bus.New(logger, cfg.SubscriberBuffer)
	chatService := chat.NewService(st, eventBus, logger, cfg.MaxMessageBytes)
	taskService := tasks.NewService(st, logger)
	shopService := shop.NewService(st, logger)

	server := transporthttp.NewServer(transporthttp.Services{
		Auth:  authService,
		Chat:  chatService,
		Tasks: taskService,
		Shop:  shopService,
		Store: st,
	}, cfg, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		store:           st,
		log:             logger,
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		a.log.Info().Str("addr", a.server.Addr).Msg("http server listening")
		if err := a.server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		a.cleanup()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.cleanup()
			return err
		}

		a.cleanup()
		return <-serverErr
	}
}

// cleanup closes database and other resources.
func (a *App) cleanup() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
