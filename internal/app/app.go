package app

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirehook/internal/config"
	"github.com/vovakirdan/wirehook/internal/metrics"
	"github.com/vovakirdan/wirehook/internal/service/ingest"
	"github.com/vovakirdan/wirehook/internal/service/query"
	transporthttp "github.com/vovakirdan/wirehook/internal/transport/http"
)

// App wires together storage, services and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	store           Store
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	// Initialize database store
	st, err := OpenStore(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	logger.Info().Str("database_url", redactURL(cfg.DatabaseURL)).Msg("database initialized")
	if cfg.WebhookSecret == "" {
		logger.Warn().Msg("webhook secret not configured, deliveries will be rejected and readiness will fail")
	}

	metrics.Init()

	reporter := ingest.Reporters{ingest.LogReporter{Logger: logger}, ingest.MetricsReporter{}}
	deps := transporthttp.Deps{
		Ingest:    ingest.New(st, cfg.WebhookSecret, reporter),
		Query:     query.New(st),
		Readiness: st,
	}
	server := transporthttp.NewServer(deps, cfg, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		store:           st,
		log:             logger,
	}, nil
}

// Handler exposes the HTTP handler, mostly for tests.
func (a *App) Handler() stdhttp.Handler {
	return a.server.Handler
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

// Close releases resources without serving.
func (a *App) Close() {
	a.cleanup()
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
