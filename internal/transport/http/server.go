package http

import (
	"context"
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirehook/internal/config"
	"github.com/vovakirdan/wirehook/internal/metrics"
	"github.com/vovakirdan/wirehook/internal/service/ingest"
	"github.com/vovakirdan/wirehook/internal/service/query"
)

// Readiness reports whether storage can serve requests.
type Readiness interface {
	Ready(ctx context.Context) error
}

// Deps are the services the HTTP layer dispatches to.
type Deps struct {
	Ingest    *ingest.Service
	Query     *query.Service
	Readiness Readiness
}

// NewServer builds the HTTP server with all routes.
func NewServer(deps Deps, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           NewRouter(deps, cfg, logger),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

// NewRouter builds the gin engine behind NewServer.
func NewRouter(deps Deps, cfg *config.Config, logger *zerolog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(
		RequestIDMiddleware(logger),
		LoggerMiddleware(),
		MetricsMiddleware(),
		gin.Recovery(),
	)

	webhook := NewWebhookHandlers(deps.Ingest, cfg.MaxBodyBytes)
	messages := NewMessageHandlers(deps.Query)
	stats := NewStatsHandlers(deps.Query)
	health := NewHealthHandlers(deps.Ingest, deps.Readiness)

	r.POST("/webhook", webhook.Receive)
	r.GET("/messages", messages.List)
	r.GET("/stats", stats.Get)
	r.GET("/health/live", health.Live)
	r.GET("/health/ready", health.Ready)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	r.GET("/favicon.ico", func(c *gin.Context) { c.Status(stdhttp.StatusNoContent) })

	return r
}
