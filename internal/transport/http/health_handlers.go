package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vovakirdan/wirehook/internal/proto"
	"github.com/vovakirdan/wirehook/internal/service/ingest"
)

// HealthHandlers provides liveness and readiness probes.
type HealthHandlers struct {
	ingest    *ingest.Service
	readiness Readiness
}

// NewHealthHandlers creates a new health handlers instance.
func NewHealthHandlers(svc *ingest.Service, readiness Readiness) *HealthHandlers {
	return &HealthHandlers{ingest: svc, readiness: readiness}
}

// Live always answers while the process serves HTTP.
// GET /health/live
func (h *HealthHandlers) Live(c *gin.Context) {
	c.JSON(http.StatusOK, proto.Health{Status: "alive"})
}

// Ready reports whether the webhook secret is set and storage is usable.
// GET /health/ready
func (h *HealthHandlers) Ready(c *gin.Context) {
	if !h.ingest.SecretConfigured() {
		c.JSON(http.StatusServiceUnavailable, proto.Health{Status: "not ready", Error: "webhook secret not configured"})
		return
	}
	if err := h.readiness.Ready(c.Request.Context()); err != nil {
		requestLogger(c).Warn().Err(err).Msg("readiness check failed")
		c.JSON(http.StatusServiceUnavailable, proto.Health{Status: "not ready", Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, proto.Health{Status: "ready"})
}
