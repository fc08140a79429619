package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vovakirdan/wirehook/internal/proto"
	"github.com/vovakirdan/wirehook/internal/service/query"
)

// StatsHandlers provides the aggregate statistics endpoint.
type StatsHandlers struct {
	query *query.Service
}

// NewStatsHandlers creates a new stats handlers instance.
func NewStatsHandlers(svc *query.Service) *StatsHandlers {
	return &StatsHandlers{query: svc}
}

// Get returns statistics over all stored messages.
// GET /stats
func (h *StatsHandlers) Get(c *gin.Context) {
	stats, err := h.query.Stats(c.Request.Context())
	if err != nil {
		requestLogger(c).Error().Err(err).Msg("failed to aggregate stats")
		c.JSON(http.StatusServiceUnavailable, proto.Error{Detail: "storage unavailable"})
		return
	}

	c.JSON(http.StatusOK, statsToProto(stats))
}
