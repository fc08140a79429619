package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vovakirdan/wirehook/internal/proto"
	"github.com/vovakirdan/wirehook/internal/service/query"
)

// MessageHandlers provides the message listing endpoint.
type MessageHandlers struct {
	query *query.Service
}

// NewMessageHandlers creates a new message handlers instance.
func NewMessageHandlers(svc *query.Service) *MessageHandlers {
	return &MessageHandlers{query: svc}
}

// ListRequest represents the query string of GET /messages.
type ListRequest struct {
	Limit  int    `form:"limit,default=50"`
	Offset int    `form:"offset,default=0"`
	From   string `form:"from"`
	Since  string `form:"since"`
	Q      string `form:"q"`
}

// List handles filtered, paginated message listing.
// GET /messages
func (h *MessageHandlers) List(c *gin.Context) {
	var req ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		requestLogger(c).Debug().Err(err).Msg("invalid list query")
		c.JSON(http.StatusBadRequest, proto.Error{Detail: "limit and offset must be integers"})
		return
	}

	page, err := h.query.List(c.Request.Context(), query.ListParams{
		Limit:  req.Limit,
		Offset: req.Offset,
		From:   req.From,
		Since:  req.Since,
		Q:      req.Q,
	})
	if err != nil {
		var rangeErr *query.RangeError
		if errors.As(err, &rangeErr) {
			c.JSON(http.StatusBadRequest, proto.Error{Detail: rangeErr.Error()})
			return
		}
		requestLogger(c).Error().Err(err).Msg("failed to list messages")
		c.JSON(http.StatusServiceUnavailable, proto.Error{Detail: "storage unavailable"})
		return
	}

	c.JSON(http.StatusOK, pageToProto(page))
}
