package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vovakirdan/wirehook/internal/envelope"
	"github.com/vovakirdan/wirehook/internal/proto"
	"github.com/vovakirdan/wirehook/internal/service/ingest"
	"github.com/vovakirdan/wirehook/internal/signature"
)

// WebhookHandlers provides the signed message intake endpoint.
type WebhookHandlers struct {
	ingest       *ingest.Service
	maxBodyBytes int64
}

// NewWebhookHandlers creates a new webhook handlers instance.
func NewWebhookHandlers(svc *ingest.Service, maxBodyBytes int64) *WebhookHandlers {
	return &WebhookHandlers{
		ingest:       svc,
		maxBodyBytes: maxBodyBytes,
	}
}

// Receive handles one webhook delivery.
// POST /webhook
func (h *WebhookHandlers) Receive(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.ingest.Reject(c.Request.Context(), ingest.OutcomeTooLarge, err)
			c.JSON(http.StatusRequestEntityTooLarge, proto.Error{Detail: "request body too large"})
			return
		}
		h.ingest.Reject(c.Request.Context(), ingest.OutcomeUnreadable, err)
		c.JSON(http.StatusBadRequest, proto.Error{Detail: "invalid request body"})
		return
	}

	res := h.ingest.Ingest(c.Request.Context(), body, c.GetHeader(signature.Header))

	switch res.Outcome {
	case ingest.OutcomeCreated, ingest.OutcomeDuplicate:
		c.JSON(http.StatusOK, proto.StatusOK{Status: "ok"})
	case ingest.OutcomeUnauthorized:
		c.JSON(http.StatusUnauthorized, proto.Error{Detail: "invalid signature"})
	case ingest.OutcomeInvalid:
		resp := proto.Error{Detail: "validation error"}
		var verr *envelope.ValidationError
		if errors.As(res.Err, &verr) {
			resp.Errors = fieldErrorsToProto(verr)
		}
		c.JSON(http.StatusBadRequest, resp)
	default:
		c.JSON(http.StatusServiceUnavailable, proto.Error{Detail: "storage unavailable"})
	}
}
