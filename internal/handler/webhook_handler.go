package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pagebrief/entitlement-service/internal/dto"
	"github.com/pagebrief/entitlement-service/internal/service"
)

// Signature verification runs over the raw bytes, so the body is read
// once, unparsed, with a sanity cap on size.
const maxWebhookBody = 1 << 20

// WebhookHandler handles asynchronous payment-provider event deliveries
type WebhookHandler struct {
	billing service.BillingService
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(billing service.BillingService) *WebhookHandler {
	return &WebhookHandler{
		billing: billing,
	}
}

// HandleEvent handles a signed provider webhook delivery. 400 means the
// delivery is bad and must not be retried; 503 means a transient store
// failure, and the provider's at-least-once delivery will re-send.
func (h *WebhookHandler) HandleEvent(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Bad request",
			Message: "failed to read request body",
		})
		return
	}

	sigHeader := c.GetHeader("Stripe-Signature")

	if err := h.billing.ProcessWebhookEvent(c.Request.Context(), payload, sigHeader); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{Message: "received"})
}
