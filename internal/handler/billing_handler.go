package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pagebrief/entitlement-service/internal/dto"
	"github.com/pagebrief/entitlement-service/internal/service"
)

// BillingHandler handles checkout, portal and subscription requests
type BillingHandler struct {
	billing service.BillingService
}

// NewBillingHandler creates a new billing handler
func NewBillingHandler(billing service.BillingService) *BillingHandler {
	return &BillingHandler{
		billing: billing,
	}
}

// CreateCheckout handles starting a subscription checkout
// @Summary Create checkout session
// @Description Create a provider-hosted checkout session for a plan
// @Tags billing
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.CheckoutRequest true "Checkout request"
// @Success 200 {object} dto.RedirectResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /billing/checkout [post]
func (h *BillingHandler) CreateCheckout(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		return
	}

	var req dto.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: err.Error(),
		})
		return
	}

	url, err := h.billing.CreateCheckoutSession(c.Request.Context(), userID, req.Plan)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.RedirectResponse{URL: url})
}

// OpenPortal handles opening the customer billing portal
// @Summary Open billing portal
// @Description Create a provider-hosted billing portal session
// @Tags billing
// @Security BearerAuth
// @Produce json
// @Success 200 {object} dto.RedirectResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /billing/portal [post]
func (h *BillingHandler) OpenPortal(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		return
	}

	url, err := h.billing.CreatePortalSession(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.RedirectResponse{URL: url})
}

// GetSubscription handles reading the current subscription snapshot
// @Summary Get subscription
// @Description Get the current subscription mirror for the identity
// @Tags billing
// @Security BearerAuth
// @Produce json
// @Success 200 {object} dto.SubscriptionResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /billing/subscription [get]
func (h *BillingHandler) GetSubscription(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		return
	}

	sub, err := h.billing.GetSubscription(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SubscriptionResponse{
		Status:             string(sub.Status),
		Plan:               string(sub.Plan),
		CurrentPeriodStart: sub.CurrentPeriodStart.Format(time.RFC3339),
		CurrentPeriodEnd:   sub.CurrentPeriodEnd.Format(time.RFC3339),
		CancelAtPeriodEnd:  sub.CancelAtPeriodEnd,
	})
}
