package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pagebrief/entitlement-service/internal/dto"
	"github.com/pagebrief/entitlement-service/internal/service"
)

// UsageHandler handles entitlement checks and usage recording
type UsageHandler struct {
	entitlements service.EntitlementService
}

// NewUsageHandler creates a new usage handler
func NewUsageHandler(entitlements service.EntitlementService) *UsageHandler {
	return &UsageHandler{
		entitlements: entitlements,
	}
}

// CheckEntitlement handles entitlement queries
// @Summary Check entitlement
// @Description Report whether a metered action is allowed, with the usage snapshot
// @Tags usage
// @Security BearerAuth
// @Produce json
// @Param domain query string false "Domain about to be used"
// @Success 200 {object} domain.UsageSnapshot
// @Failure 401 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /usage [get]
func (h *UsageHandler) CheckEntitlement(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		return
	}

	snapshot, err := h.entitlements.CheckEntitlement(c.Request.Context(), userID, c.Query("domain"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

// RecordUsage handles charging a domain against the free tier
// @Summary Record usage
// @Description Charge a domain against the free tier and return the updated snapshot
// @Tags usage
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.RecordUsageRequest true "Usage to record"
// @Success 200 {object} domain.UsageSnapshot
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /usage [post]
func (h *UsageHandler) RecordUsage(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		return
	}

	var req dto.RecordUsageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: err.Error(),
		})
		return
	}

	snapshot, err := h.entitlements.RecordUsage(c.Request.Context(), userID, req.Domain, req.URL)
	if err != nil {
		// Cap reached: include the snapshot so clients can render an
		// upgrade prompt with used/remaining/limit
		if errors.Is(err, service.ErrForbidden) && snapshot != nil {
			respondErrorWithDetails(c, err, snapshot)
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, snapshot)
}
