package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pagebrief/entitlement-service/internal/dto"
	"github.com/pagebrief/entitlement-service/internal/service"
)

// respondError maps the service error taxonomy onto HTTP statuses
func respondError(c *gin.Context, err error) {
	respondErrorWithDetails(c, err, nil)
}

func respondErrorWithDetails(c *gin.Context, err error, details interface{}) {
	status := http.StatusInternalServerError
	label := "Internal server error"

	switch {
	case errors.Is(err, service.ErrInvalidInput):
		status, label = http.StatusBadRequest, "Bad request"
	case errors.Is(err, service.ErrInvalidSignature):
		status, label = http.StatusBadRequest, "Invalid signature"
	case errors.Is(err, service.ErrUnauthenticated):
		status, label = http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, service.ErrForbidden):
		status, label = http.StatusForbidden, "Forbidden"
	case errors.Is(err, service.ErrNotFound):
		status, label = http.StatusNotFound, "Not found"
	case errors.Is(err, service.ErrConflict):
		status, label = http.StatusConflict, "Conflict"
	case errors.Is(err, service.ErrUnavailable):
		status, label = http.StatusServiceUnavailable, "Service unavailable"
	}

	c.JSON(status, dto.ErrorResponse{
		Error:   label,
		Message: err.Error(),
		Details: details,
	})
}
