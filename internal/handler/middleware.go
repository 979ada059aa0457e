package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pagebrief/entitlement-service/internal/dto"
	"github.com/pagebrief/entitlement-service/internal/service"
)

// AuthMiddleware verifies the bearer credential and adds identity info to
// the context. Verification always includes the credential store lookup;
// token claims alone never authenticate a request.
func AuthMiddleware(entitlements service.EntitlementService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
				Error:   "Unauthorized",
				Message: "Authorization header is required",
			})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
				Error:   "Unauthorized",
				Message: "Invalid authorization header format",
			})
			c.Abort()
			return
		}

		token := parts[1]

		claims, err := entitlements.VerifyCredential(c.Request.Context(), token)
		if err != nil {
			respondError(c, err)
			c.Abort()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("email", claims.Email)
		c.Set("token", token)

		c.Next()
	}
}

// userIDFromContext returns the authenticated identity id, aborting with
// 401 if the middleware did not run
func userIDFromContext(c *gin.Context) (string, bool) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
			Error:   "Unauthorized",
			Message: "User ID not found in context",
		})
		return "", false
	}
	return userID.(string), true
}
