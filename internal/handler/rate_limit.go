package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pagebrief/entitlement-service/internal/dto"
	"github.com/pagebrief/entitlement-service/internal/service"
)

// RateLimitMiddleware creates a rate limiting middleware
func RateLimitMiddleware(rateLimiter *service.RateLimiter, limit int, window time.Duration, keyFunc func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := keyFunc(c)

		allowed, err := rateLimiter.Allow(c.Request.Context(), key, limit, window)
		if err != nil {
			if errors.Is(err, service.ErrRateLimited) {
				retryAfter := service.RetryAfterFromError(err, time.Minute)
				remaining, _ := rateLimiter.GetRemainingRequests(c.Request.Context(), key, limit, window)

				c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
				c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
				c.Header("Retry-After", strconv.Itoa(int(retryAfter.Round(time.Second).Seconds())))

				c.JSON(http.StatusTooManyRequests, dto.ErrorResponse{
					Error:   "Too Many Requests",
					Message: err.Error(),
				})
				c.Abort()
				return
			}

			// Limiter backend failure must not block traffic
			c.Next()
			return
		}

		if !allowed {
			remaining, _ := rateLimiter.GetRemainingRequests(c.Request.Context(), key, limit, window)
			c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
			c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

			c.JSON(http.StatusTooManyRequests, dto.ErrorResponse{
				Error:   "Too Many Requests",
				Message: "Rate limit exceeded",
			})
			c.Abort()
			return
		}

		remaining, _ := rateLimiter.GetRemainingRequests(c.Request.Context(), key, limit, window)
		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		c.Next()
	}
}

// IPBasedKey extracts the rate limit key from the client IP
func IPBasedKey(c *gin.Context) string {
	ip := c.GetHeader("X-Forwarded-For")
	if ip != "" {
		// X-Forwarded-For can contain multiple IPs, take the first one
		ips := strings.Split(ip, ",")
		return strings.TrimSpace(ips[0])
	}
	return c.ClientIP()
}
