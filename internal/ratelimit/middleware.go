package ratelimit

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/amirk1998/secure-bank/internal/metrics"
)

// KeyFunc picks the bucket for a request.
type KeyFunc func(c *gin.Context) string

// ByClientIP keys requests on the client address.
func ByClientIP(c *gin.Context) string {
	return c.ClientIP()
}

// Middleware rejects requests over the limit with 429.
func (rl *RateLimiter) Middleware(key KeyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.Allow(key(c)) {
			metrics.PolicyRejectionsTotal.WithLabelValues("rate_limit").Inc()
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
