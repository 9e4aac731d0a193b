package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Miraines/jwtauth/internal/infra/ratelimit"
)

// NewHTTPRateLimitPerIP answers 429 once a client IP runs out of tokens.
func NewHTTPRateLimitPerIP(limit, burst, cacheSize int, ttl time.Duration) gin.HandlerFunc {
	visitors := ratelimit.New(limit, burst, cacheSize, ttl)

	return func(c *gin.Context) {
		if !visitors.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
