package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// GlobalRateLimiter is a process-wide admission gate applied before the
// per-tenant limiter; it protects the service itself, not tenant quotas.
type GlobalRateLimiter struct {
	limiter *rate.Limiter
}

func NewGlobalRateLimiter(r rate.Limit, burst int) *GlobalRateLimiter {
	return &GlobalRateLimiter{limiter: rate.NewLimiter(r, burst)}
}

func (rl *GlobalRateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"status":  "error",
				"message": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}
