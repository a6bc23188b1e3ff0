package middleware

import (
	"fmt"

	"anoa.com/librarydesk/pkg/apperror"
	"anoa.com/librarydesk/pkg/ratelimit"
	"github.com/gin-gonic/gin"
)

// RateLimitByIP throttles requests per client IP with a token bucket.
func RateLimitByIP(limiter *ratelimit.KeyedLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			abort(c, fmt.Errorf("too many requests, slow down: %w", apperror.ErrRateLimitExceeded))
			return
		}
		c.Next()
	}
}
