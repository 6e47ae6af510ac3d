package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/scholarpay/pkg/config"
	"github.com/wyfcoding/scholarpay/pkg/logger"
	"github.com/wyfcoding/scholarpay/pkg/ratelimit"
)

// IPLimiter 限流判定能力，由 pkg/ratelimit 的 Redis 实现提供
type IPLimiter interface {
	AllowIP(ctx context.Context, ip string) (*ratelimit.Decision, error)
	Burst() int
}

// RateLimitMiddleware 按客户端 IP 限流。
// Redis 故障时放行而不是拒绝，限流器永远不能成为不可用的单点。
func RateLimitMiddleware(limiter IPLimiter, cfg config.RateLimitConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cfg.Enabled {
			c.Next()
			return
		}

		decision, err := limiter.AllowIP(c.Request.Context(), c.ClientIP())
		if err != nil {
			logger.Warn(c.Request.Context(), "rate limiter unavailable, allowing request", "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.Burst()))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(int64(decision.ResetAfter/time.Second), 10))

		if !decision.Allowed {
			c.Header("Retry-After", strconv.FormatInt(int64(decision.RetryAfter/time.Second), 10))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "too many requests",
				"retry_after": decision.RetryAfter.String(),
			})
			return
		}

		c.Next()
	}
}
