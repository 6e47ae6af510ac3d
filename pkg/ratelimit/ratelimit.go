// Package ratelimit 提供基于 Redis 的客户端 IP 限流，保护报名与支付入口
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
)

// keyPrefix 限流键前缀，与缓存键共用同一命名空间
const keyPrefix = "scholarpay:ratelimit:"

// Decision 单次限流判定结果，供中间件写响应头
type Decision struct {
	// 是否放行
	Allowed bool
	// 当前窗口剩余配额
	Remaining int
	// 配额重置等待时间
	ResetAfter time.Duration
	// 被拒后建议的重试间隔
	RetryAfter time.Duration
}

// IPLimiter 按客户端 IP 限流，底层为 redis_rate 的 GCRA 实现。
// 多实例部署时配额在 Redis 侧共享。
type IPLimiter struct {
	limiter *redis_rate.Limiter
	qps     int
	burst   int
}

// NewIPLimiter 创建 IP 限流器，qps 与 burst 来自配置
func NewIPLimiter(rdb *redis.Client, qps, burst int) *IPLimiter {
	return &IPLimiter{
		limiter: redis_rate.NewLimiter(rdb),
		qps:     qps,
		burst:   burst,
	}
}

// AllowIP 判定该 IP 的本次请求是否放行
func (l *IPLimiter) AllowIP(ctx context.Context, ip string) (*Decision, error) {
	res, err := l.limiter.Allow(ctx, keyPrefix+ip, redis_rate.Limit{
		Rate:   l.qps,
		Period: time.Second,
		Burst:  l.burst,
	})
	if err != nil {
		return nil, fmt.Errorf("rate limit check failed: %w", err)
	}

	return &Decision{
		Allowed:    res.Allowed > 0,
		Remaining:  res.Remaining,
		ResetAfter: res.ResetAfter,
		RetryAfter: res.RetryAfter,
	}, nil
}

// Burst 返回突发容量，供响应头使用
func (l *IPLimiter) Burst() int {
	return l.burst
}
