package gateway

import (
	"context"
	"sync"
	"time"
)

// 令牌提前失效的安全余量，避免边界上拿到刚好过期的令牌
const expirySkew = 60 * time.Second

// tokenExchanger 令牌交换能力，由 Client 实现
type tokenExchanger interface {
	ExchangeToken(ctx context.Context) (*TokenResult, error)
}

// TokenCache 进程内令牌缓存，实现 domain.TokenSource。
// 互斥锁保证同一进程内刷新串行化，并发请求等待同一次刷新结果。
type TokenCache struct {
	exchanger tokenExchanger

	mu        sync.Mutex
	token     string
	expiresAt time.Time

	// 便于测试注入时钟
	now func() time.Time
}

// NewTokenCache 创建令牌缓存
func NewTokenCache(exchanger tokenExchanger) *TokenCache {
	return &TokenCache{
		exchanger: exchanger,
		now:       time.Now,
	}
}

// Token 返回可用令牌，缓存为空或即将过期时先刷新。
// 刷新失败时清空缓存，下一次调用重新交换而不是复用可疑令牌。
func (tc *TokenCache) Token(ctx context.Context) (string, error) {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	if tc.token != "" && tc.now().Add(expirySkew).Before(tc.expiresAt) {
		return tc.token, nil
	}

	result, err := tc.exchanger.ExchangeToken(ctx)
	if err != nil {
		tc.token = ""
		tc.expiresAt = time.Time{}
		return "", err
	}

	tc.token = result.AccessToken
	tc.expiresAt = result.ExpiresAt
	return tc.token, nil
}
