package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/scholarpay/pkg/config"
	"github.com/wyfcoding/scholarpay/pkg/ratelimit"
)

type fakeLimiter struct {
	decision *ratelimit.Decision
	err      error
	calls    int
}

func (f *fakeLimiter) AllowIP(ctx context.Context, ip string) (*ratelimit.Decision, error) {
	f.calls++
	return f.decision, f.err
}

func (f *fakeLimiter) Burst() int {
	return 100
}

func newLimitedRouter(limiter IPLimiter, cfg config.RateLimitConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RateLimitMiddleware(limiter, cfg))
	router.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})
	return router
}

func doRequest(router *gin.Engine) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	router.ServeHTTP(w, req)
	return w
}

func TestRateLimitAllowed(t *testing.T) {
	limiter := &fakeLimiter{decision: &ratelimit.Decision{
		Allowed:    true,
		Remaining:  42,
		ResetAfter: 2 * time.Second,
	}}
	router := newLimitedRouter(limiter, config.RateLimitConfig{Enabled: true, QPS: 50, Burst: 100})

	w := doRequest(router)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if got := w.Header().Get("X-RateLimit-Remaining"); got != "42" {
		t.Errorf("remaining header = %q", got)
	}
	if got := w.Header().Get("X-RateLimit-Limit"); got != "100" {
		t.Errorf("limit header = %q", got)
	}
}

func TestRateLimitDenied(t *testing.T) {
	limiter := &fakeLimiter{decision: &ratelimit.Decision{
		Allowed:    false,
		RetryAfter: 3 * time.Second,
	}}
	router := newLimitedRouter(limiter, config.RateLimitConfig{Enabled: true, QPS: 50, Burst: 100})

	w := doRequest(router)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d", w.Code)
	}
	if got := w.Header().Get("Retry-After"); got != "3" {
		t.Errorf("retry-after header = %q", got)
	}
}

func TestRateLimitFailsOpen(t *testing.T) {
	// Redis 故障时必须放行
	limiter := &fakeLimiter{err: errors.New("redis unreachable")}
	router := newLimitedRouter(limiter, config.RateLimitConfig{Enabled: true, QPS: 50, Burst: 100})

	w := doRequest(router)
	if w.Code != http.StatusOK {
		t.Fatalf("limiter failure must fail open, status = %d", w.Code)
	}
}

func TestRateLimitDisabled(t *testing.T) {
	limiter := &fakeLimiter{}
	router := newLimitedRouter(limiter, config.RateLimitConfig{Enabled: false})

	w := doRequest(router)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if limiter.calls != 0 {
		t.Errorf("disabled limiter must not be consulted, calls = %d", limiter.calls)
	}
}
