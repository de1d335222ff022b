package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/attec/attec-api/internal/metrics"
	"github.com/attec/attec-api/internal/ratelimit"
)

type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stepClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newLimitedHandler(t *testing.T, limiter ratelimit.Limiter, recorder metrics.Recorder) http.Handler {
	t.Helper()
	return RateLimit(RateLimitConfig{
		Logger:  discardLogger(),
		Limiter: limiter,
		Metrics: recorder,
		Enabled: true,
	})(okHandler())
}

func TestRateLimit_ThreePerMinute(t *testing.T) {
	clock := &stepClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	limiter, err := ratelimit.NewFixedWindow(3, time.Minute, ratelimit.WithClock(clock.Now))
	if err != nil {
		t.Fatal(err)
	}
	recorder := metrics.NewInMemory()
	handler := newLimitedHandler(t, limiter, recorder)

	do := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/contact", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	for i := 0; i < 3; i++ {
		rec := do("203.0.113.9:5000")
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i+1, rec.Code)
		}
		if got := rec.Header().Get("X-RateLimit-Remaining"); got != strconv.Itoa(2-i) {
			t.Errorf("request %d: remaining = %s, want %d", i+1, got, 2-i)
		}
	}

	// Different source port, same client.
	rec := do("203.0.113.9:6000")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("4th request: status = %d, want 429", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "60" {
		t.Errorf("Retry-After = %q, want 60", got)
	}
	if rec.Header().Get("X-RateLimit-Limit") != "3" {
		t.Errorf("X-RateLimit-Limit = %q, want 3", rec.Header().Get("X-RateLimit-Limit"))
	}
	if recorder.Snapshot().RateLimited != 1 {
		t.Errorf("rate limited counter = %d, want 1", recorder.Snapshot().RateLimited)
	}

	if rec := do("198.51.100.1:1"); rec.Code != http.StatusOK {
		t.Errorf("other client: status = %d, want 200", rec.Code)
	}

	clock.Advance(time.Minute)
	if rec := do("203.0.113.9:5000"); rec.Code != http.StatusOK {
		t.Errorf("after window: status = %d, want 200", rec.Code)
	}
}

func TestRateLimit_IgnoresForwardedHeadersWithoutRealIP(t *testing.T) {
	limiter, err := ratelimit.NewFixedWindow(1, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	handler := newLimitedHandler(t, limiter, nil)

	for i, want := range []int{http.StatusOK, http.StatusTooManyRequests} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.0.2.1:1234"
		req.Header.Set("X-Forwarded-For", "10.0.0."+strconv.Itoa(i))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != want {
			t.Errorf("request %d: status = %d, want %d", i+1, rec.Code, want)
		}
	}
}

func TestRateLimit_TrustedProxyUsesRealIP(t *testing.T) {
	limiter, err := ratelimit.NewFixedWindow(1, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	handler := middleware.RealIP(newLimitedHandler(t, limiter, nil))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.0.2.1:1234"
		req.Header.Set("X-Forwarded-For", "10.0.0."+strconv.Itoa(i))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("client %d: status = %d, want 200", i, rec.Code)
		}
	}
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string) (ratelimit.Result, error) {
	return ratelimit.Result{}, errors.New("backend down")
}

func TestRateLimit_FailsOpen(t *testing.T) {
	handler := newLimitedHandler(t, failingLimiter{}, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestRateLimit_Disabled(t *testing.T) {
	handler := RateLimit(RateLimitConfig{Limiter: failingLimiter{}, Enabled: false})(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK || rec.Header().Get("X-RateLimit-Limit") != "" {
		t.Errorf("disabled limiter should pass through untouched")
	}
}

func TestRetryAfterSeconds(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want int64
	}{
		{0, 1},
		{300 * time.Millisecond, 1},
		{time.Second, 1},
		{1500 * time.Millisecond, 2},
		{time.Minute, 60},
	}
	for _, tt := range tests {
		if got := retryAfterSeconds(tt.in); got != tt.want {
			t.Errorf("retryAfterSeconds(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
