package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/attec/attec-api/internal/ratelimit"
)

// rateLimitNamespace groups per-address windows under the cache prefix.
const rateLimitNamespace = "ratelimit:ip"

// fixedWindowScript counts a request in the current window.
// The key's TTL is the window: it is set on the first request only, so
// later requests never extend the window.
var fixedWindowScript = redis.NewScript(`
	local key = KEYS[1]
	local window_ms = tonumber(ARGV[1])

	local count = redis.call('INCR', key)
	if count == 1 then
		redis.call('PEXPIRE', key, window_ms)
	end

	local ttl = redis.call('PTTL', key)
	if ttl < 0 then
		redis.call('PEXPIRE', key, window_ms)
		ttl = window_ms
	end

	return {count, ttl}
`)

// CheckFixedWindow counts one request for ip against limit per window.
// The IP is hashed so raw addresses are never stored.
func (c *Cache) CheckFixedWindow(ctx context.Context, ip string, limit int, window time.Duration) (ratelimit.Result, error) {
	key := c.key(rateLimitNamespace, hashIP(ip))

	out, err := fixedWindowScript.Run(ctx, c.client, []string{key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return ratelimit.Result{}, fmt.Errorf("run fixed window script: %w", err)
	}
	if len(out) != 2 {
		return ratelimit.Result{}, fmt.Errorf("fixed window script returned %d values", len(out))
	}

	return fixedWindowResult(out[0], time.Duration(out[1])*time.Millisecond, limit, time.Now()), nil
}

func fixedWindowResult(count int64, ttl time.Duration, limit int, now time.Time) ratelimit.Result {
	res := ratelimit.Result{
		Allowed:   count <= int64(limit),
		Limit:     limit,
		Remaining: int(max(int64(limit)-count, 0)),
		ResetAt:   now.Add(ttl),
	}
	if !res.Allowed {
		res.RetryAfter = ttl
	}
	return res
}

// FixedWindowLimiter is a ratelimit.Limiter shared across processes
// through Redis. It fails open: a Redis error allows the request.
type FixedWindowLimiter struct {
	cache  *Cache
	limit  int
	window time.Duration
	logger *slog.Logger
}

// NewFixedWindowLimiter creates a Redis-backed limiter.
func NewFixedWindowLimiter(c *Cache, limit int, window time.Duration, logger *slog.Logger) (*FixedWindowLimiter, error) {
	if limit <= 0 || window <= 0 {
		return nil, ratelimit.ErrInvalidConfig
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FixedWindowLimiter{
		cache:  c,
		limit:  limit,
		window: window,
		logger: logger.With("component", "ratelimit_redis"),
	}, nil
}

// Allow implements ratelimit.Limiter.
func (l *FixedWindowLimiter) Allow(ctx context.Context, key string) (ratelimit.Result, error) {
	res, err := l.cache.CheckFixedWindow(ctx, key, l.limit, l.window)
	if err != nil {
		l.logger.Warn("rate limit check failed, allowing request", "error", err)
		return ratelimit.Result{
			Allowed:   true,
			Limit:     l.limit,
			Remaining: l.limit,
			ResetAt:   time.Now().Add(l.window),
		}, nil
	}
	return res, nil
}

// hashIP creates a truncated SHA256 hash of an IP address.
func hashIP(ip string) string {
	hash := sha256.Sum256([]byte(ip))
	return hex.EncodeToString(hash[:8]) // 16 hex chars
}
