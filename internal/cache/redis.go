// Package cache holds the Redis-backed state shared between API replicas.
// Today that is the rate limiter's per-address windows.
package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces every key this package writes.
const DefaultKeyPrefix = "attec:"

const connectTimeout = 5 * time.Second

// Cache provides Redis access methods.
type Cache struct {
	client *redis.Client
	prefix string
}

// Option configures a Cache.
type Option func(*redis.Options, *Cache)

// WithPoolSize overrides the connection pool size.
func WithPoolSize(n int) Option {
	return func(o *redis.Options, _ *Cache) {
		if n > 0 {
			o.PoolSize = n
		}
	}
}

// WithKeyPrefix replaces DefaultKeyPrefix, for sharing one Redis between
// environments.
func WithKeyPrefix(prefix string) Option {
	return func(_ *redis.Options, c *Cache) { c.prefix = prefix }
}

// New connects to redisURL and verifies the connection.
func New(ctx context.Context, redisURL string, opts ...Option) (*Cache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	// Connection pool settings
	opt.PoolSize = 10
	opt.MinIdleConns = 2
	opt.PoolTimeout = 4 * time.Second
	opt.ConnMaxIdleTime = 5 * time.Minute

	c := &Cache{prefix: DefaultKeyPrefix}
	for _, o := range opts {
		o(opt, c)
	}
	c.client = redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := c.client.Ping(pingCtx).Err(); err != nil {
		_ = c.client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return c, nil
}

// key joins parts under the cache's prefix.
func (c *Cache) key(parts ...string) string {
	return c.prefix + strings.Join(parts, ":")
}

// Ping checks Redis connectivity.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (c *Cache) Close() error {
	return c.client.Close()
}

// Client returns the underlying Redis client, for test cleanup.
func (c *Cache) Client() *redis.Client {
	return c.client
}
