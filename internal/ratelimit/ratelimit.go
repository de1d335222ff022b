// Package ratelimit implements the per-client fixed-window request limiter.
package ratelimit

import (
	"context"
	"errors"
	"time"
)

// Result is the outcome of a single rate-limit check.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// Limiter decides whether a request identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

// ErrInvalidConfig is returned for a non-positive limit or window.
var ErrInvalidConfig = errors.New("rate limit and window must be positive")
