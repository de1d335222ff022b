package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultMaxKeys bounds the number of addresses tracked at once.
const DefaultMaxKeys = 100_000

type window struct {
	start time.Time
	count int
}

// FixedWindow counts requests per key in fixed windows held in memory.
// The request that takes a key's count past the limit is rejected.
// It is safe for concurrent use.
type FixedWindow struct {
	limit   int
	window  time.Duration
	maxKeys int
	now     func() time.Time

	mu      sync.Mutex
	windows map[string]*window
}

// Option configures a FixedWindow.
type Option func(*FixedWindow)

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(f *FixedWindow) { f.now = now }
}

// WithMaxKeys sets the cap on tracked keys. Values below 1 are ignored.
func WithMaxKeys(n int) Option {
	return func(f *FixedWindow) {
		if n > 0 {
			f.maxKeys = n
		}
	}
}

// NewFixedWindow allows limit requests per key in each window.
func NewFixedWindow(limit int, windowLen time.Duration, opts ...Option) (*FixedWindow, error) {
	if limit <= 0 || windowLen <= 0 {
		return nil, ErrInvalidConfig
	}
	f := &FixedWindow{
		limit:   limit,
		window:  windowLen,
		maxKeys: DefaultMaxKeys,
		now:     time.Now,
		windows: make(map[string]*window),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Allow records one request for key.
func (f *FixedWindow) Allow(_ context.Context, key string) (Result, error) {
	now := f.now()

	f.mu.Lock()
	defer f.mu.Unlock()

	w, ok := f.windows[key]
	if !ok {
		if len(f.windows) >= f.maxKeys {
			f.makeRoomLocked(now)
		}
		w = &window{start: now}
		f.windows[key] = w
	} else if !now.Before(w.start.Add(f.window)) {
		w.start = now
		w.count = 0
	}

	// Stop counting once over the limit; the window state is unchanged by it.
	if w.count <= f.limit {
		w.count++
	}

	resetAt := w.start.Add(f.window)
	res := Result{
		Allowed:   w.count <= f.limit,
		Limit:     f.limit,
		Remaining: max(f.limit-w.count, 0),
		ResetAt:   resetAt,
	}
	if !res.Allowed {
		res.RetryAfter = resetAt.Sub(now)
	}
	return res, nil
}

// makeRoomLocked drops expired windows and, if still full, the window
// with the oldest start. Callers hold f.mu.
func (f *FixedWindow) makeRoomLocked(now time.Time) {
	f.sweepLocked(now)
	if len(f.windows) < f.maxKeys {
		return
	}

	var oldestKey string
	var oldest time.Time
	for k, w := range f.windows {
		if oldestKey == "" || w.start.Before(oldest) {
			oldestKey, oldest = k, w.start
		}
	}
	delete(f.windows, oldestKey)
}

func (f *FixedWindow) sweepLocked(now time.Time) int {
	removed := 0
	for k, w := range f.windows {
		if !now.Before(w.start.Add(f.window)) {
			delete(f.windows, k)
			removed++
		}
	}
	return removed
}

// Sweep removes every expired window and returns how many were removed.
func (f *FixedWindow) Sweep() int {
	now := f.now()
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sweepLocked(now)
}

// Len returns the number of tracked keys.
func (f *FixedWindow) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.windows)
}

// Reset forgets all windows.
func (f *FixedWindow) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.windows = make(map[string]*window)
}

// RunSweeper calls Sweep every interval until ctx is done.
func (f *FixedWindow) RunSweeper(ctx context.Context, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		interval = f.window
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := f.Sweep(); n > 0 && logger != nil {
				logger.Debug("rate limit windows swept", "removed", n, "remaining", f.Len())
			}
		}
	}
}
