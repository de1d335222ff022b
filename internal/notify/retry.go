package notify

import (
	"context"
	"errors"
	"math/rand/v2"
	"net/http"
	"time"
)

// Retry delays between delivery attempts. A notification has to land
// within the contact service's notify timeout, so they stay short.
var retryDelays = []time.Duration{
	500 * time.Millisecond,
	2 * time.Second,
	5 * time.Second,
}

const (
	// DefaultMaxAttempts is the default number of delivery attempts.
	DefaultMaxAttempts = 3

	// JitterFactor is the ±fraction of jitter applied to delays.
	JitterFactor = 0.2
)

// NextRetryDelay returns the jittered delay after the given failed attempt.
// attempt is 0-indexed; values past the table reuse its last entry.
func NextRetryDelay(attempt int) time.Duration {
	attempt = min(max(attempt, 0), len(retryDelays)-1)
	base := retryDelays[attempt]

	jitterRange := float64(base) * JitterFactor
	jitter := (rand.Float64()*2 - 1) * jitterRange

	return time.Duration(float64(base) + jitter)
}

// IsRetryable reports whether a failed delivery may succeed if repeated:
// transport failures, 429 and 5xx. Cancellation and other 4xx are final.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var de *DeliveryError
	if errors.As(err, &de) {
		return de.StatusCode == http.StatusTooManyRequests || de.StatusCode >= 500
	}
	return true
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
