package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// ObserveRequest is a no-op.
func (n *NoopRecorder) ObserveRequest(string, string, int, time.Duration) {}

// IncRateLimited is a no-op.
func (n *NoopRecorder) IncRateLimited() {}

// IncAuthFailure is a no-op.
func (n *NoopRecorder) IncAuthFailure(string) {}

// IncLogin is a no-op.
func (n *NoopRecorder) IncLogin(string) {}

// IncSubmission is a no-op.
func (n *NoopRecorder) IncSubmission() {}

// IncNotification is a no-op.
func (n *NoopRecorder) IncNotification(string, string) {}

// IncAnalyticsEvent is a no-op.
func (n *NoopRecorder) IncAnalyticsEvent(string) {}
