// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Auth failure reasons.
const (
	ReasonMissingToken     = "missing_token"
	ReasonInvalidToken     = "invalid_token"
	ReasonUserNotFound     = "user_not_found"
	ReasonInactiveUser     = "inactive_user"
	ReasonInsufficientRole = "insufficient_role"
)

// Outcome labels.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// HTTP
	ObserveRequest(method, route string, status int, duration time.Duration)
	IncRateLimited()

	// Auth
	IncAuthFailure(reason string)
	IncLogin(status string)

	// Public side effects
	IncSubmission()
	IncNotification(kind, status string)
	IncAnalyticsEvent(status string)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
