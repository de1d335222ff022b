package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	Requests             uint64
	RequestDurationNs    int64
	RateLimited          uint64
	AuthFailures         map[string]uint64
	Logins               map[string]uint64
	Submissions          uint64
	Notifications        map[string]uint64 // "kind/status"
	AnalyticsEvents      map[string]uint64
	ResponsesByStatusCls map[string]uint64 // "2xx", "4xx", ...
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	requests          uint64
	requestDurationNs int64
	rateLimited       uint64
	submissions       uint64

	mu       sync.Mutex
	labelled map[string]map[string]uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{labelled: make(map[string]map[string]uint64)}
}

func (m *InMemoryRecorder) inc(family, label string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.labelled[family] == nil {
		m.labelled[family] = make(map[string]uint64)
	}
	m.labelled[family][label]++
}

func (m *InMemoryRecorder) copyFamily(family string) map[string]uint64 {
	out := make(map[string]uint64, len(m.labelled[family]))
	for k, v := range m.labelled[family] {
		out[k] = v
	}
	return out
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		Requests:             atomic.LoadUint64(&m.requests),
		RequestDurationNs:    atomic.LoadInt64(&m.requestDurationNs),
		RateLimited:          atomic.LoadUint64(&m.rateLimited),
		AuthFailures:         m.copyFamily("auth_failure"),
		Logins:               m.copyFamily("login"),
		Submissions:          atomic.LoadUint64(&m.submissions),
		Notifications:        m.copyFamily("notification"),
		AnalyticsEvents:      m.copyFamily("analytics_event"),
		ResponsesByStatusCls: m.copyFamily("status_class"),
	}
}

// ObserveRequest records one served request.
func (m *InMemoryRecorder) ObserveRequest(_, _ string, status int, duration time.Duration) {
	atomic.AddUint64(&m.requests, 1)
	atomic.AddInt64(&m.requestDurationNs, duration.Nanoseconds())
	m.inc("status_class", statusClass(status))
}

// IncRateLimited increments the rejected-by-limiter counter.
func (m *InMemoryRecorder) IncRateLimited() {
	atomic.AddUint64(&m.rateLimited, 1)
}

// IncAuthFailure increments the auth failure counter for reason.
func (m *InMemoryRecorder) IncAuthFailure(reason string) {
	m.inc("auth_failure", reason)
}

// IncLogin increments the login counter for status.
func (m *InMemoryRecorder) IncLogin(status string) {
	m.inc("login", status)
}

// IncSubmission increments the contact submission counter.
func (m *InMemoryRecorder) IncSubmission() {
	atomic.AddUint64(&m.submissions, 1)
}

// IncNotification increments the notification counter.
func (m *InMemoryRecorder) IncNotification(kind, status string) {
	m.inc("notification", kind+"/"+status)
}

// IncAnalyticsEvent increments the analytics event counter for status.
func (m *InMemoryRecorder) IncAnalyticsEvent(status string) {
	m.inc("analytics_event", status)
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
