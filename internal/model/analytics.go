package model

import (
	"encoding/json"
	"time"
)

// AnalyticsEvent is a single anonymous client-side event.
type AnalyticsEvent struct {
	ID        string          `json:"id"` // ULID (time-sortable)
	EventType string          `json:"event_type"`
	EventData json.RawMessage `json:"event_data,omitempty"`
	SessionID string          `json:"session_id,omitempty"`
	IPAddress string          `json:"ip_address,omitempty"`
	UserAgent string          `json:"user_agent,omitempty"`
	Referrer  string          `json:"referrer,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// DateRange is an inclusive range of calendar days in UTC.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Bounds returns the half-open instant range [start 00:00, end+1 day 00:00).
func (d DateRange) Bounds() (time.Time, time.Time) {
	from := truncateDay(d.Start)
	to := truncateDay(d.End).AddDate(0, 0, 1)
	return from, to
}

func truncateDay(t time.Time) time.Time {
	y, m, day := t.UTC().Date()
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

// EventCount is the number of events of one type.
type EventCount struct {
	EventType string `json:"event_type"`
	Count     int64  `json:"count"`
}

// AnalyticsSummary aggregates events and submissions over a date range.
type AnalyticsSummary struct {
	TotalEvents         int64                   `json:"total_events"`
	TotalSubmissions    int64                   `json:"total_submissions"`
	UniqueSessions      int64                   `json:"unique_sessions"`
	DateRange           SummaryRange            `json:"date_range"`
	TopEvents           []EventCount            `json:"top_events"`
	SubmissionsByStatus map[ContactStatus]int64 `json:"submissions_by_status"`
}

// SummaryRange is the date range as rendered in a summary.
type SummaryRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}
