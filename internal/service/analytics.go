package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/attec/attec-api/internal/apperr"
	"github.com/attec/attec-api/internal/metrics"
	"github.com/attec/attec-api/internal/model"
)

// Summary defaults.
const (
	DefaultSummaryDays = 30
	TopEventsLimit     = 10
	DateLayout         = "2006-01-02"
)

// EventStore is the storage collaborator for analytics.
type EventStore interface {
	InsertEvent(ctx context.Context, e *model.AnalyticsEvent) error
	CountEvents(ctx context.Context, from, to time.Time) (int64, error)
	CountUniqueSessions(ctx context.Context, from, to time.Time) (int64, error)
	TopEvents(ctx context.Context, from, to time.Time, limit int) ([]model.EventCount, error)
}

// SubmissionCounter counts contact submissions for summaries.
type SubmissionCounter interface {
	CountSubmissions(ctx context.Context, from, to time.Time) (int64, error)
	CountSubmissionsByStatus(ctx context.Context, from, to time.Time) (map[model.ContactStatus]int64, error)
}

// AnalyticsService records events and builds summaries.
type AnalyticsService struct {
	events      EventStore
	submissions SubmissionCounter
	logger      *slog.Logger
	metrics     metrics.Recorder
	now         func() time.Time
}

// NewAnalyticsService creates a new AnalyticsService.
func NewAnalyticsService(events EventStore, submissions SubmissionCounter, logger *slog.Logger, recorder metrics.Recorder) *AnalyticsService {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &AnalyticsService{
		events:      events,
		submissions: submissions,
		logger:      logger.With("component", "analytics"),
		metrics:     recorder,
		now:         time.Now,
	}
}

// TrackInput is a validated event from a client.
type TrackInput struct {
	EventType string
	EventData json.RawMessage
	SessionID string
	Referrer  string
	IPAddress string
	UserAgent string
}

// Track stores one event. The returned error is already logged; callers on
// the public path report it without failing the request.
func (s *AnalyticsService) Track(ctx context.Context, in TrackInput) (*model.AnalyticsEvent, error) {
	now := s.now().UTC()
	event := &model.AnalyticsEvent{
		ID:        ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		EventType: in.EventType,
		EventData: in.EventData,
		SessionID: in.SessionID,
		IPAddress: in.IPAddress,
		UserAgent: in.UserAgent,
		Referrer:  in.Referrer,
		Timestamp: now,
	}

	if err := s.events.InsertEvent(ctx, event); err != nil {
		s.metrics.IncAnalyticsEvent(metrics.StatusFailed)
		s.logger.ErrorContext(ctx, "analytics tracking failed", "event_type", in.EventType, "error", err)
		return nil, fmt.Errorf("track event: %w", err)
	}

	s.metrics.IncAnalyticsEvent(metrics.StatusSuccess)
	return event, nil
}

// Summary aggregates events and submissions over the inclusive day range
// [start, end]. A nil end means today; a nil start means 30 days before end.
func (s *AnalyticsService) Summary(ctx context.Context, start, end *time.Time) (*model.AnalyticsSummary, error) {
	rng := s.resolveRange(start, end)
	if rng.Start.After(rng.End) {
		return nil, apperr.Validation("Invalid date range", map[string]string{
			"start_date": "must not be after end_date",
		})
	}
	from, to := rng.Bounds()

	totalEvents, err := s.events.CountEvents(ctx, from, to)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	totalSubmissions, err := s.submissions.CountSubmissions(ctx, from, to)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	sessions, err := s.events.CountUniqueSessions(ctx, from, to)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	top, err := s.events.TopEvents(ctx, from, to, TopEventsLimit)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	counts, err := s.submissions.CountSubmissionsByStatus(ctx, from, to)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	byStatus := make(map[model.ContactStatus]int64, len(model.ValidContactStatuses))
	for _, st := range model.ValidContactStatuses {
		byStatus[st] = counts[st]
	}
	if top == nil {
		top = []model.EventCount{}
	}

	return &model.AnalyticsSummary{
		TotalEvents:      totalEvents,
		TotalSubmissions: totalSubmissions,
		UniqueSessions:   sessions,
		DateRange: model.SummaryRange{
			Start: rng.Start.Format(DateLayout),
			End:   rng.End.Format(DateLayout),
		},
		TopEvents:           top,
		SubmissionsByStatus: byStatus,
	}, nil
}

func (s *AnalyticsService) resolveRange(start, end *time.Time) model.DateRange {
	var rng model.DateRange
	if end != nil {
		rng.End = day(*end)
	} else {
		rng.End = day(s.now())
	}
	if start != nil {
		rng.Start = day(*start)
	} else {
		rng.Start = rng.End.AddDate(0, 0, -DefaultSummaryDays)
	}
	return rng
}

func day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
