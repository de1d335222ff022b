package service

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/attec/attec-api/internal/model"
	"github.com/attec/attec-api/internal/notify"
	"github.com/attec/attec-api/internal/repository"
)

var errStorage = errors.New("storage unavailable")

type memSubmissions struct {
	mu        sync.Mutex
	items     map[string]*model.ContactSubmission
	createErr error
	lastList  model.ContactFilter
}

func newMemSubmissions() *memSubmissions {
	return &memSubmissions{items: make(map[string]*model.ContactSubmission)}
}

func (m *memSubmissions) CreateSubmission(_ context.Context, s *model.ContactSubmission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	cp := *s
	m.items[s.ID] = &cp
	return nil
}

func (m *memSubmissions) GetSubmission(_ context.Context, id string) (*model.ContactSubmission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.items[id]
	if !ok {
		return nil, repository.ErrSubmissionNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memSubmissions) ListSubmissions(_ context.Context, f model.ContactFilter) ([]*model.ContactSubmission, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastList = f
	var out []*model.ContactSubmission
	for _, s := range m.items {
		if len(f.Statuses) == 0 || slices.Contains(f.Statuses, s.Status) {
			out = append(out, s)
		}
	}
	total := int64(len(out))
	if f.Skip >= len(out) {
		return []*model.ContactSubmission{}, total, nil
	}
	out = out[f.Skip:]
	if len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, total, nil
}

func (m *memSubmissions) UpdateSubmission(_ context.Context, id string, u model.ContactUpdate) (*model.ContactSubmission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.items[id]
	if !ok {
		return nil, repository.ErrSubmissionNotFound
	}
	u.Apply(s)
	cp := *s
	return &cp, nil
}

type recordingNotifier struct {
	mu      sync.Mutex
	leads   []notify.Lead
	replies []string
	err     error
	block   chan struct{}
}

func (n *recordingNotifier) NotifyLead(ctx context.Context, lead notify.Lead) error {
	if n.block != nil {
		select {
		case <-n.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.leads = append(n.leads, lead)
	return n.err
}

func (n *recordingNotifier) SendAutoReply(_ context.Context, _, email string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.replies = append(n.replies, email)
	return n.err
}

type memEvents struct {
	mu        sync.Mutex
	events    []*model.AnalyticsEvent
	insertErr error
	countErr  error
	top       []model.EventCount
	lastFrom  time.Time
	lastTo    time.Time
}

func (m *memEvents) InsertEvent(_ context.Context, e *model.AnalyticsEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return m.insertErr
	}
	m.events = append(m.events, e)
	return nil
}

func (m *memEvents) CountEvents(_ context.Context, from, to time.Time) (int64, error) {
	m.lastFrom, m.lastTo = from, to
	return int64(len(m.events)), m.countErr
}

func (m *memEvents) CountUniqueSessions(context.Context, time.Time, time.Time) (int64, error) {
	seen := map[string]bool{}
	for _, e := range m.events {
		if e.SessionID != "" {
			seen[e.SessionID] = true
		}
	}
	return int64(len(seen)), nil
}

func (m *memEvents) TopEvents(context.Context, time.Time, time.Time, int) ([]model.EventCount, error) {
	return m.top, nil
}

type fixedCounts struct {
	total    int64
	byStatus map[model.ContactStatus]int64
}

func (f fixedCounts) CountSubmissions(context.Context, time.Time, time.Time) (int64, error) {
	return f.total, nil
}

func (f fixedCounts) CountSubmissionsByStatus(context.Context, time.Time, time.Time) (map[model.ContactStatus]int64, error) {
	return f.byStatus, nil
}
