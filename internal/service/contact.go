package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/attec/attec-api/internal/apperr"
	"github.com/attec/attec-api/internal/metrics"
	"github.com/attec/attec-api/internal/model"
	"github.com/attec/attec-api/internal/notify"
	"github.com/attec/attec-api/internal/repository"
)

// Listing bounds for contact submissions.
const (
	DefaultListLimit = 50
	MaxListLimit     = 100
)

// DefaultNotifyTimeout bounds the detached notification goroutine.
const DefaultNotifyTimeout = 30 * time.Second

// MsgSubmissionNotFound is the client message for a missing submission.
const MsgSubmissionNotFound = "Submission not found"

// SubmissionStore is the storage collaborator for contact submissions.
type SubmissionStore interface {
	CreateSubmission(ctx context.Context, s *model.ContactSubmission) error
	GetSubmission(ctx context.Context, id string) (*model.ContactSubmission, error)
	ListSubmissions(ctx context.Context, filter model.ContactFilter) ([]*model.ContactSubmission, int64, error)
	UpdateSubmission(ctx context.Context, id string, update model.ContactUpdate) (*model.ContactSubmission, error)
}

// ContactService handles contact form submissions and their administration.
type ContactService struct {
	store         SubmissionStore
	notifier      notify.Notifier
	logger        *slog.Logger
	metrics       metrics.Recorder
	notifyTimeout time.Duration
	now           func() time.Time

	wg sync.WaitGroup
}

// ContactOption configures a ContactService.
type ContactOption func(*ContactService)

// WithNotifyTimeout sets the deadline for sending notifications.
func WithNotifyTimeout(d time.Duration) ContactOption {
	return func(s *ContactService) {
		if d > 0 {
			s.notifyTimeout = d
		}
	}
}

// NewContactService creates a new ContactService.
func NewContactService(store SubmissionStore, notifier notify.Notifier, logger *slog.Logger, recorder metrics.Recorder, opts ...ContactOption) *ContactService {
	if logger == nil {
		logger = slog.Default()
	}
	if notifier == nil {
		notifier = notify.NewLogNotifier(logger)
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	s := &ContactService{
		store:         store,
		notifier:      notifier,
		logger:        logger.With("component", "contact"),
		metrics:       recorder,
		notifyTimeout: DefaultNotifyTimeout,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SubmitInput is a validated contact form.
type SubmitInput struct {
	Name      string
	Email     string
	Company   string
	Message   string
	IPAddress string
	UserAgent string
}

// Submit stores a new submission and sends the lead notification and
// auto-reply in the background. Notification failures never fail Submit.
func (s *ContactService) Submit(ctx context.Context, in SubmitInput) (*model.ContactSubmission, error) {
	sub := &model.ContactSubmission{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(in.Name),
		Email:       strings.TrimSpace(in.Email),
		Message:     strings.TrimSpace(in.Message),
		Status:      model.ContactStatusNew,
		IPAddress:   in.IPAddress,
		UserAgent:   in.UserAgent,
		SubmittedAt: s.now().UTC(),
	}
	if company := strings.TrimSpace(in.Company); company != "" {
		sub.Company = &company
	}

	if err := s.store.CreateSubmission(ctx, sub); err != nil {
		return nil, apperr.Internal(fmt.Errorf("create submission: %w", err))
	}
	s.metrics.IncSubmission()
	s.logger.InfoContext(ctx, "contact submission stored", "submission_id", sub.ID)

	lead := notify.Lead{
		Name:         sub.Name,
		Email:        sub.Email,
		Company:      notify.CompanyNotProvided,
		Message:      sub.Message,
		SubmissionID: sub.ID,
	}
	if sub.Company != nil {
		lead.Company = *sub.Company
	}

	// Detached from the request so a finished response does not cancel it.
	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.notifyTimeout)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		s.sendNotifications(notifyCtx, lead)
	}()

	return sub, nil
}

func (s *ContactService) sendNotifications(ctx context.Context, lead notify.Lead) {
	s.notify(ctx, notify.KindLead, func(ctx context.Context) error {
		return s.notifier.NotifyLead(ctx, lead)
	})
	s.notify(ctx, notify.KindAutoReply, func(ctx context.Context) error {
		return s.notifier.SendAutoReply(ctx, lead.Name, lead.Email)
	})
}

func (s *ContactService) notify(ctx context.Context, kind string, fn func(context.Context) error) {
	status := metrics.StatusSuccess
	if !BestEffort(ctx, s.logger, "notify_"+kind, fn) {
		status = metrics.StatusFailed
	}
	s.metrics.IncNotification(kind, status)
}

// Wait blocks until in-flight notifications finish or ctx is done.
func (s *ContactService) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ListInput selects a page of submissions.
type ListInput struct {
	Skip     int
	Limit    int
	Statuses []model.ContactStatus
}

// ListOutput is one page of submissions.
type ListOutput struct {
	Total int64                      `json:"total"`
	Items []*model.ContactSubmission `json:"items"`
	Skip  int                        `json:"skip"`
	Limit int                        `json:"limit"`
}

// List returns a page of submissions, newest first.
func (s *ContactService) List(ctx context.Context, in ListInput) (*ListOutput, error) {
	if in.Limit == 0 {
		in.Limit = DefaultListLimit
	}
	fields := map[string]string{}
	if in.Skip < 0 {
		fields["skip"] = "must be >= 0"
	}
	if in.Limit < 1 || in.Limit > MaxListLimit {
		fields["limit"] = fmt.Sprintf("must be between 1 and %d", MaxListLimit)
	}
	for _, st := range in.Statuses {
		if !st.IsValid() {
			fields["status"] = "unknown status " + string(st)
		}
	}
	if len(fields) > 0 {
		return nil, apperr.Validation("Invalid query parameters", fields)
	}

	items, total, err := s.store.ListSubmissions(ctx, model.ContactFilter{
		Statuses: in.Statuses,
		Skip:     in.Skip,
		Limit:    in.Limit,
	})
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("list submissions: %w", err))
	}

	return &ListOutput{Total: total, Items: items, Skip: in.Skip, Limit: in.Limit}, nil
}

// Get returns the submission with id.
func (s *ContactService) Get(ctx context.Context, id string) (*model.ContactSubmission, error) {
	sub, err := s.store.GetSubmission(ctx, id)
	if err != nil {
		return nil, s.mapStoreError(err, "get submission")
	}
	return sub, nil
}

// Update applies an admin edit to the submission with id.
func (s *ContactService) Update(ctx context.Context, id string, update model.ContactUpdate) (*model.ContactSubmission, error) {
	if update.Status != nil && !update.Status.IsValid() {
		return nil, apperr.Validation("Invalid request", map[string]string{"status": "unknown status " + string(*update.Status)})
	}
	if update.IsEmpty() {
		return s.Get(ctx, id)
	}

	sub, err := s.store.UpdateSubmission(ctx, id, update)
	if err != nil {
		return nil, s.mapStoreError(err, "update submission")
	}

	s.logger.InfoContext(ctx, "contact submission updated", "submission_id", sub.ID, "status", string(sub.Status))
	return sub, nil
}

func (s *ContactService) mapStoreError(err error, op string) error {
	if errors.Is(err, repository.ErrSubmissionNotFound) {
		return apperr.NotFound(MsgSubmissionNotFound)
	}
	return apperr.Internal(fmt.Errorf("%s: %w", op, err))
}
