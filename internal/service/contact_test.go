package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attec/attec-api/internal/apperr"
	"github.com/attec/attec-api/internal/metrics"
	"github.com/attec/attec-api/internal/model"
	"github.com/attec/attec-api/internal/notify"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitNotifications(t *testing.T, s *ContactService) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Wait(ctx))
}

func TestContactSubmit_StoresAndNotifies(t *testing.T) {
	store := newMemSubmissions()
	notifier := &recordingNotifier{}
	rec := metrics.NewInMemory()
	svc := NewContactService(store, notifier, quietLogger(), rec)

	sub, err := svc.Submit(context.Background(), SubmitInput{
		Name:      " Jane Doe ",
		Email:     "jane@x.com",
		Message:   "Interested in your services",
		IPAddress: "198.51.100.7",
	})
	require.NoError(t, err)
	waitNotifications(t, svc)

	assert.NotEmpty(t, sub.ID)
	assert.Equal(t, "Jane Doe", sub.Name)
	assert.Equal(t, model.ContactStatusNew, sub.Status)
	assert.Nil(t, sub.Company)

	stored, err := store.GetSubmission(context.Background(), sub.ID)
	require.NoError(t, err)
	assert.Equal(t, "198.51.100.7", stored.IPAddress)

	require.Len(t, notifier.leads, 1)
	assert.Equal(t, notify.CompanyNotProvided, notifier.leads[0].Company)
	assert.Equal(t, sub.ID, notifier.leads[0].SubmissionID)
	assert.Equal(t, []string{"jane@x.com"}, notifier.replies)

	snap := rec.Snapshot()
	assert.Equal(t, uint64(1), snap.Submissions)
	assert.Equal(t, uint64(1), snap.Notifications["lead/success"])
	assert.Equal(t, uint64(1), snap.Notifications["auto_reply/success"])
}

func TestContactSubmit_NotifierFailureDoesNotFail(t *testing.T) {
	notifier := &recordingNotifier{err: errors.New("smtp down")}
	rec := metrics.NewInMemory()
	svc := NewContactService(newMemSubmissions(), notifier, quietLogger(), rec)

	company := "ACME"
	sub, err := svc.Submit(context.Background(), SubmitInput{Name: "Jane", Email: "jane@x.com", Company: company, Message: "hello there friends"})
	require.NoError(t, err)
	require.NotNil(t, sub.Company)
	waitNotifications(t, svc)

	assert.Equal(t, "ACME", notifier.leads[0].Company)
	snap := rec.Snapshot()
	assert.Equal(t, uint64(1), snap.Notifications["lead/failed"])
	assert.Equal(t, uint64(1), snap.Notifications["auto_reply/failed"])
}

func TestContactSubmit_ReturnsBeforeNotificationCompletes(t *testing.T) {
	notifier := &recordingNotifier{block: make(chan struct{})}
	svc := NewContactService(newMemSubmissions(), notifier, quietLogger(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	_, err := svc.Submit(ctx, SubmitInput{Name: "Jane", Email: "jane@x.com", Message: "hello there friends"})
	require.NoError(t, err)
	// Request context ends before the notifier is released.
	cancel()

	short, stop := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer stop()
	assert.ErrorIs(t, svc.Wait(short), context.DeadlineExceeded)

	close(notifier.block)
	waitNotifications(t, svc)
	assert.Len(t, notifier.leads, 1)
}

func TestContactSubmit_NotifyTimeout(t *testing.T) {
	notifier := &recordingNotifier{block: make(chan struct{})}
	rec := metrics.NewInMemory()
	svc := NewContactService(newMemSubmissions(), notifier, quietLogger(), rec, WithNotifyTimeout(10*time.Millisecond))

	_, err := svc.Submit(context.Background(), SubmitInput{Name: "Jane", Email: "jane@x.com", Message: "hello there friends"})
	require.NoError(t, err)
	waitNotifications(t, svc)

	assert.Equal(t, uint64(1), rec.Snapshot().Notifications["lead/failed"])
}

func TestContactSubmit_StorageFailure(t *testing.T) {
	store := newMemSubmissions()
	store.createErr = errStorage
	notifier := &recordingNotifier{}
	svc := NewContactService(store, notifier, quietLogger(), nil)

	_, err := svc.Submit(context.Background(), SubmitInput{Name: "Jane", Email: "jane@x.com", Message: "hello there friends"})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindInternal))
	assert.ErrorIs(t, err, errStorage)

	waitNotifications(t, svc)
	assert.Empty(t, notifier.leads)
}

func TestContactList(t *testing.T) {
	store := newMemSubmissions()
	svc := NewContactService(store, &recordingNotifier{}, quietLogger(), nil)
	for range 3 {
		_, err := svc.Submit(context.Background(), SubmitInput{Name: "Jane", Email: "jane@x.com", Message: "hello there friends"})
		require.NoError(t, err)
	}
	waitNotifications(t, svc)

	out, err := svc.List(context.Background(), ListInput{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), out.Total)
	assert.Equal(t, DefaultListLimit, out.Limit)
	assert.Len(t, out.Items, 3)

	out, err = svc.List(context.Background(), ListInput{Skip: 1, Limit: 1, Statuses: []model.ContactStatus{model.ContactStatusNew}})
	require.NoError(t, err)
	assert.Equal(t, int64(3), out.Total)
	assert.Len(t, out.Items, 1)
	assert.Equal(t, 1, store.lastList.Skip)

	tests := []struct {
		name  string
		in    ListInput
		field string
	}{
		{"negative skip", ListInput{Skip: -1}, "skip"},
		{"limit too large", ListInput{Limit: MaxListLimit + 1}, "limit"},
		{"negative limit", ListInput{Limit: -5}, "limit"},
		{"unknown status", ListInput{Statuses: []model.ContactStatus{"lost"}}, "status"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.List(context.Background(), tt.in)
			require.Error(t, err)
			appErr := apperr.From(err)
			assert.Equal(t, apperr.KindValidation, appErr.Kind)
			assert.Contains(t, appErr.Fields, tt.field)
		})
	}
}

func TestContactGetAndUpdate(t *testing.T) {
	svc := NewContactService(newMemSubmissions(), &recordingNotifier{}, quietLogger(), nil)
	sub, err := svc.Submit(context.Background(), SubmitInput{Name: "Jane", Email: "jane@x.com", Message: "hello there friends"})
	require.NoError(t, err)
	waitNotifications(t, svc)

	got, err := svc.Get(context.Background(), sub.ID)
	require.NoError(t, err)
	assert.Equal(t, sub.ID, got.ID)

	_, err = svc.Get(context.Background(), "missing")
	require.Error(t, err)
	appErr := apperr.From(err)
	assert.Equal(t, apperr.KindNotFound, appErr.Kind)
	assert.Equal(t, MsgSubmissionNotFound, appErr.Message)

	status := model.ContactStatusContacted
	owner := "sales@attec.test"
	updated, err := svc.Update(context.Background(), sub.ID, model.ContactUpdate{Status: &status, AssignedTo: &owner})
	require.NoError(t, err)
	assert.Equal(t, model.ContactStatusContacted, updated.Status)
	assert.Equal(t, owner, *updated.AssignedTo)
	assert.Nil(t, updated.Notes)

	unchanged, err := svc.Update(context.Background(), sub.ID, model.ContactUpdate{})
	require.NoError(t, err)
	assert.Equal(t, model.ContactStatusContacted, unchanged.Status)

	bad := model.ContactStatus("lost")
	_, err = svc.Update(context.Background(), sub.ID, model.ContactUpdate{Status: &bad})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = svc.Update(context.Background(), "missing", model.ContactUpdate{Status: &status})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}
