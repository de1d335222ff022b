package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attec/attec-api/internal/apperr"
	"github.com/attec/attec-api/internal/model"
	"github.com/attec/attec-api/internal/repository"
)

type memUsers struct {
	mu       sync.Mutex
	byID     map[string]*model.User
	touchErr error
	touches  int
}

func newMemUsers(users ...*model.User) *memUsers {
	m := &memUsers{byID: make(map[string]*model.User)}
	for _, u := range users {
		m.byID[u.ID] = u
	}
	return m
}

func (m *memUsers) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *memUsers) GetUserByID(_ context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.byID[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, repository.ErrUserNotFound
}

func (m *memUsers) SaveUser(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[user.ID]; !ok {
		return repository.ErrUserNotFound
	}
	cp := *user
	m.byID[user.ID] = &cp
	return nil
}

func (m *memUsers) TouchLastLogin(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touches++
	if m.touchErr != nil {
		return m.touchErr
	}
	u, ok := m.byID[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.LastLogin = &at
	u.UpdatedAt = at
	return nil
}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	h, err := HashPassword(password)
	require.NoError(t, err)
	return h
}

func TestCredentialStore_Authenticate(t *testing.T) {
	hash := mustHash(t, "correct-password")
	users := newMemUsers(
		&model.User{ID: "u-active", Email: "jane@attec.io", PasswordHash: hash, Role: model.RoleAdmin, Active: true},
		&model.User{ID: "u-inactive", Email: "old@attec.io", PasswordHash: hash, Role: model.RoleEditor, Active: false},
	)
	store, err := NewCredentialStore(users)
	require.NoError(t, err)

	tests := []struct {
		name     string
		email    string
		password string
		wantKind apperr.Kind
		wantMsg  string
		wantID   string
	}{
		{name: "valid", email: "jane@attec.io", password: "correct-password", wantID: "u-active"},
		{name: "email case-insensitive", email: "  JANE@Attec.io", password: "correct-password", wantID: "u-active"},
		{name: "wrong password", email: "jane@attec.io", password: "nope", wantKind: apperr.KindUnauthenticated, wantMsg: MsgBadCredentials},
		{name: "unknown email", email: "ghost@attec.io", password: "correct-password", wantKind: apperr.KindUnauthenticated, wantMsg: MsgBadCredentials},
		{name: "inactive", email: "old@attec.io", password: "correct-password", wantKind: apperr.KindForbidden, wantMsg: MsgInactiveUser},
		{name: "inactive wrong password", email: "old@attec.io", password: "nope", wantKind: apperr.KindUnauthenticated, wantMsg: MsgBadCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := store.Authenticate(context.Background(), tt.email, tt.password)
			if tt.wantMsg == "" {
				require.NoError(t, err)
				assert.Equal(t, tt.wantID, user.ID)
				return
			}
			require.Error(t, err)
			assert.Nil(t, user)
			appErr := apperr.From(err)
			assert.Equal(t, tt.wantKind, appErr.Kind)
			assert.Equal(t, tt.wantMsg, appErr.Message)
		})
	}
}

type failingUsers struct{ memUsers }

func (f *failingUsers) GetUserByEmail(context.Context, string) (*model.User, error) {
	return nil, errors.New("connection reset by peer")
}

func TestCredentialStore_Authenticate_StorageFailure(t *testing.T) {
	store, err := NewCredentialStore(&failingUsers{})
	require.NoError(t, err)

	_, err = store.Authenticate(context.Background(), "jane@attec.io", "pw")
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
}

func TestCredentialStore_Authenticate_CorruptHash(t *testing.T) {
	users := newMemUsers(&model.User{ID: "u1", Email: "a@attec.io", PasswordHash: "plaintext", Active: true})
	store, err := NewCredentialStore(users)
	require.NoError(t, err)

	_, err = store.Authenticate(context.Background(), "a@attec.io", "plaintext")
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
}

func TestCredentialStore_RecordLogin(t *testing.T) {
	users := newMemUsers(&model.User{ID: "u1", Email: "a@attec.io", Active: true})
	store, err := NewCredentialStore(users)
	require.NoError(t, err)

	fixed := time.Date(2026, 6, 1, 8, 30, 0, 0, time.UTC)
	store.now = func() time.Time { return fixed }

	user, err := store.FindByID(context.Background(), "u1")
	require.NoError(t, err)
	require.NoError(t, store.RecordLogin(context.Background(), user))

	saved, err := store.FindByID(context.Background(), "u1")
	require.NoError(t, err)
	require.NotNil(t, saved.LastLogin)
	assert.Equal(t, fixed, *saved.LastLogin)
	assert.Equal(t, fixed, saved.UpdatedAt)

	users.touchErr = errors.New("read-only transaction")
	assert.Error(t, store.RecordLogin(context.Background(), user))
}

func TestCredentialStore_RecordLogin_KeepsConcurrentChanges(t *testing.T) {
	users := newMemUsers(&model.User{ID: "u1", Email: "a@attec.io", Role: model.RoleAdmin, Active: true})
	store, err := NewCredentialStore(users)
	require.NoError(t, err)

	// Copy read at request start, then the account is demoted and disabled.
	stale, err := store.FindByID(context.Background(), "u1")
	require.NoError(t, err)
	users.byID["u1"].Role = model.RoleViewer
	users.byID["u1"].Active = false

	require.NoError(t, store.RecordLogin(context.Background(), stale))

	current, err := store.FindByID(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, model.RoleViewer, current.Role)
	assert.False(t, current.Active)
	assert.NotNil(t, current.LastLogin)
	assert.Equal(t, 1, users.touches)
}

func TestCredentialStore_Save(t *testing.T) {
	users := newMemUsers(&model.User{ID: "u1", Email: "a@attec.io", Role: model.RoleEditor, Active: true})
	store, err := NewCredentialStore(users)
	require.NoError(t, err)
	fixed := time.Date(2026, 6, 2, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return fixed }

	user, err := store.FindByID(context.Background(), "u1")
	require.NoError(t, err)
	user.Active = false
	require.NoError(t, store.Save(context.Background(), user))

	saved, err := store.FindByID(context.Background(), "u1")
	require.NoError(t, err)
	assert.False(t, saved.Active)
	assert.Equal(t, fixed, saved.UpdatedAt)

	err = store.Save(context.Background(), &model.User{ID: "ghost"})
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestCredentialStore_FindByID_NotFound(t *testing.T) {
	store, err := NewCredentialStore(newMemUsers())
	require.NoError(t, err)

	_, err = store.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestUserContext(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, UserFromContext(ctx))
	assert.Empty(t, UserIDFromContext(ctx))
	assert.Panics(t, func() { MustUserFromContext(ctx) })

	u := &model.User{ID: "u1"}
	ctx = ContextWithUser(ctx, u)
	assert.Same(t, u, UserFromContext(ctx))
	assert.Equal(t, "u1", UserIDFromContext(ctx))
}
