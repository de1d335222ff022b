package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/attec/attec-api/internal/apperr"
	"github.com/attec/attec-api/internal/model"
	"github.com/attec/attec-api/internal/repository"
)

// Client-facing login failure messages.
const (
	MsgBadCredentials = "Incorrect email or password"
	MsgInactiveUser   = "User account is inactive"
)

// UserStore is the storage collaborator behind the credential store.
// Lookups return repository.ErrUserNotFound when no row matches.
type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	SaveUser(ctx context.Context, user *model.User) error
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
}

// CredentialStore resolves users and checks their passwords.
type CredentialStore struct {
	users     UserStore
	now       func() time.Time
	dummyHash string
}

// NewCredentialStore creates a CredentialStore over users.
func NewCredentialStore(users UserStore) (*CredentialStore, error) {
	// Verified against for unknown emails so they cost the same as known ones.
	dummy, err := HashPassword("attec-dummy-password")
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}
	return &CredentialStore{users: users, now: time.Now, dummyHash: dummy}, nil
}

// FindByEmail looks a user up by email, case-insensitively.
func (s *CredentialStore) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.users.GetUserByEmail(ctx, model.NormalizeEmail(email))
}

// FindByID looks a user up by id.
func (s *CredentialStore) FindByID(ctx context.Context, id string) (*model.User, error) {
	return s.users.GetUserByID(ctx, id)
}

// Save persists changes to user.
func (s *CredentialStore) Save(ctx context.Context, user *model.User) error {
	user.UpdatedAt = s.now().UTC()
	return s.users.SaveUser(ctx, user)
}

// Authenticate checks email and password.
// Unknown email and wrong password produce the same Unauthenticated error;
// an inactive account produces Forbidden once the password has matched.
func (s *CredentialStore) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	user, err := s.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			_, _ = VerifyPassword(password, s.dummyHash)
			return nil, apperr.Unauthenticated(MsgBadCredentials)
		}
		return nil, apperr.Internal(fmt.Errorf("find user by email: %w", err))
	}

	ok, err := VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("verify password for user %s: %w", user.ID, err))
	}
	if !ok {
		return nil, apperr.Unauthenticated(MsgBadCredentials)
	}

	if !user.Active {
		return nil, apperr.Forbidden(MsgInactiveUser)
	}

	return user, nil
}

// RecordLogin stamps the user's last-login time. Only that column is
// written; the rest of user may be stale.
func (s *CredentialStore) RecordLogin(ctx context.Context, user *model.User) error {
	now := s.now().UTC()
	if err := s.users.TouchLastLogin(ctx, user.ID, now); err != nil {
		return fmt.Errorf("record login: %w", err)
	}
	user.LastLogin = &now
	user.UpdatedAt = now
	return nil
}
