package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/attec/attec-api/internal/apperr"
	"github.com/attec/attec-api/internal/metrics"
	"github.com/attec/attec-api/internal/model"
)

// Authenticator checks credentials and records logins.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (*model.User, error)
	RecordLogin(ctx context.Context, user *model.User) error
}

// TokenIssuer issues access tokens for a subject.
type TokenIssuer interface {
	Issue(subject string) (string, time.Time, error)
}

// LoginResult is the outcome of a successful login.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *model.User
}

// AuthService handles login.
type AuthService struct {
	creds   Authenticator
	tokens  TokenIssuer
	logger  *slog.Logger
	metrics metrics.Recorder
}

// NewAuthService creates a new AuthService.
func NewAuthService(creds Authenticator, tokens TokenIssuer, logger *slog.Logger, recorder metrics.Recorder) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &AuthService{
		creds:   creds,
		tokens:  tokens,
		logger:  logger.With("component", "auth"),
		metrics: recorder,
	}
}

// Login verifies email and password and issues a token for the user.
// Errors are already classified for the client.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.creds.Authenticate(ctx, email, password)
	if err != nil {
		s.metrics.IncLogin(metrics.StatusFailed)
		if !apperr.Is(err, apperr.KindInternal) {
			s.logger.InfoContext(ctx, "login rejected", "kind", apperr.KindOf(err).String())
		}
		return nil, err
	}

	token, expiresAt, err := s.tokens.Issue(user.ID)
	if err != nil {
		s.metrics.IncLogin(metrics.StatusFailed)
		return nil, apperr.Internal(err)
	}

	BestEffort(ctx, s.logger, "record_login", func(ctx context.Context) error {
		return s.creds.RecordLogin(ctx, user)
	})

	s.metrics.IncLogin(metrics.StatusSuccess)
	s.logger.InfoContext(ctx, "user logged in", "user_id", user.ID, "role", user.Role.String())

	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}
