package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MinSigningKeyLen is the minimum HS256 signing key length in bytes.
const MinSigningKeyLen = 32

var (
	// ErrInvalidToken is returned for every token that fails validation:
	// malformed, badly signed, signed with another algorithm, or expired.
	ErrInvalidToken = errors.New("invalid token")
	// ErrWeakKey is returned when the signing key is too short.
	ErrWeakKey = fmt.Errorf("signing key must be at least %d bytes", MinSigningKeyLen)
)

// Claims are the validated contents of a token.
type Claims struct {
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenService issues and validates HS256 bearer tokens.
// It is safe for concurrent use.
type TokenService struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// TokenOption configures a TokenService.
type TokenOption func(*TokenService)

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) { s.now = now }
}

// NewTokenService creates a TokenService signing with key.
// Every token it issues expires ttl after issue.
func NewTokenService(key []byte, ttl time.Duration, opts ...TokenOption) (*TokenService, error) {
	if len(key) < MinSigningKeyLen {
		return nil, ErrWeakKey
	}
	if ttl <= 0 {
		return nil, errors.New("token TTL must be positive")
	}

	s := &TokenService{
		key: append([]byte(nil), key...),
		ttl: ttl,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// TTL returns the lifetime of issued tokens.
func (s *TokenService) TTL() time.Duration { return s.ttl }

// Issue signs a token for subject and returns it with its expiry.
func (s *TokenService) Issue(subject string) (string, time.Time, error) {
	if subject == "" {
		return "", time.Time{}, errors.New("token subject must not be empty")
	}

	// NumericDate has second precision; truncate so exp is exactly iat+ttl.
	issuedAt := s.now().UTC().Truncate(time.Second)
	expiresAt := issuedAt.Add(s.ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	})

	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Validate verifies the signature and expiry of tokenString.
// A token is valid up to and including its expiry instant.
func (s *TokenService) Validate(tokenString string) (Claims, error) {
	var rc jwt.RegisteredClaims

	// Time claims are checked below: the library treats now == exp as
	// expired.
	token, err := jwt.ParseWithClaims(tokenString, &rc,
		func(t *jwt.Token) (any, error) { return s.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithStrictDecoding(),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil || !token.Valid {
		return Claims{}, ErrInvalidToken
	}
	if rc.Subject == "" || rc.ExpiresAt == nil || rc.IssuedAt == nil {
		return Claims{}, ErrInvalidToken
	}

	now := s.now()
	if now.After(rc.ExpiresAt.Time) || now.Before(rc.IssuedAt.Time) {
		return Claims{}, ErrInvalidToken
	}
	if rc.NotBefore != nil && now.Before(rc.NotBefore.Time) {
		return Claims{}, ErrInvalidToken
	}

	return Claims{
		Subject:   rc.Subject,
		IssuedAt:  rc.IssuedAt.Time,
		ExpiresAt: rc.ExpiresAt.Time,
	}, nil
}
