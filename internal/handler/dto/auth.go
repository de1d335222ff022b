package dto

import (
	"strings"
	"time"

	"github.com/attec/attec-api/internal/model"
)

// LoginRequest represents the request body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks required fields. Credential checks happen later.
func (r *LoginRequest) Validate() Fields {
	f := Fields{}
	r.Email = strings.TrimSpace(r.Email)
	if r.Email == "" {
		f["email"] = "is required"
	}
	if r.Password == "" {
		f["password"] = "is required"
	}
	return f.Err()
}

// TokenResponse is returned by a successful login.
type TokenResponse struct {
	AccessToken string             `json:"access_token"`
	TokenType   string             `json:"token_type"`
	ExpiresAt   time.Time          `json:"expires_at"`
	User        model.UserResponse `json:"user"`
}
