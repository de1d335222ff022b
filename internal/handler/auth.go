package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/attec/attec-api/internal/auth"
	"github.com/attec/attec-api/internal/handler/dto"
	"github.com/attec/attec-api/internal/service"
)

// MsgLoggedOut is returned by POST /auth/logout.
const MsgLoggedOut = "Logged out successfully"

// LoginService logs users in.
type LoginService interface {
	Login(ctx context.Context, email, password string) (*service.LoginResult, error)
}

// AuthHandler handles login, logout and profile requests.
type AuthHandler struct {
	svc    LoginService
	logger *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(svc LoginService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		svc:    svc,
		logger: logger.With("component", "handler.auth"),
	}
}

// Login handles POST /api/v1/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := validationError(req.Validate()); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	res, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.TokenResponse{
		AccessToken: res.Token,
		TokenType:   "bearer",
		ExpiresAt:   res.ExpiresAt,
		User:        res.User.ToResponse(),
	})
}

// Logout handles POST /api/v1/auth/logout. Tokens are stateless; the
// client discards its copy.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	writeMessage(w, http.StatusOK, true, MsgLoggedOut)
}

// Me handles GET /api/v1/auth/me. It is mounted behind Authenticate.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, auth.MustUserFromContext(r.Context()).ToResponse())
}
