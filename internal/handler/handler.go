// Package handler provides HTTP request handlers.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"

	"github.com/attec/attec-api/internal/apperr"
	"github.com/attec/attec-api/internal/handler/dto"
	"github.com/attec/attec-api/internal/middleware"
)

// ServiceName is reported by the root and health endpoints.
const ServiceName = "ATTEC API"

// Handler serves the root, fallback and error endpoints.
type Handler struct {
	version string
}

// New creates a new Handler instance.
func New(version string) *Handler {
	return &Handler{version: version}
}

// RootResponse describes the service at GET /.
type RootResponse struct {
	Message string `json:"message"`
	Version string `json:"version"`
	Health  string `json:"health"`
}

// Root handles GET /.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, RootResponse{
		Message: ServiceName,
		Version: h.version,
		Health:  "/health",
	})
}

// NotFound handles 404 responses.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	apperr.Write(w, apperr.NotFound(""))
}

// MethodNotAllowed handles 405 responses.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	apperr.Write(w, apperr.New(apperr.KindMethodNotAllowed, ""))
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeMessage writes the uniform {success, message} body.
func writeMessage(w http.ResponseWriter, status int, success bool, message string) {
	writeJSON(w, status, dto.MessageResponse{Success: success, Message: message})
}

// writeError logs internal failures with their cause and writes the
// uniform error response.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	appErr := apperr.From(err)
	if appErr.Kind == apperr.KindInternal {
		logger.ErrorContext(r.Context(), "request failed",
			slog.String("request_id", middleware.GetRequestID(r.Context())),
			slog.String("endpoint", r.Method+" "+r.URL.Path),
			slog.String("error", appErr.Error()),
		)
	}
	apperr.Write(w, appErr)
}

// decodeJSON decodes the request body into dst. Unknown fields are ignored.
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperr.New(apperr.KindPayloadTooLarge, "")
		}
		if errors.Is(err, io.EOF) {
			return apperr.Validation("Request body is required", nil)
		}
		return apperr.Validation("Invalid request body", nil)
	}
	return nil
}

// validationError turns field messages into a Validation error, or nil.
func validationError(fields dto.Fields) error {
	if len(fields) == 0 {
		return nil
	}
	return apperr.Validation("Invalid request", fields)
}

// clientIP returns the host part of r.RemoteAddr.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
