package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/attec/attec-api/internal/apperr"
	"github.com/attec/attec-api/internal/auth"
	"github.com/attec/attec-api/internal/handler/dto"
	"github.com/attec/attec-api/internal/model"
	"github.com/attec/attec-api/internal/service"
)

// ContactService is the business logic behind the contact endpoints.
type ContactService interface {
	Submit(ctx context.Context, in service.SubmitInput) (*model.ContactSubmission, error)
	List(ctx context.Context, in service.ListInput) (*service.ListOutput, error)
	Get(ctx context.Context, id string) (*model.ContactSubmission, error)
	Update(ctx context.Context, id string, update model.ContactUpdate) (*model.ContactSubmission, error)
}

// ContactHandler handles HTTP requests for contact submissions.
type ContactHandler struct {
	svc    ContactService
	logger *slog.Logger
}

// NewContactHandler creates a new ContactHandler.
func NewContactHandler(svc ContactService, logger *slog.Logger) *ContactHandler {
	return &ContactHandler{
		svc:    svc,
		logger: logger.With("component", "handler.contact"),
	}
}

// Submit handles POST /api/v1/contact.
func (h *ContactHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req dto.ContactRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := validationError(req.Validate()); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	sub, err := h.svc.Submit(r.Context(), service.SubmitInput{
		Name:      req.Name,
		Email:     req.Email,
		Company:   req.CompanyValue(),
		Message:   req.Message,
		IPAddress: clientIP(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.ContactCreatedResponse{
		Success:      true,
		Message:      dto.ContactSubmittedMessage,
		SubmissionID: sub.ID,
	})
}

// List handles GET /api/v1/contact/submissions.
func (h *ContactHandler) List(w http.ResponseWriter, r *http.Request) {
	in, err := parseListQuery(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	out, err := h.svc.List(r.Context(), in)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, out)
}

// Get handles GET /api/v1/contact/submissions/{id}.
func (h *ContactHandler) Get(w http.ResponseWriter, r *http.Request) {
	sub, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

// Update handles PATCH /api/v1/contact/submissions/{id}.
func (h *ContactHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateContactRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	update, fields := req.ToUpdate()
	if err := validationError(fields); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	sub, err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), update)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.logger.InfoContext(r.Context(), "submission updated",
		slog.String("submission_id", sub.ID),
		slog.String("status", string(sub.Status)),
		slog.String("updated_by", auth.UserIDFromContext(r.Context())),
	)
	writeJSON(w, http.StatusOK, sub)
}

// parseListQuery reads skip, limit and status. status may repeat or hold a
// comma-separated list; status_filter is accepted as an alias.
func parseListQuery(r *http.Request) (service.ListInput, error) {
	q := r.URL.Query()
	fields := dto.Fields{}
	var in service.ListInput

	parseInt := func(name string, dst *int) {
		raw := q.Get(name)
		if raw == "" {
			return
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			fields[name] = "must be an integer"
			return
		}
		*dst = n
	}
	parseInt("skip", &in.Skip)
	parseInt("limit", &in.Limit)

	raw := append(q["status"], q["status_filter"]...)
	for _, v := range raw {
		for _, s := range strings.Split(v, ",") {
			s = strings.ToLower(strings.TrimSpace(s))
			if s == "" {
				continue
			}
			in.Statuses = append(in.Statuses, model.ContactStatus(s))
		}
	}

	if len(fields) > 0 {
		return in, apperr.Validation("Invalid query parameters", fields)
	}
	return in, nil
}
