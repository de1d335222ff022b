package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/attec/attec-api/internal/apperr"
	"github.com/attec/attec-api/internal/handler/dto"
	"github.com/attec/attec-api/internal/model"
	"github.com/attec/attec-api/internal/service"
)

// AnalyticsService is the business logic behind the analytics endpoints.
type AnalyticsService interface {
	Track(ctx context.Context, in service.TrackInput) (*model.AnalyticsEvent, error)
	Summary(ctx context.Context, start, end *time.Time) (*model.AnalyticsSummary, error)
}

// AnalyticsHandler handles analytics API requests.
type AnalyticsHandler struct {
	svc    AnalyticsService
	logger *slog.Logger
}

// NewAnalyticsHandler creates a new AnalyticsHandler.
func NewAnalyticsHandler(svc AnalyticsService, logger *slog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		svc:    svc,
		logger: logger.With("component", "handler.analytics"),
	}
}

// Track handles POST /api/v1/analytics/event.
// Malformed input is rejected; storage failures are not, so tracking never
// breaks the page that sent it.
func (h *AnalyticsHandler) Track(w http.ResponseWriter, r *http.Request) {
	var req dto.EventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := validationError(req.Validate()); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	referrer := r.Referer()
	if referrer == "" {
		referrer = req.Referrer
	}

	_, err := h.svc.Track(r.Context(), service.TrackInput{
		EventType: req.EventType,
		EventData: req.EventData,
		SessionID: req.SessionID,
		Referrer:  referrer,
		IPAddress: clientIP(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		writeMessage(w, http.StatusCreated, false, dto.EventFailedMessage)
		return
	}

	writeMessage(w, http.StatusCreated, true, dto.EventTrackedMessage)
}

// Summary handles GET /api/v1/analytics/summary.
func (h *AnalyticsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	fields := dto.Fields{}
	start := parseDate(r, "start_date", fields)
	end := parseDate(r, "end_date", fields)
	if len(fields) > 0 {
		writeError(w, r, h.logger, apperr.Validation("Invalid query parameters", fields))
		return
	}

	summary, err := h.svc.Summary(r.Context(), start, end)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// parseDate reads a YYYY-MM-DD query parameter. Absent means nil.
func parseDate(r *http.Request, name string, fields dto.Fields) *time.Time {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil
	}
	t, err := time.Parse(service.DateLayout, raw)
	if err != nil {
		fields[name] = "must be a date in YYYY-MM-DD format"
		return nil
	}
	return &t
}
