package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
)

func TestRequestID(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
		reuse    bool
	}{
		{"generated when absent", "", false},
		{"client id reused", "req-123", true},
		{"oversized id replaced", strings.Repeat("x", maxRequestIDLen+1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = GetRequestID(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.incoming != "" {
				req.Header.Set(RequestIDHeader, tt.incoming)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if seen == "" {
				t.Fatal("request id missing from context")
			}
			if got := rec.Header().Get(RequestIDHeader); got != seen {
				t.Errorf("header = %q, context = %q", got, seen)
			}
			if tt.reuse && seen != tt.incoming {
				t.Errorf("request id = %q, want %q", seen, tt.incoming)
			}
			if !tt.reuse && seen == tt.incoming {
				t.Errorf("request id %q should have been regenerated", seen)
			}
		})
	}
}

func TestProcessTime(t *testing.T) {
	handler := ProcessTime(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))

	got := rec.Header().Get(ProcessTimeHeader)
	if got == "" {
		t.Fatal("X-Process-Time not set")
	}
	if v, err := strconv.ParseFloat(got, 64); err != nil || v < 0 {
		t.Errorf("X-Process-Time = %q, want non-negative seconds", got)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201", rec.Code)
	}
}
