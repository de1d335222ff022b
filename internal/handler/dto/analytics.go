package dto

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Event bounds.
const (
	EventTypeMaxLen = 50
	SessionIDMaxLen = 255
	ReferrerMaxLen  = 2048
)

// Analytics track responses.
const (
	EventTrackedMessage = "Event tracked"
	EventFailedMessage  = "Event tracking failed"
)

// EventRequest represents POST /analytics/event.
type EventRequest struct {
	EventType string          `json:"event_type"`
	EventData json.RawMessage `json:"event_data,omitempty"`
	SessionID string          `json:"session_id,omitempty"`
	Referrer  string          `json:"referrer,omitempty"`
}

// Validate trims and checks the event.
func (r *EventRequest) Validate() Fields {
	f := Fields{}
	r.EventType = strings.TrimSpace(r.EventType)
	f.length("event_type", r.EventType, 1, EventTypeMaxLen)
	f.length("session_id", r.SessionID, 0, SessionIDMaxLen)
	f.length("referrer", r.Referrer, 0, ReferrerMaxLen)

	data := bytes.TrimSpace(r.EventData)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		r.EventData = nil
	case data[0] != '{':
		f["event_data"] = "must be an object"
	}
	return f.Err()
}
