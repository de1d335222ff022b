// Package apperr defines the error taxonomy shared by the request pipeline
// and its mapping onto HTTP responses.
package apperr

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Kind classifies an error for the purpose of building a response.
type Kind int

// Error kinds. The zero value is KindInternal so that an unclassified error
// is never mistaken for a client error.
const (
	KindInternal Kind = iota
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindRateLimited
	KindValidation
	KindPayloadTooLarge
	KindMethodNotAllowed
)

// InternalMessage is the only message ever sent for KindInternal.
const InternalMessage = "An unexpected error occurred"

type kindInfo struct {
	status int
	code   string
	name   string
}

var kinds = map[Kind]kindInfo{
	KindInternal:         {http.StatusInternalServerError, "INTERNAL_ERROR", "internal"},
	KindUnauthenticated:  {http.StatusUnauthorized, "UNAUTHENTICATED", "unauthenticated"},
	KindForbidden:        {http.StatusForbidden, "FORBIDDEN", "forbidden"},
	KindNotFound:         {http.StatusNotFound, "NOT_FOUND", "not_found"},
	KindRateLimited:      {http.StatusTooManyRequests, "RATE_LIMITED", "rate_limited"},
	KindValidation:       {http.StatusUnprocessableEntity, "VALIDATION_ERROR", "validation"},
	KindPayloadTooLarge:  {http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "payload_too_large"},
	KindMethodNotAllowed: {http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method_not_allowed"},
}

func (k Kind) info() kindInfo {
	if info, ok := kinds[k]; ok {
		return info
	}
	return kinds[KindInternal]
}

// Status returns the HTTP status code for the kind.
func (k Kind) Status() int { return k.info().status }

// Code returns the machine-readable error code for the kind.
func (k Kind) Code() string { return k.info().code }

func (k Kind) String() string { return k.info().name }

// Error is a classified application error.
// Message is safe to show to clients; Err is the internal cause and is only
// ever logged.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Kind.String() + ": " + e.Message + ": " + e.Err.Error()
	}
	return e.Kind.String() + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New creates an Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an Error of the given kind with an internal cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Unauthenticated reports a missing or unusable credential.
func Unauthenticated(message string) *Error { return New(KindUnauthenticated, message) }

// Forbidden reports an authenticated caller that may not proceed.
func Forbidden(message string) *Error { return New(KindForbidden, message) }

// NotFound reports an absent resource.
func NotFound(message string) *Error { return New(KindNotFound, message) }

// RateLimited reports an exhausted rate-limit window.
func RateLimited(message string) *Error { return New(KindRateLimited, message) }

// Validation reports malformed input. fields may be nil.
func Validation(message string, fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: message, Fields: fields}
}

// Internal wraps an unanticipated failure.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: InternalMessage, Err: err}
}

// From classifies err. Errors that are not *Error become KindInternal.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}

// KindOf returns the kind of err, KindInternal for unclassified errors.
func KindOf(err error) Kind {
	return From(err).Kind
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// ErrorBody is the "error" member of an error response.
type ErrorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// ErrorResponse is the uniform error response shape.
type ErrorResponse struct {
	Success bool      `json:"success"`
	Error   ErrorBody `json:"error"`
}

// Response builds the client-facing body for err.
func Response(err error) ErrorResponse {
	appErr := From(err)
	message := appErr.Message
	if appErr.Kind == KindInternal || message == "" {
		message = defaultMessage(appErr.Kind)
	}

	body := ErrorBody{
		Code:    appErr.Kind.Code(),
		Message: message,
	}
	if appErr.Kind == KindValidation && len(appErr.Fields) > 0 {
		body.Fields = appErr.Fields
	}

	return ErrorResponse{Success: false, Error: body}
}

// Write writes err as a uniform JSON error response.
// Internal detail never reaches the client; callers log it beforehand.
func Write(w http.ResponseWriter, err error) {
	kind := KindOf(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(kind.Status())
	_ = json.NewEncoder(w).Encode(Response(err))
}

func defaultMessage(kind Kind) string {
	switch kind {
	case KindUnauthenticated:
		return "Could not validate credentials"
	case KindForbidden:
		return "Not enough permissions"
	case KindNotFound:
		return "Resource not found"
	case KindRateLimited:
		return "Rate limit exceeded"
	case KindValidation:
		return "Invalid request"
	case KindPayloadTooLarge:
		return "Request body too large"
	case KindMethodNotAllowed:
		return "Method not allowed"
	default:
		return InternalMessage
	}
}
