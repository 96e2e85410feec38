// Package apperr defines the gateway's closed error taxonomy. Every failure
// a caller can observe is one of these kinds, carrying a stable HTTP status
// and a human-readable message. Handlers propagate *Error values explicitly
// instead of mapping ad-hoc error strings at each call site.
package apperr

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Kind identifies a failure class.
type Kind int

const (
	// Unauthorized means the credential is missing or invalid.
	Unauthorized Kind = iota
	// Forbidden means the identity is valid but not allowed (banned, or
	// identity verification required).
	Forbidden
	// BadRequest covers malformed input, missing required parameters,
	// oversized payloads, and missing IP attribution outside development.
	BadRequest
	// TooManyRequests means the rate limit was exceeded.
	TooManyRequests
	// UpstreamFailure is a non-timeout upstream transport error.
	UpstreamFailure
	// Timeout means the upstream call exceeded its deadline.
	Timeout
	// Internal is anything unexpected, including storage failures. Details
	// are never leaked to the caller.
	Internal
)

// Error is a tagged failure with a stable status and message.
type Error struct {
	Kind    Kind
	Message string
}

// New creates an Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func (e *Error) Error() string {
	return e.Message
}

// Status maps the kind to its HTTP status code.
func (e *Error) Status() int {
	switch e.Kind {
	case Unauthorized:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case BadRequest:
		return http.StatusBadRequest
	case TooManyRequests:
		return http.StatusTooManyRequests
	case UpstreamFailure:
		return http.StatusBadGateway
	case Timeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// From converts an arbitrary error into an *Error. Known taxonomy errors pass
// through; everything else becomes Internal with a generic message so internal
// details never reach the caller.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return &Error{Kind: Internal, Message: "Internal server error"}
}

type envelope struct {
	Error detail `json:"error"`
}

type detail struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Write renders err as the standard JSON error envelope.
func Write(w http.ResponseWriter, err error) {
	appErr := From(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.Status())
	json.NewEncoder(w).Encode(envelope{Error: detail{
		Code:    appErr.Status(),
		Message: appErr.Message,
	}})
}
