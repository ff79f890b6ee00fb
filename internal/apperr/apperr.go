// Package apperr defines the machine-readable error kinds surfaced to callers.
package apperr

import (
	"errors"
	"net/http"
)

// Kind is a stable, machine-readable error category.
type Kind string

const (
	// Unauthorized means the caller's identity could not be resolved.
	Unauthorized Kind = "UNAUTHORIZED"
	// Forbidden means the resolved identity does not own the referenced resource.
	Forbidden Kind = "FORBIDDEN"
	// InvalidInput covers missing or malformed request data.
	InvalidInput Kind = "INVALID_INPUT"
	// NotFound means the referenced session does not exist.
	NotFound Kind = "NOT_FOUND"
	// InvalidState means the operation is not allowed in the session's current state.
	InvalidState Kind = "INVALID_STATE"
	// ConflictingUpdate means a concurrent write was detected; safe to retry.
	ConflictingUpdate Kind = "CONFLICTING_UPDATE"
	// DependencyFailure means a collaborator was unreachable or failed unexpectedly.
	DependencyFailure Kind = "DEPENDENCY_FAILURE"
)

// HTTPStatus maps a kind to the status code used by the HTTP adapter.
func (k Kind) HTTPStatus() int {
	switch k {
	case Unauthorized:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case InvalidInput:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	case InvalidState, ConflictingUpdate:
		return http.StatusConflict
	default:
		return http.StatusServiceUnavailable
	}
}

// Error is the application error type carried across package boundaries.
type Error struct {
	Kind    Kind
	Message string // human-readable, safe to show to the caller
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

// New creates an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an error of the given kind around an underlying cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf extracts the kind from err. Errors that are not *Error are treated
// as dependency failures so they are never mistaken for caller mistakes.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return DependencyFailure
}

// MessageOf returns the caller-facing message for err.
func MessageOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "internal error"
}

// Retryable reports whether the operation that produced err can be retried
// without side effects.
func Retryable(err error) bool {
	return KindOf(err) == ConflictingUpdate
}
