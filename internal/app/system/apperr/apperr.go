// Package apperr defines the storefront error taxonomy and its HTTP mapping.
//
// Operations return errors that wrap one of the sentinel kinds below, so
// callers can branch with errors.Is and handlers can pick a status with
// Status. Messages on *Error are safe to show to clients; causes are not.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds.
var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrNotFound         = errors.New("not found")
	ErrIntegrity        = errors.New("integrity violation")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrForbidden        = errors.New("forbidden")
	ErrInvalidCode      = errors.New("invalid verification code")
	ErrCodeExpired      = errors.New("verification code expired")
	ErrInvalidSignature = errors.New("invalid payment signature")
	ErrRateLimited      = errors.New("too many requests")
	ErrInternal         = errors.New("internal error")
)

// Error carries an error kind, a client-facing message, and an optional cause.
type Error struct {
	Op      string // operation that failed, e.g. "sections.Delete"
	Kind    error  // one of the Err* kinds
	Message string // client-facing message
	Err     error  // underlying cause, never shown to clients
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Kind != nil {
		msg = e.Kind.Error()
	}
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, msg, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, msg)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	var errs []error
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// New returns an error of the given kind with a client-facing message.
func New(op string, kind error, format string, args ...any) *Error {
	return &Error{Op: op, Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Invalid reports malformed or missing input.
func Invalid(op, format string, args ...any) *Error {
	return New(op, ErrInvalidInput, format, args...)
}

// NotFound reports a missing entity, e.g. NotFound(op, "section").
func NotFound(op, what string) *Error {
	return New(op, ErrNotFound, "%s not found", what)
}

// Integrity reports a violated referential or hierarchy rule.
func Integrity(op, format string, args ...any) *Error {
	return New(op, ErrIntegrity, format, args...)
}

// Internal wraps an unexpected failure. The cause is logged, never returned to clients.
func Internal(op string, err error) *Error {
	return &Error{Op: op, Kind: ErrInternal, Err: err}
}

// Status maps an error to its HTTP status code.
func Status(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrIntegrity),
		errors.Is(err, ErrInvalidCode),
		errors.Is(err, ErrCodeExpired),
		errors.Is(err, ErrInvalidSignature):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}

// Message returns the client-facing message for err.
// Internal and unclassified errors collapse to a generic message.
func Message(err error) string {
	if Status(err) == http.StatusInternalServerError {
		return "internal error"
	}
	var ae *Error
	if errors.As(err, &ae) && ae.Message != "" {
		return ae.Message
	}
	for _, kind := range []error{
		ErrInvalidInput, ErrNotFound, ErrIntegrity, ErrUnauthorized, ErrForbidden,
		ErrInvalidCode, ErrCodeExpired, ErrInvalidSignature, ErrRateLimited,
	} {
		if errors.Is(err, kind) {
			return kind.Error()
		}
	}
	return "internal error"
}

// IsNotFound checks if an error represents a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
