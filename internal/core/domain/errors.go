package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every error leaving the core wraps exactly one of these, so
// callers classify with errors.Is and never see raw driver or library errors.
var (
	ErrValidation   = errors.New("validation error")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrInternal     = errors.New("internal error")
)

// Error carries a kind, a caller-safe message and an optional internal cause.
// The cause is for logs only; it must never be rendered to a client.
type Error struct {
	Kind    error
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Kind, e.Cause}
	}
	return []error{e.Kind}
}

func Validation(msg string) error   { return &Error{Kind: ErrValidation, Message: msg} }
func Conflict(msg string) error     { return &Error{Kind: ErrConflict, Message: msg} }
func Unauthorized(msg string) error { return &Error{Kind: ErrUnauthorized, Message: msg} }
func Forbidden(msg string) error    { return &Error{Kind: ErrForbidden, Message: msg} }
func NotFound(msg string) error     { return &Error{Kind: ErrNotFound, Message: msg} }

// Internal wraps a lower-layer failure. op names the failing step and ends up
// in logs, not in responses.
func Internal(op string, cause error) error {
	return &Error{Kind: ErrInternal, Message: op, Cause: cause}
}

// Message returns the caller-safe message of err. Anything that is not a
// *Error is reported as a generic internal failure.
func Message(err error) string {
	var de *Error
	if errors.As(err, &de) {
		if errors.Is(de.Kind, ErrInternal) {
			return "internal server error"
		}
		return de.Message
	}
	return "internal server error"
}

// KindOf returns the kind sentinel err belongs to, defaulting to ErrInternal.
func KindOf(err error) error {
	for _, kind := range []error{ErrValidation, ErrConflict, ErrUnauthorized, ErrForbidden, ErrNotFound} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return ErrInternal
}

// UnauthorizedCause is Unauthorized with an internal cause kept for logging.
func UnauthorizedCause(msg string, cause error) error {
	return &Error{Kind: ErrUnauthorized, Message: msg, Cause: cause}
}
