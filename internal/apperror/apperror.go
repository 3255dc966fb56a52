package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure so the transport layer can map it to a status code.
type Kind string

const (
	KindValidation    Kind = "validation"
	KindUnauthorized  Kind = "unauthorized"
	KindNotFound      Kind = "not_found"
	KindForbidden     Kind = "forbidden"
	KindInvalidState  Kind = "invalid_state"
	KindAlreadyExists Kind = "already_exists"
	KindRateLimited   Kind = "rate_limited"
	KindInternal      Kind = "internal"
)

// Error is a structured failure carrying a kind and a caller-facing message.
type Error struct {
	Kind    Kind
	Message string
	Err     error // underlying cause, never shown to callers
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Validation(message string) *Error    { return New(KindValidation, message) }
func Unauthorized(message string) *Error  { return New(KindUnauthorized, message) }
func NotFound(message string) *Error      { return New(KindNotFound, message) }
func Forbidden(message string) *Error     { return New(KindForbidden, message) }
func InvalidState(message string) *Error  { return New(KindInvalidState, message) }
func AlreadyExists(message string) *Error { return New(KindAlreadyExists, message) }
func RateLimited(message string) *Error   { return New(KindRateLimited, message) }

// Internal wraps an infrastructure failure. The message is what callers see.
func Internal(err error, message string) *Error {
	return &Error{Kind: KindInternal, Message: message, Err: err}
}

// KindOf returns the kind of err, or KindInternal for anything unclassified.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Kind == kind
}

// StatusCode maps a kind to its HTTP status.
func StatusCode(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindInvalidState, KindAlreadyExists:
		return http.StatusConflict
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
