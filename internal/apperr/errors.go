// Package apperr defines the typed errors returned by the rental core.
// Every error carries a stable machine-readable Kind plus a human-readable
// message. Handlers translate the Kind into a transport status code; the
// core never decides HTTP semantics itself.
package apperr

import (
	"errors"
	"fmt"
)

// Kind is the machine-readable category of an Error.
type Kind string

const (
	KindValidation    Kind = "validation_error"
	KindInvalidState  Kind = "invalid_state"
	KindAuthorization Kind = "authorization_error"
	KindNotFound      Kind = "not_found"
	KindConflict      Kind = "conflict"
	KindInternal      Kind = "internal_error"
)

// Error is the concrete error type used across the core.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message != "" {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same Kind. This lets callers
// write errors.Is(err, apperr.ErrConflict) regardless of the message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is comparisons.
var (
	ErrValidation    = &Error{Kind: KindValidation}
	ErrInvalidState  = &Error{Kind: KindInvalidState}
	ErrAuthorization = &Error{Kind: KindAuthorization}
	ErrNotFound      = &Error{Kind: KindNotFound}
	ErrConflict      = &Error{Kind: KindConflict}
	ErrInternal      = &Error{Kind: KindInternal}
)

func newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) *Error { return newf(KindValidation, format, args...) }

func InvalidState(format string, args ...any) *Error { return newf(KindInvalidState, format, args...) }

func Authorization(format string, args ...any) *Error {
	return newf(KindAuthorization, format, args...)
}

func NotFound(format string, args ...any) *Error { return newf(KindNotFound, format, args...) }

func Conflict(format string, args ...any) *Error { return newf(KindConflict, format, args...) }

func Internal(format string, args ...any) *Error { return newf(KindInternal, format, args...) }

// Wrap attaches a kind and message to an underlying cause. If err is already
// an *Error it is returned unchanged so the original kind survives layering.
func Wrap(err error, kind Kind, format string, args ...any) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return err
	}
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the Kind of err. Errors that are not *Error (or do not wrap
// one) are reported as KindInternal.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// MessageOf returns the human-readable message of err. Untyped errors get a
// generic message so internals are not leaked to callers.
func MessageOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) && ae.Message != "" {
		return ae.Message
	}
	return "internal server error"
}
