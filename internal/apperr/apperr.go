package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation      Kind = "validation"
	KindAuth            Kind = "auth"
	KindForbidden       Kind = "forbidden"
	KindNotFound        Kind = "not_found"
	KindConflict        Kind = "conflict"
	KindExternalService Kind = "external_service"
	KindInternal        Kind = "internal"
)

// Error carries a user-facing message and the kind used to pick a response status.
// Cause is kept for logs only.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error of the same kind, so errors.Is(err, apperr.Conflict("")) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func Validation(message string) *Error { return New(KindValidation, message) }
func Auth(message string) *Error       { return New(KindAuth, message) }
func Forbidden(message string) *Error  { return New(KindForbidden, message) }
func NotFound(message string) *Error   { return New(KindNotFound, message) }
func Conflict(message string) *Error   { return New(KindConflict, message) }

func External(message string, cause error) *Error {
	return Wrap(KindExternalService, message, cause)
}

func Internal(message string, cause error) *Error {
	return Wrap(KindInternal, message, cause)
}

// KindOf reports the kind of the first *Error in the chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf returns the user-facing message of err. Errors outside the taxonomy
// never leak their text.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return "Internal server error"
}
