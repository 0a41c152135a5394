package errors

import (
	"errors"
	"fmt"
)

// Kind identifies the category of a failure returned by the notes core.
// Callers branch on the kind; the message is for humans.
type Kind string

const (
	KindAuthentication   Kind = "authentication_error"
	KindUnauthorized     Kind = "unauthorized"
	KindInsufficientRole Kind = "insufficient_role"
	KindAccessDenied     Kind = "access_denied"
	KindNotFound         Kind = "not_found"
	KindQuotaExceeded    Kind = "quota_exceeded"
	KindValidation       Kind = "validation_error"
	KindInternal         Kind = "internal"
)

// Error is a typed failure carrying a stable Kind and a descriptive message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrNotFound) holds
// regardless of the message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels, one per kind
var (
	ErrAuthentication   = &Error{Kind: KindAuthentication, Message: "invalid credentials"}
	ErrUnauthorized     = &Error{Kind: KindUnauthorized, Message: "no active session"}
	ErrInsufficientRole = &Error{Kind: KindInsufficientRole, Message: "admin role required"}
	ErrAccessDenied     = &Error{Kind: KindAccessDenied, Message: "access denied"}
	ErrNotFound         = &Error{Kind: KindNotFound, Message: "not found"}
	ErrQuotaExceeded    = &Error{Kind: KindQuotaExceeded, Message: "note limit reached"}
	ErrValidation       = &Error{Kind: KindValidation, Message: "invalid input"}
	ErrInternal         = &Error{Kind: KindInternal, Message: "internal error"}
)

// New creates a typed error with a formatted message
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Internal wraps a store or infrastructure failure.
func Internal(err error, format string, args ...interface{}) *Error {
	return &Error{Kind: KindInternal, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal
// for untyped errors. A nil error has no kind.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf returns the human-readable message of a typed error.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	if err == nil {
		return ""
	}
	return ErrInternal.Message
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
