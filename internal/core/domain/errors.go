package domain

import (
	"errors"
	"fmt"
)

// ErrorKind is the closed set of failure classes surfaced to callers.
// Transport layers map a kind to a status code; clients map it back.
type ErrorKind string

const (
	KindInternal         ErrorKind = "internal"
	KindDuplicateEmail   ErrorKind = "duplicate_email"
	KindNotFound         ErrorKind = "not_found"
	KindUnauthorized     ErrorKind = "unauthorized"
	KindValidationFailed ErrorKind = "validation_failed"
	KindUnreachable      ErrorKind = "unreachable"
)

// Error is a classified error. Message is safe to show to end users; Err
// holds the underlying cause, if any.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds a classified error.
func NewError(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Wrap classifies cause under kind, keeping the cause in the chain.
func Wrap(kind ErrorKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Err: cause}
}

// Validation returns a ValidationFailed error with the given message.
func Validation(msg string) *Error {
	return &Error{Kind: KindValidationFailed, Message: msg}
}

// KindOf reports the kind of the first *Error in err's chain, or
// KindInternal when there is none.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// MessageOf returns the user-facing message of the first *Error in err's chain.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return "internal server error"
}

var (
	ErrUserNotFound        = NewError(KindNotFound, "user not found")
	ErrTransactionNotFound = NewError(KindNotFound, "transaction not found")
	ErrEmailTaken          = NewError(KindDuplicateEmail, "email already in use")
	ErrInvalidCredentials  = NewError(KindUnauthorized, "invalid email or password")
	ErrInvalidStatus       = NewError(KindValidationFailed, "unknown transaction status")
	ErrInvalidTransition   = NewError(KindValidationFailed, "invalid status transition")
	ErrPricePrecision      = NewError(KindValidationFailed, "price must have at most 2 decimal places")
	ErrActionNotAllowed    = NewError(KindValidationFailed, "action not available")
	ErrSystemMessage       = NewError(KindValidationFailed, "system messages cannot be posted by users")
	ErrImagesDisabled      = NewError(KindUnreachable, "image storage is not configured")
)
