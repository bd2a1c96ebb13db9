package storage

import (
	"errors"
	"fmt"
)

// ErrorKind discriminates upload failures so callers can present them
// without string matching.
type ErrorKind string

const (
	ErrKindConfig           ErrorKind = "config"
	ErrKindTransform        ErrorKind = "transform"
	ErrKindAuth             ErrorKind = "auth"
	ErrKindNetwork          ErrorKind = "network"
	ErrKindExistenceCheck   ErrorKind = "existence_check"
	ErrKindRetriesExhausted ErrorKind = "retries_exhausted"
)

// Error is the unified error type for upload operations.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause and returns the receiver.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

func NewConfigError(message string) *Error {
	return &Error{Kind: ErrKindConfig, Message: message}
}

func NewTransformError(message string) *Error {
	return &Error{Kind: ErrKindTransform, Message: message}
}

func NewAuthError(message string) *Error {
	return &Error{Kind: ErrKindAuth, Message: message}
}

func NewNetworkError(message string) *Error {
	return &Error{Kind: ErrKindNetwork, Message: message}
}

func NewExistenceCheckError(message string) *Error {
	return &Error{Kind: ErrKindExistenceCheck, Message: message}
}

func NewRetriesExhaustedError(message string) *Error {
	return &Error{Kind: ErrKindRetriesExhausted, Message: message}
}

// IsKind reports whether err is (or wraps) a storage Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var storageErr *Error
	if errors.As(err, &storageErr) {
		return storageErr.Kind == kind
	}
	return false
}
