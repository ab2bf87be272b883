package types

import (
	"errors"
	"fmt"
)

// ErrorCode is a namespaced error code for gnapsis errors.
// Packages declare their own codes in a local errors.go; the shared
// validation and configuration codes live here because every entry
// point uses them.
type ErrorCode string

const (
	// VALIDATION_FAILED marks a request rejected before any backend call.
	VALIDATION_FAILED ErrorCode = "VALIDATION_FAILED"

	// Configuration error codes.
	CONFIG_LOAD_FAILED       ErrorCode = "CONFIG_LOAD_FAILED"
	CONFIG_VALIDATION_FAILED ErrorCode = "CONFIG_VALIDATION_FAILED"
)

// Error is a structured error carrying a code, a message, a retryability
// hint and an optional cause. It supports errors.Is/errors.As chains.
type Error struct {
	Code      ErrorCode
	Message   string
	Retryable bool
	Cause     error
}

// Error formats as "[CODE] message" or "[CODE] message: cause".
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain inspection.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches other *Error values by code, so callers can compare against
// a code-only sentinel without caring about message text.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Code == other.Code
	}
	return false
}

// NewError creates a non-retryable Error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// NewRetryableError creates an Error the caller may retry, such as a
// transient pool or connectivity failure.
func NewRetryableError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message, Retryable: true}
}

// WrapError creates a non-retryable Error wrapping a cause.
func WrapError(code ErrorCode, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// WrapRetryableError creates a retryable Error wrapping a cause.
func WrapRetryableError(code ErrorCode, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Retryable: true, Cause: cause}
}

// CodeOf extracts the ErrorCode from an error chain, or "" if the chain
// contains no *Error.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsRetryable reports whether the error chain contains a retryable *Error.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}
