// Package errors provides structured error types for mailframe.
//
// Every failure that leaves an export, a ledger operation or an API handler
// carries a machine-readable [Code] so that the CLI, the HTTP API and the
// websocket shell can report it consistently.
//
// # Error Codes
//
// The export taxonomy has four classes:
//   - SELECTION: no root, several roots, a root of the wrong kind or a root
//     without a resolvable bounding box. Fatal, no partial output.
//   - RESOURCE: a font or a rasterization failed for one node. Recovered
//     locally by the walker; only surfaces from standalone calls.
//   - QUOTA: not enough table credits. Fatal before rendering starts.
//   - INTERNAL: anything unexpected. Reported with a generic message.
//
// Input and lookup codes (INVALID_*, NOT_FOUND, UNAUTHORIZED) are used by the
// ledger, the CLI and the server.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeSelection, "please select a single frame to export")
//	if errors.Is(err, errors.ErrCodeSelection) {
//	    // Show err to the user
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeResource, origErr, "rasterize %s", name)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Export taxonomy
	ErrCodeSelection Code = "SELECTION"
	ErrCodeResource  Code = "RESOURCE"
	ErrCodeQuota     Code = "QUOTA"

	// Input validation errors
	ErrCodeInvalidInput    Code = "INVALID_INPUT"
	ErrCodeInvalidDocument Code = "INVALID_DOCUMENT"
	ErrCodeInvalidCode     Code = "INVALID_CODE"
	ErrCodeInvalidPath     Code = "INVALID_PATH"

	// Resource not found errors
	ErrCodeNotFound     Code = "NOT_FOUND"
	ErrCodeFileNotFound Code = "FILE_NOT_FOUND"

	// Authorization errors
	ErrCodeUnauthorized Code = "UNAUTHORIZED"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	var q *QuotaError
	if errors.As(err, &q) {
		return code == ErrCodeQuota
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	var q *QuotaError
	if errors.As(err, &q) {
		return ErrCodeQuota
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// Other errors are returned verbatim; callers decide whether to expose them.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	var q *QuotaError
	if errors.As(err, &q) {
		return q.Error()
	}
	return err.Error()
}

// QuotaError reports an export that needs more table credits than the
// ledger holds.
type QuotaError struct {
	Required  int
	Available int
}

// Error implements the error interface.
func (e *QuotaError) Error() string {
	return fmt.Sprintf("Insufficient credits. This export requires %d credits, but you have %d.", e.Required, e.Available)
}

// Code returns the error code for this error type.
func (e *QuotaError) Code() Code {
	return ErrCodeQuota
}
