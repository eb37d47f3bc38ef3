// Package errors provides structured error types for repotrack.
//
// Errors carry a machine-readable [Code] next to a human-readable message,
// so the CLI can print a short message while callers can still branch on the
// category of a failure.
//
// # Error Codes
//
// Codes follow the taxonomy of the ingestion pipeline:
//   - INVALID_*: configuration, option documents, malformed upstream data, records
//   - NETWORK_ERROR: transfer failures (connection errors, non-success responses)
//   - STORAGE_ERROR: local filesystem failures while staging or committing
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidFetcher, "invalid fetcher name %q", name)
//	if errors.Is(err, errors.ErrCodeInvalidFetcher) {
//	    // configuration problem, skip this source
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeNetwork, origErr, "fetch %s", url)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Configuration errors
	ErrCodeInvalidInput       Code = "INVALID_INPUT"
	ErrCodeInvalidFetcher     Code = "INVALID_FETCHER"
	ErrCodeInvalidParser      Code = "INVALID_PARSER"
	ErrCodeInvalidOptions     Code = "INVALID_OPTIONS"
	ErrCodeInvalidSource      Code = "INVALID_SOURCE"
	ErrCodeInvalidCompression Code = "INVALID_COMPRESSION"

	// Data errors
	ErrCodeInvalidFormat Code = "INVALID_FORMAT"
	ErrCodeInvalidRecord Code = "INVALID_RECORD"

	// Resource not found errors
	ErrCodeNotFound Code = "NOT_FOUND"

	// Transfer errors
	ErrCodeNetwork Code = "NETWORK_ERROR"

	// Local storage errors
	ErrCodeStorage Code = "STORAGE_ERROR"
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
// The outermost *Error wins, so wrapping with a new code re-classifies an error.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
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
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message and cause without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Cause != nil {
			return e.Message + ": " + UserMessage(e.Cause)
		}
		return e.Message
	}
	return err.Error()
}

// IsConfig reports whether err is a configuration error: an unknown fetcher
// or parser name, or an options document that does not match its schema.
// Configuration errors are fatal for one source only.
func IsConfig(err error) bool {
	switch GetCode(err) {
	case ErrCodeInvalidFetcher, ErrCodeInvalidParser, ErrCodeInvalidOptions, ErrCodeInvalidSource:
		return true
	}
	return false
}
