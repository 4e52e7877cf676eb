// Package domainerrors carries the error taxonomy shared by every service in
// the module. Services return *Error values; transports map the Code to a
// status without inspecting messages.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error.
type Code string

const (
	// Lifecycle engine
	CodeInvalidTransition    Code = "invalid_transition"
	CodeVersionConflict      Code = "version_conflict"
	CodeDirectoryUnavailable Code = "directory_unavailable"
	CodeDirectoryRejected    Code = "directory_rejected"
	CodeInvalidCode          Code = "invalid_code"
	CodeCodeExpired          Code = "code_expired"

	// Generic
	CodeNotFound           Code = "not_found"
	CodeValidation         Code = "validation_error"
	CodeInvalidInput       Code = "invalid_input"
	CodeBadRequest         Code = "bad_request"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeConflict           Code = "conflict"
	CodeRateLimited        Code = "rate_limited"
	CodeInvariantViolation Code = "invariant_violation"
	CodeTimeout            Code = "timeout"
	CodeInternal           Code = "internal_error"
)

// retryable lists codes a caller may retry unchanged.
var retryable = map[Code]bool{
	CodeDirectoryUnavailable: true,
	CodeVersionConflict:      true,
	CodeRateLimited:          true,
	CodeTimeout:              true,
}

// Error is a coded domain error with an optional wrapped cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a domain error without a cause.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// Newf is New with formatting.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, Err: err}
}

// HasCode reports whether any domain error in err's chain carries code.
func HasCode(err error, code Code) bool {
	var de *Error
	for err != nil {
		if !errors.As(err, &de) {
			return false
		}
		if de.Code == code {
			return true
		}
		err = de.Err
	}
	return false
}

// Is is an alias of HasCode kept for call sites that read better as a predicate.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf returns the outermost domain code in err's chain, or CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// Retryable reports whether the outermost domain code is safe to retry.
func Retryable(err error) bool {
	var de *Error
	if !errors.As(err, &de) {
		return false
	}
	return retryable[de.Code]
}
