// Package errors provides coded errors for grainseg.
//
// Recoverable conditions (a tolerance that yields a degenerate segmentation,
// an invalid bin layout, a malformed grid) are reported as *Error values
// carrying a machine-readable Code. Callers that receive such an error
// alongside a partial result may still inspect that result.
//
//	err := errors.New(errors.ErrCodeInvalidTolerance, "tolerance %.2f must be positive", tol)
//	if errors.Is(err, errors.ErrCodeInvalidTolerance) {
//	    // handle
//	}
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for the failure categories of the library.
const (
	// Input validation errors
	ErrCodeInvalidInput     Code = "INVALID_INPUT"
	ErrCodeInvalidGrid      Code = "INVALID_GRID"
	ErrCodeInvalidTolerance Code = "INVALID_TOLERANCE"
	ErrCodeInvalidBins      Code = "INVALID_BINS"
	ErrCodeInvalidConfig    Code = "INVALID_CONFIG"
	ErrCodeUnknownClass     Code = "UNKNOWN_CLASS"

	// Segmentation outcome errors
	ErrCodeTooFewFeatures  Code = "TOO_FEW_FEATURES"
	ErrCodeTooManyFeatures Code = "TOO_MANY_FEATURES"
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
