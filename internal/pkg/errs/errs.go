/*
Package errs provides custom error types and application-level error code constants.

This file defines the CustomError struct, which implements the standard Go error interface
and includes a business code, a user-friendly message, and an HTTP status code for unified
error reporting. Helper predicates classify an error into one of the client-side error
kinds (validation, transport, auth, channel) by its code range.
*/
package errs

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"miniblog/internal/pkg/logx"
)

// CustomError is the custom error structure used throughout the application.
// It wraps the Go error interface, adding a business code and HTTP status code.
type CustomError struct {
	// Code is the business error code (see constants definition).
	Code int

	// Message is the user-friendly error description.
	Message string

	// Status is the standard HTTP status code corresponding to this error.
	Status int

	// Err is the underlying cause, kept for logging and errors.Is/As chains.
	Err error
}

// Error implements the standard Go error interface. It returns a formatted
// error string containing the error code, HTTP status, and message.
func (e CustomError) Error() string {
	return fmt.Sprintf("Error Code %d (HTTP %d): %s", e.Code, e.Status, e.Message)
}

// Unwrap exposes the underlying cause to the errors package.
func (e CustomError) Unwrap() error {
	return e.Err
}

// NewError constructs and returns a new *CustomError instance based on a predefined error code.
// The optional details parameter allows printf-style arguments for message templates that
// contain placeholders. If an unknown code is provided, it defaults to returning ErrUnknown.
func NewError(code int, details ...any) *CustomError {
	templateErr, ok := errorMap[code]

	if !ok {
		logx.Error(
			fmt.Errorf("attempted to create an error with an unknown code in errorMap"),
			"Unknown error code requested",
			"requested_code", code,
		)

		unknownErr := errorMap[ErrUnknown]
		return &CustomError{
			Code:    unknownErr.Code,
			Message: unknownErr.Message,
			Status:  unknownErr.Status,
		}
	}

	customErr := templateErr

	if customErr.Status == 0 {
		customErr.Status = http.StatusOK
	}

	if len(details) > 0 {
		if strings.Contains(customErr.Message, "%") {
			customErr.Message = fmt.Sprintf(customErr.Message, details...)
		} else {
			logx.Warn(
				"Details provided for error, but message template has no formatting placeholders. Details ignored.",
			)
		}
	}

	return &customErr
}

// Wrap behaves like NewError but also records err as the underlying cause.
func Wrap(err error, code int, details ...any) *CustomError {
	customErr := NewError(code, details...)
	customErr.Err = err
	return customErr
}

// WithMessage returns a copy of the error for code with the message replaced
// verbatim. It is used when the backend supplied its own user-facing text.
func WithMessage(code int, message string) *CustomError {
	customErr := NewError(code)
	if message != "" {
		customErr.Message = message
	}
	return customErr
}

// codeOf extracts the business code from any error in the chain, or -1.
func codeOf(err error) int {
	var customErr *CustomError
	if errors.As(err, &customErr) {
		return customErr.Code
	}
	return -1
}

// IsValidation reports whether err is a local pre-network validation failure (1xxx).
func IsValidation(err error) bool {
	code := codeOf(err)
	return code >= 1000 && code < 2000
}

// IsTransport reports whether err is a network, HTTP status, or response shape failure (2xxx).
func IsTransport(err error) bool {
	code := codeOf(err)
	return code >= 2000 && code < 3000
}

// IsAuth reports whether err is an authentication failure, including a missing credential (3xxx).
func IsAuth(err error) bool {
	code := codeOf(err)
	return code >= 3000 && code < 4000
}

// IsChannel reports whether err is a push channel failure (4xxx).
func IsChannel(err error) bool {
	code := codeOf(err)
	return code >= 4000 && code < 5000
}
