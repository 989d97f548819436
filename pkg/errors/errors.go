package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// StatusTokenRequired is the non-standard status used when the auth gate
// finds no bearer token on the request at all.
const StatusTokenRequired = 498

// Common application errors
var (
	ErrNotFound     = NewNotFoundError("resource", "resource not found")
	ErrBadRequest   = NewBadRequestError("invalid request")
	ErrUnauthorized = NewUnauthorizedError("unauthorized")
	ErrInternal     = NewInternalError("internal server error", nil)
)

// Error is the application error type. It carries the HTTP status the
// failure maps to, a short machine-oriented tag, and a human-readable
// message. Handlers serialize it as {status, statusText, message}.
type Error struct {
	Status  int
	Tag     string
	Message string
	Err     error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the HTTP status code for this error
func (e *Error) HTTPStatus() int {
	return e.Status
}

// NewBadRequestError creates an error for malformed or incomplete input (400)
func NewBadRequestError(message string) *Error {
	return &Error{Status: http.StatusBadRequest, Tag: "bad_request", Message: message}
}

// NewUnauthorizedError creates an error for a missing or invalid identity
// or a credential mismatch (401)
func NewUnauthorizedError(message string) *Error {
	return &Error{Status: http.StatusUnauthorized, Tag: "unauthorized", Message: message}
}

// NewTokenRequiredError creates an error for a request that carries no
// bearer token at all (498)
func NewTokenRequiredError(message string) *Error {
	return &Error{Status: StatusTokenRequired, Tag: "token_required", Message: message}
}

// NewNotFoundError creates an error for an absent referenced record (404)
func NewNotFoundError(resource, message string) *Error {
	if message == "" {
		message = fmt.Sprintf("%s not found", resource)
	}
	return &Error{Status: http.StatusNotFound, Tag: "not_found", Message: message}
}

// NewInternalError creates an internal server error with an optional cause (500)
func NewInternalError(message string, err error) *Error {
	return &Error{Status: http.StatusInternalServerError, Tag: "internal_error", Message: message, Err: err}
}

// FromError extracts an *Error from err's chain. Errors outside the
// taxonomy map to an internal error so no failure leaks a raw message.
func FromError(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return NewInternalError("internal server error", err)
}

// StatusText returns the standard reason phrase for a status, covering the
// non-standard token-required code as well.
func StatusText(status int) string {
	if status == StatusTokenRequired {
		return "Token Required"
	}
	return http.StatusText(status)
}
