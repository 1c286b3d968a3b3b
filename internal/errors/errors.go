package errors

import (
	"fmt"
)

// APIError is the error shape handlers write to clients.
type APIError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Field   string    `json:"field,omitempty"`
	Status  int       `json:"-"`

	cause error
}

func (e *APIError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field: %s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying service error, if any, for logging.
func (e *APIError) Unwrap() error {
	return e.cause
}

func newAPIError(code ErrorCode, message string) *APIError {
	return &APIError{Code: code, Message: message, Status: code.StatusCode()}
}

// NotFound creates a NOT_FOUND error
func NotFound(resource string) *APIError {
	return newAPIError(CodeNotFound, fmt.Sprintf("%s not found", resource))
}

// Unauthorized creates an UNAUTHORIZED error
func Unauthorized(message string) *APIError {
	return newAPIError(CodeUnauthorized, message)
}

// Forbidden creates a FORBIDDEN error
func Forbidden(message string) *APIError {
	return newAPIError(CodeForbidden, message)
}

// Conflict creates a CONFLICT error
func Conflict(message string) *APIError {
	return newAPIError(CodeConflict, message)
}

// Invalid creates an INVALID error, optionally naming the offending field
func Invalid(field, message string) *APIError {
	e := newAPIError(CodeInvalid, message)
	e.Field = field
	return e
}

// InternalError creates an INTERNAL_ERROR. The message is shown to clients,
// so it must never carry query text or driver output.
func InternalError(message string) *APIError {
	return newAPIError(CodeInternalError, message)
}

// RateLimited creates a RATE_LIMITED error
func RateLimited(message string) *APIError {
	if message == "" {
		message = "rate limit exceeded"
	}
	return newAPIError(CodeRateLimited, message)
}

// WithCause attaches the originating error for server-side logging.
func (e *APIError) WithCause(err error) *APIError {
	e.cause = err
	return e
}
