package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Sentinel failures returned by services. Wrap them with New so the message
// reaches the client while errors.Is still matches.
var (
	ErrUnauthenticated = stderrors.New("authentication required")
	ErrNotOwner        = stderrors.New("not allowed")
	ErrNotFound        = stderrors.New("not found")
	ErrInvalid         = stderrors.New("invalid request")
	ErrConflict        = stderrors.New("conflict")
)

type domainError struct {
	kind error
	msg  string
}

func (e *domainError) Error() string { return e.msg }
func (e *domainError) Unwrap() error { return e.kind }

// New wraps a sentinel with a client-safe message.
func New(kind error, format string, args ...any) error {
	return &domainError{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// NotFoundf is shorthand for New(ErrNotFound, "<what> not found").
func NotFoundf(what string) error {
	return New(ErrNotFound, "%s not found", what)
}

// Invalidf is shorthand for New(ErrInvalid, ...).
func Invalidf(format string, args ...any) error {
	return New(ErrInvalid, format, args...)
}

// FromError converts any service error into an APIError. Unknown errors become
// a generic INTERNAL_ERROR so storage details never reach the client.
func FromError(err error) *APIError {
	if err == nil {
		return nil
	}

	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		return apiErr
	}

	msg := clientMessage(err)
	switch {
	case stderrors.Is(err, ErrUnauthenticated):
		return Unauthorized(msg).WithCause(err)
	case stderrors.Is(err, ErrNotOwner):
		return Forbidden(msg).WithCause(err)
	case stderrors.Is(err, ErrNotFound):
		return newAPIError(CodeNotFound, msg).WithCause(err)
	case stderrors.Is(err, ErrInvalid):
		return Invalid("", msg).WithCause(err)
	case stderrors.Is(err, ErrConflict):
		return Conflict(msg).WithCause(err)
	default:
		return InternalError("internal server error").WithCause(err)
	}
}

// clientMessage returns the outermost domain message, skipping fmt.Errorf
// context that callers added on the way up.
func clientMessage(err error) string {
	var de *domainError
	if stderrors.As(err, &de) {
		return de.msg
	}
	return strings.TrimSpace(err.Error())
}
