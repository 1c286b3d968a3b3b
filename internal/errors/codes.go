package errors

import "net/http"

// ErrorCode is the machine-readable error class sent to clients.
type ErrorCode string

const (
	CodeNotFound      ErrorCode = "NOT_FOUND"
	CodeUnauthorized  ErrorCode = "UNAUTHORIZED"
	CodeForbidden     ErrorCode = "FORBIDDEN"
	CodeConflict      ErrorCode = "CONFLICT"
	CodeInvalid       ErrorCode = "INVALID"
	CodeInternalError ErrorCode = "INTERNAL_ERROR"
	CodeRateLimited   ErrorCode = "RATE_LIMITED"
)

// StatusCodeMap maps ErrorCode to HTTP status code
var StatusCodeMap = map[ErrorCode]int{
	CodeNotFound:      http.StatusNotFound,
	CodeUnauthorized:  http.StatusUnauthorized,
	CodeForbidden:     http.StatusForbidden,
	CodeConflict:      http.StatusConflict,
	CodeInvalid:       http.StatusBadRequest,
	CodeInternalError: http.StatusInternalServerError,
	CodeRateLimited:   http.StatusTooManyRequests,
}

// StatusCode returns the HTTP status code for this error code
func (e ErrorCode) StatusCode() int {
	if code, ok := StatusCodeMap[e]; ok {
		return code
	}
	return http.StatusInternalServerError
}
