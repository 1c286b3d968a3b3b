package util

import (
	"net/http"

	"github.com/feedora/backend/internal/errors"
	"github.com/feedora/backend/internal/logger"
	"github.com/feedora/backend/internal/metrics"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// RespondWithError maps err onto an APIError and writes it.
func RespondWithError(c *gin.Context, err error) {
	RespondWithAPIError(c, errors.FromError(err))
}

// RespondWithAPIError sends a structured API error response
func RespondWithAPIError(c *gin.Context, apiErr *errors.APIError) {
	fields := []zap.Field{
		zap.String("code", string(apiErr.Code)),
		zap.String("message", apiErr.Message),
		zap.String("path", c.FullPath()),
		zap.Int("status", apiErr.Status),
	}
	if id := c.GetString(RequestIDKey); id != "" {
		fields = append(fields, logger.WithRequestID(id))
	}
	if apiErr.Status >= http.StatusInternalServerError {
		// The cause is only ever logged.
		if cause := apiErr.Unwrap(); cause != nil {
			fields = append(fields, zap.Error(cause))
		}
		logger.Log.Error("API error", fields...)
	} else if apiErr.Status >= http.StatusBadRequest {
		if apiErr.Field != "" {
			fields = append(fields, zap.String("field", apiErr.Field))
		}
		logger.Log.Warn("API error", fields...)
	}
	metrics.Get().ErrorsTotal.WithLabelValues(string(apiErr.Code)).Inc()

	c.AbortWithStatusJSON(apiErr.Status, ErrorResponse{
		Code:    string(apiErr.Code),
		Message: apiErr.Message,
		Field:   apiErr.Field,
	})
}

// RespondBadRequest sends a 400 with message.
func RespondBadRequest(c *gin.Context, message string) {
	RespondWithAPIError(c, errors.Invalid("", message))
}

// RespondBindError reports a failed ShouldBind* call.
func RespondBindError(c *gin.Context, err error) {
	RespondWithAPIError(c, errors.Invalid("", BindErrorMessage(err)))
}

// RespondUnauthorized sends a 401 Unauthorized response
func RespondUnauthorized(c *gin.Context, message string) {
	RespondWithAPIError(c, errors.Unauthorized(message))
}

// RespondSuccess writes payload with "success": true merged in.
func RespondSuccess(c *gin.Context, status int, payload gin.H) {
	body := gin.H{"success": true}
	for k, v := range payload {
		body[k] = v
	}
	c.JSON(status, body)
}

// RespondOK is RespondSuccess with 200.
func RespondOK(c *gin.Context, payload gin.H) {
	RespondSuccess(c, http.StatusOK, payload)
}
