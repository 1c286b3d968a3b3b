package middleware

import (
	"github.com/feedora/backend/internal/util"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracingMiddleware returns the otelgin middleware followed by one that adds
// Feedora attributes to the request span. Register both with Use(...).
func TracingMiddleware(serviceName string) []gin.HandlerFunc {
	return []gin.HandlerFunc{otelgin.Middleware(serviceName), spanAttributes()}
}

// spanAttributes must run inside otelgin, which restores the original
// request context once the chain returns.
func spanAttributes() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			return
		}
		if p := util.Principal(c); !p.Anonymous() {
			span.SetAttributes(attribute.String("user.id", p.UserID))
		}
		if id := c.GetString(util.RequestIDKey); id != "" {
			span.SetAttributes(attribute.String("request.id", id))
		}
		for _, key := range []string{"limit", "offset", "page"} {
			if v := c.Query(key); v != "" {
				span.SetAttributes(attribute.String("query."+key, v))
			}
		}
		for _, ginErr := range c.Errors {
			if ginErr.Err != nil {
				span.RecordError(ginErr.Err, trace.WithStackTrace(true))
				span.SetStatus(codes.Error, ginErr.Error())
			}
		}
	}
}
