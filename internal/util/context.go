package util

import (
	"github.com/feedora/backend/internal/auth"
	"github.com/gin-gonic/gin"
)

// Keys under which middleware stores request-scoped values on the gin context.
const (
	RequestIDKey = "request_id"
	PrincipalKey = "principal"
)

// Principal returns the caller set by the auth middleware, or an anonymous
// principal.
func Principal(c *gin.Context) auth.Principal {
	if v, ok := c.Get(PrincipalKey); ok {
		if p, ok := v.(auth.Principal); ok {
			return p
		}
	}
	return auth.FromContext(c.Request.Context())
}

// SetPrincipal attaches p to both the gin context and the request context.
func SetPrincipal(c *gin.Context, p auth.Principal) {
	c.Set(PrincipalKey, p)
	c.Request = c.Request.WithContext(auth.WithPrincipal(c.Request.Context(), p))
}
