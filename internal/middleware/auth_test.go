package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/feedora/backend/internal/auth"
	"github.com/feedora/backend/internal/models"
	"github.com/feedora/backend/internal/util"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type stubValidator map[string]*models.User

func (s stubValidator) ValidateToken(_ context.Context, token string) (*models.User, error) {
	if u, ok := s[token]; ok {
		return u, nil
	}
	return nil, auth.ErrInvalidToken
}

func whoami(c *gin.Context) {
	p := util.Principal(c)
	ctxP := auth.FromContext(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"user": p.UserID, "ctx": ctxP.UserID})
}

func TestRequireAuth(t *testing.T) {
	v := stubValidator{"good": {ID: "u1", Name: "Ana"}}
	router := gin.New()
	router.GET("/me", RequireAuth(v), whoami)

	cases := []struct {
		header string
		status int
	}{
		{"", http.StatusUnauthorized},
		{"Basic good", http.StatusUnauthorized},
		{"Bearer bad", http.StatusUnauthorized},
		{"Bearer good", http.StatusOK},
		{"bearer good", http.StatusOK},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, tc.status, w.Code, tc.header)
		if tc.status == http.StatusOK {
			assert.JSONEq(t, `{"user":"u1","ctx":"u1"}`, w.Body.String())
		}
	}
}

func TestOptionalAuthAllowsAnonymous(t *testing.T) {
	router := gin.New()
	router.GET("/feed", OptionalAuth(stubValidator{}), whoami)

	req := httptest.NewRequest(http.MethodGet, "/feed", nil)
	req.Header.Set("Authorization", "Bearer expired")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user":"","ctx":""}`, w.Body.String())
}

func TestRequestIDMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(RequestIDMiddleware())
	router.GET("/x", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(util.RequestIDKey))
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-ID", "abc")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "abc", w.Body.String())
	assert.Equal(t, "abc", w.Header().Get("X-Request-ID"))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Len(t, w.Body.String(), 36)
}
