package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/feedora/backend/internal/cache"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func limitedRouter(h gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(h)
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return router
}

func hit(router *gin.Engine, client string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("X-Client-ID", client)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func byClientHeader(c *gin.Context) string { return c.GetHeader("X-Client-ID") }

func TestRateLimiterRefills(t *testing.T) {
	now := time.Now()
	rl := NewRateLimiter(RateLimitConfig{Limit: 3, Window: 3 * time.Second, KeyFunc: byClientHeader})
	rl.now = func() time.Time { return now }
	router := limitedRouter(rl.Middleware())

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, hit(router, "a").Code, "request %d", i+1)
	}
	w := hit(router, "a")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))

	// One token per second.
	now = now.Add(time.Second)
	assert.Equal(t, http.StatusOK, hit(router, "a").Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(router, "a").Code)
}

func TestRateLimiterSeparatesClients(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{Limit: 2, Window: time.Minute, KeyFunc: byClientHeader})
	router := limitedRouter(rl.Middleware())

	assert.Equal(t, http.StatusOK, hit(router, "a").Code)
	assert.Equal(t, http.StatusOK, hit(router, "a").Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(router, "a").Code)
	assert.Equal(t, http.StatusOK, hit(router, "b").Code)
}

func TestRateLimiterSweepsIdleBuckets(t *testing.T) {
	now := time.Now()
	rl := NewRateLimiter(RateLimitConfig{Limit: 1, Window: time.Second})
	rl.now = func() time.Time { return now }

	rl.Allow("a")
	rl.Allow("b")
	assert.Len(t, rl.buckets, 2)

	now = now.Add(2 * time.Second)
	rl.Allow("c")
	assert.Len(t, rl.buckets, 1)
}

func TestRedisRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := cache.Wrap(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { rc.Close() })

	router := limitedRouter(RateLimit(rc, RateLimitConfig{Limit: 2, Window: time.Minute, KeyFunc: byClientHeader, Prefix: "t"}))

	w := hit(router, "a")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, http.StatusOK, hit(router, "a").Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(router, "a").Code)
	assert.Equal(t, http.StatusOK, hit(router, "b").Code)

	mr.FastForward(time.Minute + time.Second)
	assert.Equal(t, http.StatusOK, hit(router, "a").Code)
}

func TestRedisRateLimitRejectsWhenRedisIsDown(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := cache.Wrap(redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1}))
	t.Cleanup(func() { rc.Close() })
	mr.Close()

	router := limitedRouter(RedisRateLimitMiddleware(rc, DefaultRateLimitConfig(10, time.Minute)))
	assert.Equal(t, http.StatusServiceUnavailable, hit(router, "a").Code)
}
