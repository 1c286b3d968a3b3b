package middleware

import (
	"math"
	"strconv"
	"sync"
	"time"

	apperrors "github.com/feedora/backend/internal/errors"
	"github.com/feedora/backend/internal/util"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimitConfig holds configuration for rate limiting
type RateLimitConfig struct {
	// Requests per window
	Limit  int
	Window time.Duration
	// KeyFunc picks the bucket for a request. Defaults to the client IP.
	KeyFunc func(c *gin.Context) string
	// Prefix namespaces the buckets of one limiter.
	Prefix string
}

// DefaultRateLimitConfig limits the API as a whole.
func DefaultRateLimitConfig(limit int, window time.Duration) RateLimitConfig {
	return RateLimitConfig{Limit: limit, Window: window, KeyFunc: clientIPKey, Prefix: "api"}
}

// AuthRateLimitConfig returns stricter limits for auth endpoints
func AuthRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{Limit: 10, Window: time.Minute, KeyFunc: clientIPKey, Prefix: "auth"}
}

func clientIPKey(c *gin.Context) string {
	return c.ClientIP()
}

func (cfg RateLimitConfig) key(c *gin.Context) string {
	kf := cfg.KeyFunc
	if kf == nil {
		kf = clientIPKey
	}
	return "rate_limit:" + cfg.Prefix + ":" + kf(c)
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is the in-process limiter used when Redis is not configured.
// Each key gets a token bucket of Limit tokens refilled at Limit per Window.
type RateLimiter struct {
	config    RateLimitConfig
	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
	now       func() time.Time
}

// NewRateLimiter builds an in-memory limiter.
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	return &RateLimiter{config: config, buckets: make(map[string]*bucket), now: time.Now, lastSweep: time.Now()}
}

// Allow reports whether key may proceed and, if not, the seconds to wait.
func (rl *RateLimiter) Allow(key string) (bool, int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.sweep(now)

	b, ok := rl.buckets[key]
	if !ok {
		every := rate.Limit(float64(rl.config.Limit) / rl.config.Window.Seconds())
		b = &bucket{limiter: rate.NewLimiter(every, rl.config.Limit)}
		rl.buckets[key] = b
	}
	b.lastSeen = now

	r := b.limiter.ReserveN(now, 1)
	if !r.OK() {
		return false, int(math.Ceil(rl.config.Window.Seconds()))
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, int(math.Ceil(delay.Seconds()))
	}
	return true, 0
}

// sweep drops buckets idle long enough to have refilled completely.
func (rl *RateLimiter) sweep(now time.Time) {
	if now.Sub(rl.lastSweep) < rl.config.Window {
		return
	}
	rl.lastSweep = now
	for k, b := range rl.buckets {
		if now.Sub(b.lastSeen) >= rl.config.Window {
			delete(rl.buckets, k)
		}
	}
}

// Middleware rejects requests over the limit with 429.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, retryAfter := rl.Allow(rl.config.key(c))
		if !allowed {
			rejectRateLimited(c, rl.config.Limit, retryAfter)
			return
		}
		c.Next()
	}
}

func rejectRateLimited(c *gin.Context, limit, retryAfter int) {
	RecordRateLimitExceeded(c.FullPath())
	c.Header("Retry-After", strconv.Itoa(retryAfter))
	c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
	c.Header("X-RateLimit-Remaining", "0")
	util.RespondWithAPIError(c, apperrors.RateLimited(""))
}
