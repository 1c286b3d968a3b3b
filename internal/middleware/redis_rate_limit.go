package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/feedora/backend/internal/cache"
	apperrors "github.com/feedora/backend/internal/errors"
	"github.com/feedora/backend/internal/logger"
	"github.com/feedora/backend/internal/util"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RedisRateLimitMiddleware creates a distributed fixed-window limiter using
// Redis, shared by every API instance.
func RedisRateLimitMiddleware(rc *cache.RedisClient, cfg RateLimitConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		allowed, remaining, err := rc.Allow(ctx, cfg.key(c), cfg.Limit, cfg.Window)
		if err != nil {
			// A broken limiter rejects rather than leaving the API unthrottled.
			logger.Log.Error("Rate limit check failed - rejecting request",
				logger.WithIP(c.ClientIP()),
				zap.Error(err),
			)
			util.RespondWithAPIError(c, &apperrors.APIError{
				Code:    apperrors.CodeInternalError,
				Message: "service temporarily unavailable",
				Status:  http.StatusServiceUnavailable,
			})
			return
		}
		if !allowed {
			logger.Log.Warn("Rate limit exceeded",
				logger.WithIP(c.ClientIP()),
				zap.Int("max_requests", cfg.Limit),
			)
			rejectRateLimited(c, cfg.Limit, int(cfg.Window.Seconds()))
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Next()
	}
}

// RateLimit picks the Redis limiter when rc is set, otherwise an in-memory one.
func RateLimit(rc *cache.RedisClient, cfg RateLimitConfig) gin.HandlerFunc {
	if rc != nil {
		return RedisRateLimitMiddleware(rc, cfg)
	}
	return NewRateLimiter(cfg).Middleware()
}
