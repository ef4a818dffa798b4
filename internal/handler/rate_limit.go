package handler

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/media-favourites/internal/dto"
	"go.uber.org/zap"
)

// Limiter is the sliding window limiter behind RateLimitMiddleware
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error)
	Remaining(ctx context.Context, key string, limit int, window time.Duration) (int, error)
}

// RateLimitMiddleware rejects requests over limit per window with 429. If the
// limiter itself fails the request is let through and the failure logged.
func RateLimitMiddleware(limiter Limiter, limit int, window time.Duration, keyFunc func(*gin.Context) string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := keyFunc(c)

		allowed, retryAfter, err := limiter.Allow(c.Request.Context(), key, limit, window)
		if err != nil {
			logger.Warn("Rate limiter unavailable, allowing request", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		if remaining, err := limiter.Remaining(c.Request.Context(), key, limit, window); err == nil {
			c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		}

		if !allowed {
			seconds := int(math.Ceil(retryAfter.Seconds()))
			c.Header("Retry-After", strconv.Itoa(seconds))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.ErrorResponse{
				Error:   http.StatusText(http.StatusTooManyRequests),
				Message: "Too many requests, try again in " + strconv.Itoa(seconds) + "s",
			})
			return
		}

		c.Next()
	}
}

// IPBasedKey keys on the client IP. Forwarding headers are only honoured
// when the engine's trusted proxies include the direct peer.
func IPBasedKey(c *gin.Context) string {
	return c.ClientIP()
}

// RouteAndIPKey limits each endpoint separately per client IP
func RouteAndIPKey(c *gin.Context) string {
	return c.FullPath() + ":" + IPBasedKey(c)
}
