package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/prperemyshlev/media-favourites/pkg/database"
	"github.com/redis/go-redis/v9"
)

// RateLimiter handles rate limiting using Redis
type RateLimiter struct {
	redis *database.Redis
	now   func() time.Time
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(redis *database.Redis) *RateLimiter {
	return &RateLimiter{redis: redis, now: time.Now}
}

// Allow records a request for key and reports whether it fits in the sliding
// window. When it does not, retryAfter is how long until the oldest request
// leaves the window.
func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error) {
	now := r.now()
	windowStart := now.Add(-window)
	redisKey := "ratelimit:" + key

	var count *redis.IntCmd
	_, err := r.redis.Client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, redisKey, "-inf", strconv.FormatInt(windowStart.UnixMilli(), 10))
		count = pipe.ZCard(ctx, redisKey)
		return nil
	})
	if err != nil {
		return false, 0, fmt.Errorf("failed to count entries: %w", err)
	}

	if count.Val() >= int64(limit) {
		oldest, err := r.redis.Client.ZRangeWithScores(ctx, redisKey, 0, 0).Result()
		if err != nil {
			return false, 0, fmt.Errorf("failed to get oldest entry: %w", err)
		}
		retryAfter := window
		if len(oldest) > 0 {
			oldestTime := time.UnixMilli(int64(oldest[0].Score))
			retryAfter = oldestTime.Add(window).Sub(now)
		}
		if retryAfter < time.Second {
			retryAfter = time.Second
		}
		return false, retryAfter, nil
	}

	member := uuid.New().String()
	_, err = r.redis.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(now.UnixMilli()), Member: member})
		pipe.Expire(ctx, redisKey, window+time.Minute)
		return nil
	})
	if err != nil {
		return false, 0, fmt.Errorf("failed to add entry: %w", err)
	}

	return true, 0, nil
}

// Remaining returns how many more requests key may make in the current window
func (r *RateLimiter) Remaining(ctx context.Context, key string, limit int, window time.Duration) (int, error) {
	windowStart := r.now().Add(-window)
	redisKey := "ratelimit:" + key

	count, err := r.redis.Client.ZCount(ctx, redisKey, "("+strconv.FormatInt(windowStart.UnixMilli(), 10), "+inf").Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count entries: %w", err)
	}

	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}

	return remaining, nil
}
