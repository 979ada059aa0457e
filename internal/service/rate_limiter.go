package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pagebrief/entitlement-service/pkg/database"
	"github.com/redis/go-redis/v9"
)

// ErrRateLimited is returned by RateLimiter.Allow when the caller has
// exhausted the window. Use RetryAfterFromError to read the wait time.
var ErrRateLimited = errors.New("rate limit exceeded")

// RateLimitedError carries the time until the window frees a slot.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limit exceeded, try again in %v", e.RetryAfter.Round(time.Second))
}

func (e *RateLimitedError) Unwrap() error {
	return ErrRateLimited
}

// RetryAfterFromError extracts the retry-after hint from a rate limit
// error, defaulting to the given fallback.
func RetryAfterFromError(err error, fallback time.Duration) time.Duration {
	var rl *RateLimitedError
	if errors.As(err, &rl) && rl.RetryAfter > 0 {
		return rl.RetryAfter
	}
	return fallback
}

// RateLimiter enforces a sliding window log per key backed by Redis
type RateLimiter struct {
	redis *database.Redis
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(redis *database.Redis) *RateLimiter {
	return &RateLimiter{redis: redis}
}

// Allow records an attempt for key and reports whether it fits within
// limit per window. Exceeding the limit returns a RateLimitedError.
func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now()
	windowStart := now.Add(-window)

	redisKey := fmt.Sprintf("ratelimit:%s", key)

	// Drop entries that have aged out of the window
	err := r.redis.Client.ZRemRangeByScore(ctx, redisKey, "0", fmt.Sprintf("%d", windowStart.Unix())).Err()
	if err != nil {
		return false, fmt.Errorf("failed to clean old entries: %w", err)
	}

	count, err := r.redis.Client.ZCard(ctx, redisKey).Result()
	if err != nil {
		return false, fmt.Errorf("failed to count entries: %w", err)
	}

	if count >= int64(limit) {
		// The oldest entry determines when a slot frees up
		oldest, err := r.redis.Client.ZRangeWithScores(ctx, redisKey, 0, 0).Result()
		if err == nil && len(oldest) > 0 {
			oldestTime := time.Unix(int64(oldest[0].Score), 0)
			return false, &RateLimitedError{RetryAfter: window - time.Since(oldestTime)}
		}
		return false, &RateLimitedError{}
	}

	member := fmt.Sprintf("%d-%d", now.UnixNano(), now.Unix())
	err = r.redis.Client.ZAdd(ctx, redisKey, redis.Z{
		Score:  float64(now.Unix()),
		Member: member,
	}).Err()
	if err != nil {
		return false, fmt.Errorf("failed to add entry: %w", err)
	}

	// Expire the key a bit past the window so abandoned keys clean up
	_ = r.redis.Client.Expire(ctx, redisKey, window+time.Minute).Err()

	return true, nil
}

// GetRemainingRequests returns the number of remaining requests allowed
func (r *RateLimiter) GetRemainingRequests(ctx context.Context, key string, limit int, window time.Duration) (int, error) {
	now := time.Now()
	windowStart := now.Add(-window)

	redisKey := fmt.Sprintf("ratelimit:%s", key)

	err := r.redis.Client.ZRemRangeByScore(ctx, redisKey, "0", fmt.Sprintf("%d", windowStart.Unix())).Err()
	if err != nil {
		return 0, fmt.Errorf("failed to clean old entries: %w", err)
	}

	count, err := r.redis.Client.ZCard(ctx, redisKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count entries: %w", err)
	}

	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}

	return remaining, nil
}
