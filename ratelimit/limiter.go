package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrRateLimited is wrapped by every ExceededError.
	ErrRateLimited = errors.New("too many requests, please try again later")
	// ErrRedisUnavailable is returned when the Redis backend cannot be reached.
	ErrRedisUnavailable = errors.New("redis unavailable")
)

// Limiter admits or rejects a request for an identity at a given instant.
type Limiter interface {
	Allow(ctx context.Context, identityID string, now time.Time) error
}

// Config holds the window parameters shared by all backends.
type Config struct {
	Window time.Duration
	Max    int
}

// Validate checks that the window and limit are usable.
func (c Config) Validate() error {
	if c.Window <= 0 {
		return errors.New("rate limit window must be > 0")
	}
	if c.Max <= 0 {
		return errors.New("rate limit max must be > 0")
	}
	return nil
}

// RetryAfter is the window rounded up to whole seconds.
func (c Config) RetryAfter() time.Duration {
	secs := c.Window / time.Second
	if c.Window%time.Second != 0 {
		secs++
	}
	return secs * time.Second
}

// ExceededError reports a rejected request.
type ExceededError struct {
	RetryAfter time.Duration
}

func (e *ExceededError) Error() string {
	return fmt.Sprintf("%s (retry after %ds)", ErrRateLimited.Error(), int64(e.RetryAfter/time.Second))
}

// Unwrap returns ErrRateLimited.
func (e *ExceededError) Unwrap() error {
	return ErrRateLimited
}
