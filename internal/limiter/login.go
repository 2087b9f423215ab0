package limiter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrUnavailable indicates the Redis backend could not be reached.
var ErrUnavailable = errors.New("login limiter backend unavailable")

const keyPrefix = "login:fail:"

// Config holds the failed-login budget.
type Config struct {
	MaxAttempts int
	Window      time.Duration
}

// LoginLimiter is a fixed-window failure counter keyed by email.
type LoginLimiter struct {
	redis  redis.UniversalClient
	config Config
}

// NewLoginLimiter creates a LoginLimiter backed by the given Redis client.
func NewLoginLimiter(client redis.UniversalClient, cfg Config) *LoginLimiter {
	return &LoginLimiter{redis: client, config: cfg}
}

// Locked reports whether email has used up its failure budget.
func (l *LoginLimiter) Locked(ctx context.Context, email string) (bool, error) {
	count, err := l.redis.Get(ctx, key(email)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return count >= int64(l.config.MaxAttempts), nil
}

// RecordFailure increments the failure counter. The window starts with the
// first failure.
func (l *LoginLimiter) RecordFailure(ctx context.Context, email string) error {
	k := key(email)
	count, err := l.redis.Incr(ctx, k).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if count == 1 {
		if err := l.redis.Expire(ctx, k, l.config.Window).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}
	return nil
}

// Reset clears the failure counter after a successful login.
func (l *LoginLimiter) Reset(ctx context.Context, email string) error {
	if err := l.redis.Del(ctx, key(email)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func key(email string) string {
	return keyPrefix + email
}
