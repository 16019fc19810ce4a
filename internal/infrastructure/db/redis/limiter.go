package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	failureWindow      = 15 * time.Minute
	defaultMaxFailures = 10
)

// LoginLimiter throttles repeated failed logins per email, backed by Redis.
// Key format: login_fail:<email>
//
// The counter expires after failureWindow, so a quiet account unlocks
// itself without operator action.
type LoginLimiter struct {
	client      *redis.Client
	maxFailures int
}

// NewLoginLimiter creates a LoginLimiter wrapping the given Redis client.
// If maxFailures <= 0, defaultMaxFailures is used.
func NewLoginLimiter(client *redis.Client, maxFailures int) *LoginLimiter {
	if maxFailures <= 0 {
		maxFailures = defaultMaxFailures
	}
	return &LoginLimiter{client: client, maxFailures: maxFailures}
}

// Blocked reports whether this email has exhausted its failure budget.
func (l *LoginLimiter) Blocked(ctx context.Context, email string) (bool, error) {
	n, err := l.client.Get(ctx, l.key(email)).Int64()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("limiter check: %w", err)
	}
	return n >= int64(l.maxFailures), nil
}

// RecordFailure counts one failed attempt. The expiry is set on the first
// failure only, so the window measures from the start of a burst.
func (l *LoginLimiter) RecordFailure(ctx context.Context, email string) error {
	key := l.key(email)
	n, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("limiter incr: %w", err)
	}
	if n == 1 {
		if err := l.client.Expire(ctx, key, failureWindow).Err(); err != nil {
			return fmt.Errorf("limiter expire: %w", err)
		}
	}
	return nil
}

// Clear forgets recorded failures after a successful login.
func (l *LoginLimiter) Clear(ctx context.Context, email string) error {
	return l.client.Del(ctx, l.key(email)).Err()
}

func (l *LoginLimiter) key(email string) string {
	return "login_fail:" + email
}
