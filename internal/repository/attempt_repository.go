package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// AttemptRepository keeps fixed-window counters in Redis. A nil client disables it.
type AttemptRepository struct {
	client *redis.Client
	prefix string
}

// NewAttemptRepository constructs an attempt counter store.
func NewAttemptRepository(client *redis.Client, prefix string) *AttemptRepository {
	if prefix == "" {
		prefix = "login_attempts"
	}
	return &AttemptRepository{client: client, prefix: prefix}
}

// Enabled reports whether a Redis client is attached.
func (r *AttemptRepository) Enabled() bool {
	return r != nil && r.client != nil
}

func (r *AttemptRepository) key(subject string) string {
	return r.prefix + ":" + subject
}

// Count returns the current counter value for subject.
func (r *AttemptRepository) Count(ctx context.Context, subject string) (int, error) {
	if !r.Enabled() {
		return 0, nil
	}
	n, err := r.client.Get(ctx, r.key(subject)).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("redis get %s: %w", r.key(subject), err)
	}
	return n, nil
}

// Increment bumps the counter; the window starts with the first increment.
func (r *AttemptRepository) Increment(ctx context.Context, subject string, window time.Duration) (int, error) {
	if !r.Enabled() {
		return 0, nil
	}
	key := r.key(subject)
	n, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis incr %s: %w", key, err)
	}
	if n == 1 {
		if err := r.client.Expire(ctx, key, window).Err(); err != nil {
			return 0, fmt.Errorf("redis expire %s: %w", key, err)
		}
	}
	return int(n), nil
}

// Reset clears the counter for subject.
func (r *AttemptRepository) Reset(ctx context.Context, subject string) error {
	if !r.Enabled() {
		return nil
	}
	if err := r.client.Del(ctx, r.key(subject)).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", r.key(subject), err)
	}
	return nil
}
