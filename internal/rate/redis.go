package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a fixed-window gate shared by every process using the same
// prefix.
type Redis struct {
	redis  redis.UniversalClient
	window time.Duration
	prefix string
}

// NewRedis creates a Redis-backed gate. An empty prefix uses "authkit".
func NewRedis(redisClient redis.UniversalClient, window time.Duration, prefix string) *Redis {
	if window <= 0 {
		window = DefaultWindow
	}
	if prefix == "" {
		prefix = "authkit"
	}
	return &Redis{
		redis:  redisClient,
		window: window,
		prefix: prefix,
	}
}

func (r *Redis) key(action string) string {
	return r.prefix + ":rl:" + action
}

// Check increments the window counter and denies once it exceeds
// maxAttempts.
func (r *Redis) Check(ctx context.Context, action string, maxAttempts int) (Decision, error) {
	if maxAttempts <= 0 {
		return Decision{Allowed: true}, nil
	}

	key := r.key(action)
	count, err := r.redis.Incr(ctx, key).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := r.redis.PExpire(ctx, key, r.window).Err(); err != nil {
			return Decision{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}
	if count <= int64(maxAttempts) {
		return Decision{Allowed: true}, nil
	}

	wait, err := r.redis.PTTL(ctx, key).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if wait < 0 {
		// A key without expiry would deny forever; restart its window.
		if err := r.redis.PExpire(ctx, key, r.window).Err(); err != nil {
			return Decision{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		wait = r.window
	}
	return Decision{Allowed: false, Wait: wait}, nil
}

// Reset deletes the window counter for action.
func (r *Redis) Reset(ctx context.Context, action string) error {
	if err := r.redis.Del(ctx, r.key(action)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Attempts returns the current counter for action. Missing keys count as
// zero.
func (r *Redis) Attempts(ctx context.Context, action string) (int, error) {
	count, err := r.redis.Get(ctx, r.key(action)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return int(count), nil
}
