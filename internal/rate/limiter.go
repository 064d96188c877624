package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrRedisUnavailable wraps transport failures against the counter backend.
	ErrRedisUnavailable = errors.New("rate limiter redis unavailable")
)

// Limiter counts attempts per key inside a fixed window.
type Limiter struct {
	redis  redis.UniversalClient
	prefix string
}

// New creates a [Limiter] backed by the given Redis client. An empty prefix
// defaults to "rl".
func New(redisClient redis.UniversalClient, prefix string) *Limiter {
	if prefix == "" {
		prefix = "rl"
	}
	return &Limiter{redis: redisClient, prefix: prefix}
}

// Allow records one attempt for key and reports whether it still fits the
// budget of max attempts per period. The max'th attempt is allowed, the
// next one is not, until the window expires.
func (l *Limiter) Allow(ctx context.Context, key string, max int, period time.Duration) (bool, error) {
	if max <= 0 || period <= 0 {
		return true, nil
	}

	count, err := l.incrementWithTTL(ctx, l.prefix+":"+key, period)
	if err != nil {
		return false, err
	}
	return count <= int64(max), nil
}

// Reset clears the counter for key, e.g. after a completed ceremony.
func (l *Limiter) Reset(ctx context.Context, key string) error {
	if err := l.redis.Del(ctx, l.prefix+":"+key).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return count, nil
}
