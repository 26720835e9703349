package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// UsageThrottle implements ports.UsageThrottle using Redis SET NX with a TTL.
// The first caller inside a window wins; the key expires on its own.
type UsageThrottle struct {
	client goredis.UniversalClient
	prefix string
}

// NewUsageThrottle creates a Redis-backed usage throttle.
func NewUsageThrottle(client goredis.UniversalClient) *UsageThrottle {
	return &UsageThrottle{
		client: client,
		prefix: "throttle:",
	}
}

// Allow reports whether key has not been claimed within window, claiming it
// if so.
func (t *UsageThrottle) Allow(ctx context.Context, key string, window time.Duration) (bool, error) {
	if window <= 0 {
		return true, nil
	}

	result, err := t.client.SetArgs(ctx, t.prefix+key, time.Now().UnixMilli(), goredis.SetArgs{
		Mode: "NX",
		TTL:  window,
	}).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			// Claimed by an earlier stamp
			return false, nil
		}
		return false, fmt.Errorf("redis throttle: %w", err)
	}
	return result == "OK", nil
}
