package memory

import (
	"context"
	"sync"
	"time"
)

// UsageThrottle is an in-process ports.UsageThrottle for single-instance
// deployments without Redis.
type UsageThrottle struct {
	mu    sync.Mutex
	until map[string]time.Time
	now   func() time.Time
}

// NewUsageThrottle creates an empty UsageThrottle.
func NewUsageThrottle() *UsageThrottle {
	return &UsageThrottle{
		until: make(map[string]time.Time),
		now:   time.Now,
	}
}

// Allow claims key for window unless an earlier claim is still live.
func (t *UsageThrottle) Allow(_ context.Context, key string, window time.Duration) (bool, error) {
	if window <= 0 {
		return true, nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if until, ok := t.until[key]; ok && now.Before(until) {
		return false, nil
	}
	t.until[key] = now.Add(window)

	// Opportunistic sweep keeps the map bounded by live claims.
	if len(t.until) > 1024 {
		for k, until := range t.until {
			if !now.Before(until) {
				delete(t.until, k)
			}
		}
	}
	return true, nil
}
