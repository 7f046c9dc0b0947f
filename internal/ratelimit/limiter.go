// Package ratelimit throttles login attempts per identifier over a sliding
// window. The attempt store is injected: MemoryStore is only correct for a
// single process, multi-instance deployments must use RedisStore.
package ratelimit

import (
	"context"
	"strings"
	"time"
)

// AttemptStore counts attempts per key inside a sliding window. Reserve must
// prune, count and record as one atomic step so concurrent callers cannot all
// observe a count below max.
type AttemptStore interface {
	// Reserve records an attempt at time at unless max attempts already fall
	// inside the window. When denied it returns the oldest attempt still in
	// the window.
	Reserve(ctx context.Context, key string, at time.Time, window time.Duration, max int) (bool, time.Time, error)
	Reset(ctx context.Context, key string) error
}

type LoginLimiter struct {
	store       AttemptStore
	maxAttempts int
	window      time.Duration
	now         func() time.Time
}

func NewLoginLimiter(store AttemptStore, maxAttempts int, window time.Duration) *LoginLimiter {
	return &LoginLimiter{
		store:       store,
		maxAttempts: maxAttempts,
		window:      window,
		now:         time.Now,
	}
}

func normalize(identifier string) string {
	return strings.ToLower(strings.TrimSpace(identifier))
}

// Reserve claims one attempt for the identifier before credentials are
// checked. A successful login must call Reset; a failed one keeps the
// reservation as its recorded failure. When denied, the returned duration is
// how long until the oldest attempt leaves the window.
func (l *LoginLimiter) Reserve(ctx context.Context, identifier string) (bool, time.Duration, error) {
	now := l.now()
	allowed, oldest, err := l.store.Reserve(ctx, normalize(identifier), now, l.window, l.maxAttempts)
	if err != nil {
		return false, 0, err
	}
	if allowed {
		return true, 0, nil
	}

	retryAfter := oldest.Add(l.window).Sub(now)
	if retryAfter < time.Second {
		retryAfter = time.Second
	}
	return false, retryAfter, nil
}

func (l *LoginLimiter) Reset(ctx context.Context, identifier string) error {
	return l.store.Reset(ctx, normalize(identifier))
}
