package ratelimit

import (
	"context"
	"time"
)

// Decision is the outcome of a single rate limit check.
type Decision struct {
	Allowed bool
	Count   int64
	Max     int64
	Window  time.Duration
}

// Remaining returns how many more requests fit in the current window.
func (d Decision) Remaining() int64 {
	if d.Count >= d.Max {
		return 0
	}

	return d.Max - d.Count
}

// Limiter defines the interface for rate limiting.
type Limiter interface {
	// Allow records a request for key and reports whether it fits the limit.
	// override replaces the limiter's default when positive.
	Allow(ctx context.Context, key string, override int64) (Decision, error)
}

// SlidingWindowLimiter implements rate limiting using a sliding window algorithm.
type SlidingWindowLimiter struct {
	store  Store
	limit  int64
	window time.Duration
}

// NewSlidingWindowLimiter creates a new sliding window rate limiter.
func NewSlidingWindowLimiter(store Store, limit int64, window time.Duration) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{
		store:  store,
		limit:  limit,
		window: window,
	}
}

func (l *SlidingWindowLimiter) Allow(ctx context.Context, key string, override int64) (Decision, error) {
	limit := l.limit
	if override > 0 {
		limit = override
	}

	count, err := l.store.Record(ctx, key, l.window)
	if err != nil {
		return Decision{}, err
	}

	return Decision{
		Allowed: count <= limit,
		Count:   count,
		Max:     limit,
		Window:  l.window,
	}, nil
}
