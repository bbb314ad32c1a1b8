package store

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

// RateLimitMemoryStore is an in-memory implementation of ratelimit.Store.
// Buckets whose newest request has left the window are swept at most once
// per window.
type RateLimitMemoryStore struct {
	requests  *xsync.MapOf[string, []time.Time]
	now       func() time.Time
	lastSweep atomic.Int64
}

// NewRateLimitMemoryStore creates a new in-memory rate limit store.
func NewRateLimitMemoryStore() *RateLimitMemoryStore {
	return &RateLimitMemoryStore{
		requests: xsync.NewMapOf[string, []time.Time](),
		now:      time.Now,
	}
}

func (s *RateLimitMemoryStore) Record(_ context.Context, key string, window time.Duration) (int64, error) {
	now := s.now()
	cutoff := now.Add(-window)

	// Compute runs atomically per key, so pruning and appending never race.
	timestamps, _ := s.requests.Compute(key, func(old []time.Time, _ bool) ([]time.Time, bool) {
		valid := make([]time.Time, 0, len(old)+1)
		for _, ts := range old {
			if ts.After(cutoff) {
				valid = append(valid, ts)
			}
		}

		return append(valid, now), false
	})

	s.maybeSweep(now, window)

	return int64(len(timestamps)), nil
}

// Sweep drops every bucket with no request after cutoff.
func (s *RateLimitMemoryStore) Sweep(cutoff time.Time) {
	s.requests.Range(func(key string, _ []time.Time) bool {
		s.requests.Compute(key, func(old []time.Time, loaded bool) ([]time.Time, bool) {
			if !loaded || len(old) == 0 || !old[len(old)-1].After(cutoff) {
				return nil, true
			}

			return old, false
		})

		return true
	})
}

// Len reports how many buckets are held.
func (s *RateLimitMemoryStore) Len() int {
	return s.requests.Size()
}

func (s *RateLimitMemoryStore) maybeSweep(now time.Time, window time.Duration) {
	last := s.lastSweep.Load()
	if now.UnixNano()-last < int64(window) {
		return
	}

	if !s.lastSweep.CompareAndSwap(last, now.UnixNano()) {
		return
	}

	s.Sweep(now.Add(-window))
}
