package ratelimit

import (
	"context"
	"time"
)

// Store keeps request timestamps per bucket for the sliding window.
// Implementations live in the store package, backed by memory or Redis.
type Store interface {
	// Record appends a request to the bucket, forgets requests older than
	// window, and returns how many remain including this one.
	Record(ctx context.Context, bucket string, window time.Duration) (inWindow int64, err error)
}
