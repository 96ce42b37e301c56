package coordination

import (
	"context"
	"time"
)

// Coordinator is the cross-process atomic primitive set behind the browser
// semaphore and the range locks. Backed by any store with an atomic counter
// and set-if-absent-with-expiry; the production backing is redis.
type Coordinator interface {
	// IncrCounter atomically increments and returns the new value.
	IncrCounter(ctx context.Context, key string) (int64, error)
	// DecrCounter atomically decrements, clamped at 0, and returns the new
	// value. The clamp covers double-release and lost increments from
	// crashed workers.
	DecrCounter(ctx context.Context, key string) (int64, error)
	ResetCounter(ctx context.Context, key string) error
	// TryAcquireKey sets key=token only if absent, with expiry. Exactly one
	// concurrent caller wins; losers get false immediately.
	TryAcquireKey(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	ReleaseKey(ctx context.Context, key string) error
}
