package coordination

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	token     string
	expiresAt time.Time
}

// MemoryCoordinator is a single-process Coordinator used by tests and local
// development without redis. Same contract, no cross-process guarantees.
type MemoryCoordinator struct {
	mu       sync.Mutex
	counters map[string]int64
	keys     map[string]memoryEntry
}

func NewMemoryCoordinator() *MemoryCoordinator {
	return &MemoryCoordinator{
		counters: map[string]int64{},
		keys:     map[string]memoryEntry{},
	}
}

func (c *MemoryCoordinator) IncrCounter(ctx context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counters[key]++
	return c.counters[key], nil
}

func (c *MemoryCoordinator) DecrCounter(ctx context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := c.counters[key] - 1
	if v < 0 {
		v = 0
	}
	c.counters[key] = v
	return v, nil
}

func (c *MemoryCoordinator) ResetCounter(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counters[key] = 0
	return nil
}

func (c *MemoryCoordinator) TryAcquireKey(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	if entry, ok := c.keys[key]; ok && (entry.expiresAt.IsZero() || entry.expiresAt.After(now)) {
		return false, nil
	}
	expiresAt := time.Time{}
	if ttl > 0 {
		expiresAt = now.Add(ttl)
	}
	c.keys[key] = memoryEntry{token: token, expiresAt: expiresAt}
	return true, nil
}

func (c *MemoryCoordinator) ReleaseKey(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.keys, key)
	return nil
}
