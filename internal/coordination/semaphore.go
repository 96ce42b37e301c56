package coordination

import (
	"context"
	"fmt"
	"time"

	"github.com/ssebasarias/droptools/internal/logger"
)

const semaphoreKey = "browser_sessions"

// ErrAcquireTimeout means no browser slot freed up within the caller's
// timeout. The whole job should be retried, not just the acquire.
type ErrAcquireTimeout struct {
	Max     int
	Timeout time.Duration
}

func (e *ErrAcquireTimeout) Error() string {
	return fmt.Sprintf("no browser session slot available within %s (max=%d)", e.Timeout, e.Max)
}

// BrowserSemaphore caps concurrent browser-driving jobs system-wide. The
// count lives in the coordinator, not in any one process, because workers
// run as independent processes sharing one external automation target.
type BrowserSemaphore struct {
	coord        Coordinator
	log          *logger.Logger
	max          int
	pollInterval time.Duration
}

func NewBrowserSemaphore(coord Coordinator, baseLog *logger.Logger, maxSessions int) *BrowserSemaphore {
	if maxSessions <= 0 {
		maxSessions = 3
	}
	return &BrowserSemaphore{
		coord:        coord,
		log:          baseLog.With("component", "BrowserSemaphore"),
		max:          maxSessions,
		pollInterval: 2 * time.Second,
	}
}

// Acquire claims a slot, poll-retrying until timeout. An increment that
// overshoots the cap is rolled back before waiting so blocked callers never
// hold phantom slots.
func (s *BrowserSemaphore) Acquire(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		v, err := s.coord.IncrCounter(ctx, semaphoreKey)
		if err != nil {
			return fmt.Errorf("semaphore incr: %w", err)
		}
		if v <= int64(s.max) {
			return nil
		}
		if _, err := s.coord.DecrCounter(ctx, semaphoreKey); err != nil {
			s.log.Warn("Semaphore rollback decr failed", "error", err)
		}
		if time.Now().After(deadline) {
			return &ErrAcquireTimeout{Max: s.max, Timeout: timeout}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.pollInterval):
		}
	}
}

func (s *BrowserSemaphore) Release(ctx context.Context) {
	if _, err := s.coord.DecrCounter(ctx, semaphoreKey); err != nil {
		s.log.Warn("Semaphore release failed", "error", err)
	}
}

// Reset forces the counter to 0. Operator remediation for workers that died
// holding a slot; there is no automatic dead-worker detection.
func (s *BrowserSemaphore) Reset(ctx context.Context) error {
	return s.coord.ResetCounter(ctx, semaphoreKey)
}
