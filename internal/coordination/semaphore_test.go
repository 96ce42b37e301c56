package coordination

import (
	"context"
	"errors"
	"testing"

	"github.com/ssebasarias/droptools/internal/logger"
)

func coordLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger init: %v", err)
	}
	return log
}

func TestMemoryCoordinator_DecrClampsAtZero(t *testing.T) {
	c := NewMemoryCoordinator()
	ctx := context.Background()

	v, err := c.DecrCounter(ctx, "k")
	if err != nil {
		t.Fatalf("DecrCounter: %v", err)
	}
	if v != 0 {
		t.Fatalf("decrement below zero: got %d, want 0", v)
	}
	if v, _ = c.IncrCounter(ctx, "k"); v != 1 {
		t.Fatalf("incr after clamped decr: got %d, want 1", v)
	}
}

func TestBrowserSemaphore_AcquireUpToMax(t *testing.T) {
	c := NewMemoryCoordinator()
	s := NewBrowserSemaphore(c, coordLogger(t), 2)
	ctx := context.Background()

	if err := s.Acquire(ctx, 0); err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	if err := s.Acquire(ctx, 0); err != nil {
		t.Fatalf("second acquire: %v", err)
	}

	err := s.Acquire(ctx, 0)
	var timeoutErr *ErrAcquireTimeout
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("expected ErrAcquireTimeout, got %v", err)
	}
	if timeoutErr.Max != 2 {
		t.Fatalf("timeout error max: got %d, want 2", timeoutErr.Max)
	}
}

func TestBrowserSemaphore_FailedAcquireHoldsNoSlot(t *testing.T) {
	c := NewMemoryCoordinator()
	s := NewBrowserSemaphore(c, coordLogger(t), 1)
	ctx := context.Background()

	if err := s.Acquire(ctx, 0); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if err := s.Acquire(ctx, 0); err == nil {
		t.Fatalf("expected timeout while full")
	}

	// The blocked caller rolled back its increment, so one release must free
	// the only slot.
	s.Release(ctx)
	if err := s.Acquire(ctx, 0); err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
}

func TestBrowserSemaphore_Reset(t *testing.T) {
	c := NewMemoryCoordinator()
	s := NewBrowserSemaphore(c, coordLogger(t), 1)
	ctx := context.Background()

	if err := s.Acquire(ctx, 0); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if err := s.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if err := s.Acquire(ctx, 0); err != nil {
		t.Fatalf("acquire after reset: %v", err)
	}
}
