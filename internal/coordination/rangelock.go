package coordination

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ssebasarias/droptools/internal/logger"
)

// DefaultRangeLockTTL bounds how long a crashed worker can pin a range. Lock
// expiry is the only crash recovery for stuck ranges; there is no heartbeat
// renewal.
const DefaultRangeLockTTL = 50 * time.Minute

// RangeLock serializes processing of one order range per run and tenant.
// TryAcquire is a single atomic attempt: contention is a normal outcome and
// callers simply look for other work.
type RangeLock struct {
	coord Coordinator
	log   *logger.Logger
	ttl   time.Duration
}

func NewRangeLock(coord Coordinator, baseLog *logger.Logger, ttl time.Duration) *RangeLock {
	if ttl <= 0 {
		ttl = DefaultRangeLockTTL
	}
	return &RangeLock{
		coord: coord,
		log:   baseLog.With("component", "RangeLock"),
		ttl:   ttl,
	}
}

func rangeLockKey(runID, tenantID uuid.UUID, rangeStart int) string {
	return fmt.Sprintf("range_lock:%s:%s:%d", runID, tenantID, rangeStart)
}

func (l *RangeLock) TryAcquire(ctx context.Context, runID, tenantID uuid.UUID, rangeStart int, ownerToken string) (bool, error) {
	return l.coord.TryAcquireKey(ctx, rangeLockKey(runID, tenantID, rangeStart), ownerToken, l.ttl)
}

// Release deletes the lock explicitly on completion or failure; the TTL stays
// as the safety net for owners that never get here.
func (l *RangeLock) Release(ctx context.Context, runID, tenantID uuid.UUID, rangeStart int) {
	if err := l.coord.ReleaseKey(ctx, rangeLockKey(runID, tenantID, rangeStart)); err != nil {
		l.log.Warn("Range lock release failed", "run_id", runID, "tenant_id", tenantID, "range_start", rangeStart, "error", err)
	}
}
