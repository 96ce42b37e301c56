package handlers

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ssebasarias/droptools/internal/clients/dropi"
	"github.com/ssebasarias/droptools/internal/coordination"
	"github.com/ssebasarias/droptools/internal/jobs"
	"github.com/ssebasarias/droptools/internal/jobs/runtime"
	"github.com/ssebasarias/droptools/internal/logger"
	"github.com/ssebasarias/droptools/internal/repos"
	"github.com/ssebasarias/droptools/internal/services"
	"github.com/ssebasarias/droptools/internal/types"
	"github.com/ssebasarias/droptools/internal/utils"
)

// ProcessRangeHandler reports one order range through the portal. The redis
// range lock is the arbiter of ownership: losing the lock race means another
// worker has the range and this job exits quietly. After its own range the
// handler keeps the browser slot and steals further pending ranges from the
// same run, heaviest tenants first, until none remain.
type ProcessRangeHandler struct {
	log        *logger.Logger
	runTenants repos.ReportRunTenantRepo
	ranges     repos.OrderRangeRepo
	jobs       repos.JobRunRepo
	portal     dropi.Portal
	semaphore  *coordination.BrowserSemaphore
	rangeLock  *coordination.RangeLock
	finalizer  *services.FinalizerService
	acquire    time.Duration
}

func NewProcessRangeHandler(
	baseLog *logger.Logger,
	runTenants repos.ReportRunTenantRepo,
	ranges repos.OrderRangeRepo,
	jobs repos.JobRunRepo,
	portal dropi.Portal,
	semaphore *coordination.BrowserSemaphore,
	rangeLock *coordination.RangeLock,
	finalizer *services.FinalizerService,
) *ProcessRangeHandler {
	log := baseLog.With("handler", "ProcessRangeHandler")
	return &ProcessRangeHandler{
		log:        log,
		runTenants: runTenants,
		ranges:     ranges,
		jobs:       jobs,
		portal:     portal,
		semaphore:  semaphore,
		rangeLock:  rangeLock,
		finalizer:  finalizer,
		acquire:    time.Duration(utils.GetEnvAsInt("BROWSER_ACQUIRE_TIMEOUT_SECONDS", 600, log)) * time.Second,
	}
}

func (h *ProcessRangeHandler) Type() string { return jobs.TypeProcessRange }

func (h *ProcessRangeHandler) Run(jc *runtime.Context) error {
	runID, ok := jc.PayloadUUID("run_id")
	if !ok {
		jc.Fail("validate", fmt.Errorf("payload missing run_id"))
		return nil
	}
	tenantID, ok := jc.PayloadUUID("tenant_id")
	if !ok {
		jc.Fail("validate", fmt.Errorf("payload missing tenant_id"))
		return nil
	}
	startIndex, ok := jc.PayloadInt("start_index")
	if !ok {
		jc.Fail("validate", fmt.Errorf("payload missing start_index"))
		return nil
	}

	row, err := h.ranges.GetByRunTenantStart(jc.Ctx, nil, runID, tenantID, startIndex)
	if err != nil {
		jc.Fail("load", err)
		return nil
	}
	if row == nil {
		jc.Fail("load", fmt.Errorf("order range not found run_id=%s tenant_id=%s start=%d", runID, tenantID, startIndex))
		return nil
	}

	token := jc.Job.ID.String()

	jc.Progress("acquire_session")
	if err := h.semaphore.Acquire(jc.Ctx, h.acquire); err != nil {
		// Out of retries means nobody will come back for this range; retire
		// it so the run can still terminate.
		if jc.Job.Attempts >= jobs.MaxAttempts {
			h.failRangePermanently(jc, row, err)
		}
		jc.Fail("acquire_session", err)
		return nil
	}
	defer h.semaphore.Release(jc.Ctx)

	jc.Progress("report_range")
	processed, procErr := h.handleRange(jc, row, token)
	if procErr != nil {
		if jc.Job.Attempts >= jobs.MaxAttempts || row.Attempts+1 >= jobs.MaxAttempts {
			h.failRangePermanently(jc, row, procErr)
			jc.Fail("report_range", procErr)
			return nil
		}
		jc.Fail("report_range", procErr)
		return nil
	}

	jc.Progress("steal")
	stolen := h.stealLoop(jc, runID, token)

	jc.Succeed("done", map[string]any{
		"processed": processed,
		"stolen":    stolen,
	})
	return nil
}

// handleRange processes one range under its lock. Returns (false, nil) when
// the range needs no work here: already completed, or locked by another
// owner.
func (h *ProcessRangeHandler) handleRange(jc *runtime.Context, row *types.OrderRange, token string) (bool, error) {
	if row.Status == types.RangeStatusCompleted {
		return false, nil
	}
	got, err := h.rangeLock.TryAcquire(jc.Ctx, row.RunID, row.TenantID, row.StartIndex, token)
	if err != nil {
		return false, fmt.Errorf("range lock: %w", err)
	}
	if !got {
		return false, nil
	}
	defer h.rangeLock.Release(jc.Ctx, row.RunID, row.TenantID, row.StartIndex)

	// Lock won after another worker finished: nothing left to do.
	fresh, err := h.ranges.GetByRunTenantStart(jc.Ctx, nil, row.RunID, row.TenantID, row.StartIndex)
	if err != nil {
		return false, err
	}
	if fresh == nil || fresh.Status == types.RangeStatusCompleted {
		return false, nil
	}
	row = fresh

	if err := h.ranges.UpdateFields(jc.Ctx, nil, row.ID, map[string]interface{}{
		"status":    types.RangeStatusLocked,
		"locked_by": token,
	}); err != nil {
		return false, err
	}
	if err := h.ranges.UpdateFields(jc.Ctx, nil, row.ID, map[string]interface{}{
		"status":   types.RangeStatusProcessing,
		"attempts": row.Attempts + 1,
	}); err != nil {
		return false, err
	}

	if err := h.portal.ReportRange(jc.Ctx, row.TenantID, row.StartIndex, row.EndIndex); err != nil {
		if uErr := h.ranges.UpdateFields(jc.Ctx, nil, row.ID, map[string]interface{}{
			"status":    types.RangeStatusFailed,
			"error":     err.Error(),
			"locked_by": "",
		}); uErr != nil {
			h.log.Warn("Range failure write failed", "range_id", row.ID, "error", uErr)
		}
		return false, err
	}

	if err := h.ranges.UpdateFields(jc.Ctx, nil, row.ID, map[string]interface{}{
		"status":    types.RangeStatusCompleted,
		"error":     "",
		"locked_by": "",
	}); err != nil {
		return false, err
	}
	h.completeRange(jc, row)
	return true, nil
}

// completeRange bumps the tenant counter and runs the completion check.
func (h *ProcessRangeHandler) completeRange(jc *runtime.Context, row *types.OrderRange) {
	rt, err := h.runTenants.GetByRunAndTenant(jc.Ctx, nil, row.RunID, row.TenantID)
	if err != nil || rt == nil {
		h.log.Warn("Run tenant lookup failed after range", "run_id", row.RunID, "tenant_id", row.TenantID, "error", err)
		return
	}
	fresh, err := h.runTenants.IncrementRangesCompleted(jc.Ctx, nil, rt.ID)
	if err != nil {
		h.log.Warn("Counter increment failed", "run_id", row.RunID, "tenant_id", row.TenantID, "error", err)
		return
	}
	if err := h.finalizer.CheckTenant(jc.Ctx, fresh); err != nil {
		h.log.Warn("Completion check failed", "run_id", row.RunID, "tenant_id", row.TenantID, "error", err)
	}
}

// failRangePermanently retires a range with no retries left. The counter
// still advances so the tenant and run reach a terminal state; the Failed
// flag records the partial outcome.
func (h *ProcessRangeHandler) failRangePermanently(jc *runtime.Context, row *types.OrderRange, cause error) {
	if err := h.ranges.UpdateFields(jc.Ctx, nil, row.ID, map[string]interface{}{
		"status":    types.RangeStatusFailed,
		"error":     cause.Error(),
		"locked_by": "",
	}); err != nil {
		h.log.Warn("Range failure write failed", "range_id", row.ID, "error", err)
	}
	rt, err := h.runTenants.GetByRunAndTenant(jc.Ctx, nil, row.RunID, row.TenantID)
	if err != nil || rt == nil {
		h.log.Warn("Run tenant lookup failed after range failure", "run_id", row.RunID, "tenant_id", row.TenantID, "error", err)
		return
	}
	if err := h.runTenants.UpdateFields(jc.Ctx, nil, rt.ID, map[string]interface{}{
		"failed": true,
		"error":  cause.Error(),
	}); err != nil {
		h.log.Warn("Tenant failure write failed", "run_id", row.RunID, "tenant_id", row.TenantID, "error", err)
	}
	fresh, err := h.runTenants.IncrementRangesCompleted(jc.Ctx, nil, rt.ID)
	if err != nil {
		h.log.Warn("Counter increment failed", "run_id", row.RunID, "tenant_id", row.TenantID, "error", err)
		return
	}
	if err := h.finalizer.CheckTenant(jc.Ctx, fresh); err != nil {
		h.log.Warn("Completion check failed", "run_id", row.RunID, "tenant_id", row.TenantID, "error", err)
	}
}

// stealLoop drains further pending ranges from the run while this worker
// already holds a browser slot. Heaviest tenants come back first from
// ListByRun, so large backlogs get priority. A steal that errors is handed
// back to the queue rather than retried here.
func (h *ProcessRangeHandler) stealLoop(jc *runtime.Context, runID uuid.UUID, token string) int {
	stolen := 0
	for {
		if jc.Ctx.Err() != nil {
			return stolen
		}
		row := h.nextPendingRange(jc, runID)
		if row == nil {
			return stolen
		}
		processed, err := h.handleRange(jc, row, token)
		if err != nil {
			if row.Attempts+1 >= jobs.MaxAttempts {
				h.failRangePermanently(jc, row, err)
				continue
			}
			// The range's own job may already have exited on lock contention,
			// so a fresh job keeps it scheduled.
			if _, qErr := h.jobs.Create(jc.Ctx, nil, []*types.JobRun{
				jobs.NewProcessRangeJob(row.RunID, row.TenantID, row.StartIndex, row.EndIndex),
			}); qErr != nil {
				h.log.Warn("Steal requeue failed", "range_id", row.ID, "error", qErr)
			}
			h.log.Warn("Stolen range failed", "range_id", row.ID, "error", err)
			return stolen
		}
		if processed {
			stolen++
		}
	}
}

func (h *ProcessRangeHandler) nextPendingRange(jc *runtime.Context, runID uuid.UUID) *types.OrderRange {
	tenants, err := h.runTenants.ListByRun(jc.Ctx, nil, runID)
	if err != nil {
		h.log.Warn("Steal tenant list failed", "run_id", runID, "error", err)
		return nil
	}
	for _, rt := range tenants {
		if rt.DCStatus == types.DCStatusCompleted || rt.DCStatus == types.DCStatusFailed {
			continue
		}
		pending, err := h.ranges.ListByRunTenantStatus(jc.Ctx, nil, runID, rt.TenantID, types.RangeStatusPending)
		if err != nil {
			h.log.Warn("Steal range list failed", "run_id", runID, "tenant_id", rt.TenantID, "error", err)
			continue
		}
		if len(pending) > 0 {
			return pending[0]
		}
	}
	return nil
}
