package handlers

import (
	"fmt"
	"time"

	"github.com/ssebasarias/droptools/internal/clients/dropi"
	"github.com/ssebasarias/droptools/internal/coordination"
	"github.com/ssebasarias/droptools/internal/jobs"
	"github.com/ssebasarias/droptools/internal/jobs/runtime"
	"github.com/ssebasarias/droptools/internal/logger"
	"github.com/ssebasarias/droptools/internal/repos"
	"github.com/ssebasarias/droptools/internal/scheduling"
	"github.com/ssebasarias/droptools/internal/services"
	"github.com/ssebasarias/droptools/internal/types"
	"github.com/ssebasarias/droptools/internal/utils"
)

// DownloadCompareHandler runs one tenant's download-and-compare phase: count
// the pending backlog on the portal, partition it into ranges, persist the
// range rows, and fan out one process_range job per range. The counting call
// drives a browser, so it holds a semaphore slot; range jobs acquire their
// own slots later.
type DownloadCompareHandler struct {
	log        *logger.Logger
	runTenants repos.ReportRunTenantRepo
	ranges     repos.OrderRangeRepo
	jobs       repos.JobRunRepo
	portal     dropi.Portal
	semaphore  *coordination.BrowserSemaphore
	finalizer  *services.FinalizerService
	rangeSize  int
	acquire    time.Duration
}

func NewDownloadCompareHandler(
	baseLog *logger.Logger,
	runTenants repos.ReportRunTenantRepo,
	ranges repos.OrderRangeRepo,
	jobs repos.JobRunRepo,
	portal dropi.Portal,
	semaphore *coordination.BrowserSemaphore,
	finalizer *services.FinalizerService,
) *DownloadCompareHandler {
	log := baseLog.With("handler", "DownloadCompareHandler")
	return &DownloadCompareHandler{
		log:        log,
		runTenants: runTenants,
		ranges:     ranges,
		jobs:       jobs,
		portal:     portal,
		semaphore:  semaphore,
		finalizer:  finalizer,
		rangeSize:  utils.GetEnvAsInt("RANGE_SIZE", 50, log),
		acquire:    time.Duration(utils.GetEnvAsInt("BROWSER_ACQUIRE_TIMEOUT_SECONDS", 600, log)) * time.Second,
	}
}

func (h *DownloadCompareHandler) Type() string { return jobs.TypeDownloadCompare }

func (h *DownloadCompareHandler) Run(jc *runtime.Context) error {
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

	rt, err := h.runTenants.GetByRunAndTenant(jc.Ctx, nil, runID, tenantID)
	if err != nil {
		jc.Fail("load", err)
		return nil
	}
	if rt == nil {
		jc.Fail("load", fmt.Errorf("run tenant not found run_id=%s tenant_id=%s", runID, tenantID))
		return nil
	}
	if rt.DCStatus == types.DCStatusCompleted || rt.DCStatus == types.DCStatusFailed {
		jc.Succeed("done", map[string]any{"skipped": true})
		return nil
	}

	if err := h.runTenants.UpdateFields(jc.Ctx, nil, rt.ID, map[string]interface{}{
		"dc_status": types.DCStatusRunning,
	}); err != nil {
		jc.Fail("load", err)
		return nil
	}

	jc.Progress("acquire_session")
	if err := h.semaphore.Acquire(jc.Ctx, h.acquire); err != nil {
		// Timeout is contention, not a tenant problem: fail the job so the
		// queue retries when a slot frees up.
		jc.Fail("acquire_session", err)
		return nil
	}
	jc.Progress("count_pending")
	pending, countErr := h.portal.CountPendingOrders(jc.Ctx, tenantID)
	h.semaphore.Release(jc.Ctx)
	if countErr != nil {
		if h.failTenantOnFinalAttempt(jc, rt, countErr) {
			return nil
		}
		jc.Fail("count_pending", countErr)
		return nil
	}

	if pending == 0 {
		if err := h.runTenants.UpdateFields(jc.Ctx, nil, rt.ID, map[string]interface{}{
			"dc_status":            types.DCStatusCompleted,
			"total_pending_orders": 0,
			"total_ranges":         0,
		}); err != nil {
			jc.Fail("finalize", err)
			return nil
		}
		rt.DCStatus = types.DCStatusCompleted
		if err := h.finalizer.CheckRun(jc.Ctx, runID); err != nil {
			h.log.Warn("Run completion check failed", "run_id", runID, "error", err)
		}
		jc.Succeed("done", map[string]any{"pending_orders": 0})
		return nil
	}

	jc.Progress("partition")
	parts := scheduling.PartitionRanges(pending, h.rangeSize)

	// Re-runs after a mid-flight failure must not duplicate range rows.
	existing, err := h.ranges.GetByRunTenantStart(jc.Ctx, nil, runID, tenantID, parts[0].Start)
	if err != nil {
		jc.Fail("partition", err)
		return nil
	}
	if existing == nil {
		rows := make([]*types.OrderRange, 0, len(parts))
		for _, p := range parts {
			rows = append(rows, &types.OrderRange{
				RunID:      runID,
				TenantID:   tenantID,
				StartIndex: p.Start,
				EndIndex:   p.End,
				Status:     types.RangeStatusPending,
			})
		}
		if _, err := h.ranges.Create(jc.Ctx, nil, rows); err != nil {
			jc.Fail("partition", err)
			return nil
		}
	}

	if err := h.runTenants.UpdateFields(jc.Ctx, nil, rt.ID, map[string]interface{}{
		"total_pending_orders": pending,
		"total_ranges":         len(parts),
	}); err != nil {
		jc.Fail("partition", err)
		return nil
	}

	jc.Progress("enqueue_ranges")
	rangeJobs := make([]*types.JobRun, 0, len(parts))
	for _, p := range parts {
		rangeJobs = append(rangeJobs, jobs.NewProcessRangeJob(runID, tenantID, p.Start, p.End))
	}
	if _, err := h.jobs.Create(jc.Ctx, nil, rangeJobs); err != nil {
		jc.Fail("enqueue_ranges", err)
		return nil
	}

	h.log.Info("Tenant backlog partitioned",
		"run_id", runID,
		"tenant_id", tenantID,
		"pending_orders", pending,
		"ranges", len(parts))
	jc.Succeed("done", map[string]any{
		"pending_orders": pending,
		"ranges":         len(parts),
	})
	return nil
}

// failTenantOnFinalAttempt marks the tenant dc_failed when the job has no
// retries left, so the run can still reach a terminal state. Returns true if
// it consumed the failure.
func (h *DownloadCompareHandler) failTenantOnFinalAttempt(jc *runtime.Context, rt *types.ReportRunTenant, cause error) bool {
	if jc.Job == nil || jc.Job.Attempts < jobs.MaxAttempts {
		return false
	}
	if err := h.runTenants.UpdateFields(jc.Ctx, nil, rt.ID, map[string]interface{}{
		"dc_status": types.DCStatusFailed,
		"failed":    true,
		"error":     cause.Error(),
	}); err != nil {
		h.log.Warn("Tenant failure write failed", "run_id", rt.RunID, "tenant_id", rt.TenantID, "error", err)
	}
	if err := h.finalizer.CheckRun(jc.Ctx, rt.RunID); err != nil {
		h.log.Warn("Run completion check failed", "run_id", rt.RunID, "error", err)
	}
	jc.Fail("count_pending", cause)
	return true
}
