package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ssebasarias/droptools/internal/logger"
	"github.com/ssebasarias/droptools/internal/repos"
	"github.com/ssebasarias/droptools/internal/types"
)

// FinalizerService closes out tenants and runs from range-completion counters.
// Ranges finish in arbitrary order across workers, so completion is decided
// purely by ranges_completed >= total_ranges, never by which range was last.
type FinalizerService struct {
	log        *logger.Logger
	runs       repos.ReportRunRepo
	runTenants repos.ReportRunTenantRepo
	ranges     repos.OrderRangeRepo
}

func NewFinalizerService(baseLog *logger.Logger, runs repos.ReportRunRepo, runTenants repos.ReportRunTenantRepo, ranges repos.OrderRangeRepo) *FinalizerService {
	return &FinalizerService{
		log:        baseLog.With("service", "FinalizerService"),
		runs:       runs,
		runTenants: runTenants,
		ranges:     ranges,
	}
}

// CheckTenant promotes a tenant to its terminal dc status once every range is
// accounted for. The counter includes permanently failed ranges; the Failed
// flag decides which terminal status applies.
func (s *FinalizerService) CheckTenant(ctx context.Context, rt *types.ReportRunTenant) error {
	if rt == nil || rt.ID == uuid.Nil {
		return nil
	}
	if rt.DCStatus == types.DCStatusCompleted || rt.DCStatus == types.DCStatusFailed {
		return s.CheckRun(ctx, rt.RunID)
	}
	if rt.TotalRanges <= 0 || rt.RangesCompleted < rt.TotalRanges {
		return nil
	}
	status := types.DCStatusCompleted
	if rt.Failed {
		status = types.DCStatusFailed
	}
	if err := s.runTenants.UpdateFields(ctx, nil, rt.ID, map[string]interface{}{
		"dc_status": status,
	}); err != nil {
		return fmt.Errorf("finalize tenant: %w", err)
	}
	s.log.Info("Tenant finalized",
		"run_id", rt.RunID,
		"tenant_id", rt.TenantID,
		"dc_status", status,
		"ranges", rt.TotalRanges)
	return s.CheckRun(ctx, rt.RunID)
}

// CheckRun closes the run once no tenant remains in a non-terminal state.
// Idempotent: concurrent callers converge on the same terminal write.
func (s *FinalizerService) CheckRun(ctx context.Context, runID uuid.UUID) error {
	run, err := s.runs.GetByID(ctx, nil, runID)
	if err != nil {
		return fmt.Errorf("finalize run lookup: %w", err)
	}
	if run == nil || run.Status == types.RunStatusCompleted || run.Status == types.RunStatusFailed {
		return nil
	}
	tenants, err := s.runTenants.ListByRun(ctx, nil, runID)
	if err != nil {
		return fmt.Errorf("finalize run tenants: %w", err)
	}
	anyFailed := false
	for _, rt := range tenants {
		if rt.DCStatus != types.DCStatusCompleted && rt.DCStatus != types.DCStatusFailed {
			return nil
		}
		if rt.DCStatus == types.DCStatusFailed || rt.Failed {
			anyFailed = true
		}
	}

	failedRanges, err := s.ranges.CountFailedByRun(ctx, nil, runID)
	if err != nil {
		return fmt.Errorf("finalize run failed ranges: %w", err)
	}

	now := time.Now()
	updates := map[string]interface{}{
		"status":      types.RunStatusCompleted,
		"finished_at": now,
	}
	if anyFailed || failedRanges > 0 {
		updates["status"] = types.RunStatusFailed
		updates["error"] = fmt.Sprintf("%d range(s) failed", failedRanges)
	}
	if err := s.runs.UpdateFields(ctx, nil, runID, updates); err != nil {
		return fmt.Errorf("finalize run: %w", err)
	}
	s.log.Info("Run finalized",
		"run_id", runID,
		"status", updates["status"],
		"tenants", len(tenants),
		"failed_ranges", failedRanges)
	return nil
}
