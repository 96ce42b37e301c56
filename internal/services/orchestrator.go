package services

import (
	"context"
	"fmt"
	"time"

	"github.com/ssebasarias/droptools/internal/jobs"
	"github.com/ssebasarias/droptools/internal/logger"
	"github.com/ssebasarias/droptools/internal/repos"
	"github.com/ssebasarias/droptools/internal/scheduling"
	"github.com/ssebasarias/droptools/internal/types"
)

// OrchestratorService opens hourly report runs. One run covers every tenant
// reserved for that hour; tenants enter at dc_pending and one
// download_compare job per tenant is queued for the workers.
type OrchestratorService struct {
	log          *logger.Logger
	runs         repos.ReportRunRepo
	runTenants   repos.ReportRunTenantRepo
	reservations repos.ReservationRepo
	jobs         repos.JobRunRepo
}

func NewOrchestratorService(
	baseLog *logger.Logger,
	runs repos.ReportRunRepo,
	runTenants repos.ReportRunTenantRepo,
	reservations repos.ReservationRepo,
	jobs repos.JobRunRepo,
) *OrchestratorService {
	return &OrchestratorService{
		log:          baseLog.With("service", "OrchestratorService"),
		runs:         runs,
		runTenants:   runTenants,
		reservations: reservations,
		jobs:         jobs,
	}
}

// TriggerHour opens a run for the given hour. An hour with no reservations
// still produces a run row, immediately completed, so every scheduled hour
// leaves an audit trail.
func (s *OrchestratorService) TriggerHour(ctx context.Context, hour int) (*types.ReportRun, error) {
	if hour < 0 || hour > 23 {
		return nil, fmt.Errorf("invalid hour %d", hour)
	}
	reserved, err := s.reservations.ListByHour(ctx, nil, hour)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}

	now := time.Now()
	run, err := s.runs.Create(ctx, nil, &types.ReportRun{
		Hour:      hour,
		Status:    types.RunStatusRunning,
		StartedAt: &now,
	})
	if err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}

	if len(reserved) == 0 {
		finished := time.Now()
		if err := s.runs.UpdateFields(ctx, nil, run.ID, map[string]interface{}{
			"status":      types.RunStatusCompleted,
			"finished_at": finished,
		}); err != nil {
			return nil, fmt.Errorf("close empty run: %w", err)
		}
		run.Status = types.RunStatusCompleted
		run.FinishedAt = &finished
		s.log.Info("Run opened with no reservations", "run_id", run.ID, "hour", hour)
		return run, nil
	}

	rows := make([]*types.ReportRunTenant, 0, len(reserved))
	for _, res := range reserved {
		rows = append(rows, &types.ReportRunTenant{
			RunID:    run.ID,
			TenantID: res.TenantID,
			Weight:   res.CalculatedWeight,
			DCStatus: types.DCStatusPending,
		})
	}
	if _, err := s.runTenants.Create(ctx, nil, rows); err != nil {
		return nil, fmt.Errorf("create run tenants: %w", err)
	}

	dcJobs := make([]*types.JobRun, 0, len(reserved))
	for _, res := range reserved {
		dcJobs = append(dcJobs, jobs.NewDownloadCompareJob(run.ID, res.TenantID))
	}
	if _, err := s.jobs.Create(ctx, nil, dcJobs); err != nil {
		return nil, fmt.Errorf("enqueue download_compare jobs: %w", err)
	}

	s.log.Info("Run opened", "run_id", run.ID, "hour", hour, "tenants", len(reserved))
	return run, nil
}

// StartScheduler fires TriggerHour at the top of each window hour. The
// minute ticker plus last-fired tracking keeps a restarted process from
// double-triggering inside the same hour.
func (s *OrchestratorService) StartScheduler(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(1 * time.Minute)
		defer ticker.Stop()
		lastFired := -1
		for {
			select {
			case <-ctx.Done():
				s.log.Info("Hourly scheduler stopped")
				return
			case now := <-ticker.C:
				hour := now.Hour()
				if hour == lastFired {
					continue
				}
				if hour < scheduling.DefaultWindowStart || hour >= scheduling.DefaultWindowEnd {
					lastFired = hour
					continue
				}
				if _, err := s.TriggerHour(ctx, hour); err != nil {
					s.log.Error("Hourly trigger failed", "hour", hour, "error", err)
					continue
				}
				lastFired = hour
			}
		}
	}()
}
