package handlers

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ssebasarias/droptools/internal/coordination"
	"github.com/ssebasarias/droptools/internal/jobs"
	"github.com/ssebasarias/droptools/internal/jobs/runtime"
	"github.com/ssebasarias/droptools/internal/logger"
	"github.com/ssebasarias/droptools/internal/services"
	"github.com/ssebasarias/droptools/internal/types"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger init: %v", err)
	}
	return log
}

type fakeRunTenantRepo struct {
	rows []*types.ReportRunTenant
}

func (f *fakeRunTenantRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.ReportRunTenant) ([]*types.ReportRunTenant, error) {
	f.rows = append(f.rows, rows...)
	return rows, nil
}

func (f *fakeRunTenantRepo) GetByRunAndTenant(ctx context.Context, tx *gorm.DB, runID, tenantID uuid.UUID) (*types.ReportRunTenant, error) {
	for _, rt := range f.rows {
		if rt.RunID == runID && rt.TenantID == tenantID {
			return rt, nil
		}
	}
	return nil, nil
}

func (f *fakeRunTenantRepo) ListByRun(ctx context.Context, tx *gorm.DB, runID uuid.UUID) ([]*types.ReportRunTenant, error) {
	var out []*types.ReportRunTenant
	for _, rt := range f.rows {
		if rt.RunID == runID {
			out = append(out, rt)
		}
	}
	return out, nil
}

func (f *fakeRunTenantRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	for _, rt := range f.rows {
		if rt.ID != id {
			continue
		}
		if v, ok := updates["dc_status"]; ok {
			rt.DCStatus = v.(string)
		}
		if v, ok := updates["failed"]; ok {
			rt.Failed = v.(bool)
		}
		if v, ok := updates["error"]; ok {
			rt.Error = v.(string)
		}
		if v, ok := updates["total_pending_orders"]; ok {
			rt.TotalPendingOrders = v.(int)
		}
		if v, ok := updates["total_ranges"]; ok {
			rt.TotalRanges = v.(int)
		}
		return nil
	}
	return fmt.Errorf("run tenant %s not found", id)
}

func (f *fakeRunTenantRepo) IncrementRangesCompleted(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.ReportRunTenant, error) {
	for _, rt := range f.rows {
		if rt.ID == id {
			rt.RangesCompleted++
			return rt, nil
		}
	}
	return nil, fmt.Errorf("run tenant %s not found", id)
}

type fakeRangeRepo struct {
	rows []*types.OrderRange
}

func (f *fakeRangeRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.OrderRange) ([]*types.OrderRange, error) {
	for _, r := range rows {
		if r.ID == uuid.Nil {
			r.ID = uuid.New()
		}
	}
	f.rows = append(f.rows, rows...)
	return rows, nil
}

func (f *fakeRangeRepo) GetByRunTenantStart(ctx context.Context, tx *gorm.DB, runID, tenantID uuid.UUID, startIndex int) (*types.OrderRange, error) {
	for _, r := range f.rows {
		if r.RunID == runID && r.TenantID == tenantID && r.StartIndex == startIndex {
			return r, nil
		}
	}
	return nil, nil
}

func (f *fakeRangeRepo) ListByRunTenantStatus(ctx context.Context, tx *gorm.DB, runID, tenantID uuid.UUID, status string) ([]*types.OrderRange, error) {
	var out []*types.OrderRange
	for _, r := range f.rows {
		if r.RunID == runID && r.TenantID == tenantID && r.Status == status {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRangeRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	for _, r := range f.rows {
		if r.ID != id {
			continue
		}
		if v, ok := updates["status"]; ok {
			r.Status = v.(string)
		}
		if v, ok := updates["error"]; ok {
			r.Error = v.(string)
		}
		if v, ok := updates["locked_by"]; ok {
			r.LockedBy = v.(string)
		}
		if v, ok := updates["attempts"]; ok {
			r.Attempts = v.(int)
		}
		return nil
	}
	return fmt.Errorf("order range %s not found", id)
}

func (f *fakeRangeRepo) CountFailedByRun(ctx context.Context, tx *gorm.DB, runID uuid.UUID) (int64, error) {
	var n int64
	for _, r := range f.rows {
		if r.RunID == runID && r.Status == types.RangeStatusFailed {
			n++
		}
	}
	return n, nil
}

type fakeRunRepo struct {
	runs []*types.ReportRun
}

func (f *fakeRunRepo) Create(ctx context.Context, tx *gorm.DB, run *types.ReportRun) (*types.ReportRun, error) {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	f.runs = append(f.runs, run)
	return run, nil
}

func (f *fakeRunRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.ReportRun, error) {
	for _, r := range f.runs {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, nil
}

func (f *fakeRunRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	for _, r := range f.runs {
		if r.ID != id {
			continue
		}
		if v, ok := updates["status"]; ok {
			r.Status = v.(string)
		}
		if v, ok := updates["error"]; ok {
			r.Error = v.(string)
		}
		return nil
	}
	return fmt.Errorf("run %s not found", id)
}

type fakeJobRepo struct {
	created []*types.JobRun
	updates map[uuid.UUID]map[string]interface{}
}

func (f *fakeJobRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.JobRun) ([]*types.JobRun, error) {
	for _, j := range rows {
		if j.ID == uuid.Nil {
			j.ID = uuid.New()
		}
	}
	f.created = append(f.created, rows...)
	return rows, nil
}

func (f *fakeJobRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.JobRun, error) {
	return nil, nil
}

func (f *fakeJobRepo) ClaimNextRunnable(ctx context.Context, tx *gorm.DB, maxAttempts int, retryDelay, staleRunning time.Duration) (*types.JobRun, error) {
	return nil, nil
}

func (f *fakeJobRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	if f.updates == nil {
		f.updates = map[uuid.UUID]map[string]interface{}{}
	}
	if f.updates[id] == nil {
		f.updates[id] = map[string]interface{}{}
	}
	for k, v := range updates {
		f.updates[id][k] = v
	}
	return nil
}

func (f *fakeJobRepo) Heartbeat(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	return nil
}

type fakePortal struct {
	pending    int
	countErr   error
	countCalls int
	reportErr  error
	reported   []string
}

func (f *fakePortal) CountPendingOrders(ctx context.Context, tenantID uuid.UUID) (int, error) {
	f.countCalls++
	if f.countErr != nil {
		return 0, f.countErr
	}
	return f.pending, nil
}

func (f *fakePortal) ReportRange(ctx context.Context, tenantID uuid.UUID, startIndex, endIndex int) error {
	if f.reportErr != nil {
		return f.reportErr
	}
	f.reported = append(f.reported, fmt.Sprintf("%s:%d-%d", tenantID, startIndex, endIndex))
	return nil
}

type downloadCompareFixture struct {
	handler    *DownloadCompareHandler
	runs       *fakeRunRepo
	runTenants *fakeRunTenantRepo
	ranges     *fakeRangeRepo
	jobRepo    *fakeJobRepo
	run        *types.ReportRun
	tenant     *types.ReportRunTenant
}

func newDownloadCompareFixture(t *testing.T, portal *fakePortal) *downloadCompareFixture {
	t.Helper()
	log := testLogger(t)
	runs := &fakeRunRepo{}
	runTenants := &fakeRunTenantRepo{}
	ranges := &fakeRangeRepo{}
	jobRepo := &fakeJobRepo{}

	run := &types.ReportRun{ID: uuid.New(), Hour: 9, Status: types.RunStatusRunning}
	runs.runs = append(runs.runs, run)
	tenant := &types.ReportRunTenant{
		ID:       uuid.New(),
		RunID:    run.ID,
		TenantID: uuid.New(),
		Weight:   2,
		DCStatus: types.DCStatusPending,
	}
	runTenants.rows = append(runTenants.rows, tenant)

	semaphore := coordination.NewBrowserSemaphore(coordination.NewMemoryCoordinator(), log, 1)
	finalizer := services.NewFinalizerService(log, runs, runTenants, ranges)
	return &downloadCompareFixture{
		handler:    NewDownloadCompareHandler(log, runTenants, ranges, jobRepo, portal, semaphore, finalizer),
		runs:       runs,
		runTenants: runTenants,
		ranges:     ranges,
		jobRepo:    jobRepo,
		run:        run,
		tenant:     tenant,
	}
}

func (fx *downloadCompareFixture) runJob(t *testing.T, attempts int) *types.JobRun {
	t.Helper()
	job := jobs.NewDownloadCompareJob(fx.run.ID, fx.tenant.TenantID)
	job.ID = uuid.New()
	job.Status = "running"
	job.Attempts = attempts
	jc := runtime.NewContext(context.Background(), nil, job, fx.jobRepo)
	if err := fx.handler.Run(jc); err != nil {
		t.Fatalf("Run: %v", err)
	}
	return job
}

func TestDownloadCompare_CountErrorOnLastAttemptFailsTenantAndRun(t *testing.T) {
	portal := &fakePortal{countErr: fmt.Errorf("portal login rejected")}
	fx := newDownloadCompareFixture(t, portal)

	job := fx.runJob(t, jobs.MaxAttempts)

	if fx.tenant.DCStatus != types.DCStatusFailed {
		t.Fatalf("expected tenant dc_failed after final attempt, got %s", fx.tenant.DCStatus)
	}
	if !fx.tenant.Failed {
		t.Fatalf("expected tenant failed flag set")
	}
	if fx.run.Status != types.RunStatusFailed {
		t.Fatalf("expected run failed once its only tenant is terminal, got %s", fx.run.Status)
	}
	updates := fx.jobRepo.updates[job.ID]
	if updates == nil || updates["status"] != "failed" {
		t.Fatalf("expected job marked failed, got %v", updates)
	}
}

func TestDownloadCompare_CountErrorBeforeLastAttemptLeavesTenantRetryable(t *testing.T) {
	portal := &fakePortal{countErr: fmt.Errorf("portal timeout")}
	fx := newDownloadCompareFixture(t, portal)

	job := fx.runJob(t, 1)

	if fx.tenant.DCStatus != types.DCStatusRunning {
		t.Fatalf("expected tenant left dc_running for retry, got %s", fx.tenant.DCStatus)
	}
	if fx.tenant.Failed {
		t.Fatalf("tenant must not be flagged failed while retries remain")
	}
	if fx.run.Status != types.RunStatusRunning {
		t.Fatalf("expected run untouched, got %s", fx.run.Status)
	}
	updates := fx.jobRepo.updates[job.ID]
	if updates == nil || updates["status"] != "failed" {
		t.Fatalf("expected job handed back to the queue as failed, got %v", updates)
	}
}

func TestDownloadCompare_PartitionsBacklogAndEnqueuesRangeJobs(t *testing.T) {
	portal := &fakePortal{pending: 120}
	fx := newDownloadCompareFixture(t, portal)

	fx.runJob(t, 1)

	if fx.tenant.TotalPendingOrders != 120 {
		t.Fatalf("expected pending order total recorded, got %d", fx.tenant.TotalPendingOrders)
	}
	if fx.tenant.TotalRanges != 3 {
		t.Fatalf("expected 3 ranges for 120 orders at size 50, got %d", fx.tenant.TotalRanges)
	}
	if len(fx.ranges.rows) != 3 {
		t.Fatalf("expected 3 range rows, got %d", len(fx.ranges.rows))
	}
	last := fx.ranges.rows[2]
	if last.StartIndex != 101 || last.EndIndex != 120 {
		t.Fatalf("expected final range 101-120, got %d-%d", last.StartIndex, last.EndIndex)
	}
	if len(fx.jobRepo.created) != 3 {
		t.Fatalf("expected 3 range jobs enqueued, got %d", len(fx.jobRepo.created))
	}
	for _, j := range fx.jobRepo.created {
		if j.JobType != jobs.TypeProcessRange {
			t.Fatalf("expected %s job, got %s", jobs.TypeProcessRange, j.JobType)
		}
	}
}

func TestDownloadCompare_ZeroPendingCompletesTenant(t *testing.T) {
	portal := &fakePortal{pending: 0}
	fx := newDownloadCompareFixture(t, portal)

	fx.runJob(t, 1)

	if fx.tenant.DCStatus != types.DCStatusCompleted {
		t.Fatalf("expected empty backlog to complete the tenant, got %s", fx.tenant.DCStatus)
	}
	if fx.run.Status != types.RunStatusCompleted {
		t.Fatalf("expected run completed, got %s", fx.run.Status)
	}
	if len(fx.jobRepo.created) != 0 {
		t.Fatalf("expected no range jobs for empty backlog, got %d", len(fx.jobRepo.created))
	}
}
