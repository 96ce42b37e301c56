package repos

import (
  "context"
  "time"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/ssebasarias/droptools/internal/logger"
  "github.com/ssebasarias/droptools/internal/types"
)

type ReportRunTenantRepo interface {
  Create(ctx context.Context, tx *gorm.DB, rows []*types.ReportRunTenant) ([]*types.ReportRunTenant, error)
  GetByRunAndTenant(ctx context.Context, tx *gorm.DB, runID, tenantID uuid.UUID) (*types.ReportRunTenant, error)
  ListByRun(ctx context.Context, tx *gorm.DB, runID uuid.UUID) ([]*types.ReportRunTenant, error)
  UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
  // IncrementRangesCompleted bumps the counter atomically and returns the
  // refreshed row so callers can run completion checks on current values.
  IncrementRangesCompleted(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.ReportRunTenant, error)
}

type reportRunTenantRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewReportRunTenantRepo(db *gorm.DB, baseLog *logger.Logger) ReportRunTenantRepo {
  return &reportRunTenantRepo{
    db:  db,
    log: baseLog.With("repo", "ReportRunTenantRepo"),
  }
}

func (r *reportRunTenantRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.ReportRunTenant) ([]*types.ReportRunTenant, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if len(rows) == 0 {
    return []*types.ReportRunTenant{}, nil
  }
  if err := transaction.WithContext(ctx).Create(&rows).Error; err != nil {
    return nil, err
  }
  return rows, nil
}

func (r *reportRunTenantRepo) GetByRunAndTenant(ctx context.Context, tx *gorm.DB, runID, tenantID uuid.UUID) (*types.ReportRunTenant, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if runID == uuid.Nil || tenantID == uuid.Nil {
    return nil, nil
  }
  var row types.ReportRunTenant
  err := transaction.WithContext(ctx).
    Where("run_id = ? AND tenant_id = ?", runID, tenantID).
    Limit(1).
    Find(&row).Error
  if err != nil {
    return nil, err
  }
  if row.ID == uuid.Nil {
    return nil, nil
  }
  return &row, nil
}

func (r *reportRunTenantRepo) ListByRun(ctx context.Context, tx *gorm.DB, runID uuid.UUID) ([]*types.ReportRunTenant, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  var out []*types.ReportRunTenant
  if runID == uuid.Nil {
    return out, nil
  }
  if err := transaction.WithContext(ctx).
    Where("run_id = ?", runID).
    Order("weight DESC, created_at ASC").
    Find(&out).Error; err != nil {
    return nil, err
  }
  return out, nil
}

func (r *reportRunTenantRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if id == uuid.Nil {
    return nil
  }
  if updates == nil {
    updates = map[string]interface{}{}
  }
  if _, ok := updates["updated_at"]; !ok {
    updates["updated_at"] = time.Now()
  }
  return transaction.WithContext(ctx).
    Model(&types.ReportRunTenant{}).
    Where("id = ?", id).
    Updates(updates).Error
}

func (r *reportRunTenantRepo) IncrementRangesCompleted(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.ReportRunTenant, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if id == uuid.Nil {
    return nil, nil
  }
  err := transaction.WithContext(ctx).
    Model(&types.ReportRunTenant{}).
    Where("id = ?", id).
    Updates(map[string]interface{}{
      "ranges_completed": gorm.Expr("ranges_completed + 1"),
      "updated_at":       time.Now(),
    }).Error
  if err != nil {
    return nil, err
  }
  var row types.ReportRunTenant
  if err := transaction.WithContext(ctx).
    Where("id = ?", id).
    Limit(1).
    Find(&row).Error; err != nil {
    return nil, err
  }
  return &row, nil
}
