package repos

import (
  "context"
  "time"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/ssebasarias/droptools/internal/logger"
  "github.com/ssebasarias/droptools/internal/types"
)

type OrderRangeRepo interface {
  Create(ctx context.Context, tx *gorm.DB, rows []*types.OrderRange) ([]*types.OrderRange, error)
  GetByRunTenantStart(ctx context.Context, tx *gorm.DB, runID, tenantID uuid.UUID, startIndex int) (*types.OrderRange, error)
  ListByRunTenantStatus(ctx context.Context, tx *gorm.DB, runID, tenantID uuid.UUID, status string) ([]*types.OrderRange, error)
  UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
  CountFailedByRun(ctx context.Context, tx *gorm.DB, runID uuid.UUID) (int64, error)
}

type orderRangeRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewOrderRangeRepo(db *gorm.DB, baseLog *logger.Logger) OrderRangeRepo {
  return &orderRangeRepo{
    db:  db,
    log: baseLog.With("repo", "OrderRangeRepo"),
  }
}

func (r *orderRangeRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.OrderRange) ([]*types.OrderRange, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if len(rows) == 0 {
    return []*types.OrderRange{}, nil
  }
  if err := transaction.WithContext(ctx).Create(&rows).Error; err != nil {
    return nil, err
  }
  return rows, nil
}

func (r *orderRangeRepo) GetByRunTenantStart(ctx context.Context, tx *gorm.DB, runID, tenantID uuid.UUID, startIndex int) (*types.OrderRange, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if runID == uuid.Nil || tenantID == uuid.Nil {
    return nil, nil
  }
  var row types.OrderRange
  err := transaction.WithContext(ctx).
    Where("run_id = ? AND tenant_id = ? AND start_index = ?", runID, tenantID, startIndex).
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

func (r *orderRangeRepo) ListByRunTenantStatus(ctx context.Context, tx *gorm.DB, runID, tenantID uuid.UUID, status string) ([]*types.OrderRange, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  var out []*types.OrderRange
  if runID == uuid.Nil || tenantID == uuid.Nil {
    return out, nil
  }
  if err := transaction.WithContext(ctx).
    Where("run_id = ? AND tenant_id = ? AND status = ?", runID, tenantID, status).
    Order("start_index ASC").
    Find(&out).Error; err != nil {
    return nil, err
  }
  return out, nil
}

func (r *orderRangeRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
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
    Model(&types.OrderRange{}).
    Where("id = ?", id).
    Updates(updates).Error
}

func (r *orderRangeRepo) CountFailedByRun(ctx context.Context, tx *gorm.DB, runID uuid.UUID) (int64, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  var n int64
  if runID == uuid.Nil {
    return 0, nil
  }
  if err := transaction.WithContext(ctx).
    Model(&types.OrderRange{}).
    Where("run_id = ? AND status = ?", runID, types.RangeStatusFailed).
    Count(&n).Error; err != nil {
    return 0, err
  }
  return n, nil
}
