package repos

import (
  "context"
  "time"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/ssebasarias/droptools/internal/logger"
  "github.com/ssebasarias/droptools/internal/types"
)

type ReportRunRepo interface {
  Create(ctx context.Context, tx *gorm.DB, run *types.ReportRun) (*types.ReportRun, error)
  GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.ReportRun, error)
  UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
}

type reportRunRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewReportRunRepo(db *gorm.DB, baseLog *logger.Logger) ReportRunRepo {
  return &reportRunRepo{
    db:  db,
    log: baseLog.With("repo", "ReportRunRepo"),
  }
}

func (r *reportRunRepo) Create(ctx context.Context, tx *gorm.DB, run *types.ReportRun) (*types.ReportRun, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if run == nil {
    return nil, nil
  }
  if err := transaction.WithContext(ctx).Create(run).Error; err != nil {
    return nil, err
  }
  return run, nil
}

func (r *reportRunRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.ReportRun, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if id == uuid.Nil {
    return nil, nil
  }
  var run types.ReportRun
  err := transaction.WithContext(ctx).
    Where("id = ?", id).
    Limit(1).
    Find(&run).Error
  if err != nil {
    return nil, err
  }
  if run.ID == uuid.Nil {
    return nil, nil
  }
  return &run, nil
}

func (r *reportRunRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
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
    Model(&types.ReportRun{}).
    Where("id = ?", id).
    Updates(updates).Error
}
