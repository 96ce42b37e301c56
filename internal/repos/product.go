package repos

import (
  "context"
  "time"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/ssebasarias/droptools/internal/logger"
  "github.com/ssebasarias/droptools/internal/types"
)

type ProductRepo interface {
  GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Product, error)
  // GetUnclustered returns products not yet assigned to a cluster that are
  // ready for matching: both a concept and an embedding must be present.
  GetUnclustered(ctx context.Context, tx *gorm.DB, limit int) ([]*types.Product, error)
  MarkClustered(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type productRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewProductRepo(db *gorm.DB, baseLog *logger.Logger) ProductRepo {
  return &productRepo{
    db:  db,
    log: baseLog.With("repo", "ProductRepo"),
  }
}

func (r *productRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Product, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  var out []*types.Product
  if len(ids) == 0 {
    return out, nil
  }
  if err := transaction.WithContext(ctx).
    Where("id IN ?", ids).
    Find(&out).Error; err != nil {
    return nil, err
  }
  return out, nil
}

func (r *productRepo) GetUnclustered(ctx context.Context, tx *gorm.DB, limit int) ([]*types.Product, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if limit <= 0 {
    limit = 50
  }
  var out []*types.Product
  if err := transaction.WithContext(ctx).
    Where("clustered = ? AND concept <> '' AND embedding IS NOT NULL", false).
    Order("created_at ASC").
    Limit(limit).
    Find(&out).Error; err != nil {
    return nil, err
  }
  return out, nil
}

func (r *productRepo) MarkClustered(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if id == uuid.Nil {
    return nil
  }
  return transaction.WithContext(ctx).
    Model(&types.Product{}).
    Where("id = ?", id).
    Updates(map[string]interface{}{
      "clustered":  true,
      "updated_at": time.Now(),
    }).Error
}
