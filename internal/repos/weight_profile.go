package repos

import (
  "context"
  "gorm.io/gorm"
  "github.com/ssebasarias/droptools/internal/logger"
  "github.com/ssebasarias/droptools/internal/types"
)

type WeightProfileRepo interface {
  GetByConcepts(ctx context.Context, tx *gorm.DB, concepts []string) ([]*types.ConceptWeightProfile, error)
}

type weightProfileRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewWeightProfileRepo(db *gorm.DB, baseLog *logger.Logger) WeightProfileRepo {
  return &weightProfileRepo{
    db:  db,
    log: baseLog.With("repo", "WeightProfileRepo"),
  }
}

func (r *weightProfileRepo) GetByConcepts(ctx context.Context, tx *gorm.DB, concepts []string) ([]*types.ConceptWeightProfile, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  var out []*types.ConceptWeightProfile
  if len(concepts) == 0 {
    return out, nil
  }
  if err := transaction.WithContext(ctx).
    Where("concept IN ?", concepts).
    Find(&out).Error; err != nil {
    return nil, err
  }
  return out, nil
}
