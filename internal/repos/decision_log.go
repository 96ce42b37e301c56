package repos

import (
  "context"
  "gorm.io/gorm"
  "github.com/ssebasarias/droptools/internal/logger"
  "github.com/ssebasarias/droptools/internal/types"
)

type DecisionLogRepo interface {
  Create(ctx context.Context, tx *gorm.DB, entries []*types.MatchDecisionLog) error
  List(ctx context.Context, tx *gorm.DB, limit, offset int) ([]*types.MatchDecisionLog, error)
}

type decisionLogRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewDecisionLogRepo(db *gorm.DB, baseLog *logger.Logger) DecisionLogRepo {
  return &decisionLogRepo{
    db:  db,
    log: baseLog.With("repo", "DecisionLogRepo"),
  }
}

func (r *decisionLogRepo) Create(ctx context.Context, tx *gorm.DB, entries []*types.MatchDecisionLog) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if len(entries) == 0 {
    return nil
  }
  return transaction.WithContext(ctx).Create(&entries).Error
}

func (r *decisionLogRepo) List(ctx context.Context, tx *gorm.DB, limit, offset int) ([]*types.MatchDecisionLog, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if limit <= 0 || limit > 500 {
    limit = 100
  }
  if offset < 0 {
    offset = 0
  }
  var out []*types.MatchDecisionLog
  if err := transaction.WithContext(ctx).
    Order("created_at DESC").
    Limit(limit).
    Offset(offset).
    Find(&out).Error; err != nil {
    return nil, err
  }
  return out, nil
}
