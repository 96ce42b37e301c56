package repos

import (
  "context"
  "gorm.io/gorm"
  "github.com/ssebasarias/droptools/internal/logger"
  "github.com/ssebasarias/droptools/internal/types"
)

type FeedbackRepo interface {
  Create(ctx context.Context, tx *gorm.DB, feedback *types.MatchFeedback) (*types.MatchFeedback, error)
}

type feedbackRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewFeedbackRepo(db *gorm.DB, baseLog *logger.Logger) FeedbackRepo {
  return &feedbackRepo{
    db:  db,
    log: baseLog.With("repo", "FeedbackRepo"),
  }
}

func (r *feedbackRepo) Create(ctx context.Context, tx *gorm.DB, feedback *types.MatchFeedback) (*types.MatchFeedback, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if feedback == nil {
    return nil, nil
  }
  if err := transaction.WithContext(ctx).Create(feedback).Error; err != nil {
    return nil, err
  }
  return feedback, nil
}
