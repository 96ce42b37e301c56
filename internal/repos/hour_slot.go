package repos

import (
  "context"
  "gorm.io/gorm"
  "gorm.io/gorm/clause"
  "github.com/ssebasarias/droptools/internal/logger"
  "github.com/ssebasarias/droptools/internal/types"
)

type HourSlotRepo interface {
  // ListByWindow returns slots with startHour <= hour < endHour, ascending.
  ListByWindow(ctx context.Context, tx *gorm.DB, startHour, endHour int) ([]*types.HourSlot, error)
  GetByHour(ctx context.Context, tx *gorm.DB, hour int) (*types.HourSlot, error)
  EnsureDefaults(ctx context.Context, tx *gorm.DB) error
}

type hourSlotRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewHourSlotRepo(db *gorm.DB, baseLog *logger.Logger) HourSlotRepo {
  return &hourSlotRepo{
    db:  db,
    log: baseLog.With("repo", "HourSlotRepo"),
  }
}

func (r *hourSlotRepo) ListByWindow(ctx context.Context, tx *gorm.DB, startHour, endHour int) ([]*types.HourSlot, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  var out []*types.HourSlot
  if err := transaction.WithContext(ctx).
    Where("hour >= ? AND hour < ?", startHour, endHour).
    Order("hour ASC").
    Find(&out).Error; err != nil {
    return nil, err
  }
  return out, nil
}

func (r *hourSlotRepo) GetByHour(ctx context.Context, tx *gorm.DB, hour int) (*types.HourSlot, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  var slot types.HourSlot
  err := transaction.WithContext(ctx).
    Where("hour = ?", hour).
    Limit(1).
    Find(&slot).Error
  if err != nil {
    return nil, err
  }
  if slot.Hour != hour {
    return nil, nil
  }
  return &slot, nil
}

// EnsureDefaults seeds one row per hour of day so reservation never hits a
// missing slot. Existing rows (operator-tuned ceilings) are left untouched.
func (r *hourSlotRepo) EnsureDefaults(ctx context.Context, tx *gorm.DB) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  slots := make([]*types.HourSlot, 0, 24)
  for h := 0; h < 24; h++ {
    slots = append(slots, &types.HourSlot{
      Hour:       h,
      MaxWeight3: 2,
      MaxWeight2: 4,
      MaxWeight1: 8,
    })
  }
  return transaction.WithContext(ctx).
    Clauses(clause.OnConflict{
      Columns:   []clause.Column{{Name: "hour"}},
      DoNothing: true,
    }).
    Create(&slots).Error
}
