package repos

import (
  "context"
  "time"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "gorm.io/gorm/clause"
  "github.com/ssebasarias/droptools/internal/logger"
  "github.com/ssebasarias/droptools/internal/types"
)

type ReservationRepo interface {
  GetByTenant(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID) (*types.Reservation, error)
  // CountBySlotAndWeight counts reservations of one weight class in a slot,
  // excluding excludeTenant's own row so re-reservation stays idempotent.
  CountBySlotAndWeight(ctx context.Context, tx *gorm.DB, slotID uuid.UUID, weight int, excludeTenant uuid.UUID) (int64, error)
  Upsert(ctx context.Context, tx *gorm.DB, res *types.Reservation) (*types.Reservation, error)
  ListByHour(ctx context.Context, tx *gorm.DB, hour int) ([]*types.Reservation, error)
}

type reservationRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewReservationRepo(db *gorm.DB, baseLog *logger.Logger) ReservationRepo {
  return &reservationRepo{
    db:  db,
    log: baseLog.With("repo", "ReservationRepo"),
  }
}

func (r *reservationRepo) GetByTenant(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID) (*types.Reservation, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if tenantID == uuid.Nil {
    return nil, nil
  }
  var res types.Reservation
  err := transaction.WithContext(ctx).
    Where("tenant_id = ?", tenantID).
    Limit(1).
    Find(&res).Error
  if err != nil {
    return nil, err
  }
  if res.ID == uuid.Nil {
    return nil, nil
  }
  return &res, nil
}

func (r *reservationRepo) CountBySlotAndWeight(ctx context.Context, tx *gorm.DB, slotID uuid.UUID, weight int, excludeTenant uuid.UUID) (int64, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  q := transaction.WithContext(ctx).
    Model(&types.Reservation{}).
    Where("hour_slot_id = ? AND calculated_weight = ?", slotID, weight)
  if excludeTenant != uuid.Nil {
    q = q.Where("tenant_id <> ?", excludeTenant)
  }
  var n int64
  if err := q.Count(&n).Error; err != nil {
    return 0, err
  }
  return n, nil
}

func (r *reservationRepo) Upsert(ctx context.Context, tx *gorm.DB, res *types.Reservation) (*types.Reservation, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if res == nil {
    return nil, nil
  }
  res.UpdatedAt = time.Now()
  err := transaction.WithContext(ctx).
    Clauses(clause.OnConflict{
      Columns: []clause.Column{{Name: "tenant_id"}},
      DoUpdates: clause.AssignmentColumns([]string{
        "hour_slot_id", "hour", "monthly_orders_estimate", "calculated_weight", "updated_at",
      }),
    }).
    Create(res).Error
  if err != nil {
    return nil, err
  }
  return res, nil
}

func (r *reservationRepo) ListByHour(ctx context.Context, tx *gorm.DB, hour int) ([]*types.Reservation, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  var out []*types.Reservation
  if err := transaction.WithContext(ctx).
    Where("hour = ?", hour).
    Order("calculated_weight DESC, created_at ASC").
    Find(&out).Error; err != nil {
    return nil, err
  }
  return out, nil
}
