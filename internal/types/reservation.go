package types

import (
  "time"
  "github.com/google/uuid"
)

// HourSlot capacity is partitioned by weight class. Each ceiling is an
// independent pool: a slot full of weight-1 tenants can still admit a
// weight-3 tenant.
type HourSlot struct {
  ID         uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
  Hour       int        `gorm:"column:hour;not null;uniqueIndex" json:"hour"`
  MaxWeight3 int        `gorm:"column:max_weight_3;not null;default:2" json:"max_weight_3"`
  MaxWeight2 int        `gorm:"column:max_weight_2;not null;default:4" json:"max_weight_2"`
  MaxWeight1 int        `gorm:"column:max_weight_1;not null;default:8" json:"max_weight_1"`
  CreatedAt  time.Time  `gorm:"not null;default:now()" json:"created_at"`
  UpdatedAt  time.Time  `gorm:"not null;default:now()" json:"updated_at"`
}

func (HourSlot) TableName() string {
  return "hour_slot"
}

type Reservation struct {
  ID                    uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
  TenantID              uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex" json:"tenant_id"`
  HourSlotID            uuid.UUID  `gorm:"type:uuid;not null;index" json:"hour_slot_id"`
  Hour                  int        `gorm:"column:hour;not null;index" json:"hour"`
  MonthlyOrdersEstimate int        `gorm:"column:monthly_orders_estimate;not null;default:0" json:"monthly_orders_estimate"`
  CalculatedWeight      int        `gorm:"column:calculated_weight;not null;default:1" json:"calculated_weight"`
  CreatedAt             time.Time  `gorm:"not null;default:now()" json:"created_at"`
  UpdatedAt             time.Time  `gorm:"not null;default:now()" json:"updated_at"`
}

func (Reservation) TableName() string {
  return "reservation"
}
