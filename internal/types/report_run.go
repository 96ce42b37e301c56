package types

import (
  "time"
  "github.com/google/uuid"
)

const (
  RunStatusPending   = "pending"
  RunStatusRunning   = "running"
  RunStatusCompleted = "completed"
  RunStatusFailed    = "failed"
)

// DCStatus is the tenant's overall state for a run, not just the
// download-and-compare phase: it stays dc_running while range jobs work the
// backlog and reaches dc_completed/dc_failed only once every range is
// accounted for. Run finalization reads these as the tenant's terminal state.
const (
  DCStatusPending   = "dc_pending"
  DCStatusRunning   = "dc_running"
  DCStatusCompleted = "dc_completed"
  DCStatusFailed    = "dc_failed"
)

const (
  RangeStatusPending    = "pending"
  RangeStatusLocked     = "locked"
  RangeStatusProcessing = "processing"
  RangeStatusCompleted  = "completed"
  RangeStatusFailed     = "failed"
)

// ReportRun is one hourly sweep over every tenant reserved for that hour.
type ReportRun struct {
  ID         uuid.UUID   `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
  Hour       int         `gorm:"column:hour;not null;index" json:"hour"`
  Status     string      `gorm:"column:status;not null;index" json:"status"`
  Error      string      `gorm:"column:error" json:"error,omitempty"`
  StartedAt  *time.Time  `gorm:"column:started_at" json:"started_at,omitempty"`
  FinishedAt *time.Time  `gorm:"column:finished_at" json:"finished_at,omitempty"`
  CreatedAt  time.Time   `gorm:"not null;default:now();index" json:"created_at"`
  UpdatedAt  time.Time   `gorm:"not null;default:now()" json:"updated_at"`
}

func (ReportRun) TableName() string {
  return "report_run"
}

// ReportRunTenant tracks one tenant's download+compare phase and range
// counters for a run. TotalRanges/RangesCompleted drive run completion;
// completion order of individual ranges is never assumed.
type ReportRunTenant struct {
  ID                 uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
  RunID              uuid.UUID  `gorm:"type:uuid;not null;index:idx_run_tenant,unique" json:"run_id"`
  TenantID           uuid.UUID  `gorm:"type:uuid;not null;index:idx_run_tenant,unique" json:"tenant_id"`
  Weight             int        `gorm:"column:weight;not null;default:1" json:"weight"`
  DCStatus           string     `gorm:"column:dc_status;not null;index" json:"dc_status"`
  TotalPendingOrders int        `gorm:"column:total_pending_orders;not null;default:0" json:"total_pending_orders"`
  TotalRanges        int        `gorm:"column:total_ranges;not null;default:0" json:"total_ranges"`
  RangesCompleted    int        `gorm:"column:ranges_completed;not null;default:0" json:"ranges_completed"`
  Failed             bool       `gorm:"column:failed;not null;default:false" json:"failed"`
  Error              string     `gorm:"column:error" json:"error,omitempty"`
  CreatedAt          time.Time  `gorm:"not null;default:now()" json:"created_at"`
  UpdatedAt          time.Time  `gorm:"not null;default:now()" json:"updated_at"`
}

func (ReportRunTenant) TableName() string {
  return "report_run_tenant"
}

// OrderRange is a contiguous 1-based inclusive interval over a tenant's
// pending-order backlog. LockedBy records the worker token that currently
// owns the matching redis lock.
type OrderRange struct {
  ID         uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
  RunID      uuid.UUID  `gorm:"type:uuid;not null;index:idx_range_run_tenant" json:"run_id"`
  TenantID   uuid.UUID  `gorm:"type:uuid;not null;index:idx_range_run_tenant" json:"tenant_id"`
  StartIndex int        `gorm:"column:start_index;not null" json:"start_index"`
  EndIndex   int        `gorm:"column:end_index;not null" json:"end_index"`
  Status     string     `gorm:"column:status;not null;index" json:"status"`
  LockedBy   string     `gorm:"column:locked_by" json:"locked_by,omitempty"`
  Attempts   int        `gorm:"column:attempts;not null;default:0" json:"attempts"`
  Error      string     `gorm:"column:error" json:"error,omitempty"`
  CreatedAt  time.Time  `gorm:"not null;default:now()" json:"created_at"`
  UpdatedAt  time.Time  `gorm:"not null;default:now()" json:"updated_at"`
}

func (OrderRange) TableName() string {
  return "order_range"
}
