package scheduling

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/ssebasarias/droptools/internal/logger"
	"github.com/ssebasarias/droptools/internal/repos"
	"github.com/ssebasarias/droptools/internal/types"
)

// Scheduling window, end-exclusive. Runs only trigger for daytime hours.
const (
	DefaultWindowStart = 6
	DefaultWindowEnd   = 18
)

// CapacityError means every slot in the window is full for the tenant's
// weight class. Lighter or heavier tenants may still fit; capacity pools
// are independent per class.
type CapacityError struct {
	Weight      int
	WindowStart int
	WindowEnd   int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("no slot capacity for weight class %d in window [%02d:00, %02d:00)", e.Weight, e.WindowStart, e.WindowEnd)
}

// SlotScheduler assigns tenants to hourly reporting slots. Assignment is
// first-fit ascending over the window, so early hours fill before late ones
// and a tenant's hour is stable while capacity holds.
type SlotScheduler struct {
	slots        repos.HourSlotRepo
	reservations repos.ReservationRepo
	log          *logger.Logger
	windowStart  int
	windowEnd    int
}

func NewSlotScheduler(slots repos.HourSlotRepo, reservations repos.ReservationRepo, baseLog *logger.Logger) *SlotScheduler {
	return &SlotScheduler{
		slots:        slots,
		reservations: reservations,
		log:          baseLog.With("component", "SlotScheduler"),
		windowStart:  DefaultWindowStart,
		windowEnd:    DefaultWindowEnd,
	}
}

func maxForWeight(slot *types.HourSlot, weight int) int {
	switch weight {
	case 3:
		return slot.MaxWeight3
	case 2:
		return slot.MaxWeight2
	default:
		return slot.MaxWeight1
	}
}

// Reserve recomputes the tenant's weight from its estimate and places it in
// the first window hour with spare capacity for that class. The tenant's own
// existing reservation never counts against capacity, so re-reserving with an
// unchanged weight is idempotent and re-reserving after a weight change only
// competes with other tenants.
func (s *SlotScheduler) Reserve(ctx context.Context, tenantID uuid.UUID, monthlyOrdersEstimate int) (*types.Reservation, error) {
	weight := WeightFromEstimate(monthlyOrdersEstimate)

	slots, err := s.slots.ListByWindow(ctx, nil, s.windowStart, s.windowEnd)
	if err != nil {
		return nil, fmt.Errorf("list hour slots: %w", err)
	}
	for _, slot := range slots {
		used, err := s.reservations.CountBySlotAndWeight(ctx, nil, slot.ID, weight, tenantID)
		if err != nil {
			return nil, fmt.Errorf("count slot reservations: %w", err)
		}
		if used >= int64(maxForWeight(slot, weight)) {
			continue
		}
		res, err := s.reservations.Upsert(ctx, nil, &types.Reservation{
			TenantID:              tenantID,
			HourSlotID:            slot.ID,
			Hour:                  slot.Hour,
			MonthlyOrdersEstimate: monthlyOrdersEstimate,
			CalculatedWeight:      weight,
		})
		if err != nil {
			return nil, fmt.Errorf("upsert reservation: %w", err)
		}
		s.log.Info("Reservation placed",
			"tenant_id", tenantID,
			"hour", slot.Hour,
			"weight", weight,
			"estimate", monthlyOrdersEstimate)
		return res, nil
	}
	return nil, &CapacityError{Weight: weight, WindowStart: s.windowStart, WindowEnd: s.windowEnd}
}
