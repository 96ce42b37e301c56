package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/ssebasarias/droptools/internal/logger"
	"github.com/ssebasarias/droptools/internal/repos"
	"github.com/ssebasarias/droptools/internal/scheduling"
	"github.com/ssebasarias/droptools/internal/types"
)

// ReservationService is the admission point for tenants onto the hourly
// grid. Re-reserving with a new estimate recomputes the weight and may move
// the tenant to a different hour.
type ReservationService struct {
	log       *logger.Logger
	slots     repos.HourSlotRepo
	scheduler *scheduling.SlotScheduler
}

func NewReservationService(baseLog *logger.Logger, slots repos.HourSlotRepo, scheduler *scheduling.SlotScheduler) *ReservationService {
	return &ReservationService{
		log:       baseLog.With("service", "ReservationService"),
		slots:     slots,
		scheduler: scheduler,
	}
}

// EnsureSlots seeds the 24 hour-slot rows at startup.
func (s *ReservationService) EnsureSlots(ctx context.Context) error {
	if err := s.slots.EnsureDefaults(ctx, nil); err != nil {
		return fmt.Errorf("seed hour slots: %w", err)
	}
	return nil
}

func (s *ReservationService) Reserve(ctx context.Context, tenantID uuid.UUID, monthlyOrdersEstimate int) (*types.Reservation, error) {
	if tenantID == uuid.Nil {
		return nil, fmt.Errorf("tenant_id required")
	}
	return s.scheduler.Reserve(ctx, tenantID, monthlyOrdersEstimate)
}
