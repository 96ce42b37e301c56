package handlers

import (
  "errors"
  "net/http"
  "github.com/gin-gonic/gin"
  "github.com/google/uuid"
  "github.com/ssebasarias/droptools/internal/logger"
  "github.com/ssebasarias/droptools/internal/scheduling"
  "github.com/ssebasarias/droptools/internal/services"
)

type ReservationHandler struct {
  log    *logger.Logger
  resSvc *services.ReservationService
}

func NewReservationHandler(log *logger.Logger, resSvc *services.ReservationService) *ReservationHandler {
  return &ReservationHandler{
    log:    log.With("handler", "ReservationHandler"),
    resSvc: resSvc,
  }
}

type reserveRequest struct {
  TenantID              string `json:"tenant_id" binding:"required"`
  MonthlyOrdersEstimate int    `json:"monthly_orders_estimate"`
}

// POST /api/reservations
// Reserve (or move) a tenant's hourly reporting slot.
func (h *ReservationHandler) Reserve(c *gin.Context) {
  var req reserveRequest
  if err := c.ShouldBindJSON(&req); err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
    return
  }
  tenantID, err := uuid.Parse(req.TenantID)
  if err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "tenant_id must be a uuid"})
    return
  }
  res, err := h.resSvc.Reserve(c.Request.Context(), tenantID, req.MonthlyOrdersEstimate)
  if err != nil {
    var capErr *scheduling.CapacityError
    if errors.As(err, &capErr) {
      c.JSON(http.StatusConflict, gin.H{"error": capErr.Error(), "weight": capErr.Weight})
      return
    }
    h.log.Error("Reserve failed", "tenant_id", tenantID, "error", err)
    c.JSON(http.StatusInternalServerError, gin.H{"error": "reservation failed"})
    return
  }
  c.JSON(http.StatusCreated, res)
}
