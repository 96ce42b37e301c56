package handlers

import (
  "net/http"
  "time"
  "github.com/gin-gonic/gin"
  "github.com/google/uuid"
  "github.com/ssebasarias/droptools/internal/logger"
  "github.com/ssebasarias/droptools/internal/repos"
  "github.com/ssebasarias/droptools/internal/services"
)

type RunHandler struct {
  log        *logger.Logger
  orch       *services.OrchestratorService
  runs       repos.ReportRunRepo
  runTenants repos.ReportRunTenantRepo
}

func NewRunHandler(log *logger.Logger, orch *services.OrchestratorService, runs repos.ReportRunRepo, runTenants repos.ReportRunTenantRepo) *RunHandler {
  return &RunHandler{
    log:        log.With("handler", "RunHandler"),
    orch:       orch,
    runs:       runs,
    runTenants: runTenants,
  }
}

type triggerRequest struct {
  Hour *int `json:"hour"`
}

// POST /api/runs/trigger
// Manually open a run for an hour (defaults to the current hour).
func (h *RunHandler) Trigger(c *gin.Context) {
  var req triggerRequest
  if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
    c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
    return
  }
  hour := time.Now().Hour()
  if req.Hour != nil {
    hour = *req.Hour
  }
  run, err := h.orch.TriggerHour(c.Request.Context(), hour)
  if err != nil {
    h.log.Error("Trigger failed", "hour", hour, "error", err)
    c.JSON(http.StatusInternalServerError, gin.H{"error": "trigger failed"})
    return
  }
  c.JSON(http.StatusCreated, run)
}

// GET /api/runs/:id
// Run status plus per-tenant progress.
func (h *RunHandler) GetRun(c *gin.Context) {
  id, err := uuid.Parse(c.Param("id"))
  if err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "id must be a uuid"})
    return
  }
  run, err := h.runs.GetByID(c.Request.Context(), nil, id)
  if err != nil {
    h.log.Error("Run lookup failed", "run_id", id, "error", err)
    c.JSON(http.StatusInternalServerError, gin.H{"error": "run lookup failed"})
    return
  }
  if run == nil {
    c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
    return
  }
  tenants, err := h.runTenants.ListByRun(c.Request.Context(), nil, id)
  if err != nil {
    h.log.Error("Run tenants lookup failed", "run_id", id, "error", err)
    c.JSON(http.StatusInternalServerError, gin.H{"error": "run lookup failed"})
    return
  }
  c.JSON(http.StatusOK, gin.H{"run": run, "tenants": tenants})
}
