package handlers

import (
  "net/http"
  "github.com/gin-gonic/gin"
  "github.com/ssebasarias/droptools/internal/coordination"
  "github.com/ssebasarias/droptools/internal/logger"
)

type SemaphoreHandler struct {
  log       *logger.Logger
  semaphore *coordination.BrowserSemaphore
}

func NewSemaphoreHandler(log *logger.Logger, semaphore *coordination.BrowserSemaphore) *SemaphoreHandler {
  return &SemaphoreHandler{
    log:       log.With("handler", "SemaphoreHandler"),
    semaphore: semaphore,
  }
}

// POST /api/semaphore/reset
// Operator escape hatch for slots orphaned by dead workers.
func (h *SemaphoreHandler) Reset(c *gin.Context) {
  if err := h.semaphore.Reset(c.Request.Context()); err != nil {
    h.log.Error("Semaphore reset failed", "error", err)
    c.JSON(http.StatusInternalServerError, gin.H{"error": "reset failed"})
    return
  }
  h.log.Warn("Browser semaphore reset by operator")
  c.JSON(http.StatusOK, gin.H{"status": "reset"})
}
