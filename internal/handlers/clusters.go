package handlers

import (
  "net/http"
  "strconv"
  "github.com/gin-gonic/gin"
  "github.com/ssebasarias/droptools/internal/logger"
  "github.com/ssebasarias/droptools/internal/repos"
  "github.com/ssebasarias/droptools/internal/services"
)

type ClusterHandler struct {
  log         *logger.Logger
  feedbackSvc *services.FeedbackService
  decisions   repos.DecisionLogRepo
}

func NewClusterHandler(log *logger.Logger, feedbackSvc *services.FeedbackService, decisions repos.DecisionLogRepo) *ClusterHandler {
  return &ClusterHandler{
    log:         log.With("handler", "ClusterHandler"),
    feedbackSvc: feedbackSvc,
    decisions:   decisions,
  }
}

// POST /api/clusters/feedback
// Record a human verdict on a clustering decision.
func (h *ClusterHandler) SubmitFeedback(c *gin.Context) {
  var in services.FeedbackInput
  if err := c.ShouldBindJSON(&in); err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
    return
  }
  row, err := h.feedbackSvc.Submit(c.Request.Context(), in)
  if err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
    return
  }
  c.JSON(http.StatusCreated, row)
}

// GET /api/decisions
// Page through the decision audit log, newest first.
func (h *ClusterHandler) ListDecisions(c *gin.Context) {
  limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
  offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
  rows, err := h.decisions.List(c.Request.Context(), nil, limit, offset)
  if err != nil {
    h.log.Error("Decision list failed", "error", err)
    c.JSON(http.StatusInternalServerError, gin.H{"error": "decision list failed"})
    return
  }
  c.JSON(http.StatusOK, gin.H{"decisions": rows})
}
