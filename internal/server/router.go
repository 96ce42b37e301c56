package server

import (
  "github.com/gin-gonic/gin"
  "github.com/gin-contrib/cors"
  "github.com/ssebasarias/droptools/internal/handlers"
)

type RouterConfig struct {
  ReservationHandler *handlers.ReservationHandler
  RunHandler         *handlers.RunHandler
  ClusterHandler     *handlers.ClusterHandler
  SemaphoreHandler   *handlers.SemaphoreHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
  router := gin.Default()

  // Cors
  router.Use(cors.New(cors.Config{
    AllowOrigins: []string{
      "http://localhost:80",
      "http://localhost:3000",
    },
    AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
    AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
    AllowCredentials: true,
  }))

  router.GET("/healthcheck", handlers.HealthCheck)

  api := router.Group("/api")
  {
    // Scheduling
    api.POST("/reservations", cfg.ReservationHandler.Reserve)
    api.POST("/runs/trigger", cfg.RunHandler.Trigger)
    api.GET("/runs/:id", cfg.RunHandler.GetRun)
    // Clustering
    api.POST("/clusters/feedback", cfg.ClusterHandler.SubmitFeedback)
    api.GET("/decisions", cfg.ClusterHandler.ListDecisions)
    // Operations
    api.POST("/semaphore/reset", cfg.SemaphoreHandler.Reset)
  }

  return router
}
