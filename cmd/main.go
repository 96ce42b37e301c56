package main

import (
  "context"
  "fmt"
  "os"
  "time"
  "github.com/ssebasarias/droptools/internal/logger"
  "github.com/ssebasarias/droptools/internal/utils"
  "github.com/ssebasarias/droptools/internal/db"
  "github.com/ssebasarias/droptools/internal/repos"
  "github.com/ssebasarias/droptools/internal/clients/dropi"
  "github.com/ssebasarias/droptools/internal/clients/qdrant"
  "github.com/ssebasarias/droptools/internal/clustering"
  "github.com/ssebasarias/droptools/internal/coordination"
  "github.com/ssebasarias/droptools/internal/jobs/handlers"
  jobruntime "github.com/ssebasarias/droptools/internal/jobs/runtime"
  "github.com/ssebasarias/droptools/internal/jobs/worker"
  "github.com/ssebasarias/droptools/internal/scheduling"
  "github.com/ssebasarias/droptools/internal/services"
  httphandlers "github.com/ssebasarias/droptools/internal/handlers"
  "github.com/ssebasarias/droptools/internal/server"
)

func main() {
  // Logger
  logMode := os.Getenv("LOG_MODE")
  if logMode == "" {
    logMode = "development"
  }
  log, err := logger.New(logMode)
  if err != nil {
    fmt.Printf("Failed to init logger: %v\n", err)
    os.Exit(1)
  }
  defer log.Sync()

  // Env
  log.Info("Loading environment variables from main...")
  batchSize := utils.GetEnvAsInt("CLUSTER_BATCH_SIZE", 50, log)
  topK := utils.GetEnvAsInt("CLUSTER_TOP_K", 5, log)
  idleSeconds := utils.GetEnvAsInt("CLUSTER_IDLE_SECONDS", 30, log)
  maxSessions := utils.GetEnvAsInt("MAX_BROWSER_SESSIONS", 3, log)
  lockTTLMinutes := utils.GetEnvAsInt("RANGE_LOCK_TTL_MINUTES", 50, log)

  // Postgres
  postgresService, err := db.NewPostgresService(log)
  if err != nil {
    log.Error("Postgres init failed", "error", err)
    os.Exit(1)
  }
  if err = postgresService.AutoMigrateAll(); err != nil {
    log.Warn("Postgres auto migration failed", "error", err)
  }
  thePG := postgresService.DB()

  // Repos
  log.Info("Setting up Repos from main...")
  productRepo := repos.NewProductRepo(thePG, log)
  clusterRepo := repos.NewClusterRepo(thePG, log)
  decisionLogRepo := repos.NewDecisionLogRepo(thePG, log)
  feedbackRepo := repos.NewFeedbackRepo(thePG, log)
  weightProfileRepo := repos.NewWeightProfileRepo(thePG, log)
  hourSlotRepo := repos.NewHourSlotRepo(thePG, log)
  reservationRepo := repos.NewReservationRepo(thePG, log)
  reportRunRepo := repos.NewReportRunRepo(thePG, log)
  reportRunTenantRepo := repos.NewReportRunTenantRepo(thePG, log)
  orderRangeRepo := repos.NewOrderRangeRepo(thePG, log)
  jobRunRepo := repos.NewJobRunRepo(thePG, log)

  // Coordination
  log.Info("Setting up coordination from main...")
  coordinator, err := coordination.NewRedisCoordinator(log)
  if err != nil {
    log.Error("Could not init redis coordinator", "error", err)
    os.Exit(1)
  }
  semaphore := coordination.NewBrowserSemaphore(coordinator, log, maxSessions)
  rangeLock := coordination.NewRangeLock(coordinator, log, time.Duration(lockTTLMinutes)*time.Minute)

  // Vector index
  qdrantCfg, err := qdrant.ResolveConfigFromEnv()
  if err != nil {
    log.Error("Could not resolve qdrant config", "error", err)
    os.Exit(1)
  }
  vectorIndex, err := qdrant.NewVectorIndex(log, qdrantCfg)
  if err != nil {
    log.Error("Could not init qdrant vector index", "error", err)
    os.Exit(1)
  }

  // Portal client
  portal, err := dropi.NewPortal(log)
  if err != nil {
    log.Error("Could not init dropi portal client", "error", err)
    os.Exit(1)
  }

  // Services
  log.Info("Setting up Services from main...")
  weightStore := clustering.NewWeightStore(weightProfileRepo, log)
  engine := clustering.NewEngine(log, productRepo, clusterRepo, decisionLogRepo, weightStore, vectorIndex, clustering.EngineConfig{
    BatchSize:    batchSize,
    TopK:         topK,
    IdleInterval: time.Duration(idleSeconds) * time.Second,
  })
  engine.StartWorker(context.Background())

  finalizerService := services.NewFinalizerService(log, reportRunRepo, reportRunTenantRepo, orderRangeRepo)
  slotScheduler := scheduling.NewSlotScheduler(hourSlotRepo, reservationRepo, log)
  reservationService := services.NewReservationService(log, hourSlotRepo, slotScheduler)
  if err := reservationService.EnsureSlots(context.Background()); err != nil {
    log.Warn("Hour slot seeding failed", "error", err)
  }
  orchestratorService := services.NewOrchestratorService(log, reportRunRepo, reportRunTenantRepo, reservationRepo, jobRunRepo)
  orchestratorService.StartScheduler(context.Background())
  feedbackService := services.NewFeedbackService(log, feedbackRepo)

  // Job workers
  log.Info("Setting up job workers from main...")
  registry := jobruntime.NewRegistry()
  if err := registry.Register(handlers.NewDownloadCompareHandler(log, reportRunTenantRepo, orderRangeRepo, jobRunRepo, portal, semaphore, finalizerService)); err != nil {
    log.Error("Handler registration failed", "error", err)
    os.Exit(1)
  }
  if err := registry.Register(handlers.NewProcessRangeHandler(log, reportRunTenantRepo, orderRangeRepo, jobRunRepo, portal, semaphore, rangeLock, finalizerService)); err != nil {
    log.Error("Handler registration failed", "error", err)
    os.Exit(1)
  }
  jobWorker := worker.NewWorker(thePG, log, jobRunRepo, registry)
  jobWorker.Start(context.Background())

  // Handlers
  log.Info("Setting up handlers from main...")
  reservationHandler := httphandlers.NewReservationHandler(log, reservationService)
  runHandler := httphandlers.NewRunHandler(log, orchestratorService, reportRunRepo, reportRunTenantRepo)
  clusterHandler := httphandlers.NewClusterHandler(log, feedbackService, decisionLogRepo)
  semaphoreHandler := httphandlers.NewSemaphoreHandler(log, semaphore)

  // Router
  log.Info("Setting up router from main...")
  router := server.NewRouter(server.RouterConfig{
    ReservationHandler: reservationHandler,
    RunHandler:         runHandler,
    ClusterHandler:     clusterHandler,
    SemaphoreHandler:   semaphoreHandler,
  })

  port := utils.GetEnv("PORT", "8080", log)
  fmt.Printf("Server listening on :%s\n", port)
  if err := router.Run(":" + port); err != nil {
    log.Warn("Server failed", "error", err)
  }
}
