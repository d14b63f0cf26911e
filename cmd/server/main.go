package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/reelforge/reelforge/internal/config"
	"github.com/reelforge/reelforge/internal/database"
	"github.com/reelforge/reelforge/internal/events"
	"github.com/reelforge/reelforge/internal/health"
	"github.com/reelforge/reelforge/internal/mediacatalog"
	"github.com/reelforge/reelforge/internal/narration"
	"github.com/reelforge/reelforge/internal/pipeline"
	"github.com/reelforge/reelforge/internal/planner"
	"github.com/reelforge/reelforge/internal/reels"
	"github.com/reelforge/reelforge/internal/render"
	"github.com/reelforge/reelforge/internal/storage"
	"github.com/reelforge/reelforge/internal/worker"
)

func main() {
	// Load .env (local dev only — deployments use real env vars)
	_ = godotenv.Load()

	cfg := config.Load()
	logger := worker.NewLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	db, err := database.Init(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)

	if err := database.RunMigrations(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	if cfg.Env == "development" {
		if err := database.SeedDevData(db); err != nil {
			logger.Warn("Failed to seed dev data", "error", err)
		}
	}

	objectStore, err := storage.NewMinioStore(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize object storage: %v", err)
	}

	telemetry, err := events.NewPublisher(cfg.RedisURL, logger)
	if err != nil {
		log.Fatalf("Failed to create events publisher: %v", err)
	}
	defer telemetry.Close()

	if err := worker.InitClient(cfg.RedisURL); err != nil {
		log.Fatalf("Failed to initialize task client: %v", err)
	}
	defer worker.CloseClient()

	// Pipeline wiring
	catalog := mediacatalog.New(
		mediacatalog.NewGormFinder(db),
		objectStore,
		cfg.MediaBucket,
		cfg.SignedURLTTL,
		logger,
	)
	narrator := narration.NewSynthesizer(
		narration.NewTTSClient(cfg.TTSBaseURL, cfg.TTSAPIKey),
		narration.NewSTTClient(cfg.STTBaseURL, cfg.STTAPIKey),
		objectStore,
		db,
		cfg.AudioBucket,
		cfg.SignedURLTTL,
		logger,
	)
	timelinePlanner := planner.New(
		planner.NewHTTPSequenceClient(cfg.SequenceBaseURL, cfg.SequenceAPIKey, cfg.SequenceModel),
		logger,
	)
	renderClient := render.NewClient(
		cfg.RenderBaseURL,
		cfg.RenderAPIKey,
		cfg.RenderPollInterval,
		cfg.RenderPollTimeout,
		cfg.RenderPollErrorBudget,
		logger,
	)
	runner := pipeline.NewRunner(
		pipeline.NewGormStore(db),
		catalog,
		narrator,
		timelinePlanner,
		renderClient,
		pipeline.NewHTTPFetcher(),
		objectStore,
		telemetry,
		cfg.ReelsBucket,
		cfg.SignedURLTTL,
		cfg.DefaultVoice,
		logger,
	)

	stopWorker, err := worker.Start(cfg, runner)
	if err != nil {
		log.Fatalf("Failed to start worker: %v", err)
	}
	defer stopWorker()

	// HTTP trigger boundary
	if cfg.Env != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	router.GET("/health", gin.WrapF(health.Handler))

	api := router.Group("/api")
	{
		api.POST("/reels", reels.CreateReelHandler(db, cfg.MonthlyReelQuota))
		api.GET("/reels/:id", reels.GetReelHandler(db))
		api.POST("/reels/:id/retry", reels.RetryReelHandler(db))
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("Server starting", "port", cfg.Port, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Block until shutdown signal, then stop accepting requests and let the
	// worker wind down cooperatively.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}
}
