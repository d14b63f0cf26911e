package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/reelforge/reelforge/internal/config"
	"github.com/reelforge/reelforge/internal/pipeline"
)

// asynqLoggerAdapter wraps slog.Logger to implement asynq.Logger interface
type asynqLoggerAdapter struct {
	logger *slog.Logger
}

func (a *asynqLoggerAdapter) Debug(args ...interface{}) {
	a.logger.Debug(fmt.Sprint(args...))
}

func (a *asynqLoggerAdapter) Info(args ...interface{}) {
	a.logger.Info(fmt.Sprint(args...))
}

func (a *asynqLoggerAdapter) Warn(args ...interface{}) {
	a.logger.Warn(fmt.Sprint(args...))
}

func (a *asynqLoggerAdapter) Error(args ...interface{}) {
	a.logger.Error(fmt.Sprint(args...))
}

func (a *asynqLoggerAdapter) Fatal(args ...interface{}) {
	a.logger.Error(fmt.Sprint(args...))
	panic(fmt.Sprint(args...))
}

// Start starts the Asynq worker in non-blocking mode and returns a stop
// function. Use this for embedded mode so the caller can coordinate
// shutdown. Stopping cancels in-flight runs cooperatively: a run exits at
// its next stage boundary, leaving the reel in its last-reached state.
func Start(cfg *config.Config, runner *pipeline.Runner) (stop func(), err error) {
	srv, mux, err := newServer(cfg, runner)
	if err != nil {
		return nil, err
	}
	if err := srv.Start(mux); err != nil {
		return nil, fmt.Errorf("failed to start worker: %w", err)
	}
	return func() { srv.Shutdown() }, nil
}

func newServer(cfg *config.Config, runner *pipeline.Runner) (*asynq.Server, *asynq.ServeMux, error) {
	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	logger := NewLogger(cfg.LogLevel, cfg.LogFormat)

	srv := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency:     5,
			ShutdownTimeout: 30 * time.Second,
			ErrorHandler:    asynq.ErrorHandlerFunc(makeErrorHandler(logger)),
			Logger:          &asynqLoggerAdapter{logger: logger},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskGenerateReel, handleGenerateReel(logger, runner))

	logger.Info("Worker starting", "concurrency", 5, "redis", cfg.RedisURL)
	return srv, mux, nil
}

// handleGenerateReel processes reel generation tasks by handing the reel id
// to the pipeline runner. The runner owns all status bookkeeping; the
// handler's only job is payload parsing and outcome logging.
func handleGenerateReel(logger *slog.Logger, runner *pipeline.Runner) func(context.Context, *asynq.Task) error {
	return func(ctx context.Context, task *asynq.Task) error {
		var payload struct {
			ReelID string `json:"reel_id"`
		}
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			// Invalid payload - don't retry
			return fmt.Errorf("invalid payload: %w", asynq.SkipRetry)
		}

		reelID, err := uuid.Parse(payload.ReelID)
		if err != nil {
			return fmt.Errorf("invalid reel id %q: %w", payload.ReelID, asynq.SkipRetry)
		}

		logger.Info("Processing reel:generate task", "reel_id", reelID)

		if err := runner.Run(ctx, reelID); err != nil {
			// The runner has already persisted the failed status; the reel
			// is terminal until the user retries.
			return fmt.Errorf("reel generation failed: %v: %w", err, asynq.SkipRetry)
		}

		return nil
	}
}

// makeErrorHandler creates an error handler function with logger closure.
func makeErrorHandler(logger *slog.Logger) func(context.Context, *asynq.Task, error) {
	return func(ctx context.Context, task *asynq.Task, err error) {
		logger.Error(
			"Task execution failed",
			"task_type", task.Type(),
			"error", err.Error(),
			"payload", string(task.Payload()),
		)
	}
}
