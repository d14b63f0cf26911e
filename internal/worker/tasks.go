package worker

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Task type constants
const (
	TaskGenerateReel = "reel:generate"
)

// Package-level Asynq client (singleton)
var client *asynq.Client

// InitClient initializes the global Asynq client for task enqueueing.
// Must be called before EnqueueGenerateReel.
func InitClient(redisURL string) error {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return err
	}

	client = asynq.NewClient(opt)
	return nil
}

// CloseClient closes the Asynq client connection gracefully.
func CloseClient() error {
	if client != nil {
		return client.Close()
	}
	return nil
}

// EnqueueGenerateReel enqueues a generation run for the given reel. The task
// is never retried automatically: a failed reel is terminal until the user
// triggers a retry, which enqueues a fresh task for the same inputs.
func EnqueueGenerateReel(reelID uuid.UUID) error {
	payload, err := json.Marshal(map[string]string{
		"reel_id": reelID.String(),
	})
	if err != nil {
		return err
	}

	task := asynq.NewTask(
		TaskGenerateReel,
		payload,
		asynq.MaxRetry(0),
		asynq.Timeout(30*time.Minute),
		asynq.Retention(24*time.Hour),
	)

	_, err = client.Enqueue(task)
	return err
}
