// Package events publishes pipeline telemetry to a Redis Stream so stage
// transitions can be observed without coupling observability to business
// logic.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// StreamReelEvents is the stream pipeline events are published to.
const StreamReelEvents = "reel:events"

// StageEvent is one observable pipeline occurrence: a state transition or an
// external-call boundary.
type StageEvent struct {
	ReelID    string `json:"reel_id"`
	Stage     string `json:"stage"`
	Outcome   string `json:"outcome"` // started | succeeded | failed | skipped
	ElapsedMS int64  `json:"elapsed_ms"`
	Detail    string `json:"detail,omitempty"`
}

// Publisher writes stage events to Redis Streams. Publishing is best-effort:
// failures are logged and never fail the pipeline run.
type Publisher struct {
	rdb    *redis.Client
	logger *slog.Logger
}

// NewPublisher creates a Publisher from a Redis URL.
func NewPublisher(redisURL string, logger *slog.Logger) (*Publisher, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	return &Publisher{rdb: redis.NewClient(opts), logger: logger}, nil
}

// Publish appends a stage event to the stream.
func (p *Publisher) Publish(ctx context.Context, event StageEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("Failed to marshal stage event", "error", err)
		return
	}

	err = p.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamReelEvents,
		MaxLen: 10000,
		Approx: true,
		ID:     "*",
		Values: map[string]interface{}{
			"payload":      string(payload),
			"published_at": time.Now().Unix(),
		},
	}).Err()
	if err != nil {
		p.logger.Warn("Failed to publish stage event", "reel_id", event.ReelID, "stage", event.Stage, "error", err)
	}
}

// Close closes the Redis client connection.
func (p *Publisher) Close() error {
	return p.rdb.Close()
}
