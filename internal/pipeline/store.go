package pipeline

import (
	"context"

	"github.com/google/uuid"
	"github.com/reelforge/reelforge/internal/planner"
)

// ReelRecord is the pipeline's view of a reel row and its inputs.
type ReelRecord struct {
	ID         uuid.UUID
	OrgID      uuid.UUID
	ScriptID   *uuid.UUID
	ScriptBody string
	PhotoIDs   []uuid.UUID
	VideoIDs   []uuid.UUID
	Title      string
	VoiceID    string
	FontSize   int
}

// Store is the persistence surface the pipeline drives. Every terminal
// outcome of a run is observable through it.
type Store interface {
	GetReel(ctx context.Context, id uuid.UUID) (*ReelRecord, error)
	// SetStatus writes a forward state transition with its progress value.
	SetStatus(ctx context.Context, id uuid.UUID, status string, progress int) error
	// SetOrderedMedia persists the planned timeline for observability.
	SetOrderedMedia(ctx context.Context, id uuid.UUID, elements []planner.TimelineElement) error
	// MarkFailed transitions to the terminal failed state with progress 0.
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
	// Complete writes the artifact location and transitions to completed.
	Complete(ctx context.Context, id uuid.UUID, storagePath, fileName string, duration float64) error
	// IncrementUsage bumps the org's monthly counter. Called exactly once,
	// only after Complete succeeds.
	IncrementUsage(ctx context.Context, orgID uuid.UUID, period string) error
}
