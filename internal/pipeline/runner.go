// Package pipeline drives a reel from pending through rendering to its
// terminal state.
package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/reelforge/reelforge/internal/events"
	"github.com/reelforge/reelforge/internal/mediacatalog"
	"github.com/reelforge/reelforge/internal/models"
	"github.com/reelforge/reelforge/internal/narration"
	"github.com/reelforge/reelforge/internal/planner"
	"github.com/reelforge/reelforge/internal/render"
	"github.com/reelforge/reelforge/internal/storage"
)

// MediaResolver resolves a media selection into render-ready descriptors.
type MediaResolver interface {
	Resolve(ctx context.Context, photoIDs, videoIDs []uuid.UUID) ([]mediacatalog.MediaItem, error)
}

// Narrator synthesizes narration for a script. Failures degrade to a silent
// reel rather than failing the run.
type Narrator interface {
	Synthesize(ctx context.Context, reelID uuid.UUID, scriptID *uuid.UUID, text, voiceID string) (*narration.Result, error)
}

// TimelinePlanner lays media out against the narration.
type TimelinePlanner interface {
	Plan(ctx context.Context, media []mediacatalog.MediaItem, transcript *narration.Transcript) []planner.TimelineElement
}

// RenderService is the submit/poll contract of the render vendor.
type RenderService interface {
	Submit(ctx context.Context, req render.Request) (string, error)
	AwaitCompletion(ctx context.Context, jobID string) (*render.Result, error)
	Run(ctx context.Context, req render.Request) (*render.Result, error)
}

// Telemetry receives one event per stage transition and external-call
// boundary. Implementations must be best-effort.
type Telemetry interface {
	Publish(ctx context.Context, event events.StageEvent)
}

// nopTelemetry is used when no publisher is configured.
type nopTelemetry struct{}

func (nopTelemetry) Publish(context.Context, events.StageEvent) {}

// Runner executes one reel's generation end to end.
type Runner struct {
	store        Store
	catalog      MediaResolver
	narrator     Narrator
	planner      TimelinePlanner
	renderer     RenderService
	fetcher      Fetcher
	objects      storage.ObjectStore
	telemetry    Telemetry
	reelsBucket  string
	urlTTL       time.Duration
	defaultVoice string
	logger       *slog.Logger
}

// NewRunner wires a Runner. telemetry may be nil.
func NewRunner(
	store Store,
	catalog MediaResolver,
	narrator Narrator,
	timelinePlanner TimelinePlanner,
	renderer RenderService,
	fetcher Fetcher,
	objects storage.ObjectStore,
	telemetry Telemetry,
	reelsBucket string,
	urlTTL time.Duration,
	defaultVoice string,
	logger *slog.Logger,
) *Runner {
	if telemetry == nil {
		telemetry = nopTelemetry{}
	}
	return &Runner{
		store:        store,
		catalog:      catalog,
		narrator:     narrator,
		planner:      timelinePlanner,
		renderer:     renderer,
		fetcher:      fetcher,
		objects:      objects,
		telemetry:    telemetry,
		reelsBucket:  reelsBucket,
		urlTTL:       urlTTL,
		defaultVoice: defaultVoice,
		logger:       logger,
	}
}

// Run drives the reel through its lifecycle. Fatal failures mark the reel
// failed before returning; cooperative cancellation exits between stages
// leaving the last-reached state in place. The reel never ends in a
// non-terminal state unless cancellation fired.
func (r *Runner) Run(ctx context.Context, reelID uuid.UUID) (err error) {
	started := time.Now()

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("pipeline panicked: %v", rec)
			r.fail(reelID, err.Error())
		}
	}()

	record, err := r.store.GetReel(ctx, reelID)
	if err != nil {
		return err
	}

	if err := r.transition(ctx, reelID, models.ReelStatusProcessing, 10); err != nil {
		return err
	}

	// Narration: optional, degrade-and-continue. A failure here means a
	// silent, evenly-timed slideshow, not a failed reel.
	var narrated *narration.Result
	if record.ScriptBody != "" {
		if r.cancelled(ctx, reelID, "narration") {
			return nil
		}
		if err := r.transition(ctx, reelID, models.ReelStatusGeneratingAudio, 20); err != nil {
			return err
		}

		voice := record.VoiceID
		if voice == "" {
			voice = r.defaultVoice
		}

		stageStart := time.Now()
		narrated, err = r.narrator.Synthesize(ctx, record.ID, record.ScriptID, record.ScriptBody, voice)
		if err != nil {
			r.logger.Warn("Narration failed, continuing without audio", "reel_id", reelID, "error", err)
			r.telemetry.Publish(ctx, events.StageEvent{
				ReelID: reelID.String(), Stage: "narration", Outcome: "skipped",
				ElapsedMS: time.Since(stageStart).Milliseconds(), Detail: err.Error(),
			})
			narrated = nil
		} else {
			r.telemetry.Publish(ctx, events.StageEvent{
				ReelID: reelID.String(), Stage: "narration", Outcome: "succeeded",
				ElapsedMS: time.Since(stageStart).Milliseconds(),
			})
		}
	}

	if r.cancelled(ctx, reelID, "media") {
		return nil
	}
	if err := r.transition(ctx, reelID, models.ReelStatusProcessingMedia, 35); err != nil {
		return err
	}

	media, err := r.catalog.Resolve(ctx, record.PhotoIDs, record.VideoIDs)
	if err != nil {
		if r.cancelled(ctx, reelID, "media") {
			return nil
		}
		// An empty media set is fatal: there is nothing to render.
		return r.fail(reelID, fmt.Sprintf("media resolution failed: %v", err))
	}

	var transcript *narration.Transcript
	audioURL := ""
	if narrated != nil {
		transcript = narrated.Transcript
		audioURL = narrated.AudioURL
	}

	elements := r.planner.Plan(ctx, media, transcript)
	if err := r.store.SetOrderedMedia(ctx, reelID, elements); err != nil {
		return r.fail(reelID, fmt.Sprintf("failed to persist timeline: %v", err))
	}

	if r.cancelled(ctx, reelID, "render") {
		return nil
	}
	if err := r.transition(ctx, reelID, models.ReelStatusRenderingPreparing, 55); err != nil {
		return err
	}

	jobID, err := r.renderer.Submit(ctx, render.BuildComposition(elements, audioURL))
	if err != nil {
		if r.cancelled(ctx, reelID, "render") {
			return nil
		}
		return r.fail(reelID, fmt.Sprintf("render submission failed: %v", err))
	}

	if err := r.transition(ctx, reelID, models.ReelStatusRenderingProcessing, 70); err != nil {
		return err
	}

	stageStart := time.Now()
	result, err := r.renderer.AwaitCompletion(ctx, jobID)
	if err != nil {
		// Shutdown mid-poll is not a render failure: the reel stays in its
		// current state and can be retried.
		if r.cancelled(ctx, reelID, "render") {
			return nil
		}
		r.telemetry.Publish(ctx, events.StageEvent{
			ReelID: reelID.String(), Stage: "render", Outcome: "failed",
			ElapsedMS: time.Since(stageStart).Milliseconds(), Detail: err.Error(),
		})
		return r.fail(reelID, fmt.Sprintf("render failed: %v", err))
	}
	r.telemetry.Publish(ctx, events.StageEvent{
		ReelID: reelID.String(), Stage: "render", Outcome: "succeeded",
		ElapsedMS: time.Since(stageStart).Milliseconds(),
	})

	if r.cancelled(ctx, reelID, "subtitles") {
		return nil
	}
	if err := r.transition(ctx, reelID, models.ReelStatusRenderingFinalizing, 85); err != nil {
		return err
	}

	// Second pass. On failure this returns the unsubtitled result.
	final := render.AddSubtitles(ctx, r.renderer, result, transcript, record.FontSize, r.logger)

	if r.cancelled(ctx, reelID, "persist") {
		return nil
	}

	storagePath, fileName, err := r.persistArtifact(ctx, record, final)
	if err != nil {
		if r.cancelled(ctx, reelID, "persist") {
			return nil
		}
		return r.fail(reelID, fmt.Sprintf("artifact persistence failed: %v", err))
	}

	duration := final.Duration
	if duration == 0 {
		duration = planner.TotalDuration(elements)
	}

	if err := r.store.Complete(ctx, reelID, storagePath, fileName, duration); err != nil {
		return r.fail(reelID, fmt.Sprintf("failed to record completion: %v", err))
	}

	// Post-success only: a crash before this point under-counts, which is
	// accepted; it never double-counts.
	if err := r.store.IncrementUsage(ctx, record.OrgID, models.CurrentPeriod(time.Now())); err != nil {
		r.logger.Warn("Failed to increment usage counter", "reel_id", reelID, "org_id", record.OrgID, "error", err)
	}

	r.logger.Info("Reel completed",
		"reel_id", reelID,
		"storage_path", storagePath,
		"duration", duration,
		"elapsed", time.Since(started),
	)
	r.telemetry.Publish(ctx, events.StageEvent{
		ReelID: reelID.String(), Stage: "pipeline", Outcome: "succeeded",
		ElapsedMS: time.Since(started).Milliseconds(),
	})

	return nil
}

// persistArtifact downloads the final render, uploads it to durable storage,
// and verifies the upload by immediately re-requesting an access URL for the
// just-written object. Completion is only reported after that probe
// succeeds.
func (r *Runner) persistArtifact(ctx context.Context, record *ReelRecord, result *render.Result) (string, string, error) {
	data, err := r.fetcher.Fetch(ctx, result.URL)
	if err != nil {
		return "", "", fmt.Errorf("download failed: %w", err)
	}

	fileName := fmt.Sprintf("reel_%s.mp4", uuid.NewString()[:8])
	key := fmt.Sprintf("%s/%s", record.ID, fileName)

	if err := r.objects.Upload(ctx, r.reelsBucket, key, bytes.NewReader(data), int64(len(data)), "video/mp4"); err != nil {
		return "", "", fmt.Errorf("upload failed: %w", err)
	}

	if _, err := r.objects.SignedURL(ctx, r.reelsBucket, key, r.urlTTL); err != nil {
		return "", "", fmt.Errorf("upload verification failed: %w", err)
	}

	return key, fileName, nil
}

// transition writes a forward state change and emits its telemetry event.
func (r *Runner) transition(ctx context.Context, reelID uuid.UUID, status string, progress int) error {
	if err := r.store.SetStatus(ctx, reelID, status, progress); err != nil {
		return fmt.Errorf("failed to transition reel %s to %s: %w", reelID, status, err)
	}
	r.logger.Info("Reel state transition", "reel_id", reelID, "status", status, "progress", progress)
	r.telemetry.Publish(ctx, events.StageEvent{
		ReelID: reelID.String(), Stage: status, Outcome: "started",
	})
	return nil
}

// cancelled reports whether the host is shutting down. The run exits without
// forcing a failure status; the reel stays in its last-reached state and can
// be retried.
func (r *Runner) cancelled(ctx context.Context, reelID uuid.UUID, stage string) bool {
	if ctx.Err() == nil {
		return false
	}
	r.logger.Info("Run cancelled, leaving reel in current state", "reel_id", reelID, "stage", stage)
	return true
}

// fail marks the reel failed and returns the terminal error.
func (r *Runner) fail(reelID uuid.UUID, reason string) error {
	// Deliberately not the run's context: the failure must be recorded even
	// when the run was cut short by an error mid-I/O.
	if err := r.store.MarkFailed(context.Background(), reelID, reason); err != nil {
		r.logger.Error("Failed to mark reel failed", "reel_id", reelID, "error", err)
	}
	r.logger.Error("Reel failed", "reel_id", reelID, "reason", reason)
	r.telemetry.Publish(context.Background(), events.StageEvent{
		ReelID: reelID.String(), Stage: "pipeline", Outcome: "failed", Detail: reason,
	})
	return fmt.Errorf("reel %s failed: %s", reelID, reason)
}
