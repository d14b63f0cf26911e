// Package planner lays out media items on a gapless timeline against the
// narration audio.
package planner

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/reelforge/reelforge/internal/mediacatalog"
	"github.com/reelforge/reelforge/internal/narration"
)

// MinElementDuration is the floor for any timeline element, in seconds.
const MinElementDuration = 2.0

// fallbackShare is the per-item duration used when no narration timing
// exists to plan against.
const fallbackShare = 3.0

// TimelineElement is one planned entry: a media item shown for a span of the
// audio track. Persisted on the reel as ordered_media.
type TimelineElement struct {
	ID        string  `json:"id"`
	Kind      string  `json:"kind"`
	StartTime float64 `json:"start_time"`
	Duration  float64 `json:"duration"`
	URL       string  `json:"url"`
}

// End returns the element's end time.
func (e TimelineElement) End() float64 {
	return e.StartTime + e.Duration
}

// Planner produces timelines, preferring the adaptive sequencing vendor and
// degrading to a deterministic even split when it fails.
type Planner struct {
	sequencer SequenceClient
	logger    *slog.Logger
}

// New creates a Planner. sequencer may be nil, in which case only the
// deterministic path is used.
func New(sequencer SequenceClient, logger *slog.Logger) *Planner {
	return &Planner{sequencer: sequencer, logger: logger}
}

// Plan builds a timeline covering the narration exactly. The adaptive path
// is best-effort: any failure (vendor unreachable, malformed output, failed
// validation) degrades to the deterministic fallback rather than erroring.
func (p *Planner) Plan(ctx context.Context, media []mediacatalog.MediaItem, transcript *narration.Transcript) []TimelineElement {
	if transcript != nil && len(transcript.Words) > 0 && p.sequencer != nil {
		elements, err := p.planAdaptive(ctx, media, transcript)
		if err == nil {
			return elements
		}
		p.logger.Warn("Adaptive sequencing failed, using deterministic fallback", "error", err)
	}
	return Fallback(media)
}

// planAdaptive delegates sequencing to the reasoning vendor, then validates
// and repairs the response locally. The total duration is always re-derived
// from the transcript, never trusted from the vendor.
func (p *Planner) planAdaptive(ctx context.Context, media []mediacatalog.MediaItem, transcript *narration.Transcript) ([]TimelineElement, error) {
	total := transcript.Duration()
	if total <= 0 {
		return nil, fmt.Errorf("transcript has no duration")
	}

	raw, err := p.sequencer.Sequence(ctx, buildPrompt(media, transcript, total))
	if err != nil {
		return nil, fmt.Errorf("sequencing vendor call failed: %w", err)
	}

	elements, err := parseSequenceResponse(raw)
	if err != nil {
		return nil, err
	}

	ceilings := make(map[string]float64, len(media))
	urls := make(map[string]string, len(media))
	for _, m := range media {
		urls[m.ID] = m.URL
		if m.Kind == mediacatalog.KindVideo {
			ceilings[m.ID] = m.OriginalDuration
		}
	}

	repaired, err := repair(elements, ceilings, total)
	if err != nil {
		return nil, err
	}

	// The vendor does not know the short-lived source URLs; attach them here.
	for i := range repaired {
		url, ok := urls[repaired[i].ID]
		if !ok {
			return nil, fmt.Errorf("vendor referenced unknown media id %q", repaired[i].ID)
		}
		repaired[i].URL = url
	}

	return repaired, nil
}

// repair re-validates a proposed timeline and forces the structural
// invariants: minimum duration, video ceilings, contiguity, and exact
// coverage of the total duration.
func repair(elements []TimelineElement, ceilings map[string]float64, total float64) ([]TimelineElement, error) {
	if len(elements) == 0 {
		return nil, fmt.Errorf("vendor returned empty timeline")
	}

	sort.SliceStable(elements, func(i, j int) bool {
		return elements[i].StartTime < elements[j].StartTime
	})

	for i := range elements {
		if elements[i].Duration < MinElementDuration {
			elements[i].Duration = MinElementDuration
		}
		// Re-clamp to the physical ceiling even if the vendor violated it.
		if ceiling, ok := ceilings[elements[i].ID]; ok && elements[i].Duration > ceiling {
			elements[i].Duration = ceiling
		}
	}

	// Close rounding gaps: each element starts exactly where the previous
	// one ends.
	var cursor float64
	for i := range elements {
		elements[i].StartTime = cursor
		cursor += elements[i].Duration
	}

	// Stretch the final element to end exactly at the narration's end.
	last := len(elements) - 1
	needed := total - elements[last].StartTime
	if needed < MinElementDuration {
		return nil, fmt.Errorf("timeline overshoots narration: last element would be %.2fs", needed)
	}
	if ceiling, ok := ceilings[elements[last].ID]; ok && needed > ceiling {
		return nil, fmt.Errorf("cannot stretch final video to %.2fs past its %.2fs ceiling", needed, ceiling)
	}
	elements[last].Duration = needed

	return elements, nil
}

// Fallback lays every item back-to-back with an equal share of a synthetic
// total. Deterministic: the same media list always yields the same timeline.
func Fallback(media []mediacatalog.MediaItem) []TimelineElement {
	elements := make([]TimelineElement, 0, len(media))
	var cursor float64
	for _, m := range media {
		duration := fallbackShare
		if duration < MinElementDuration {
			duration = MinElementDuration
		}
		// The physical ceiling wins over the floor: a clip shorter than the
		// minimum plays its full length, never longer.
		if m.Kind == mediacatalog.KindVideo && m.OriginalDuration > 0 && m.OriginalDuration < duration {
			duration = m.OriginalDuration
		}
		elements = append(elements, TimelineElement{
			ID:        m.ID,
			Kind:      m.Kind,
			StartTime: cursor,
			Duration:  duration,
			URL:       m.URL,
		})
		cursor += duration
	}
	return elements
}

// TotalDuration returns the end of the last element, zero for an empty plan.
func TotalDuration(elements []TimelineElement) float64 {
	if len(elements) == 0 {
		return 0
	}
	return elements[len(elements)-1].End()
}
