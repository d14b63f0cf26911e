package planner

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"testing"

	"github.com/reelforge/reelforge/internal/mediacatalog"
	"github.com/reelforge/reelforge/internal/narration"
)

const epsilon = 1e-6

// stubSequencer returns a canned response or error.
type stubSequencer struct {
	response string
	err      error
}

func (s *stubSequencer) Sequence(ctx context.Context, prompt string) (string, error) {
	return s.response, s.err
}

func testLogger() *slog.Logger {
	return slog.Default()
}

func testMedia() []mediacatalog.MediaItem {
	return []mediacatalog.MediaItem{
		{ID: "photo-1", Kind: mediacatalog.KindImage, URL: "https://media/photo-1", Description: "front view"},
		{ID: "photo-2", Kind: mediacatalog.KindImage, URL: "https://media/photo-2", Description: "side view"},
		{ID: "video-1", Kind: mediacatalog.KindVideo, URL: "https://media/video-1", OriginalDuration: 6.5},
	}
}

func testTranscript(totalSeconds float64) *narration.Transcript {
	words := []narration.Word{
		{Word: "Meet", Start: 0, End: 0.4},
		{Word: "the", Start: 0.4, End: 0.6},
		{Word: "sneaker", Start: 0.6, End: 1.2},
	}
	words = append(words, narration.Word{Word: "now", Start: totalSeconds - 0.5, End: totalSeconds})
	return &narration.Transcript{Text: "Meet the sneaker now", Words: words}
}

func assertContiguous(t *testing.T, elements []TimelineElement, total float64) {
	t.Helper()
	if len(elements) == 0 {
		t.Fatal("expected a non-empty timeline")
	}
	if math.Abs(elements[0].StartTime) > epsilon {
		t.Errorf("timeline starts at %.4f, want 0", elements[0].StartTime)
	}
	for i := 1; i < len(elements); i++ {
		prevEnd := elements[i-1].End()
		if math.Abs(elements[i].StartTime-prevEnd) > epsilon {
			t.Errorf("gap between element %d (ends %.4f) and %d (starts %.4f)", i-1, prevEnd, i, elements[i].StartTime)
		}
	}
	last := elements[len(elements)-1]
	if math.Abs(last.End()-total) > epsilon {
		t.Errorf("timeline ends at %.4f, want %.4f", last.End(), total)
	}
}

func TestFallbackDeterministic(t *testing.T) {
	media := testMedia()

	first := Fallback(media)
	second := Fallback(media)

	if len(first) != len(media) {
		t.Fatalf("expected %d elements, got %d", len(media), len(first))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("fallback is not deterministic at element %d: %+v vs %+v", i, first[i], second[i])
		}
	}

	// All items here tolerate the 3s share, so the total is exactly 3×count.
	wantTotal := fallbackShare * float64(len(media))
	assertContiguous(t, first, wantTotal)

	for _, el := range first {
		if el.Duration < MinElementDuration {
			t.Errorf("element %s duration %.2f below minimum", el.ID, el.Duration)
		}
	}
}

func TestFallbackRespectsShortVideoCeiling(t *testing.T) {
	media := []mediacatalog.MediaItem{
		{ID: "clip", Kind: mediacatalog.KindVideo, URL: "u", OriginalDuration: 2.4},
		{ID: "photo", Kind: mediacatalog.KindImage, URL: "u2"},
	}

	elements := Fallback(media)

	if elements[0].Duration > 2.4+epsilon {
		t.Errorf("video scheduled for %.2fs past its 2.4s ceiling", elements[0].Duration)
	}
	// Back-to-back layout holds even with a clamped share.
	if math.Abs(elements[1].StartTime-elements[0].End()) > epsilon {
		t.Errorf("second element starts at %.2f, want %.2f", elements[1].StartTime, elements[0].End())
	}
}

func TestFallbackCeilingWinsOverMinimumDuration(t *testing.T) {
	// A clip shorter than the 2s floor plays its full length, never longer.
	media := []mediacatalog.MediaItem{
		{ID: "short-clip", Kind: mediacatalog.KindVideo, URL: "u", OriginalDuration: 1.4},
		{ID: "photo", Kind: mediacatalog.KindImage, URL: "u2"},
	}

	elements := Fallback(media)

	if elements[0].Duration > 1.4+epsilon {
		t.Errorf("video scheduled for %.2fs past its 1.4s physical ceiling", elements[0].Duration)
	}
	if math.Abs(elements[1].StartTime-elements[0].End()) > epsilon {
		t.Errorf("second element starts at %.2f, want %.2f", elements[1].StartTime, elements[0].End())
	}
}

func TestPlanWithoutTranscriptUsesFallback(t *testing.T) {
	p := New(&stubSequencer{response: `{"elements":[]}`}, testLogger())

	elements := p.Plan(context.Background(), testMedia(), nil)

	want := Fallback(testMedia())
	if len(elements) != len(want) {
		t.Fatalf("expected fallback timeline of %d elements, got %d", len(want), len(elements))
	}
	for i := range want {
		if elements[i] != want[i] {
			t.Errorf("element %d = %+v, want fallback %+v", i, elements[i], want[i])
		}
	}
}

func TestPlanAdaptiveRepairsGapsAndCoversTotal(t *testing.T) {
	// Vendor response with a rounding gap between elements and a short
	// final element; the repair pass must close both.
	response := `{"elements":[
		{"id":"photo-1","kind":"image","start_time":0,"duration":4.0},
		{"id":"video-1","kind":"video","start_time":4.1,"duration":5.0},
		{"id":"photo-2","kind":"image","start_time":9.2,"duration":2.0}
	]}`
	p := New(&stubSequencer{response: response}, testLogger())

	total := 14.0
	elements := p.Plan(context.Background(), testMedia(), testTranscript(total))

	assertContiguous(t, elements, total)
	for _, el := range elements {
		if el.URL == "" {
			t.Errorf("element %s has no source URL attached", el.ID)
		}
	}
}

func TestPlanAdaptiveReclampsVideoCeiling(t *testing.T) {
	// The vendor schedules video-1 for 12s against its 6.5s ceiling. The
	// repair pass must correct it, not merely detect it.
	response := `{"elements":[
		{"id":"video-1","kind":"video","start_time":0,"duration":12.0},
		{"id":"photo-1","kind":"image","start_time":12.0,"duration":3.0},
		{"id":"photo-2","kind":"image","start_time":15.0,"duration":3.0}
	]}`
	p := New(&stubSequencer{response: response}, testLogger())

	total := 14.0
	elements := p.Plan(context.Background(), testMedia(), testTranscript(total))

	assertContiguous(t, elements, total)
	for _, el := range elements {
		if el.ID == "video-1" && el.Duration > 6.5+epsilon {
			t.Errorf("video-1 duration %.2f exceeds its 6.5s ceiling", el.Duration)
		}
	}
}

func TestPlanAdaptiveEnforcesMinimumDuration(t *testing.T) {
	response := `{"elements":[
		{"id":"photo-1","kind":"image","start_time":0,"duration":0.5},
		{"id":"photo-2","kind":"image","start_time":0.5,"duration":9.0},
		{"id":"video-1","kind":"video","start_time":9.5,"duration":2.0}
	]}`
	p := New(&stubSequencer{response: response}, testLogger())

	total := 16.0
	elements := p.Plan(context.Background(), testMedia(), testTranscript(total))

	assertContiguous(t, elements, total)
	for _, el := range elements {
		if el.Duration < MinElementDuration-epsilon {
			t.Errorf("element %s duration %.2f below %.1fs minimum", el.ID, el.Duration, MinElementDuration)
		}
	}
}

func TestPlanMalformedVendorJSONFallsBack(t *testing.T) {
	cases := map[string]string{
		"prose":        "Sure! Here's a timeline you could use.",
		"empty array":  `{"elements":[]}`,
		"bad kind":     `{"elements":[{"id":"photo-1","kind":"gif","start_time":0,"duration":5}]}`,
		"missing keys": `{"elements":[{"id":"photo-1"}]}`,
		"unknown id":   `{"elements":[{"id":"nope","kind":"image","start_time":0,"duration":14}]}`,
	}

	want := Fallback(testMedia())
	for name, response := range cases {
		t.Run(name, func(t *testing.T) {
			p := New(&stubSequencer{response: response}, testLogger())
			elements := p.Plan(context.Background(), testMedia(), testTranscript(14.0))

			if len(elements) != len(want) {
				t.Fatalf("expected fallback of %d elements, got %d", len(want), len(elements))
			}
			for i := range want {
				if elements[i] != want[i] {
					t.Errorf("element %d = %+v, want fallback %+v", i, elements[i], want[i])
				}
			}
		})
	}
}

func TestPlanVendorErrorFallsBack(t *testing.T) {
	p := New(&stubSequencer{err: fmt.Errorf("connection refused")}, testLogger())

	elements := p.Plan(context.Background(), testMedia(), testTranscript(14.0))

	want := Fallback(testMedia())
	if len(elements) != len(want) {
		t.Fatalf("expected fallback of %d elements, got %d", len(want), len(elements))
	}
}

func TestPlanStripsMarkdownFences(t *testing.T) {
	response := "```json\n{\"elements\":[{\"id\":\"photo-1\",\"kind\":\"image\",\"start_time\":0,\"duration\":7.0},{\"id\":\"photo-2\",\"kind\":\"image\",\"start_time\":7.0,\"duration\":7.0}]}\n```"
	p := New(&stubSequencer{response: response}, testLogger())

	elements := p.Plan(context.Background(), testMedia(), testTranscript(14.0))

	assertContiguous(t, elements, 14.0)
	if len(elements) != 2 {
		t.Fatalf("expected the adaptive 2-element timeline, got %d elements", len(elements))
	}
}
