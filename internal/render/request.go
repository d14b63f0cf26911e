// Package render submits declarative composition jobs to the external
// render service and polls them to completion.
package render

import (
	"github.com/reelforge/reelforge/internal/planner"
)

// Fixed output profile: vertical short-form video.
const (
	OutputWidth  = 1080
	OutputHeight = 1920
	OutputFPS    = 30
	OutputFormat = "mp4"
)

// Asset describes one piece of source material in a composition.
type Asset struct {
	Type     string `json:"type"` // image | video | audio | text
	Src      string `json:"src,omitempty"`
	Text     string `json:"text,omitempty"`
	FontSize int    `json:"font_size,omitempty"`
}

// Clip places an asset on a track at a start time for a length, both in
// seconds.
type Clip struct {
	Asset  Asset   `json:"asset"`
	Start  float64 `json:"start"`
	Length float64 `json:"length"`
}

// Track is an ordered layer of clips. Later tracks render above earlier
// ones.
type Track struct {
	Clips []Clip `json:"clips"`
}

// Output is the encoding profile for the composition.
type Output struct {
	Format string `json:"format"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	FPS    int    `json:"fps"`
}

// Request is the declarative scene graph submitted to the render vendor.
type Request struct {
	Tracks []Track `json:"tracks"`
	Output Output  `json:"output"`
}

// Result is a finished render.
type Result struct {
	URL      string
	Duration float64
}

// defaultOutput returns the fixed vertical output profile.
func defaultOutput() Output {
	return Output{
		Format: OutputFormat,
		Width:  OutputWidth,
		Height: OutputHeight,
		FPS:    OutputFPS,
	}
}

// BuildComposition turns a planned timeline into a render request: one
// visual track of image/video clips, plus an audio track spanning the whole
// duration when narration exists.
func BuildComposition(elements []planner.TimelineElement, audioURL string) Request {
	visual := Track{Clips: make([]Clip, 0, len(elements))}
	for _, el := range elements {
		visual.Clips = append(visual.Clips, Clip{
			Asset:  Asset{Type: el.Kind, Src: el.URL},
			Start:  el.StartTime,
			Length: el.Duration,
		})
	}

	req := Request{
		Tracks: []Track{visual},
		Output: defaultOutput(),
	}

	if audioURL != "" {
		req.Tracks = append(req.Tracks, Track{
			Clips: []Clip{{
				Asset:  Asset{Type: "audio", Src: audioURL},
				Start:  0,
				Length: planner.TotalDuration(elements),
			}},
		})
	}

	return req
}
