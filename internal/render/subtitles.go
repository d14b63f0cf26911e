package render

import (
	"context"
	"log/slog"
	"strings"

	"github.com/reelforge/reelforge/internal/narration"
)

// wordsPerCaption controls subtitle grouping: captions flip every few words
// rather than per word, which reads better at short-form pacing.
const wordsPerCaption = 3

// Renderer is the submit-and-await contract the subtitle pass reuses.
type Renderer interface {
	Run(ctx context.Context, req Request) (*Result, error)
}

// AddSubtitles issues a second render pass overlaying word-synchronized
// captions onto a finished render. With no transcript it is a no-op; on any
// failure it returns the original, unsubtitled result. Subtitles are an
// enhancement, never a hard dependency for producing an artifact.
func AddSubtitles(ctx context.Context, r Renderer, result *Result, transcript *narration.Transcript, fontSize int, logger *slog.Logger) *Result {
	if transcript == nil || len(transcript.Words) == 0 {
		return result
	}

	req := buildSubtitleComposition(result, transcript, fontSize)

	subtitled, err := r.Run(ctx, req)
	if err != nil {
		logger.Warn("Subtitle pass failed, keeping unsubtitled render", "error", err)
		return result
	}

	return subtitled
}

// buildSubtitleComposition layers the first pass's output as the base video
// track and the transcript as a caption track above it.
func buildSubtitleComposition(result *Result, transcript *narration.Transcript, fontSize int) Request {
	base := Track{Clips: []Clip{{
		Asset:  Asset{Type: "video", Src: result.URL},
		Start:  0,
		Length: result.Duration,
	}}}

	captions := Track{Clips: captionClips(transcript, fontSize)}

	return Request{
		Tracks: []Track{base, captions},
		Output: defaultOutput(),
	}
}

// captionClips groups the transcript's words into short caption spans.
func captionClips(transcript *narration.Transcript, fontSize int) []Clip {
	var clips []Clip
	words := transcript.Words

	for i := 0; i < len(words); i += wordsPerCaption {
		end := i + wordsPerCaption
		if end > len(words) {
			end = len(words)
		}
		group := words[i:end]

		texts := make([]string, 0, len(group))
		for _, w := range group {
			texts = append(texts, w.Word)
		}

		clips = append(clips, Clip{
			Asset: Asset{
				Type:     "text",
				Text:     strings.Join(texts, " "),
				FontSize: fontSize,
			},
			Start:  group[0].Start,
			Length: group[len(group)-1].End - group[0].Start,
		})
	}

	return clips
}
