// Package narration synthesizes script text into an audio track with
// word-level timing.
package narration

// Word is one spoken word with its timing in seconds.
type Word struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// AudioEvent is a non-speech event reported by the transcription vendor,
// such as laughter or background noise.
type AudioEvent struct {
	Kind  string  `json:"kind"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Transcript is the word-level timing of a narration track. Words are
// ordered with monotonically increasing timestamps.
type Transcript struct {
	Text        string       `json:"text"`
	Words       []Word       `json:"words"`
	AudioEvents []AudioEvent `json:"audio_events,omitempty"`
}

// Duration returns the narration length: the end of the last word.
func (t *Transcript) Duration() float64 {
	if t == nil || len(t.Words) == 0 {
		return 0
	}
	return t.Words[len(t.Words)-1].End
}

// Result holds a finished synthesis: a signed URL to the uploaded audio and
// the transcript used for sequencing and subtitles.
type Result struct {
	AudioURL   string
	StorageKey string
	Transcript *Transcript
}
