package narration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// SpeechSynthesizer converts text to audio bytes.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text, voiceID string) ([]byte, error)
}

// SpeechTranscriber converts audio bytes to a word-level transcript.
type SpeechTranscriber interface {
	Transcribe(ctx context.Context, audio []byte) (*Transcript, error)
}

// TTSClient calls the speech-synthesis vendor.
type TTSClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewTTSClient creates a TTSClient.
func NewTTSClient(baseURL, apiKey string) *TTSClient {
	return &TTSClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
	}
}

// Synthesize requests audio for the given text and voice.
func (c *TTSClient) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	reqBody := map[string]interface{}{
		"text":     text,
		"model_id": "eleven_multilingual_v2",
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/text-to-speech/%s", c.baseURL, voiceID)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("xi-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("tts vendor returned status %d: %s", resp.StatusCode, string(body))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio stream: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("tts vendor returned empty audio")
	}

	return audio, nil
}

// STTClient calls the speech-to-text vendor.
type STTClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewSTTClient creates an STTClient.
func NewSTTClient(baseURL, apiKey string) *STTClient {
	return &STTClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
	}
}

// Transcribe sends audio bytes and returns word-level timing.
func (c *STTClient) Transcribe(ctx context.Context, audio []byte) (*Transcript, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", "narration.mp3")
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return nil, fmt.Errorf("failed to write audio to form: %w", err)
	}
	if err := writer.WriteField("model_id", "scribe_v1"); err != nil {
		return nil, fmt.Errorf("failed to write model field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/speech-to-text", &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("xi-api-key", c.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("stt vendor returned status %d: %s", resp.StatusCode, string(body))
	}

	var transcript Transcript
	if err := json.NewDecoder(resp.Body).Decode(&transcript); err != nil {
		return nil, fmt.Errorf("failed to decode transcript: %w", err)
	}
	if len(transcript.Words) == 0 {
		return nil, fmt.Errorf("stt vendor returned no words")
	}

	// Planning and subtitles assume monotonic timings; a vendor regression
	// here must fail synthesis, not flow downstream.
	var prevEnd float64
	for i, w := range transcript.Words {
		if w.End < w.Start || w.Start < prevEnd {
			return nil, fmt.Errorf("stt vendor returned non-monotonic timing at word %d (%q)", i, w.Word)
		}
		prevEnd = w.End
	}

	return &transcript, nil
}
