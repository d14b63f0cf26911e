package planner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/reelforge/reelforge/internal/mediacatalog"
	"github.com/reelforge/reelforge/internal/narration"
)

const systemPrompt = `You are a video editor sequencing product media against a narration track.

Rules:
- Cover the full narration duration exactly, with no gaps between elements.
- Every element must run at least 2 seconds.
- Never schedule a video longer than its max_duration.
- Use every media item at least once.
- Where the narration mentions something a media item shows, align that item with those words.

You MUST respond with ONLY valid JSON — no preamble, no markdown, no explanation.
Respond with: {"elements": [{"id": "...", "kind": "image"|"video", "start_time": 0.0, "duration": 2.0}, ...]}`

// SequenceClient asks an external reasoning service to propose a timeline.
type SequenceClient interface {
	Sequence(ctx context.Context, prompt string) (string, error)
}

// HTTPSequenceClient calls a chat-completions style reasoning vendor.
type HTTPSequenceClient struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewHTTPSequenceClient creates an HTTPSequenceClient.
func NewHTTPSequenceClient(baseURL, apiKey, model string) *HTTPSequenceClient {
	return &HTTPSequenceClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Sequence sends the prompt and returns the raw completion content.
func (c *HTTPSequenceClient) Sequence(ctx context.Context, prompt string) (string, error) {
	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.2,
		MaxTokens:   2048,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("sequencing request: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBytes, &chatResp); err != nil {
		return "", fmt.Errorf("parse vendor response: %w", err)
	}
	if chatResp.Error != nil {
		return "", fmt.Errorf("vendor error: %s", chatResp.Error.Message)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("vendor returned no choices")
	}

	return chatResp.Choices[0].Message.Content, nil
}

// buildPrompt summarizes the media set and narration for the vendor. Source
// URLs are deliberately omitted; the vendor only sees ids, kinds,
// descriptions and duration ceilings.
func buildPrompt(media []mediacatalog.MediaItem, transcript *narration.Transcript, total float64) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Narration duration: %.2f seconds.\n\nMEDIA ITEMS:\n", total))
	for _, m := range media {
		if m.Kind == mediacatalog.KindVideo {
			sb.WriteString(fmt.Sprintf("- id=%s kind=video max_duration=%.2f description=%q\n", m.ID, m.OriginalDuration, m.Description))
		} else {
			sb.WriteString(fmt.Sprintf("- id=%s kind=image description=%q\n", m.ID, m.Description))
		}
	}

	sb.WriteString("\nNARRATION (word, start, end):\n")
	for _, w := range transcript.Words {
		sb.WriteString(fmt.Sprintf("%s %.2f %.2f\n", w.Word, w.Start, w.End))
	}

	sb.WriteString("\nRespond ONLY with valid JSON. No markdown. No explanation.")
	return sb.String()
}
