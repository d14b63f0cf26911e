package render

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Terminal polling failures.
var (
	ErrRenderFailed  = errors.New("render job failed")
	ErrRenderTimeout = errors.New("render job did not finish within the polling ceiling")
)

// terminalSuccess holds the status strings the vendor uses for a finished
// job. Anything that is neither here nor "failed" — including statuses we
// have never seen — counts as still in progress, tolerating vendor
// status-vocabulary drift.
var terminalSuccess = map[string]bool{
	"completed": true,
	"succeeded": true,
	"done":      true,
}

const statusFailed = "failed"

// Client talks to the render/composition vendor.
type Client struct {
	baseURL      string
	apiKey       string
	httpClient   *http.Client
	pollInterval time.Duration
	pollTimeout  time.Duration
	errorBudget  int
	logger       *slog.Logger
}

// NewClient creates a render Client.
func NewClient(baseURL, apiKey string, pollInterval, pollTimeout time.Duration, errorBudget int, logger *slog.Logger) *Client {
	return &Client{
		baseURL:      baseURL,
		apiKey:       apiKey,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		pollInterval: pollInterval,
		pollTimeout:  pollTimeout,
		errorBudget:  errorBudget,
		logger:       logger,
	}
}

type submitResponse struct {
	ID string `json:"id"`
}

type jobStatus struct {
	ID       string  `json:"id"`
	Status   string  `json:"status"`
	URL      string  `json:"url"`
	Duration float64 `json:"duration"`
	Error    string  `json:"error"`
}

// Submit sends a composition request and returns the vendor's job id.
func (c *Client) Submit(ctx context.Context, req Request) (string, error) {
	bodyBytes, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal composition: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/render", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("render submission failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("render vendor rejected submission with status %d: %s", resp.StatusCode, string(body))
	}

	var submitted submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&submitted); err != nil {
		return "", fmt.Errorf("failed to decode submission response: %w", err)
	}
	if submitted.ID == "" {
		return "", fmt.Errorf("render vendor returned no job id")
	}

	return submitted.ID, nil
}

// AwaitCompletion polls the job at a fixed interval until a terminal status,
// the wall-clock ceiling, or the consecutive-error budget is hit. A
// successful poll resets the error counter.
func (c *Client) AwaitCompletion(ctx context.Context, jobID string) (*Result, error) {
	deadline := time.Now().Add(c.pollTimeout)
	consecutiveErrors := 0

	for {
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: job %s after %s", ErrRenderTimeout, jobID, c.pollTimeout)
		}

		status, err := c.poll(ctx, jobID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			consecutiveErrors++
			c.logger.Warn("Render poll failed", "job_id", jobID, "consecutive_errors", consecutiveErrors, "error", err)
			if consecutiveErrors >= c.errorBudget {
				return nil, fmt.Errorf("render polling failed %d times in a row: %w", consecutiveErrors, err)
			}
		} else {
			consecutiveErrors = 0

			switch {
			case terminalSuccess[status.Status]:
				if status.URL == "" {
					return nil, fmt.Errorf("render job %s finished without a result URL", jobID)
				}
				return &Result{URL: status.URL, Duration: status.Duration}, nil
			case status.Status == statusFailed:
				return nil, fmt.Errorf("%w: job %s: %s", ErrRenderFailed, jobID, status.Error)
			default:
				// planned, rendering, transcribing, or anything the vendor
				// invents later: keep waiting.
			}
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pollInterval):
		}
	}
}

func (c *Client) poll(ctx context.Context, jobID string) (*jobStatus, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/v1/render/"+jobID, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}

	var status jobStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("failed to decode job status: %w", err)
	}

	return &status, nil
}

// Run submits a composition and waits for it to finish.
func (c *Client) Run(ctx context.Context, req Request) (*Result, error) {
	jobID, err := c.Submit(ctx, req)
	if err != nil {
		return nil, err
	}
	c.logger.Info("Render job submitted", "job_id", jobID)
	return c.AwaitCompletion(ctx, jobID)
}
