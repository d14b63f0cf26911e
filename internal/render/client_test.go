package render

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/reelforge/reelforge/internal/narration"
	"github.com/reelforge/reelforge/internal/planner"
)

func testClient(baseURL string) *Client {
	return NewClient(baseURL, "test-key", time.Millisecond, 100*time.Millisecond, 3, slog.Default())
}

func testElements() []planner.TimelineElement {
	return []planner.TimelineElement{
		{ID: "photo-1", Kind: "image", StartTime: 0, Duration: 5, URL: "https://media/photo-1"},
		{ID: "video-1", Kind: "video", StartTime: 5, Duration: 6, URL: "https://media/video-1"},
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func TestSubmitReturnsJobID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" || r.URL.Path != "/v1/render" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		var req Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode submitted composition: %v", err)
		}
		if len(req.Tracks) != 2 {
			t.Errorf("expected 2 tracks (visual + audio), got %d", len(req.Tracks))
		}
		if req.Output.Width != OutputWidth || req.Output.Height != OutputHeight {
			t.Errorf("output profile %dx%d, want %dx%d", req.Output.Width, req.Output.Height, OutputWidth, OutputHeight)
		}
		writeJSON(w, submitResponse{ID: "job-42"})
	}))
	defer server.Close()

	jobID, err := testClient(server.URL).Submit(context.Background(), BuildComposition(testElements(), "https://audio/track"))
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if jobID != "job-42" {
		t.Errorf("jobID = %q, want job-42", jobID)
	}
}

func TestSubmitRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unsupported codec", http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	_, err := testClient(server.URL).Submit(context.Background(), BuildComposition(testElements(), ""))
	if err == nil {
		t.Fatal("expected an error for a rejected submission")
	}
	if !strings.Contains(err.Error(), "422") {
		t.Errorf("error should carry the vendor status code, got: %v", err)
	}
}

func TestAwaitCompletionTreatsUnknownStatusesAsInProgress(t *testing.T) {
	// The vendor walks through statuses we have never seen before finishing.
	statuses := []string{"queued", "warming_up", "rendering", "succeeded"}
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		status := statuses[len(statuses)-1]
		if int(n) <= len(statuses) {
			status = statuses[n-1]
		}
		resp := jobStatus{ID: "job-1", Status: status}
		if terminalSuccess[status] {
			resp.URL = "https://renders/out.mp4"
			resp.Duration = 11
		}
		writeJSON(w, resp)
	}))
	defer server.Close()

	result, err := testClient(server.URL).AwaitCompletion(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("AwaitCompletion returned error: %v", err)
	}
	if result.URL != "https://renders/out.mp4" {
		t.Errorf("result URL = %q", result.URL)
	}
	if result.Duration != 11 {
		t.Errorf("result duration = %v, want 11", result.Duration)
	}
	if got := atomic.LoadInt32(&calls); int(got) < len(statuses) {
		t.Errorf("polled %d times, expected the client to wait through %d statuses", got, len(statuses))
	}
}

func TestAwaitCompletionFailedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, jobStatus{ID: "job-1", Status: "failed", Error: "source unreachable"})
	}))
	defer server.Close()

	_, err := testClient(server.URL).AwaitCompletion(context.Background(), "job-1")
	if !errors.Is(err, ErrRenderFailed) {
		t.Fatalf("expected ErrRenderFailed, got: %v", err)
	}
	if !strings.Contains(err.Error(), "source unreachable") {
		t.Errorf("error should carry the vendor message, got: %v", err)
	}
}

func TestAwaitCompletionTimesOutInsteadOfHanging(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, jobStatus{ID: "job-1", Status: "rendering"})
	}))
	defer server.Close()

	client := NewClient(server.URL, "k", time.Millisecond, 20*time.Millisecond, 3, slog.Default())

	done := make(chan error, 1)
	go func() {
		_, err := client.AwaitCompletion(context.Background(), "job-1")
		done <- err
	}()

	select {
	case err := <-done:
		if !errors.Is(err, ErrRenderTimeout) {
			t.Fatalf("expected ErrRenderTimeout, got: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("AwaitCompletion hung past the polling ceiling")
	}
}

func TestAwaitCompletionConsecutiveErrorBudget(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, "k", time.Millisecond, time.Second, 3, slog.Default())

	_, err := client.AwaitCompletion(context.Background(), "job-1")
	if err == nil {
		t.Fatal("expected an error once the budget is exhausted")
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("polled %d times, want exactly the budget of 3", got)
	}
}

func TestAwaitCompletionErrorCounterResetsOnSuccess(t *testing.T) {
	// Two failures, one good in-progress poll, two more failures: the
	// counter must reset and the budget of 3 must not trip.
	responses := []int{500, 500, 200, 500, 500, 200}
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		idx := int(n) - 1
		if idx >= len(responses) {
			writeJSON(w, jobStatus{ID: "job-1", Status: "completed", URL: "https://renders/out.mp4"})
			return
		}
		if responses[idx] != 200 {
			http.Error(w, "flaky", responses[idx])
			return
		}
		writeJSON(w, jobStatus{ID: "job-1", Status: "rendering"})
	}))
	defer server.Close()

	client := NewClient(server.URL, "k", time.Millisecond, time.Second, 3, slog.Default())

	result, err := client.AwaitCompletion(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("expected success after interleaved failures, got: %v", err)
	}
	if result.URL == "" {
		t.Error("expected a result URL")
	}
}

func TestAwaitCompletionSuccessWithoutURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, jobStatus{ID: "job-1", Status: "done"})
	}))
	defer server.Close()

	_, err := testClient(server.URL).AwaitCompletion(context.Background(), "job-1")
	if err == nil {
		t.Fatal("a terminal job with no URL must be an error")
	}
}

func TestAwaitCompletionHonorsContextCancel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, jobStatus{ID: "job-1", Status: "rendering"})
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	client := NewClient(server.URL, "k", 10*time.Millisecond, time.Minute, 3, slog.Default())

	done := make(chan error, 1)
	go func() {
		_, err := client.AwaitCompletion(ctx, "job-1")
		done <- err
	}()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("AwaitCompletion did not honor cancellation")
	}
}

func TestBuildCompositionWithoutAudio(t *testing.T) {
	req := BuildComposition(testElements(), "")

	if len(req.Tracks) != 1 {
		t.Fatalf("expected a single visual track, got %d tracks", len(req.Tracks))
	}
	if len(req.Tracks[0].Clips) != 2 {
		t.Fatalf("expected 2 clips, got %d", len(req.Tracks[0].Clips))
	}
	if req.Tracks[0].Clips[1].Asset.Type != "video" {
		t.Errorf("second clip type = %q, want video", req.Tracks[0].Clips[1].Asset.Type)
	}
}

func TestBuildCompositionAudioSpansTimeline(t *testing.T) {
	elements := testElements()
	req := BuildComposition(elements, "https://audio/track")

	if len(req.Tracks) != 2 {
		t.Fatalf("expected visual + audio tracks, got %d", len(req.Tracks))
	}
	audio := req.Tracks[1].Clips[0]
	if audio.Asset.Type != "audio" || audio.Start != 0 {
		t.Errorf("audio clip = %+v, want audio asset starting at 0", audio)
	}
	if want := planner.TotalDuration(elements); audio.Length != want {
		t.Errorf("audio length = %v, want the timeline total %v", audio.Length, want)
	}
}

// stubRenderer fakes the second render pass used for subtitles.
type stubRenderer struct {
	result *Result
	err    error
	gotReq *Request
}

func (s *stubRenderer) Run(ctx context.Context, req Request) (*Result, error) {
	s.gotReq = &req
	return s.result, s.err
}

func subtitleTranscript() *narration.Transcript {
	return &narration.Transcript{
		Text: "Meet the sneaker built for speed",
		Words: []narration.Word{
			{Word: "Meet", Start: 0, End: 0.3},
			{Word: "the", Start: 0.3, End: 0.5},
			{Word: "sneaker", Start: 0.5, End: 1.0},
			{Word: "built", Start: 1.0, End: 1.3},
			{Word: "for", Start: 1.3, End: 1.5},
			{Word: "speed", Start: 1.5, End: 2.0},
		},
	}
}

func TestAddSubtitlesNoTranscriptIsNoop(t *testing.T) {
	original := &Result{URL: "https://renders/pass1.mp4", Duration: 11}
	r := &stubRenderer{}

	got := AddSubtitles(context.Background(), r, original, nil, 48, slog.Default())

	if got != original {
		t.Error("expected the original result back unchanged")
	}
	if r.gotReq != nil {
		t.Error("no render pass should run without a transcript")
	}
}

func TestAddSubtitlesFailureKeepsOriginal(t *testing.T) {
	original := &Result{URL: "https://renders/pass1.mp4", Duration: 11}
	r := &stubRenderer{err: fmt.Errorf("render vendor down")}

	got := AddSubtitles(context.Background(), r, original, subtitleTranscript(), 48, slog.Default())

	if got != original {
		t.Error("a failed subtitle pass must return the unsubtitled render")
	}
}

func TestAddSubtitlesGroupsWordsIntoCaptions(t *testing.T) {
	original := &Result{URL: "https://renders/pass1.mp4", Duration: 11}
	subtitled := &Result{URL: "https://renders/pass2.mp4", Duration: 11}
	r := &stubRenderer{result: subtitled}

	got := AddSubtitles(context.Background(), r, original, subtitleTranscript(), 64, slog.Default())

	if got != subtitled {
		t.Error("expected the subtitled result")
	}
	if r.gotReq == nil {
		t.Fatal("expected a second render pass")
	}
	if len(r.gotReq.Tracks) != 2 {
		t.Fatalf("expected base + caption tracks, got %d", len(r.gotReq.Tracks))
	}

	base := r.gotReq.Tracks[0].Clips[0]
	if base.Asset.Src != original.URL {
		t.Errorf("base track source = %q, want the first pass output", base.Asset.Src)
	}

	captions := r.gotReq.Tracks[1].Clips
	if len(captions) != 2 {
		t.Fatalf("6 words at 3 per caption should yield 2 captions, got %d", len(captions))
	}
	if captions[0].Asset.Text != "Meet the sneaker" {
		t.Errorf("first caption = %q", captions[0].Asset.Text)
	}
	if captions[1].Asset.Text != "built for speed" {
		t.Errorf("second caption = %q", captions[1].Asset.Text)
	}
	for i, c := range captions {
		if c.Asset.FontSize != 64 {
			t.Errorf("caption %d font size = %d, want 64", i, c.Asset.FontSize)
		}
	}
}
