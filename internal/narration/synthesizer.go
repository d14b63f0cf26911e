package narration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/reelforge/reelforge/internal/models"
	"github.com/reelforge/reelforge/internal/storage"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Synthesizer turns script text into a stored audio track plus a word-level
// transcript. Any stage failing is reported to the caller, which treats it
// as "proceed without narration".
type Synthesizer struct {
	tts    SpeechSynthesizer
	stt    SpeechTranscriber
	store  storage.ObjectStore
	db     *gorm.DB
	bucket string
	urlTTL time.Duration
	logger *slog.Logger
}

// NewSynthesizer creates a Synthesizer.
func NewSynthesizer(tts SpeechSynthesizer, stt SpeechTranscriber, store storage.ObjectStore, db *gorm.DB, bucket string, urlTTL time.Duration, logger *slog.Logger) *Synthesizer {
	return &Synthesizer{
		tts:    tts,
		stt:    stt,
		store:  store,
		db:     db,
		bucket: bucket,
		urlTTL: urlTTL,
		logger: logger,
	}
}

// Synthesize generates narration audio for the script text, uploads it,
// transcribes it, and persists an AudioTrack row linking transcript to reel.
func (s *Synthesizer) Synthesize(ctx context.Context, reelID uuid.UUID, scriptID *uuid.UUID, text, voiceID string) (*Result, error) {
	start := time.Now()

	audio, err := s.tts.Synthesize(ctx, text, voiceID)
	if err != nil {
		return nil, fmt.Errorf("speech synthesis failed: %w", err)
	}
	s.logger.Info("Narration audio synthesized", "reel_id", reelID, "bytes", len(audio), "elapsed", time.Since(start))

	key := fmt.Sprintf("%s/narration_%s.mp3", reelID, uuid.NewString()[:8])
	if err := s.store.Upload(ctx, s.bucket, key, bytes.NewReader(audio), int64(len(audio)), "audio/mpeg"); err != nil {
		return nil, fmt.Errorf("audio upload failed: %w", err)
	}

	audioURL, err := s.store.SignedURL(ctx, s.bucket, key, s.urlTTL)
	if err != nil {
		return nil, fmt.Errorf("audio URL minting failed: %w", err)
	}

	transcript, err := s.stt.Transcribe(ctx, audio)
	if err != nil {
		return nil, fmt.Errorf("transcription failed: %w", err)
	}

	transcriptJSON, err := json.Marshal(transcript)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal transcript: %w", err)
	}

	track := models.AudioTrack{
		ReelID:        reelID,
		ScriptID:      scriptID,
		StorageKey:    key,
		Transcription: datatypes.JSON(transcriptJSON),
		Duration:      transcript.Duration(),
	}
	if err := s.db.WithContext(ctx).Create(&track).Error; err != nil {
		return nil, fmt.Errorf("failed to persist audio track: %w", err)
	}

	s.logger.Info("Narration ready",
		"reel_id", reelID,
		"words", len(transcript.Words),
		"duration", transcript.Duration(),
	)

	return &Result{
		AudioURL:   audioURL,
		StorageKey: key,
		Transcript: transcript,
	}, nil
}
