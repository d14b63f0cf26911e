package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Reel status constants. A reel only ever moves forward through these;
// failed and completed are terminal.
const (
	ReelStatusPending             = "pending"
	ReelStatusProcessing          = "processing"
	ReelStatusGeneratingAudio     = "generating_audio"
	ReelStatusProcessingMedia     = "processing_media"
	ReelStatusRenderingPreparing  = "rendering_preparing"
	ReelStatusRenderingProcessing = "rendering_processing"
	ReelStatusRenderingFinalizing = "rendering_finalizing"
	ReelStatusCompleted           = "completed"
	ReelStatusFailed              = "failed"
)

// Reel represents one generation job: the user's media selection, the
// lifecycle status driven by the pipeline, and the final artifact location.
type Reel struct {
	ID                 uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProductID          uuid.UUID      `gorm:"type:uuid;not null;index"`
	Product            Product        `gorm:"constraint:OnDelete:CASCADE;"`
	ScriptID           *uuid.UUID     `gorm:"type:uuid"`
	Title              string         `gorm:"not null"`
	Status             string         `gorm:"not null;default:'pending';index"`
	ProgressPercentage int            `gorm:"not null;default:0"`
	OrderedMedia       datatypes.JSON `gorm:"type:jsonb"`
	StoragePath        *string
	FileName           *string
	Duration           *float64
	ErrorMessage       string `gorm:"type:text"`
	VoiceID            string
	FontSize           int `gorm:"not null;default:48"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
	DeletedAt          gorm.DeletedAt `gorm:"index"`

	Photos []Photo `gorm:"many2many:reel_photos;"`
	Videos []Video `gorm:"many2many:reel_videos;"`
}

// AudioTrack stores the narration audio for a reel alongside its word-level
// transcript, so the subtitle pass can reuse the timing without recomputation.
type AudioTrack struct {
	gorm.Model
	ReelID        uuid.UUID      `gorm:"type:uuid;not null;index"`
	ScriptID      *uuid.UUID     `gorm:"type:uuid"`
	StorageKey    string         `gorm:"not null"`
	Transcription datatypes.JSON `gorm:"type:jsonb"`
	Duration      float64
}
