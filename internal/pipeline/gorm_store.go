package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/reelforge/reelforge/internal/models"
	"github.com/reelforge/reelforge/internal/planner"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore implements Store against the relational store.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a GormStore.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// GetReel loads the reel row plus everything a run needs: owning org,
// script text, and the media selection.
func (s *GormStore) GetReel(ctx context.Context, id uuid.UUID) (*ReelRecord, error) {
	var reel models.Reel
	err := s.db.WithContext(ctx).
		Preload("Product").
		Preload("Photos").
		Preload("Videos").
		First(&reel, "id = ?", id).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load reel %s: %w", id, err)
	}

	record := &ReelRecord{
		ID:       reel.ID,
		OrgID:    reel.Product.OrgID,
		ScriptID: reel.ScriptID,
		Title:    reel.Title,
		VoiceID:  reel.VoiceID,
		FontSize: reel.FontSize,
	}

	if reel.ScriptID != nil {
		var script models.Script
		if err := s.db.WithContext(ctx).First(&script, "id = ?", *reel.ScriptID).Error; err != nil {
			return nil, fmt.Errorf("failed to load script %s: %w", *reel.ScriptID, err)
		}
		record.ScriptBody = script.Body
	}

	for _, p := range reel.Photos {
		record.PhotoIDs = append(record.PhotoIDs, p.ID)
	}
	for _, v := range reel.Videos {
		record.VideoIDs = append(record.VideoIDs, v.ID)
	}

	return record, nil
}

// SetStatus writes a status transition and its progress value.
func (s *GormStore) SetStatus(ctx context.Context, id uuid.UUID, status string, progress int) error {
	return s.db.WithContext(ctx).Model(&models.Reel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":              status,
			"progress_percentage": progress,
		}).Error
}

// SetOrderedMedia persists the planned timeline as JSONB.
func (s *GormStore) SetOrderedMedia(ctx context.Context, id uuid.UUID, elements []planner.TimelineElement) error {
	payload, err := json.Marshal(elements)
	if err != nil {
		return fmt.Errorf("failed to marshal timeline: %w", err)
	}

	return s.db.WithContext(ctx).Model(&models.Reel{}).
		Where("id = ?", id).
		Update("ordered_media", datatypes.JSON(payload)).Error
}

// MarkFailed moves the reel to the terminal failed state with progress 0.
func (s *GormStore) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	return s.db.WithContext(ctx).Model(&models.Reel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":              models.ReelStatusFailed,
			"progress_percentage": 0,
			"error_message":       reason,
		}).Error
}

// Complete writes the artifact location and moves the reel to completed.
func (s *GormStore) Complete(ctx context.Context, id uuid.UUID, storagePath, fileName string, duration float64) error {
	return s.db.WithContext(ctx).Model(&models.Reel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":              models.ReelStatusCompleted,
			"progress_percentage": 100,
			"storage_path":        storagePath,
			"file_name":           fileName,
			"duration":            duration,
			"error_message":       "",
		}).Error
}

// IncrementUsage upserts the org's counter for the period and bumps it.
func (s *GormStore) IncrementUsage(ctx context.Context, orgID uuid.UUID, period string) error {
	counter := models.UsageCounter{
		OrgID:          orgID,
		Period:         period,
		ReelsGenerated: 1,
	}

	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "org_id"}, {Name: "period"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"reels_generated": gorm.Expr("usage_counters.reels_generated + 1"),
		}),
	}).Create(&counter).Error
}
