package mediacatalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/reelforge/reelforge/internal/models"
	"gorm.io/gorm"
)

// GormFinder implements Finder against the relational store.
type GormFinder struct {
	db *gorm.DB
}

// NewGormFinder creates a GormFinder.
func NewGormFinder(db *gorm.DB) *GormFinder {
	return &GormFinder{db: db}
}

// PhotosByIDs fetches photo rows for the given ids. Missing ids are simply
// absent from the result.
func (f *GormFinder) PhotosByIDs(ctx context.Context, ids []uuid.UUID) ([]PhotoRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var photos []models.Photo
	if err := f.db.WithContext(ctx).Where("id IN ?", ids).Find(&photos).Error; err != nil {
		return nil, err
	}

	records := make([]PhotoRecord, 0, len(photos))
	for _, p := range photos {
		records = append(records, PhotoRecord{
			ID:          p.ID,
			StorageKey:  p.StorageKey,
			Description: p.Description,
		})
	}
	return records, nil
}

// VideosByIDs fetches video rows for the given ids.
func (f *GormFinder) VideosByIDs(ctx context.Context, ids []uuid.UUID) ([]VideoRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var videos []models.Video
	if err := f.db.WithContext(ctx).Where("id IN ?", ids).Find(&videos).Error; err != nil {
		return nil, err
	}

	records := make([]VideoRecord, 0, len(videos))
	for _, v := range videos {
		records = append(records, VideoRecord{
			ID:         v.ID,
			StorageKey: v.StorageKey,
			Duration:   v.Duration,
		})
	}
	return records, nil
}
