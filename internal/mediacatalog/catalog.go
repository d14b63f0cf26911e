// Package mediacatalog resolves user-selected photo and video identifiers
// into render-ready media descriptors with fresh signed URLs.
package mediacatalog

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/reelforge/reelforge/internal/storage"
)

// ErrNoMedia is returned when none of the selected media could be resolved.
// This is fatal to the whole reel.
var ErrNoMedia = errors.New("no media could be resolved")

// Media kind constants
const (
	KindImage = "image"
	KindVideo = "video"
)

// videoPlaceholderDescription stands in for videos, which have no
// vision-synthesized description.
const videoPlaceholderDescription = "Product video clip"

// MediaItem is a resolved, render-ready reference to one photo or video.
// The URL is short-lived and must not be reused across pipeline runs.
type MediaItem struct {
	ID          string `json:"id"`
	Kind        string `json:"kind"`
	URL         string `json:"url"`
	Description string `json:"description"`
	// OriginalDuration is the physical length of a video in seconds, zero
	// for images. The planner never schedules a video past it.
	OriginalDuration float64 `json:"original_duration,omitempty"`
}

// Finder looks up media rows for a product selection.
type Finder interface {
	PhotosByIDs(ctx context.Context, ids []uuid.UUID) ([]PhotoRecord, error)
	VideosByIDs(ctx context.Context, ids []uuid.UUID) ([]VideoRecord, error)
}

// PhotoRecord is the subset of a photo row the catalog needs.
type PhotoRecord struct {
	ID          uuid.UUID
	StorageKey  string
	Description string
}

// VideoRecord is the subset of a video row the catalog needs.
type VideoRecord struct {
	ID         uuid.UUID
	StorageKey string
	Duration   float64
}

// Catalog resolves media selections against the database and object storage.
type Catalog struct {
	finder Finder
	store  storage.ObjectStore
	bucket string
	urlTTL time.Duration
	logger *slog.Logger
}

// New creates a Catalog.
func New(finder Finder, store storage.ObjectStore, bucket string, urlTTL time.Duration, logger *slog.Logger) *Catalog {
	return &Catalog{
		finder: finder,
		store:  store,
		bucket: bucket,
		urlTTL: urlTTL,
		logger: logger,
	}
}

// Resolve turns photo and video id selections into MediaItems. Individual
// failures (missing row, URL minting error) are logged and skipped; an empty
// result is ErrNoMedia.
func (c *Catalog) Resolve(ctx context.Context, photoIDs, videoIDs []uuid.UUID) ([]MediaItem, error) {
	var items []MediaItem

	photos, err := c.finder.PhotosByIDs(ctx, photoIDs)
	if err != nil {
		c.logger.Error("Failed to look up photos", "error", err)
	} else {
		for _, p := range photos {
			url, err := c.store.SignedURL(ctx, c.bucket, p.StorageKey, c.urlTTL)
			if err != nil {
				c.logger.Warn("Skipping photo, could not mint URL", "photo_id", p.ID, "error", err)
				continue
			}
			items = append(items, MediaItem{
				ID:          p.ID.String(),
				Kind:        KindImage,
				URL:         url,
				Description: p.Description,
			})
		}
	}

	videos, err := c.finder.VideosByIDs(ctx, videoIDs)
	if err != nil {
		c.logger.Error("Failed to look up videos", "error", err)
	} else {
		for _, v := range videos {
			url, err := c.store.SignedURL(ctx, c.bucket, v.StorageKey, c.urlTTL)
			if err != nil {
				c.logger.Warn("Skipping video, could not mint URL", "video_id", v.ID, "error", err)
				continue
			}
			items = append(items, MediaItem{
				ID:               v.ID.String(),
				Kind:             KindVideo,
				URL:              url,
				Description:      videoPlaceholderDescription,
				OriginalDuration: v.Duration,
			})
		}
	}

	if len(items) == 0 {
		return nil, ErrNoMedia
	}

	return items, nil
}
