package models

import (
	"time"

	"github.com/google/uuid"
)

// UsageCounter tracks reels generated per organization per calendar month.
// Period is "YYYY-MM". The counter is incremented exactly once per reel,
// only after the reel fully completes.
type UsageCounter struct {
	ID             uint      `gorm:"primaryKey"`
	OrgID          uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_usage_org_period"`
	Period         string    `gorm:"not null;uniqueIndex:idx_usage_org_period"`
	ReelsGenerated int       `gorm:"not null;default:0"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// CurrentPeriod returns the usage period key for the given time.
func CurrentPeriod(t time.Time) string {
	return t.UTC().Format("2006-01")
}
