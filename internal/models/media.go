package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Photo is an uploaded product image. Description is written by the vision
// vendor at upload time, ahead of any pipeline run.
type Photo struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProductID   uuid.UUID `gorm:"type:uuid;not null;index"`
	Product     Product   `gorm:"constraint:OnDelete:CASCADE;"`
	StorageKey  string    `gorm:"not null"`
	Description string    `gorm:"type:text"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   gorm.DeletedAt `gorm:"index"`
}

// Video is an uploaded product clip. Duration is its physical length in
// seconds, measured at upload time; the planner never exceeds it.
type Video struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProductID  uuid.UUID `gorm:"type:uuid;not null;index"`
	Product    Product   `gorm:"constraint:OnDelete:CASCADE;"`
	StorageKey string    `gorm:"not null"`
	Duration   float64   `gorm:"not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
	DeletedAt  gorm.DeletedAt `gorm:"index"`
}
