package database

import (
	"log"

	"github.com/google/uuid"
	"github.com/reelforge/reelforge/internal/models"
	"gorm.io/gorm"
)

// SeedDevData populates the database with development test data.
// Idempotent: skips if data already exists.
func SeedDevData(db *gorm.DB) error {
	var existing models.Product
	result := db.Where("name = ?", "Dev Sneaker").First(&existing)
	if result.Error == nil {
		log.Println("Seed data already exists, skipping")
		return nil
	}

	product := models.Product{
		OrgID: uuid.New(),
		Name:  "Dev Sneaker",
	}
	if err := db.Create(&product).Error; err != nil {
		return err
	}

	script := models.Script{
		ProductID: product.ID,
		Body: "Meet the Dev Sneaker. Lightweight, breathable, and built for " +
			"all-day comfort. Available now in three colors.",
	}
	if err := db.Create(&script).Error; err != nil {
		return err
	}

	photos := []models.Photo{
		{ProductID: product.ID, StorageKey: "dev/sneaker_front.jpg", Description: "White sneaker on a concrete floor, front view"},
		{ProductID: product.ID, StorageKey: "dev/sneaker_side.jpg", Description: "Side profile of a white sneaker with a red sole"},
	}
	for i := range photos {
		if err := db.Create(&photos[i]).Error; err != nil {
			return err
		}
	}

	video := models.Video{
		ProductID:  product.ID,
		StorageKey: "dev/sneaker_rotate.mp4",
		Duration:   6.5,
	}
	if err := db.Create(&video).Error; err != nil {
		return err
	}

	log.Printf("Seeded dev product %s with script, %d photos, 1 video", product.ID, len(photos))
	return nil
}
