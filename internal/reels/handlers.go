// Package reels is the HTTP trigger boundary: creating a reel enqueues its
// generation and returns immediately; all pipeline work happens in the
// background worker.
package reels

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/reelforge/reelforge/internal/models"
	"github.com/reelforge/reelforge/internal/worker"
	"gorm.io/gorm"
)

// CreateReelRequest is the generation trigger payload.
type CreateReelRequest struct {
	ProductID string   `json:"productId" binding:"required,uuid"`
	ScriptID  string   `json:"scriptId" binding:"omitempty,uuid"`
	PhotoIDs  []string `json:"photoIds"`
	VideoIDs  []string `json:"videoIds"`
	Title     string   `json:"title" binding:"required"`
	VoiceID   string   `json:"voiceId"`
	FontSize  int      `json:"fontSize"`
}

// CreateReelHandler creates a pending reel and enqueues its generation. The
// caller gets the reel id immediately; quota exhaustion is a 429 before any
// pipeline work begins.
func CreateReelHandler(db *gorm.DB, monthlyQuota int) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateReelRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if len(req.PhotoIDs) == 0 && len(req.VideoIDs) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "at least one photo or video is required"})
			return
		}

		productID := uuid.MustParse(req.ProductID)

		var product models.Product
		if err := db.First(&product, "id = ?", productID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
			return
		}

		// Usage check before any work. The counter only moves on completed
		// reels, so in-flight runs don't consume quota.
		var counter models.UsageCounter
		period := models.CurrentPeriod(time.Now())
		err := db.Where("org_id = ? AND period = ?", product.OrgID, period).First(&counter).Error
		if err == nil && counter.ReelsGenerated >= monthlyQuota {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "monthly reel quota exceeded"})
			return
		}

		reel := models.Reel{
			ProductID: productID,
			Title:     req.Title,
			Status:    models.ReelStatusPending,
			VoiceID:   req.VoiceID,
		}
		if req.FontSize > 0 {
			reel.FontSize = req.FontSize
		}
		if req.ScriptID != "" {
			scriptID := uuid.MustParse(req.ScriptID)
			reel.ScriptID = &scriptID
		}

		for _, id := range req.PhotoIDs {
			photoID, err := uuid.Parse(id)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid photo id: " + id})
				return
			}
			reel.Photos = append(reel.Photos, models.Photo{ID: photoID})
		}
		for _, id := range req.VideoIDs {
			videoID, err := uuid.Parse(id)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid video id: " + id})
				return
			}
			reel.Videos = append(reel.Videos, models.Video{ID: videoID})
		}

		if err := db.Omit("Photos", "Videos").Create(&reel).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create reel"})
			return
		}
		if len(reel.Photos) > 0 {
			if err := db.Model(&reel).Association("Photos").Append(reel.Photos); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to attach photos"})
				return
			}
		}
		if len(reel.Videos) > 0 {
			if err := db.Model(&reel).Association("Videos").Append(reel.Videos); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to attach videos"})
				return
			}
		}

		if err := worker.EnqueueGenerateReel(reel.ID); err != nil {
			db.Model(&reel).Updates(map[string]interface{}{
				"status":        models.ReelStatusFailed,
				"error_message": "Failed to enqueue generation task",
			})
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to enqueue reel generation"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"id": reel.ID, "status": reel.Status})
	}
}

// GetReelHandler returns the current status and artifact location of a reel.
func GetReelHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		reelID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid reel id"})
			return
		}

		var reel models.Reel
		if err := db.First(&reel, "id = ?", reelID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "reel not found"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"id":                  reel.ID,
			"title":               reel.Title,
			"status":              reel.Status,
			"progress_percentage": reel.ProgressPercentage,
			"ordered_media":       reel.OrderedMedia,
			"storage_path":        reel.StoragePath,
			"file_name":           reel.FileName,
			"duration":            reel.Duration,
			"error_message":       reel.ErrorMessage,
		})
	}
}

// RetryReelHandler re-enqueues a failed reel with its stored inputs. Retry
// re-runs the whole pipeline; nothing is resumed.
func RetryReelHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		reelID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid reel id"})
			return
		}

		var reel models.Reel
		if err := db.First(&reel, "id = ?", reelID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "reel not found"})
			return
		}

		if reel.Status == models.ReelStatusCompleted {
			c.JSON(http.StatusConflict, gin.H{"error": "reel already completed"})
			return
		}

		if err := db.Model(&reel).Updates(map[string]interface{}{
			"status":              models.ReelStatusPending,
			"progress_percentage": 0,
			"error_message":       "",
		}).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to reset reel"})
			return
		}

		if err := worker.EnqueueGenerateReel(reel.ID); err != nil {
			db.Model(&reel).Updates(map[string]interface{}{
				"status":        models.ReelStatusFailed,
				"error_message": "Failed to enqueue generation task",
			})
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to enqueue reel generation"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"id": reel.ID, "status": models.ReelStatusPending})
	}
}
