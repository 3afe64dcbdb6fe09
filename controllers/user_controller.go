package controllers

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/taskly/chat_backend/database"
	"github.com/taskly/chat_backend/middleware"
	"github.com/taskly/chat_backend/models"
	"github.com/taskly/chat_backend/presence"
	"github.com/taskly/chat_backend/utils"
)

// PresenceTracker is wired in at startup so the directory can join online
// flags into user listings.
var PresenceTracker *presence.Tracker

// profileDebouncer coalesces profile writes per uid: at most one upsert per
// quiet second, matching how often auth profile changes are worth persisting.
var profileDebouncer = utils.NewDebouncer(time.Second)

type UpdateProfileInput struct {
	DisplayName string `json:"display_name"`
	PhotoURL    string `json:"photo_url"`
}

// GetUsers godoc
// @Summary List the user directory
// @Description Returns every known user except the caller, with presence flags
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{} "List of users"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Server error"
// @Router /api/users [get]
func GetUsers(c *gin.Context) {
	uid := c.MustGet(middleware.CtxUserUID).(string)

	var users []models.User
	if err := database.DB.Where("uid <> ?", uid).Order("display_name").Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch users"})
		return
	}

	online := map[string]bool{}
	if PresenceTracker != nil {
		snapshot, err := PresenceTracker.Snapshot(c.Request.Context())
		if err != nil {
			// Presence is best-effort; the directory still renders.
			log.Printf("[presence] snapshot failed: %v", err)
		} else {
			online = snapshot
		}
	}

	profiles := make([]models.PublicProfile, 0, len(users))
	for _, u := range users {
		profiles = append(profiles, models.PublicProfile{
			UID:         u.UID,
			DisplayName: u.DisplayName,
			Email:       u.Email,
			PhotoURL:    u.PhotoURL,
			IsOnline:    online[u.UID],
		})
	}

	c.JSON(http.StatusOK, gin.H{"users": profiles})
}

// UpdateProfile godoc
// @Summary Update the caller's directory profile
// @Description Queues a debounced profile upsert; bursts of changes collapse into one write
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param profile body UpdateProfileInput true "Profile fields"
// @Success 202 {object} map[string]string "Profile update queued"
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Router /api/users/profile [put]
func UpdateProfile(c *gin.Context) {
	uid := c.MustGet(middleware.CtxUserUID).(string)

	var input UpdateProfileInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// The write itself is non-critical: failures are logged and swallowed,
	// the directory just keeps the previous profile.
	profileDebouncer.Trigger(uid, func() {
		updates := map[string]interface{}{}
		if input.DisplayName != "" {
			updates["display_name"] = input.DisplayName
		}
		if input.PhotoURL != "" {
			updates["photo_url"] = input.PhotoURL
		}
		if len(updates) == 0 {
			return
		}
		if err := database.DB.Model(&models.User{}).Where("uid = ?", uid).Updates(updates).Error; err != nil {
			log.Printf("[users] profile upsert for %s failed: %v", uid, err)
		}
	})

	c.JSON(http.StatusAccepted, gin.H{"message": "Profile update queued"})
}

// UploadAvatar godoc
// @Summary Upload a profile photo
// @Description Stores the image in the avatar bucket and points photoURL at it
// @Tags users
// @Accept mpfd
// @Produce json
// @Security BearerAuth
// @Param file formData file true "Image file"
// @Success 200 {object} map[string]string "Avatar updated"
// @Failure 400 {object} map[string]string "Missing file"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Upload failed"
// @Router /api/users/avatar [post]
func UploadAvatar(c *gin.Context) {
	uid := c.MustGet(middleware.CtxUserUID).(string)

	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	url, err := utils.UploadAvatar(fh, uid)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upload avatar"})
		return
	}

	if err := database.DB.Model(&models.User{}).Where("uid = ?", uid).
		Update("photo_url", url).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"photo_url": url})
}
