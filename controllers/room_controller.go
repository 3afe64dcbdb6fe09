package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/taskly/chat_backend/database"
	"github.com/taskly/chat_backend/middleware"
	"github.com/taskly/chat_backend/models"
	"gorm.io/gorm/clause"
)

// GetRooms godoc
// @Summary Get all rooms for the authenticated user
// @Description Returns every chat room the authenticated user is a member of, with unread counts
// @Tags rooms
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{} "List of rooms"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Server error"
// @Router /api/rooms [get]
func GetRooms(c *gin.Context) {
	uid := c.MustGet(middleware.CtxUserUID).(string)

	var memberships []models.RoomMember
	if err := database.DB.Where("user_uid = ?", uid).Find(&memberships).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch room membership"})
		return
	}

	roomIDs := make([]string, 0, len(memberships))
	lastReadMap := make(map[string]models.RoomMember)
	for _, m := range memberships {
		roomIDs = append(roomIDs, m.RoomID)
		lastReadMap[m.RoomID] = m
	}

	var rooms []models.Room
	if err := database.DB.Preload("Members").Where("id IN ?", roomIDs).Find(&rooms).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch rooms"})
		return
	}

	// Build the response with lastReadAt and unreadCount
	response := []gin.H{}
	for _, room := range rooms {
		lastRead := lastReadMap[room.ID].LastReadAt

		var unreadCount int64
		database.DB.Model(&models.Message{}).
			Where("room_id = ? AND created_at > ?", room.ID, lastRead).
			Count(&unreadCount)

		response = append(response, gin.H{
			"room":        room,
			"lastReadAt":  lastRead,
			"unreadCount": unreadCount,
		})
	}

	c.JSON(http.StatusOK, gin.H{"rooms": response})
}

// GetRoom godoc
// @Summary Get details of a specific room
// @Description Returns details of a chat room the user is a member of
// @Tags rooms
// @Produce json
// @Security BearerAuth
// @Param id path string true "Room ID"
// @Success 200 {object} map[string]interface{} "Room details"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Room not found"
// @Router /api/rooms/{id} [get]
func GetRoom(c *gin.Context) {
	uid := c.MustGet(middleware.CtxUserUID).(string)
	roomID := c.Param("id")

	var member models.RoomMember
	if err := database.DB.Where("room_id = ? AND user_uid = ?", roomID, uid).First(&member).Error; err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "You don't have access to this room"})
		return
	}

	var room models.Room
	if err := database.DB.Preload("Members").First(&room, "id = ?", roomID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
		return
	}

	var unreadCount int64
	database.DB.Model(&models.Message{}).
		Where("room_id = ? AND created_at > ?", roomID, member.LastReadAt).
		Count(&unreadCount)

	c.JSON(http.StatusOK, gin.H{
		"room":        room,
		"lastReadAt":  member.LastReadAt,
		"unreadCount": unreadCount,
	})
}

// EnsureGeneralRoom godoc
// @Summary Join the shared general room
// @Description Upserts the well-known general room and merges the caller into its members. Idempotent.
// @Tags rooms
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{} "General room"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Server error"
// @Router /api/rooms/general [post]
func EnsureGeneralRoom(c *gin.Context) {
	uid := c.MustGet(middleware.CtxUserUID).(string)

	// Upsert without a read: create if missing, keep if present, and make
	// sure the caller is a member. Membership is union only.
	room := models.Room{ID: models.GeneralRoomID, Name: "General"}
	if err := database.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&room).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upsert general room"})
		return
	}

	member := models.RoomMember{RoomID: models.GeneralRoomID, UserUID: uid, LastReadAt: time.Now()}
	if err := database.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&member).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to join general room"})
		return
	}

	database.DB.First(&room, "id = ?", models.GeneralRoomID)
	c.JSON(http.StatusOK, gin.H{"room": room})
}
