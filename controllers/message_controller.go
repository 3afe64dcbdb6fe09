package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/taskly/chat_backend/database"
	"github.com/taskly/chat_backend/metrics"
	"github.com/taskly/chat_backend/middleware"
	"github.com/taskly/chat_backend/models"
	"github.com/taskly/chat_backend/pruner"
	"github.com/taskly/chat_backend/websocket"
)

// PruneScheduler, when set, arms the opportunistic retention sweep after a
// room's history is first served.
var PruneScheduler *pruner.Scheduler

type CreateMessageInput struct {
	RoomID string `json:"room_id" binding:"required" example:"room_u1_u2"`
	Text   string `json:"text" binding:"required" example:"Hello, everyone!"`
}

// GetMessages godoc
// @Summary Get all messages for a room
// @Description Returns the full message history for a room, ordered by creation time ascending
// @Tags messages
// @Produce json
// @Security BearerAuth
// @Param room_id query string true "Room ID"
// @Success 200 {object} map[string]interface{} "List of messages"
// @Failure 400 {object} map[string]string "Missing room ID"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 500 {object} map[string]string "Server error"
// @Router /api/messages [get]
func GetMessages(c *gin.Context) {
	uid := c.MustGet(middleware.CtxUserUID).(string)
	roomID := c.Query("room_id")
	if roomID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "room_id is required"})
		return
	}

	// Check if user is a member of the room
	var member models.RoomMember
	if err := database.DB.Where("room_id = ? AND user_uid = ?", roomID, uid).First(&member).Error; err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "You don't have access to this room"})
		return
	}

	var messages []models.Message
	if err := database.DB.Where("room_id = ?", roomID).
		Order("created_at ASC").
		Find(&messages).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch messages"})
		return
	}

	if PruneScheduler != nil {
		PruneScheduler.RoomOpened(roomID)
	}

	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// CreateMessage godoc
// @Summary Send a message to a room
// @Description Stores a message with a server-assigned timestamp and pushes it to the room's subscribers
// @Tags messages
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param message body CreateMessageInput true "Message Creation"
// @Success 201 {object} map[string]interface{} "Message sent successfully"
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 500 {object} map[string]string "Server error"
// @Router /api/messages [post]
func CreateMessage(c *gin.Context) {
	uid := c.MustGet(middleware.CtxUserUID).(string)

	var input CreateMessageInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	text := strings.TrimSpace(input.Text)
	if text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message text cannot be empty"})
		return
	}

	// Check if user is a member of the room
	var member models.RoomMember
	if err := database.DB.Where("room_id = ? AND user_uid = ?", input.RoomID, uid).First(&member).Error; err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "You don't have access to this room"})
		return
	}

	var sender models.User
	if err := database.DB.First(&sender, "uid = ?", uid).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load sender"})
		return
	}

	message := models.Message{
		RoomID:      input.RoomID,
		Text:        text,
		UserUID:     uid,
		DisplayName: sender.DisplayName,
	}

	if err := database.DB.Create(&message).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create message"})
		return
	}

	metrics.MessagesSent.Inc()

	// Push to subscribers on every instance
	websocket.BroadcastToRoom(input.RoomID, "message", message)

	c.JSON(http.StatusCreated, gin.H{
		"message": "Message sent successfully",
		"data":    message,
	})
}
