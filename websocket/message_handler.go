package websocket

import (
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/taskly/chat_backend/database"
	"github.com/taskly/chat_backend/metrics"
	"github.com/taskly/chat_backend/models"
	"github.com/taskly/chat_backend/pruner"
)

// PruneScheduler, when set, receives a RoomOpened signal the first time a
// client subscribes to a room, arming the opportunistic retention sweep.
var PruneScheduler *pruner.Scheduler

// MessagePayload represents the structure of a chat message payload
type MessagePayload struct {
	RoomID string `json:"room_id"`
	Text   string `json:"text"`
}

// TypingPayload represents a typing indicator update from a client.
type TypingPayload struct {
	RoomID   string `json:"room_id"`
	IsTyping bool   `json:"is_typing"`
}

// SaveMessage stores a chat message with a server-assigned timestamp and the
// sender's current display name snapshot.
func SaveMessage(client *Client, payload MessagePayload) (models.Message, error) {
	message := models.Message{
		RoomID:      payload.RoomID,
		Text:        strings.TrimSpace(payload.Text),
		UserUID:     client.userUID,
		DisplayName: client.displayName,
	}

	if err := database.DB.Create(&message).Error; err != nil {
		return message, err
	}

	metrics.MessagesSent.Inc()
	return message, nil
}

// HandleIncomingMessage processes an incoming WebSocket message
func HandleIncomingMessage(client *Client, messageBytes []byte) {
	var msg Message
	if err := json.Unmarshal(messageBytes, &msg); err != nil {
		log.Printf("Error unmarshaling message: %v", err)
		return
	}

	switch msg.Type {
	case "join_room":
		roomID, ok := msg.Payload.(string)
		if !ok || roomID == "" {
			return
		}

		// Only members may follow a room's stream.
		var member models.RoomMember
		if err := database.DB.Where("room_id = ? AND user_uid = ?", roomID, client.userUID).
			First(&member).Error; err != nil {
			log.Printf("User %s attempted to join room %s without membership", client.userUID, roomID)
			return
		}

		client.joinRoom(roomID)
		updateLastReadTime(client.userUID, roomID)

		if PruneScheduler != nil {
			PruneScheduler.RoomOpened(roomID)
		}
	case "leave_room":
		if roomID, ok := msg.Payload.(string); ok {
			client.leaveRoom(roomID)
		}
	case "message":
		payloadBytes, err := json.Marshal(msg.Payload)
		if err != nil {
			log.Printf("Error marshaling payload: %v", err)
			return
		}

		var payload MessagePayload
		if err := json.Unmarshal(payloadBytes, &payload); err != nil {
			log.Printf("Error unmarshaling message payload: %v", err)
			return
		}

		if payload.RoomID == "" || strings.TrimSpace(payload.Text) == "" {
			return
		}

		if !client.inRoom(payload.RoomID) {
			log.Printf("User %s attempted to send message to room %s without joining",
				client.userUID, payload.RoomID)
			return
		}

		client.stopTyping(payload.RoomID)

		savedMessage, err := SaveMessage(client, payload)
		if err != nil {
			log.Printf("Error saving message to database: %v", err)
			return
		}

		BroadcastToRoom(payload.RoomID, "message", savedMessage)
	case "typing":
		payloadBytes, err := json.Marshal(msg.Payload)
		if err != nil {
			return
		}

		var payload TypingPayload
		if err := json.Unmarshal(payloadBytes, &payload); err != nil {
			log.Printf("Error unmarshaling typing payload: %v", err)
			return
		}

		HandleTyping(client, payload)
	}
}

// HandleTyping applies a typing indicator update: true writes the entry and
// arms the one second idle timer, false (or the timer expiring) clears it.
func HandleTyping(client *Client, payload TypingPayload) {
	if payload.RoomID == "" || !client.inRoom(payload.RoomID) {
		return
	}

	metrics.TypingEvents.Inc()

	if payload.IsTyping {
		client.startTyping(payload.RoomID)
		client.hub.broadcastTyping(payload.RoomID, client.userUID, client.displayName, true)
	} else {
		client.stopTyping(payload.RoomID)
	}
}

// updateLastReadTime updates the last read timestamp for a user in a room
func updateLastReadTime(userUID, roomID string) {
	var member models.RoomMember
	result := database.DB.Where("user_uid = ? AND room_id = ?", userUID, roomID).First(&member)

	if result.Error != nil {
		log.Printf("Error finding room member: %v", result.Error)
		return
	}

	member.LastReadAt = time.Now()
	if err := database.DB.Save(&member).Error; err != nil {
		log.Printf("Error updating last read time: %v", err)
	}
}
