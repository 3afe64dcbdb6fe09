package websocket

import (
	"github.com/taskly/chat_backend/models"
)

// Invite commands arrive over REST; this file pushes the resulting lifecycle
// events to whichever participants are connected.

// NotifyInviteReceived tells the recipient a new invite is waiting.
func NotifyInviteReceived(invite models.Invite) {
	NotifyUser(invite.ToUID, "invite_received", map[string]interface{}{
		"invite_id": invite.ID,
		"from_uid":  invite.FromUID,
		"from_name": invite.From.DisplayName,
		"room_id":   models.RoomIDFor(invite.FromUID, invite.ToUID),
	})
}

// NotifyInviteResponded tells the sender their invite was accepted or
// rejected. On acceptance the payload carries the canonical room id so the
// sender's client can open the chat immediately.
func NotifyInviteResponded(invite models.Invite) {
	payload := map[string]interface{}{
		"invite_id": invite.ID,
		"to_uid":    invite.ToUID,
		"status":    invite.Status,
	}
	if invite.Status == models.InviteStatusAccepted {
		payload["room_id"] = models.RoomIDFor(invite.FromUID, invite.ToUID)
	}
	NotifyUser(invite.FromUID, "invite_"+invite.Status, payload)
}
