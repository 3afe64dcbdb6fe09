package models

import (
	"sort"
	"time"
)

// GeneralRoomID is the well-known room every signed-in user can join.
const GeneralRoomID = "general"

// RoomIDPrefix prefixes every pair-derived direct-message room id.
const RoomIDPrefix = "room"

type Room struct {
	ID        string    `gorm:"primaryKey;size:160" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Members   []User    `gorm:"many2many:room_members;foreignKey:ID;joinForeignKey:RoomID;references:UID;joinReferences:UserUID" json:"members,omitempty"`
	Messages  []Message `json:"messages,omitempty"`
}

// RoomMember is a membership row. Memberships are only ever inserted
// (insert-or-ignore), never overwritten, so concurrent additions commute.
type RoomMember struct {
	RoomID     string    `gorm:"primaryKey;size:160" json:"room_id"`
	UserUID    string    `gorm:"primaryKey;size:64" json:"user_uid"`
	LastReadAt time.Time `json:"last_read_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// RoomIDFor derives the canonical room id for a pair of users. The uids are
// sorted lexicographically first, so RoomIDFor(a, b) == RoomIDFor(b, a) and
// the same pair always maps to the same room regardless of who initiates.
func RoomIDFor(a, b string) string {
	pair := []string{a, b}
	sort.Strings(pair)
	return RoomIDPrefix + "_" + pair[0] + "_" + pair[1]
}

// OtherUID scans the known invites, computes the canonical room id for each
// pair, and returns the uid opposite currentUID on the first invite whose
// pair maps to roomID. Returns "" when no invite matches.
func OtherUID(invites []Invite, roomID, currentUID string) string {
	for _, inv := range invites {
		if RoomIDFor(inv.FromUID, inv.ToUID) != roomID {
			continue
		}
		if inv.FromUID == currentUID {
			return inv.ToUID
		}
		return inv.FromUID
	}
	return ""
}
