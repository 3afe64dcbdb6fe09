package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Message is immutable once created; the only deletion path is the
// retention sweep. DisplayName is a snapshot of the sender's name at send
// time so old messages keep their byline after a rename.
type Message struct {
	ID          string    `gorm:"primaryKey;size:64" json:"id"`
	RoomID      string    `gorm:"size:160;not null;index" json:"room_id"`
	Text        string    `gorm:"type:text;not null" json:"text"`
	UserUID     string    `gorm:"size:64;not null" json:"user_uid"`
	User        User      `gorm:"foreignKey:UserUID;references:UID" json:"user,omitempty"`
	DisplayName string    `gorm:"size:255" json:"display_name"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}
