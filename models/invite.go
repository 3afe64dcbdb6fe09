package models

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Invite status values. pending -> accepted and pending -> rejected are both
// terminal; a fresh invite is created for a pair after rejection.
const (
	InviteStatusPending  = "pending"
	InviteStatusAccepted = "accepted"
	InviteStatusRejected = "rejected"
)

type Invite struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	FromUID   string    `gorm:"size:64;not null;index" json:"from_uid"`
	From      User      `gorm:"foreignKey:FromUID;references:UID" json:"from_user,omitempty"`
	ToUID     string    `gorm:"size:64;not null;index" json:"to_uid"`
	To        User      `gorm:"foreignKey:ToUID;references:UID" json:"to_user,omitempty"`
	Status    string    `gorm:"size:20;default:'pending'" json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (i *Invite) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}

// Active reports whether the invite still binds the pair: a pending or
// accepted invite blocks a new send, a rejected one does not.
func (i *Invite) Active() bool {
	return i.Status == InviteStatusPending || i.Status == InviteStatusAccepted
}

// PairKey returns the unordered-pair key for two uids.
func PairKey(a, b string) string {
	pair := []string{a, b}
	sort.Strings(pair)
	return pair[0] + "-" + pair[1]
}

// LatestPerPair keeps only the most-recently-created invite per unordered
// user pair. Stale duplicates left behind by historic double-sends are hidden
// from listings, not deleted.
func LatestPerPair(invites []Invite) []Invite {
	latest := make(map[string]Invite)
	order := make([]string, 0, len(invites))
	for _, inv := range invites {
		key := PairKey(inv.FromUID, inv.ToUID)
		prev, seen := latest[key]
		if !seen {
			order = append(order, key)
			latest[key] = inv
			continue
		}
		if inv.CreatedAt.After(prev.CreatedAt) {
			latest[key] = inv
		}
	}

	out := make([]Invite, 0, len(latest))
	for _, key := range order {
		out = append(out, latest[key])
	}
	return out
}
