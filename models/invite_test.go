package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPairKey_Unordered(t *testing.T) {
	assert.Equal(t, PairKey("u1", "u2"), PairKey("u2", "u1"))
	assert.NotEqual(t, PairKey("u1", "u2"), PairKey("u1", "u3"))
}

func TestInviteActive(t *testing.T) {
	assert.True(t, (&Invite{Status: InviteStatusPending}).Active())
	assert.True(t, (&Invite{Status: InviteStatusAccepted}).Active())
	assert.False(t, (&Invite{Status: InviteStatusRejected}).Active())
}

func TestLatestPerPair_HidesStaleDuplicates(t *testing.T) {
	base := time.Now()
	invites := []Invite{
		{ID: "a", FromUID: "u1", ToUID: "u2", CreatedAt: base},
		// The racing double-send: same pair from the other side, newer.
		{ID: "b", FromUID: "u2", ToUID: "u1", CreatedAt: base.Add(time.Minute)},
		{ID: "c", FromUID: "u1", ToUID: "u3", CreatedAt: base},
	}

	out := LatestPerPair(invites)
	assert.Len(t, out, 2)

	ids := []string{out[0].ID, out[1].ID}
	assert.Contains(t, ids, "b")
	assert.Contains(t, ids, "c")
	assert.NotContains(t, ids, "a")
}

func TestLatestPerPair_KeepsFirstSeenOrder(t *testing.T) {
	base := time.Now()
	invites := []Invite{
		{ID: "a", FromUID: "u1", ToUID: "u2", CreatedAt: base.Add(time.Hour)},
		{ID: "b", FromUID: "u1", ToUID: "u3", CreatedAt: base},
		{ID: "c", FromUID: "u2", ToUID: "u1", CreatedAt: base}, // older duplicate of pair u1-u2
	}

	out := LatestPerPair(invites)
	assert.Len(t, out, 2)
	assert.Equal(t, "a", out[0].ID)
	assert.Equal(t, "b", out[1].ID)
}

func TestLatestPerPair_Empty(t *testing.T) {
	assert.Empty(t, LatestPerPair(nil))
}
