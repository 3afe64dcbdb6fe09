package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoomIDFor_Commutative(t *testing.T) {
	assert.Equal(t, RoomIDFor("u1", "u2"), RoomIDFor("u2", "u1"))
	assert.Equal(t, "room_u1_u2", RoomIDFor("u2", "u1"))
}

func TestRoomIDFor_DistinctPairs(t *testing.T) {
	assert.NotEqual(t, RoomIDFor("u1", "u2"), RoomIDFor("u1", "u3"))
	assert.NotEqual(t, RoomIDFor("a", "b"), RoomIDFor("a", "c"))
}

func TestRoomIDFor_Deterministic(t *testing.T) {
	for i := 0; i < 10; i++ {
		assert.Equal(t, "room_alice_bob", RoomIDFor("bob", "alice"))
	}
}

func TestOtherUID(t *testing.T) {
	invites := []Invite{
		{FromUID: "u1", ToUID: "u2"},
		{FromUID: "u3", ToUID: "u1"},
	}

	assert.Equal(t, "u2", OtherUID(invites, RoomIDFor("u1", "u2"), "u1"))
	assert.Equal(t, "u1", OtherUID(invites, RoomIDFor("u1", "u2"), "u2"))
	assert.Equal(t, "u3", OtherUID(invites, RoomIDFor("u1", "u3"), "u1"))
}

func TestOtherUID_NoMatch(t *testing.T) {
	invites := []Invite{{FromUID: "u1", ToUID: "u2"}}
	assert.Empty(t, OtherUID(invites, RoomIDFor("u5", "u6"), "u5"))
	assert.Empty(t, OtherUID(nil, "room_a_b", "a"))
}
