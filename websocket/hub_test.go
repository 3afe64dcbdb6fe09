package websocket

import (
	"encoding/json"
	"testing"
	"time"
)

// newTestClient builds a client with a buffered send channel and no pumps, so
// hub bookkeeping can be exercised without a live websocket connection.
func newTestClient(h *Hub, uid, name string) *Client {
	return &Client{
		hub:          h,
		send:         make(chan []byte, 16),
		userUID:      uid,
		displayName:  name,
		rooms:        make(map[string]bool),
		typingTimers: make(map[string]*time.Timer),
	}
}

func recv(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case raw := <-c.send:
		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			t.Fatalf("unmarshal hub message: %v", err)
		}
		return msg
	case <-time.After(time.Second):
		t.Fatal("no message delivered")
		return Message{}
	}
}

func TestJoinAndLeaveRoom(t *testing.T) {
	h := NewHub(nil, nil, nil)
	c := newTestClient(h, "u1", "Alice")

	c.joinRoom("room_u1_u2")
	if !c.inRoom("room_u1_u2") {
		t.Fatal("client should report membership after join")
	}
	if len(h.rooms["room_u1_u2"]) != 1 {
		t.Fatal("hub should track the client in the room")
	}

	c.leaveRoom("room_u1_u2")
	if c.inRoom("room_u1_u2") {
		t.Error("client should not report membership after leave")
	}
	if _, ok := h.rooms["room_u1_u2"]; ok {
		t.Error("hub should drop empty rooms")
	}
}

func TestBroadcastToRoom_OnlyReachesMembers(t *testing.T) {
	h := NewHub(nil, nil, nil)
	inRoom := newTestClient(h, "u1", "Alice")
	outside := newTestClient(h, "u2", "Bob")
	h.clients[inRoom] = true
	h.clients[outside] = true
	inRoom.joinRoom("room_u1_u2")

	h.broadcastToRoom("room_u1_u2", []byte(`{"type":"message","payload":{}}`))

	msg := recv(t, inRoom)
	if msg.Type != "message" {
		t.Errorf("unexpected type %q", msg.Type)
	}
	select {
	case <-outside.send:
		t.Error("non-member must not receive room broadcasts")
	default:
	}
}

// waitForType drains a client's send channel until a message of the wanted
// type arrives.
func waitForType(t *testing.T, c *Client, msgType string) Message {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case raw := <-c.send:
			var msg Message
			if err := json.Unmarshal(raw, &msg); err != nil {
				t.Fatalf("unmarshal hub message: %v", err)
			}
			if msg.Type == msgType {
				return msg
			}
		case <-deadline:
			t.Fatalf("no %q message delivered", msgType)
			return Message{}
		}
	}
}

// assertSendClosed drains remaining messages and fails unless the channel
// closes within a second.
func assertSendClosed(t *testing.T, c *Client) {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-c.send:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("send channel still open")
			return
		}
	}
}

func TestUnregisterWhileTyping(t *testing.T) {
	h := NewHub(nil, nil, nil)
	go h.Run()

	leaver := newTestClient(h, "u1", "Alice")
	peer := newTestClient(h, "u2", "Bob")
	h.register <- leaver
	h.register <- peer
	leaver.joinRoom("room_u1_u2")
	peer.joinRoom("room_u1_u2")

	// Armed idle timer, as if the user dropped mid-keystroke.
	leaver.startTyping("room_u1_u2")

	h.unregister <- leaver

	// The peer sees the typing flag cleared before the leaver is gone.
	msg := waitForType(t, peer, "typing")
	payload := msg.Payload.(map[string]interface{})
	if payload["uid"] != "u1" || payload["is_typing"] != false {
		t.Errorf("unexpected typing payload %v", payload)
	}
	waitForType(t, peer, "presence")

	assertSendClosed(t, leaver)

	h.roomsMux.RLock()
	_, stillMember := h.rooms["room_u1_u2"][leaver]
	h.roomsMux.RUnlock()
	if stillMember {
		t.Error("unregistered client must leave its rooms")
	}
	h.clientsMux.RLock()
	_, stillRegistered := h.clients[leaver]
	h.clientsMux.RUnlock()
	if stillRegistered {
		t.Error("unregistered client must leave the client set")
	}
}

func TestEvictedClientLeavesEveryRoom(t *testing.T) {
	h := NewHub(nil, nil, nil)
	stuck := &Client{
		hub:          h,
		send:         make(chan []byte), // unbuffered and never drained
		userUID:      "u1",
		rooms:        make(map[string]bool),
		typingTimers: make(map[string]*time.Timer),
	}
	peer := newTestClient(h, "u2", "Bob")
	h.clients[stuck] = true
	h.clients[peer] = true
	stuck.joinRoom("room_u1_u2")
	stuck.joinRoom("room_u1_u3")
	peer.joinRoom("room_u1_u3")

	h.broadcastToRoom("room_u1_u2", []byte(`{}`))

	h.roomsMux.RLock()
	_, inOther := h.rooms["room_u1_u3"][stuck]
	h.roomsMux.RUnlock()
	if inOther {
		t.Fatal("evicted client must leave every room, not just the broadcast one")
	}

	// A later broadcast to the other room must reach the peer and must not
	// touch the evicted client's closed channel.
	h.broadcastToRoom("room_u1_u3", []byte(`{"type":"message","payload":{}}`))
	if msg := recv(t, peer); msg.Type != "message" {
		t.Errorf("unexpected type %q", msg.Type)
	}
}

func TestBroadcastToRoom_DropsClientWithFullSendBuffer(t *testing.T) {
	h := NewHub(nil, nil, nil)
	stuck := &Client{
		hub:          h,
		send:         make(chan []byte), // unbuffered and never drained
		userUID:      "u1",
		rooms:        make(map[string]bool),
		typingTimers: make(map[string]*time.Timer),
	}
	h.clients[stuck] = true
	stuck.joinRoom("room_u1_u2")

	h.broadcastToRoom("room_u1_u2", []byte(`{}`))

	if _, ok := h.clients[stuck]; ok {
		t.Error("client with a full send buffer should be evicted")
	}
	if _, ok := <-stuck.send; ok {
		t.Error("evicted client's send channel should be closed")
	}
}

func TestBroadcastPresence_ReachesEveryClient(t *testing.T) {
	h := NewHub(nil, nil, nil)
	a := newTestClient(h, "u1", "Alice")
	b := newTestClient(h, "u2", "Bob")
	h.clients[a] = true
	h.clients[b] = true

	h.broadcastPresence("u3", "online")

	for _, c := range []*Client{a, b} {
		msg := recv(t, c)
		if msg.Type != "presence" {
			t.Fatalf("unexpected type %q", msg.Type)
		}
		payload := msg.Payload.(map[string]interface{})
		if payload["uid"] != "u3" || payload["state"] != "online" {
			t.Errorf("unexpected payload %v", payload)
		}
	}
}

func TestBroadcastTyping_TargetsRoom(t *testing.T) {
	h := NewHub(nil, nil, nil)
	member := newTestClient(h, "u2", "Bob")
	h.clients[member] = true
	member.joinRoom("room_u1_u2")

	h.broadcastTyping("room_u1_u2", "u1", "Alice", true)

	msg := recv(t, member)
	if msg.Type != "typing" {
		t.Fatalf("unexpected type %q", msg.Type)
	}
	payload := msg.Payload.(map[string]interface{})
	if payload["is_typing"] != true || payload["display_name"] != "Alice" {
		t.Errorf("unexpected payload %v", payload)
	}
}

func TestPackageBroadcasts_NoopWithoutHub(t *testing.T) {
	prev := hub
	hub = nil
	defer func() { hub = prev }()

	// Must not panic when the hub was never initialized (http-only mode).
	BroadcastToRoom("room_u1_u2", "message", map[string]string{"text": "hi"})
	NotifyUser("u1", "invite_received", nil)
}

func TestNotifyUser_DeliversToAllConnectionsOfUser(t *testing.T) {
	prev := hub
	hub = NewHub(nil, nil, nil)
	defer func() { hub = prev }()

	first := newTestClient(hub, "u1", "Alice")
	second := newTestClient(hub, "u1", "Alice")
	other := newTestClient(hub, "u2", "Bob")
	hub.clients[first] = true
	hub.clients[second] = true
	hub.clients[other] = true

	NotifyUser("u1", "invite_received", map[string]string{"invite_id": "i1"})

	for _, c := range []*Client{first, second} {
		msg := recv(t, c)
		if msg.Type != "invite_received" {
			t.Fatalf("unexpected type %q", msg.Type)
		}
	}
	select {
	case <-other.send:
		t.Error("other users must not receive the notification")
	default:
	}
}
