package websocket

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/taskly/chat_backend/messaging"
	"github.com/taskly/chat_backend/metrics"
	"github.com/taskly/chat_backend/presence"
	"github.com/taskly/chat_backend/typing"
)

// Hub maintains the set of active clients and broadcasts messages to them.
// It is the subscription owner: registering a client acquires its presence
// and room state, unregistering releases everything, so a dropped connection
// can never leak room membership or typing flags.
type Hub struct {
	// Registered clients
	clients    map[*Client]bool
	clientsMux sync.RWMutex

	// Rooms mapping (roomID -> clients)
	rooms    map[string]map[*Client]bool
	roomsMux sync.RWMutex

	// Register requests from the clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	presence *presence.Tracker
	typing   *typing.Tracker
	relay    *messaging.Client
}

// NewHub creates a new hub instance
func NewHub(p *presence.Tracker, t *typing.Tracker, relay *messaging.Client) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		rooms:      make(map[string]map[*Client]bool),
		presence:   p,
		typing:     t,
		relay:      relay,
	}
}

// Run starts the hub
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clientsMux.Lock()
			h.clients[client] = true
			h.clientsMux.Unlock()
			metrics.ConnectionsActive.Inc()

			if h.presence != nil {
				// Register the deferred offline write before announcing the
				// user online, so a crash in between never leaves the user
				// permanently marked online.
				client.offline = h.presence.Guard(client.userUID)

				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				if err := h.presence.SetOnline(ctx, client.userUID); err != nil {
					log.Printf("[presence] online write for %s failed: %v", client.userUID, err)
				}
				cancel()
			}
			h.broadcastPresence(client.userUID, presence.StateOnline)

		case client := <-h.unregister:
			h.clientsMux.Lock()
			_, ok := h.clients[client]
			if ok {
				delete(h.clients, client)
			}
			h.clientsMux.Unlock()
			if !ok {
				continue
			}

			metrics.ConnectionsActive.Dec()

			// Typing is cleared while the client is still a room member,
			// so the "stopped typing" broadcast reaches its rooms.
			client.stopAllTyping()

			// Remove client from all rooms
			h.roomsMux.Lock()
			for roomID, clients := range h.rooms {
				if _, ok := clients[client]; ok {
					delete(h.rooms[roomID], client)
					// Clean up empty rooms
					if len(h.rooms[roomID]) == 0 {
						delete(h.rooms, roomID)
					}
				}
			}
			h.roomsMux.Unlock()

			// Close only after the client is out of every room: a
			// broadcast racing the teardown must never write to a closed
			// channel.
			client.closeSend()

			// The deferred write covers both graceful exits and drops; the
			// read pump failing is what detects an ungraceful disconnect.
			if client.offline != nil {
				client.offline()
			}
			h.broadcastPresence(client.userUID, presence.StateOffline)
		}
	}
}

// joinRoom adds a client to a room
func (h *Hub) joinRoom(client *Client, roomID string) {
	h.roomsMux.Lock()
	defer h.roomsMux.Unlock()

	if _, ok := h.rooms[roomID]; !ok {
		h.rooms[roomID] = make(map[*Client]bool)
	}
	h.rooms[roomID][client] = true
}

// leaveRoom removes a client from a room
func (h *Hub) leaveRoom(client *Client, roomID string) {
	h.roomsMux.Lock()
	defer h.roomsMux.Unlock()

	if _, ok := h.rooms[roomID]; ok {
		delete(h.rooms[roomID], client)
		// Clean up empty rooms
		if len(h.rooms[roomID]) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

// broadcastToRoom sends a message to all local clients in a room. A client
// whose send buffer is full is torn down so one stuck connection cannot
// stall the room.
func (h *Hub) broadcastToRoom(roomID string, message []byte) {
	h.roomsMux.RLock()
	targets := make([]*Client, 0, len(h.rooms[roomID]))
	for client := range h.rooms[roomID] {
		targets = append(targets, client)
	}
	h.roomsMux.RUnlock()

	for _, client := range targets {
		if !client.trySend(message) {
			h.evict(client)
		}
	}
}

// evict drops a client that can no longer accept writes. The client leaves
// every room before its channel closes, so no later broadcast can reach it.
func (h *Hub) evict(client *Client) {
	h.roomsMux.Lock()
	for roomID, clients := range h.rooms {
		delete(clients, client)
		// Clean up empty rooms
		if len(clients) == 0 {
			delete(h.rooms, roomID)
		}
	}
	h.roomsMux.Unlock()

	h.clientsMux.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		metrics.ConnectionsActive.Dec()
	}
	h.clientsMux.Unlock()

	client.closeSend()
}

// broadcastAll sends a message to every connected client.
func (h *Hub) broadcastAll(message []byte) {
	h.clientsMux.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		targets = append(targets, client)
	}
	h.clientsMux.RUnlock()

	for _, client := range targets {
		client.trySend(message)
	}
}

// broadcastPresence announces a presence flip to every connected client.
func (h *Hub) broadcastPresence(uid, state string) {
	msg := Message{
		Type: "presence",
		Payload: map[string]interface{}{
			"uid":   uid,
			"state": state,
		},
	}
	msgBytes, err := json.Marshal(msg)
	if err != nil {
		return
	}
	h.broadcastAll(msgBytes)
}

// broadcastTyping announces a typing flag change to a room.
func (h *Hub) broadcastTyping(roomID, uid, displayName string, isTyping bool) {
	msg := Message{
		Type: "typing",
		Payload: map[string]interface{}{
			"room_id":      roomID,
			"uid":          uid,
			"display_name": displayName,
			"is_typing":    isTyping,
		},
	}
	msgBytes, err := json.Marshal(msg)
	if err != nil {
		return
	}
	h.broadcastToRoom(roomID, msgBytes)
}

// BroadcastToRoom sends a message to all clients in a room, local and (when
// the relay is configured) on other server instances.
func BroadcastToRoom(roomID string, msgType string, payload interface{}) {
	if hub == nil {
		return
	}

	msg := Message{
		Type:    msgType,
		Payload: payload,
	}

	msgBytes, err := json.Marshal(msg)
	if err != nil {
		log.Printf("error marshaling message: %v", err)
		return
	}

	hub.broadcastToRoom(roomID, msgBytes)

	if hub.relay != nil {
		if err := hub.relay.PublishRoomEvent(roomID, msgBytes); err != nil {
			log.Printf("[nats] relay publish for %s failed: %v", roomID, err)
		}
	}
}

// NotifyUser sends a message to every connection a user currently has.
func NotifyUser(uid string, msgType string, payload interface{}) {
	if hub == nil {
		return
	}

	msg := Message{
		Type:    msgType,
		Payload: payload,
	}

	msgBytes, err := json.Marshal(msg)
	if err != nil {
		log.Printf("error marshaling message: %v", err)
		return
	}

	hub.clientsMux.RLock()
	targets := make([]*Client, 0, len(hub.clients))
	for client := range hub.clients {
		if client.userUID == uid {
			targets = append(targets, client)
		}
	}
	hub.clientsMux.RUnlock()

	for _, client := range targets {
		client.trySend(msgBytes)
	}
}

// Global hub instance
var hub *Hub

// InitHub initializes the global hub and, when a relay is configured, starts
// replaying room events published by other instances.
func InitHub(p *presence.Tracker, t *typing.Tracker, relay *messaging.Client) {
	hub = NewHub(p, t, relay)
	go hub.Run()

	if relay != nil {
		if err := relay.SubscribeRoomEvents(func(roomID string, data []byte) {
			hub.broadcastToRoom(roomID, data)
		}); err != nil {
			log.Printf("[nats] room relay subscribe failed: %v", err)
		}
	}
}
