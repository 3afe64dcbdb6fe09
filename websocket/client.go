package websocket

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/taskly/chat_backend/typing"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 10000
)

// Client represents a connected websocket client
type Client struct {
	hub         *Hub
	conn        *websocket.Conn
	send        chan []byte
	userUID     string
	displayName string

	rooms    map[string]bool
	roomsMux sync.RWMutex

	// One idle timer per room the user is typing in.
	typingTimers map[string]*time.Timer
	typingMux    sync.Mutex

	// offline is the deferred presence write registered at connect time.
	offline func()

	// closed guards send: broadcasts race with hub teardown, and a write
	// to a closed channel is fatal.
	sendMux sync.Mutex
	closed  bool
}

// trySend queues a message without blocking. It reports false when the send
// buffer is full or the channel is already closed.
func (c *Client) trySend(message []byte) bool {
	c.sendMux.Lock()
	defer c.sendMux.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- message:
		return true
	default:
		return false
	}
}

// closeSend closes the send channel exactly once. Later trySend calls report
// false instead of panicking.
func (c *Client) closeSend() {
	c.sendMux.Lock()
	defer c.sendMux.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// Message represents a websocket message
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// readPump pumps messages from the websocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("error: %v", err)
			}
			break
		}

		HandleIncomingMessage(c, message)
	}
}

// writePump pumps messages from the hub to the websocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued messages to the current websocket message
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// joinRoom adds the client to a room
func (c *Client) joinRoom(roomID string) {
	c.roomsMux.Lock()
	defer c.roomsMux.Unlock()
	c.rooms[roomID] = true
	c.hub.joinRoom(c, roomID)
}

// leaveRoom removes the client from a room
func (c *Client) leaveRoom(roomID string) {
	c.stopTyping(roomID)
	c.roomsMux.Lock()
	defer c.roomsMux.Unlock()
	delete(c.rooms, roomID)
	c.hub.leaveRoom(c, roomID)
}

// inRoom checks if the client is in a specific room
func (c *Client) inRoom(roomID string) bool {
	c.roomsMux.RLock()
	defer c.roomsMux.RUnlock()
	return c.rooms[roomID]
}

// startTyping writes the typing entry and arms (or rearms) the idle timer.
func (c *Client) startTyping(roomID string) {
	if c.hub.typing != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := c.hub.typing.Set(ctx, roomID, c.userUID, c.displayName); err != nil {
			log.Printf("[typing] set for %s in %s failed: %v", c.userUID, roomID, err)
		}
		cancel()
	}

	c.typingMux.Lock()
	if t, ok := c.typingTimers[roomID]; ok {
		t.Stop()
	}
	c.typingTimers[roomID] = time.AfterFunc(typing.IdleTimeout, func() {
		c.stopTyping(roomID)
	})
	c.typingMux.Unlock()
}

// stopTyping clears the typing entry and the idle timer for a room. Safe to
// call when nothing is armed.
func (c *Client) stopTyping(roomID string) {
	c.typingMux.Lock()
	if t, ok := c.typingTimers[roomID]; ok {
		t.Stop()
		delete(c.typingTimers, roomID)
	}
	c.typingMux.Unlock()

	if c.hub.typing != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := c.hub.typing.Clear(ctx, roomID, c.userUID); err != nil {
			log.Printf("[typing] clear for %s in %s failed: %v", c.userUID, roomID, err)
		}
		cancel()
	}

	c.hub.broadcastTyping(roomID, c.userUID, c.displayName, false)
}

// stopAllTyping clears every armed typing timer. Called on teardown so a
// dropped connection leaves no orphaned typing state.
func (c *Client) stopAllTyping() {
	c.typingMux.Lock()
	roomIDs := make([]string, 0, len(c.typingTimers))
	for roomID := range c.typingTimers {
		roomIDs = append(roomIDs, roomID)
	}
	c.typingMux.Unlock()

	for _, roomID := range roomIDs {
		c.stopTyping(roomID)
	}
}
