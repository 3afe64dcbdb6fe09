// Package messaging provides a NATS client wrapper that relays room events
// between Taskly server instances. Each instance publishes the events it
// originates and replays events from other instances into its local hub, so a
// client's subscription sees writes made through any instance.
package messaging

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// SubjectRooms is the subject prefix for room event fan-out; full subjects
// are rooms.<roomID>.
const SubjectRooms = "rooms"

// Envelope wraps a relayed event with the id of the instance that produced
// it, so instances can ignore their own echoes.
type Envelope struct {
	Origin string          `json:"origin"`
	RoomID string          `json:"room_id"`
	Data   json.RawMessage `json:"data"`
}

// Client wraps the NATS connection with helper methods for the room relay.
type Client struct {
	conn     *nats.Conn
	serverID string

	mu   sync.Mutex
	subs map[string]*nats.Subscription
}

// Connect dials NATS with reconnect handling and returns a ready client.
func Connect(url, serverID string) (*Client, error) {
	opts := []nats.Option{
		nats.Name("taskly-" + serverID),
		nats.ReconnectWait(2 * time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Printf("[nats] disconnected: %v", err)
			} else {
				log.Printf("[nats] disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("[nats] reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			log.Printf("[nats] connection closed")
		}),
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	log.Printf("[nats] connected to %s", nc.ConnectedUrl())

	return &Client{
		conn:     nc,
		serverID: serverID,
		subs:     make(map[string]*nats.Subscription),
	}, nil
}

// PublishRoomEvent relays an already-encoded room event to other instances.
func (c *Client) PublishRoomEvent(roomID string, data []byte) error {
	env, err := json.Marshal(Envelope{Origin: c.serverID, RoomID: roomID, Data: data})
	if err != nil {
		return err
	}
	return c.conn.Publish(SubjectRooms+"."+roomID, env)
}

// SubscribeRoomEvents registers a handler for events from other instances.
// Events this instance published are dropped before the handler runs.
func (c *Client) SubscribeRoomEvents(handler func(roomID string, data []byte)) error {
	subject := SubjectRooms + ".>"
	sub, err := c.conn.Subscribe(subject, func(msg *nats.Msg) {
		var env Envelope
		if err := json.Unmarshal(msg.Data, &env); err != nil {
			log.Printf("[nats] bad envelope on %s: %v", msg.Subject, err)
			return
		}
		if env.Origin == c.serverID {
			return
		}
		handler(env.RoomID, env.Data)
	})
	if err != nil {
		return fmt.Errorf("nats subscribe %s: %w", subject, err)
	}

	c.mu.Lock()
	c.subs[subject] = sub
	c.mu.Unlock()
	return nil
}

// Close drains all subscriptions and the connection.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for subject, sub := range c.subs {
		if err := sub.Drain(); err != nil {
			log.Printf("[nats] drain %s: %v", subject, err)
		}
	}
	c.subs = make(map[string]*nats.Subscription)

	if err := c.conn.Drain(); err != nil {
		log.Printf("[nats] connection drain: %v", err)
	}
}
