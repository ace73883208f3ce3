package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"

	"github.com/gofiber/contrib/websocket"
)

// ErrEventBound is returned when a client attempts to subscribe to a second
// event. A session's event binding is immutable for its lifetime; switching
// events requires a new connection.
var ErrEventBound = errors.New("client already bound to a different event")

// Envelope is the wire format for every WebSocket message in both directions.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Conn is the subset of a WebSocket connection the hub writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client represents one connected WebSocket session. Writes go through a
// mutex so private replies and hub broadcasts never interleave on the wire.
type Client struct {
	ID string

	conn Conn

	mu            sync.Mutex
	eventID       string
	participantID string
}

// NewClient creates a client for a connection. The client starts unbound.
func NewClient(id string, conn Conn) *Client {
	return &Client{
		ID:   id,
		conn: conn,
	}
}

// EventID returns the event this client is bound to, empty while unjoined.
func (c *Client) EventID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.eventID
}

// ParticipantID returns the participant id recorded at join time.
func (c *Client) ParticipantID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.participantID
}

// bind records the event binding exactly once. It reports whether the client
// is bound to the given event after the call.
func (c *Client) bind(eventID, participantID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.eventID != "" {
		return c.eventID == eventID
	}
	c.eventID = eventID
	c.participantID = participantID
	return true
}

// Send marshals a typed envelope and writes it to the connection.
func (c *Client) Send(msgType string, payload any) error {
	frame, err := marshalFrame(msgType, payload)
	if err != nil {
		return err
	}
	return c.write(frame)
}

func (c *Client) write(frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, frame)
}

func marshalFrame(msgType string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: msgType, Payload: data})
}

// GroupMessage is a message addressed to an event's membership group.
type GroupMessage struct {
	EventID string
	Type    string
	Payload any
}

// Hub tracks connected clients and the membership group of each event, and
// fans group messages out to members. Register, unregister, and broadcast all
// drain through one run loop, so members observe broadcasts in publish order.
type Hub struct {
	clients    map[string]*Client
	groups     map[string]map[string]bool // eventID -> set of clientIDs
	register   chan *Client
	unregister chan *Client
	broadcast  chan *GroupMessage
	done       chan struct{}
	mu         sync.RWMutex
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		groups:     make(map[string]map[string]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *GroupMessage, 256),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's main loop. It accepts a context for graceful shutdown.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			log.Println("[hub] Shutting down...")
			h.closeAllClients()
			close(h.done)
			return
		case client := <-h.register:
			h.handleRegister(client)
		case client := <-h.unregister:
			h.handleUnregister(client)
		case msg := <-h.broadcast:
			h.handleBroadcast(msg)
		}
	}
}

// Wait blocks until the hub has stopped.
func (h *Hub) Wait() {
	<-h.done
}

// Register adds a client to the hub.
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a client from the hub and its membership group.
// Disconnection never mutates event data, only membership.
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Broadcast sends a message to every member of an event's group.
func (h *Hub) Broadcast(eventID, msgType string, payload any) {
	h.broadcast <- &GroupMessage{
		EventID: eventID,
		Type:    msgType,
		Payload: payload,
	}
}

// Subscribe binds a client to an event's membership group. The first
// subscription wins for the client's lifetime: re-subscribing to the same
// event is a no-op, subscribing to a different event returns ErrEventBound.
func (h *Hub) Subscribe(client *Client, eventID, participantID string) error {
	if !client.bind(eventID, participantID) {
		return ErrEventBound
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.groups[eventID] == nil {
		h.groups[eventID] = make(map[string]bool)
	}
	h.groups[eventID][client.ID] = true
	return nil
}

// ClientCount returns the total number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// GroupSize returns the number of clients in an event's membership group.
func (h *Hub) GroupSize(eventID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[eventID])
}

func (h *Hub) handleRegister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ID] = client
	log.Printf("[hub] Client %s registered", client.ID)
}

func (h *Hub) handleUnregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.ID]; !ok {
		return
	}
	delete(h.clients, client.ID)
	if eventID := client.EventID(); eventID != "" && h.groups[eventID] != nil {
		delete(h.groups[eventID], client.ID)
		if len(h.groups[eventID]) == 0 {
			delete(h.groups, eventID)
		}
	}
	log.Printf("[hub] Client %s unregistered", client.ID)
}

// handleBroadcast fans one message out to an event's membership group.
// Delivery is fire-and-forget: a slow or failed write to one client never
// delays the others.
func (h *Hub) handleBroadcast(msg *GroupMessage) {
	frame, err := marshalFrame(msg.Type, msg.Payload)
	if err != nil {
		log.Printf("[hub] Failed to marshal broadcast message: %v", err)
		return
	}

	h.mu.RLock()
	members := make([]*Client, 0, len(h.groups[msg.EventID]))
	for clientID := range h.groups[msg.EventID] {
		if client, ok := h.clients[clientID]; ok {
			members = append(members, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range members {
		if err := client.write(frame); err != nil {
			log.Printf("[hub] Failed to send to client %s: %v", client.ID, err)
		}
	}
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.clients {
		_ = client.conn.Close()
	}
	h.clients = make(map[string]*Client)
	h.groups = make(map[string]map[string]bool)
}
