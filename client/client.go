// Package client provides a Go client for the slotsync WebSocket protocol.
package client

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"golang.org/x/net/websocket"
)

// DefaultQuiescence is how long a selection must stay unchanged before it
// is submitted. Rapid edits coalesce into one update.
const DefaultQuiescence = 120 * time.Millisecond

// ErrNotJoined is returned when a selection is flushed before Join.
var ErrNotJoined = errors.New("client has not joined an event")

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// EventState is the private snapshot received after a successful join.
type EventState struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	RespondentCount int    `json:"respondent_count"`
	SlotCounts      []int  `json:"slot_counts"`
	ShareLink       string `json:"share_link"`
	YourSlots       []int  `json:"your_slots"`
}

// EventUpdate is a broadcast aggregate refresh.
type EventUpdate struct {
	ID              string `json:"id"`
	RespondentCount int    `json:"respondent_count"`
	SlotCounts      []int  `json:"slot_counts"`
}

// Handlers receives server messages dispatched by Listen. Nil handlers
// drop their message type.
type Handlers struct {
	OnEventState  func(EventState)
	OnEventUpdate func(EventUpdate)
	OnYourSlots   func(slots []int)
	OnEventError  func(message string)
}

// Client is a connection to one coordination event. It is safe for
// concurrent use.
type Client struct {
	conn     *websocket.Conn
	send     func(env envelope) error
	handlers Handlers

	mu            sync.Mutex
	eventID       string
	participantID string
	pending       []int
	dirty         bool
	timer         *time.Timer
	quiescence    time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithQuiescence overrides the debounce window for SetSlots.
func WithQuiescence(d time.Duration) Option {
	return func(c *Client) { c.quiescence = d }
}

// WithHandlers sets the message handlers dispatched by Listen.
func WithHandlers(h Handlers) Option {
	return func(c *Client) { c.handlers = h }
}

// Dial connects to a server's /ws endpoint. url is a ws:// or wss:// URL.
func Dial(url, origin string, opts ...Option) (*Client, error) {
	conn, err := websocket.Dial(url, "", origin)
	if err != nil {
		return nil, err
	}
	c := newClient(func(env envelope) error {
		return websocket.JSON.Send(conn, env)
	}, opts...)
	c.conn = conn
	return c, nil
}

// newClient builds a client around a send function, which lets tests
// observe outgoing messages without a server.
func newClient(send func(env envelope) error, opts ...Option) *Client {
	c := &Client{
		send:       send,
		quiescence: DefaultQuiescence,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Join requests membership in an event. The server answers with either
// eventState or eventError; both arrive through Listen.
func (c *Client) Join(eventID, participantID string) error {
	c.mu.Lock()
	c.eventID = eventID
	c.participantID = participantID
	c.mu.Unlock()

	payload, err := json.Marshal(map[string]string{
		"event_id":       eventID,
		"participant_id": participantID,
	})
	if err != nil {
		return err
	}
	return c.send(envelope{Type: "joinEvent", Payload: payload})
}

// SetSlots records the local selection and schedules a submission once it
// has been stable for the quiescence window. Each call replaces the
// pending selection and restarts the clock.
func (c *Client) SetSlots(slots []int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pending = append([]int(nil), slots...)
	c.dirty = true

	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.quiescence, func() {
		_ = c.Flush()
	})
}

// Flush submits the pending selection immediately, if there is one.
func (c *Client) Flush() error {
	c.mu.Lock()
	if !c.dirty {
		c.mu.Unlock()
		return nil
	}
	if c.eventID == "" {
		c.mu.Unlock()
		return ErrNotJoined
	}
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	eventID, participantID := c.eventID, c.participantID
	slots := c.pending
	c.pending = nil
	c.dirty = false
	c.mu.Unlock()

	payload, err := json.Marshal(map[string]any{
		"event_id":       eventID,
		"participant_id": participantID,
		"slots":          slots,
	})
	if err != nil {
		return err
	}
	return c.send(envelope{Type: "updateSlots", Payload: payload})
}

// Listen reads server messages until the connection closes, dispatching
// each to the matching handler. It returns the read error that ended the
// loop.
func (c *Client) Listen() error {
	if c.conn == nil {
		return errors.New("client is not connected")
	}
	for {
		var env envelope
		if err := websocket.JSON.Receive(c.conn, &env); err != nil {
			return err
		}
		c.dispatch(env)
	}
}

func (c *Client) dispatch(env envelope) {
	switch env.Type {
	case "eventState":
		if c.handlers.OnEventState == nil {
			return
		}
		var state EventState
		if err := json.Unmarshal(env.Payload, &state); err != nil {
			return
		}
		c.handlers.OnEventState(state)
	case "eventUpdate":
		if c.handlers.OnEventUpdate == nil {
			return
		}
		var update EventUpdate
		if err := json.Unmarshal(env.Payload, &update); err != nil {
			return
		}
		c.handlers.OnEventUpdate(update)
	case "yourSlots":
		if c.handlers.OnYourSlots == nil {
			return
		}
		var payload struct {
			Slots []int `json:"slots"`
		}
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			return
		}
		c.handlers.OnYourSlots(payload.Slots)
	case "eventError":
		if c.handlers.OnEventError == nil {
			return
		}
		var payload struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			return
		}
		c.handlers.OnEventError(payload.Message)
	}
}

// Close tears down the connection. Pending selections are discarded.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.dirty = false
	c.mu.Unlock()

	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}
