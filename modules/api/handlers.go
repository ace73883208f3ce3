package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/slotsync/modules/broadcast"
	scheduling "github.com/example/slotsync/modules/schedule"
)

// Rate limiting constants
const (
	messagesPerSecond = 10
	burstSize         = 20
)

// rateLimiter implements a simple token bucket rate limiter.
type rateLimiter struct {
	tokens     int
	maxTokens  int
	refillRate int // tokens per second
	lastRefill time.Time
	mu         sync.Mutex
}

func newRateLimiter(maxTokens, refillRate int) *rateLimiter {
	return &rateLimiter{
		tokens:     maxTokens,
		maxTokens:  maxTokens,
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

func (r *rateLimiter) allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(r.lastRefill)
	tokensToAdd := int(elapsed.Seconds()) * r.refillRate
	if tokensToAdd > 0 {
		r.tokens += tokensToAdd
		if r.tokens > r.maxTokens {
			r.tokens = r.maxTokens
		}
		r.lastRefill = now
	}

	if r.tokens > 0 {
		r.tokens--
		return true
	}
	return false
}

// createEvent handles POST /api/v1/events
func (m *Module) createEvent(c *fiber.Ctx) error {
	var req CreateEventRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
				Error:   "invalid request",
				Message: "request body must be valid JSON",
			})
		}
	}
	if err := m.validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid request",
			Message: "title must be at most 200 characters",
		})
	}

	event, err := m.schedule.CreateEvent(req.Title)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "creation failed",
			Message: err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(CreateEventResponse{
		ID:        event.ID,
		Title:     event.Title,
		ShareLink: shareLink(m.resolveBaseURL(c), event.ID),
	})
}

// getEvent handles GET /api/v1/events/:id
func (m *Module) getEvent(c *fiber.Ctx) error {
	eventID := strings.TrimSpace(c.Params("id"))

	event, aggregate, err := m.schedule.GetEvent(eventID)
	if err != nil {
		if errors.Is(err, scheduling.ErrEventNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
				Error:   "not found",
				Message: "event not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "lookup failed",
			Message: err.Error(),
		})
	}

	return c.JSON(EventResponse{
		ID:              event.ID,
		Title:           event.Title,
		CreatedAt:       event.CreatedAt,
		RespondentCount: aggregate.RespondentCount,
		SlotCounts:      aggregate.SlotCounts,
		ShareLink:       shareLink(m.resolveBaseURL(c), event.ID),
	})
}

// getStats handles GET /api/v1/stats
func (m *Module) getStats(c *fiber.Ctx) error {
	return c.JSON(m.stats.GetSummary())
}

// healthHandler handles GET /health
func (m *Module) healthHandler(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status: "healthy",
		Details: map[string]any{
			"connected_clients": m.hub.ClientCount(),
		},
	})
}

// handleWebSocket runs the read loop for one connection. The connection
// is registered with the hub immediately so shutdown can reach it, but
// it receives no event traffic until a join succeeds.
func (m *Module) handleWebSocket(c *websocket.Conn) {
	clientID := uuid.New().String()
	baseURL, _ := c.Locals(localBaseURL).(string)

	client := broadcast.NewClient(clientID, c)
	m.hub.Register(client)
	limiter := newRateLimiter(burstSize, messagesPerSecond)

	defer func() {
		m.hub.Unregister(client)
		c.Close()
	}()

	slog.Debug("websocket connected", "client_id", clientID)

	for {
		_, raw, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("websocket read error", "client_id", clientID, "error", err)
			}
			return
		}

		if !limiter.allow() {
			m.sendError(client, "Rate limit exceeded, please slow down")
			continue
		}

		var env broadcast.Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			m.sendError(client, "Invalid message format")
			continue
		}

		switch env.Type {
		case broadcast.MsgJoinEvent:
			m.handleJoinMessage(client, baseURL, env.Payload)
		case broadcast.MsgUpdateSlots:
			m.handleUpdateMessage(client, env.Payload)
		default:
			m.sendError(client, "Unknown message type: "+env.Type)
		}
	}
}

// handleJoinMessage binds the connection to an event and replies with a
// private snapshot. Joining the same event again just resends the
// snapshot; a join for a different event while bound is dropped.
func (m *Module) handleJoinMessage(client *broadcast.Client, baseURL string, raw json.RawMessage) {
	var payload JoinEventPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		m.sendError(client, "Invalid join payload")
		return
	}
	if payload.EventID == "" || payload.ParticipantID == "" {
		m.sendError(client, "event_id and participant_id are required")
		return
	}
	if bound := client.EventID(); bound != "" && bound != payload.EventID {
		return
	}

	// Existence check before any membership side effect: a failed join
	// must leave the connection joinable.
	if _, _, err := m.schedule.GetEvent(payload.EventID); err != nil {
		if errors.Is(err, scheduling.ErrEventNotFound) {
			m.sendError(client, "Event not found")
		} else {
			slog.Error("event lookup failed", "event_id", payload.EventID, "error", err)
		}
		return
	}

	if err := m.hub.Subscribe(client, payload.EventID, payload.ParticipantID); err != nil {
		// Lost a race with another join on the same connection
		return
	}

	// Snapshot after subscribing, so nothing published in between is
	// missed; at worst the client sees a newer update first.
	snapshot, err := m.schedule.EventSnapshot(payload.EventID, payload.ParticipantID)
	if err != nil {
		slog.Error("snapshot failed", "event_id", payload.EventID, "error", err)
		return
	}

	state := EventStatePayload{
		ID:              snapshot.Event.ID,
		Title:           snapshot.Event.Title,
		CreatedAt:       snapshot.Event.CreatedAt,
		RespondentCount: snapshot.Aggregate.RespondentCount,
		SlotCounts:      snapshot.Aggregate.SlotCounts,
		ShareLink:       shareLink(baseURL, snapshot.Event.ID),
		YourSlots:       snapshot.YourSlots,
	}
	if err := client.Send(broadcast.MsgEventState, state); err != nil {
		slog.Debug("failed to send event state", "client_id", client.ID, "error", err)
	}
}

// handleUpdateMessage replaces the sender's stored selection. Updates
// from connections not bound to the named event are silently ignored.
func (m *Module) handleUpdateMessage(client *broadcast.Client, raw json.RawMessage) {
	var payload UpdateSlotsPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return
	}
	if payload.EventID == "" || payload.ParticipantID == "" {
		return
	}
	if client.EventID() != payload.EventID {
		return
	}

	result, err := m.schedule.UpdateSlots(payload.EventID, payload.ParticipantID, payload.Slots)
	if err != nil {
		// Bound connections only reference known events; anything else
		// is a server-side problem, not the client's.
		slog.Error("slot update failed", "event_id", payload.EventID, "error", err)
		return
	}

	if err := client.Send(broadcast.MsgYourSlots, YourSlotsPayload{Slots: result.Slots}); err != nil {
		slog.Debug("failed to echo slots", "client_id", client.ID, "error", err)
	}
}

func (m *Module) sendError(client *broadcast.Client, message string) {
	if err := client.Send(broadcast.MsgEventError, EventErrorPayload{Message: message}); err != nil {
		slog.Debug("failed to send error", "client_id", client.ID, "error", err)
	}
}
