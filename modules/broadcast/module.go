package broadcast

import (
	"context"
	"fmt"
	"log"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"

	"github.com/example/slotsync/events"
)

// Message types for WebSocket communication.
const (
	MsgJoinEvent   = "joinEvent"
	MsgUpdateSlots = "updateSlots"
	MsgEventState  = "eventState"
	MsgEventError  = "eventError"
	MsgEventUpdate = "eventUpdate"
	MsgYourSlots   = "yourSlots"
)

// EventUpdatePayload is the broadcast sent to an event's membership group
// after an accepted slot update.
type EventUpdatePayload struct {
	ID              string `json:"id"`
	SlotCounts      []int  `json:"slot_counts"`
	RespondentCount int    `json:"respondent_count"`
}

// Module consumes schedule events and fans them out to WebSocket clients.
type Module struct {
	hub       *Hub
	cancelHub context.CancelFunc
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.EventConsumerModule   = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates a new broadcast module.
func NewModule() *Module {
	return &Module{
		hub: NewHub(),
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "broadcast"
}

// Start launches the hub run loop.
func (m *Module) Start(_ context.Context) error {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelHub = cancel
	go m.hub.Run(ctx)
	log.Println("[broadcast] Module started - WebSocket hub running")
	return nil
}

// Stop shuts down the hub and closes remaining client connections.
func (m *Module) Stop(_ context.Context) error {
	clientCount := m.hub.ClientCount()
	if m.cancelHub != nil {
		m.cancelHub()
		m.hub.Wait()
	}
	log.Printf("[broadcast] Module stopped - %d clients were connected", clientCount)
	return nil
}

// Health returns the health status.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"connected_clients": m.hub.ClientCount(),
		},
	}
}

// RegisterEventConsumers subscribes to schedule events.
func (m *Module) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(
		registry, events.SlotsUpdatedV1, m.handleSlotsUpdated, m,
	); err != nil {
		return fmt.Errorf("failed to register SlotsUpdated consumer: %w", err)
	}

	log.Println("[broadcast] Registered event consumers: SlotsUpdated")
	return nil
}

// handleSlotsUpdated relays a recomputed aggregate to every session in the
// event's membership group, including the originator.
func (m *Module) handleSlotsUpdated(_ context.Context, event events.SlotsUpdatedEvent, _ *mono.Msg) error {
	m.hub.Broadcast(event.EventID, MsgEventUpdate, EventUpdatePayload{
		ID:              event.EventID,
		SlotCounts:      event.SlotCounts,
		RespondentCount: event.RespondentCount,
	})
	return nil
}

// GetHub returns the WebSocket hub for the API module to use.
func (m *Module) GetHub() *Hub {
	return m.hub
}
