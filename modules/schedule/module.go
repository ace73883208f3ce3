package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"

	domain "github.com/example/slotsync/domain/schedule"
	"github.com/example/slotsync/events"
)

// Module owns the event store and publishes schedule events on the bus.
//
// All mutations run under a single mutex: the store write, the aggregate
// recomputation, and the SlotsUpdated publish form one non-overlapping step.
// That is what gives connected viewers a broadcast order identical to the
// order mutations were accepted, without sequence numbers.
type Module struct {
	mu       sync.Mutex
	service  *Service
	eventBus mono.EventBus
	logger   types.Logger
}

// Compile-time interface checks
var (
	_ mono.Module              = (*Module)(nil)
	_ mono.EventBusAwareModule = (*Module)(nil)
	_ mono.EventEmitterModule  = (*Module)(nil)
)

// NewModule creates a new schedule module.
func NewModule(logger types.Logger) (*Module, error) {
	service, err := NewService()
	if err != nil {
		return nil, fmt.Errorf("create schedule service: %w", err)
	}
	return &Module{
		service: service,
		logger:  logger,
	}, nil
}

// Name returns the module name.
func (m *Module) Name() string {
	return "schedule"
}

// SetEventBus receives the EventBus from the framework.
func (m *Module) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module can emit.
func (m *Module) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.EventCreatedV1.ToBase(),
		events.SlotsUpdatedV1.ToBase(),
	}
}

// Start initializes the schedule module.
func (m *Module) Start(ctx context.Context) error {
	m.logger.Info("Schedule module started",
		"slotsPerDay", SlotsPerDay,
		"totalSlots", TotalSlots)
	return nil
}

// Stop gracefully shuts down the module.
func (m *Module) Stop(ctx context.Context) error {
	m.logger.Info("Schedule module stopped", "events", m.service.Store().Len())
	return nil
}

// Service returns the underlying schedule service.
func (m *Module) Service() *Service {
	return m.service
}

// CreateEvent creates a new event and publishes an EventCreated event.
func (m *Module) CreateEvent(title string) (domain.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	event, err := m.service.CreateEvent(title)
	if err != nil {
		return domain.Event{}, err
	}

	if err := events.EventCreatedV1.Publish(m.eventBus, events.EventCreatedEvent{
		EventID:   event.ID,
		Title:     event.Title,
		CreatedAt: event.CreatedAt,
	}, nil); err != nil {
		m.logger.Warn("Failed to publish EventCreated event", "error", err)
	}

	m.logger.Info("Event created", "eventID", event.ID, "title", event.Title)
	return event, nil
}

// GetEvent returns the event and its current aggregate.
func (m *Module) GetEvent(id string) (domain.Event, domain.Aggregate, error) {
	return m.service.GetEvent(id)
}

// EventSnapshot returns the private join view for one participant.
func (m *Module) EventSnapshot(eventID, participantID string) (Snapshot, error) {
	return m.service.EventSnapshot(eventID, participantID)
}

// UpdateSlots applies a participant's selection and publishes the recomputed
// aggregate. An accepted mutation is applied unconditionally; a publish
// failure is logged, never rolled back.
func (m *Module) UpdateSlots(eventID, participantID string, candidates []any) (UpdateResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	result, err := m.service.UpdateSlots(eventID, participantID, candidates)
	if err != nil {
		return UpdateResult{}, err
	}

	if err := events.SlotsUpdatedV1.Publish(m.eventBus, events.SlotsUpdatedEvent{
		EventID:         eventID,
		ParticipantID:   participantID,
		SlotCounts:      result.Aggregate.SlotCounts,
		RespondentCount: result.Aggregate.RespondentCount,
		UpdatedAt:       time.Now().UTC(),
	}, nil); err != nil {
		m.logger.Warn("Failed to publish SlotsUpdated event",
			"eventID", eventID,
			"error", err)
	}

	m.logger.Debug("Slots updated",
		"eventID", eventID,
		"participantID", participantID,
		"slots", len(result.Slots))
	return result, nil
}
