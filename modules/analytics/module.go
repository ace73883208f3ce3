package analytics

import (
	"context"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"

	"github.com/example/slotsync/events"
)

// Module consumes schedule events and tracks usage counters.
type Module struct {
	store  *Store
	logger types.Logger
}

// Compile-time interface checks
var (
	_ mono.Module              = (*Module)(nil)
	_ mono.EventConsumerModule = (*Module)(nil)
)

// NewModule creates a new analytics module.
func NewModule(logger types.Logger) *Module {
	return &Module{
		store:  NewStore(),
		logger: logger,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "analytics"
}

// RegisterEventConsumers registers event handlers for schedule events.
func (m *Module) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(
		registry, events.EventCreatedV1, m.handleEventCreated, m,
	); err != nil {
		return fmt.Errorf("failed to register EventCreated consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.SlotsUpdatedV1, m.handleSlotsUpdated, m,
	); err != nil {
		return fmt.Errorf("failed to register SlotsUpdated consumer: %w", err)
	}

	m.logger.Info("Registered event consumers",
		"events", []string{"EventCreated.v1", "SlotsUpdated.v1"})
	return nil
}

func (m *Module) handleEventCreated(_ context.Context, event events.EventCreatedEvent, _ *mono.Msg) error {
	m.store.RecordEventCreated(event.EventID, event.CreatedAt)
	m.logger.Debug("Recorded event creation", "eventID", event.EventID)
	return nil
}

func (m *Module) handleSlotsUpdated(_ context.Context, event events.SlotsUpdatedEvent, _ *mono.Msg) error {
	m.store.RecordSlotUpdate(event.EventID, event.RespondentCount, event.UpdatedAt)
	m.logger.Debug("Recorded slot update",
		"eventID", event.EventID,
		"respondents", event.RespondentCount)
	return nil
}

// Start initializes the analytics module.
func (m *Module) Start(ctx context.Context) error {
	m.logger.Info("Analytics module started")
	return nil
}

// Stop gracefully shuts down the module.
func (m *Module) Stop(ctx context.Context) error {
	m.logger.Info("Analytics module stopped")
	return nil
}

// Store returns the analytics store.
func (m *Module) Store() *Store {
	return m.store
}
