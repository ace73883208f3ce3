package events

import (
	"time"

	"github.com/go-monolith/mono/pkg/helper"
)

// EventCreatedEvent is emitted when a new coordination event is created.
type EventCreatedEvent struct {
	EventID   string    `json:"event_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// SlotsUpdatedEvent is emitted after a participant's slot selection has been
// stored and the event aggregate recomputed. It carries the full aggregate so
// consumers never have to read shared state.
type SlotsUpdatedEvent struct {
	EventID         string    `json:"event_id"`
	ParticipantID   string    `json:"participant_id"`
	SlotCounts      []int     `json:"slot_counts"`
	RespondentCount int       `json:"respondent_count"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Event definitions for the schedule domain.
var (
	EventCreatedV1 = helper.EventDefinition[EventCreatedEvent](
		"schedule",
		"EventCreated",
		"v1",
	)

	SlotsUpdatedV1 = helper.EventDefinition[SlotsUpdatedEvent](
		"schedule",
		"SlotsUpdated",
		"v1",
	)
)
