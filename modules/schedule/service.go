package schedule

import (
	"fmt"
	"strings"

	gonanoid "github.com/jaevor/go-nanoid"

	domain "github.com/example/slotsync/domain/schedule"
)

// eventIDAlphabet is the character set for generated event ids.
const eventIDAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// Snapshot is the full private view of an event for one participant: the
// event itself, the current aggregate, and that participant's own selection.
type Snapshot struct {
	Event     domain.Event
	Aggregate domain.Aggregate
	YourSlots []int
}

// UpdateResult is the outcome of an accepted slot update: the canonical
// normalized selection and the recomputed aggregate.
type UpdateResult struct {
	Slots     []int
	Aggregate domain.Aggregate
}

// Service provides event coordination operations over an in-memory store.
type Service struct {
	store      *EventStore
	newEventID func() string
}

// NewService creates a new schedule service with its own store.
func NewService() (*Service, error) {
	newEventID, err := gonanoid.CustomASCII(eventIDAlphabet, EventIDLength)
	if err != nil {
		return nil, fmt.Errorf("create event id generator: %w", err)
	}
	return &Service{
		store:      NewEventStore(),
		newEventID: newEventID,
	}, nil
}

// Store returns the underlying event store.
func (s *Service) Store() *EventStore {
	return s.store
}

// CreateEvent creates a new event. A blank title becomes the default
// placeholder. Creation always succeeds; id collisions are accepted as
// negligible for short-lived in-memory events.
func (s *Service) CreateEvent(title string) (domain.Event, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = DefaultTitle
	}
	return s.store.Create(s.newEventID(), title), nil
}

// GetEvent returns the event and its current aggregate.
func (s *Service) GetEvent(id string) (domain.Event, domain.Aggregate, error) {
	event, ok := s.store.Get(id)
	if !ok {
		return domain.Event{}, domain.Aggregate{}, ErrEventNotFound
	}
	aggregate, _ := s.store.Aggregate(id)
	return event, aggregate, nil
}

// EventSnapshot returns the private join view for one participant.
func (s *Service) EventSnapshot(eventID, participantID string) (Snapshot, error) {
	event, ok := s.store.Get(eventID)
	if !ok {
		return Snapshot{}, ErrEventNotFound
	}
	aggregate, _ := s.store.Aggregate(eventID)
	yourSlots, _ := s.store.ParticipantSlots(eventID, participantID)
	return Snapshot{
		Event:     event,
		Aggregate: aggregate,
		YourSlots: yourSlots,
	}, nil
}

// UpdateSlots normalizes the submitted candidates and replaces the
// participant's stored selection wholesale. Invalid candidates are dropped
// silently; the previous selection is discarded, not merged.
func (s *Service) UpdateSlots(eventID, participantID string, candidates []any) (UpdateResult, error) {
	set := NormalizeSlots(candidates)
	aggregate, ok := s.store.SetSlots(eventID, participantID, set)
	if !ok {
		return UpdateResult{}, ErrEventNotFound
	}
	return UpdateResult{
		Slots:     set.Sorted(),
		Aggregate: aggregate,
	}, nil
}
