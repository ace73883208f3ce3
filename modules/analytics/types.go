package analytics

import (
	"sync"
	"time"
)

// Summary is the process-wide usage summary.
type Summary struct {
	EventsCreated    int64      `json:"events_created"`
	SlotUpdates      int64      `json:"slot_updates"`
	LastEventCreated *time.Time `json:"last_event_created,omitempty"`
	LastSlotUpdate   *time.Time `json:"last_slot_update,omitempty"`
}

// EventActivity tracks update activity for one event.
type EventActivity struct {
	EventID         string    `json:"event_id"`
	SlotUpdates     int64     `json:"slot_updates"`
	RespondentCount int       `json:"respondent_count"`
	LastSlotUpdate  time.Time `json:"last_slot_update"`
}

// Store provides thread-safe storage for usage counters. Counters grow for
// the process lifetime, like the event data they describe.
type Store struct {
	mu               sync.RWMutex
	eventsCreated    int64
	slotUpdates      int64
	lastEventCreated time.Time
	lastSlotUpdate   time.Time
	activity         map[string]*EventActivity
}

// NewStore creates an empty analytics store.
func NewStore() *Store {
	return &Store{
		activity: make(map[string]*EventActivity),
	}
}

// RecordEventCreated records one event creation.
func (s *Store) RecordEventCreated(eventID string, createdAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.eventsCreated++
	s.lastEventCreated = createdAt
	if _, exists := s.activity[eventID]; !exists {
		s.activity[eventID] = &EventActivity{EventID: eventID}
	}
}

// RecordSlotUpdate records one accepted slot update.
func (s *Store) RecordSlotUpdate(eventID string, respondentCount int, updatedAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.slotUpdates++
	s.lastSlotUpdate = updatedAt

	activity, exists := s.activity[eventID]
	if !exists {
		activity = &EventActivity{EventID: eventID}
		s.activity[eventID] = activity
	}
	activity.SlotUpdates++
	activity.RespondentCount = respondentCount
	activity.LastSlotUpdate = updatedAt
}

// GetSummary returns the process-wide usage summary.
func (s *Store) GetSummary() Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary := Summary{
		EventsCreated: s.eventsCreated,
		SlotUpdates:   s.slotUpdates,
	}
	if !s.lastEventCreated.IsZero() {
		t := s.lastEventCreated
		summary.LastEventCreated = &t
	}
	if !s.lastSlotUpdate.IsZero() {
		t := s.lastSlotUpdate
		summary.LastSlotUpdate = &t
	}
	return summary
}

// GetEventActivity returns the activity record for one event.
func (s *Store) GetEventActivity(eventID string) (EventActivity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	activity, exists := s.activity[eventID]
	if !exists {
		return EventActivity{}, false
	}
	return *activity, true
}
