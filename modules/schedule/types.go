package schedule

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"

	domain "github.com/example/slotsync/domain/schedule"
)

// Weekly grid definition. One slot is a half-hour interval; the grid covers
// 06:00 to 24:00 on each of the seven days. These constants are authoritative
// for both validation and presentation.
const (
	Days                = 7
	SlotDurationMinutes = 30
	DayStartMinutes     = 6 * 60
	DayEndMinutes       = 24 * 60
	SlotsPerDay         = (DayEndMinutes - DayStartMinutes) / SlotDurationMinutes
	TotalSlots          = Days * SlotsPerDay
)

const (
	// DefaultTitle is substituted when an event is created with a blank title.
	DefaultTitle = "Untitled event"

	// MaxTitleLength caps event titles at the creation boundary.
	MaxTitleLength = 200

	// EventIDLength is the length of generated event ids.
	EventIDLength = 8
)

// SlotSet is one participant's complete current selection, stored as an
// unordered set of slot indices.
type SlotSet map[int]struct{}

// Contains reports whether the set includes the given slot index.
func (s SlotSet) Contains(slot int) bool {
	_, ok := s[slot]
	return ok
}

// Sorted returns the set as an ascending slice. An empty set yields an empty,
// non-nil slice so it serializes as [] rather than null.
func (s SlotSet) Sorted() []int {
	slots := make([]int, 0, len(s))
	for slot := range s {
		slots = append(slots, slot)
	}
	sort.Ints(slots)
	return slots
}

// NormalizeSlots converts an untrusted sequence of slot candidates into a
// canonical SlotSet. Candidates that fail integer coercion, are non-finite,
// or fall outside [0, TotalSlots) are dropped silently; duplicates collapse.
func NormalizeSlots(candidates []any) SlotSet {
	valid := make([]int, 0, len(candidates))
	for _, candidate := range candidates {
		slot, ok := coerceSlot(candidate)
		if !ok {
			continue
		}
		if slot < 0 || slot >= TotalSlots {
			continue
		}
		valid = append(valid, slot)
	}

	set := make(SlotSet, len(valid))
	for _, slot := range lo.Uniq(valid) {
		set[slot] = struct{}{}
	}
	return set
}

// coerceSlot accepts the value shapes a JSON payload can carry for a slot
// index: numbers (only when integral) and numeric strings.
func coerceSlot(candidate any) (int, bool) {
	switch v := candidate.(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
			return 0, false
		}
		return int(v), true
	case int:
		return v, true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// eventRecord is the stored form of an event: its identity plus the mapping
// from participant id to that participant's current SlotSet.
type eventRecord struct {
	event domain.Event
	slots map[string]SlotSet
}

// EventStore provides thread-safe, in-memory storage for events. Events live
// for the process lifetime; there is no delete.
type EventStore struct {
	mu     sync.RWMutex
	events map[string]*eventRecord
}

// NewEventStore creates an empty event store.
func NewEventStore() *EventStore {
	return &EventStore{
		events: make(map[string]*eventRecord),
	}
}

// Create stores a new event under the given id and returns it.
func (s *EventStore) Create(id, title string) domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	record := &eventRecord{
		event: domain.Event{
			ID:        id,
			Title:     title,
			CreatedAt: time.Now().UTC(),
		},
		slots: make(map[string]SlotSet),
	}
	s.events[id] = record
	return record.event
}

// Get returns the event with the given id. A missing id is an expected
// outcome, reported through the boolean.
func (s *EventStore) Get(id string) (domain.Event, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.events[id]
	if !ok {
		return domain.Event{}, false
	}
	return record.event, true
}

// SetSlots replaces the participant's stored selection wholesale and returns
// the aggregate recomputed under the same lock, so the result is consistent
// with the write. The boolean reports whether the event exists.
func (s *EventStore) SetSlots(eventID, participantID string, set SlotSet) (domain.Aggregate, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.events[eventID]
	if !ok {
		return domain.Aggregate{}, false
	}
	record.slots[participantID] = set
	return computeAggregate(record.slots), true
}

// ParticipantSlots returns the participant's current selection in ascending
// order, empty when nothing is stored. The boolean reports event existence.
func (s *EventStore) ParticipantSlots(eventID, participantID string) ([]int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.events[eventID]
	if !ok {
		return nil, false
	}
	return record.slots[participantID].Sorted(), true
}

// Aggregate recomputes the aggregate for the given event.
func (s *EventStore) Aggregate(eventID string) (domain.Aggregate, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.events[eventID]
	if !ok {
		return domain.Aggregate{}, false
	}
	return computeAggregate(record.slots), true
}

// Len returns the number of stored events.
func (s *EventStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}
