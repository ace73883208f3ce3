package api

import "time"

// CreateEventRequest is the API request to create an event.
type CreateEventRequest struct {
	Title string `json:"title" validate:"omitempty,max=200"`
}

// CreateEventResponse is the API response for event creation.
type CreateEventResponse struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	ShareLink string `json:"share_link"`
}

// EventResponse is the API response for an event lookup.
type EventResponse struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	CreatedAt       time.Time `json:"created_at"`
	RespondentCount int       `json:"respondent_count"`
	SlotCounts      []int     `json:"slot_counts"`
	ShareLink       string    `json:"share_link"`
}

// ErrorResponse is the API error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// HealthResponse is the API health check response.
type HealthResponse struct {
	Status  string         `json:"status"`
	Details map[string]any `json:"details,omitempty"`
}

// JoinEventPayload is the WebSocket payload for joining an event.
type JoinEventPayload struct {
	EventID       string `json:"event_id"`
	ParticipantID string `json:"participant_id"`
}

// UpdateSlotsPayload is the WebSocket payload for submitting a selection.
// Slots stays loosely typed so normalization can apply its own coercion and
// drop rules instead of failing the whole message on one bad entry.
type UpdateSlotsPayload struct {
	EventID       string `json:"event_id"`
	ParticipantID string `json:"participant_id"`
	Slots         []any  `json:"slots"`
}

// EventStatePayload is the private snapshot sent on a successful join.
type EventStatePayload struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	CreatedAt       time.Time `json:"created_at"`
	RespondentCount int       `json:"respondent_count"`
	SlotCounts      []int     `json:"slot_counts"`
	ShareLink       string    `json:"share_link"`
	YourSlots       []int     `json:"your_slots"`
}

// EventErrorPayload is the private error sent on a failed join.
type EventErrorPayload struct {
	Message string `json:"message"`
}

// YourSlotsPayload is the private echo of a canonical normalized selection.
type YourSlotsPayload struct {
	Slots []int `json:"slots"`
}
