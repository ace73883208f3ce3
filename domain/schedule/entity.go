package schedule

import "time"

// Event represents one availability-coordination event.
type Event struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// Aggregate is the per-slot count of available participants for an event,
// plus the number of distinct respondents. SlotCounts always has one entry
// per slot of the weekly grid.
type Aggregate struct {
	SlotCounts      []int `json:"slot_counts"`
	RespondentCount int   `json:"respondent_count"`
}
