package schedule

import domain "github.com/example/slotsync/domain/schedule"

// computeAggregate derives the full aggregate from the participant slot
// mapping. It is recomputed from scratch on every call; nothing incremental
// is maintained, so the result can never drift from the stored sets.
//
// A participant with an empty stored set still counts as a respondent: they
// answered, their answer is "no slots".
func computeAggregate(slots map[string]SlotSet) domain.Aggregate {
	counts := make([]int, TotalSlots)
	for _, set := range slots {
		for slot := range set {
			counts[slot]++
		}
	}
	return domain.Aggregate{
		SlotCounts:      counts,
		RespondentCount: len(slots),
	}
}
