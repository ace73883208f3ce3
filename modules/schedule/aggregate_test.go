package schedule

import "testing"

func TestComputeAggregate(t *testing.T) {
	slots := map[string]SlotSet{
		"alice": {2: {}, 5: {}},
		"bob":   {5: {}},
		"carol": {},
	}

	agg := computeAggregate(slots)

	if len(agg.SlotCounts) != TotalSlots {
		t.Fatalf("len(SlotCounts) = %d, want %d", len(agg.SlotCounts), TotalSlots)
	}
	if agg.SlotCounts[2] != 1 {
		t.Errorf("SlotCounts[2] = %d, want 1", agg.SlotCounts[2])
	}
	if agg.SlotCounts[5] != 2 {
		t.Errorf("SlotCounts[5] = %d, want 2", agg.SlotCounts[5])
	}
	for i, count := range agg.SlotCounts {
		if i != 2 && i != 5 && count != 0 {
			t.Errorf("SlotCounts[%d] = %d, want 0", i, count)
		}
	}

	// An empty selection is still a response.
	if agg.RespondentCount != 3 {
		t.Errorf("RespondentCount = %d, want 3", agg.RespondentCount)
	}
}

func TestComputeAggregateEmpty(t *testing.T) {
	agg := computeAggregate(map[string]SlotSet{})

	if len(agg.SlotCounts) != TotalSlots {
		t.Fatalf("len(SlotCounts) = %d, want %d", len(agg.SlotCounts), TotalSlots)
	}
	if agg.RespondentCount != 0 {
		t.Errorf("RespondentCount = %d, want 0", agg.RespondentCount)
	}
}
