package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreEmptySummary(t *testing.T) {
	store := NewStore()
	summary := store.GetSummary()

	assert.Zero(t, summary.EventsCreated)
	assert.Zero(t, summary.SlotUpdates)
	assert.Nil(t, summary.LastEventCreated)
	assert.Nil(t, summary.LastSlotUpdate)

	_, ok := store.GetEventActivity("nope")
	assert.False(t, ok)
}

func TestStoreRecordEventCreated(t *testing.T) {
	store := NewStore()
	now := time.Now().UTC()

	store.RecordEventCreated("ev1", now)
	store.RecordEventCreated("ev2", now.Add(time.Minute))

	summary := store.GetSummary()
	assert.Equal(t, int64(2), summary.EventsCreated)
	require.NotNil(t, summary.LastEventCreated)
	assert.Equal(t, now.Add(time.Minute), *summary.LastEventCreated)

	activity, ok := store.GetEventActivity("ev1")
	require.True(t, ok)
	assert.Equal(t, "ev1", activity.EventID)
	assert.Zero(t, activity.SlotUpdates)
}

func TestStoreRecordSlotUpdate(t *testing.T) {
	store := NewStore()
	now := time.Now().UTC()

	store.RecordEventCreated("ev1", now)
	store.RecordSlotUpdate("ev1", 1, now.Add(time.Second))
	store.RecordSlotUpdate("ev1", 2, now.Add(2*time.Second))

	summary := store.GetSummary()
	assert.Equal(t, int64(2), summary.SlotUpdates)
	require.NotNil(t, summary.LastSlotUpdate)
	assert.Equal(t, now.Add(2*time.Second), *summary.LastSlotUpdate)

	activity, ok := store.GetEventActivity("ev1")
	require.True(t, ok)
	assert.Equal(t, int64(2), activity.SlotUpdates)
	assert.Equal(t, 2, activity.RespondentCount)
	assert.Equal(t, now.Add(2*time.Second), activity.LastSlotUpdate)
}

func TestStoreSlotUpdateForUnseenEvent(t *testing.T) {
	// Updates can arrive before the creation event when consumers race;
	// the store tracks them anyway.
	store := NewStore()
	now := time.Now().UTC()

	store.RecordSlotUpdate("ev9", 1, now)

	activity, ok := store.GetEventActivity("ev9")
	require.True(t, ok)
	assert.Equal(t, int64(1), activity.SlotUpdates)
}
