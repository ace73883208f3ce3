package client

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sendRecorder captures outgoing envelopes.
type sendRecorder struct {
	mu   sync.Mutex
	sent []envelope
}

func (r *sendRecorder) send(env envelope) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, env)
	return nil
}

func (r *sendRecorder) envelopes() []envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]envelope(nil), r.sent...)
}

func (r *sendRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

func TestJoinSendsJoinEvent(t *testing.T) {
	rec := &sendRecorder{}
	c := newClient(rec.send)

	require.NoError(t, c.Join("ev1", "alice"))

	sent := rec.envelopes()
	require.Len(t, sent, 1)
	assert.Equal(t, "joinEvent", sent[0].Type)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(sent[0].Payload, &payload))
	assert.Equal(t, "ev1", payload["event_id"])
	assert.Equal(t, "alice", payload["participant_id"])
}

func TestSetSlotsCoalescesRapidEdits(t *testing.T) {
	rec := &sendRecorder{}
	c := newClient(rec.send, WithQuiescence(30*time.Millisecond))
	require.NoError(t, c.Join("ev1", "alice"))

	// Three edits in quick succession: only the final selection goes out.
	c.SetSlots([]int{1})
	c.SetSlots([]int{1, 2})
	c.SetSlots([]int{1, 2, 3})

	require.Eventually(t, func() bool { return rec.count() == 2 },
		time.Second, 5*time.Millisecond)

	// Nothing further once the pending selection has flushed.
	time.Sleep(60 * time.Millisecond)
	sent := rec.envelopes()
	require.Len(t, sent, 2)

	assert.Equal(t, "updateSlots", sent[1].Type)
	var payload struct {
		EventID string `json:"event_id"`
		Slots   []int  `json:"slots"`
	}
	require.NoError(t, json.Unmarshal(sent[1].Payload, &payload))
	assert.Equal(t, "ev1", payload.EventID)
	assert.Equal(t, []int{1, 2, 3}, payload.Slots)
}

func TestFlushSubmitsImmediately(t *testing.T) {
	rec := &sendRecorder{}
	c := newClient(rec.send, WithQuiescence(time.Hour))
	require.NoError(t, c.Join("ev1", "alice"))

	c.SetSlots([]int{4})
	require.NoError(t, c.Flush())
	assert.Equal(t, 2, rec.count())

	// A second flush with nothing pending is a no-op.
	require.NoError(t, c.Flush())
	assert.Equal(t, 2, rec.count())
}

func TestFlushBeforeJoin(t *testing.T) {
	rec := &sendRecorder{}
	c := newClient(rec.send, WithQuiescence(time.Hour))

	c.SetSlots([]int{4})
	assert.ErrorIs(t, c.Flush(), ErrNotJoined)
	assert.Equal(t, 0, rec.count())
}

func TestDispatch(t *testing.T) {
	var (
		gotState  *EventState
		gotUpdate *EventUpdate
		gotSlots  []int
		gotErr    string
	)
	c := newClient(func(envelope) error { return nil }, WithHandlers(Handlers{
		OnEventState:  func(s EventState) { gotState = &s },
		OnEventUpdate: func(u EventUpdate) { gotUpdate = &u },
		OnYourSlots:   func(slots []int) { gotSlots = slots },
		OnEventError:  func(msg string) { gotErr = msg },
	}))

	c.dispatch(envelope{Type: "eventState", Payload: json.RawMessage(
		`{"id":"ev1","title":"Standup","slot_counts":[0,1],"respondent_count":1,"your_slots":[1]}`)})
	require.NotNil(t, gotState)
	assert.Equal(t, "ev1", gotState.ID)
	assert.Equal(t, []int{1}, gotState.YourSlots)

	c.dispatch(envelope{Type: "eventUpdate", Payload: json.RawMessage(
		`{"id":"ev1","slot_counts":[0,2],"respondent_count":2}`)})
	require.NotNil(t, gotUpdate)
	assert.Equal(t, 2, gotUpdate.RespondentCount)

	c.dispatch(envelope{Type: "yourSlots", Payload: json.RawMessage(`{"slots":[2,5]}`)})
	assert.Equal(t, []int{2, 5}, gotSlots)

	c.dispatch(envelope{Type: "eventError", Payload: json.RawMessage(`{"message":"Event not found"}`)})
	assert.Equal(t, "Event not found", gotErr)

	// Unknown types are dropped without touching any handler.
	c.dispatch(envelope{Type: "mystery"})
}
