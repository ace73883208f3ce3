package broadcast

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConn records everything written to it.
type fakeConn struct {
	mu     sync.Mutex
	frames [][]byte
	closed bool
}

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	frame := make([]byte, len(data))
	copy(frame, data)
	c.frames = append(c.frames, frame)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) envelopes(t *testing.T) []Envelope {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	envs := make([]Envelope, 0, len(c.frames))
	for _, frame := range c.frames {
		var env Envelope
		require.NoError(t, json.Unmarshal(frame, &env))
		envs = append(envs, env)
	}
	return envs
}

func (c *fakeConn) frameCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.frames)
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func startTestHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(func() {
		cancel()
		hub.Wait()
	})
	return hub
}

func TestHubRegisterUnregister(t *testing.T) {
	hub := startTestHub(t)
	client := NewClient("c1", &fakeConn{})

	hub.Register(client)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 },
		time.Second, 5*time.Millisecond)

	hub.Unregister(client)
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 },
		time.Second, 5*time.Millisecond)
}

func TestSubscribeBindingIsImmutable(t *testing.T) {
	hub := startTestHub(t)
	client := NewClient("c1", &fakeConn{})
	hub.Register(client)

	require.NoError(t, hub.Subscribe(client, "ev1", "alice"))
	assert.Equal(t, "ev1", client.EventID())
	assert.Equal(t, "alice", client.ParticipantID())
	assert.Equal(t, 1, hub.GroupSize("ev1"))

	// Re-subscribing to the same event is a no-op.
	require.NoError(t, hub.Subscribe(client, "ev1", "alice"))
	assert.Equal(t, 1, hub.GroupSize("ev1"))

	// A different event is refused; the original binding stands.
	err := hub.Subscribe(client, "ev2", "alice")
	assert.ErrorIs(t, err, ErrEventBound)
	assert.Equal(t, "ev1", client.EventID())
	assert.Equal(t, 0, hub.GroupSize("ev2"))
}

func TestBroadcastReachesOnlyGroupMembers(t *testing.T) {
	hub := startTestHub(t)

	connA1, connA2, connB := &fakeConn{}, &fakeConn{}, &fakeConn{}
	clientA1 := NewClient("a1", connA1)
	clientA2 := NewClient("a2", connA2)
	clientB := NewClient("b1", connB)

	for _, c := range []*Client{clientA1, clientA2, clientB} {
		hub.Register(c)
	}
	require.Eventually(t, func() bool { return hub.ClientCount() == 3 },
		time.Second, 5*time.Millisecond)

	require.NoError(t, hub.Subscribe(clientA1, "evA", "alice"))
	require.NoError(t, hub.Subscribe(clientA2, "evA", "bob"))
	require.NoError(t, hub.Subscribe(clientB, "evB", "carol"))

	hub.Broadcast("evA", "eventUpdate", map[string]any{"id": "evA"})

	require.Eventually(t, func() bool {
		return connA1.frameCount() == 1 && connA2.frameCount() == 1
	}, time.Second, 5*time.Millisecond)

	for _, conn := range []*fakeConn{connA1, connA2} {
		envs := conn.envelopes(t)
		require.Len(t, envs, 1)
		assert.Equal(t, "eventUpdate", envs[0].Type)
	}
	// The other event's member hears nothing.
	assert.Equal(t, 0, connB.frameCount())
}

func TestBroadcastAfterUnregister(t *testing.T) {
	hub := startTestHub(t)

	connStay, connLeave := &fakeConn{}, &fakeConn{}
	stay := NewClient("stay", connStay)
	leave := NewClient("leave", connLeave)

	hub.Register(stay)
	hub.Register(leave)
	require.Eventually(t, func() bool { return hub.ClientCount() == 2 },
		time.Second, 5*time.Millisecond)

	require.NoError(t, hub.Subscribe(stay, "ev1", "alice"))
	require.NoError(t, hub.Subscribe(leave, "ev1", "bob"))

	hub.Unregister(leave)
	require.Eventually(t, func() bool { return hub.GroupSize("ev1") == 1 },
		time.Second, 5*time.Millisecond)

	hub.Broadcast("ev1", "eventUpdate", map[string]any{"id": "ev1"})

	require.Eventually(t, func() bool { return connStay.frameCount() == 1 },
		time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, connLeave.frameCount())
}

func TestHubShutdownClosesClients(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	conn := &fakeConn{}
	client := NewClient("c1", conn)
	hub.Register(client)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 },
		time.Second, 5*time.Millisecond)

	cancel()
	hub.Wait()

	assert.True(t, conn.isClosed())
	assert.Equal(t, 0, hub.ClientCount())
}

func TestClientSendEnvelope(t *testing.T) {
	conn := &fakeConn{}
	client := NewClient("c1", conn)

	require.NoError(t, client.Send("yourSlots", map[string][]int{"slots": {2, 5}}))

	envs := conn.envelopes(t)
	require.Len(t, envs, 1)
	assert.Equal(t, "yourSlots", envs[0].Type)

	var payload struct {
		Slots []int `json:"slots"`
	}
	require.NoError(t, json.Unmarshal(envs[0].Payload, &payload))
	assert.Equal(t, []int{2, 5}, payload.Slots)
}
