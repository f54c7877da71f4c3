package hub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T, opts ...Option) (*Hub, context.CancelFunc) {
	t.Helper()
	h := New("test", opts...)
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	require.Eventually(t, h.IsRunning, time.Second, time.Millisecond)
	return h, cancel
}

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case m, ok := <-c.Messages():
		require.True(t, ok, "channel closed")
		return m
	case <-time.After(time.Second):
		t.Fatal("no message")
		return Message{}
	}
}

func TestHub_Broadcast(t *testing.T) {
	h, cancel := startHub(t)
	defer cancel()

	a, b := NewClient(h, nil), NewClient(h, nil)
	require.True(t, h.Register(a))
	require.True(t, h.Register(b))
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, 2, h.ClientCount())

	require.NoError(t, h.BroadcastJSON(map[string]int{"n": 1}))
	for _, c := range []*Client{a, b} {
		m := receive(t, c)
		assert.Equal(t, JSONMessage, m.Type)
		assert.JSONEq(t, `{"n":1}`, string(m.Data))
	}

	h.BroadcastBinary([]byte{0xff, 0xd8})
	m := receive(t, a)
	assert.Equal(t, BinaryMessage, m.Type)
	assert.Equal(t, "binary", m.Type.String())

	h.Unregister(a)
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, time.Millisecond)
	receive(t, b)
	_, ok := <-a.Messages()
	assert.False(t, ok)
}

func TestHub_Replay(t *testing.T) {
	h, cancel := startHub(t, WithReplay())
	defer cancel()

	first := NewClient(h, nil)
	require.True(t, h.Register(first))
	h.Broadcast(NewJSONMessage([]byte(`"latest"`)))
	receive(t, first)

	late := NewClient(h, nil)
	require.True(t, h.Register(late))
	assert.Equal(t, `"latest"`, string(receive(t, late).Data))
}

func TestHub_NoReplayByDefault(t *testing.T) {
	h, cancel := startHub(t)
	defer cancel()

	first := NewClient(h, nil)
	require.True(t, h.Register(first))
	h.Broadcast(NewJSONMessage([]byte(`"old"`)))
	receive(t, first)

	late := NewClient(h, nil)
	require.True(t, h.Register(late))
	select {
	case m := <-late.Messages():
		t.Fatalf("unexpected message %q", m.Data)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestHub_DropsSlowClient(t *testing.T) {
	h, cancel := startHub(t)
	defer cancel()

	slow := NewClient(h, nil)
	require.True(t, h.Register(slow))
	require.Equal(t, 1, h.ClientCount(), "counted as soon as Register returns")

	// Nobody reads from slow until the hub has given up on it.
	for i := 0; i <= sendBuffer; i++ {
		h.BroadcastBinary([]byte{byte(i)})
	}
	require.Eventually(t, func() bool { return h.Dropped() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, 0, h.ClientCount())
	assert.Equal(t, int64(sendBuffer), h.Sent())

	n := 0
	for m := range slow.Messages() {
		assert.Equal(t, []byte{byte(n)}, m.Data)
		n++
	}
	assert.Equal(t, sendBuffer, n)
}

func TestHub_StopClosesClients(t *testing.T) {
	h, cancel := startHub(t)

	c := NewClient(h, nil)
	require.True(t, h.Register(c))
	cancel()

	select {
	case _, ok := <-c.Messages():
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("client not closed")
	}
	require.Eventually(t, func() bool { return !h.IsRunning() }, time.Second, time.Millisecond)

	assert.False(t, h.Register(NewClient(h, nil)))
	h.Unregister(c) // must not block
}
