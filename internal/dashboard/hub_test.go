package dashboard

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/arcane-tourneys/botarena/internal/bus"
	"github.com/arcane-tourneys/botarena/internal/live"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_RegisterAddsClientAndUnregisterClosesSend(t *testing.T) {
	h := NewHub(bus.New(nil), nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	c := &Client{hub: h, send: make(chan []byte, 1)}
	h.register <- c

	require.Eventually(t, func() bool {
		h.mu.RLock()
		defer h.mu.RUnlock()
		return h.clients[c]
	}, time.Second, 5*time.Millisecond)

	h.unregister <- c

	require.Eventually(t, func() bool {
		h.mu.RLock()
		defer h.mu.RUnlock()
		return !h.clients[c]
	}, time.Second, 5*time.Millisecond)

	_, open := <-c.send
	assert.False(t, open, "send channel must be closed on unregister")
}

func TestRun_BroadcastDeliversMarshalledMessageToEveryClient(t *testing.T) {
	h := NewHub(bus.New(nil), nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	c := &Client{hub: h, send: make(chan []byte, 1)}
	h.register <- c
	require.Eventually(t, func() bool {
		h.mu.RLock()
		defer h.mu.RUnlock()
		return h.clients[c]
	}, time.Second, 5*time.Millisecond)

	h.broadcast <- Message{Type: MessageMatchCompleted, Data: "m1"}

	select {
	case data := <-c.send:
		var msg Message
		require.NoError(t, json.Unmarshal(data, &msg))
		assert.Equal(t, MessageMatchCompleted, msg.Type)
	case <-time.After(time.Second):
		t.Fatal("client never received the broadcast message")
	}
}

func TestRun_ContextCancelClosesAllClientChannels(t *testing.T) {
	h := NewHub(bus.New(nil), nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)

	c := &Client{hub: h, send: make(chan []byte, 1)}
	h.register <- c
	require.Eventually(t, func() bool {
		h.mu.RLock()
		defer h.mu.RUnlock()
		return h.clients[c]
	}, time.Second, 5*time.Millisecond)

	cancel()

	require.Eventually(t, func() bool {
		_, open := <-c.send
		return !open
	}, time.Second, 5*time.Millisecond)
}

func TestListen_RelaysBusEventToBroadcastChannel(t *testing.T) {
	b := bus.New(nil)
	h := NewHub(b, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h.Listen(ctx)
	time.Sleep(10 * time.Millisecond) // let subscriptions register

	b.Publish(bus.TopicMatchCompleted, "result-1")

	select {
	case msg := <-h.broadcast:
		assert.Equal(t, MessageMatchCompleted, msg.Type)
		assert.Equal(t, "result-1", msg.Data)
	case <-time.After(time.Second):
		t.Fatal("no message relayed from bus to broadcast channel")
	}
}

func TestWelcomeSnapshot_NilAggregatorReturnsBareWelcome(t *testing.T) {
	h := NewHub(bus.New(nil), nil, nil)
	msg := h.welcomeSnapshot()
	assert.Equal(t, MessageWelcome, msg.Type)
	assert.Nil(t, msg.Data)
}

func TestWelcomeSnapshot_WithAggregatorCarriesSnapshot(t *testing.T) {
	b := bus.New(nil)
	agg := live.NewAggregator(b, nil)
	h := NewHub(b, agg, nil)

	msg := h.welcomeSnapshot()
	assert.Equal(t, MessageWelcome, msg.Type)
	assert.NotNil(t, msg.Data)
}
