package dashboard

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient() *Client {
	return &Client{send: make(chan Message, sendBufferSize)}
}

func TestHub_PublishDeliversToSubscribedClient(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	c := newTestClient()
	hub.Subscribe(c)

	waitForCount(t, hub, 1)

	hub.Publish(Message{Type: EventStandings, Payload: "snapshot"})

	select {
	case msg := <-c.send:
		assert.Equal(t, EventStandings, msg.Type)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for published message")
	}
}

func TestHub_LateSubscriberReceivesSnapshot(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	hub.Publish(Message{Type: EventHealth, Payload: "all-ok"})
	time.Sleep(50 * time.Millisecond)

	c := newTestClient()
	hub.Subscribe(c)

	select {
	case msg := <-c.send:
		assert.Equal(t, EventHealth, msg.Type)
	case <-time.After(time.Second):
		t.Fatal("late subscriber never received the existing snapshot")
	}
}

func TestHub_UnsubscribeClosesSendChannel(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	c := newTestClient()
	hub.Subscribe(c)
	waitForCount(t, hub, 1)

	hub.Unsubscribe(c)
	waitForCount(t, hub, 0)

	_, ok := <-c.send
	assert.False(t, ok, "unsubscribing must close the client's send channel")
}

func waitForCount(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if hub.ConnectedCount() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	require.Equal(t, want, hub.ConnectedCount())
}
