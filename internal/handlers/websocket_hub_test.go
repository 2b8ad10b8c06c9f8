package handlers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHubClient(userID string) *Client {
	return &Client{UserID: userID, send: make(chan *Message, clientSendBuffer)}
}

func TestWebSocketHub_SendTo(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewWebSocketHandler(ctx, nil).hub

	client := newHubClient("123456789")
	hub.register <- client

	hub.sendTo(client, &Message{Type: MessagePong})
	select {
	case msg := <-client.send:
		assert.Equal(t, MessagePong, msg.Type)
	case <-time.After(time.Second):
		t.Fatal("reply not delivered")
	}

	t.Run("unregistered client is skipped", func(t *testing.T) {
		stranger := newHubClient("987654321")
		hub.sendTo(stranger, &Message{Type: MessagePong})
		hub.sendTo(client, &Message{Type: MessagePing})

		msg := <-client.send
		assert.Equal(t, MessagePing, msg.Type)
		assert.Empty(t, stranger.send)
	})

	t.Run("after unregister", func(t *testing.T) {
		hub.unregister <- client
		_, open := <-client.send
		require.False(t, open)

		assert.NotPanics(t, func() {
			hub.sendTo(client, &Message{Type: MessagePong})
		})
	})
}

func TestWebSocketHub_SendToAfterShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewWebSocketHandler(ctx, nil).hub

	client := newHubClient("123456789")
	hub.register <- client

	cancel()
	<-hub.done

	_, open := <-client.send
	require.False(t, open)

	assert.NotPanics(t, func() {
		hub.sendTo(client, &Message{Type: MessagePong})
	})
}
