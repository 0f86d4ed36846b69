package ws

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/meshkv/dht/message"
	"github.com/meshkv/dht/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendReceivesReply(t *testing.T) {
	server := New(5*time.Second, 5*time.Second, 5*time.Second)
	server.SetHandler(transport.HandlerFunc(func(ctx context.Context, from string, req message.Message) (message.Message, error) {
		ping, ok := req.(message.Ping)
		if !ok {
			t.Errorf("expected a Ping, got %T", req)
		}
		return message.Pong{H: message.Header{UUID: ping.H.UUID}}, nil
	}))

	httpServer := httptest.NewServer(server.Handler())
	defer httpServer.Close()
	wsURL := "ws" + strings.TrimPrefix(httpServer.URL, "http")

	client := New(5*time.Second, 5*time.Second, 5*time.Second)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	reply, err := client.Send(ctx, wsURL, message.Ping{H: message.Header{UUID: "req-1"}})
	require.NoError(t, err)
	assert.Equal(t, message.KindPong, reply.Kind())
	assert.Equal(t, "req-1", reply.Header().UUID)
}

func TestSendAfterCloseFails(t *testing.T) {
	client := New(time.Second, time.Second, time.Second)
	require.NoError(t, client.Close())

	_, err := client.Send(context.Background(), "ws://example.invalid", message.Ping{})
	assert.ErrorIs(t, err, transport.ErrClosed)
}
