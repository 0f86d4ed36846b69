package loopback

import (
	"context"
	"testing"

	"github.com/meshkv/dht/message"
	"github.com/meshkv/dht/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendDeliversToHandler(t *testing.T) {
	net := NewNetwork()
	a := NewTransport(net, "loopback://a")
	b := NewTransport(net, "loopback://b")

	var received message.Message
	b.SetHandler(transport.HandlerFunc(func(ctx context.Context, from string, req message.Message) (message.Message, error) {
		received = req
		return message.Pong{H: message.Header{UUID: "reply"}}, nil
	}))

	ping := message.Ping{H: message.Header{UUID: "req-1"}}
	reply, err := a.Send(context.Background(), "loopback://b", ping)
	require.NoError(t, err)

	require.NotNil(t, received)
	assert.Equal(t, message.KindPing, received.Kind())
	assert.Equal(t, message.KindPong, reply.Kind())
	assert.Len(t, a.SentMessages, 1)
}

func TestSendToUnknownPeerFails(t *testing.T) {
	net := NewNetwork()
	a := NewTransport(net, "loopback://a")

	_, err := a.Send(context.Background(), "loopback://ghost", message.Ping{})
	assert.Error(t, err)
}

func TestSendAfterCloseFails(t *testing.T) {
	net := NewNetwork()
	a := NewTransport(net, "loopback://a")
	b := NewTransport(net, "loopback://b")
	b.SetHandler(transport.HandlerFunc(func(ctx context.Context, from string, req message.Message) (message.Message, error) {
		return message.Pong{}, nil
	}))
	require.NoError(t, b.Close())

	_, err := a.Send(context.Background(), "loopback://b", message.Ping{})
	assert.Error(t, err)
}
