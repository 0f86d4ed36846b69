package lookup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/meshkv/dht/dhtid"
	"github.com/meshkv/dht/message"
	"github.com/meshkv/dht/peer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTable struct {
	closeNodes  []peer.Peer
	touched     []dhtid.ID
	blacklisted []peer.Peer
}

func (f *fakeTable) FindCloseNodes(dhtid.ID, *dhtid.ID) []peer.Peer { return f.closeNodes }
func (f *fakeTable) TouchBucket(key dhtid.ID, _ time.Time)          { f.touched = append(f.touched, key) }
func (f *fakeTable) Blacklist(contact peer.Peer)                    { f.blacklisted = append(f.blacklisted, contact) }

func mustPeer(t *testing.T, key string) peer.Peer {
	t.Helper()
	p, err := peer.New(key, "1.0", "loopback://"+key)
	require.NoError(t, err)
	return p
}

func TestFindNodeEmptyRoutingTable(t *testing.T) {
	rt := &fakeTable{}
	target := dhtid.MustFromHex(repeatHex("aa", 64))

	_, err := FindNode(context.Background(), target, dhtid.ID{}, rt, nil, time.Second)
	assert.ErrorIs(t, err, ErrRoutingTableEmpty)
}

func TestFindNodeConvergesWhenNoCloserNodesReturned(t *testing.T) {
	seed := mustPeer(t, "seed")
	rt := &fakeTable{closeNodes: []peer.Peer{seed}}
	target := dhtid.MustFromHex(repeatHex("bb", 64))

	query := func(ctx context.Context, p peer.Peer, target dhtid.ID) (message.Message, error) {
		return message.Nodes{H: message.Header{}, Nodes: nil}, nil
	}

	nodes, err := FindNode(context.Background(), target, dhtid.ID{}, rt, query, time.Second)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, seed.NetworkID, nodes[0].NetworkID)
}

func TestFindNodeMergesLearnedNodes(t *testing.T) {
	seed := mustPeer(t, "seed")
	learned := mustPeer(t, "learned")
	rt := &fakeTable{closeNodes: []peer.Peer{seed}}
	target := dhtid.MustFromHex(repeatHex("cc", 64))

	calls := 0
	query := func(ctx context.Context, p peer.Peer, target dhtid.ID) (message.Message, error) {
		calls++
		if p.NetworkID == seed.NetworkID && calls == 1 {
			return message.Nodes{Nodes: []message.NodeTuple{
				{PublicKey: "learned", Version: "1.0", URI: "loopback://learned"},
			}}, nil
		}
		return message.Nodes{}, nil
	}

	nodes, err := FindNode(context.Background(), target, dhtid.ID{}, rt, query, time.Second)
	require.NoError(t, err)

	ids := map[dhtid.ID]bool{}
	for _, n := range nodes {
		ids[n.NetworkID] = true
	}
	assert.True(t, ids[seed.NetworkID])
	assert.True(t, ids[learned.NetworkID])
}

func TestFindValueReturnsMatchingValue(t *testing.T) {
	seed := mustPeer(t, "seed")
	rt := &fakeTable{closeNodes: []peer.Peer{seed}}
	target := dhtid.MustFromHex(repeatHex("dd", 64))

	query := func(ctx context.Context, p peer.Peer, target dhtid.ID) (message.Message, error) {
		return message.Value{Key: target.Hex(), Value: "hello"}, nil
	}

	value, nearMiss, err := FindValue(context.Background(), target, dhtid.ID{}, rt, query, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "hello", value.Value)
	assert.Empty(t, nearMiss)
}

func TestFindValueReturnsNearestMissForCaching(t *testing.T) {
	seed := mustPeer(t, "seed")
	holder := mustPeer(t, "holder")
	rt := &fakeTable{closeNodes: []peer.Peer{seed}}
	target := dhtid.MustFromHex(repeatHex("dd", 64))

	query := func(ctx context.Context, p peer.Peer, target dhtid.ID) (message.Message, error) {
		if p.NetworkID == seed.NetworkID {
			return message.Nodes{Nodes: []message.NodeTuple{
				{PublicKey: "holder", Version: "1.0", URI: "loopback://holder"},
			}}, nil
		}
		return message.Value{Key: target.Hex(), Value: "hello"}, nil
	}

	value, nearMiss, err := FindValue(context.Background(), target, dhtid.ID{}, rt, query, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "hello", value.Value)
	require.Len(t, nearMiss, 1)
	assert.Equal(t, seed.NetworkID, nearMiss[0].NetworkID)
}

func TestFindValueNotFoundBlacklistsWrongKeyResponders(t *testing.T) {
	seed := mustPeer(t, "seed")
	rt := &fakeTable{closeNodes: []peer.Peer{seed}}
	target := dhtid.MustFromHex(repeatHex("ee", 64))

	query := func(ctx context.Context, p peer.Peer, target dhtid.ID) (message.Message, error) {
		return message.Value{Key: "wrong-key", Value: "nope"}, nil
	}

	_, _, err := FindValue(context.Background(), target, dhtid.ID{}, rt, query, time.Second)
	assert.ErrorIs(t, err, ErrValueNotFound)
	assert.Len(t, rt.blacklisted, 1)
}

func TestFindNodeRemovesUnresponsivePeers(t *testing.T) {
	seed := mustPeer(t, "seed")
	rt := &fakeTable{closeNodes: []peer.Peer{seed}}
	target := dhtid.MustFromHex(repeatHex("ff", 64))

	query := func(ctx context.Context, p peer.Peer, target dhtid.ID) (message.Message, error) {
		return nil, errors.New("simulated timeout")
	}

	// The single seed contact fails and is dropped from the shortlist,
	// leaving nothing left to query.
	nodes, err := FindNode(context.Background(), target, dhtid.ID{}, rt, query, time.Second)
	require.NoError(t, err)
	assert.Empty(t, nodes)
}

func repeatHex(pair string, n int) string {
	out := make([]byte, 0, len(pair)*n)
	for i := 0; i < n; i++ {
		out = append(out, pair...)
	}
	return string(out)
}
