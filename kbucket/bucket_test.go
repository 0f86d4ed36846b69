package kbucket

import (
	"math/big"
	"testing"

	"github.com/meshkv/dht/dhtid"
	"github.com/meshkv/dht/peer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPeer(t *testing.T, key string) peer.Peer {
	t.Helper()
	p, err := peer.New(key, "1.0", "ws://"+key)
	require.NoError(t, err)
	return p
}

func TestBucketAddAndGet(t *testing.T) {
	b := New(big.NewInt(0), dhtid.Max())
	p := testPeer(t, "peer-1")

	require.NoError(t, b.Add(p))
	assert.Equal(t, 1, b.Len())

	got, err := b.Get(p.NetworkID)
	require.NoError(t, err)
	assert.Equal(t, p.NetworkID, got.NetworkID)
}

func TestBucketAddExistingMovesToTail(t *testing.T) {
	b := New(big.NewInt(0), dhtid.Max())
	p1 := testPeer(t, "peer-1")
	p2 := testPeer(t, "peer-2")

	require.NoError(t, b.Add(p1))
	require.NoError(t, b.Add(p2))
	require.NoError(t, b.Add(p1)) // re-add p1, should move to tail

	contacts := b.Contacts(0, nil)
	require.Len(t, contacts, 2)
	assert.Equal(t, p2.NetworkID, contacts[0].NetworkID)
	assert.Equal(t, p1.NetworkID, contacts[1].NetworkID)
}

func TestBucketFullReturnsErrFull(t *testing.T) {
	b := New(big.NewInt(0), dhtid.Max())
	for i := 0; i < K; i++ {
		require.NoError(t, b.Add(testPeer(t, string(rune('a'+i))+"-fill")))
	}
	err := b.Add(testPeer(t, "overflow"))
	assert.ErrorIs(t, err, ErrFull)
}

func TestBucketRemove(t *testing.T) {
	b := New(big.NewInt(0), dhtid.Max())
	p := testPeer(t, "peer-1")
	require.NoError(t, b.Add(p))

	require.NoError(t, b.Remove(p.NetworkID))
	assert.Equal(t, 0, b.Len())

	err := b.Remove(p.NetworkID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBucketContactsExcludesOne(t *testing.T) {
	b := New(big.NewInt(0), dhtid.Max())
	p1 := testPeer(t, "peer-1")
	p2 := testPeer(t, "peer-2")
	require.NoError(t, b.Add(p1))
	require.NoError(t, b.Add(p2))

	contacts := b.Contacts(0, &p1.NetworkID)
	require.Len(t, contacts, 1)
	assert.Equal(t, p2.NetworkID, contacts[0].NetworkID)
}

func TestBucketInRange(t *testing.T) {
	b := New(big.NewInt(0), big.NewInt(100))
	assert.True(t, b.InRange(big.NewInt(50)))
	assert.False(t, b.InRange(big.NewInt(100)))
}

func TestBucketReplaceKeepsPosition(t *testing.T) {
	b := New(big.NewInt(0), dhtid.Max())
	p1 := testPeer(t, "peer-1")
	p2 := testPeer(t, "peer-2")
	require.NoError(t, b.Add(p1))
	require.NoError(t, b.Add(p2))

	updated := p1
	updated.FailedRPCs = 3
	require.NoError(t, b.Replace(updated))

	contacts := b.Contacts(0, nil)
	require.Len(t, contacts, 2)
	assert.Equal(t, p1.NetworkID, contacts[0].NetworkID)
	assert.Equal(t, 3, contacts[0].FailedRPCs)
	assert.Equal(t, p2.NetworkID, contacts[1].NetworkID)
}

func TestBucketReplaceMissingReturnsErrNotFound(t *testing.T) {
	b := New(big.NewInt(0), dhtid.Max())
	err := b.Replace(testPeer(t, "ghost"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBucketTouch(t *testing.T) {
	b := New(big.NewInt(0), dhtid.Max())
	assert.Equal(t, float64(0), b.LastAccessed())
	b.Touch(123.0)
	assert.Equal(t, 123.0, b.LastAccessed())
}
