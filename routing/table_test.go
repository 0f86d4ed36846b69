package routing

import (
	"math/big"
	"testing"
	"time"

	"github.com/meshkv/dht/dhtid"
	"github.com/meshkv/dht/kbucket"
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

func TestAddAndGetContact(t *testing.T) {
	self := testPeer(t, "self")
	rt := New(self.NetworkID)

	p := testPeer(t, "peer-1")
	rt.AddContact(p)

	got, err := rt.GetContact(p.NetworkID)
	require.NoError(t, err)
	assert.Equal(t, p.NetworkID, got.NetworkID)
	assert.Equal(t, 1, rt.ContactCount())
}

func TestAddContactIgnoresSelf(t *testing.T) {
	self := testPeer(t, "self")
	rt := New(self.NetworkID)

	rt.AddContact(self)
	assert.Equal(t, 0, rt.ContactCount())
}

func TestAddContactIgnoresBlacklisted(t *testing.T) {
	self := testPeer(t, "self")
	rt := New(self.NetworkID)

	p := testPeer(t, "peer-1")
	rt.Blacklist(p)
	rt.AddContact(p)

	assert.Equal(t, 0, rt.ContactCount())
	assert.True(t, rt.IsBlacklisted(p.NetworkID))
}

func TestBucketSplitsWhenParentIDInRange(t *testing.T) {
	self := testPeer(t, "self")
	rt := New(self.NetworkID)

	// Fill the single root bucket beyond capacity; because it spans the
	// whole keyspace (which contains self's id), it must split rather
	// than reject new contacts.
	for i := 0; i < kbucket.K+5; i++ {
		rt.AddContact(testPeer(t, string(rune('a'+i))+"-split"))
	}

	assert.Greater(t, rt.BucketCount(), 1)
	assert.Equal(t, kbucket.K+5, rt.ContactCount())
}

// TestSplitBucketRekeysAndRepartitionsReplacementCache builds a table with
// three buckets directly (bypassing AddContact) so the replacement cache
// can be seeded precisely, then splits the first bucket and checks that
// every cache entry ends up keyed to, and within the range of, the correct
// post-split bucket.
func TestSplitBucketRekeysAndRepartitionsReplacementCache(t *testing.T) {
	self := testPeer(t, "self")

	max := dhtid.Max()
	quarter := new(big.Int).Rsh(max, 2)
	half := new(big.Int).Rsh(max, 1)

	bucket0 := kbucket.New(big.NewInt(0), quarter)
	bucket1 := kbucket.New(quarter, half)
	bucket2 := kbucket.New(half, max)

	splitPoint := new(big.Int).Rsh(quarter, 1)

	rt := &Table{
		parentID:         self.NetworkID,
		buckets:          []*kbucket.Bucket{bucket0, bucket1, bucket2},
		replacementCache: make(map[int][]peer.Peer),
		blacklist:        make(map[dhtid.ID]struct{}),
	}

	// Fill bucket0 to capacity, entirely below the split point, so it has
	// no room left for anything once split.
	for i := 0; i < kbucket.K; i++ {
		id := dhtid.FromBigInt(big.NewInt(int64(i) + 1))
		require.NoError(t, bucket0.Add(peer.Peer{NetworkID: id, PublicKey: "filler", Version: "1.0", URI: "ws://filler"}))
	}

	oldHalfCached := peer.Peer{
		NetworkID: dhtid.FromBigInt(new(big.Int).Sub(splitPoint, big.NewInt(1))),
		PublicKey: "old-half-cached", Version: "1.0", URI: "ws://old-half-cached",
	}
	newHalfCached := peer.Peer{
		NetworkID: dhtid.FromBigInt(new(big.Int).Add(splitPoint, big.NewInt(1))),
		PublicKey: "new-half-cached", Version: "1.0", URI: "ws://new-half-cached",
	}
	rt.replacementCache[0] = []peer.Peer{oldHalfCached, newHalfCached}

	shiftedCached := peer.Peer{
		NetworkID: dhtid.FromBigInt(new(big.Int).Add(quarter, big.NewInt(1))),
		PublicKey: "shifted", Version: "1.0", URI: "ws://shifted",
	}
	rt.replacementCache[1] = []peer.Peer{shiftedCached}

	rt.mu.Lock()
	rt.splitBucketLocked(0)
	rt.mu.Unlock()

	require.Len(t, rt.buckets, 4)

	// The cache entry that belonged to the old bucket-1 must have followed
	// it to its new index, not been left pointing at the wrong bucket.
	assert.Empty(t, rt.replacementCache[1])
	require.Len(t, rt.replacementCache[2], 1)
	assert.Equal(t, shiftedCached.NetworkID, rt.replacementCache[2][0].NetworkID)
	assert.True(t, rt.buckets[2].InRange(rt.replacementCache[2][0].NetworkID.Int()))

	// bucket0 was already full, so its half of the split cache stays
	// cached rather than being force-added past capacity.
	require.Len(t, rt.replacementCache[0], 1)
	assert.Equal(t, oldHalfCached.NetworkID, rt.replacementCache[0][0].NetworkID)
	assert.True(t, rt.buckets[0].InRange(rt.replacementCache[0][0].NetworkID.Int()))

	// The new bucket had room, so its half of the split cache was
	// promoted straight into the bucket rather than left waiting in a
	// cache indexed to the wrong range.
	got, err := rt.GetContact(newHalfCached.NetworkID)
	require.NoError(t, err)
	assert.True(t, rt.buckets[1].InRange(got.NetworkID.Int()))
}

func TestFindCloseNodesOrdersByDistance(t *testing.T) {
	self := testPeer(t, "self")
	rt := New(self.NetworkID)

	var peers []peer.Peer
	for i := 0; i < 10; i++ {
		p := testPeer(t, string(rune('a'+i))+"-fcn")
		peers = append(peers, p)
		rt.AddContact(p)
	}

	target := peers[0].NetworkID
	closest := rt.FindCloseNodes(target, nil)
	require.NotEmpty(t, closest)

	for i := 1; i < len(closest); i++ {
		d1 := dhtid.Distance(target, closest[i-1].NetworkID)
		d2 := dhtid.Distance(target, closest[i].NetworkID)
		assert.LessOrEqual(t, d1.Cmp(d2), 0)
	}
}

func TestFindCloseNodesExcludesRequester(t *testing.T) {
	self := testPeer(t, "self")
	rt := New(self.NetworkID)
	p := testPeer(t, "peer-1")
	rt.AddContact(p)

	closest := rt.FindCloseNodes(p.NetworkID, &p.NetworkID)
	assert.Empty(t, closest)
}

func TestRemoveContactEvictsAfterThreshold(t *testing.T) {
	self := testPeer(t, "self")
	rt := New(self.NetworkID)
	p := testPeer(t, "peer-1")
	rt.AddContact(p)

	for i := 0; i < AllowedRPCFails-1; i++ {
		rt.RemoveContact(p.NetworkID, false)
		_, err := rt.GetContact(p.NetworkID)
		require.NoError(t, err, "should not be evicted before threshold")
	}
	rt.RemoveContact(p.NetworkID, false)
	_, err := rt.GetContact(p.NetworkID)
	assert.Error(t, err)
}

func TestRemoveContactForcedEvictsImmediately(t *testing.T) {
	self := testPeer(t, "self")
	rt := New(self.NetworkID)
	p := testPeer(t, "peer-1")
	rt.AddContact(p)

	rt.RemoveContact(p.NetworkID, true)
	_, err := rt.GetContact(p.NetworkID)
	assert.Error(t, err)
}

func TestTouchBucketAndRefreshList(t *testing.T) {
	self := testPeer(t, "self")
	rt := New(self.NetworkID)
	p := testPeer(t, "peer-1")
	rt.AddContact(p)

	now := time.Now()
	rt.TouchBucket(p.NetworkID, now)

	// Freshly touched buckets have nothing to refresh unless forced.
	assert.Empty(t, rt.GetRefreshList(0, false, now))
	assert.NotEmpty(t, rt.GetRefreshList(0, true, now))
}

func TestAllContactsSpansBuckets(t *testing.T) {
	self := testPeer(t, "self")
	rt := New(self.NetworkID)

	for i := 0; i < 10; i++ {
		rt.AddContact(testPeer(t, string(rune('a'+i))+"-all"))
	}

	all := rt.AllContacts()
	assert.Len(t, all, 10)
	assert.Equal(t, rt.ContactCount(), len(all))
}

func TestSeedBlacklistBansWithoutPriorContact(t *testing.T) {
	self := testPeer(t, "self")
	rt := New(self.NetworkID)
	p := testPeer(t, "peer-1")

	rt.SeedBlacklist([]dhtid.ID{p.NetworkID})
	assert.True(t, rt.IsBlacklisted(p.NetworkID))

	rt.AddContact(p)
	assert.Equal(t, 0, rt.ContactCount(), "a seeded-blacklist id must never be added")
}
