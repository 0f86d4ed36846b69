// Copyright (C) 2025 meshkv
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

// Package routing implements the routing table: a binary tree of
// k-buckets covering the full 512-bit identifier space, with bucket
// splitting, a bounded replacement cache, and a blacklist for misbehaving
// peers.
package routing

import (
	"fmt"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/meshkv/dht/dhtid"
	"github.com/meshkv/dht/kbucket"
	"github.com/meshkv/dht/peer"
)

// AllowedRPCFails is the number of consecutive failed RPCs a contact may
// accrue before it is evicted from its bucket (absent a forced removal).
const AllowedRPCFails = 5

// RefreshTimeout is how long a bucket may go untouched before it is
// considered stale and due for a refresh lookup.
const RefreshTimeout = time.Hour

// Table is a node's view of the network: the binary tree of k-buckets,
// the replacement cache of contacts waiting to take a stale contact's
// place, and the set of blacklisted peers. Safe for concurrent use.
type Table struct {
	mu sync.Mutex

	parentID dhtid.ID
	buckets  []*kbucket.Bucket

	// replacementCache holds, per bucket index, contacts that arrived
	// while that bucket was full and could not be split, ordered
	// least-recent to most-recent (bounded by kbucket.K).
	replacementCache map[int][]peer.Peer

	blacklist map[dhtid.ID]struct{}
}

// New creates a routing table for the node identified by parentID, with a
// single bucket spanning the entire keyspace.
func New(parentID dhtid.ID) *Table {
	return &Table{
		parentID:         parentID,
		buckets:          []*kbucket.Bucket{kbucket.New(big.NewInt(0), dhtid.Max())},
		replacementCache: make(map[int][]peer.Peer),
		blacklist:        make(map[dhtid.ID]struct{}),
	}
}

func (t *Table) bucketIndexLocked(key *big.Int) (int, error) {
	if key.Sign() < 0 {
		return 0, fmt.Errorf("routing: key out of range")
	}
	for i, b := range t.buckets {
		if b.InRange(key) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("routing: key out of range")
}

func (t *Table) randomKeyInBucketRangeLocked(bucketIndex int) (dhtid.ID, error) {
	b := t.buckets[bucketIndex]
	return dhtid.RandomInRange(b.RangeMin, b.RangeMax)
}

// splitBucket splits the bucket at oldBucketIndex into two, redistributing
// its contacts and its replacement cache entries by which half of the
// range they now fall in. Must be called with t.mu held.
func (t *Table) splitBucketLocked(oldBucketIndex int) {
	old := t.buckets[oldBucketIndex]
	span := new(big.Int).Sub(old.RangeMax, old.RangeMin)
	splitPoint := new(big.Int).Sub(old.RangeMax, new(big.Int).Rsh(span, 1))

	newBucket := kbucket.New(splitPoint, old.RangeMax)
	old.RangeMax = splitPoint

	t.buckets = append(t.buckets, nil)
	copy(t.buckets[oldBucketIndex+2:], t.buckets[oldBucketIndex+1:])
	t.buckets[oldBucketIndex+1] = newBucket

	for _, c := range old.Contacts(0, nil) {
		if newBucket.InRange(c.NetworkID.Int()) {
			_ = newBucket.Add(c)
			_ = old.Remove(c.NetworkID)
		}
	}

	// The new bucket occupies the slot every later bucket used to sit in,
	// so every replacement cache entry keyed past the split point now
	// names the wrong bucket. Re-key those first, from the top down so no
	// entry is overwritten before it's moved.
	splitCache := t.replacementCache[oldBucketIndex]
	delete(t.replacementCache, oldBucketIndex)
	for idx := len(t.buckets) - 2; idx > oldBucketIndex; idx-- {
		if cache, ok := t.replacementCache[idx]; ok {
			t.replacementCache[idx+1] = cache
			delete(t.replacementCache, idx)
		}
	}

	// Re-partition the split bucket's own cache by the same range test
	// used for its contacts, appending each half into its bucket up to K
	// and keeping any surplus in that half's cache.
	var oldCache, newCache []peer.Peer
	for _, c := range splitCache {
		if newBucket.InRange(c.NetworkID.Int()) {
			if newBucket.Add(c) != nil {
				newCache = append(newCache, c)
			}
		} else {
			if old.Add(c) != nil {
				oldCache = append(oldCache, c)
			}
		}
	}
	if len(oldCache) > 0 {
		t.replacementCache[oldBucketIndex] = oldCache
	}
	if len(newCache) > 0 {
		t.replacementCache[oldBucketIndex+1] = newCache
	}
}

// Blacklist marks contact as permanently banned: it is forcibly removed
// from the table and can never be re-added by AddContact.
func (t *Table) Blacklist(contact peer.Peer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.removeContactLocked(contact.NetworkID, true)
	t.blacklist[contact.NetworkID] = struct{}{}
}

// IsBlacklisted reports whether id has been blacklisted.
func (t *Table) IsBlacklisted(id dhtid.ID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.blacklist[id]
	return ok
}

// AddContact adds or refreshes contact in the appropriate bucket. A
// blacklisted contact, or the parent node itself, is silently ignored.
// When the target bucket is full, the table splits it if doing so is
// meaningful (the bucket's range contains the parent's own id) and
// retries, otherwise the contact is pushed into that bucket's bounded
// replacement cache for later promotion.
func (t *Table) AddContact(contact peer.Peer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.addContactLocked(contact)
}

func (t *Table) addContactLocked(contact peer.Peer) {
	if _, banned := t.blacklist[contact.NetworkID]; banned {
		return
	}
	if contact.NetworkID == t.parentID {
		return
	}
	contact.FailedRPCs = 0

	idx, err := t.bucketIndexLocked(contact.NetworkID.Int())
	if err != nil {
		return
	}
	bucket := t.buckets[idx]
	if err := bucket.Add(contact); err == nil {
		return
	}

	if bucket.InRange(t.parentID.Int()) {
		t.splitBucketLocked(idx)
		t.addContactLocked(contact)
		return
	}

	cache := t.replacementCache[idx]
	for i, c := range cache {
		if c.NetworkID == contact.NetworkID {
			cache = append(cache[:i], cache[i+1:]...)
			break
		}
	}
	if len(cache) >= kbucket.K {
		cache = cache[1:]
	}
	cache = append(cache, contact)
	t.replacementCache[idx] = cache
}

// FindCloseNodes returns up to K known contacts closest to key, ordered
// nearest-first, optionally excluding one network id (typically the node
// making the RPC). It widens the search outward from key's own bucket,
// two cursors at a time, until K results are gathered or the table is
// exhausted.
func (t *Table) FindCloseNodes(key dhtid.ID, exclude *dhtid.ID) []peer.Peer {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx, err := t.bucketIndexLocked(key.Int())
	if err != nil {
		return nil
	}

	closest := t.buckets[idx].Contacts(kbucket.K, exclude)

	jump := 1
	n := len(t.buckets)
	canGoLower := idx-jump >= 0
	canGoHigher := idx+jump < n
	for len(closest) < kbucket.K && (canGoLower || canGoHigher) {
		if canGoLower {
			remaining := kbucket.K - len(closest)
			closest = append(closest, t.buckets[idx-jump].Contacts(remaining, exclude)...)
			canGoLower = idx-(jump+1) >= 0
		}
		if canGoHigher {
			remaining := kbucket.K - len(closest)
			closest = append(closest, t.buckets[idx+jump].Contacts(remaining, exclude)...)
			canGoHigher = idx+(jump+1) < n
		}
		jump++
	}
	if len(closest) > kbucket.K {
		closest = closest[:kbucket.K]
	}

	sort.Slice(closest, func(i, j int) bool {
		return dhtid.Less(key, closest[i].NetworkID, closest[j].NetworkID)
	})
	return closest
}

// GetContact returns the known contact with the given network id.
func (t *Table) GetContact(id dhtid.ID) (peer.Peer, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx, err := t.bucketIndexLocked(id.Int())
	if err != nil {
		return peer.Peer{}, err
	}
	return t.buckets[idx].Get(id)
}

// GetRefreshList returns a random search target within each bucket, from
// startIndex onward, that has gone untouched for at least RefreshTimeout
// (or every such bucket, regardless of staleness, if force is true).
func (t *Table) GetRefreshList(startIndex int, force bool, now time.Time) []dhtid.ID {
	t.mu.Lock()
	defer t.mu.Unlock()

	var ids []dhtid.ID
	nowUnix := float64(now.Unix())
	for i := startIndex; i < len(t.buckets); i++ {
		b := t.buckets[i]
		staleFor := nowUnix - b.LastAccessed()
		if force || staleFor >= RefreshTimeout.Seconds() {
			id, err := t.randomKeyInBucketRangeLocked(i)
			if err != nil {
				continue
			}
			ids = append(ids, id)
		}
	}
	return ids
}

// RemoveContact registers an RPC failure against id; once the contact's
// failure count reaches AllowedRPCFails (or forced is true) it is evicted
// and replaced with the most recently seen entry from its bucket's
// replacement cache, if any.
func (t *Table) RemoveContact(id dhtid.ID, forced bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.removeContactLocked(id, forced)
}

func (t *Table) removeContactLocked(id dhtid.ID, forced bool) {
	idx, err := t.bucketIndexLocked(id.Int())
	if err != nil {
		return
	}
	bucket := t.buckets[idx]
	contact, err := bucket.Get(id)
	if err != nil {
		return
	}
	contact.FailedRPCs++
	if !forced && contact.FailedRPCs < AllowedRPCFails {
		_ = bucket.Replace(contact) // persist the incremented failure count in place
		return
	}

	_ = bucket.Remove(id)

	cache := t.replacementCache[idx]
	for i, c := range cache {
		if c.NetworkID == id {
			cache = append(cache[:i], cache[i+1:]...)
			break
		}
	}
	if len(cache) > 0 {
		replacement := cache[len(cache)-1]
		cache = cache[:len(cache)-1]
		_ = bucket.Add(replacement)
	}
	t.replacementCache[idx] = cache
}

// TouchBucket refreshes the last-accessed timestamp of the bucket covering
// key.
func (t *Table) TouchBucket(key dhtid.ID, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	idx, err := t.bucketIndexLocked(key.Int())
	if err != nil {
		return
	}
	t.buckets[idx].Touch(float64(now.Unix()))
}

// AllContacts returns every contact known to the table, in no particular
// order. Used to serialize the table for a join/dump round-trip.
func (t *Table) AllContacts() []peer.Peer {
	t.mu.Lock()
	defer t.mu.Unlock()
	var all []peer.Peer
	for _, b := range t.buckets {
		all = append(all, b.Contacts(0, nil)...)
	}
	return all
}

// SeedBlacklist adds ids to the blacklist directly, without going through
// Blacklist's remove-then-ban path (there is nothing to remove: these
// ids are not yet, and must never become, contacts). Used to restore a
// table's blacklist from a prior dump.
func (t *Table) SeedBlacklist(ids []dhtid.ID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, id := range ids {
		t.blacklist[id] = struct{}{}
	}
}

// BucketCount returns the number of buckets currently in the table
// (exposed for health reporting / metrics, not part of the Kademlia
// algorithm itself).
func (t *Table) BucketCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.buckets)
}

// ContactCount returns the total number of contacts held across all
// buckets.
func (t *Table) ContactCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	total := 0
	for _, b := range t.buckets {
		total += b.Len()
	}
	return total
}
