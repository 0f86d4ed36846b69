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

// Package lookup implements the iterative Kademlia node/value lookup:
// starting from the ALPHA nodes in the local routing table closest to a
// target, it queries them concurrently, folds every reply's closer nodes
// back into its shortlist, and keeps widening outward until the K
// closest known nodes have all been contacted (FindNode) or a valid
// value is returned (FindValue).
package lookup

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/meshkv/dht/dhtid"
	"github.com/meshkv/dht/kbucket"
	"github.com/meshkv/dht/message"
	"github.com/meshkv/dht/peer"
)

// Alpha is the number of concurrent in-flight queries a lookup keeps.
const Alpha = 3

// DefaultTimeout is how long a lookup runs before giving up.
const DefaultTimeout = 600 * time.Second

// ErrRoutingTableEmpty is returned when the local routing table has no
// contacts at all to seed the lookup with.
var ErrRoutingTableEmpty = errors.New("lookup: routing table is empty")

// ErrValueNotFound is returned by FindValue when the lookup exhausts
// every candidate node without a peer returning the target value.
var ErrValueNotFound = errors.New("lookup: value not found")

// Table is the subset of routing.Table a lookup needs: a way to seed and
// refresh its shortlist, and to banish a misbehaving peer.
type Table interface {
	FindCloseNodes(key dhtid.ID, exclude *dhtid.ID) []peer.Peer
	TouchBucket(key dhtid.ID, now time.Time)
	Blacklist(contact peer.Peer)
}

// QueryFunc sends a FindNode or FindValue request (the caller decides
// which, based on the lookup's kind) to p and returns its decoded reply:
// a message.Nodes listing closer peers, or — for a value lookup that
// lands on the right node — a message.Value.
type QueryFunc func(ctx context.Context, p peer.Peer, target dhtid.ID) (message.Message, error)

type queryResult struct {
	peer peer.Peer
	msg  message.Message
	err  error
}

// FindNode runs an iterative lookup for the K nodes closest to target and
// returns them nearest-first.
func FindNode(ctx context.Context, target, selfID dhtid.ID, rt Table, query QueryFunc, timeout time.Duration) ([]peer.Peer, error) {
	nodes, _, _, err := run(ctx, target, selfID, rt, query, timeout, false)
	return nodes, err
}

// FindValue runs an iterative lookup for target, returning the first
// valid, unexpired Value a queried peer reports for it, along with the
// shortlist of nodes that were contacted (or known) but did not hold it,
// nearest-first. The caller uses that shortlist's closest entry as the
// cache target for a subsequent Store, the standard Kademlia cache-to-
// nearest-miss behavior.
func FindValue(ctx context.Context, target, selfID dhtid.ID, rt Table, query QueryFunc, timeout time.Duration) (message.Value, []peer.Peer, error) {
	_, value, nearMiss, err := run(ctx, target, selfID, rt, query, timeout, true)
	if err != nil {
		return message.Value{}, nil, err
	}
	if value == nil {
		return message.Value{}, nil, ErrValueNotFound
	}
	return *value, nearMiss, nil
}

func run(ctx context.Context, target, selfID dhtid.ID, rt Table, query QueryFunc, timeout time.Duration, wantValue bool) ([]peer.Peer, *message.Value, []peer.Peer, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	shortlist := rt.FindCloseNodes(target, nil)
	if target != selfID {
		rt.TouchBucket(target, time.Now())
	}
	if len(shortlist) == 0 {
		return nil, nil, nil, ErrRoutingTableEmpty
	}

	contacted := make(map[dhtid.ID]bool)
	nearest := shortlist[0].NetworkID

	for {
		batch := nextBatch(shortlist, contacted)
		if len(batch) == 0 {
			break
		}
		for _, p := range batch {
			contacted[p.NetworkID] = true
		}

		results := make(chan queryResult, len(batch))
		var wg sync.WaitGroup
		for _, p := range batch {
			wg.Add(1)
			go func(p peer.Peer) {
				defer wg.Done()
				msg, err := query(ctx, p, target)
				results <- queryResult{peer: p, msg: msg, err: err}
			}(p)
		}
		go func() {
			wg.Wait()
			close(results)
		}()

		for r := range results {
			if r.err != nil {
				shortlist = removePeer(shortlist, r.peer.NetworkID)
				continue
			}

			switch m := r.msg.(type) {
			case message.Value:
				if !wantValue || m.Key != target.Hex() {
					rt.Blacklist(r.peer)
					shortlist = removePeer(shortlist, r.peer.NetworkID)
					continue
				}
				if m.Expires > 0 && m.Expires < float64(time.Now().Unix()) {
					shortlist = removePeer(shortlist, r.peer.NetworkID)
					continue
				}
				nearMiss := removePeer(append([]peer.Peer{}, shortlist...), r.peer.NetworkID)
				return nil, &m, nearMiss, nil
			case message.Nodes:
				shortlist = mergeShortlist(shortlist, tuplesToPeers(m.Nodes), contacted, target)
			default:
				rt.Blacklist(r.peer)
				shortlist = removePeer(shortlist, r.peer.NetworkID)
			}
		}

		if len(shortlist) == 0 {
			break
		}
		if shortlist[0].NetworkID == nearest {
			if allContacted(shortlist, contacted) {
				break
			}
			continue
		}
		nearest = shortlist[0].NetworkID
	}

	if wantValue {
		return nil, nil, nil, nil
	}
	if len(shortlist) > kbucket.K {
		shortlist = shortlist[:kbucket.K]
	}
	return shortlist, nil, nil, nil
}

// nextBatch returns up to Alpha contacts from shortlist (already ordered
// nearest-first) that have not yet been contacted.
func nextBatch(shortlist []peer.Peer, contacted map[dhtid.ID]bool) []peer.Peer {
	var batch []peer.Peer
	for _, p := range shortlist {
		if len(batch) >= Alpha {
			break
		}
		if !contacted[p.NetworkID] {
			batch = append(batch, p)
		}
	}
	return batch
}

func removePeer(list []peer.Peer, id dhtid.ID) []peer.Peer {
	out := list[:0]
	for _, p := range list {
		if p.NetworkID != id {
			out = append(out, p)
		}
	}
	return out
}

// mergeShortlist folds newly learned peers into shortlist, skipping ones
// already contacted or already present, then re-sorts the result by
// distance to target and caps it at K entries.
func mergeShortlist(shortlist, learned []peer.Peer, contacted map[dhtid.ID]bool, target dhtid.ID) []peer.Peer {
	present := make(map[dhtid.ID]bool, len(shortlist))
	for _, p := range shortlist {
		present[p.NetworkID] = true
	}
	merged := append([]peer.Peer{}, shortlist...)
	for _, p := range learned {
		if contacted[p.NetworkID] || present[p.NetworkID] {
			continue
		}
		present[p.NetworkID] = true
		merged = append(merged, p)
	}
	sortByDistance(merged, target)
	if len(merged) > kbucket.K {
		merged = merged[:kbucket.K]
	}
	return merged
}

func sortByDistance(peers []peer.Peer, target dhtid.ID) {
	sort.Slice(peers, func(i, j int) bool {
		return dhtid.Less(target, peers[i].NetworkID, peers[j].NetworkID)
	})
}

func allContacted(shortlist []peer.Peer, contacted map[dhtid.ID]bool) bool {
	for _, p := range shortlist {
		if !contacted[p.NetworkID] {
			return false
		}
	}
	return true
}

func tuplesToPeers(tuples []message.NodeTuple) []peer.Peer {
	out := make([]peer.Peer, 0, len(tuples))
	for _, nt := range tuples {
		p, err := peer.New(nt.PublicKey, nt.Version, nt.URI)
		if err != nil {
			continue
		}
		out = append(out, p)
	}
	return out
}
