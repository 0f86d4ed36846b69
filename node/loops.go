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

package node

import (
	"context"
	"time"

	"github.com/meshkv/dht/dhtid"
	"github.com/meshkv/dht/internal/logger"
	"github.com/meshkv/dht/lookup"
	"github.com/meshkv/dht/peer"
)

// refreshLoop periodically checks for buckets that have gone untouched
// for routing.RefreshTimeout and runs a FindNode lookup for a random key
// in their range, so buckets that never see organic traffic still learn
// about the network around them.
func (n *Node) refreshLoop(ctx context.Context) error {
	ticker := time.NewTicker(n.cfg.RefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n.refreshStaleBuckets(ctx)
		}
	}
}

func (n *Node) refreshStaleBuckets(ctx context.Context) {
	for _, target := range n.table.GetRefreshList(0, false, time.Now()) {
		if _, err := n.FindNode(ctx, target); err != nil {
			n.logger.Warn("bucket refresh lookup failed",
				logger.String("target", target.Hex()), logger.Error(err))
		}
	}
}

// FindNode runs a network lookup for the K closest known nodes to
// target, without touching the local data store. Exposed alongside
// Get/Whois/Set as the lower-level lookup primitive the background
// loops and Join also use.
func (n *Node) FindNode(ctx context.Context, target dhtid.ID) ([]peer.Peer, error) {
	start := time.Now()
	nodes, err := lookup.FindNode(ctx, target, n.id, n.table, n.queryFindNode, n.cfg.LookupTimeout)
	n.recordLookup("findnode", err == nil, time.Since(start))
	return nodes, err
}

// republishLoop periodically walks every locally held item: items that
// haven't been written in ReplicateInterval are pushed back out to the
// network; items that haven't been read in that long are dropped as
// inactive; expired items are deleted outright.
func (n *Node) republishLoop(ctx context.Context) error {
	ticker := time.NewTicker(n.cfg.ReplicateInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n.republishAll(ctx)
		}
	}
}

func (n *Node) republishAll(ctx context.Context) {
	keys, err := n.dataStore.Keys(ctx)
	if err != nil {
		n.logger.Warn("republish: list keys failed", logger.Error(err))
		return
	}

	now := time.Now()
	for _, key := range keys {
		item, err := n.dataStore.Get(ctx, key)
		if err != nil {
			continue
		}
		if item.Value.Expired(now) {
			_ = n.dataStore.Delete(ctx, key)
			continue
		}
		if now.Sub(item.AccessedAt) > n.cfg.ReplicateInterval && !item.AccessedAt.IsZero() {
			_ = n.dataStore.Delete(ctx, key)
			continue
		}
		if now.Sub(item.UpdatedAt) > n.cfg.ReplicateInterval {
			if err := n.replicate(ctx, key, item.Value); err != nil {
				n.logger.Warn("republish failed", logger.String("key", key.Hex()), logger.Error(err))
			}
		}
	}
}
