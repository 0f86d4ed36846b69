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

// Package node orchestrates a single local DHT participant: its
// identity, routing table, data store and transport, dispatching inbound
// requests and driving the outbound join/get/whois/set operations a
// caller uses to participate in the network.
package node

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/meshkv/dht/dhtid"
	"github.com/meshkv/dht/identity"
	"github.com/meshkv/dht/internal/logger"
	"github.com/meshkv/dht/lookup"
	"github.com/meshkv/dht/message"
	"github.com/meshkv/dht/peer"
	"github.com/meshkv/dht/routing"
	"github.com/meshkv/dht/store"
	"github.com/meshkv/dht/transport"
)

// Metrics receives counters for node-level operations. A nil Metrics is
// never called, so the zero value of Node works without one.
type Metrics interface {
	RecordLookup(kind string, success bool, duration time.Duration)
	RecordStore(success bool)
	RecordRPCFailure(peerID string)
}

// Dump is the serializable shape of a routing table snapshot, used by
// Join to bootstrap and by DumpRoutingTable to export: contacts to seed
// and public keys that must stay banned.
type Dump struct {
	Contacts  []message.NodeTuple
	Blacklist []string
}

// Node is a single participant in the network: its own identity, its
// view of the rest of the network (the routing table), the values it
// holds (the data store), and the means to talk to other nodes (the
// transport). It implements transport.Handler to answer inbound
// requests.
type Node struct {
	id        dhtid.ID
	keyPair   identity.KeyPair
	publicKey string
	version   string
	uri       string
	cfg       Config

	table     *routing.Table
	dataStore store.DataStore
	transport transport.Transport
	logger    logger.Logger
	metrics   Metrics

	sf singleflight.Group

	cancel context.CancelFunc
	group  *errgroup.Group
}

// New builds a Node around kp's identity. tr's handler is installed to
// point at the new Node; the caller must not also install its own
// handler on tr.
func New(cfg Config, kp identity.KeyPair, tr transport.Transport, ds store.DataStore, log logger.Logger, metrics Metrics) (*Node, error) {
	pubPEM, err := kp.PublicKeyPEM()
	if err != nil {
		return nil, fmt.Errorf("node: public key: %w", err)
	}
	id, err := kp.NetworkID()
	if err != nil {
		return nil, fmt.Errorf("node: network id: %w", err)
	}
	if log == nil {
		log = logger.NewDefaultLogger()
	}

	n := &Node{
		id:        id,
		keyPair:   kp,
		publicKey: pubPEM,
		version:   identity.Version,
		uri:       cfg.URI,
		cfg:       withDefaults(cfg),
		table:     routing.New(id),
		dataStore: ds,
		transport: tr,
		logger:    log,
		metrics:   metrics,
	}
	tr.SetHandler(transport.HandlerFunc(n.HandleMessage))
	return n, nil
}

// ID returns the node's own network id.
func (n *Node) ID() dhtid.ID { return n.id }

// URI returns the node's own dial-back address.
func (n *Node) URI() string { return n.uri }

// KeyPair returns the node's own identity key pair.
func (n *Node) KeyPair() identity.KeyPair { return n.keyPair }

// RoutingTableSize reports how many contacts and k-buckets the routing
// table currently holds, for health reporting and metrics gauges.
func (n *Node) RoutingTableSize() (contacts, buckets int) {
	return n.table.ContactCount(), n.table.BucketCount()
}

// SeedContact adds p directly to the routing table, without waiting for
// it to be learned through ordinary RPC traffic. Useful for bootstrap
// tooling that knows one live peer and wants Join's self-lookup to
// discover the rest of the network from there.
func (n *Node) SeedContact(p peer.Peer) {
	n.table.AddContact(p)
}

// Start launches the background timer goroutines (bucket refresh, item
// republish) under ctx. They run until ctx is cancelled or Stop is
// called.
func (n *Node) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	n.cancel = cancel
	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error { return n.refreshLoop(gctx) })
	g.Go(func() error { return n.republishLoop(gctx) })
	n.group = g
	return nil
}

// Stop cancels the background goroutines started by Start, waits for
// them to exit, and closes the transport.
func (n *Node) Stop() error {
	if n.cancel != nil {
		n.cancel()
	}
	if n.group != nil {
		if err := n.group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
	}
	return n.transport.Close()
}

// Join seeds the routing table from a prior Dump (or a fresh bootstrap
// list with an empty blacklist) and runs a FindNode lookup for the
// node's own id to populate the rest of the table.
func (n *Node) Join(ctx context.Context, dump Dump) error {
	for _, nt := range dump.Contacts {
		p, err := peer.New(nt.PublicKey, nt.Version, nt.URI)
		if err != nil {
			continue
		}
		n.table.AddContact(p)
	}
	for _, pubKey := range dump.Blacklist {
		id, err := peer.NetworkID(pubKey)
		if err != nil {
			continue
		}
		n.table.SeedBlacklist([]dhtid.ID{id})
	}
	if n.table.ContactCount() == 0 {
		return lookup.ErrRoutingTableEmpty
	}

	_, err := n.FindNode(ctx, n.id)
	return err
}

// DumpRoutingTable exports every contact the table currently holds, in the
// shape Join expects. The returned Blacklist is always empty: the table
// keeps blacklisted network ids, not public keys.
func (n *Node) DumpRoutingTable() Dump {
	contacts := n.table.AllContacts()
	tuples := make([]message.NodeTuple, 0, len(contacts))
	for _, c := range contacts {
		pub, ver, uri := c.Dump()
		tuples = append(tuples, message.NodeTuple{PublicKey: pub, Version: ver, URI: uri})
	}
	return Dump{Contacts: tuples}
}

// Get retrieves the value published under (publicKeyPEM, name), checking
// the local store before falling back to a network FindValue lookup.
func (n *Node) Get(ctx context.Context, publicKeyPEM, name string) (identity.Item, error) {
	target := identity.ConstructKey(publicKeyPEM, name)

	if local, err := n.dataStore.Get(ctx, target); err == nil {
		if !local.Value.Expired(time.Now()) {
			_ = n.dataStore.Touch(ctx, target)
			return local.Value, nil
		}
		_ = n.dataStore.Delete(ctx, target)
	}

	v, err, _ := n.sf.Do("get:"+target.Hex(), func() (interface{}, error) {
		start := time.Now()
		value, nearMiss, err := lookup.FindValue(ctx, target, n.id, n.table, n.queryFindValue, n.cfg.LookupTimeout)
		n.recordLookup("findvalue", err == nil, time.Since(start))
		if err != nil {
			return nil, err
		}
		n.cacheToNearestMiss(ctx, nearMiss, value.Item())
		return value.Item(), nil
	})
	if err != nil {
		return nil, err
	}
	return v.(identity.Item), nil
}

// cacheToNearestMiss pushes item to the closest peer in nearMiss (the
// nodes a FindValue lookup contacted or learned of but that did not hold
// the value), so that peer answers the next lookup for this key directly
// instead of the query having to travel all the way to the original
// publisher again. Best-effort: a failed cache Store does not fail Get.
func (n *Node) cacheToNearestMiss(ctx context.Context, nearMiss []peer.Peer, item identity.Item) {
	if len(nearMiss) == 0 {
		return
	}
	if err := n.sendStore(ctx, nearMiss[0], item); err != nil {
		n.logger.Debug("cache to nearest miss failed", logger.String("peer", nearMiss[0].URI), logger.Error(err))
	}
}

// Whois is Get with an empty name: it retrieves whatever the holder of
// publicKeyPEM has published about themselves.
func (n *Node) Whois(ctx context.Context, publicKeyPEM string) (identity.Item, error) {
	return n.Get(ctx, publicKeyPEM, "")
}

// Set signs (name, value) with the node's own key, stores it locally,
// and replicates it to up to DuplicationCount of the network's closest
// known nodes to the derived key.
func (n *Node) Set(ctx context.Context, name string, value interface{}, expiresIn time.Duration) error {
	item, err := identity.SignItem(name, value, n.keyPair, expiresIn)
	if err != nil {
		return fmt.Errorf("node: sign item: %w", err)
	}
	target := identity.ConstructKey(n.publicKey, name)
	if err := n.dataStore.Set(ctx, target, item); err != nil {
		return fmt.Errorf("node: local store: %w", err)
	}
	return n.replicate(ctx, target, item)
}

// replicate pushes item out to the DuplicationCount nodes closest to
// target, found via a FindNode lookup.
func (n *Node) replicate(ctx context.Context, target dhtid.ID, item identity.Item) error {
	nodes, err := n.FindNode(ctx, target)
	if err != nil {
		return err
	}
	if len(nodes) > n.cfg.DuplicationCount {
		nodes = nodes[:n.cfg.DuplicationCount]
	}

	var firstErr error
	for _, p := range nodes {
		if err := n.sendStore(ctx, p, item); err != nil {
			n.logger.Warn("replicate store failed", logger.String("peer", p.URI), logger.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (n *Node) recordLookup(kind string, success bool, d time.Duration) {
	if n.metrics != nil {
		n.metrics.RecordLookup(kind, success, d)
	}
}

func newUUID() string { return uuid.NewString() }
