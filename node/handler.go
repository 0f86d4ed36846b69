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
	"fmt"
	"time"

	"github.com/meshkv/dht/dhtid"
	"github.com/meshkv/dht/identity"
	"github.com/meshkv/dht/internal/logger"
	"github.com/meshkv/dht/message"
	"github.com/meshkv/dht/peer"
)

// HandleMessage dispatches an inbound request to the appropriate
// handler and returns the signed reply. It never panics on malformed
// peer input: unexpected message kinds are logged and answered with an
// Error-shaped OK-less rejection via the returned error, never a crash.
func (n *Node) HandleMessage(ctx context.Context, from string, req message.Message) (message.Message, error) {
	if !message.CheckSeal(req.ToMap()) {
		n.blacklistSender(req.Header().Sender)
		return nil, fmt.Errorf("node: bad seal in request from %s", from)
	}

	n.learnSender(req.Header(), from)

	switch m := req.(type) {
	case message.Ping:
		return n.seal(message.Pong{H: n.replyHeader(m.H)})
	case message.Store:
		return n.handleStore(ctx, m)
	case message.FindNode:
		return n.handleFindNode(m)
	case message.FindValue:
		return n.handleFindValue(ctx, m)
	default:
		n.logger.Warn("unhandled inbound message kind", logger.String("kind", string(req.Kind())), logger.String("from", from))
		return nil, fmt.Errorf("node: no handler for message kind %q", req.Kind())
	}
}

// handleStore admits an incoming signed item into the local store,
// provided its signature and derived key match and it isn't older than
// what is already held.
func (n *Node) handleStore(ctx context.Context, m message.Store) (message.Message, error) {
	item := m.Item()
	if !identity.VerifyItem(item) {
		n.blacklistSender(m.H.Sender)
		return nil, fmt.Errorf("node: store: unverifiable provenance from %s", m.H.Sender)
	}

	expected := identity.ConstructKey(m.PublicKey, m.Name)
	if expected.Hex() != m.Key {
		n.blacklistSender(m.H.Sender)
		return nil, fmt.Errorf("node: store: key %q does not match derived key %q", m.Key, expected.Hex())
	}

	if m.Expires != 0 && m.Expires < float64(time.Now().Unix()) {
		return nil, fmt.Errorf("node: store: item already expired")
	}

	if current, err := n.dataStore.Get(ctx, expected); err == nil && current.Created() > m.Timestamp {
		return nil, fmt.Errorf("node: store: local copy is newer")
	}

	if err := n.dataStore.Set(ctx, expected, item); err != nil {
		return nil, fmt.Errorf("node: store: %w", err)
	}
	if n.metrics != nil {
		n.metrics.RecordStore(true)
	}
	return n.seal(message.OK{H: n.replyHeader(m.H)})
}

func (n *Node) handleFindNode(m message.FindNode) (message.Message, error) {
	target, err := dhtidFromHex(m.Key)
	if err != nil {
		return nil, fmt.Errorf("node: findnode: %w", err)
	}
	exclude := n.senderExclusion(m.H.Sender)
	close := n.table.FindCloseNodes(target, exclude)
	return n.seal(message.Nodes{H: n.replyHeader(m.H), Nodes: peersToTuples(close)})
}

// handleFindValue answers with the matching Value if the local store
// has one, falling back to the same closer-nodes reply as FindNode.
func (n *Node) handleFindValue(ctx context.Context, m message.FindValue) (message.Message, error) {
	target, err := dhtidFromHex(m.Key)
	if err != nil {
		return nil, fmt.Errorf("node: findvalue: %w", err)
	}

	if item, err := n.dataStore.Get(ctx, target); err == nil {
		_ = n.dataStore.Touch(ctx, target)
		return n.seal(valueFromItem(n.replyHeader(m.H), m.Key, item.Value))
	}

	exclude := n.senderExclusion(m.H.Sender)
	close := n.table.FindCloseNodes(target, exclude)
	return n.seal(message.Nodes{H: n.replyHeader(m.H), Nodes: peersToTuples(close)})
}

// learnSender records the peer that sent an inbound request, the same way
// a successful outbound round trip does, so a node's table fills in from
// traffic it receives and not only from traffic it initiates.
func (n *Node) learnSender(h message.Header, from string) {
	if h.Sender == "" {
		return
	}
	p, err := peer.New(h.Sender, h.Version, from)
	if err != nil {
		return
	}
	n.table.AddContact(p)
}

func (n *Node) blacklistSender(publicKeyPEM string) {
	id, err := peer.NetworkID(publicKeyPEM)
	if err != nil {
		return
	}
	n.table.Blacklist(peer.Peer{NetworkID: id, PublicKey: publicKeyPEM})
}

// senderExclusion returns the sender's network id to exclude from a
// close-nodes reply (so a peer is never told about itself), or nil if
// the sender field can't be resolved to an id.
func (n *Node) senderExclusion(publicKeyPEM string) *dhtid.ID {
	id, err := peer.NetworkID(publicKeyPEM)
	if err != nil {
		return nil
	}
	return &id
}
