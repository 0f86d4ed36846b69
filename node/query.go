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

	"github.com/meshkv/dht/dhtid"
	"github.com/meshkv/dht/identity"
	"github.com/meshkv/dht/message"
	"github.com/meshkv/dht/peer"
)

// queryFindNode is the lookup.QueryFunc used by FindNode/Join/replicate:
// it sends a FindNode request to p and hands the decoded reply straight
// back to the lookup engine.
func (n *Node) queryFindNode(ctx context.Context, p peer.Peer, target dhtid.ID) (message.Message, error) {
	req := message.FindNode{H: n.requestHeader(p), Key: target.Hex()}
	return n.roundTrip(ctx, p, req)
}

// queryFindValue is the lookup.QueryFunc used by Get/Whois: same as
// queryFindNode but for a FindValue request, with an added provenance
// check on any Value reply before it is handed back (an unverifiable
// item is worse than no item, so the responsible peer is blacklisted and
// the reply is treated as a network error instead).
func (n *Node) queryFindValue(ctx context.Context, p peer.Peer, target dhtid.ID) (message.Message, error) {
	req := message.FindValue{H: n.requestHeader(p), Key: target.Hex()}
	reply, err := n.roundTrip(ctx, p, req)
	if err != nil {
		return nil, err
	}
	if v, ok := reply.(message.Value); ok {
		if !identity.VerifyItem(v.Item()) {
			n.table.Blacklist(p)
			return nil, fmt.Errorf("node: findvalue: unverifiable item from %s", p.URI)
		}
	}
	return reply, nil
}

// sendStore pushes item to p as a Store request and expects an OK reply.
func (n *Node) sendStore(ctx context.Context, p peer.Peer, item identity.Item) error {
	req := storeFromItem(n.requestHeader(p), item)
	reply, err := n.roundTrip(ctx, p, req)
	if err != nil {
		return err
	}
	if _, ok := reply.(message.OK); !ok {
		return fmt.Errorf("node: store: unexpected reply kind %q from %s", reply.Kind(), p.URI)
	}
	return nil
}

// roundTrip signs req, sends it to p over the transport, and verifies
// the reply's seal. Any transport-level failure registers an RPC
// failure against p in the routing table, matching the eviction policy
// a lookup itself applies to its own shortlist.
func (n *Node) roundTrip(ctx context.Context, p peer.Peer, req message.Message) (message.Message, error) {
	signed, err := n.seal(req)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, n.cfg.RPCTimeout)
	defer cancel()

	reply, err := n.transport.Send(ctx, p.URI, signed)
	if err != nil {
		n.table.RemoveContact(p.NetworkID, false)
		if n.metrics != nil {
			n.metrics.RecordRPCFailure(p.NetworkID.Hex())
		}
		return nil, err
	}
	if !message.CheckSeal(reply.ToMap()) {
		n.table.Blacklist(p)
		return nil, fmt.Errorf("node: bad seal in reply from %s", p.URI)
	}
	n.table.AddContact(p)
	return reply, nil
}
