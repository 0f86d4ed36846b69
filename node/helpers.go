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
	"fmt"

	"github.com/meshkv/dht/dhtid"
	"github.com/meshkv/dht/identity"
	"github.com/meshkv/dht/message"
	"github.com/meshkv/dht/peer"
)

// requestHeader builds the envelope header for a fresh outbound request
// to p.
func (n *Node) requestHeader(p peer.Peer) message.Header {
	return message.Header{
		UUID:      newUUID(),
		Recipient: p.PublicKey,
		Sender:    n.publicKey,
		Version:   n.version,
	}
}

// replyHeader builds the envelope header for a reply to an inbound
// request whose header was req: same uuid, sender/recipient swapped.
func (n *Node) replyHeader(req message.Header) message.Header {
	return message.Header{
		UUID:      req.UUID,
		Recipient: req.Sender,
		Sender:    n.publicKey,
		Version:   n.version,
	}
}

// seal computes m's envelope seal and returns a copy of m with it set.
// Every concrete message.Message kind this node ever sends or replies
// with is listed here; an unlisted kind is a programming error.
func (n *Node) seal(m message.Message) (message.Message, error) {
	sealHex, err := message.Seal(m, n.keyPair)
	if err != nil {
		return nil, fmt.Errorf("node: seal: %w", err)
	}
	switch v := m.(type) {
	case message.Ping:
		v.H.Seal = sealHex
		return v, nil
	case message.Pong:
		v.H.Seal = sealHex
		return v, nil
	case message.OK:
		v.H.Seal = sealHex
		return v, nil
	case message.Store:
		v.H.Seal = sealHex
		return v, nil
	case message.FindNode:
		v.H.Seal = sealHex
		return v, nil
	case message.FindValue:
		v.H.Seal = sealHex
		return v, nil
	case message.Nodes:
		v.H.Seal = sealHex
		return v, nil
	case message.Value:
		v.H.Seal = sealHex
		return v, nil
	default:
		return nil, fmt.Errorf("node: cannot seal unknown message type %T", m)
	}
}

func dhtidFromHex(hex string) (dhtid.ID, error) {
	return dhtid.FromHex(hex)
}

func peersToTuples(peers []peer.Peer) []message.NodeTuple {
	tuples := make([]message.NodeTuple, 0, len(peers))
	for _, p := range peers {
		pub, ver, uri := p.Dump()
		tuples = append(tuples, message.NodeTuple{PublicKey: pub, Version: ver, URI: uri})
	}
	return tuples
}

func valueFromItem(h message.Header, key string, item identity.Item) message.Value {
	v := message.Value{H: h, Key: key}
	v.Value, _ = item["value"]
	v.Timestamp, _ = item["timestamp"].(float64)
	v.Expires, _ = item["expires"].(float64)
	v.CreatedWith, _ = item["created_with"].(string)
	v.PublicKey, _ = item["public_key"].(string)
	v.Name, _ = item["name"].(string)
	v.Signature, _ = item["signature"].(string)
	return v
}

func storeFromItem(h message.Header, item identity.Item) message.Store {
	s := message.Store{H: h}
	s.Key, _ = item["key"].(string)
	s.Value, _ = item["value"]
	s.Timestamp, _ = item["timestamp"].(float64)
	s.Expires, _ = item["expires"].(float64)
	s.CreatedWith, _ = item["created_with"].(string)
	s.PublicKey, _ = item["public_key"].(string)
	s.Name, _ = item["name"].(string)
	s.Signature, _ = item["signature"].(string)
	return s
}
