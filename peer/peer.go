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

// Package peer represents another node on the network as known to the
// local routing table.
package peer

import (
	"errors"
	"fmt"

	"github.com/meshkv/dht/dhtid"
	"github.com/meshkv/dht/identity"
)

// ErrEmptyPublicKey is returned by NetworkID when given an empty key.
var ErrEmptyPublicKey = errors.New("peer: cannot derive network id from empty public key")

// NetworkID derives the dhtid.ID of a peer from its PEM-encoded public key:
// the SHA-512 hash of the public key string.
func NetworkID(publicKey string) (dhtid.ID, error) {
	if publicKey == "" {
		return dhtid.ID{}, ErrEmptyPublicKey
	}
	return identity.NetworkIDFromPublicKeyPEM(publicKey), nil
}

// Peer represents another node on the network: its identity (derived from
// its public key), protocol version, transport URI, and the bookkeeping
// the routing table needs to decide whether to keep or evict it.
type Peer struct {
	NetworkID dhtid.ID
	PublicKey string
	Version   string
	URI       string

	// LastSeen is the time, as a POSIX timestamp, of the most recent
	// successful contact with this peer. Zero means never.
	LastSeen float64

	// FailedRPCs counts consecutive RPC failures since the last success.
	// Once it reaches the allowed-failures threshold the peer is
	// evicted from its bucket.
	FailedRPCs int
}

// New builds a Peer from a public key, protocol version and URI.
func New(publicKey, version, uri string) (Peer, error) {
	id, err := NetworkID(publicKey)
	if err != nil {
		return Peer{}, err
	}
	return Peer{
		NetworkID: id,
		PublicKey: publicKey,
		Version:   version,
		URI:       uri,
	}, nil
}

// Equal reports whether two peers share the same network id.
func (p Peer) Equal(other Peer) bool {
	return p.NetworkID == other.NetworkID
}

// EqualID reports whether the peer's network id matches id.
func (p Peer) EqualID(id dhtid.ID) bool {
	return p.NetworkID == id
}

// Dump returns the (public_key, version, uri) wire representation of the
// peer, suitable for serializing into a Nodes message.
func (p Peer) Dump() (publicKey, version, uri string) {
	return p.PublicKey, p.Version, p.URI
}

// String returns a human-readable representation, useful for logging.
func (p Peer) String() string {
	return fmt.Sprintf("Peer{id=%s, uri=%s, version=%s, last_seen=%.0f, failed_rpcs=%d}",
		p.NetworkID.Hex()[:16], p.URI, p.Version, p.LastSeen, p.FailedRPCs)
}
