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

// Package message defines the eight wire message kinds exchanged between
// peers (ping, pong, ok, store, findnode, findvalue, nodes, value), the
// envelope fields they share, and the conversion to/from the
// map[string]interface{} form the identity package signs and verifies.
package message

import "github.com/meshkv/dht/identity"

// Kind identifies the payload shape of a message.
type Kind string

const (
	KindPing      Kind = "ping"
	KindPong      Kind = "pong"
	KindOK        Kind = "ok"
	KindStore     Kind = "store"
	KindFindNode  Kind = "findnode"
	KindFindValue Kind = "findvalue"
	KindNodes     Kind = "nodes"
	KindValue     Kind = "value"
)

// Header carries the envelope fields every message kind shares.
type Header struct {
	UUID      string `json:"uuid"`
	Recipient string `json:"recipient"`
	Sender    string `json:"sender"`
	ReplyPort int    `json:"reply_port"`
	Version   string `json:"version"`
	Seal      string `json:"seal"`
}

// NodeTuple is the (public_key, version, uri) triple used to describe a
// peer on the wire; the network id is never transmitted, it is always
// re-derived locally as the SHA-512 hash of the public key.
type NodeTuple struct {
	PublicKey string `json:"public_key"`
	Version   string `json:"version"`
	URI       string `json:"uri"`
}

// Message is satisfied by every concrete message kind.
type Message interface {
	Kind() Kind
	Header() Header
	// ToMap returns the envelope as a map[string]interface{}, suitable
	// for identity.Seal/identity.CheckSeal and for JSON encoding.
	ToMap() map[string]interface{}
}

func headerToMap(h Header, kind Kind) map[string]interface{} {
	return map[string]interface{}{
		"uuid":       h.UUID,
		"recipient":  h.Recipient,
		"sender":     h.Sender,
		"reply_port": float64(h.ReplyPort),
		"version":    h.Version,
		"seal":       h.Seal,
		"message":    string(kind),
	}
}

// Seal signs the envelope (every field except seal/message) with kp and
// returns the resulting signature, which the caller stores in the header's
// Seal field. Call this after populating every other field and before
// sending the message.
func Seal(m Message, kp identity.KeyPair) (string, error) {
	return identity.Seal(m.ToMap(), kp)
}

// CheckSeal verifies a decoded envelope's seal against its sender field.
func CheckSeal(envelope map[string]interface{}) bool {
	return identity.CheckSeal(envelope)
}
