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

package message

import "github.com/meshkv/dht/identity"

// Ping requests a Pong from the recipient; replying unconditionally, even
// before the sender is known to the routing table, is what lets a cold
// node be pinged back to life.
type Ping struct {
	H Header
}

func (p Ping) Kind() Kind                    { return KindPing }
func (p Ping) Header() Header                { return p.H }
func (p Ping) ToMap() map[string]interface{} { return headerToMap(p.H, KindPing) }

// Pong is the reply to a Ping.
type Pong struct {
	H Header
}

func (p Pong) Kind() Kind                    { return KindPong }
func (p Pong) Header() Header                { return p.H }
func (p Pong) ToMap() map[string]interface{} { return headerToMap(p.H, KindPong) }

// OK is a generic acknowledgement, used as the reply to Store.
type OK struct {
	H Header
}

func (o OK) Kind() Kind                    { return KindOK }
func (o OK) Header() Header                { return o.H }
func (o OK) ToMap() map[string]interface{} { return headerToMap(o.H, KindOK) }

// Store asks the recipient to admit a signed item into its data store.
type Store struct {
	H           Header
	Key         string      `json:"key"`
	Value       interface{} `json:"value"`
	Timestamp   float64     `json:"timestamp"`
	Expires     float64     `json:"expires"`
	CreatedWith string      `json:"created_with"`
	PublicKey   string      `json:"public_key"`
	Name        string      `json:"name"`
	Signature   string      `json:"signature"`
}

func (s Store) Kind() Kind     { return KindStore }
func (s Store) Header() Header { return s.H }
func (s Store) ToMap() map[string]interface{} {
	m := headerToMap(s.H, KindStore)
	m["key"] = s.Key
	m["value"] = s.Value
	m["timestamp"] = s.Timestamp
	m["expires"] = s.Expires
	m["created_with"] = s.CreatedWith
	m["public_key"] = s.PublicKey
	m["name"] = s.Name
	m["signature"] = s.Signature
	return m
}

// Item reconstructs the signed identity.Item carried by this Store message,
// for verification and data-store admission.
func (s Store) Item() identity.Item {
	return identity.Item{
		"key":          s.Key,
		"value":        s.Value,
		"timestamp":    s.Timestamp,
		"expires":      s.Expires,
		"created_with": s.CreatedWith,
		"public_key":   s.PublicKey,
		"name":         s.Name,
		"signature":    s.Signature,
	}
}

// FindNode asks the recipient for the K closest contacts it knows to Key.
type FindNode struct {
	H   Header
	Key string `json:"key"`
}

func (f FindNode) Kind() Kind     { return KindFindNode }
func (f FindNode) Header() Header { return f.H }
func (f FindNode) ToMap() map[string]interface{} {
	m := headerToMap(f.H, KindFindNode)
	m["key"] = f.Key
	return m
}

// FindValue asks the recipient for the value stored at Key, falling back
// to the K closest contacts if it has no such value.
type FindValue struct {
	H   Header
	Key string `json:"key"`
}

func (f FindValue) Kind() Kind     { return KindFindValue }
func (f FindValue) Header() Header { return f.H }
func (f FindValue) ToMap() map[string]interface{} {
	m := headerToMap(f.H, KindFindValue)
	m["key"] = f.Key
	return m
}

// Nodes replies to FindNode (or to FindValue when no value is held) with
// the closest contacts the responder knows. Peer tuples are
// (public_key, version, uri); network ids are never transmitted, they are
// always re-derived locally.
type Nodes struct {
	H     Header
	Nodes []NodeTuple `json:"nodes"`
}

func (n Nodes) Kind() Kind     { return KindNodes }
func (n Nodes) Header() Header { return n.H }
func (n Nodes) ToMap() map[string]interface{} {
	m := headerToMap(n.H, KindNodes)
	tuples := make([]interface{}, len(n.Nodes))
	for i, nt := range n.Nodes {
		tuples[i] = []interface{}{nt.PublicKey, nt.Version, nt.URI}
	}
	m["nodes"] = tuples
	return m
}

// Value replies to FindValue with the matching signed item.
type Value struct {
	H           Header
	Key         string      `json:"key"`
	Value       interface{} `json:"value"`
	Timestamp   float64     `json:"timestamp"`
	Expires     float64     `json:"expires"`
	CreatedWith string      `json:"created_with"`
	PublicKey   string      `json:"public_key"`
	Name        string      `json:"name"`
	Signature   string      `json:"signature"`
}

func (v Value) Kind() Kind     { return KindValue }
func (v Value) Header() Header { return v.H }
func (v Value) ToMap() map[string]interface{} {
	m := headerToMap(v.H, KindValue)
	m["key"] = v.Key
	m["value"] = v.Value
	m["timestamp"] = v.Timestamp
	m["expires"] = v.Expires
	m["created_with"] = v.CreatedWith
	m["public_key"] = v.PublicKey
	m["name"] = v.Name
	m["signature"] = v.Signature
	return m
}

// Item reconstructs the signed identity.Item carried by this Value message.
func (v Value) Item() identity.Item {
	return identity.Item{
		"key":          v.Key,
		"value":        v.Value,
		"timestamp":    v.Timestamp,
		"expires":      v.Expires,
		"created_with": v.CreatedWith,
		"public_key":   v.PublicKey,
		"name":         v.Name,
		"signature":    v.Signature,
	}
}
