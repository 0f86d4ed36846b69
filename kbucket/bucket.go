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

// Package kbucket implements the k-bucket: a bounded, least-recently-seen
// ordered list of peers covering one slice of the 512-bit identifier
// space. Kademlia nodes keep one such bucket (that may later split) for
// each range of network ids.
package kbucket

import (
	"errors"
	"math/big"

	"github.com/meshkv/dht/dhtid"
	"github.com/meshkv/dht/peer"
)

// K is the maximum number of contacts a single bucket holds, and the
// number of closest nodes returned by a lookup.
const K = 20

// ErrFull is returned by Add when the bucket is at capacity and the
// contact being added is not already present.
var ErrFull = errors.New("kbucket: bucket is full")

// ErrNotFound is returned by Get/Remove for a contact not in the bucket.
var ErrNotFound = errors.New("kbucket: contact not found")

// Bucket holds up to K peers whose network id, read as an integer, falls
// in [RangeMin, RangeMax). Contacts are ordered least-recently-seen first,
// most-recently-seen last, exactly like the reference Kademlia bucket.
type Bucket struct {
	RangeMin, RangeMax *big.Int

	contacts     []peer.Peer
	lastAccessed float64
}

// New creates an empty bucket covering [rangeMin, rangeMax).
func New(rangeMin, rangeMax *big.Int) *Bucket {
	return &Bucket{RangeMin: rangeMin, RangeMax: rangeMax}
}

// Len returns the number of contacts currently stored.
func (b *Bucket) Len() int {
	return len(b.contacts)
}

// LastAccessed returns the POSIX timestamp this bucket was last touched.
func (b *Bucket) LastAccessed() float64 {
	return b.lastAccessed
}

// Touch marks the bucket as accessed at now (a POSIX timestamp).
func (b *Bucket) Touch(now float64) {
	b.lastAccessed = now
}

func (b *Bucket) indexOf(id dhtid.ID) int {
	for i, c := range b.contacts {
		if c.NetworkID == id {
			return i
		}
	}
	return -1
}

// Add inserts contact into the bucket. If it is already present it is
// moved to the tail (most-recently-seen); otherwise it is appended if
// there is room. ErrFull is returned once the bucket holds K contacts and
// the contact is new.
func (b *Bucket) Add(contact peer.Peer) error {
	if i := b.indexOf(contact.NetworkID); i >= 0 {
		b.contacts = append(b.contacts[:i], b.contacts[i+1:]...)
		b.contacts = append(b.contacts, contact)
		return nil
	}
	if len(b.contacts) < K {
		b.contacts = append(b.contacts, contact)
		return nil
	}
	return ErrFull
}

// Replace overwrites the stored contact sharing contact's network id
// in place, without changing its position in the least-recently-seen
// order. Used to persist bookkeeping updates (e.g. a failed-RPC count)
// that should not count as a fresh sighting. Returns ErrNotFound if no
// such contact is present.
func (b *Bucket) Replace(contact peer.Peer) error {
	i := b.indexOf(contact.NetworkID)
	if i < 0 {
		return ErrNotFound
	}
	b.contacts[i] = contact
	return nil
}

// Get returns the contact with the given network id.
func (b *Bucket) Get(id dhtid.ID) (peer.Peer, error) {
	if i := b.indexOf(id); i >= 0 {
		return b.contacts[i], nil
	}
	return peer.Peer{}, ErrNotFound
}

// Contacts returns up to count contacts (all of them if count <= 0),
// optionally excluding one network id.
func (b *Bucket) Contacts(count int, exclude *dhtid.ID) []peer.Peer {
	n := len(b.contacts)
	if count <= 0 || count > n {
		count = n
	}
	out := make([]peer.Peer, 0, count)
	for _, c := range b.contacts[:count] {
		if exclude != nil && c.NetworkID == *exclude {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Remove deletes the contact with the given network id.
func (b *Bucket) Remove(id dhtid.ID) error {
	i := b.indexOf(id)
	if i < 0 {
		return ErrNotFound
	}
	b.contacts = append(b.contacts[:i], b.contacts[i+1:]...)
	return nil
}

// InRange reports whether id (as a big-endian integer) falls within
// [RangeMin, RangeMax).
func (b *Bucket) InRange(id *big.Int) bool {
	return b.RangeMin.Cmp(id) <= 0 && id.Cmp(b.RangeMax) < 0
}
