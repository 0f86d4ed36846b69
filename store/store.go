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

// Package store defines the local data store for a node: the set of
// signed key/value items it has accepted, each carrying the bookkeeping
// needed to decide when and how it should be replicated or expired.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/meshkv/dht/dhtid"
	"github.com/meshkv/dht/identity"
)

// ErrNotFound is returned when a key has no stored item.
var ErrNotFound = errors.New("store: key not found")

// Item is a stored key/value pair plus its replication bookkeeping: when
// it was locally written, when it was last read, and the signed item it
// was derived from (which itself carries the publisher's public key and
// original publication timestamp).
type Item struct {
	Key   dhtid.ID
	Value identity.Item

	// UpdatedAt is when this store last wrote the item (set on every
	// Set call, including re-publication of the same key).
	UpdatedAt time.Time

	// AccessedAt is when the item was last marked as read by a Touch
	// call (Get does not change it); preserved across a Set that
	// overwrites the value.
	AccessedAt time.Time
}

// PublicKey returns the PEM-encoded public key of the peer that signed
// this item.
func (i Item) PublicKey() string {
	pk, _ := i.Value["public_key"].(string)
	return pk
}

// Created returns the publisher's original publication timestamp, as
// recorded inside the signed item.
func (i Item) Created() float64 {
	ts, _ := i.Value["timestamp"].(float64)
	return ts
}

// DataStore is the local key/value store for a node. Implementations
// must be safe for concurrent use.
type DataStore interface {
	// Get returns the item stored under key.
	Get(ctx context.Context, key dhtid.ID) (Item, error)

	// Set stores value under key, stamping UpdatedAt with the current
	// time. If an item already exists under key, its AccessedAt is
	// preserved; otherwise AccessedAt starts at the zero time.
	Set(ctx context.Context, key dhtid.ID, value identity.Item) error

	// Delete removes the item stored under key.
	Delete(ctx context.Context, key dhtid.ID) error

	// Touch refreshes the AccessedAt timestamp of the item under key,
	// without altering its value or UpdatedAt.
	Touch(ctx context.Context, key dhtid.ID) error

	// Keys returns every key currently held.
	Keys(ctx context.Context) ([]dhtid.ID, error)

	// Len returns the number of items currently held.
	Len(ctx context.Context) (int, error)

	// Close releases any resources held by the store.
	Close() error
}
