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

package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/meshkv/dht/dhtid"
	"github.com/meshkv/dht/identity"
)

// MemoryStore implements DataStore using an in-memory map. It is the
// store every node starts with, and is sufficient for small deployments
// or tests; production nodes that need durability across restarts use
// store/postgres instead.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[dhtid.ID]Item
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[dhtid.ID]Item)}
}

func (s *MemoryStore) Get(_ context.Context, key dhtid.ID) (Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[key]
	if !ok {
		return Item{}, ErrNotFound
	}
	return item, nil
}

// Set stores value under key. If key already holds an item, the new
// item keeps that item's AccessedAt; a freshly written key starts with
// a zero AccessedAt, matching the reference store's "preserve last
// access on overwrite, but only once something has actually been read."
func (s *MemoryStore) Set(_ context.Context, key dhtid.ID, value identity.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var accessedAt time.Time
	if existing, ok := s.items[key]; ok {
		accessedAt = existing.AccessedAt
	}
	s.items[key] = Item{
		Key:        key,
		Value:      value,
		UpdatedAt:  time.Now(),
		AccessedAt: accessedAt,
	}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key dhtid.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[key]; !ok {
		return ErrNotFound
	}
	delete(s.items, key)
	return nil
}

func (s *MemoryStore) Touch(_ context.Context, key dhtid.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[key]
	if !ok {
		return ErrNotFound
	}
	item.AccessedAt = time.Now()
	s.items[key] = item
	return nil
}

func (s *MemoryStore) Keys(_ context.Context) ([]dhtid.ID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]dhtid.ID, 0, len(s.items))
	for k := range s.items {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Hex() < keys[j].Hex() })
	return keys, nil
}

func (s *MemoryStore) Len(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items), nil
}

func (s *MemoryStore) Close() error { return nil }

var _ DataStore = (*MemoryStore)(nil)
