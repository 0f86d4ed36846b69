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
	"time"

	"github.com/meshkv/dht/kbucket"
	"github.com/meshkv/dht/routing"
)

// Config holds the tunables a Node needs at construction time. Every
// field has a normative default drawn from the reference Kademlia
// constants; supply zero values to accept them.
type Config struct {
	// URI is this node's own dial-back address, included in NodeTuples
	// sent to peers so they can reach us.
	URI string

	// RPCTimeout bounds a single outbound request/reply round trip.
	RPCTimeout time.Duration

	// LookupTimeout bounds an entire iterative FindNode/FindValue
	// lookup.
	LookupTimeout time.Duration

	// RefreshInterval is how often stale buckets are checked and, if
	// due, refreshed with a lookup for a random key in their range.
	RefreshInterval time.Duration

	// ReplicateInterval is both the per-bucket staleness threshold
	// (routing.RefreshTimeout already matches it) and the interval at
	// which locally held items are pushed back out to the network and
	// checked for local expiry/inactivity.
	ReplicateInterval time.Duration

	// DuplicationCount is the number of nodes a Set call tries to
	// replicate a value onto.
	DuplicationCount int
}

// DefaultConfig returns the reference timing constants.
func DefaultConfig() Config {
	return Config{
		RPCTimeout:        5 * time.Second,
		LookupTimeout:     600 * time.Second,
		RefreshInterval:   600 * time.Second,
		ReplicateInterval: routing.RefreshTimeout,
		DuplicationCount:  kbucket.K,
	}
}

// withDefaults fills any zero-valued field of cfg from DefaultConfig.
func withDefaults(cfg Config) Config {
	d := DefaultConfig()
	if cfg.RPCTimeout <= 0 {
		cfg.RPCTimeout = d.RPCTimeout
	}
	if cfg.LookupTimeout <= 0 {
		cfg.LookupTimeout = d.LookupTimeout
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = d.RefreshInterval
	}
	if cfg.ReplicateInterval <= 0 {
		cfg.ReplicateInterval = d.ReplicateInterval
	}
	if cfg.DuplicationCount <= 0 {
		cfg.DuplicationCount = d.DuplicationCount
	}
	return cfg
}
