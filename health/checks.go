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

package health

import (
	"context"
	"fmt"

	"github.com/meshkv/dht/store"
)

// pinger is satisfied by store.DataStore implementations (such as
// store/postgres.Store) that can verify underlying connectivity beyond
// just answering Keys/Len. Checked with a type assertion so the memory
// store, which has no external connection to ping, doesn't need a
// no-op implementation.
type pinger interface {
	Ping(ctx context.Context) error
}

// DataStoreHealthCheck creates a health check for a node's data store.
// If ds implements a Ping(ctx) error method (as store/postgres.Store
// does), that is used; otherwise reachability is inferred from a cheap
// Len call, which exercises the same code path as every other access.
func DataStoreHealthCheck(ds store.DataStore) HealthCheck {
	return func(ctx context.Context) error {
		if ds == nil {
			return errNilDataStore
		}
		if p, ok := ds.(pinger); ok {
			return p.Ping(ctx)
		}
		_, err := ds.Len(ctx)
		return err
	}
}

var errNilDataStore = fmt.Errorf("health: data store not configured")
