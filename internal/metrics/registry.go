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

// Package metrics counts and times what a running node does: messages
// handled, RPCs sent, lookups resolved, values stored, and the routing
// table's occupancy. Collector keeps these in process; the Prometheus
// vars in this package expose the same events through an optional
// /metrics endpoint.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "dht"

// Registry is the Prometheus registry every metric in this package is
// registered against. A dedicated registry, rather than the global
// default one, keeps Handler's output scoped to exactly this node's
// metrics even when the binary links in other instrumented libraries.
var Registry = prometheus.NewRegistry()
