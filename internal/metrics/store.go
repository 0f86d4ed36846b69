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

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StoreRequests tracks local Store admissions and rejections.
	StoreRequests = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "requests_total",
			Help:      "Total number of store requests by outcome",
		},
		[]string{"status"}, // admitted, rejected
	)

	// RoutingTableSize tracks the number of contacts currently held
	// across all k-buckets.
	RoutingTableSize = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "routing_table",
			Name:      "contacts",
			Help:      "Number of contacts currently held in the routing table",
		},
	)

	// RoutingTableBuckets tracks how many k-buckets the table currently
	// holds, which grows as buckets covering the local id's range split.
	RoutingTableBuckets = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "routing_table",
			Name:      "buckets",
			Help:      "Number of k-buckets currently held in the routing table",
		},
	)
)
