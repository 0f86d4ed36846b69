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
	// LookupsStarted tracks iterative lookups started, by kind.
	LookupsStarted = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lookups",
			Name:      "started_total",
			Help:      "Total number of iterative lookups started",
		},
		[]string{"kind"}, // find_node, find_value
	)

	// LookupsActive tracks lookups currently in flight.
	LookupsActive = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "lookups",
			Name:      "active",
			Help:      "Number of iterative lookups currently in flight",
		},
	)

	// LookupsFailed tracks lookups that didn't resolve before their
	// deadline or exhausted the shortlist without converging.
	LookupsFailed = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lookups",
			Name:      "failed_total",
			Help:      "Total number of lookups that failed to resolve",
		},
	)

	// LookupDuration tracks lookup wall-clock time by kind.
	LookupDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "lookups",
			Name:      "duration_seconds",
			Help:      "Lookup duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 18), // 1ms to 131s
		},
		[]string{"kind"},
	)
)
