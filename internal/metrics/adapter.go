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

import "time"

// PrometheusCollector wraps a Collector and mirrors every event into the
// package's Prometheus vars, so a single node.Metrics implementation can
// back both the in-process Snapshot and an optional /metrics endpoint.
type PrometheusCollector struct {
	*Collector
}

// NewPrometheusCollector wraps a fresh Collector.
func NewPrometheusCollector() *PrometheusCollector {
	return &PrometheusCollector{Collector: NewCollector()}
}

// RecordLookup satisfies node.Metrics, recording into both the embedded
// Collector and the lookups_* Prometheus series.
func (p *PrometheusCollector) RecordLookup(kind string, success bool, duration time.Duration) {
	p.Collector.RecordLookup(kind, success, duration)

	LookupsStarted.WithLabelValues(kind).Inc()
	LookupDuration.WithLabelValues(kind).Observe(duration.Seconds())
	if !success {
		LookupsFailed.Inc()
	}
}

// RecordStore satisfies node.Metrics.
func (p *PrometheusCollector) RecordStore(success bool) {
	p.Collector.RecordStore(success)

	status := "admitted"
	if !success {
		status = "rejected"
	}
	StoreRequests.WithLabelValues(status).Inc()
}

// RecordRPCFailure satisfies node.Metrics.
func (p *PrometheusCollector) RecordRPCFailure(peerID string) {
	p.Collector.RecordRPCFailure(peerID)
	RPCFailuresTotal.Inc()
}

// SetRoutingTableSize updates the routing-table occupancy gauges. Not
// part of node.Metrics, and neither node nor health calls it: the gauges
// change only when a caller pushes a reading (Node.RoutingTableSize
// supplies one).
func (p *PrometheusCollector) SetRoutingTableSize(contacts, buckets int) {
	RoutingTableSize.Set(float64(contacts))
	RoutingTableBuckets.Set(float64(buckets))
}
