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

package main

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/spf13/cobra"

	"github.com/meshkv/dht/identity"
	"github.com/meshkv/dht/internal/metrics"
	"github.com/meshkv/dht/node"
	"github.com/meshkv/dht/peer"
	"github.com/meshkv/dht/store"
	"github.com/meshkv/dht/transport/loopback"
)

var (
	benchNodes   int
	benchOps     int
	benchTimeout time.Duration
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Benchmark lookup, set and get throughput on an in-process network",
	Long: `Bench spins up a network of nodes wired together over an in-process
loopback transport, bootstraps every node off the first, and then drives
a random Set/Get workload across the network, reporting lookup latency
and success rate.`,
	Example: `  dhtbench bench --nodes 20 --ops 500`,
	RunE:    runBench,
}

func init() {
	rootCmd.AddCommand(benchCmd)

	benchCmd.Flags().IntVar(&benchNodes, "nodes", 10, "number of in-process nodes to run")
	benchCmd.Flags().IntVar(&benchOps, "ops", 200, "number of set/get operation pairs to perform")
	benchCmd.Flags().DurationVar(&benchTimeout, "timeout", 10*time.Second, "per-operation timeout")
}

func runBench(cmd *cobra.Command, args []string) error {
	if benchNodes < 2 {
		return fmt.Errorf("--nodes must be at least 2")
	}

	collector := metrics.NewCollector()
	net := loopback.NewNetwork()
	nodes := make([]*node.Node, benchNodes)

	for i := 0; i < benchNodes; i++ {
		uri := fmt.Sprintf("loopback://bench-%d", i)
		kp, err := identity.GenerateRSAKeyPair()
		if err != nil {
			return fmt.Errorf("generate identity for node %d: %w", i, err)
		}

		cfg := node.DefaultConfig()
		cfg.URI = uri
		cfg.RPCTimeout = benchTimeout

		tr := loopback.NewTransport(net, uri)
		n, err := node.New(cfg, kp, tr, store.NewMemoryStore(), nil, collector)
		if err != nil {
			return fmt.Errorf("construct node %d: %w", i, err)
		}
		nodes[i] = n
	}

	ctx := context.Background()

	for _, n := range nodes {
		if err := n.Start(ctx); err != nil {
			return fmt.Errorf("start node: %w", err)
		}
		defer n.Stop()
	}

	fmt.Printf("Bootstrapping %d nodes...\n", benchNodes)
	if err := bootstrap(ctx, nodes); err != nil {
		return fmt.Errorf("bootstrap network: %w", err)
	}

	fmt.Printf("Running %d set/get operation pairs...\n", benchOps)
	if err := workload(ctx, nodes, benchOps); err != nil {
		return fmt.Errorf("workload: %w", err)
	}

	printReport(collector.GetSnapshot())
	return nil
}

// bootstrap seeds every node but the first with a direct contact to it,
// then has each run a self-lookup Join so the rest of the routing tables
// converge through ordinary FindNode traffic, mirroring how a real
// deployment's bootstrap file only needs to name one live peer.
func bootstrap(ctx context.Context, nodes []*node.Node) error {
	seed := nodes[0]
	seedPub, err := seed.KeyPair().PublicKeyPEM()
	if err != nil {
		return err
	}
	seedPeer, err := peer.New(seedPub, identity.Version, seed.URI())
	if err != nil {
		return err
	}

	for _, n := range nodes[1:] {
		n.SeedContact(seedPeer)
		if err := n.Join(ctx, node.Dump{}); err != nil {
			return fmt.Errorf("node %s join: %w", n.URI(), err)
		}
	}
	return nil
}

// workload runs count Set-then-Get round trips, each against a randomly
// chosen pair of nodes, so a Get typically has to traverse the network
// rather than hit its own local store.
func workload(ctx context.Context, nodes []*node.Node, count int) error {
	for i := 0; i < count; i++ {
		writer := nodes[rand.Intn(len(nodes))]
		reader := nodes[rand.Intn(len(nodes))]

		name := fmt.Sprintf("bench-key-%d", i)
		value := fmt.Sprintf("bench-value-%d", i)
		if err := writer.Set(ctx, name, value, time.Hour); err != nil {
			return fmt.Errorf("set %s: %w", name, err)
		}

		pub, err := writer.KeyPair().PublicKeyPEM()
		if err != nil {
			return err
		}
		if _, err := reader.Get(ctx, pub, name); err != nil {
			return fmt.Errorf("get %s: %w", name, err)
		}
	}
	return nil
}

func printReport(s *metrics.Snapshot) {
	fmt.Println()
	fmt.Println("=== Results ===")
	fmt.Printf("Lookups:        %d (%d success, %d failed)\n", s.LookupCount, s.LookupSuccesses, s.LookupFailures)
	fmt.Printf("Success rate:   %.1f%%\n", s.LookupSuccessRate())
	fmt.Printf("Store results:  %d success, %d rejected\n", s.StoreSuccesses, s.StoreRejections)
	fmt.Printf("RPC failures:   %d\n", s.RPCFailures)
	fmt.Printf("Avg lookup:     %s\n", time.Duration(s.AvgLookupTime)*time.Microsecond)
	fmt.Printf("P95 lookup:     %s\n", time.Duration(s.P95LookupTime)*time.Microsecond)
	fmt.Printf("Uptime:         %s\n", s.Uptime)
}
