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
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/meshkv/dht/internal/version"
)

var rootCmd = &cobra.Command{
	Use:     "dhtbench",
	Short:   "dhtbench - operate and exercise a DHT node",
	Version: version.String(),
	Long: `dhtbench runs and load-tests a DHT node.

This tool supports:
- Running a single node against a config file or environment variables
- Generating and persisting a node identity key
- Benchmarking lookup, get and set throughput across an in-process network`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	// Disable default completion command
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	// Note: commands are registered in their respective files
	// - run.go: runCmd
	// - keygen.go: keygenCmd
	// - bench.go: benchCmd
}
