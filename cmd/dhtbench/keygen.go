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

	"github.com/spf13/cobra"

	"github.com/meshkv/dht/identity"
)

var (
	keygenOutput string
	keygenForce  bool
)

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a node identity key pair",
	Long: `Generate an RSA key pair and write it as a PEM file, for use as a
node's identity key (config.node.identity_key_path, or the
DHT_IDENTITY_KEY_PATH environment variable).`,
	Example: `  dhtbench keygen --output node.pem`,
	RunE:    runKeygen,
}

func init() {
	rootCmd.AddCommand(keygenCmd)

	keygenCmd.Flags().StringVarP(&keygenOutput, "output", "o", "node.pem", "output path for the PEM-encoded private key")
	keygenCmd.Flags().BoolVarP(&keygenForce, "force", "f", false, "overwrite an existing key file")
}

func runKeygen(cmd *cobra.Command, args []string) error {
	if !keygenForce {
		if _, err := identity.LoadKeyFile(keygenOutput); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", keygenOutput)
		}
	}

	kp, err := identity.GenerateRSAKeyPair()
	if err != nil {
		return fmt.Errorf("failed to generate key pair: %w", err)
	}
	if err := identity.SaveKeyFile(keygenOutput, kp); err != nil {
		return fmt.Errorf("failed to save key pair: %w", err)
	}

	id, err := kp.NetworkID()
	if err != nil {
		return fmt.Errorf("failed to derive network id: %w", err)
	}

	fmt.Printf("Key pair written to %s\n", keygenOutput)
	fmt.Printf("  Network ID: %s\n", id)
	return nil
}
