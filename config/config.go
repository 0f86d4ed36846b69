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

// Package config loads and validates the settings a node needs at
// startup: its identity and transport, its data store backend, the
// timers that drive its background loops, and the ambient logging,
// metrics and health surfaces.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/meshkv/dht/kbucket"
	"github.com/meshkv/dht/node"
	"github.com/meshkv/dht/routing"
)

// Config is the root configuration structure, loaded from a single YAML
// (or, failing that, JSON) file plus environment overrides.
type Config struct {
	Environment string        `yaml:"environment" json:"environment"`
	Node        NodeConfig    `yaml:"node" json:"node"`
	Store       StoreConfig   `yaml:"store" json:"store"`
	Logging     LoggingConfig `yaml:"logging" json:"logging"`
	Metrics     MetricsConfig `yaml:"metrics" json:"metrics"`
	Health      HealthConfig  `yaml:"health" json:"health"`
}

// NodeConfig configures the local participant: where it listens, where
// its identity and bootstrap contacts live, and its Kademlia timers.
// Its URI, timer and duplication fields mirror node.Config and are copied
// by ToNodeConfig; IdentityKeyPath and BootstrapFile have no node.Config
// counterpart and are not carried over.
type NodeConfig struct {
	// URI is this node's own dial-back address.
	URI string `yaml:"uri" json:"uri"`

	// IdentityKeyPath is the PEM file holding this node's RSA private
	// key. If it doesn't exist at startup, a fresh key pair is
	// generated and written there.
	IdentityKeyPath string `yaml:"identity_key_path" json:"identity_key_path"`

	// BootstrapFile points at a JSON-encoded node.Dump used to seed the
	// routing table on first Join. Optional: a node with an empty
	// bootstrap file can still be joined onto later by another peer.
	BootstrapFile string `yaml:"bootstrap_file" json:"bootstrap_file"`

	RPCTimeout        time.Duration `yaml:"rpc_timeout" json:"rpc_timeout"`
	LookupTimeout     time.Duration `yaml:"lookup_timeout" json:"lookup_timeout"`
	RefreshInterval   time.Duration `yaml:"refresh_interval" json:"refresh_interval"`
	ReplicateInterval time.Duration `yaml:"replicate_interval" json:"replicate_interval"`
	DuplicationCount  int           `yaml:"duplication_count" json:"duplication_count"`
}

// ToNodeConfig converts to the shape node.New expects.
func (n NodeConfig) ToNodeConfig() node.Config {
	return node.Config{
		URI:               n.URI,
		RPCTimeout:        n.RPCTimeout,
		LookupTimeout:     n.LookupTimeout,
		RefreshInterval:   n.RefreshInterval,
		ReplicateInterval: n.ReplicateInterval,
		DuplicationCount:  n.DuplicationCount,
	}
}

// StoreConfig selects and configures the data store backend.
type StoreConfig struct {
	// Backend is "memory" (the default) or "postgres".
	Backend  string         `yaml:"backend" json:"backend"`
	Postgres PostgresConfig `yaml:"postgres" json:"postgres"`
}

// PostgresConfig holds PostgreSQL connection parameters, used only when
// Store.Backend is "postgres".
type PostgresConfig struct {
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port"`
	User     string `yaml:"user" json:"user"`
	Password string `yaml:"password" json:"password"`
	Database string `yaml:"database" json:"database"`
	SSLMode  string `yaml:"ssl_mode" json:"ssl_mode"`
}

// LoggingConfig configures internal/logger's default logger.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`   // debug, info, warn, error
	Format string `yaml:"format" json:"format"` // json, text
	Output string `yaml:"output" json:"output"` // stdout, stderr, file path
}

// MetricsConfig controls the optional Prometheus /metrics endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Port    int    `yaml:"port" json:"port"`
	Path    string `yaml:"path" json:"path"`
}

// HealthConfig controls the /healthz endpoint.
type HealthConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Port    int    `yaml:"port" json:"port"`
	Path    string `yaml:"path" json:"path"`
}

// LoadFromFile reads and parses a config file, trying YAML first and
// falling back to JSON, then fills in any zero-valued fields with
// DefaultConfig's values.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s (tried YAML and JSON): %w", path, err)
		}
	}

	setDefaults(cfg)
	return cfg, nil
}

// SaveToFile marshals cfg and writes it to path, choosing JSON or YAML
// by the file extension.
func SaveToFile(cfg *Config, path string) error {
	var (
		data []byte
		err  error
	)
	if strings.HasSuffix(path, ".json") {
		data, err = json.MarshalIndent(cfg, "", "  ")
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

// DefaultConfig returns a Config carrying the reference Kademlia
// constants and sensible ambient-stack defaults.
func DefaultConfig() Config {
	return Config{
		Environment: "development",
		Node: NodeConfig{
			RPCTimeout:        5 * time.Second,
			LookupTimeout:     600 * time.Second,
			RefreshInterval:   600 * time.Second,
			ReplicateInterval: routing.RefreshTimeout,
			DuplicationCount:  kbucket.K,
		},
		Store: StoreConfig{
			Backend: "memory",
			Postgres: PostgresConfig{
				Port:    5432,
				SSLMode: "disable",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
			Path:    "/metrics",
		},
		Health: HealthConfig{
			Enabled: true,
			Port:    8081,
			Path:    "/healthz",
		},
	}
}

// setDefaults fills zero-valued fields of cfg from DefaultConfig.
func setDefaults(cfg *Config) {
	d := DefaultConfig()

	if cfg.Environment == "" {
		cfg.Environment = d.Environment
	}
	if cfg.Node.RPCTimeout == 0 {
		cfg.Node.RPCTimeout = d.Node.RPCTimeout
	}
	if cfg.Node.LookupTimeout == 0 {
		cfg.Node.LookupTimeout = d.Node.LookupTimeout
	}
	if cfg.Node.RefreshInterval == 0 {
		cfg.Node.RefreshInterval = d.Node.RefreshInterval
	}
	if cfg.Node.ReplicateInterval == 0 {
		cfg.Node.ReplicateInterval = d.Node.ReplicateInterval
	}
	if cfg.Node.DuplicationCount == 0 {
		cfg.Node.DuplicationCount = d.Node.DuplicationCount
	}
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = d.Store.Backend
	}
	if cfg.Store.Backend == "postgres" && cfg.Store.Postgres.Port == 0 {
		cfg.Store.Postgres.Port = d.Store.Postgres.Port
	}
	if cfg.Store.Postgres.SSLMode == "" {
		cfg.Store.Postgres.SSLMode = d.Store.Postgres.SSLMode
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = d.Logging.Level
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = d.Logging.Format
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = d.Logging.Output
	}
	if cfg.Metrics.Port == 0 {
		cfg.Metrics.Port = d.Metrics.Port
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = d.Metrics.Path
	}
	if cfg.Health.Port == 0 {
		cfg.Health.Port = d.Health.Port
	}
	if cfg.Health.Path == "" {
		cfg.Health.Path = d.Health.Path
	}
}

var validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
var validStoreBackends = map[string]bool{"memory": true, "postgres": true}

// Validate rejects a config whose values couldn't possibly produce a
// working node, without touching the filesystem or network.
func Validate(cfg *Config) error {
	if !validStoreBackends[cfg.Store.Backend] {
		return fmt.Errorf("config: invalid store backend %q", cfg.Store.Backend)
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("config: invalid log level %q", cfg.Logging.Level)
	}
	if cfg.Node.DuplicationCount < 0 {
		return fmt.Errorf("config: duplication_count cannot be negative")
	}
	if cfg.Store.Backend == "postgres" && cfg.Store.Postgres.Database == "" {
		return fmt.Errorf("config: store.postgres.database is required when backend is postgres")
	}
	return nil
}
