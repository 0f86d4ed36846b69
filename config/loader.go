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

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/joho/godotenv"
)

// ConfigLoader loads, validates and caches a single Config, safe for
// concurrent use by whatever goroutine first asks for it.
type ConfigLoader struct {
	mu     sync.RWMutex
	config *Config
}

// NewConfigLoader creates an empty loader.
func NewConfigLoader() *ConfigLoader {
	return &ConfigLoader{}
}

// Load reads path, applies a local .env overlay (via godotenv, silently
// skipped if no .env file is present) and environment overrides on top,
// validates the result, and caches it.
func (l *ConfigLoader) Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := LoadFromFile(path)
	if err != nil {
		return nil, err
	}

	SubstituteEnvVarsInConfig(cfg)
	applyEnvironmentOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.config = cfg
	l.mu.Unlock()
	return cfg, nil
}

// LoadFromEnv builds a Config purely from DefaultConfig plus environment
// overrides, for deployments that configure entirely through the
// environment rather than a checked-in file.
func (l *ConfigLoader) LoadFromEnv() (*Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()
	cfg.Environment = GetEnvironment()
	applyEnvironmentOverrides(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.config = &cfg
	l.mu.Unlock()
	return &cfg, nil
}

// Validate re-exposes the package-level Validate as a method, so callers
// already holding a ConfigLoader don't need the free function too.
func (l *ConfigLoader) Validate(cfg *Config) error {
	return Validate(cfg)
}

// GetConfig returns the most recently loaded Config, or nil if Load/
// LoadFromEnv has not succeeded yet.
func (l *ConfigLoader) GetConfig() *Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.config
}

// LoaderOptions configures the free-function Load below.
type LoaderOptions struct {
	// ConfigDir is the directory to search for a config file (default:
	// "config").
	ConfigDir string
	// Environment overrides automatic environment detection.
	Environment string
	// SkipEnvSubstitution disables ${VAR}-style substitution.
	SkipEnvSubstitution bool
	// SkipValidation disables the post-load Validate call.
	SkipValidation bool
}

// DefaultLoaderOptions returns the default options Load uses when called
// with none.
func DefaultLoaderOptions() LoaderOptions {
	return LoaderOptions{ConfigDir: "config"}
}

// Load finds and loads a config file, trying ConfigDir/<environment>.yaml,
// then ConfigDir/default.yaml, then ConfigDir/config.yaml, falling back
// to DefaultConfig if none exist. Environment variables always take
// priority over whatever the file contained.
func Load(opts ...LoaderOptions) (*Config, error) {
	options := DefaultLoaderOptions()
	if len(opts) > 0 {
		options = opts[0]
	}

	_ = godotenv.Load()

	env := options.Environment
	if env == "" {
		env = GetEnvironment()
	}

	candidates := []string{
		filepath.Join(options.ConfigDir, env+".yaml"),
		filepath.Join(options.ConfigDir, "default.yaml"),
		filepath.Join(options.ConfigDir, "config.yaml"),
	}

	var cfg *Config
	for _, path := range candidates {
		c, err := loadConfigFile(path)
		if err == nil {
			cfg = c
			break
		}
	}
	if cfg == nil {
		defaults := DefaultConfig()
		cfg = &defaults
	}

	if cfg.Environment == "" {
		cfg.Environment = env
	}
	setDefaults(cfg)

	if !options.SkipEnvSubstitution {
		SubstituteEnvVarsInConfig(cfg)
	}
	applyEnvironmentOverrides(cfg)

	if !options.SkipValidation {
		if err := Validate(cfg); err != nil {
			return nil, fmt.Errorf("config: validation failed: %w", err)
		}
	}

	return cfg, nil
}

func loadConfigFile(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config: file not found: %s", path)
	}
	return LoadFromFile(path)
}

// applyEnvironmentOverrides layers DHT_*-prefixed environment variables
// on top of cfg, taking priority over both the file and any ${VAR}
// substitution already applied.
func applyEnvironmentOverrides(cfg *Config) {
	cfg.Node.URI = getEnvOrDefault("DHT_NODE_URI", cfg.Node.URI)
	cfg.Node.IdentityKeyPath = getEnvOrDefault("DHT_IDENTITY_KEY_PATH", cfg.Node.IdentityKeyPath)
	cfg.Node.BootstrapFile = getEnvOrDefault("DHT_BOOTSTRAP_FILE", cfg.Node.BootstrapFile)
	cfg.Node.RPCTimeout = getEnvDuration("DHT_RPC_TIMEOUT", cfg.Node.RPCTimeout)
	cfg.Node.LookupTimeout = getEnvDuration("DHT_LOOKUP_TIMEOUT", cfg.Node.LookupTimeout)
	cfg.Node.DuplicationCount = getEnvInt("DHT_DUPLICATION_COUNT", cfg.Node.DuplicationCount)

	cfg.Store.Backend = getEnvOrDefault("DHT_STORE_BACKEND", cfg.Store.Backend)
	cfg.Store.Postgres.Host = getEnvOrDefault("DHT_POSTGRES_HOST", cfg.Store.Postgres.Host)
	cfg.Store.Postgres.Port = getEnvInt("DHT_POSTGRES_PORT", cfg.Store.Postgres.Port)
	cfg.Store.Postgres.User = getEnvOrDefault("DHT_POSTGRES_USER", cfg.Store.Postgres.User)
	cfg.Store.Postgres.Password = getEnvOrDefault("DHT_POSTGRES_PASSWORD", cfg.Store.Postgres.Password)
	cfg.Store.Postgres.Database = getEnvOrDefault("DHT_POSTGRES_DATABASE", cfg.Store.Postgres.Database)

	cfg.Logging.Level = getEnvOrDefault("DHT_LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = getEnvOrDefault("DHT_LOG_FORMAT", cfg.Logging.Format)

	cfg.Metrics.Enabled = getEnvBool("DHT_METRICS_ENABLED", cfg.Metrics.Enabled)
	cfg.Metrics.Port = getEnvInt("DHT_METRICS_PORT", cfg.Metrics.Port)

	cfg.Health.Enabled = getEnvBool("DHT_HEALTH_ENABLED", cfg.Health.Enabled)
	cfg.Health.Port = getEnvInt("DHT_HEALTH_PORT", cfg.Health.Port)
}

// LoadForEnvironment loads configuration for a specific named environment.
func LoadForEnvironment(environment string) (*Config, error) {
	return Load(LoaderOptions{ConfigDir: "config", Environment: environment})
}

// MustLoad calls Load and panics on error; for use at process startup
// where there is no sensible way to continue without a config.
func MustLoad(opts ...LoaderOptions) *Config {
	cfg, err := Load(opts...)
	if err != nil {
		panic(fmt.Sprintf("config: failed to load: %v", err))
	}
	return cfg
}
