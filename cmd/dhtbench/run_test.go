package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshkv/dht/config"
	"github.com/meshkv/dht/internal/logger"
	"github.com/meshkv/dht/message"
	"github.com/meshkv/dht/node"
	"github.com/meshkv/dht/store"
)

func TestListenAddrFromURIStripsScheme(t *testing.T) {
	assert.Equal(t, "127.0.0.1:7946", listenAddrFromURI("ws://127.0.0.1:7946"))
	assert.Equal(t, "127.0.0.1:7946", listenAddrFromURI("wss://127.0.0.1:7946"))
	assert.Equal(t, "127.0.0.1:7946", listenAddrFromURI("ws://127.0.0.1:7946/rpc"))
}

func TestBuildDataStoreMemory(t *testing.T) {
	ds, err := buildDataStore(context.Background(), config.StoreConfig{Backend: "memory"})
	require.NoError(t, err)
	_, ok := ds.(*store.MemoryStore)
	assert.True(t, ok)
}

func TestBuildDataStoreDefaultsToMemory(t *testing.T) {
	ds, err := buildDataStore(context.Background(), config.StoreConfig{})
	require.NoError(t, err)
	_, ok := ds.(*store.MemoryStore)
	assert.True(t, ok)
}

func TestBuildDataStoreUnknownBackend(t *testing.T) {
	_, err := buildDataStore(context.Background(), config.StoreConfig{Backend: "bogus"})
	assert.Error(t, err)
}

func TestBuildDataStorePostgresAttemptsConnection(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	// No server is listening on this port, so NewStore's eager Ping
	// fails; this exercises that config.PostgresConfig reaches
	// postgres.Config correctly, not that a database is reachable.
	_, err := buildDataStore(ctx, config.StoreConfig{
		Backend: "postgres",
		Postgres: config.PostgresConfig{
			Host: "127.0.0.1", Port: 1, User: "u", Password: "p", Database: "d", SSLMode: "disable",
		},
	})
	assert.Error(t, err)
}

func TestBuildLoggerLevels(t *testing.T) {
	l := buildLogger(config.LoggingConfig{Level: "debug"})
	assert.Equal(t, logger.DebugLevel, l.GetLevel())

	l = buildLogger(config.LoggingConfig{Level: "error"})
	assert.Equal(t, logger.ErrorLevel, l.GetLevel())

	l = buildLogger(config.LoggingConfig{})
	assert.Equal(t, logger.InfoLevel, l.GetLevel())
}

func TestLoadBootstrapMissingFileIsEmpty(t *testing.T) {
	dump, err := loadBootstrap(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	assert.Empty(t, dump.Contacts)
}

func TestLoadBootstrapEmptyPathIsEmpty(t *testing.T) {
	dump, err := loadBootstrap("")
	require.NoError(t, err)
	assert.Empty(t, dump.Contacts)
}

func TestLoadBootstrapParsesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bootstrap.json")
	want := node.Dump{
		Contacts: []message.NodeTuple{{PublicKey: "pem", Version: "v1", URI: "ws://peer:1"}},
	}
	data, err := json.Marshal(want)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0600))

	got, err := loadBootstrap(path)
	require.NoError(t, err)
	assert.Equal(t, want.Contacts, got.Contacts)
}
