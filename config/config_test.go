package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, Validate(&cfg))
	assert.Equal(t, "memory", cfg.Store.Backend)
	assert.Equal(t, 5*time.Second, cfg.Node.RPCTimeout)
}

func TestSetDefaultsFillsZeroFields(t *testing.T) {
	cfg := &Config{}
	setDefaults(cfg)

	d := DefaultConfig()
	assert.Equal(t, d.Node.RPCTimeout, cfg.Node.RPCTimeout)
	assert.Equal(t, d.Store.Backend, cfg.Store.Backend)
	assert.Equal(t, d.Logging.Level, cfg.Logging.Level)
}

func TestSaveAndLoadFromFileRoundTripYAML(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Node.URI = "ws://127.0.0.1:9000"
	cfg.Store.Backend = "postgres"
	cfg.Store.Postgres.Database = "dht"

	path := filepath.Join(t.TempDir(), "node.yaml")
	require.NoError(t, SaveToFile(&cfg, path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Node.URI, loaded.Node.URI)
	assert.Equal(t, "postgres", loaded.Store.Backend)
	assert.Equal(t, "dht", loaded.Store.Postgres.Database)
}

func TestSaveAndLoadFromFileRoundTripJSON(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Node.URI = "ws://127.0.0.1:9001"

	path := filepath.Join(t.TempDir(), "node.json")
	require.NoError(t, SaveToFile(&cfg, path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Node.URI, loaded.Node.URI)
}

func TestLoadFromFileMissingFile(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidateRejectsBadBackend(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Store.Backend = "sqlite"
	assert.Error(t, Validate(&cfg))
}

func TestValidateRejectsBadLogLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging.Level = "verbose"
	assert.Error(t, Validate(&cfg))
}

func TestValidateRejectsNegativeDuplicationCount(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Node.DuplicationCount = -1
	assert.Error(t, Validate(&cfg))
}

func TestValidateRequiresDatabaseForPostgresBackend(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Store.Backend = "postgres"
	assert.Error(t, Validate(&cfg))

	cfg.Store.Postgres.Database = "dht"
	assert.NoError(t, Validate(&cfg))
}

func TestNodeConfigToNodeConfig(t *testing.T) {
	nc := NodeConfig{
		URI:               "ws://127.0.0.1:9000",
		RPCTimeout:        time.Second,
		LookupTimeout:     2 * time.Second,
		RefreshInterval:   3 * time.Second,
		ReplicateInterval: 4 * time.Second,
		DuplicationCount:  7,
	}
	got := nc.ToNodeConfig()
	assert.Equal(t, nc.URI, got.URI)
	assert.Equal(t, nc.RPCTimeout, got.RPCTimeout)
	assert.Equal(t, nc.LookupTimeout, got.LookupTimeout)
	assert.Equal(t, nc.RefreshInterval, got.RefreshInterval)
	assert.Equal(t, nc.ReplicateInterval, got.ReplicateInterval)
	assert.Equal(t, nc.DuplicationCount, got.DuplicationCount)
}

func TestSubstituteEnvVarsWithDefault(t *testing.T) {
	os.Unsetenv("DHT_TEST_VAR")
	assert.Equal(t, "fallback", SubstituteEnvVars("${DHT_TEST_VAR:fallback}"))

	t.Setenv("DHT_TEST_VAR", "actual")
	assert.Equal(t, "actual", SubstituteEnvVars("${DHT_TEST_VAR:fallback}"))
}

func TestSubstituteEnvVarsInConfig(t *testing.T) {
	t.Setenv("DHT_TEST_HOST", "db.internal")

	cfg := DefaultConfig()
	cfg.Store.Postgres.Host = "${DHT_TEST_HOST:localhost}"
	SubstituteEnvVarsInConfig(&cfg)
	assert.Equal(t, "db.internal", cfg.Store.Postgres.Host)
}

func TestGetEnvironmentHelpers(t *testing.T) {
	t.Setenv("DHT_ENV", "production")
	assert.Equal(t, "production", GetEnvironment())
	assert.True(t, IsProduction())
	assert.False(t, IsDevelopment())
}

func TestConfigLoaderLoadAppliesOverrides(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Node.URI = "ws://file-uri:9000"

	path := filepath.Join(t.TempDir(), "node.yaml")
	require.NoError(t, SaveToFile(&cfg, path))

	t.Setenv("DHT_NODE_URI", "ws://env-uri:9000")

	loader := NewConfigLoader()
	loaded, err := loader.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "ws://env-uri:9000", loaded.Node.URI)
	assert.Same(t, loaded, loader.GetConfig())
}

func TestConfigLoaderLoadFromEnv(t *testing.T) {
	t.Setenv("DHT_STORE_BACKEND", "postgres")
	t.Setenv("DHT_POSTGRES_DATABASE", "dht")

	loader := NewConfigLoader()
	cfg, err := loader.LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Store.Backend)
	assert.Equal(t, "dht", cfg.Store.Postgres.Database)
}

func TestConfigLoaderGetConfigBeforeLoad(t *testing.T) {
	loader := NewConfigLoader()
	assert.Nil(t, loader.GetConfig())
}

func TestLoadFallsBackToDefaultsWhenNoFileExists(t *testing.T) {
	cfg, err := Load(LoaderOptions{ConfigDir: filepath.Join(t.TempDir(), "does-not-exist")})
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Store.Backend)
}

func TestLoadForEnvironmentPicksEnvironmentFile(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Node.URI = "ws://staging:9000"
	require.NoError(t, SaveToFile(&cfg, filepath.Join(dir, "staging.yaml")))

	loaded, err := Load(LoaderOptions{ConfigDir: dir, Environment: "staging"})
	require.NoError(t, err)
	assert.Equal(t, "ws://staging:9000", loaded.Node.URI)
}

func TestMustLoadPanicsOnInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Store.Backend = "postgres"
	require.NoError(t, SaveToFile(&cfg, filepath.Join(dir, "default.yaml")))

	assert.Panics(t, func() {
		MustLoad(LoaderOptions{ConfigDir: dir})
	})
}
