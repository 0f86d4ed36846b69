package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshkv/dht/identity"
)

func TestRunKeygenWritesLoadableKey(t *testing.T) {
	keygenOutput = filepath.Join(t.TempDir(), "node.pem")
	keygenForce = false

	require.NoError(t, runKeygen(keygenCmd, nil))

	kp, err := identity.LoadKeyFile(keygenOutput)
	require.NoError(t, err)
	_, err = kp.NetworkID()
	require.NoError(t, err)
}

func TestRunKeygenRefusesToOverwriteWithoutForce(t *testing.T) {
	keygenOutput = filepath.Join(t.TempDir(), "node.pem")
	keygenForce = false

	require.NoError(t, runKeygen(keygenCmd, nil))
	err := runKeygen(keygenCmd, nil)
	assert.Error(t, err)
}

func TestRunKeygenForceOverwrites(t *testing.T) {
	keygenOutput = filepath.Join(t.TempDir(), "node.pem")
	keygenForce = true

	require.NoError(t, runKeygen(keygenCmd, nil))
	require.NoError(t, runKeygen(keygenCmd, nil))
}
