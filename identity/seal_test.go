package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealAndCheckSeal(t *testing.T) {
	kp, err := GenerateRSAKeyPair()
	require.NoError(t, err)
	pubPEM, err := kp.PublicKeyPEM()
	require.NoError(t, err)

	envelope := map[string]interface{}{
		"uuid":    "abc-123",
		"sender":  pubPEM,
		"message": "ping",
		"version": Version,
	}

	seal, err := Seal(envelope, kp)
	require.NoError(t, err)
	envelope["seal"] = seal

	assert.True(t, CheckSeal(envelope))
}

func TestCheckSealRejectsTamperedEnvelope(t *testing.T) {
	kp, err := GenerateRSAKeyPair()
	require.NoError(t, err)
	pubPEM, err := kp.PublicKeyPEM()
	require.NoError(t, err)

	envelope := map[string]interface{}{
		"uuid":    "abc-123",
		"sender":  pubPEM,
		"message": "ping",
	}
	seal, err := Seal(envelope, kp)
	require.NoError(t, err)
	envelope["seal"] = seal

	envelope["uuid"] = "tampered"
	assert.False(t, CheckSeal(envelope))
}

func TestCheckSealRejectsMissingFields(t *testing.T) {
	assert.False(t, CheckSeal(map[string]interface{}{}))
	assert.False(t, CheckSeal(map[string]interface{}{"seal": "deadbeef"}))
}
