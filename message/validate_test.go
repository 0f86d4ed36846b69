package message

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validEnvelope() map[string]interface{} {
	return map[string]interface{}{
		"uuid":       "u",
		"recipient":  "r",
		"sender":     "s",
		"version":    "1.0",
		"seal":       "deadbeef",
		"message":    "ping",
		"reply_port": float64(1908),
	}
}

func TestValidateEnvelopeAccepts(t *testing.T) {
	assert.NoError(t, ValidateEnvelope(validEnvelope()))
}

func TestValidateEnvelopeRejectsMissingField(t *testing.T) {
	env := validEnvelope()
	delete(env, "sender")
	assert.Error(t, ValidateEnvelope(env))
}

func TestValidateEnvelopeRejectsBadPort(t *testing.T) {
	env := validEnvelope()
	env["reply_port"] = float64(70000)
	assert.Error(t, ValidateEnvelope(env))
}

func TestValidateEnvelopeRejectsNonStringField(t *testing.T) {
	env := validEnvelope()
	env["sender"] = 42.0
	assert.Error(t, ValidateEnvelope(env))
}

func TestValidateNodeTuple(t *testing.T) {
	assert.True(t, ValidateNodeTuple(NodeTuple{PublicKey: "p", Version: "v", URI: "u"}))
	assert.False(t, ValidateNodeTuple(NodeTuple{PublicKey: "", Version: "v", URI: "u"}))
}
