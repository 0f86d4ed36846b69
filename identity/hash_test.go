package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalHashStableUnderKeyOrder(t *testing.T) {
	a := map[string]interface{}{"name": "alice", "age": 30.0, "ok": true}
	b := map[string]interface{}{"ok": true, "age": 30.0, "name": "alice"}

	assert.Equal(t, CanonicalHashHex(a), CanonicalHashHex(b))
}

func TestCanonicalHashDiffersOnValueChange(t *testing.T) {
	a := map[string]interface{}{"name": "alice"}
	b := map[string]interface{}{"name": "bob"}

	assert.NotEqual(t, CanonicalHashHex(a), CanonicalHashHex(b))
}

func TestCanonicalHashHandlesNilBoolNestedList(t *testing.T) {
	v := map[string]interface{}{
		"missing": nil,
		"flag":    false,
		"items":   []interface{}{"a", 1.0, nil},
	}
	h := CanonicalHashHex(v)
	assert.Len(t, h, 128) // hex-encoded SHA-512
}
