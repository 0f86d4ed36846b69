package message

import (
	"testing"

	"github.com/meshkv/dht/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSealedPing(t *testing.T, kp identity.KeyPair, sender string) Ping {
	t.Helper()
	p := Ping{H: Header{
		UUID:      "11111111-1111-1111-1111-111111111111",
		Recipient: sender,
		Sender:    sender,
		ReplyPort: 1908,
		Version:   "1.0",
	}}
	seal, err := Seal(p, kp)
	require.NoError(t, err)
	p.H.Seal = seal
	return p
}

func TestSealRoundTripThroughCodec(t *testing.T) {
	kp, err := identity.GenerateRSAKeyPair()
	require.NoError(t, err)
	pub, err := kp.PublicKeyPEM()
	require.NoError(t, err)

	p := newSealedPing(t, kp, pub)

	data, err := Marshal(p)
	require.NoError(t, err)

	raw, err := Unmarshal(data)
	require.NoError(t, err)
	assert.True(t, CheckSeal(raw))

	decoded, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, KindPing, decoded.Kind())
	assert.Equal(t, p.H.UUID, decoded.Header().UUID)
}

func TestDecodeRejectsUnknownKind(t *testing.T) {
	raw := map[string]interface{}{
		"uuid": "x", "recipient": "x", "sender": "x", "version": "1.0",
		"seal": "x", "message": "bogus", "reply_port": float64(0),
	}
	_, err := Decode(raw)
	assert.Error(t, err)
}

func TestStoreToMapAndItemRoundTrip(t *testing.T) {
	kp, err := identity.GenerateRSAKeyPair()
	require.NoError(t, err)
	pub, err := kp.PublicKeyPEM()
	require.NoError(t, err)

	item, err := identity.SignItem("greeting", "hello", kp, 0)
	require.NoError(t, err)

	s := Store{
		H:           Header{UUID: "u", Recipient: pub, Sender: pub, ReplyPort: 1908, Version: "1.0"},
		Key:         item["key"].(string),
		Value:       item["value"],
		Timestamp:   item["timestamp"].(float64),
		Expires:     item["expires"].(float64),
		CreatedWith: item["created_with"].(string),
		PublicKey:   item["public_key"].(string),
		Name:        "greeting",
		Signature:   item["signature"].(string),
	}

	assert.True(t, identity.VerifyItem(s.Item()))

	m := s.ToMap()
	assert.Equal(t, "store", m["message"])
	assert.Equal(t, s.Key, m["key"])
}

func TestNodesRoundTrip(t *testing.T) {
	n := Nodes{
		H: Header{UUID: "u", Recipient: "r", Sender: "s", ReplyPort: 1908, Version: "1.0", Seal: "x"},
		Nodes: []NodeTuple{
			{PublicKey: "pub1", Version: "1.0", URI: "ws://127.0.0.1:1908"},
		},
	}
	data, err := Marshal(n)
	require.NoError(t, err)

	raw, err := Unmarshal(data)
	require.NoError(t, err)

	decoded, err := Decode(raw)
	require.NoError(t, err)
	nodesMsg, ok := decoded.(Nodes)
	require.True(t, ok)
	require.Len(t, nodesMsg.Nodes, 1)
	assert.Equal(t, "pub1", nodesMsg.Nodes[0].PublicKey)
	assert.True(t, ValidateNodeTuple(nodesMsg.Nodes[0]))
}
