package dhtid

import (
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromHexRoundTrip(t *testing.T) {
	hexStr := strings.Repeat("ab", byteLen)
	id, err := FromHex(hexStr)
	require.NoError(t, err)
	assert.Equal(t, hexStr, id.Hex())
}

func TestFromHexWrongLength(t *testing.T) {
	_, err := FromHex("abcd")
	assert.Error(t, err)
}

func TestDistanceSymmetric(t *testing.T) {
	a := MustFromHex(strings.Repeat("00", byteLen))
	b := MustFromHex(strings.Repeat("ff", byteLen))

	d1 := Distance(a, b)
	d2 := Distance(b, a)
	assert.Equal(t, 0, d1.Cmp(d2))
}

func TestDistanceZeroForEqual(t *testing.T) {
	a := MustFromHex(strings.Repeat("42", byteLen))
	assert.Equal(t, 0, Distance(a, a).Sign())
}

func TestLessOrdersByDistance(t *testing.T) {
	target := FromBigInt(big.NewInt(1 << 30))
	near := FromBigInt(new(big.Int).Add(target.Int(), big.NewInt(1)))
	far := FromBigInt(new(big.Int).Add(target.Int(), big.NewInt(1<<20)))

	assert.True(t, Less(target, near, far))
	assert.False(t, Less(target, far, near))
}

func TestRandomInRangeBounds(t *testing.T) {
	min := big.NewInt(100)
	max := big.NewInt(200)

	for i := 0; i < 50; i++ {
		id, err := RandomInRange(min, max)
		require.NoError(t, err)
		v := id.Int()
		assert.True(t, v.Cmp(min) >= 0)
		assert.True(t, v.Cmp(max) < 0)
	}
}

func TestMaxIs2Pow512(t *testing.T) {
	max := Max()
	assert.Equal(t, Size+1, max.BitLen())
}
