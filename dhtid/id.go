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

// Package dhtid provides the 512-bit identifier space shared by the
// routing table, bucket and lookup packages. Identifiers are the
// hexdigest of a SHA-512 hash; XOR distance between two identifiers
// determines closeness in the Kademlia sense.
package dhtid

import (
	"encoding/hex"
	"fmt"
	"math/big"
)

// Size is the width of the identifier space in bits.
const Size = 512

// byteLen is the width of the identifier space in bytes.
const byteLen = Size / 8

// hexLen is the width of the identifier's hex encoding.
const hexLen = byteLen * 2

// Max is the exclusive upper bound of the identifier space, 2^512.
func Max() *big.Int {
	max := new(big.Int).Lsh(big.NewInt(1), Size)
	return max
}

// ID is a 512-bit Kademlia identifier, stored as raw bytes (big-endian).
type ID [byteLen]byte

// Zero is the identifier at the bottom of the keyspace.
var Zero ID

// FromHex parses a 128-character lowercase hex string into an ID.
func FromHex(s string) (ID, error) {
	var id ID
	if len(s) != hexLen {
		return id, fmt.Errorf("dhtid: hex string must be %d characters, got %d", hexLen, len(s))
	}
	decoded, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("dhtid: invalid hex string: %w", err)
	}
	copy(id[:], decoded)
	return id, nil
}

// MustFromHex is like FromHex but panics on error; intended for tests
// and constant definitions.
func MustFromHex(s string) ID {
	id, err := FromHex(s)
	if err != nil {
		panic(err)
	}
	return id
}

// FromBigInt converts a big.Int in [0, 2^512) into an ID. Values outside
// the range are reduced modulo 2^512.
func FromBigInt(v *big.Int) ID {
	var id ID
	b := new(big.Int).Mod(v, Max()).Bytes()
	copy(id[byteLen-len(b):], b)
	return id
}

// Hex returns the lowercase hex representation of the identifier.
func (id ID) Hex() string {
	return hex.EncodeToString(id[:])
}

// String satisfies fmt.Stringer.
func (id ID) String() string {
	return id.Hex()
}

// Int returns the identifier as a big.Int for arithmetic.
func (id ID) Int() *big.Int {
	return new(big.Int).SetBytes(id[:])
}

// Distance returns the XOR distance between two identifiers as a big.Int.
// Smaller distances mean the identifiers are closer together.
func Distance(a, b ID) *big.Int {
	var x ID
	for i := range a {
		x[i] = a[i] ^ b[i]
	}
	return x.Int()
}

// Less reports whether a is closer to target than b is.
func Less(target, a, b ID) bool {
	return Distance(target, a).Cmp(Distance(target, b)) < 0
}

// IsZero reports whether the identifier is the all-zero value.
func (id ID) IsZero() bool {
	return id == Zero
}
