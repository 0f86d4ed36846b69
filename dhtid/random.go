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

package dhtid

import (
	"crypto/rand"
	"math/big"
)

// RandomInRange returns a uniformly random identifier in [min, max).
// Used by the routing table to pick refresh targets within a bucket's
// range.
func RandomInRange(min, max *big.Int) (ID, error) {
	span := new(big.Int).Sub(max, min)
	if span.Sign() <= 0 {
		return FromBigInt(min), nil
	}
	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		return ID{}, err
	}
	return FromBigInt(new(big.Int).Add(min, n)), nil
}
