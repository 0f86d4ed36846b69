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

package identity

// Seal computes the envelope seal: a signature over every envelope field
// except "seal" and "message", proving the envelope (as opposed to any
// item it carries) genuinely came from kp. The result is the hex-encoded
// signature to place in the envelope's "seal" field.
func Seal(envelope map[string]interface{}, kp KeyPair) (string, error) {
	rootHash := CanonicalHashHex(sealableFields(envelope))
	return kp.Sign([]byte(rootHash))
}

// CheckSeal verifies an envelope's seal field against the public key
// carried in its "sender" field. It returns false on any structural
// problem (missing seal, missing sender, bad signature) rather than an
// error, matching the fail-closed behavior of the original protocol.
func CheckSeal(envelope map[string]interface{}) bool {
	sealHex, ok := envelope["seal"].(string)
	if !ok {
		return false
	}
	sender, ok := envelope["sender"].(string)
	if !ok {
		return false
	}
	rootHash := CanonicalHashHex(sealableFields(envelope))
	return VerifyWithPublicKeyPEM(sender, []byte(rootHash), sealHex) == nil
}

// sealableFields returns a copy of envelope with the fields that are never
// part of the seal's signed root hash removed.
func sealableFields(envelope map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(envelope))
	for k, v := range envelope {
		if k == "seal" || k == "message" {
			continue
		}
		out[k] = v
	}
	return out
}
