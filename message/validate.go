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

package message

import "fmt"

// maxReplyPort is the highest port number accepted in a reply_port field.
const maxReplyPort = 49151

// ValidateEnvelope checks that every common envelope field is present and
// of the expected type, mirroring the field-by-field validator table in
// the original protocol (string fields, a bounded port, etc).
func ValidateEnvelope(raw map[string]interface{}) error {
	for _, field := range []string{"uuid", "recipient", "sender", "version", "seal", "message"} {
		v, ok := raw[field]
		if !ok {
			return fmt.Errorf("message: missing field %q", field)
		}
		if !validateString(v) {
			return fmt.Errorf("message: field %q must be a string", field)
		}
	}

	port, ok := raw["reply_port"]
	if !ok {
		return fmt.Errorf("message: missing field %q", "reply_port")
	}
	if !validatePort(port) {
		return fmt.Errorf("message: reply_port out of range")
	}
	return nil
}

func validateString(v interface{}) bool {
	_, ok := v.(string)
	return ok
}

// validatePort reports whether v is a JSON number in [0, 49151]. JSON
// numbers decode to float64, matching the original's int/range check.
func validatePort(v interface{}) bool {
	f, ok := v.(float64)
	if !ok {
		return false
	}
	if f != float64(int64(f)) {
		return false
	}
	return f >= 0 && f <= maxReplyPort
}

// validateTimestamp reports whether v is a non-negative POSIX timestamp.
func validateTimestamp(v interface{}) bool {
	f, ok := v.(float64)
	return ok && f >= 0.0
}

// ValidateNodeTuple reports whether a NodeTuple has all three fields
// populated (mirrors the original's validate_node: a 3-tuple of non-empty
// strings).
func ValidateNodeTuple(nt NodeTuple) bool {
	return nt.PublicKey != "" && nt.Version != "" && nt.URI != ""
}
