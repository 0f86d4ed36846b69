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

import (
	"encoding/json"
	"fmt"
)

// Decode parses a wire-format envelope (already JSON-unmarshalled into a
// map[string]interface{}, e.g. by a transport) into a concrete Message.
// It returns an error for a structurally invalid envelope or an unknown
// "message" kind; it does not check the seal or any item signature, that
// is the caller's job via CheckSeal/identity.VerifyItem.
func Decode(raw map[string]interface{}) (Message, error) {
	if err := ValidateEnvelope(raw); err != nil {
		return nil, err
	}
	h := Header{
		UUID:      raw["uuid"].(string),
		Recipient: raw["recipient"].(string),
		Sender:    raw["sender"].(string),
		ReplyPort: int(raw["reply_port"].(float64)),
		Version:   raw["version"].(string),
		Seal:      raw["seal"].(string),
	}
	kind := Kind(raw["message"].(string))

	switch kind {
	case KindPing:
		return Ping{H: h}, nil
	case KindPong:
		return Pong{H: h}, nil
	case KindOK:
		return OK{H: h}, nil
	case KindFindNode:
		key, ok := raw["key"].(string)
		if !ok {
			return nil, fmt.Errorf("message: findnode missing key")
		}
		return FindNode{H: h, Key: key}, nil
	case KindFindValue:
		key, ok := raw["key"].(string)
		if !ok {
			return nil, fmt.Errorf("message: findvalue missing key")
		}
		return FindValue{H: h, Key: key}, nil
	case KindStore:
		return decodeStore(h, raw)
	case KindValue:
		return decodeValue(h, raw)
	case KindNodes:
		return decodeNodes(h, raw)
	default:
		return nil, fmt.Errorf("message: unknown message kind %q", kind)
	}
}

func decodeStore(h Header, raw map[string]interface{}) (Store, error) {
	s := Store{H: h}
	var ok bool
	if s.Key, ok = raw["key"].(string); !ok {
		return Store{}, fmt.Errorf("message: store missing key")
	}
	s.Value = raw["value"]
	s.Timestamp, _ = raw["timestamp"].(float64)
	s.Expires, _ = raw["expires"].(float64)
	s.CreatedWith, _ = raw["created_with"].(string)
	s.PublicKey, _ = raw["public_key"].(string)
	s.Name, _ = raw["name"].(string)
	s.Signature, _ = raw["signature"].(string)
	return s, nil
}

func decodeValue(h Header, raw map[string]interface{}) (Value, error) {
	v := Value{H: h}
	var ok bool
	if v.Key, ok = raw["key"].(string); !ok {
		return Value{}, fmt.Errorf("message: value missing key")
	}
	v.Value = raw["value"]
	v.Timestamp, _ = raw["timestamp"].(float64)
	v.Expires, _ = raw["expires"].(float64)
	v.CreatedWith, _ = raw["created_with"].(string)
	v.PublicKey, _ = raw["public_key"].(string)
	v.Name, _ = raw["name"].(string)
	v.Signature, _ = raw["signature"].(string)
	return v, nil
}

func decodeNodes(h Header, raw map[string]interface{}) (Nodes, error) {
	rawNodes, ok := raw["nodes"].([]interface{})
	if !ok {
		return Nodes{}, fmt.Errorf("message: nodes missing nodes list")
	}
	tuples := make([]NodeTuple, 0, len(rawNodes))
	for _, rn := range rawNodes {
		tuple, ok := rn.([]interface{})
		if !ok || len(tuple) != 3 {
			return Nodes{}, fmt.Errorf("message: malformed node tuple")
		}
		pub, ok1 := tuple[0].(string)
		ver, ok2 := tuple[1].(string)
		uri, ok3 := tuple[2].(string)
		if !ok1 || !ok2 || !ok3 {
			return Nodes{}, fmt.Errorf("message: malformed node tuple")
		}
		tuples = append(tuples, NodeTuple{PublicKey: pub, Version: ver, URI: uri})
	}
	return Nodes{H: h, Nodes: tuples}, nil
}

// Marshal encodes a Message to its JSON wire form.
func Marshal(m Message) ([]byte, error) {
	return json.Marshal(m.ToMap())
}

// Unmarshal parses JSON wire bytes into a generic envelope map suitable
// for Decode and CheckSeal.
func Unmarshal(data []byte) (map[string]interface{}, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("message: invalid json: %w", err)
	}
	return raw, nil
}
