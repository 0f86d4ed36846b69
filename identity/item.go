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

import (
	"crypto/sha512"
	"time"

	"github.com/meshkv/dht/dhtid"
)

// Version is the protocol version stamped onto signed items. Kept separate
// from any build/release version so the wire format can evolve
// independently of the module's own versioning.
const Version = "1.0"

// Item is a signed key/value record as stored in and retrieved from the
// data store: the set of fields covered by CanonicalHash plus the
// signature itself.
type Item map[string]interface{}

// ConstructKey derives the dhtid.ID used as the DHT lookup key for a named
// value owned by the holder of publicKeyPEM. With an empty name it is just
// the identifier of the public key itself (used for the owner's own
// network id); with a non-empty name it is a compound hash of the public
// key's id and the name's id, so the same name published by two different
// keys lands at different places in the keyspace.
func ConstructKey(publicKeyPEM, name string) dhtid.ID {
	keyHash := sha512.Sum512([]byte(publicKeyPEM))
	if name == "" {
		return dhtid.ID(keyHash)
	}
	nameHash := sha512.Sum512([]byte(name))
	compound := append(append([]byte{}, keyHash[:]...), nameHash[:]...)
	return dhtid.ID(sha512.Sum512(compound))
}

// SignItem builds and signs a new item for (name, value) owned by kp.
// expiresIn is the lifetime from now; zero means the item never expires.
func SignItem(name string, value interface{}, kp KeyPair, expiresIn time.Duration) (Item, error) {
	pubPEM, err := kp.PublicKeyPEM()
	if err != nil {
		return nil, err
	}
	now := float64(time.Now().UnixNano()) / 1e9
	item := Item{
		"name":         name,
		"value":        value,
		"created_with": Version,
		"public_key":   pubPEM,
		"timestamp":    now,
		"key":          ConstructKey(pubPEM, name).Hex(),
		"expires":      0.0,
	}
	if expiresIn > 0 {
		item["expires"] = now + expiresIn.Seconds()
	}

	rootHash := CanonicalHashHex(map[string]interface{}(item))
	sig, err := kp.Sign([]byte(rootHash))
	if err != nil {
		return nil, err
	}
	item["signature"] = sig
	return item, nil
}

// VerifyItem reports whether an item's signature is valid for the
// public_key it carries. Fields that are never part of the signed root
// hash (envelope bookkeeping that may ride alongside an item, plus the
// signature field itself) are stripped before hashing.
func VerifyItem(raw Item) bool {
	item := make(Item, len(raw))
	for k, v := range raw {
		item[k] = v
	}

	ignored := []string{"uuid", "recipient", "sender", "reply_port", "version", "seal", "message"}
	for _, f := range ignored {
		delete(item, f)
	}

	sigHex, ok := item["signature"].(string)
	if !ok {
		return false
	}
	pubPEM, ok := item["public_key"].(string)
	if !ok {
		return false
	}
	delete(item, "signature")

	rootHash := CanonicalHashHex(map[string]interface{}(item))
	return VerifyWithPublicKeyPEM(pubPEM, []byte(rootHash), sigHex) == nil
}

// Expired reports whether the item's expires field (0 meaning "never") has
// passed as of now.
func (it Item) Expired(now time.Time) bool {
	expires, ok := it["expires"].(float64)
	if !ok || expires <= 0 {
		return false
	}
	return float64(now.UnixNano())/1e9 > expires
}

// Timestamp returns the item's signing timestamp as a time.Time.
func (it Item) Timestamp() time.Time {
	ts, _ := it["timestamp"].(float64)
	sec := int64(ts)
	nsec := int64((ts - float64(sec)) * 1e9)
	return time.Unix(sec, nsec).UTC()
}
