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

// Package identity provides RSA key pairs, the canonical content hash used
// to sign items and envelopes, and the signing/verification operations
// built on top of them.
package identity

import (
	"crypto"
	"errors"

	"github.com/meshkv/dht/dhtid"
)

// KeyType identifies the signing algorithm a KeyPair implements. The wire
// protocol normatively requires RSA, but the type itself stays pluggable.
type KeyType string

const (
	KeyTypeRSA KeyType = "RSA"
)

// KeyPair is a signing identity: a private/public RSA key plus the derived
// network id used as the node's or item owner's address in the keyspace.
type KeyPair interface {
	// PublicKey returns the public key.
	PublicKey() crypto.PublicKey

	// PrivateKey returns the private key.
	PrivateKey() crypto.PrivateKey

	// Type returns the key type.
	Type() KeyType

	// PublicKeyPEM returns the PEM-encoded PKCS#1 public key as it is
	// carried on the wire (the sender/public_key field of messages and
	// items).
	PublicKeyPEM() (string, error)

	// Sign signs message with SHA-512 and PKCS#1 v1.5, returning the
	// hex-encoded signature.
	Sign(message []byte) (string, error)

	// NetworkID returns the SHA-512 network id derived from the public
	// key (dhtid.ID of the PEM-encoded public key).
	NetworkID() (dhtid.ID, error)
}

// Common errors.
var (
	ErrKeyNotFound      = errors.New("identity: key not found")
	ErrInvalidKeyFormat = errors.New("identity: invalid key format")
	ErrKeyExists        = errors.New("identity: key already exists")
	ErrInvalidSignature = errors.New("identity: invalid signature")
)

// KeyStorage persists generated key pairs.
type KeyStorage interface {
	Store(id string, keyPair KeyPair) error
	Load(id string) (KeyPair, error)
	Delete(id string) error
	List() ([]string, error)
	Exists(id string) bool
}
