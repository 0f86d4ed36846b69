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
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha512"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"fmt"

	"github.com/meshkv/dht/dhtid"
)

// rsaKeyPair implements KeyPair for RSA-2048 keys signed with SHA-512
// (PKCS#1 v1.5), the algorithm normatively required by the wire protocol.
type rsaKeyPair struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
}

// GenerateRSAKeyPair generates a new 2048-bit RSA key pair.
func GenerateRSAKeyPair() (KeyPair, error) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, fmt.Errorf("identity: generate rsa key: %w", err)
	}
	return &rsaKeyPair{
		privateKey: privateKey,
		publicKey:  &privateKey.PublicKey,
	}, nil
}

// KeyPairFromPrivateKey wraps an already-loaded RSA private key.
func KeyPairFromPrivateKey(priv *rsa.PrivateKey) KeyPair {
	return &rsaKeyPair{privateKey: priv, publicKey: &priv.PublicKey}
}

func (kp *rsaKeyPair) PublicKey() crypto.PublicKey   { return kp.publicKey }
func (kp *rsaKeyPair) PrivateKey() crypto.PrivateKey { return kp.privateKey }
func (kp *rsaKeyPair) Type() KeyType                 { return KeyTypeRSA }

// PublicKeyPEM returns the PEM-encoded PKCS#1 public key, the exact string
// form carried in the sender/public_key fields on the wire.
func (kp *rsaKeyPair) PublicKeyPEM() (string, error) {
	return publicKeyToPEM(kp.publicKey)
}

// Sign signs message by hashing it with SHA-512 and signing the digest
// with PKCS#1 v1.5, returning the hex-encoded signature.
func (kp *rsaKeyPair) Sign(message []byte) (string, error) {
	digest := sha512.Sum512(message)
	sig, err := rsa.SignPKCS1v15(rand.Reader, kp.privateKey, crypto.SHA512, digest[:])
	if err != nil {
		return "", fmt.Errorf("identity: sign: %w", err)
	}
	return hex.EncodeToString(sig), nil
}

// NetworkID derives the dhtid.ID of this key pair: the SHA-512 hash of the
// PEM-encoded public key.
func (kp *rsaKeyPair) NetworkID() (dhtid.ID, error) {
	pemStr, err := kp.PublicKeyPEM()
	if err != nil {
		return dhtid.ID{}, err
	}
	return NetworkIDFromPublicKeyPEM(pemStr), nil
}

// NetworkIDFromPublicKeyPEM derives a network id from a PEM-encoded public
// key string without requiring the private key.
func NetworkIDFromPublicKeyPEM(pemStr string) dhtid.ID {
	sum := sha512.Sum512([]byte(pemStr))
	return dhtid.ID(sum)
}

// VerifyWithPublicKeyPEM verifies a hex-encoded SHA-512/PKCS#1v15 signature
// of message against the PEM-encoded public key.
func VerifyWithPublicKeyPEM(pemStr string, message []byte, sigHex string) error {
	pub, err := publicKeyFromPEM(pemStr)
	if err != nil {
		return err
	}
	sig, err := hex.DecodeString(sigHex)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	digest := sha512.Sum512(message)
	if err := rsa.VerifyPKCS1v15(pub, crypto.SHA512, digest[:], sig); err != nil {
		return ErrInvalidSignature
	}
	return nil
}

func publicKeyToPEM(pub *rsa.PublicKey) (string, error) {
	der := x509.MarshalPKCS1PublicKey(pub)
	block := &pem.Block{Type: "RSA PUBLIC KEY", Bytes: der}
	return string(pem.EncodeToMemory(block)), nil
}

func publicKeyFromPEM(pemStr string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(pemStr))
	if block == nil {
		return nil, fmt.Errorf("%w: not PEM encoded", ErrInvalidKeyFormat)
	}
	pub, err := x509.ParsePKCS1PublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeyFormat, err)
	}
	return pub, nil
}
