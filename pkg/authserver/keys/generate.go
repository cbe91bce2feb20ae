// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package keys

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"fmt"

	"github.com/go-jose/go-jose/v4"
)

// DefaultSigningAlgorithm is the algorithm of generated signing keys.
const DefaultSigningAlgorithm = "ES256"

// DefaultEncryptionAlgorithm is the key management algorithm of generated encryption keys.
const DefaultEncryptionAlgorithm = "RSA-OAEP-256"

const generatedRSABits = 2048

// GenerateSigningKey creates an ephemeral signing key for algorithm.
// If algorithm is empty, DefaultSigningAlgorithm is used.
func GenerateSigningKey(algorithm string) (*Key, error) {
	if algorithm == "" {
		algorithm = DefaultSigningAlgorithm
	}

	var material any
	var err error
	switch jose.SignatureAlgorithm(algorithm) {
	case jose.ES256:
		material, err = ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	case jose.ES384:
		material, err = ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	case jose.ES512:
		material, err = ecdsa.GenerateKey(elliptic.P521(), rand.Reader)
	case jose.RS256, jose.RS384, jose.RS512, jose.PS256, jose.PS384, jose.PS512:
		material, err = rsa.GenerateKey(rand.Reader, generatedRSABits)
	case jose.HS256, jose.HS384, jose.HS512:
		material, err = randomSecret(hmacSecretSize(algorithm))
	default:
		return nil, fmt.Errorf("unsupported algorithm for key generation: %s", algorithm)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	return NewKey(material, "", algorithm, UseSig)
}

// GenerateEncryptionKey creates an ephemeral RSA-OAEP-256 encryption key.
func GenerateEncryptionKey() (*Key, error) {
	material, err := rsa.GenerateKey(rand.Reader, generatedRSABits)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	return NewKey(material, "", DefaultEncryptionAlgorithm, UseEnc)
}

func hmacSecretSize(algorithm string) int {
	switch jose.SignatureAlgorithm(algorithm) {
	case jose.HS384:
		return 48
	case jose.HS512:
		return 64
	default:
		return 32
	}
}

func randomSecret(size int) ([]byte, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}
