// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package keys

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-jose/go-jose/v4"
)

// LoadPrivateKey loads a private key from a PEM file.
// Supports RSA (PKCS1 and PKCS8) and ECDSA (SEC1 and PKCS8) formats.
func LoadPrivateKey(keyPath string) (crypto.Signer, error) {
	keyPEM, err := os.ReadFile(keyPath) // #nosec G304 - keyPath is provided by the operator via config
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}
	return ParsePrivateKeyPEM(keyPEM)
}

// ParsePrivateKeyPEM parses the first PEM block of keyPEM as a private key.
func ParsePrivateKeyPEM(keyPEM []byte) (crypto.Signer, error) {
	block, _ := pem.Decode(keyPEM)
	if block == nil {
		return nil, fmt.Errorf("failed to decode PEM block from key file")
	}

	// Try PKCS1 first (RSA only)
	if rsaKey, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return rsaKey, nil
	}

	// Try EC private key (SEC 1, ASN.1 DER form)
	if ecKey, err := x509.ParseECPrivateKey(block.Bytes); err == nil {
		return ecKey, nil
	}

	// Try PKCS8 (supports both RSA and EC)
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	switch k := key.(type) {
	case *rsa.PrivateKey:
		return k, nil
	case *ecdsa.PrivateKey:
		return k, nil
	default:
		return nil, fmt.Errorf("unsupported private key type: %T", key)
	}
}

// LoadKeyFile loads keys from path. Files ending in .json are read as a JWKS
// document; anything else is read as a single PEM private key which is
// assigned use and, if non-empty, algorithm.
func LoadKeyFile(path string, use Use, algorithm string) ([]*Key, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		data, err := os.ReadFile(path) // #nosec G304 - path is provided by the operator via config
		if err != nil {
			return nil, fmt.Errorf("failed to read JWKS file: %w", err)
		}
		set, err := ParseKeySet(data)
		if err != nil {
			return nil, err
		}
		return set.Keys(), nil
	}

	signer, err := LoadPrivateKey(path)
	if err != nil {
		return nil, err
	}
	if algorithm != "" && use != UseEnc {
		if err := ValidateAlgorithmForKey(algorithm, signer); err != nil {
			return nil, err
		}
	}
	k, err := NewKey(signer, "", algorithm, use)
	if err != nil {
		return nil, err
	}
	return []*Key{k}, nil
}

// deriveKeyID computes a key ID using the RFC 7638 JWK thumbprint,
// base64url encoded without padding.
func deriveKeyID(material any) (string, error) {
	if secret, ok := material.([]byte); ok {
		// Required members for oct keys are "k" and "kty", in lexical order.
		canonical := fmt.Sprintf(`{"k":"%s","kty":"oct"}`, base64.RawURLEncoding.EncodeToString(secret))
		sum := sha256.Sum256([]byte(canonical))
		return base64.RawURLEncoding.EncodeToString(sum[:]), nil
	}

	jwk := jose.JSONWebKey{Key: material}
	if pub := jwk.Public(); pub.Key != nil {
		jwk = pub
	}
	thumbprint, err := jwk.Thumbprint(crypto.SHA256)
	if err != nil {
		return "", fmt.Errorf("failed to compute key thumbprint: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(thumbprint), nil
}

// DeriveAlgorithm returns the default JWS algorithm for k: RS256 for RSA,
// ES256/384/512 by curve for EC and HS256 for symmetric keys.
func DeriveAlgorithm(k *Key) (string, error) {
	switch m := k.Material().(type) {
	case *rsa.PrivateKey, *rsa.PublicKey:
		return string(jose.RS256), nil
	case *ecdsa.PrivateKey:
		return deriveECAlgorithm(m.Curve)
	case *ecdsa.PublicKey:
		return deriveECAlgorithm(m.Curve)
	case []byte:
		return string(jose.HS256), nil
	default:
		return "", fmt.Errorf("unsupported key type: %T", m)
	}
}

// deriveECAlgorithm determines the ECDSA algorithm based on the curve.
func deriveECAlgorithm(curve elliptic.Curve) (string, error) {
	switch curve {
	case elliptic.P256():
		return string(jose.ES256), nil
	case elliptic.P384():
		return string(jose.ES384), nil
	case elliptic.P521():
		return string(jose.ES512), nil
	default:
		return "", fmt.Errorf("unsupported EC curve: %s", curve.Params().Name)
	}
}

// ValidateAlgorithmForKey checks that a JWS algorithm is compatible with the key type.
func ValidateAlgorithmForKey(alg string, key crypto.Signer) error {
	switch k := key.(type) {
	case *rsa.PrivateKey:
		switch jose.SignatureAlgorithm(alg) {
		case jose.RS256, jose.RS384, jose.RS512, jose.PS256, jose.PS384, jose.PS512:
			return nil
		default:
			return fmt.Errorf("algorithm %s is not compatible with RSA key", alg)
		}
	case *ecdsa.PrivateKey:
		expectedAlg, err := deriveECAlgorithm(k.Curve)
		if err != nil {
			return err
		}
		if alg != expectedAlg {
			return fmt.Errorf("algorithm %s is not compatible with EC key using curve %s (expected %s)",
				alg, k.Curve.Params().Name, expectedAlg)
		}
		return nil
	default:
		return fmt.Errorf("unsupported key type: %T", key)
	}
}
