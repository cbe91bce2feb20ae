// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package keys provides the key material model shared by the signing,
// encryption and client key cache services.
//
// A Key wraps a go-jose JSONWebKey and exposes its family, intended use and
// algorithm. A KeySet is an ordered collection of keys that are unique by ID.
// Keys without private material can validate and encrypt but can never sign
// or decrypt.
package keys

import (
	"crypto/ecdsa"
	"crypto/rsa"
	"fmt"

	"github.com/go-jose/go-jose/v4"
)

// Family identifies the cryptographic family of a key.
type Family string

const (
	// FamilyRSA is an RSA key pair.
	FamilyRSA Family = "RSA"
	// FamilyEC is an elliptic curve key pair.
	FamilyEC Family = "EC"
	// FamilyOct is a symmetric (octet sequence) key.
	FamilyOct Family = "oct"
)

// Use is the intended use of a key as published in the JWK "use" member.
type Use string

const (
	// UseAny means the key does not restrict its use.
	UseAny Use = ""
	// UseSig marks a signing key.
	UseSig Use = "sig"
	// UseEnc marks an encryption key.
	UseEnc Use = "enc"
)

// Key is a single cryptographic key.
type Key struct {
	jwk    jose.JSONWebKey
	family Family
}

// NewKey builds a Key from raw material. material must be one of
// *rsa.PrivateKey, *rsa.PublicKey, *ecdsa.PrivateKey, *ecdsa.PublicKey or
// []byte. If id is empty it is derived from the RFC 7638 thumbprint.
func NewKey(material any, id, algorithm string, use Use) (*Key, error) {
	return FromJWK(jose.JSONWebKey{
		Key:       material,
		KeyID:     id,
		Algorithm: algorithm,
		Use:       string(use),
	})
}

// FromJWK wraps a go-jose key. Unsupported key types are rejected.
func FromJWK(jwk jose.JSONWebKey) (*Key, error) {
	family, err := familyOf(jwk.Key)
	if err != nil {
		return nil, err
	}
	switch Use(jwk.Use) {
	case UseAny, UseSig, UseEnc:
	default:
		return nil, fmt.Errorf("unsupported key use %q", jwk.Use)
	}

	if jwk.KeyID == "" {
		id, err := deriveKeyID(jwk.Key)
		if err != nil {
			return nil, err
		}
		jwk.KeyID = id
	}

	return &Key{jwk: jwk, family: family}, nil
}

func familyOf(material any) (Family, error) {
	switch m := material.(type) {
	case *rsa.PrivateKey, *rsa.PublicKey:
		return FamilyRSA, nil
	case *ecdsa.PrivateKey, *ecdsa.PublicKey:
		return FamilyEC, nil
	case []byte:
		if len(m) == 0 {
			return "", fmt.Errorf("symmetric key is empty")
		}
		return FamilyOct, nil
	case nil:
		return "", fmt.Errorf("key material is missing")
	default:
		return "", fmt.Errorf("unsupported key type: %T", material)
	}
}

// ID returns the key identifier.
func (k *Key) ID() string { return k.jwk.KeyID }

// Family returns the key family.
func (k *Key) Family() Family { return k.family }

// Use returns the declared use, UseAny if none was declared.
func (k *Key) Use() Use { return Use(k.jwk.Use) }

// Algorithm returns the declared algorithm, or "" if the key does not pin one.
func (k *Key) Algorithm() string { return k.jwk.Algorithm }

// UsableFor reports whether the key may be used for u.
func (k *Key) UsableFor(u Use) bool {
	return k.Use() == UseAny || k.Use() == u
}

// HasPrivate reports whether the key carries private (or symmetric) material.
func (k *Key) HasPrivate() bool {
	switch k.jwk.Key.(type) {
	case *rsa.PrivateKey, *ecdsa.PrivateKey, []byte:
		return true
	default:
		return false
	}
}

// Material returns the raw key material.
func (k *Key) Material() any { return k.jwk.Key }

// PublicMaterial returns the public half of an asymmetric key, or nil for a
// symmetric key.
func (k *Key) PublicMaterial() any {
	switch m := k.jwk.Key.(type) {
	case *rsa.PrivateKey:
		return &m.PublicKey
	case *ecdsa.PrivateKey:
		return &m.PublicKey
	case *rsa.PublicKey, *ecdsa.PublicKey:
		return m
	default:
		return nil
	}
}

// JWK returns a copy of the underlying go-jose key.
func (k *Key) JWK() jose.JSONWebKey { return k.jwk }

// Public returns the projection of k with private material stripped.
// Symmetric keys have no public projection and yield nil.
func (k *Key) Public() *Key {
	if k.family == FamilyOct {
		return nil
	}
	if !k.HasPrivate() {
		return k
	}
	pub := k.jwk.Public()
	return &Key{jwk: pub, family: k.family}
}

// WithAlgorithm returns a copy of k pinned to algorithm.
func (k *Key) WithAlgorithm(algorithm string) *Key {
	jwk := k.jwk
	jwk.Algorithm = algorithm
	return &Key{jwk: jwk, family: k.family}
}
