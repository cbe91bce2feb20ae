// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package jws

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"fmt"

	"github.com/go-jose/go-jose/v4"

	"github.com/stacklok/trustengine/pkg/authserver/keys"
)

// strategy signs and verifies for one algorithm.
type strategy struct {
	family keys.Family
	// curve is set for ECDSA algorithms, which are bound to a single curve.
	curve elliptic.Curve
}

// strategies is the algorithm table. "none" is deliberately absent: unsigned
// tokens are only handled by Unsigned.
var strategies = map[jose.SignatureAlgorithm]strategy{
	jose.RS256: {family: keys.FamilyRSA},
	jose.RS384: {family: keys.FamilyRSA},
	jose.RS512: {family: keys.FamilyRSA},
	jose.PS256: {family: keys.FamilyRSA},
	jose.PS384: {family: keys.FamilyRSA},
	jose.PS512: {family: keys.FamilyRSA},
	jose.ES256: {family: keys.FamilyEC, curve: elliptic.P256()},
	jose.ES384: {family: keys.FamilyEC, curve: elliptic.P384()},
	jose.ES512: {family: keys.FamilyEC, curve: elliptic.P521()},
	jose.HS256: {family: keys.FamilyOct},
	jose.HS384: {family: keys.FamilyOct},
	jose.HS512: {family: keys.FamilyOct},
}

// algorithmOrder fixes the iteration order of the table.
var algorithmOrder = []jose.SignatureAlgorithm{
	jose.RS256, jose.RS384, jose.RS512,
	jose.PS256, jose.PS384, jose.PS512,
	jose.ES256, jose.ES384, jose.ES512,
	jose.HS256, jose.HS384, jose.HS512,
}

// IsSupported reports whether alg has a signing strategy.
func IsSupported(alg string) bool {
	_, ok := strategies[jose.SignatureAlgorithm(alg)]
	return ok
}

// IsSymmetric reports whether alg is an HMAC algorithm.
func IsSymmetric(alg string) bool {
	s, ok := strategies[jose.SignatureAlgorithm(alg)]
	return ok && s.family == keys.FamilyOct
}

// compatible reports whether k can be used with this strategy's algorithm.
func (s strategy) compatible(k *keys.Key, alg jose.SignatureAlgorithm) bool {
	if k.Family() != s.family || !k.UsableFor(keys.UseSig) {
		return false
	}
	if k.Algorithm() != "" && k.Algorithm() != string(alg) {
		return false
	}
	if s.curve != nil {
		switch m := k.Material().(type) {
		case *ecdsa.PrivateKey:
			return m.Curve == s.curve
		case *ecdsa.PublicKey:
			return m.Curve == s.curve
		default:
			return false
		}
	}
	return true
}

func (s strategy) sign(k *keys.Key, alg jose.SignatureAlgorithm, payload []byte) (string, error) {
	if !k.HasPrivate() {
		return "", fmt.Errorf("key %q has no private material", k.ID())
	}
	opts := (&jose.SignerOptions{}).WithType("JWT")
	if k.Family() == keys.FamilyOct {
		// go-jose only derives kid from asymmetric keys.
		opts = opts.WithHeader(jose.HeaderKey("kid"), k.ID())
	}
	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: alg, Key: jose.JSONWebKey{Key: k.Material(), KeyID: k.ID()}},
		opts,
	)
	if err != nil {
		return "", fmt.Errorf("failed to create signer: %w", err)
	}
	obj, err := signer.Sign(payload)
	if err != nil {
		return "", fmt.Errorf("failed to sign: %w", err)
	}
	return obj.CompactSerialize()
}

func (strategy) verify(k *keys.Key, obj *jose.JSONWebSignature) ([]byte, error) {
	material := k.PublicMaterial()
	if k.Family() == keys.FamilyOct {
		material = k.Material()
	}
	return obj.Verify(material)
}

// algorithmsFor returns the algorithms k can be used with.
func algorithmsFor(k *keys.Key) []jose.SignatureAlgorithm {
	var out []jose.SignatureAlgorithm
	for _, alg := range algorithmOrder {
		if strategies[alg].compatible(k, alg) {
			out = append(out, alg)
		}
	}
	return out
}

// signingAlgorithm returns the algorithm used when signing with k.
func signingAlgorithm(k *keys.Key) (jose.SignatureAlgorithm, error) {
	if k.Algorithm() != "" {
		alg := jose.SignatureAlgorithm(k.Algorithm())
		s, ok := strategies[alg]
		if !ok || !s.compatible(k, alg) {
			return "", fmt.Errorf("key %q declares unsupported signing algorithm %s", k.ID(), alg)
		}
		return alg, nil
	}
	alg, err := keys.DeriveAlgorithm(k)
	if err != nil {
		return "", err
	}
	return jose.SignatureAlgorithm(alg), nil
}
