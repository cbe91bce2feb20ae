// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package jws implements JWS signing and validation over a key set.
//
// Algorithms are dispatched through a strategy table keyed by the JWS
// algorithm identifier. Validation is kid-directed: when the token header
// names a key only that key is tried. Tokens without a kid are checked
// against the single compatible key, or against every compatible key in
// order when key scanning is enabled.
package jws

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/go-jose/go-jose/v4"

	"github.com/stacklok/trustengine/pkg/authserver/keys"
	"github.com/stacklok/trustengine/pkg/errors"
)

// Validator checks compact JWS tokens.
type Validator interface {
	// Verify returns the payload of a token whose signature checks out.
	Verify(token string) ([]byte, error)
	// Validate reports whether the token's signature checks out.
	Validate(token string) bool
}

// Service signs and validates JWS tokens with the keys of a KeySet.
type Service struct {
	keys         *keys.KeySet
	defaultKeyID string
	allowKeyScan bool
	logger       *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithDefaultKeyID selects the key used when Sign is called without a key ID.
func WithDefaultKeyID(id string) Option {
	return func(s *Service) { s.defaultKeyID = id }
}

// WithKeyScan allows tokens without a kid to be checked against every
// compatible key when more than one is configured.
func WithKeyScan(allow bool) Option {
	return func(s *Service) { s.allowKeyScan = allow }
}

// WithLogger sets the logger. slog.Default() is used otherwise.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates a signing and validation service over set.
func NewService(set *keys.KeySet, opts ...Option) (*Service, error) {
	if set == nil {
		return nil, fmt.Errorf("key set is required")
	}
	s := &Service{keys: set, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}

	if s.defaultKeyID != "" {
		k, ok := set.Get(s.defaultKeyID)
		if !ok {
			return nil, fmt.Errorf("default signing key %q is not in the key set", s.defaultKeyID)
		}
		if len(algorithmsFor(k)) == 0 {
			return nil, fmt.Errorf("default signing key %q cannot sign", s.defaultKeyID)
		}
	}

	for _, k := range set.Keys() {
		if k.UsableFor(keys.UseSig) && len(algorithmsFor(k)) == 0 {
			s.logger.Warn("key has no supported signing algorithm, skipping",
				"key_id", k.ID(), "family", k.Family(), "alg", k.Algorithm())
		}
	}
	return s, nil
}

// DefaultKeyID returns the ID of the key Sign uses when none is requested,
// or "" if the choice is ambiguous.
func (s *Service) DefaultKeyID() string {
	k, err := s.signingKey("")
	if err != nil {
		return ""
	}
	return k.ID()
}

// SigningAlgorithm returns the algorithm Sign uses with the given key.
func (s *Service) SigningAlgorithm(keyID string) (string, error) {
	k, err := s.signingKey(keyID)
	if err != nil {
		return "", err
	}
	alg, err := signingAlgorithm(k)
	return string(alg), err
}

// Sign signs payload with the named key, the default key, or the sole
// signing key, in that order of preference.
func (s *Service) Sign(payload []byte, keyID string) (string, error) {
	k, err := s.signingKey(keyID)
	if err != nil {
		return "", err
	}
	if !k.HasPrivate() {
		return "", errors.NewMissingKeyMaterialError(fmt.Sprintf("key %q has no private material", k.ID()), nil)
	}
	alg, err := signingAlgorithm(k)
	if err != nil {
		return "", err
	}
	return strategies[alg].sign(k, alg, payload)
}

// SignClaims signs the JSON encoding of claims.
func (s *Service) SignClaims(claims any, keyID string) (string, error) {
	payload, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("failed to encode claims: %w", err)
	}
	return s.Sign(payload, keyID)
}

func (s *Service) signingKey(keyID string) (*keys.Key, error) {
	if keyID == "" {
		keyID = s.defaultKeyID
	}
	if keyID != "" {
		k, ok := s.keys.Get(keyID)
		if !ok {
			return nil, errors.NewMissingKeyMaterialError(fmt.Sprintf("no key with id %q", keyID), nil)
		}
		return k, nil
	}

	candidates := s.keys.Filter(func(k *keys.Key) bool {
		return k.HasPrivate() && len(algorithmsFor(k)) > 0
	})
	switch len(candidates) {
	case 0:
		return nil, errors.NewMissingKeyMaterialError("no key with private signing material is configured", nil)
	case 1:
		return candidates[0], nil
	default:
		return nil, errors.NewNoDefaultKeyError(
			fmt.Sprintf("%d signing keys are configured and no default key is set", len(candidates)), nil)
	}
}

// Verify checks token and returns its payload.
func (s *Service) Verify(token string) ([]byte, error) {
	obj, err := jose.ParseSigned(token, algorithmOrder)
	if err != nil {
		return nil, errors.NewInvalidSignatureError("failed to parse token", err)
	}
	if len(obj.Signatures) != 1 {
		return nil, errors.NewInvalidSignatureError("token must carry exactly one signature", nil)
	}
	header := obj.Signatures[0].Header
	alg := jose.SignatureAlgorithm(header.Algorithm)
	st := strategies[alg]

	var candidates []*keys.Key
	if header.KeyID != "" {
		k, ok := s.keys.Get(header.KeyID)
		if !ok || !st.compatible(k, alg) {
			return nil, errors.NewInvalidSignatureError(
				fmt.Sprintf("no %s key with id %q", alg, header.KeyID), nil)
		}
		candidates = []*keys.Key{k}
	} else {
		candidates = s.keys.Filter(func(k *keys.Key) bool { return st.compatible(k, alg) })
		if len(candidates) > 1 && !s.allowKeyScan {
			return nil, errors.NewInvalidSignatureError(
				fmt.Sprintf("token has no kid and %d %s keys are configured", len(candidates), alg), nil)
		}
	}
	if len(candidates) == 0 {
		return nil, errors.NewInvalidSignatureError(fmt.Sprintf("no key is usable with %s", alg), nil)
	}

	var lastErr error
	for _, k := range candidates {
		payload, err := st.verify(k, obj)
		if err == nil {
			return payload, nil
		}
		s.logger.Debug("signature did not verify", "key_id", k.ID(), "alg", alg, "error", err)
		lastErr = err
	}
	return nil, errors.NewInvalidSignatureError("signature verification failed", lastErr)
}

// Validate reports whether token carries a valid signature.
func (s *Service) Validate(token string) bool {
	_, err := s.Verify(token)
	return err == nil
}

// PublicKeys returns the public projection of every key.
func (s *Service) PublicKeys() jose.JSONWebKeySet {
	return s.keys.Public()
}

// SupportedAlgorithms returns the union of algorithms the keys can be used with.
func (s *Service) SupportedAlgorithms() []string {
	seen := make(map[jose.SignatureAlgorithm]bool)
	for _, k := range s.keys.Keys() {
		for _, alg := range algorithmsFor(k) {
			seen[alg] = true
		}
	}
	var out []string
	for _, alg := range algorithmOrder {
		if seen[alg] {
			out = append(out, string(alg))
		}
	}
	return out
}

// KeySet returns the underlying key set.
func (s *Service) KeySet() *keys.KeySet {
	return s.keys
}
