// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package keys

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/go-jose/go-jose/v4"
)

// KeySet is an ordered collection of keys, unique by ID.
// A KeySet is not safe for concurrent mutation; build it once and share it.
type KeySet struct {
	keys []*Key
	byID map[string]*Key
}

// NewKeySet returns a KeySet holding keys in order.
func NewKeySet(keys ...*Key) (*KeySet, error) {
	s := &KeySet{byID: make(map[string]*Key, len(keys))}
	for _, k := range keys {
		if err := s.Add(k); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Add appends k. Adding a key whose ID is already present is an error.
func (s *KeySet) Add(k *Key) error {
	if k == nil {
		return fmt.Errorf("key is nil")
	}
	if s.byID == nil {
		s.byID = make(map[string]*Key)
	}
	if _, ok := s.byID[k.ID()]; ok {
		return fmt.Errorf("duplicate key id %q", k.ID())
	}
	s.keys = append(s.keys, k)
	s.byID[k.ID()] = k
	return nil
}

// Len returns the number of keys.
func (s *KeySet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.keys)
}

// Keys returns the keys in insertion order.
func (s *KeySet) Keys() []*Key {
	if s == nil {
		return nil
	}
	out := make([]*Key, len(s.keys))
	copy(out, s.keys)
	return out
}

// Get returns the key with the given ID.
func (s *KeySet) Get(id string) (*Key, bool) {
	if s == nil {
		return nil, false
	}
	k, ok := s.byID[id]
	return k, ok
}

// Filter returns the keys for which keep returns true, in order.
func (s *KeySet) Filter(keep func(*Key) bool) []*Key {
	var out []*Key
	for _, k := range s.Keys() {
		if keep(k) {
			out = append(out, k)
		}
	}
	return out
}

// Public returns the public projection of every asymmetric key. Symmetric
// keys are never published.
func (s *KeySet) Public() jose.JSONWebKeySet {
	set := jose.JSONWebKeySet{Keys: []jose.JSONWebKey{}}
	for _, k := range s.Keys() {
		if pub := k.Public(); pub != nil {
			set.Keys = append(set.Keys, pub.JWK())
		}
	}
	return set
}

// Fingerprint returns a stable SHA-256 digest of the set's full content,
// private material included. Two sets holding the same keys in the same
// order share a fingerprint; any rotation changes it.
func (s *KeySet) Fingerprint() (string, error) {
	h := sha256.New()
	for _, k := range s.Keys() {
		raw, err := json.Marshal(k.jwk)
		if err != nil {
			return "", fmt.Errorf("failed to marshal key %q: %w", k.ID(), err)
		}
		h.Write(raw)
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// MarshalJSON encodes the set as a JWKS document, private material included.
func (s *KeySet) MarshalJSON() ([]byte, error) {
	set := jose.JSONWebKeySet{Keys: []jose.JSONWebKey{}}
	for _, k := range s.Keys() {
		set.Keys = append(set.Keys, k.jwk)
	}
	return json.Marshal(set)
}

// UnmarshalJSON decodes a JWKS document.
func (s *KeySet) UnmarshalJSON(data []byte) error {
	parsed, err := ParseKeySet(data)
	if err != nil {
		return err
	}
	*s = *parsed
	return nil
}

// ParseKeySet decodes a JWKS document into a KeySet.
func ParseKeySet(data []byte) (*KeySet, error) {
	var set jose.JSONWebKeySet
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("failed to parse JWKS: %w", err)
	}
	return FromJSONWebKeySet(set)
}

// ParsePublishedKeySet decodes a JWKS document published by a third party.
// Keys that cannot be decoded or are of an unsupported type are skipped and
// logged, so one foreign key does not disable the rest of the set.
func ParsePublishedKeySet(data []byte) (*KeySet, error) {
	var doc struct {
		Keys []json.RawMessage `json:"keys"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse JWKS: %w", err)
	}
	ks := &KeySet{byID: make(map[string]*Key, len(doc.Keys))}
	for i, raw := range doc.Keys {
		var jwk jose.JSONWebKey
		if err := jwk.UnmarshalJSON(raw); err != nil {
			slog.Warn("skipping undecodable JWKS key", "index", i, "error", err)
			continue
		}
		k, err := FromJWK(jwk)
		if err != nil {
			slog.Warn("skipping unsupported JWKS key", "index", i, "kid", jwk.KeyID, "error", err)
			continue
		}
		if err := ks.Add(k); err != nil {
			return nil, err
		}
	}
	return ks, nil
}

// FromJSONWebKeySet converts a go-jose key set into a KeySet.
func FromJSONWebKeySet(set jose.JSONWebKeySet) (*KeySet, error) {
	ks := &KeySet{byID: make(map[string]*Key, len(set.Keys))}
	for i, jwk := range set.Keys {
		k, err := FromJWK(jwk)
		if err != nil {
			return nil, fmt.Errorf("invalid key at index %d: %w", i, err)
		}
		if err := ks.Add(k); err != nil {
			return nil, err
		}
	}
	return ks, nil
}
