// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package jwe implements JWE encryption and decryption over a key set.
//
// RSA and EC keys always yield an encrypter and yield a decrypter only when
// they carry private material. Symmetric keys yield both. When more than one
// key is eligible and no default key is configured, operations fail with a
// no_default_key error rather than picking one.
package jwe

import (
	"fmt"
	"log/slog"

	"github.com/go-jose/go-jose/v4"

	"github.com/stacklok/trustengine/pkg/authserver/keys"
	"github.com/stacklok/trustengine/pkg/errors"
)

// DefaultContentEncryption is used for asymmetric keys unless overridden.
const DefaultContentEncryption = jose.A128GCM

var keyAlgorithms = []jose.KeyAlgorithm{
	jose.RSA1_5, jose.RSA_OAEP, jose.RSA_OAEP_256,
	jose.ECDH_ES, jose.ECDH_ES_A128KW, jose.ECDH_ES_A192KW, jose.ECDH_ES_A256KW,
	jose.DIRECT, jose.A128KW, jose.A192KW, jose.A256KW,
}

var contentEncryptions = []jose.ContentEncryption{
	jose.A128GCM, jose.A192GCM, jose.A256GCM,
	jose.A128CBC_HS256, jose.A192CBC_HS384, jose.A256CBC_HS512,
}

// recipient is a ready-to-use encryption target.
type recipient struct {
	key       *keys.Key
	algorithm jose.KeyAlgorithm
	enc       jose.ContentEncryption
	material  any
}

// Service encrypts and decrypts JWE tokens with the keys of a KeySet.
type Service struct {
	keys         *keys.KeySet
	defaultKeyID string
	enc          jose.ContentEncryption
	logger       *slog.Logger

	encrypters map[string]recipient
	decrypters map[string]*keys.Key
	// order preserves key set order for the maps above.
	order []string
}

// Option configures a Service.
type Option func(*Service)

// WithDefaultKeyID selects the key used when none is requested.
func WithDefaultKeyID(id string) Option {
	return func(s *Service) { s.defaultKeyID = id }
}

// WithContentEncryption overrides the content encryption used with asymmetric keys.
func WithContentEncryption(enc string) Option {
	return func(s *Service) { s.enc = jose.ContentEncryption(enc) }
}

// WithLogger sets the logger. slog.Default() is used otherwise.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService builds the encrypters and decrypters for every encryption key in set.
func NewService(set *keys.KeySet, opts ...Option) (*Service, error) {
	if set == nil {
		return nil, fmt.Errorf("key set is required")
	}
	s := &Service{
		keys:       set,
		enc:        DefaultContentEncryption,
		logger:     slog.Default(),
		encrypters: make(map[string]recipient),
		decrypters: make(map[string]*keys.Key),
	}
	for _, opt := range opts {
		opt(s)
	}
	if !isContentEncryption(s.enc) {
		return nil, fmt.Errorf("unsupported content encryption %s", s.enc)
	}

	for _, k := range set.Keys() {
		if !k.UsableFor(keys.UseEnc) {
			continue
		}
		r, err := s.recipientFor(k)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k.ID(), err)
		}
		s.encrypters[k.ID()] = r
		s.order = append(s.order, k.ID())

		if k.HasPrivate() {
			s.decrypters[k.ID()] = k
		} else {
			s.logger.Info("encryption key has no private material, decryption disabled",
				"key_id", k.ID(), "family", k.Family())
		}
	}

	if s.defaultKeyID != "" {
		if _, ok := s.encrypters[s.defaultKeyID]; !ok {
			return nil, fmt.Errorf("default encryption key %q is not an encryption key in the key set", s.defaultKeyID)
		}
	}
	return s, nil
}

func (s *Service) recipientFor(k *keys.Key) (recipient, error) {
	r := recipient{key: k, enc: s.enc, material: k.PublicMaterial()}

	switch k.Family() {
	case keys.FamilyRSA:
		r.algorithm = jose.RSA_OAEP_256
	case keys.FamilyEC:
		r.algorithm = jose.ECDH_ES_A128KW
	case keys.FamilyOct:
		secret, _ := k.Material().([]byte)
		r.material = secret
		r.algorithm = jose.DIRECT
	default:
		return r, fmt.Errorf("unsupported key family %s", k.Family())
	}

	if k.Algorithm() != "" {
		r.algorithm = jose.KeyAlgorithm(k.Algorithm())
		if !algorithmMatchesFamily(r.algorithm, k.Family()) {
			return r, fmt.Errorf("key algorithm %s is not usable with a %s key", r.algorithm, k.Family())
		}
	}

	if r.algorithm == jose.DIRECT {
		enc, err := directContentEncryption(len(r.material.([]byte)))
		if err != nil {
			return r, err
		}
		r.enc = enc
	}
	return r, nil
}

func algorithmMatchesFamily(alg jose.KeyAlgorithm, family keys.Family) bool {
	switch alg {
	case jose.RSA1_5, jose.RSA_OAEP, jose.RSA_OAEP_256:
		return family == keys.FamilyRSA
	case jose.ECDH_ES, jose.ECDH_ES_A128KW, jose.ECDH_ES_A192KW, jose.ECDH_ES_A256KW:
		return family == keys.FamilyEC
	case jose.DIRECT, jose.A128KW, jose.A192KW, jose.A256KW:
		return family == keys.FamilyOct
	default:
		return false
	}
}

// directContentEncryption picks the content encryption whose key size
// equals a direct key of size bytes.
func directContentEncryption(size int) (jose.ContentEncryption, error) {
	switch size {
	case 16:
		return jose.A128GCM, nil
	case 24:
		return jose.A192GCM, nil
	case 32:
		return jose.A256GCM, nil
	case 48:
		return jose.A192CBC_HS384, nil
	case 64:
		return jose.A256CBC_HS512, nil
	default:
		return "", fmt.Errorf("no content encryption uses a %d byte direct key", size)
	}
}

func isContentEncryption(enc jose.ContentEncryption) bool {
	for _, c := range contentEncryptions {
		if c == enc {
			return true
		}
	}
	return false
}

// Encrypt encrypts plaintext for the default key.
func (s *Service) Encrypt(plaintext []byte) (string, error) {
	return s.encrypt(plaintext, "", "")
}

// EncryptWithKey encrypts plaintext for the named key, or the default key if keyID is empty.
func (s *Service) EncryptWithKey(plaintext []byte, keyID string) (string, error) {
	return s.encrypt(plaintext, keyID, "")
}

// EncryptJWT wraps a compact JWT, marking the payload with cty "JWT".
func (s *Service) EncryptJWT(token, keyID string) (string, error) {
	return s.encrypt([]byte(token), keyID, "JWT")
}

func (s *Service) encrypt(plaintext []byte, keyID string, contentType jose.ContentType) (string, error) {
	id, err := s.resolve(keyID, func(id string) bool { _, ok := s.encrypters[id]; return ok })
	if err != nil {
		return "", err
	}
	r := s.encrypters[id]

	opts := &jose.EncrypterOptions{}
	if contentType != "" {
		opts = opts.WithContentType(contentType)
	}
	encrypter, err := jose.NewEncrypter(r.enc, jose.Recipient{
		Algorithm: r.algorithm,
		Key:       r.material,
		KeyID:     r.key.ID(),
	}, opts)
	if err != nil {
		return "", fmt.Errorf("failed to create encrypter: %w", err)
	}
	obj, err := encrypter.Encrypt(plaintext)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt: %w", err)
	}
	return obj.CompactSerialize()
}

// Decrypt decrypts a compact JWE. A kid header selects the decrypter;
// otherwise the default key is used.
func (s *Service) Decrypt(token string) ([]byte, error) {
	obj, err := jose.ParseEncrypted(token, keyAlgorithms, contentEncryptions)
	if err != nil {
		return nil, errors.NewDecryptionFailureError("failed to parse encrypted token", err)
	}

	keyID := obj.Header.KeyID
	if keyID != "" {
		if _, ok := s.decrypters[keyID]; !ok {
			return nil, errors.NewDecryptionFailureError(fmt.Sprintf("no decryption key with id %q", keyID), nil)
		}
	}
	id, err := s.resolve(keyID, func(id string) bool { _, ok := s.decrypters[id]; return ok })
	if err != nil {
		if errors.IsNoDefaultKey(err) {
			return nil, err
		}
		return nil, errors.NewDecryptionFailureError("no decryption key is available", err)
	}

	k := s.decrypters[id]
	plaintext, err := obj.Decrypt(k.Material())
	if err != nil {
		s.logger.Debug("decryption failed", "key_id", id, "alg", obj.Header.Algorithm, "error", err)
		return nil, errors.NewDecryptionFailureError("failed to decrypt token", err)
	}
	return plaintext, nil
}

// resolve returns keyID if eligible, else the default key, else the sole eligible key.
func (s *Service) resolve(keyID string, eligible func(string) bool) (string, error) {
	if keyID == "" {
		keyID = s.defaultKeyID
	}
	if keyID != "" {
		if !eligible(keyID) {
			return "", errors.NewMissingKeyMaterialError(fmt.Sprintf("key %q cannot be used here", keyID), nil)
		}
		return keyID, nil
	}

	var candidates []string
	for _, id := range s.order {
		if eligible(id) {
			candidates = append(candidates, id)
		}
	}
	switch len(candidates) {
	case 0:
		return "", errors.NewMissingKeyMaterialError("no usable encryption key is configured", nil)
	case 1:
		return candidates[0], nil
	default:
		return "", errors.NewNoDefaultKeyError(
			fmt.Sprintf("%d encryption keys are configured and no default key is set", len(candidates)), nil)
	}
}

// PublicKeys returns the public projection of every asymmetric encryption key.
func (s *Service) PublicKeys() jose.JSONWebKeySet {
	set := jose.JSONWebKeySet{Keys: []jose.JSONWebKey{}}
	for _, id := range s.order {
		if pub := s.encrypters[id].key.Public(); pub != nil {
			set.Keys = append(set.Keys, pub.JWK())
		}
	}
	return set
}

// SupportedEncryptionAlgorithms returns the key management algorithms of the configured keys.
func (s *Service) SupportedEncryptionAlgorithms() []string {
	seen := make(map[jose.KeyAlgorithm]bool)
	var out []string
	for _, id := range s.order {
		alg := s.encrypters[id].algorithm
		if !seen[alg] {
			seen[alg] = true
			out = append(out, string(alg))
		}
	}
	return out
}

// SupportedEncryptionMethods returns the content encryption methods of the configured keys.
func (s *Service) SupportedEncryptionMethods() []string {
	seen := make(map[jose.ContentEncryption]bool)
	var out []string
	for _, id := range s.order {
		enc := s.encrypters[id].enc
		if !seen[enc] {
			seen[enc] = true
			out = append(out, string(enc))
		}
	}
	return out
}
