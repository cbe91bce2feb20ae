// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package keys

import (
	"fmt"
	"log/slog"
	"path/filepath"
)

// Config describes where the server's own keys come from.
// The caller is responsible for populating this from their own config source.
type Config struct {
	// KeyDir is the directory containing key files.
	// All key filenames are relative to this directory.
	KeyDir string

	// SigningKeyFile is the filename of the primary signing key (relative to KeyDir).
	// If both KeyDir and SigningKeyFile are empty, an ephemeral key is generated.
	SigningKeyFile string

	// SigningAlgorithm pins the algorithm of the signing key. Derived from the key if empty.
	SigningAlgorithm string

	// FallbackKeyFiles are additional keys kept for verification during rotation.
	// They are published but never chosen as the default signing key.
	FallbackKeyFiles []string

	// EncryptionKeyFile is the filename of the key used to decrypt request objects.
	// If empty, an ephemeral RSA key is generated.
	EncryptionKeyFile string
}

// LoadSigningKeys builds the server's signing KeySet and returns the ID of
// the key to sign with by default.
func LoadSigningKeys(cfg Config) (*KeySet, string, error) {
	if cfg.KeyDir == "" && cfg.SigningKeyFile == "" {
		k, err := GenerateSigningKey(cfg.SigningAlgorithm)
		if err != nil {
			return nil, "", err
		}
		slog.Warn("generated ephemeral signing key - tokens will be invalid after restart",
			"algorithm", k.Algorithm(),
			"key_id", k.ID(),
		)
		set, err := NewKeySet(k)
		return set, k.ID(), err
	}
	if cfg.SigningKeyFile == "" {
		return nil, "", fmt.Errorf("signing key file is required")
	}

	primary, err := LoadKeyFile(filepath.Join(cfg.KeyDir, cfg.SigningKeyFile), UseSig, cfg.SigningAlgorithm)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load signing key: %w", err)
	}
	if len(primary) == 0 {
		return nil, "", fmt.Errorf("signing key file %s holds no keys", cfg.SigningKeyFile)
	}
	set, err := NewKeySet(primary...)
	if err != nil {
		return nil, "", err
	}

	for _, filename := range cfg.FallbackKeyFiles {
		fallback, err := LoadKeyFile(filepath.Join(cfg.KeyDir, filename), UseSig, "")
		if err != nil {
			return nil, "", fmt.Errorf("failed to load fallback key %s: %w", filename, err)
		}
		for _, k := range fallback {
			if err := set.Add(k); err != nil {
				return nil, "", fmt.Errorf("failed to add fallback key %s: %w", filename, err)
			}
		}
	}

	return set, primary[0].ID(), nil
}

// LoadEncryptionKeys builds the server's decryption KeySet and returns the
// ID of its default key.
func LoadEncryptionKeys(cfg Config) (*KeySet, string, error) {
	if cfg.EncryptionKeyFile == "" {
		k, err := GenerateEncryptionKey()
		if err != nil {
			return nil, "", err
		}
		slog.Warn("generated ephemeral encryption key - encrypted request objects will fail after restart",
			"key_id", k.ID(),
		)
		set, err := NewKeySet(k)
		return set, k.ID(), err
	}

	loaded, err := LoadKeyFile(filepath.Join(cfg.KeyDir, cfg.EncryptionKeyFile), UseEnc, "")
	if err != nil {
		return nil, "", fmt.Errorf("failed to load encryption key: %w", err)
	}
	if len(loaded) == 0 {
		return nil, "", fmt.Errorf("encryption key file %s holds no keys", cfg.EncryptionKeyFile)
	}
	set, err := NewKeySet(loaded...)
	if err != nil {
		return nil, "", err
	}
	return set, loaded[0].ID(), nil
}
