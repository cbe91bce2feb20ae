// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-jose/go-jose/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `issuer: https://trust.example.com/
clients:
  - id: service-a
    secret: service-a-secret
    grant_types: [urn:ietf:params:oauth:grant-type:jwt-bearer]
`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trustd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

//nolint:paralleltest // commands share the global viper instance
func TestValidateCmd(t *testing.T) {
	out, err := execute(t, "--config", writeFile(t, testConfig), "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration is valid")
	assert.Contains(t, out, "Issuer: https://trust.example.com\n")
	assert.Contains(t, out, "Storage: memory")
	assert.Contains(t, out, "Clients: 1")

	_, err = execute(t, "--config", writeFile(t, "issuer: not a url\n"), "validate")
	require.Error(t, err)

	_, err = execute(t, "--config", writeFile(t, testConfig+"    jwks: '{broken'\n"), "validate")
	require.ErrorContains(t, err, "client service-a")
}

//nolint:paralleltest // commands share the global viper instance
func TestJWKSCmd(t *testing.T) {
	out, err := execute(t, "--config", writeFile(t, testConfig), "jwks")
	require.NoError(t, err)

	var set jose.JSONWebKeySet
	require.NoError(t, json.Unmarshal([]byte(out), &set))
	require.Len(t, set.Keys, 2)
	for _, k := range set.Keys {
		assert.True(t, k.IsPublic(), "key %s must not expose private material", k.KeyID)
		assert.NotEmpty(t, k.KeyID)
	}
}

//nolint:paralleltest // commands share the global viper instance
func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "trustd ")
}
