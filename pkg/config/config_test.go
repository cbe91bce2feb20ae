// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// writeConfig marshals cfg to a temporary YAML file and returns its path.
func writeConfig(t *testing.T, cfg any) string {
	t.Helper()
	data, err := yaml.Marshal(cfg)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "trustd.yaml")
	require.NoError(t, os.WriteFile(path, data, 0600))
	return path
}

func TestLoad_File(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, map[string]any{
		"issuer": "https://trust.example.com/",
		"keys": map[string]any{
			"allow_key_scan": true,
		},
		"cache": map[string]any{
			"ttl": "15m",
		},
		"server": map[string]any{
			"publish_jwks": true,
		},
		"clients": []map[string]any{
			{
				"id":          "client-1",
				"secret":      "s3cret",
				"grant_types": []string{"urn:ietf:params:oauth:grant-type:device_code"},
				"scopes":      []string{"read", "write"},
			},
		},
		"assertion": map[string]any{
			"trusted_issuers": []map[string]any{
				{"issuer": "https://idp.example.com", "jwks_uri": "https://idp.example.com/jwks"},
			},
		},
	})

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://trust.example.com", cfg.Issuer)
	assert.True(t, cfg.Keys.AllowKeyScan)
	assert.Equal(t, 15*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, DefaultCacheMaxEntries, cfg.Cache.MaxEntries)
	assert.True(t, cfg.Server.PublishJWKS)
	assert.False(t, cfg.Server.Metrics)
	assert.Equal(t, DefaultAddress, cfg.Server.Address)
	assert.Equal(t, StorageTypeMemory, cfg.Storage.Type)
	assert.Equal(t, "https://trust.example.com/device", cfg.Device.VerificationURI)
	assert.Equal(t, "https://trust.example.com/oauth/token", cfg.Assertion.Audience)
	assert.True(t, cfg.Device.Enabled)
	assert.True(t, cfg.Session.Enabled)
	assert.Equal(t, DefaultSessionLifespan, cfg.Session.Lifespan)
	assert.Empty(t, cfg.Telemetry.Endpoint)
	assert.InDelta(t, DefaultSamplingRate, cfg.Telemetry.SamplingRate, 1e-9)
	assert.Equal(t, DefaultServiceName, cfg.Telemetry.ServiceName)

	require.Len(t, cfg.Clients, 1)
	assert.Equal(t, "client-1", cfg.Clients[0].ID)
	assert.Equal(t, []string{"read", "write"}, cfg.Clients[0].Scopes)

	wantIssuers := []TrustedIssuer{{Issuer: "https://idp.example.com", JWKSURI: "https://idp.example.com/jwks"}}
	if diff := cmp.Diff(wantIssuers, cfg.Assertion.TrustedIssuers); diff != "" {
		t.Errorf("trusted issuers mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_Struct(t *testing.T) {
	t.Parallel()

	original := Config{
		Issuer: "https://trust.example.com",
		Tokens: TokensConfig{AccessTokenLifespan: 5 * time.Minute},
		Storage: StorageConfig{
			Type:  StorageTypeRedis,
			Redis: RedisConfig{Addr: "localhost:6379", KeyPrefix: "t:"},
		},
	}
	cfg, err := Load(writeConfig(t, original))
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, cfg.Tokens.AccessTokenLifespan)
	assert.Equal(t, DefaultRefreshTokenLifespan, cfg.Tokens.RefreshTokenLifespan)
	assert.Equal(t, "localhost:6379", cfg.Storage.Redis.Addr)
}

func TestLoad_Environment(t *testing.T) { //nolint:paralleltest // mutates process environment
	t.Setenv("TRUSTD_ISSUER", "https://env.example.com")
	t.Setenv("TRUSTD_SERVER_METRICS", "true")
	t.Setenv("TRUSTD_STORAGE_TYPE", "redis")
	t.Setenv("TRUSTD_STORAGE_REDIS_ADDR", "redis:6379")
	t.Setenv("TRUSTD_DEVICE_ENABLED", "false")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "https://env.example.com", cfg.Issuer)
	assert.True(t, cfg.Server.Metrics)
	assert.Equal(t, StorageTypeRedis, cfg.Storage.Type)
	assert.Equal(t, "redis:6379", cfg.Storage.Redis.Addr)
	assert.False(t, cfg.Device.Enabled)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := func() *Config {
		cfg := &Config{Issuer: "https://trust.example.com"}
		cfg.applyDefaults()
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing issuer", mutate: func(c *Config) { c.Issuer = "" }, wantErr: "issuer is required"},
		{name: "relative issuer", mutate: func(c *Config) { c.Issuer = "trust" }, wantErr: "absolute URL"},
		{
			name:    "key dir without signing key",
			mutate:  func(c *Config) { c.Keys.Dir = "/keys" },
			wantErr: "signing_key_file",
		},
		{
			name:    "redis without addr",
			mutate:  func(c *Config) { c.Storage.Type = StorageTypeRedis },
			wantErr: "storage.redis.addr",
		},
		{
			name:    "unknown storage",
			mutate:  func(c *Config) { c.Storage.Type = "etcd" },
			wantErr: "unknown storage type",
		},
		{
			name:    "client without id",
			mutate:  func(c *Config) { c.Clients = []ClientConfig{{Secret: "x"}} },
			wantErr: "id is required",
		},
		{
			name:    "confidential client without credentials",
			mutate:  func(c *Config) { c.Clients = []ClientConfig{{ID: "c"}} },
			wantErr: "needs a secret or keys",
		},
		{
			name: "duplicate client",
			mutate: func(c *Config) {
				c.Clients = []ClientConfig{{ID: "c", Public: true}, {ID: "c", Public: true}}
			},
			wantErr: "duplicate client id",
		},
		{
			name:    "inline and file jwks",
			mutate:  func(c *Config) { c.Clients = []ClientConfig{{ID: "c", JWKS: "{}", JWKSFile: "k.json"}} },
			wantErr: "mutually exclusive",
		},
		{
			name: "trusted issuer without jwks uri",
			mutate: func(c *Config) {
				c.Assertion.TrustedIssuers = []TrustedIssuer{{Issuer: "https://idp.example.com"}}
			},
			wantErr: "invalid JWKS URI",
		},
		{
			name: "short secret for HMAC request objects",
			mutate: func(c *Config) {
				c.Clients = []ClientConfig{{ID: "c", Secret: "secret", RequestObjectSigningAlg: "HS256"}}
			},
			wantErr: "at least 32 bytes",
		},
		{
			name: "hashed secret for HMAC request objects",
			mutate: func(c *Config) {
				c.Clients = []ClientConfig{{
					ID:                      "c",
					Secret:                  "$2a$10$abcdefghijklmnopqrstuuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ",
					RequestObjectSigningAlg: "HS256",
				}}
			},
			wantErr: "not a bcrypt hash",
		},
		{
			name: "HS512 secret long enough for HS256 only",
			mutate: func(c *Config) {
				c.Clients = []ClientConfig{{
					ID:                      "c",
					Secret:                  strings.Repeat("k", 32),
					RequestObjectSigningAlg: "HS512",
				}}
			},
			wantErr: "at least 64 bytes",
		},
		{
			name: "long secret for HMAC request objects",
			mutate: func(c *Config) {
				c.Clients = []ClientConfig{{ID: "c", Secret: strings.Repeat("k", 32), RequestObjectSigningAlg: "HS256"}}
			},
		},
		{
			name: "public client with introspection",
			mutate: func(c *Config) {
				c.Clients = []ClientConfig{{ID: "c", Public: true, Introspection: true}}
			},
			wantErr: "cannot introspect",
		},
		{
			name:    "sampling rate above one",
			mutate:  func(c *Config) { c.Telemetry.SamplingRate = 1.5 },
			wantErr: "sampling_rate",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestRedisPassword(t *testing.T) {
	t.Parallel()

	file := filepath.Join(t.TempDir(), "password")
	require.NoError(t, os.WriteFile(file, []byte("from-file\n"), 0600))

	direct := RedisConfig{Password: "direct", PasswordFile: file}
	got, err := direct.RedisPassword()
	require.NoError(t, err)
	assert.Equal(t, "direct", got)

	fromFile := RedisConfig{PasswordFile: file}
	got, err = fromFile.RedisPassword()
	require.NoError(t, err)
	assert.Equal(t, "from-file", got)

	missing := RedisConfig{PasswordFile: filepath.Join(t.TempDir(), "nope")}
	_, err = missing.RedisPassword()
	require.Error(t, err)
}
