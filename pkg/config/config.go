// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package config contains the definition of the trustd configuration
// structure and the logic required to load and validate it.
//
// Configuration is read by viper from an optional YAML file and from
// TRUSTD_* environment variables. Nested keys map to environment variables
// by replacing dots with underscores, e.g. TRUSTD_STORAGE_REDIS_ADDR.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables read by Load.
const EnvPrefix = "TRUSTD"

// Defaults applied by applyDefaults.
const (
	DefaultAddress              = ":8080"
	DefaultCacheTTL             = time.Hour
	DefaultCacheMaxEntries      = 100
	DefaultAccessTokenLifespan  = time.Hour
	DefaultRefreshTokenLifespan = 30 * 24 * time.Hour
	DefaultDeviceCodeLifespan   = 10 * time.Minute
	DefaultDeviceInterval       = 5 * time.Second
	DefaultSessionLifespan      = 24 * time.Hour
	DefaultShutdownTimeout      = 30 * time.Second
	DefaultReadTimeout          = 10 * time.Second
	DefaultWriteTimeout         = 15 * time.Second
	DefaultSamplingRate         = 0.1
	DefaultServiceName          = "trustd"

	// StorageTypeMemory keeps state in process.
	StorageTypeMemory = "memory"
	// StorageTypeRedis keeps state in Redis.
	StorageTypeRedis = "redis"
)

// Config represents the configuration of trustd.
type Config struct {
	// Issuer is the base URL of the engine. It is the iss of issued tokens
	// and scopes the session state cookie path.
	Issuer string `mapstructure:"issuer" yaml:"issuer"`

	Keys      KeysConfig      `mapstructure:"keys" yaml:"keys"`
	Cache     CacheConfig     `mapstructure:"cache" yaml:"cache"`
	Tokens    TokensConfig    `mapstructure:"tokens" yaml:"tokens"`
	Device    DeviceConfig    `mapstructure:"device" yaml:"device"`
	Session   SessionConfig   `mapstructure:"session" yaml:"session"`
	Storage   StorageConfig   `mapstructure:"storage" yaml:"storage"`
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
	Clients   []ClientConfig  `mapstructure:"clients" yaml:"clients"`
	Assertion AssertionConfig `mapstructure:"assertion" yaml:"assertion"`
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`
}

// KeysConfig describes the engine's own signing and encryption keys.
// Leaving Dir and SigningKeyFile empty generates ephemeral keys.
type KeysConfig struct {
	Dir                    string   `mapstructure:"dir" yaml:"dir"`
	SigningKeyFile         string   `mapstructure:"signing_key_file" yaml:"signing_key_file"`
	SigningAlgorithm       string   `mapstructure:"signing_algorithm" yaml:"signing_algorithm"`
	FallbackKeyFiles       []string `mapstructure:"fallback_key_files" yaml:"fallback_key_files"`
	EncryptionKeyFile      string   `mapstructure:"encryption_key_file" yaml:"encryption_key_file"`
	DefaultSigningKeyID    string   `mapstructure:"default_signing_key_id" yaml:"default_signing_key_id"`
	DefaultEncryptionKeyID string   `mapstructure:"default_encryption_key_id" yaml:"default_encryption_key_id"`
	ContentEncryption      string   `mapstructure:"content_encryption" yaml:"content_encryption"`

	// AllowKeyScan lets validation try every compatible key when a token has no kid.
	AllowKeyScan bool `mapstructure:"allow_key_scan" yaml:"allow_key_scan"`
}

// CacheConfig bounds the client key cache.
type CacheConfig struct {
	TTL        time.Duration `mapstructure:"ttl" yaml:"ttl"`
	MaxEntries int           `mapstructure:"max_entries" yaml:"max_entries"`
}

// TokensConfig sets token lifespans.
type TokensConfig struct {
	AccessTokenLifespan  time.Duration `mapstructure:"access_token_lifespan" yaml:"access_token_lifespan"`
	RefreshTokenLifespan time.Duration `mapstructure:"refresh_token_lifespan" yaml:"refresh_token_lifespan"`
}

// DeviceConfig configures the device authorization grant.
type DeviceConfig struct {
	// Enabled registers the device code granter and endpoints.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// VerificationURI defaults to <issuer>/device.
	VerificationURI string        `mapstructure:"verification_uri" yaml:"verification_uri"`
	Lifespan        time.Duration `mapstructure:"lifespan" yaml:"lifespan"`
	Interval        time.Duration `mapstructure:"interval" yaml:"interval"`
}

// SessionConfig configures OIDC session management.
type SessionConfig struct {
	Enabled    bool   `mapstructure:"enabled" yaml:"enabled"`
	CookieName string `mapstructure:"cookie_name" yaml:"cookie_name"`

	// Lifespan is how long an idle browser session is kept on the server.
	Lifespan time.Duration `mapstructure:"lifespan" yaml:"lifespan"`
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	Type  string      `mapstructure:"type" yaml:"type"`
	Redis RedisConfig `mapstructure:"redis" yaml:"redis"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string `mapstructure:"addr" yaml:"addr"`
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"password"`

	// PasswordFile is read when Password is empty.
	PasswordFile string `mapstructure:"password_file" yaml:"password_file"`
	DB           int    `mapstructure:"db" yaml:"db"`
	KeyPrefix    string `mapstructure:"key_prefix" yaml:"key_prefix"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Address                      string        `mapstructure:"address" yaml:"address"`
	PublishJWKS                  bool          `mapstructure:"publish_jwks" yaml:"publish_jwks"`
	Metrics                      bool          `mapstructure:"metrics" yaml:"metrics"`
	EnableDeviceApprovalEndpoint bool          `mapstructure:"enable_device_approval_endpoint" yaml:"enable_device_approval_endpoint"`
	ReadTimeout                  time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout                 time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout              time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// ClientConfig is a statically registered client.
type ClientConfig struct {
	ID     string `mapstructure:"id" yaml:"id"`
	Secret string `mapstructure:"secret" yaml:"secret"`

	// JWKS is an inline JSON Web Key Set; JWKSFile names a file holding one.
	JWKS     string `mapstructure:"jwks" yaml:"jwks"`
	JWKSFile string `mapstructure:"jwks_file" yaml:"jwks_file"`
	JWKSURI  string `mapstructure:"jwks_uri" yaml:"jwks_uri"`

	RequestObjectSigningAlg string        `mapstructure:"request_object_signing_alg" yaml:"request_object_signing_alg"`
	GrantTypes              []string      `mapstructure:"grant_types" yaml:"grant_types"`
	ResponseTypes           []string      `mapstructure:"response_types" yaml:"response_types"`
	Scopes                  []string      `mapstructure:"scopes" yaml:"scopes"`
	RedirectURIs            []string      `mapstructure:"redirect_uris" yaml:"redirect_uris"`
	Audience                []string      `mapstructure:"audience" yaml:"audience"`
	Authorities             []string      `mapstructure:"authorities" yaml:"authorities"`
	DefaultMaxAge           time.Duration `mapstructure:"default_max_age" yaml:"default_max_age"`
	Public                  bool          `mapstructure:"public" yaml:"public"`

	// Introspection allows introspecting tokens issued to other clients.
	Introspection bool `mapstructure:"introspection" yaml:"introspection"`
}

// AssertionConfig configures the JWT-bearer grant.
type AssertionConfig struct {
	// Enabled registers the JWT-bearer granter.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Audience is the aud assertions must carry. Defaults to the token endpoint.
	Audience string `mapstructure:"audience" yaml:"audience"`

	// AllowSelfIssued accepts assertions signed by the engine itself.
	AllowSelfIssued bool `mapstructure:"allow_self_issued" yaml:"allow_self_issued"`

	// TrustedIssuers lists third parties whose assertions are accepted.
	TrustedIssuers []TrustedIssuer `mapstructure:"trusted_issuers" yaml:"trusted_issuers"`
}

// TelemetryConfig configures OTLP trace export. An empty Endpoint disables it.
type TelemetryConfig struct {
	// Endpoint is the OTLP/HTTP collector host:port, e.g. localhost:4318.
	Endpoint     string            `mapstructure:"endpoint" yaml:"endpoint"`
	Headers      map[string]string `mapstructure:"headers" yaml:"headers"`
	Insecure     bool              `mapstructure:"insecure" yaml:"insecure"`
	SamplingRate float64           `mapstructure:"sampling_rate" yaml:"sampling_rate"`
	ServiceName  string            `mapstructure:"service_name" yaml:"service_name"`
}

// TrustedIssuer pairs an assertion iss with the JWKS URI its keys are fetched from.
// It is a list entry rather than a map key because viper splits keys on dots.
type TrustedIssuer struct {
	Issuer  string `mapstructure:"issuer" yaml:"issuer"`
	JWKSURI string `mapstructure:"jwks_uri" yaml:"jwks_uri"`
}

// Load reads the configuration from path, when set, and the environment.
// Defaults are applied and the result is validated.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetDefault("device.enabled", true)
	v.SetDefault("session.enabled", true)
	v.SetDefault("assertion.enabled", true)
	v.SetDefault("telemetry.sampling_rate", DefaultSamplingRate)
	bindEnv(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// envKeys are the scalar keys that may be set from the environment alone.
// Viper only consults AutomaticEnv for keys it already knows about; keys
// with a default are known already.
var envKeys = []string{
	"issuer",
	"keys.dir", "keys.signing_key_file", "keys.signing_algorithm", "keys.encryption_key_file",
	"keys.default_signing_key_id", "keys.default_encryption_key_id", "keys.content_encryption",
	"keys.allow_key_scan",
	"cache.ttl", "cache.max_entries",
	"tokens.access_token_lifespan", "tokens.refresh_token_lifespan",
	"device.verification_uri", "device.lifespan", "device.interval",
	"session.cookie_name", "session.lifespan",
	"storage.type", "storage.redis.addr", "storage.redis.username", "storage.redis.password",
	"storage.redis.password_file", "storage.redis.db", "storage.redis.key_prefix",
	"server.address", "server.publish_jwks", "server.metrics", "server.enable_device_approval_endpoint",
	"server.read_timeout", "server.write_timeout", "server.shutdown_timeout",
	"assertion.audience", "assertion.allow_self_issued",
	"telemetry.endpoint", "telemetry.insecure", "telemetry.service_name",
}

func bindEnv(v *viper.Viper) {
	for _, key := range envKeys {
		// BindEnv only fails when called without a key.
		_ = v.BindEnv(key)
	}
}

func (c *Config) applyDefaults() {
	c.Issuer = strings.TrimSuffix(c.Issuer, "/")
	if c.Cache.TTL <= 0 {
		c.Cache.TTL = DefaultCacheTTL
	}
	if c.Cache.MaxEntries <= 0 {
		c.Cache.MaxEntries = DefaultCacheMaxEntries
	}
	if c.Tokens.AccessTokenLifespan <= 0 {
		c.Tokens.AccessTokenLifespan = DefaultAccessTokenLifespan
	}
	if c.Tokens.RefreshTokenLifespan <= 0 {
		c.Tokens.RefreshTokenLifespan = DefaultRefreshTokenLifespan
	}
	if c.Device.Lifespan <= 0 {
		c.Device.Lifespan = DefaultDeviceCodeLifespan
	}
	if c.Device.Interval <= 0 {
		c.Device.Interval = DefaultDeviceInterval
	}
	if c.Session.Lifespan <= 0 {
		c.Session.Lifespan = DefaultSessionLifespan
	}
	if c.Device.VerificationURI == "" && c.Issuer != "" {
		c.Device.VerificationURI = c.Issuer + "/device"
	}
	if c.Storage.Type == "" {
		c.Storage.Type = StorageTypeMemory
	}
	if c.Server.Address == "" {
		c.Server.Address = DefaultAddress
	}
	if c.Server.ReadTimeout <= 0 {
		c.Server.ReadTimeout = DefaultReadTimeout
	}
	if c.Server.WriteTimeout <= 0 {
		c.Server.WriteTimeout = DefaultWriteTimeout
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if c.Assertion.Audience == "" && c.Issuer != "" {
		c.Assertion.Audience = c.Issuer + "/oauth/token"
	}
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = DefaultServiceName
	}
}

// Validate checks that the Config is complete and consistent.
func (c *Config) Validate() error {
	if c.Issuer == "" {
		return fmt.Errorf("issuer is required")
	}
	u, err := url.Parse(c.Issuer)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("issuer %q must be an absolute URL", c.Issuer)
	}
	if c.Keys.SigningKeyFile == "" && c.Keys.Dir != "" {
		return fmt.Errorf("keys.signing_key_file is required when keys.dir is set")
	}

	switch c.Storage.Type {
	case StorageTypeMemory:
	case StorageTypeRedis:
		if c.Storage.Redis.Addr == "" {
			return fmt.Errorf("storage.redis.addr is required for redis storage")
		}
	default:
		return fmt.Errorf("unknown storage type: %s", c.Storage.Type)
	}

	seen := make(map[string]bool, len(c.Clients))
	for i, client := range c.Clients {
		if err := client.Validate(); err != nil {
			return fmt.Errorf("client %d: %w", i, err)
		}
		if seen[client.ID] {
			return fmt.Errorf("client %d: duplicate client id %q", i, client.ID)
		}
		seen[client.ID] = true
	}

	for i, ti := range c.Assertion.TrustedIssuers {
		if ti.Issuer == "" {
			return fmt.Errorf("assertion.trusted_issuers[%d]: issuer is required", i)
		}
		if _, err := url.ParseRequestURI(ti.JWKSURI); err != nil {
			return fmt.Errorf("assertion.trusted_issuers[%d]: invalid JWKS URI: %w", i, err)
		}
	}

	if c.Telemetry.SamplingRate < 0 || c.Telemetry.SamplingRate > 1 {
		return fmt.Errorf("telemetry.sampling_rate must be between 0 and 1, got %v", c.Telemetry.SamplingRate)
	}
	return nil
}

// Validate checks that the ClientConfig is valid.
func (c *ClientConfig) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("id is required")
	}
	if !c.Public && c.Secret == "" && c.JWKS == "" && c.JWKSFile == "" && c.JWKSURI == "" {
		return fmt.Errorf("confidential client %s needs a secret or keys", c.ID)
	}
	if c.JWKS != "" && c.JWKSFile != "" {
		return fmt.Errorf("client %s: jwks and jwks_file are mutually exclusive", c.ID)
	}
	if c.Public && c.Introspection {
		return fmt.Errorf("client %s: public clients cannot introspect tokens", c.ID)
	}
	if size, ok := hmacSecretSizes[c.RequestObjectSigningAlg]; ok {
		alg := c.RequestObjectSigningAlg
		switch {
		case strings.HasPrefix(c.Secret, "$2"):
			return fmt.Errorf("client %s: %s request objects need the plain secret, not a bcrypt hash", c.ID, alg)
		case len(c.Secret) < size:
			return fmt.Errorf("client %s: %s request objects need a secret of at least %d bytes", c.ID, alg, size)
		}
	}
	return nil
}

// hmacSecretSizes is the minimum client secret length per HMAC algorithm.
// Shorter secrets are refused by the signature library.
var hmacSecretSizes = map[string]int{
	"HS256": 32,
	"HS384": 48,
	"HS512": 64,
}

// RedisPassword resolves the Redis password. A direct value takes
// precedence over PasswordFile.
func (c *RedisConfig) RedisPassword() (string, error) {
	if c.Password != "" || c.PasswordFile == "" {
		return c.Password, nil
	}
	data, err := os.ReadFile(c.PasswordFile) // #nosec G304 - file path is provided by the operator
	if err != nil {
		return "", fmt.Errorf("failed to read Redis password file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}
