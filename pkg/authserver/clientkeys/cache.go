// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package clientkeys resolves the validator and encrypter to use for a
// registered client.
//
// Asymmetric validators are built from the client's inline key set or the
// set published at its jwks_uri, and are cached by the key set fingerprint
// so a rotated set produces a new entry. HMAC validators are built from the
// client secret. Each cache is a TTL-bounded LRU and concurrent misses for
// the same entry are collapsed into a single build.
package clientkeys

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/singleflight"

	"github.com/stacklok/trustengine/pkg/authserver/jwe"
	"github.com/stacklok/trustengine/pkg/authserver/jws"
	"github.com/stacklok/trustengine/pkg/authserver/keys"
	"github.com/stacklok/trustengine/pkg/authserver/storage"
)

const (
	// DefaultTTL is how long a built validator or encrypter is kept.
	DefaultTTL = time.Hour
	// DefaultMaxEntries bounds each backing cache.
	DefaultMaxEntries = 100
)

// Cache hands out per-client validators and encrypters.
type Cache struct {
	fetcher      RemoteKeySetFetcher
	allowKeyScan bool
	logger       *slog.Logger
	metrics      *metrics

	validators *expirable.LRU[string, jws.Validator]
	encrypters *expirable.LRU[string, *jwe.Service]
	group      singleflight.Group

	// builders, replaced in tests
	newValidator func(*keys.KeySet) (jws.Validator, error)
	newEncrypter func(*keys.KeySet) (*jwe.Service, error)
}

type options struct {
	ttl          time.Duration
	maxEntries   int
	allowKeyScan bool
	registerer   prometheus.Registerer
	logger       *slog.Logger
}

// Option configures a Cache.
type Option func(*options)

// WithTTL sets the lifetime of cache entries.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) { o.ttl = ttl }
}

// WithMaxEntries sets the size bound of each backing cache.
func WithMaxEntries(n int) Option {
	return func(o *options) { o.maxEntries = n }
}

// WithKeyScan lets validators try every compatible client key when a
// token carries no kid.
func WithKeyScan(allow bool) Option {
	return func(o *options) { o.allowKeyScan = allow }
}

// WithRegisterer registers the cache metrics with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// WithLogger sets the logger. slog.Default() is used otherwise.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// NewCache creates a Cache. fetcher may be nil, in which case clients that
// only publish a jwks_uri get no asymmetric validator.
func NewCache(fetcher RemoteKeySetFetcher, opts ...Option) (*Cache, error) {
	o := options{
		ttl:        DefaultTTL,
		maxEntries: DefaultMaxEntries,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.ttl <= 0 {
		return nil, fmt.Errorf("cache TTL must be positive, got %s", o.ttl)
	}
	if o.maxEntries <= 0 {
		return nil, fmt.Errorf("cache size must be positive, got %d", o.maxEntries)
	}

	m, err := newMetrics(o.registerer)
	if err != nil {
		return nil, fmt.Errorf("failed to register cache metrics: %w", err)
	}

	c := &Cache{
		fetcher:      fetcher,
		allowKeyScan: o.allowKeyScan,
		logger:       o.logger,
		metrics:      m,
		validators:   expirable.NewLRU[string, jws.Validator](o.maxEntries, nil, o.ttl),
		encrypters:   expirable.NewLRU[string, *jwe.Service](o.maxEntries, nil, o.ttl),
	}
	c.newValidator = func(set *keys.KeySet) (jws.Validator, error) {
		return jws.NewService(set, jws.WithKeyScan(c.allowKeyScan), jws.WithLogger(c.logger))
	}
	c.newEncrypter = func(set *keys.KeySet) (*jwe.Service, error) {
		return jwe.NewService(set, jwe.WithLogger(c.logger))
	}
	return c, nil
}

// Validator returns the validator for tokens the client signs with alg.
// It returns (nil, nil) when the client has no key usable with alg.
func (c *Cache) Validator(ctx context.Context, client *storage.Client, alg string) (jws.Validator, error) {
	if client == nil {
		return nil, nil
	}

	switch {
	case alg == jws.AlgNone:
		if client.RequestObjectSigningAlg != jws.AlgNone {
			return nil, nil
		}
		return jws.Unsigned{}, nil

	case !jws.IsSupported(alg):
		return nil, nil

	case jws.IsSymmetric(alg):
		if client.Secret == "" {
			return nil, nil
		}
		sum := sha256.Sum256([]byte(client.Secret))
		key := "hmac:" + client.ID + ":" + hex.EncodeToString(sum[:])
		return lookup(c, cacheValidator, c.validators, key, func() (jws.Validator, error) {
			k, err := keys.NewKey([]byte(client.Secret), client.ID, "", keys.UseSig)
			if err != nil {
				return nil, fmt.Errorf("failed to build client secret key: %w", err)
			}
			set, err := keys.NewKeySet(k)
			if err != nil {
				return nil, err
			}
			return c.newValidator(set)
		})
	}

	set, err := c.clientKeySet(ctx, client)
	if err != nil || set == nil {
		return nil, err
	}
	fingerprint, err := set.Fingerprint()
	if err != nil {
		return nil, fmt.Errorf("failed to fingerprint client key set: %w", err)
	}
	return lookup(c, cacheValidator, c.validators, "jwks:"+fingerprint, func() (jws.Validator, error) {
		return c.newValidator(set)
	})
}

// Encrypter returns an encrypter over the client's public encryption keys,
// or (nil, nil) if the client has none.
func (c *Cache) Encrypter(ctx context.Context, client *storage.Client) (*jwe.Service, error) {
	if client == nil {
		return nil, nil
	}
	set, err := c.clientKeySet(ctx, client)
	if err != nil || set == nil {
		return nil, err
	}

	encSet, err := keys.NewKeySet()
	if err != nil {
		return nil, err
	}
	for _, k := range set.Filter(func(k *keys.Key) bool {
		return k.UsableFor(keys.UseEnc) && k.Family() != keys.FamilyOct
	}) {
		if err := encSet.Add(k.Public()); err != nil {
			return nil, err
		}
	}
	if encSet.Len() == 0 {
		return nil, nil
	}

	fingerprint, err := encSet.Fingerprint()
	if err != nil {
		return nil, fmt.Errorf("failed to fingerprint client key set: %w", err)
	}
	return lookup(c, cacheEncrypter, c.encrypters, "jwks:"+fingerprint, func() (*jwe.Service, error) {
		return c.newEncrypter(encSet)
	})
}

// clientKeySet returns the inline key set, the one published at the
// client's jwks_uri, or nil if there is neither.
func (c *Cache) clientKeySet(ctx context.Context, client *storage.Client) (*keys.KeySet, error) {
	if client.JWKS != nil && client.JWKS.Len() > 0 {
		return client.JWKS, nil
	}
	if client.JWKSURI == "" || c.fetcher == nil {
		return nil, nil
	}
	set, err := c.fetcher.Fetch(ctx, client.JWKSURI)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch keys for client %s: %w", client.ID, err)
	}
	if set == nil || set.Len() == 0 {
		return nil, nil
	}
	return set, nil
}

// lookup returns the cached value for key, building it at most once
// across concurrent callers. Build failures are not cached.
func lookup[V any](c *Cache, name string, lru *expirable.LRU[string, V], key string, build func() (V, error)) (V, error) {
	if v, ok := lru.Get(key); ok {
		c.metrics.observe(name, resultHit)
		return v, nil
	}
	c.metrics.observe(name, resultMiss)

	result, err, _ := c.group.Do(name+"|"+key, func() (any, error) {
		if v, ok := lru.Get(key); ok {
			return v, nil
		}
		v, err := build()
		if err != nil {
			return nil, err
		}
		lru.Add(key, v)
		c.logger.Debug("built client key cache entry", "cache", name)
		return v, nil
	})
	if err != nil {
		c.metrics.observe(name, resultError)
		var zero V
		return zero, err
	}
	return result.(V), nil
}
