// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package jwks fetches client key sets published at a jwks_uri.
//
// Sets are held in a jwx cache that refreshes them in the background, so a
// client rotating its keys is picked up without a restart.
package jwks

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/lestrrat-go/httprc/v3"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"golang.org/x/sync/singleflight"

	"github.com/stacklok/trustengine/pkg/authserver/keys"
)

// DefaultRegistrationTimeout bounds the first fetch of a newly seen URI.
const DefaultRegistrationTimeout = 5 * time.Second

// Fetcher resolves key sets by URI.
type Fetcher struct {
	cache   *jwk.Cache
	timeout time.Duration

	// registered holds URIs already added to cache. group collapses
	// concurrent first registrations of the same URI.
	registered sync.Map
	group      singleflight.Group
}

// NewFetcher creates a fetcher whose background refresh stops when ctx is done.
// If httpClient is nil, http.DefaultClient is used.
func NewFetcher(ctx context.Context, httpClient *http.Client) (*Fetcher, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	cache, err := jwk.NewCache(ctx, httprc.NewClient(httprc.WithHTTPClient(httpClient)))
	if err != nil {
		return nil, fmt.Errorf("failed to create JWKS cache: %w", err)
	}
	return &Fetcher{
		cache:   cache,
		timeout: DefaultRegistrationTimeout,
	}, nil
}

// ensureRegistered registers uri with the cache on first use. Failed
// registrations are not remembered, so the next call retries. Different
// URIs register independently.
func (f *Fetcher) ensureRegistered(ctx context.Context, uri string) error {
	if _, ok := f.registered.Load(uri); ok {
		return nil
	}

	_, err, _ := f.group.Do(uri, func() (any, error) {
		if _, ok := f.registered.Load(uri); ok {
			return nil, nil
		}

		registrationCtx, cancel := context.WithTimeout(ctx, f.timeout)
		defer cancel()

		if err := f.cache.Register(registrationCtx, uri); err != nil {
			_ = f.cache.Unregister(ctx, uri)
			return nil, fmt.Errorf("failed to register JWKS URL: %w", err)
		}
		f.registered.Store(uri, struct{}{})
		return nil, nil
	})
	return err
}

// Fetch returns the key set currently published at uri.
func (f *Fetcher) Fetch(ctx context.Context, uri string) (*keys.KeySet, error) {
	if uri == "" {
		return nil, fmt.Errorf("JWKS URL is empty")
	}
	if err := f.ensureRegistered(ctx, uri); err != nil {
		return nil, err
	}

	set, err := f.cache.Lookup(ctx, uri)
	if err != nil {
		return nil, fmt.Errorf("failed to lookup JWKS: %w", err)
	}

	// Round-trip through JSON to move from jwx keys to go-jose keys.
	raw, err := json.Marshal(set)
	if err != nil {
		return nil, fmt.Errorf("failed to encode JWKS: %w", err)
	}
	ks, err := keys.ParsePublishedKeySet(raw)
	if err != nil {
		return nil, fmt.Errorf("JWKS at %s is invalid: %w", uri, err)
	}
	return ks, nil
}
