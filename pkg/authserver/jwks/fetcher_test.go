// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package jwks

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/trustengine/pkg/authserver/keys"
)

func createTestJWKSServer(t *testing.T, body []byte, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestFetcher_Fetch(t *testing.T) {
	t.Parallel()

	ecKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	k, err := keys.NewKey(&ecKey.PublicKey, "client-key-1", "ES256", keys.UseSig)
	require.NoError(t, err)
	set, err := keys.NewKeySet(k)
	require.NoError(t, err)
	body, err := json.Marshal(set.Public())
	require.NoError(t, err)

	var hits atomic.Int32
	server := createTestJWKSServer(t, body, &hits)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	fetcher, err := NewFetcher(ctx, server.Client())
	require.NoError(t, err)

	got, err := fetcher.Fetch(ctx, server.URL)
	require.NoError(t, err)
	require.Equal(t, 1, got.Len())
	key, ok := got.Get("client-key-1")
	require.True(t, ok)
	assert.Equal(t, keys.FamilyEC, key.Family())
	assert.False(t, key.HasPrivate())

	_, err = fetcher.Fetch(ctx, server.URL)
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load(), "second fetch is served from cache")
}

func TestFetcher_Errors(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	var hits atomic.Int32
	server := createTestJWKSServer(t, []byte("not json"), &hits)
	fetcher, err := NewFetcher(ctx, server.Client())
	require.NoError(t, err)

	_, err = fetcher.Fetch(ctx, "")
	require.Error(t, err)

	_, err = fetcher.Fetch(ctx, server.URL)
	require.Error(t, err)
}

func TestFetcher_ConcurrentFirstFetch(t *testing.T) {
	t.Parallel()

	ecKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	k, err := keys.NewKey(&ecKey.PublicKey, "client-key-1", "ES256", keys.UseSig)
	require.NoError(t, err)
	set, err := keys.NewKeySet(k)
	require.NoError(t, err)
	body, err := json.Marshal(set.Public())
	require.NoError(t, err)

	var hits atomic.Int32
	server := createTestJWKSServer(t, body, &hits)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	fetcher, err := NewFetcher(ctx, server.Client())
	require.NoError(t, err)

	const callers = 8
	errs := make(chan error, callers)
	for range callers {
		go func() {
			_, err := fetcher.Fetch(ctx, server.URL)
			errs <- err
		}()
	}
	for range callers {
		require.NoError(t, <-errs)
	}
}
