// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package clientkeys

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/stacklok/trustengine/pkg/authserver/clientkeys/mocks"
	"github.com/stacklok/trustengine/pkg/authserver/jwe"
	"github.com/stacklok/trustengine/pkg/authserver/jws"
	"github.com/stacklok/trustengine/pkg/authserver/keys"
	"github.com/stacklok/trustengine/pkg/authserver/storage"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// signer returns a private key set and a service that signs with it.
func signer(t *testing.T, id string) (*keys.KeySet, *jws.Service) {
	t.Helper()
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	k, err := keys.NewKey(priv, id, "ES256", keys.UseSig)
	require.NoError(t, err)
	set, err := keys.NewKeySet(k)
	require.NoError(t, err)
	svc, err := jws.NewService(set)
	require.NoError(t, err)
	return set, svc
}

func publicSet(t *testing.T, set *keys.KeySet) *keys.KeySet {
	t.Helper()
	pub, err := keys.FromJSONWebKeySet(set.Public())
	require.NoError(t, err)
	return pub
}

func newTestCache(t *testing.T, fetcher RemoteKeySetFetcher, opts ...Option) *Cache {
	t.Helper()
	c, err := NewCache(fetcher, opts...)
	require.NoError(t, err)
	return c
}

func TestCache_Validator_InlineKeys(t *testing.T) {
	t.Parallel()

	set, svc := signer(t, "client-key")
	client := &storage.Client{ID: "client-a", JWKS: publicSet(t, set), RequestObjectSigningAlg: "ES256"}
	c := newTestCache(t, nil)

	token, err := svc.Sign([]byte(`{"iss":"client-a"}`), "")
	require.NoError(t, err)

	v, err := c.Validator(context.Background(), client, "ES256")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.True(t, v.Validate(token))

	again, err := c.Validator(context.Background(), client, "ES256")
	require.NoError(t, err)
	assert.Same(t, v, again, "second lookup is served from cache")
}

func TestCache_Validator_ClientSecret(t *testing.T) {
	t.Parallel()

	client := &storage.Client{ID: "client-hmac", Secret: testSecret, RequestObjectSigningAlg: "HS256"}
	k, err := keys.NewKey([]byte(testSecret), client.ID, "", keys.UseSig)
	require.NoError(t, err)
	set, err := keys.NewKeySet(k)
	require.NoError(t, err)
	svc, err := jws.NewService(set)
	require.NoError(t, err)
	token, err := svc.Sign([]byte(`{"iss":"client-hmac"}`), "")
	require.NoError(t, err)

	c := newTestCache(t, nil)
	v, err := c.Validator(context.Background(), client, "HS256")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.True(t, v.Validate(token))

	rotated := *client
	rotated.Secret = "fedcba9876543210fedcba9876543210"
	v2, err := c.Validator(context.Background(), &rotated, "HS256")
	require.NoError(t, err)
	require.NotNil(t, v2)
	assert.NotSame(t, v, v2)
	assert.False(t, v2.Validate(token), "token signed with the old secret no longer validates")
}

func TestCache_Validator_Unresolvable(t *testing.T) {
	t.Parallel()

	set, _ := signer(t, "k")
	tests := []struct {
		name   string
		client *storage.Client
		alg    string
	}{
		{"nil client", nil, "ES256"},
		{"unsupported algorithm", &storage.Client{ID: "c", JWKS: set}, "XX999"},
		{"no keys and no uri", &storage.Client{ID: "c"}, "RS256"},
		{"hmac without secret", &storage.Client{ID: "c"}, "HS256"},
		{"none not registered", &storage.Client{ID: "c", RequestObjectSigningAlg: "RS256"}, jws.AlgNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := newTestCache(t, nil)
			v, err := c.Validator(context.Background(), tt.client, tt.alg)
			require.NoError(t, err)
			assert.Nil(t, v)
		})
	}
}

func TestCache_Validator_Unsigned(t *testing.T) {
	t.Parallel()

	c := newTestCache(t, nil)
	client := &storage.Client{ID: "c", RequestObjectSigningAlg: jws.AlgNone}
	v, err := c.Validator(context.Background(), client, jws.AlgNone)
	require.NoError(t, err)
	require.NotNil(t, v)

	token := jws.Unsigned{}.Sign([]byte(`{"iss":"c"}`))
	assert.True(t, v.Validate(token))
}

func TestCache_Validator_RemoteRotation(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	fetcher := mocks.NewMockRemoteKeySetFetcher(ctrl)

	oldSet, oldSigner := signer(t, "old")
	newSet, newSigner := signer(t, "new")
	client := &storage.Client{ID: "remote", JWKSURI: "https://client.example.com/jwks.json"}

	gomock.InOrder(
		fetcher.EXPECT().Fetch(gomock.Any(), client.JWKSURI).Return(publicSet(t, oldSet), nil),
		fetcher.EXPECT().Fetch(gomock.Any(), client.JWKSURI).Return(publicSet(t, newSet), nil),
	)

	c := newTestCache(t, fetcher)

	v1, err := c.Validator(context.Background(), client, "ES256")
	require.NoError(t, err)
	require.NotNil(t, v1)
	oldToken, err := oldSigner.Sign([]byte(`{}`), "")
	require.NoError(t, err)
	assert.True(t, v1.Validate(oldToken))

	v2, err := c.Validator(context.Background(), client, "ES256")
	require.NoError(t, err)
	require.NotNil(t, v2)
	assert.NotSame(t, v1, v2, "rotated key set yields a new entry")
	newToken, err := newSigner.Sign([]byte(`{}`), "")
	require.NoError(t, err)
	assert.True(t, v2.Validate(newToken))
	assert.False(t, v2.Validate(oldToken))
}

func TestCache_Validator_FetchErrorNotCached(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	fetcher := mocks.NewMockRemoteKeySetFetcher(ctrl)
	set, _ := signer(t, "k")
	client := &storage.Client{ID: "remote", JWKSURI: "https://client.example.com/jwks.json"}

	gomock.InOrder(
		fetcher.EXPECT().Fetch(gomock.Any(), client.JWKSURI).Return(nil, errors.New("connection refused")),
		fetcher.EXPECT().Fetch(gomock.Any(), client.JWKSURI).Return(publicSet(t, set), nil),
	)

	c := newTestCache(t, fetcher)
	_, err := c.Validator(context.Background(), client, "ES256")
	require.Error(t, err)

	v, err := c.Validator(context.Background(), client, "ES256")
	require.NoError(t, err)
	assert.NotNil(t, v)
}

func TestCache_Validator_SingleBuildUnderConcurrency(t *testing.T) {
	t.Parallel()

	set, _ := signer(t, "k")
	client := &storage.Client{ID: "c", JWKS: publicSet(t, set)}
	c := newTestCache(t, nil)

	var builds atomic.Int32
	release := make(chan struct{})
	build := c.newValidator
	c.newValidator = func(s *keys.KeySet) (jws.Validator, error) {
		builds.Add(1)
		<-release
		return build(s)
	}

	const callers = 16
	var wg sync.WaitGroup
	results := make([]jws.Validator, callers)
	for i := range callers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.Validator(context.Background(), client, "ES256")
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), builds.Load())
	for _, v := range results {
		assert.Same(t, results[0], v)
	}
}

func TestCache_Validator_BuildErrorNotCached(t *testing.T) {
	t.Parallel()

	set, _ := signer(t, "k")
	client := &storage.Client{ID: "c", JWKS: publicSet(t, set)}
	c := newTestCache(t, nil)

	var builds atomic.Int32
	build := c.newValidator
	c.newValidator = func(s *keys.KeySet) (jws.Validator, error) {
		if builds.Add(1) == 1 {
			return nil, errors.New("transient")
		}
		return build(s)
	}

	_, err := c.Validator(context.Background(), client, "ES256")
	require.Error(t, err)
	v, err := c.Validator(context.Background(), client, "ES256")
	require.NoError(t, err)
	assert.NotNil(t, v)
	assert.Equal(t, int32(2), builds.Load())
}

func TestCache_Metrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	set, _ := signer(t, "k")
	client := &storage.Client{ID: "c", JWKS: publicSet(t, set)}
	c := newTestCache(t, nil, WithRegisterer(reg))

	for range 3 {
		_, err := c.Validator(context.Background(), client, "ES256")
		require.NoError(t, err)
	}

	assert.Equal(t, float64(1), testutil.ToFloat64(c.metrics.requests.WithLabelValues(cacheValidator, resultMiss)))
	assert.Equal(t, float64(2), testutil.ToFloat64(c.metrics.requests.WithLabelValues(cacheValidator, resultHit)))

	// a second cache on the same registry shares the collector
	_, err := NewCache(nil, WithRegisterer(reg))
	require.NoError(t, err)
}

func TestCache_Encrypter(t *testing.T) {
	t.Parallel()

	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	encKey, err := keys.NewKey(priv, "client-enc", "", keys.UseEnc)
	require.NoError(t, err)
	sigSet, _ := signer(t, "client-sig")
	sigKey, _ := sigSet.Get("client-sig")

	inline, err := keys.NewKeySet(sigKey.Public(), encKey.Public())
	require.NoError(t, err)
	client := &storage.Client{ID: "c", JWKS: inline}

	c := newTestCache(t, nil)
	enc, err := c.Encrypter(context.Background(), client)
	require.NoError(t, err)
	require.NotNil(t, enc)

	token, err := enc.Encrypt([]byte("hello"))
	require.NoError(t, err)

	privSet, err := keys.NewKeySet(encKey)
	require.NoError(t, err)
	dec, err := jwe.NewService(privSet)
	require.NoError(t, err)
	plaintext, err := dec.Decrypt(token)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(plaintext))

	again, err := c.Encrypter(context.Background(), client)
	require.NoError(t, err)
	assert.Same(t, enc, again)

	sigOnly := &storage.Client{ID: "s", JWKS: sigSet}
	none, err := c.Encrypter(context.Background(), sigOnly)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestNewCache_InvalidOptions(t *testing.T) {
	t.Parallel()

	_, err := NewCache(nil, WithTTL(0))
	require.Error(t, err)
	_, err = NewCache(nil, WithMaxEntries(-1))
	require.Error(t, err)
}
