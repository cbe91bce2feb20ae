// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/trustengine/pkg/authserver/clientkeys"
	"github.com/stacklok/trustengine/pkg/authserver/device"
	"github.com/stacklok/trustengine/pkg/authserver/granter"
	"github.com/stacklok/trustengine/pkg/authserver/jwe"
	"github.com/stacklok/trustengine/pkg/authserver/jws"
	"github.com/stacklok/trustengine/pkg/authserver/keys"
	"github.com/stacklok/trustengine/pkg/authserver/requestobject"
	"github.com/stacklok/trustengine/pkg/authserver/sessionstate"
	"github.com/stacklok/trustengine/pkg/authserver/storage"
	"github.com/stacklok/trustengine/pkg/authserver/tokens"
)

const (
	testAudience     = "https://api.example.com"
	testIssuer       = "https://trust.example.com"
	testClientID     = "test-client"
	testClientSecret = "test-client-secret-with-enough-entropy"
	testPublicClient = "public-client"
)

type testServer struct {
	handler  http.Handler
	store    *storage.MemoryStorage
	signing  *jws.Service
	registry *prometheus.Registry
}

type setupOptions struct {
	publishJWKS bool
	approval    bool
	metrics     bool
}

func testSetup(t *testing.T, opts setupOptions) *testServer {
	t.Helper()

	store := storage.NewMemoryStorage()
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	require.NoError(t, store.RegisterClient(ctx, &storage.Client{
		ID:                      testClientID,
		Secret:                  testClientSecret,
		RequestObjectSigningAlg: "HS256",
		GrantTypes:              []string{granter.GrantTypeDevice, granter.GrantTypeChained},
		Scopes:                  []string{"openid", "read", "write"},
		RedirectURIs:            []string{"https://app.example.com/cb"},
		Audience:                []string{testAudience},
	}))
	require.NoError(t, store.RegisterClient(ctx, &storage.Client{
		ID:         testPublicClient,
		Public:     true,
		GrantTypes: []string{granter.GrantTypeDevice},
		Scopes:     []string{"read"},
	}))

	signingKey, err := keys.GenerateSigningKey("ES256")
	require.NoError(t, err)
	signingSet, err := keys.NewKeySet(signingKey)
	require.NoError(t, err)
	signing, err := jws.NewService(signingSet)
	require.NoError(t, err)

	encKey, err := keys.GenerateEncryptionKey()
	require.NoError(t, err)
	encSet, err := keys.NewKeySet(encKey)
	require.NoError(t, err)
	encryption, err := jwe.NewService(encSet)
	require.NoError(t, err)

	issuer, err := tokens.NewIssuer(tokens.Config{Issuer: testIssuer}, signing, store)
	require.NoError(t, err)

	registry := prometheus.NewRegistry()
	cache, err := clientkeys.NewCache(nil, clientkeys.WithRegisterer(registry))
	require.NoError(t, err)

	devices, err := device.NewService(store, device.Config{VerificationURI: testIssuer + "/device"})
	require.NoError(t, err)

	grants := granter.NewRegistry([]granter.Granter{
		granter.NewDeviceCodeGranter(store, issuer),
		granter.NewChainedGranter(store, issuer),
	})

	h := NewHandler(Config{
		Issuer:                   testIssuer,
		PublishJWKS:              opts.publishJWKS,
		EnableDeviceApproval:     opts.approval,
		Metrics:                  opts.metrics,
		RequestObjectSigningAlgs: signing.SupportedAlgorithms(),
	}, Dependencies{
		Clients:    store,
		Grants:     grants,
		Requests:   requestobject.NewProcessor(store, cache, encryption),
		Tokens:     issuer,
		Devices:    devices,
		Sessions:   sessionstate.NewHelper(testIssuer, "", store),
		Signer:     signing,
		Encrypters: cache,
		Keys:       []KeyPublisher{signing, encryption},
		Gatherer:   registry,
	})

	return &testServer{
		handler:  h.Routes(),
		store:    store,
		signing:  signing,
		registry: registry,
	}
}

func (s *testServer) postForm(t *testing.T, path string, form url.Values, basicAuth bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if basicAuth {
		req.SetBasicAuth(testClientID, testClientSecret)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

// postFormWith posts form without basic auth, adding headers to the request.
func (s *testServer) postFormWith(t *testing.T, path string, form url.Values, headers http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for k, v := range headers {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

// storeToken saves an unexpired access token for clientID.
func (s *testServer) storeToken(t *testing.T, value, clientID string) *storage.IssuedToken {
	t.Helper()
	token := &storage.IssuedToken{
		Value:     value,
		Type:      storage.TokenTypeAccess,
		Scope:     []string{"read"},
		ClientID:  clientID,
		IssuedAt:  time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
		Authentication: &storage.Authentication{
			Request: storage.OAuth2Request{ClientID: clientID, Scope: []string{"read"}},
			User:    &storage.UserAuthentication{Subject: "alice"},
		},
	}
	require.NoError(t, s.store.StoreToken(context.Background(), token))
	return token
}

func (s *testServer) get(t *testing.T, target string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}
