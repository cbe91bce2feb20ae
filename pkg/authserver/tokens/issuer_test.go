// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package tokens

import (
	"context"
	"testing"
	"time"

	"github.com/go-jose/go-jose/v4"
	josejwt "github.com/go-jose/go-jose/v4/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/trustengine/pkg/authserver/jws"
	"github.com/stacklok/trustengine/pkg/authserver/keys"
	"github.com/stacklok/trustengine/pkg/authserver/storage"
)

const testIssuer = "https://auth.example.com"

func newTestIssuer(t *testing.T) (*Issuer, *jws.Service, *storage.MemoryStorage) {
	t.Helper()
	k, err := keys.GenerateSigningKey("ES256")
	require.NoError(t, err)
	set, err := keys.NewKeySet(k)
	require.NoError(t, err)
	signer, err := jws.NewService(set)
	require.NoError(t, err)

	mem := storage.NewMemoryStorage()
	t.Cleanup(func() { _ = mem.Close() })

	issuer, err := NewIssuer(Config{Issuer: testIssuer, AccessTokenLifespan: 10 * time.Minute}, signer, mem)
	require.NoError(t, err)
	return issuer, signer, mem
}

func testAuth() *storage.Authentication {
	return &storage.Authentication{
		Request: storage.OAuth2Request{ClientID: "web", Scope: []string{"openid", "read"}},
		User:    &storage.UserAuthentication{Subject: "alice"},
	}
}

func TestIssuer_AccessToken(t *testing.T) {
	t.Parallel()

	issuer, signer, mem := newTestIssuer(t)
	client := &storage.Client{ID: "web", Audience: []string{"https://api.example.com"}}

	tok, err := issuer.Issue(context.Background(), client, testAuth())
	require.NoError(t, err)
	assert.Equal(t, storage.TokenTypeAccess, tok.Type)
	assert.Empty(t, tok.RefreshTokenValue)
	assert.Equal(t, 10*time.Minute, tok.ExpiresAt.Sub(tok.IssuedAt))

	parsed, err := josejwt.ParseSigned(tok.Value, []jose.SignatureAlgorithm{jose.ES256})
	require.NoError(t, err)
	pub := signer.PublicKeys().Keys[0]

	var registered josejwt.Claims
	var custom struct {
		Scope    string `json:"scope"`
		ClientID string `json:"client_id"`
	}
	require.NoError(t, parsed.Claims(pub.Key, &registered, &custom))
	assert.Equal(t, testIssuer, registered.Issuer)
	assert.Equal(t, "alice", registered.Subject)
	assert.Equal(t, josejwt.Audience{"https://api.example.com"}, registered.Audience)
	assert.Equal(t, tok.ID, registered.ID)
	assert.Equal(t, "openid read", custom.Scope)
	assert.Equal(t, "web", custom.ClientID)
	require.NoError(t, registered.Validate(josejwt.Expected{Issuer: testIssuer, Time: time.Now()}))

	stored, err := mem.GetToken(context.Background(), tok.Value)
	require.NoError(t, err)
	assert.Equal(t, "alice", stored.Authentication.Subject())
}

func TestIssuer_ResourceNarrowsAudience(t *testing.T) {
	t.Parallel()

	issuer, signer, _ := newTestIssuer(t)
	client := &storage.Client{ID: "web", Audience: []string{"https://api.example.com", "https://files.example.com"}}
	auth := testAuth()
	auth.Request.RequestParameters = map[string]string{ParamResource: "https://files.example.com"}

	tok, err := issuer.Issue(context.Background(), client, auth)
	require.NoError(t, err)

	parsed, err := josejwt.ParseSigned(tok.Value, []jose.SignatureAlgorithm{jose.ES256})
	require.NoError(t, err)
	var registered josejwt.Claims
	require.NoError(t, parsed.Claims(signer.PublicKeys().Keys[0].Key, &registered))
	assert.Equal(t, josejwt.Audience{"https://files.example.com"}, registered.Audience)
}

func TestIssuer_RefreshToken(t *testing.T) {
	t.Parallel()

	issuer, _, _ := newTestIssuer(t)
	client := &storage.Client{ID: "web", GrantTypes: []string{"authorization_code", "refresh_token"}}

	tok, err := issuer.Issue(context.Background(), client, testAuth())
	require.NoError(t, err)
	require.NotEmpty(t, tok.RefreshTokenValue)

	refresh, err := issuer.Read(context.Background(), tok.RefreshTokenValue)
	require.NoError(t, err)
	assert.Equal(t, storage.TokenTypeRefresh, refresh.Type)
	assert.Equal(t, tok.Scope, refresh.Scope)

	require.NoError(t, issuer.Revoke(context.Background(), tok.Value))
	_, err = issuer.Read(context.Background(), tok.Value)
	require.ErrorIs(t, err, storage.ErrNotFound)
	_, err = issuer.Read(context.Background(), tok.RefreshTokenValue)
	require.ErrorIs(t, err, storage.ErrNotFound, "revoking an access token revokes its refresh token")
}

func TestIssuer_ReadExpired(t *testing.T) {
	t.Parallel()

	issuer, _, _ := newTestIssuer(t)
	tok, err := issuer.Issue(context.Background(), &storage.Client{ID: "web"}, testAuth())
	require.NoError(t, err)

	_, err = issuer.Read(context.Background(), tok.Value)
	require.NoError(t, err)

	issuer.now = func() time.Time { return time.Now().Add(time.Hour) }
	_, err = issuer.Read(context.Background(), tok.Value)
	require.ErrorIs(t, err, storage.ErrNotFound)

	_, err = issuer.Read(context.Background(), "unknown")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestNewIssuer_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewIssuer(Config{}, nil, nil)
	require.Error(t, err)

	issuer, _, _ := newTestIssuer(t)
	assert.Equal(t, 10*time.Minute, issuer.Lifespan())
}
