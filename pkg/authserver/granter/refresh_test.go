// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package granter_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/trustengine/pkg/authserver/granter"
	"github.com/stacklok/trustengine/pkg/authserver/storage"
	"github.com/stacklok/trustengine/pkg/errors"
)

func storeRefresh(t *testing.T, tokens storage.TokenStore, value, clientID string, ttl time.Duration) {
	t.Helper()
	require.NoError(t, tokens.StoreToken(context.Background(), &storage.IssuedToken{
		Value:    value,
		Type:     storage.TokenTypeRefresh,
		Scope:    []string{"read", "write"},
		ClientID: clientID,
		Authentication: &storage.Authentication{
			Request: storage.OAuth2Request{ClientID: clientID, Scope: []string{"read", "write"}},
			User:    &storage.UserAuthentication{Subject: "alice"},
		},
		IssuedAt:  time.Now(),
		ExpiresAt: time.Now().Add(ttl),
	}))
}

func TestRefreshTokenGranter(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	mem := newMemory(t)
	client := &storage.Client{ID: "web", GrantTypes: []string{granter.GrantTypeRefresh}}
	registry := granter.NewRegistry([]granter.Granter{granter.NewRefreshTokenGranter(mem, newIssuer(t, mem))})

	refresh := func(value string, scope []string) (*storage.IssuedToken, error) {
		return registry.Grant(ctx, client, &granter.TokenRequest{
			GrantType:  granter.GrantTypeRefresh,
			Scope:      scope,
			Parameters: map[string]string{granter.ParamRefresh: value},
		})
	}

	t.Run("redeems and rotates", func(t *testing.T) {
		t.Parallel()
		storeRefresh(t, mem, "rt-1", "web", time.Hour)

		tok, err := refresh("rt-1", nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"read", "write"}, tok.Scope)
		assert.Equal(t, "alice", tok.Authentication.Subject())
		assert.Equal(t, granter.GrantTypeRefresh, tok.Authentication.Request.GrantType)
		assert.NotContains(t, tok.Authentication.Request.RequestParameters, granter.ParamRefresh)

		_, err = refresh("rt-1", nil)
		assert.True(t, errors.IsInvalidGrant(err), "a redeemed refresh token is single-use")
	})

	t.Run("narrows scope", func(t *testing.T) {
		t.Parallel()
		storeRefresh(t, mem, "rt-2", "web", time.Hour)
		tok, err := refresh("rt-2", []string{"read"})
		require.NoError(t, err)
		assert.Equal(t, []string{"read"}, tok.Scope)
	})

	t.Run("wider scope", func(t *testing.T) {
		t.Parallel()
		storeRefresh(t, mem, "rt-3", "web", time.Hour)
		_, err := refresh("rt-3", []string{"read", "admin"})
		assert.True(t, errors.IsInvalidScope(err))
	})

	tests := []struct {
		name  string
		setup func(t *testing.T) string
	}{
		{name: "missing parameter", setup: func(*testing.T) string { return "" }},
		{name: "unknown token", setup: func(*testing.T) string { return "nope" }},
		{name: "expired", setup: func(t *testing.T) string {
			storeRefresh(t, mem, "rt-expired", "web", -time.Minute)
			return "rt-expired"
		}},
		{name: "other client", setup: func(t *testing.T) string {
			storeRefresh(t, mem, "rt-other", "mobile", time.Hour)
			return "rt-other"
		}},
		{name: "access token", setup: func(t *testing.T) string {
			require.NoError(t, mem.StoreToken(ctx, &storage.IssuedToken{
				Value:          "at-1",
				Type:           storage.TokenTypeAccess,
				ClientID:       "web",
				Authentication: &storage.Authentication{Request: storage.OAuth2Request{ClientID: "web"}},
				ExpiresAt:      time.Now().Add(time.Hour),
			}))
			return "at-1"
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := refresh(tt.setup(t), nil)
			require.Error(t, err)
			assert.True(t, errors.IsInvalidGrant(err), "got %v", err)
		})
	}
}
