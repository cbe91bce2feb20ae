// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package granter

import (
	"context"
	stderrors "errors"
	"fmt"
	"slices"
	"time"

	"github.com/stacklok/trustengine/pkg/authserver/storage"
	"github.com/stacklok/trustengine/pkg/errors"
)

// RefreshTokenGranter redeems a refresh token for a new access token. The
// presented refresh token is revoked and replaced by the one issued with
// the new access token.
type RefreshTokenGranter struct {
	tokens storage.TokenStore
	issuer TokenIssuer
	now    func() time.Time
}

// NewRefreshTokenGranter creates a RefreshTokenGranter.
func NewRefreshTokenGranter(tokens storage.TokenStore, issuer TokenIssuer) *RefreshTokenGranter {
	return &RefreshTokenGranter{tokens: tokens, issuer: issuer, now: time.Now}
}

// GrantType implements Granter.
func (*RefreshTokenGranter) GrantType() string { return GrantTypeRefresh }

// Grant implements Granter.
func (g *RefreshTokenGranter) Grant(ctx context.Context, client *storage.Client, req *TokenRequest) (*storage.IssuedToken, error) {
	value := req.Param(ParamRefresh)
	if value == "" {
		return nil, errors.NewInvalidGrantError("refresh_token parameter is required", nil)
	}

	refresh, err := g.tokens.GetToken(ctx, value)
	if err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return nil, errors.NewInvalidGrantError("refresh token is unknown", err)
		}
		return nil, fmt.Errorf("failed to read refresh token: %w", err)
	}
	if refresh.Type != storage.TokenTypeRefresh || refresh.Authentication == nil {
		return nil, errors.NewInvalidGrantError("token is not a refresh token", nil)
	}
	if refresh.IsExpired(g.now()) {
		return nil, errors.NewInvalidGrantError("refresh token has expired", nil)
	}
	if refresh.ClientID != client.ID {
		return nil, errors.NewInvalidGrantError("refresh token was issued to another client", nil)
	}

	scope, err := narrowScope(req.Scope, refresh.Scope)
	if err != nil {
		return nil, err
	}

	auth := refresh.Authentication.Clone()
	auth.Request = storage.OAuth2Request{
		ClientID:          client.ID,
		Scope:             scope,
		GrantType:         GrantTypeRefresh,
		RequestParameters: requestParameters(req),
		Extensions:        auth.Request.Extensions,
	}
	if err := g.tokens.RevokeToken(ctx, value); err != nil {
		return nil, fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return g.issuer.Issue(ctx, client, auth)
}

// narrowScope returns requested if it is a subset of granted. An empty
// request keeps the granted scope.
func narrowScope(requested, granted []string) ([]string, error) {
	if len(requested) == 0 {
		return slices.Clone(granted), nil
	}
	for _, s := range requested {
		if !slices.Contains(granted, s) {
			return nil, errors.NewInvalidScopeError(
				fmt.Sprintf("scope %q was not granted to the refresh token", s), nil)
		}
	}
	return slices.Clone(requested), nil
}
