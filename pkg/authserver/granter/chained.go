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

// ChainedGranter exchanges a valid access token for a new token carrying
// the same end-user principal and an equal or narrower scope. The original
// token stays valid.
type ChainedGranter struct {
	tokens storage.TokenStore
	issuer TokenIssuer
	now    func() time.Time
}

// NewChainedGranter creates a ChainedGranter.
func NewChainedGranter(tokens storage.TokenStore, issuer TokenIssuer) *ChainedGranter {
	return &ChainedGranter{tokens: tokens, issuer: issuer, now: time.Now}
}

// GrantType implements Granter.
func (*ChainedGranter) GrantType() string { return GrantTypeChained }

// Grant implements Granter.
func (g *ChainedGranter) Grant(ctx context.Context, client *storage.Client, req *TokenRequest) (*storage.IssuedToken, error) {
	value := req.Param(ParamToken)
	if value == "" {
		return nil, errors.NewInvalidGrantError("token parameter is required", nil)
	}

	parent, err := g.tokens.GetToken(ctx, value)
	if err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return nil, errors.NewInvalidGrantError("token is unknown", err)
		}
		return nil, fmt.Errorf("failed to read token: %w", err)
	}
	if parent.IsExpired(g.now()) {
		return nil, errors.NewInvalidGrantError("token has expired", nil)
	}
	if parent.Type != storage.TokenTypeAccess || parent.Authentication == nil {
		return nil, errors.NewInvalidGrantError("token cannot be delegated", nil)
	}

	scope, err := chainedScope(req.Scope, parent.Scope, client.Scopes)
	if err != nil {
		return nil, err
	}

	auth := parent.Authentication.Clone()
	auth.Request = storage.OAuth2Request{
		ClientID:          client.ID,
		Scope:             scope,
		GrantType:         GrantTypeChained,
		RequestParameters: requestParameters(req),
		Extensions:        auth.Request.Extensions,
	}
	return g.issuer.Issue(ctx, client, auth)
}

// chainedScope returns the scope of a delegated token. An empty request, or
// one naming exactly the client's registered scopes, inherits the parent's
// approved scope.
func chainedScope(requested, approved, registered []string) ([]string, error) {
	if len(requested) == 0 || sameSet(requested, registered) {
		return slices.Clone(approved), nil
	}
	var out []string
	for _, s := range requested {
		if !slices.Contains(approved, s) {
			return nil, errors.NewInvalidScopeError(
				fmt.Sprintf("scope %q was not approved for the original token", s), nil)
		}
		out = append(out, s)
	}
	return out, nil
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for _, s := range a {
		if !slices.Contains(b, s) {
			return false
		}
	}
	return true
}
