// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package granter

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/golang-jwt/jwt/v5"

	"github.com/stacklok/trustengine/pkg/authserver/storage"
	"github.com/stacklok/trustengine/pkg/errors"
)

//go:generate mockgen -destination=mocks/mock_assertion.go -package=mocks -source=jwtbearer.go AssertionValidator,AssertionRequestFactory

// Assertion is a JWT-bearer assertion parsed without verification.
type Assertion struct {
	Raw    string
	Claims jwt.MapClaims
}

// Issuer returns the iss claim.
func (a *Assertion) Issuer() string {
	iss, _ := a.Claims.GetIssuer()
	return iss
}

// Subject returns the sub claim.
func (a *Assertion) Subject() string {
	sub, _ := a.Claims.GetSubject()
	return sub
}

// AssertionValidator decides whether an assertion is trusted.
type AssertionValidator interface {
	Validate(ctx context.Context, assertion *Assertion) bool
}

// AssertionRequestFactory builds the OAuth2 request of an assertion grant.
type AssertionRequestFactory interface {
	CreateRequest(ctx context.Context, client *storage.Client, req *TokenRequest, assertion *Assertion) (*storage.OAuth2Request, error)
}

// JWTBearerGranter exchanges a trusted assertion for a token whose
// principal is the assertion subject.
//
// A malformed or untrusted assertion produces no token and no error; the
// Registry reports that as a generic invalid_grant.
type JWTBearerGranter struct {
	validator AssertionValidator
	requests  AssertionRequestFactory
	issuer    TokenIssuer
}

// NewJWTBearerGranter creates a JWTBearerGranter. If requests is nil,
// DefaultAssertionRequestFactory is used.
func NewJWTBearerGranter(validator AssertionValidator, requests AssertionRequestFactory, issuer TokenIssuer) *JWTBearerGranter {
	if requests == nil {
		requests = DefaultAssertionRequestFactory{}
	}
	return &JWTBearerGranter{validator: validator, requests: requests, issuer: issuer}
}

// GrantType implements Granter.
func (*JWTBearerGranter) GrantType() string { return GrantTypeJWTBearer }

// Grant implements Granter.
func (g *JWTBearerGranter) Grant(ctx context.Context, client *storage.Client, req *TokenRequest) (*storage.IssuedToken, error) {
	raw := req.Param(ParamAssertion)
	if raw == "" {
		slog.Debug("jwt-bearer grant without assertion", "client_id", client.ID)
		return nil, nil
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		slog.Debug("jwt-bearer assertion is malformed", "client_id", client.ID, "error", err)
		return nil, nil
	}
	assertion := &Assertion{Raw: raw, Claims: claims}

	if !g.validator.Validate(ctx, assertion) {
		slog.Debug("jwt-bearer assertion rejected", "client_id", client.ID, "iss", assertion.Issuer())
		return nil, nil
	}
	subject := assertion.Subject()
	if subject == "" {
		slog.Debug("jwt-bearer assertion has no subject", "client_id", client.ID)
		return nil, nil
	}

	request, err := g.requests.CreateRequest(ctx, client, req, assertion)
	if err != nil {
		return nil, err
	}
	request.ClientID = client.ID
	request.GrantType = GrantTypeJWTBearer

	auth := &storage.Authentication{
		Request: *request,
		User: &storage.UserAuthentication{
			Subject:     subject,
			Authorities: slices.Clone(client.Authorities),
			Assertion:   raw,
		},
	}
	return g.issuer.Issue(ctx, client, auth)
}

// DefaultAssertionRequestFactory takes the scope from the request, then
// from the assertion's scope claim, then from the client registration.
// Scopes the client is not registered for are rejected.
type DefaultAssertionRequestFactory struct{}

// CreateRequest implements AssertionRequestFactory.
func (DefaultAssertionRequestFactory) CreateRequest(
	_ context.Context, client *storage.Client, req *TokenRequest, assertion *Assertion,
) (*storage.OAuth2Request, error) {
	scope := req.Scope
	if len(scope) == 0 {
		if s, ok := assertion.Claims["scope"].(string); ok {
			scope = storage.ParseScope(s)
		}
	}
	if len(scope) == 0 {
		scope = slices.Clone(client.Scopes)
	}
	if len(client.Scopes) > 0 {
		for _, s := range scope {
			if !slices.Contains(client.Scopes, s) {
				return nil, errors.NewInvalidScopeError(
					fmt.Sprintf("client %s is not registered for scope %q", client.ID, s), nil)
			}
		}
	}
	return &storage.OAuth2Request{
		ClientID:          client.ID,
		Scope:             scope,
		GrantType:         GrantTypeJWTBearer,
		RequestParameters: requestParameters(req),
	}, nil
}
