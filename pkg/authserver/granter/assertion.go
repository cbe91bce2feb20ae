// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package granter

import (
	"context"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/stacklok/trustengine/pkg/authserver/clientkeys"
	"github.com/stacklok/trustengine/pkg/authserver/jws"
)

// DefaultAssertionLeeway is the clock skew tolerated on exp, nbf and iat.
const DefaultAssertionLeeway = 30 * time.Second

// claimsValidator returns a golang-jwt validator for assertion claims.
// Expiration is always required.
func claimsValidator(issuer, audience string, now func() time.Time) *jwt.Validator {
	opts := []jwt.ParserOption{
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(DefaultAssertionLeeway),
		jwt.WithTimeFunc(now),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	if audience != "" {
		opts = append(opts, jwt.WithAudience(audience))
	}
	return jwt.NewValidator(opts...)
}

// SelfAssertionValidator trusts assertions this server signed itself.
type SelfAssertionValidator struct {
	issuer   string
	audience string
	verifier jws.Validator
	now      func() time.Time
}

// NewSelfAssertionValidator creates a validator for assertions issued by
// issuer and verified by verifier. audience is checked when not empty.
func NewSelfAssertionValidator(issuer, audience string, verifier jws.Validator) *SelfAssertionValidator {
	return &SelfAssertionValidator{issuer: issuer, audience: audience, verifier: verifier, now: time.Now}
}

// Validate implements AssertionValidator.
func (v *SelfAssertionValidator) Validate(_ context.Context, assertion *Assertion) bool {
	if assertion.Issuer() != v.issuer {
		return false
	}
	if _, err := v.verifier.Verify(assertion.Raw); err != nil {
		slog.Debug("self-issued assertion signature is invalid", "error", err)
		return false
	}
	if err := claimsValidator(v.issuer, v.audience, v.now).Validate(assertion.Claims); err != nil {
		slog.Debug("self-issued assertion claims are invalid", "error", err)
		return false
	}
	return true
}

// WhitelistedIssuerAssertionValidator trusts assertions from a fixed set of
// issuers, each verified with the key set published at its JWKS URI.
type WhitelistedIssuerAssertionValidator struct {
	issuers      map[string]string
	audience     string
	fetcher      clientkeys.RemoteKeySetFetcher
	allowKeyScan bool
	now          func() time.Time
}

// NewWhitelistedIssuerAssertionValidator creates a validator over issuers,
// a map from issuer identifier to JWKS URI.
func NewWhitelistedIssuerAssertionValidator(
	issuers map[string]string, audience string, fetcher clientkeys.RemoteKeySetFetcher, allowKeyScan bool,
) *WhitelistedIssuerAssertionValidator {
	return &WhitelistedIssuerAssertionValidator{
		issuers:      issuers,
		audience:     audience,
		fetcher:      fetcher,
		allowKeyScan: allowKeyScan,
		now:          time.Now,
	}
}

// Validate implements AssertionValidator.
func (v *WhitelistedIssuerAssertionValidator) Validate(ctx context.Context, assertion *Assertion) bool {
	iss := assertion.Issuer()
	uri, ok := v.issuers[iss]
	if !ok {
		return false
	}
	set, err := v.fetcher.Fetch(ctx, uri)
	if err != nil {
		slog.Warn("failed to fetch assertion issuer keys", "iss", iss, "jwks_uri", uri, "error", err)
		return false
	}
	verifier, err := jws.NewService(set, jws.WithKeyScan(v.allowKeyScan))
	if err != nil {
		slog.Warn("assertion issuer keys are unusable", "iss", iss, "error", err)
		return false
	}
	if _, err := verifier.Verify(assertion.Raw); err != nil {
		slog.Debug("assertion signature is invalid", "iss", iss, "error", err)
		return false
	}
	if err := claimsValidator(iss, v.audience, v.now).Validate(assertion.Claims); err != nil {
		slog.Debug("assertion claims are invalid", "iss", iss, "error", err)
		return false
	}
	return true
}

// AnyAssertionValidator trusts an assertion accepted by any of its validators.
type AnyAssertionValidator []AssertionValidator

// Validate implements AssertionValidator.
func (a AnyAssertionValidator) Validate(ctx context.Context, assertion *Assertion) bool {
	for _, v := range a {
		if v.Validate(ctx, assertion) {
			return true
		}
	}
	return false
}
