// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package tokens mints the access and refresh tokens handed out by the
// token endpoint.
package tokens

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	stderrors "errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/stacklok/trustengine/pkg/authserver/storage"
)

const (
	// DefaultAccessTokenLifespan is the lifetime of an access token.
	DefaultAccessTokenLifespan = time.Hour
	// DefaultRefreshTokenLifespan is the lifetime of a refresh token.
	DefaultRefreshTokenLifespan = 30 * 24 * time.Hour

	// ParamResource is the RFC 8707 request parameter that narrows the
	// token audience to a single registered audience.
	ParamResource = "resource"

	grantTypeRefreshToken = "refresh_token"
	refreshTokenBytes     = 32
)

// Signer signs JWT claims with the server's default key.
type Signer interface {
	SignClaims(claims any, keyID string) (string, error)
}

// Config configures an Issuer.
type Config struct {
	Issuer               string
	AccessTokenLifespan  time.Duration
	RefreshTokenLifespan time.Duration
}

// Issuer mints JWT access tokens and opaque refresh tokens and persists
// them in a TokenStore.
type Issuer struct {
	cfg    Config
	signer Signer
	store  storage.TokenStore
	now    func() time.Time
}

// accessClaims is the body of a JWT access token.
type accessClaims struct {
	Issuer   string   `json:"iss"`
	Subject  string   `json:"sub"`
	Audience []string `json:"aud,omitempty"`
	Scope    string   `json:"scope,omitempty"`
	ClientID string   `json:"client_id"`
	Expiry   int64    `json:"exp"`
	IssuedAt int64    `json:"iat"`
	ID       string   `json:"jti"`
}

// NewIssuer creates an Issuer. Zero lifespans take their defaults.
func NewIssuer(cfg Config, signer Signer, store storage.TokenStore) (*Issuer, error) {
	if cfg.Issuer == "" {
		return nil, fmt.Errorf("issuer is required")
	}
	if signer == nil || store == nil {
		return nil, fmt.Errorf("signer and token store are required")
	}
	if cfg.AccessTokenLifespan <= 0 {
		cfg.AccessTokenLifespan = DefaultAccessTokenLifespan
	}
	if cfg.RefreshTokenLifespan <= 0 {
		cfg.RefreshTokenLifespan = DefaultRefreshTokenLifespan
	}
	return &Issuer{cfg: cfg, signer: signer, store: store, now: time.Now}, nil
}

// Issue mints an access token for auth, plus a refresh token when client
// is registered for the refresh_token grant.
func (i *Issuer) Issue(ctx context.Context, client *storage.Client, auth *storage.Authentication) (*storage.IssuedToken, error) {
	now := i.now().Truncate(time.Second)
	jti := uuid.NewString()

	claims := accessClaims{
		Issuer:   i.cfg.Issuer,
		Subject:  auth.Subject(),
		Audience: audience(client, auth),
		Scope:    storage.JoinScope(auth.Request.Scope),
		ClientID: client.ID,
		Expiry:   now.Add(i.cfg.AccessTokenLifespan).Unix(),
		IssuedAt: now.Unix(),
		ID:       jti,
	}
	value, err := i.signer.SignClaims(claims, "")
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	access := &storage.IssuedToken{
		Value:          value,
		ID:             jti,
		Type:           storage.TokenTypeAccess,
		Scope:          slices.Clone(auth.Request.Scope),
		ClientID:       client.ID,
		Authentication: auth,
		IssuedAt:       now,
		ExpiresAt:      now.Add(i.cfg.AccessTokenLifespan),
	}

	if client.HasGrantType(grantTypeRefreshToken) {
		refreshValue, err := opaqueToken()
		if err != nil {
			return nil, err
		}
		refresh := &storage.IssuedToken{
			Value:          refreshValue,
			ID:             uuid.NewString(),
			Type:           storage.TokenTypeRefresh,
			Scope:          slices.Clone(auth.Request.Scope),
			ClientID:       client.ID,
			Authentication: auth,
			IssuedAt:       now,
			ExpiresAt:      now.Add(i.cfg.RefreshTokenLifespan),
		}
		if err := i.store.StoreToken(ctx, refresh); err != nil {
			return nil, fmt.Errorf("failed to store refresh token: %w", err)
		}
		access.RefreshTokenValue = refreshValue
	}

	if err := i.store.StoreToken(ctx, access); err != nil {
		return nil, fmt.Errorf("failed to store access token: %w", err)
	}
	return access, nil
}

// audience is the requested resource, if any, else every registered audience of client.
func audience(client *storage.Client, auth *storage.Authentication) []string {
	if resource := auth.Request.RequestParameters[ParamResource]; resource != "" {
		return []string{resource}
	}
	return client.Audience
}

// Read returns a live token by value. Unknown, revoked and expired tokens
// yield an error wrapping storage.ErrNotFound.
func (i *Issuer) Read(ctx context.Context, value string) (*storage.IssuedToken, error) {
	tok, err := i.store.GetToken(ctx, value)
	if err != nil {
		return nil, err
	}
	if tok.IsExpired(i.now()) {
		return nil, fmt.Errorf("token expired: %w", storage.ErrNotFound)
	}
	return tok, nil
}

// Revoke removes a token and, for access tokens, its refresh token.
func (i *Issuer) Revoke(ctx context.Context, value string) error {
	tok, err := i.store.GetToken(ctx, value)
	if err != nil && !stderrors.Is(err, storage.ErrNotFound) {
		return err
	}
	if tok != nil && tok.RefreshTokenValue != "" {
		if err := i.store.RevokeToken(ctx, tok.RefreshTokenValue); err != nil {
			return err
		}
	}
	return i.store.RevokeToken(ctx, value)
}

// Lifespan returns the access token lifetime.
func (i *Issuer) Lifespan() time.Duration {
	return i.cfg.AccessTokenLifespan
}

func opaqueToken() (string, error) {
	b := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate refresh token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
