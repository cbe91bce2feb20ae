// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package storage provides the data model of the trust engine and the
// collaborator interfaces it persists through, with in-memory and Redis
// implementations.
package storage

//go:generate mockgen -destination=mocks/mock_storage.go -package=mocks -source=types.go ClientLookup,TokenStore,DeviceCodeStore,SessionStore

import (
	"context"
	"errors"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/ory/fosite"

	"github.com/stacklok/trustengine/pkg/authserver/keys"
)

// ErrNotFound is returned when a record does not exist or has expired.
var ErrNotFound = errors.New("not found")

// ErrAlreadyExists is returned when a device or user code is already taken.
var ErrAlreadyExists = errors.New("already exists")

// Client is a registered OAuth2 client. It implements fosite.Client.
type Client struct {
	ID string `json:"client_id"`

	// Secret is kept as registered: it is the HMAC key for HS* request objects.
	Secret string `json:"client_secret,omitempty"`

	// JWKS holds keys registered inline with the client.
	JWKS *keys.KeySet `json:"jwks,omitempty"`

	// JWKSURI is consulted for asymmetric keys when JWKS is empty.
	JWKSURI string `json:"jwks_uri,omitempty"`

	// RequestObjectSigningAlg must exactly equal the alg of request objects the client sends.
	RequestObjectSigningAlg string `json:"request_object_signing_alg,omitempty"`

	GrantTypes    []string `json:"grant_types,omitempty"`
	ResponseTypes []string `json:"response_types,omitempty"`
	Scopes        []string `json:"scope,omitempty"`
	RedirectURIs  []string `json:"redirect_uris,omitempty"`
	Audience      []string `json:"audience,omitempty"`
	Authorities   []string `json:"authorities,omitempty"`

	// DefaultMaxAge is applied as max_age when a request does not carry one.
	DefaultMaxAge time.Duration `json:"default_max_age,omitempty"`

	Public bool `json:"public,omitempty"`

	// Introspection lets a confidential client introspect tokens issued to
	// other clients, as a resource server does.
	Introspection bool `json:"introspection,omitempty"`
}

var _ fosite.Client = (*Client)(nil)

// GetID returns the client ID.
func (c *Client) GetID() string { return c.ID }

// GetHashedSecret returns the client secret bytes.
func (c *Client) GetHashedSecret() []byte { return []byte(c.Secret) }

// GetRedirectURIs returns the registered redirect URIs.
func (c *Client) GetRedirectURIs() []string { return c.RedirectURIs }

// GetGrantTypes returns the registered grant types.
func (c *Client) GetGrantTypes() fosite.Arguments { return c.GrantTypes }

// GetResponseTypes returns the registered response types.
func (c *Client) GetResponseTypes() fosite.Arguments { return c.ResponseTypes }

// GetScopes returns the registered scopes.
func (c *Client) GetScopes() fosite.Arguments { return c.Scopes }

// IsPublic reports whether the client is public.
func (c *Client) IsPublic() bool { return c.Public }

// GetAudience returns the registered audience.
func (c *Client) GetAudience() fosite.Arguments { return c.Audience }

// HasGrantType reports whether the client is registered for grantType.
func (c *Client) HasGrantType(grantType string) bool {
	return slices.Contains(c.GrantTypes, grantType)
}

// AuthorizationRequest is the normalized authorization request handed to granters.
type AuthorizationRequest struct {
	ClientID      string   `json:"client_id"`
	ResponseTypes []string `json:"response_types,omitempty"`
	RedirectURI   string   `json:"redirect_uri,omitempty"`
	Scope         []string `json:"scope,omitempty"`
	State         string   `json:"state,omitempty"`

	// Extensions carries nonce, display, prompt, claims, login_hint, max_age,
	// code_challenge and code_challenge_method.
	Extensions map[string]string `json:"extensions,omitempty"`
}

// OAuth2Request is the client half of an authentication.
type OAuth2Request struct {
	ClientID          string            `json:"client_id"`
	Scope             []string          `json:"scope,omitempty"`
	GrantType         string            `json:"grant_type,omitempty"`
	RequestParameters map[string]string `json:"request_parameters,omitempty"`
	Extensions        map[string]string `json:"extensions,omitempty"`
}

// UserAuthentication is the end-user principal of an authentication.
type UserAuthentication struct {
	Subject     string   `json:"subject"`
	Authorities []string `json:"authorities,omitempty"`

	// Assertion is set for principals established by a JWT-bearer grant.
	Assertion string `json:"assertion,omitempty"`
}

// Authentication binds an OAuth2 request to an optional end-user principal.
type Authentication struct {
	Request OAuth2Request       `json:"request"`
	User    *UserAuthentication `json:"user,omitempty"`
}

// Subject returns the end-user subject, or the client ID for client-only authentications.
func (a *Authentication) Subject() string {
	if a.User != nil && a.User.Subject != "" {
		return a.User.Subject
	}
	return a.Request.ClientID
}

// Clone returns a deep copy of a.
func (a *Authentication) Clone() *Authentication {
	if a == nil {
		return nil
	}
	out := &Authentication{Request: OAuth2Request{
		ClientID:          a.Request.ClientID,
		Scope:             slices.Clone(a.Request.Scope),
		GrantType:         a.Request.GrantType,
		RequestParameters: maps.Clone(a.Request.RequestParameters),
		Extensions:        maps.Clone(a.Request.Extensions),
	}}
	if a.User != nil {
		out.User = &UserAuthentication{
			Subject:     a.User.Subject,
			Authorities: slices.Clone(a.User.Authorities),
			Assertion:   a.User.Assertion,
		}
	}
	return out
}

// TokenType distinguishes access from refresh tokens.
type TokenType string

const (
	// TokenTypeAccess is an access token.
	TokenTypeAccess TokenType = "access_token"
	// TokenTypeRefresh is a refresh token.
	TokenTypeRefresh TokenType = "refresh_token"
)

// IssuedToken is an access or refresh token produced by a granter.
type IssuedToken struct {
	Value          string          `json:"value"`
	ID             string          `json:"jti,omitempty"`
	Type           TokenType       `json:"type"`
	Scope          []string        `json:"scope,omitempty"`
	ClientID       string          `json:"client_id"`
	Authentication *Authentication `json:"authentication,omitempty"`
	IssuedAt       time.Time       `json:"issued_at"`
	ExpiresAt      time.Time       `json:"expires_at"`

	// RefreshTokenValue links an access token to the refresh token issued with it.
	RefreshTokenValue string `json:"refresh_token,omitempty"`
}

// IsExpired checks if the token has expired at the given time.
func (t *IssuedToken) IsExpired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// Clone returns a deep copy of t.
func (t *IssuedToken) Clone() *IssuedToken {
	out := *t
	out.Scope = slices.Clone(t.Scope)
	out.Authentication = t.Authentication.Clone()
	return &out
}

// DeviceCode is a pending, approved or expired device authorization.
type DeviceCode struct {
	Code      string    `json:"device_code"`
	UserCode  string    `json:"user_code"`
	ClientID  string    `json:"client_id"`
	Scope     []string  `json:"scope,omitempty"`
	Approved  bool      `json:"approved"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`

	// Authentication is set only once the code is approved.
	Authentication    *Authentication   `json:"authentication,omitempty"`
	RequestParameters map[string]string `json:"request_parameters,omitempty"`
}

// IsExpired checks if the code has expired at the given time.
func (d *DeviceCode) IsExpired(now time.Time) bool {
	return now.After(d.ExpiresAt)
}

// Clone returns a deep copy of d.
func (d *DeviceCode) Clone() *DeviceCode {
	out := *d
	out.Scope = slices.Clone(d.Scope)
	out.Authentication = d.Authentication.Clone()
	out.RequestParameters = maps.Clone(d.RequestParameters)
	return &out
}

// BrowserSession is the server-held half of OIDC session management: the
// session_state record of one browser, keyed by an opaque session ID.
type BrowserSession struct {
	ID         string    `json:"id"`
	StateValue string    `json:"state_value,omitempty"`
	StateSalt  string    `json:"state_salt,omitempty"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// IsExpired checks if the session has expired at the given time.
func (b *BrowserSession) IsExpired(now time.Time) bool {
	return now.After(b.ExpiresAt)
}

// ClientLookup resolves clients by ID.
type ClientLookup interface {
	// GetClient returns the client or an error wrapping ErrNotFound.
	GetClient(ctx context.Context, clientID string) (*Client, error)
}

// TokenStore persists issued tokens.
type TokenStore interface {
	// StoreToken saves a token until its expiration.
	StoreToken(ctx context.Context, token *IssuedToken) error

	// GetToken returns the token or an error wrapping ErrNotFound if it is
	// unknown, revoked or expired.
	GetToken(ctx context.Context, value string) (*IssuedToken, error)

	// RevokeToken deletes the token. Revoking an unknown token is not an error.
	RevokeToken(ctx context.Context, value string) error
}

// DeviceCodeStore persists device authorizations.
type DeviceCodeStore interface {
	// CreateDeviceCode saves a new pending device code.
	CreateDeviceCode(ctx context.Context, code *DeviceCode) error

	// GetDeviceCode returns the device code by its value.
	GetDeviceCode(ctx context.Context, code string) (*DeviceCode, error)

	// GetDeviceCodeByUserCode returns the device code by its user code.
	GetDeviceCodeByUserCode(ctx context.Context, userCode string) (*DeviceCode, error)

	// ApproveDeviceCode marks the code approved and attaches auth.
	ApproveDeviceCode(ctx context.Context, code string, auth *Authentication) (*DeviceCode, error)

	// ConsumeDeviceCode atomically removes the code and returns it. Only one
	// caller can consume a code; the others get an error wrapping ErrNotFound.
	ConsumeDeviceCode(ctx context.Context, code string) (*DeviceCode, error)
}

// SessionStore persists browser sessions.
type SessionStore interface {
	// StoreSession saves or replaces a session until its expiration.
	StoreSession(ctx context.Context, session *BrowserSession) error

	// GetSession returns the session or an error wrapping ErrNotFound if it
	// is unknown, deleted or expired.
	GetSession(ctx context.Context, id string) (*BrowserSession, error)

	// DeleteSession removes the session. Deleting an unknown session is not an error.
	DeleteSession(ctx context.Context, id string) error
}

// Storage is the full persistence surface used by the server.
type Storage interface {
	ClientLookup
	TokenStore
	DeviceCodeStore
	SessionStore

	// RegisterClient adds or replaces a client.
	RegisterClient(ctx context.Context, client *Client) error

	// Close releases resources held by the storage.
	Close() error
}

// ParseScope splits a space-delimited scope string into a de-duplicated set,
// preserving order.
func ParseScope(scope string) []string {
	var out []string
	for _, s := range strings.Fields(scope) {
		if !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}

// JoinScope renders a scope set as a space-delimited string.
func JoinScope(scope []string) string {
	return strings.Join(scope, " ")
}
