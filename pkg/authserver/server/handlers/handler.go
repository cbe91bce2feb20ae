// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-jose/go-jose/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stacklok/trustengine/pkg/authserver/device"
	"github.com/stacklok/trustengine/pkg/authserver/granter"
	"github.com/stacklok/trustengine/pkg/authserver/jwe"
	"github.com/stacklok/trustengine/pkg/authserver/sessionstate"
	"github.com/stacklok/trustengine/pkg/authserver/storage"
)

// TokenGranter exchanges token requests for issued tokens.
type TokenGranter interface {
	Grant(ctx context.Context, client *storage.Client, req *granter.TokenRequest) (*storage.IssuedToken, error)
	GrantTypes() []string
}

// RequestProcessor normalizes authorization requests.
type RequestProcessor interface {
	Process(ctx context.Context, params url.Values) (*storage.AuthorizationRequest, error)
}

// TokenService resolves and revokes issued tokens by value.
type TokenService interface {
	Read(ctx context.Context, value string) (*storage.IssuedToken, error)
	Revoke(ctx context.Context, value string) error
}

// ClaimsSigner signs JWT responses with the engine's default key.
type ClaimsSigner interface {
	SignClaims(claims any, keyID string) (string, error)
}

// EncrypterResolver returns an encrypter over a client's encryption keys,
// or nil if the client registered none.
type EncrypterResolver interface {
	Encrypter(ctx context.Context, client *storage.Client) (*jwe.Service, error)
}

// DeviceAuthorizer creates and approves device codes.
type DeviceAuthorizer interface {
	Create(ctx context.Context, client *storage.Client, scope []string, params map[string]string) (*device.Authorization, error)
	Approve(ctx context.Context, userCode string, user *storage.UserAuthentication) (*storage.DeviceCode, error)
}

// KeyPublisher exposes public keys for the JWKS endpoint.
type KeyPublisher interface {
	PublicKeys() jose.JSONWebKeySet
}

// Config controls which endpoints the Handler exposes.
type Config struct {
	// Issuer is the base URL advertised in discovery metadata.
	Issuer string

	// PublishJWKS exposes /.well-known/jwks.json.
	PublishJWKS bool

	// EnableDeviceApproval exposes POST /oauth/device/approve.
	EnableDeviceApproval bool

	// Metrics exposes /metrics from Gatherer.
	Metrics bool

	// TokenSigningAlgs are the algorithms issued tokens may be signed with.
	TokenSigningAlgs []string

	// RequestObjectSigningAlgs are advertised as request_object_signing_alg_values_supported.
	RequestObjectSigningAlgs []string

	// RequestObjectEncryptionAlgs and RequestObjectEncryptionEncs are advertised
	// when request objects may be encrypted.
	RequestObjectEncryptionAlgs []string
	RequestObjectEncryptionEncs []string
}

// Dependencies are the engine components the Handler serves.
type Dependencies struct {
	Clients  storage.ClientLookup
	Grants   TokenGranter
	Requests RequestProcessor
	Tokens   TokenService

	// Devices may be nil when the device flow is not configured.
	Devices DeviceAuthorizer

	// Sessions may be nil when OIDC session management is not configured.
	Sessions *sessionstate.Helper

	// Signer enables JWT introspection responses. Encrypters, when set,
	// encrypts them for clients with encryption keys.
	Signer     ClaimsSigner
	Encrypters EncrypterResolver

	Keys     []KeyPublisher
	Gatherer prometheus.Gatherer
}

// Handler provides HTTP handlers for the trust engine endpoints.
type Handler struct {
	cfg  Config
	deps Dependencies
	now  func() time.Time
}

// NewHandler creates a new Handler with the given dependencies.
func NewHandler(cfg Config, deps Dependencies) *Handler {
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}
	return &Handler{cfg: cfg, deps: deps, now: time.Now}
}

// Routes returns a router with all enabled endpoints registered.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	h.OAuthRoutes(r)
	h.WellKnownRoutes(r)
	if h.cfg.Metrics {
		r.Handle("/metrics", promhttp.HandlerFor(h.deps.Gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// OAuthRoutes registers OAuth endpoints on the provided router.
func (h *Handler) OAuthRoutes(r chi.Router) {
	r.Get("/oauth/authorize", h.AuthorizeHandler)
	r.Post("/oauth/authorize", h.AuthorizeHandler)
	r.Post("/oauth/token", h.TokenHandler)
	r.Post("/oauth/introspect", h.IntrospectionHandler)
	r.Post("/oauth/revoke", h.RevocationHandler)
	if h.deps.Devices != nil {
		r.Post("/oauth/device_authorization", h.DeviceAuthorizationHandler)
		if h.cfg.EnableDeviceApproval {
			r.Post("/oauth/device/approve", h.DeviceApprovalHandler)
		}
	}
	if h.deps.Sessions != nil {
		r.Get("/oauth/check_session", h.CheckSessionHandler)
		r.Get("/oauth/logout", h.LogoutHandler)
		r.Post("/oauth/logout", h.LogoutHandler)
	}
}

// WellKnownRoutes registers well-known endpoints on the provided router.
func (h *Handler) WellKnownRoutes(r chi.Router) {
	r.Get("/.well-known/openid-configuration", h.DiscoveryHandler)
	if h.cfg.PublishJWKS {
		r.Get("/.well-known/jwks.json", h.JWKSHandler)
	}
}
