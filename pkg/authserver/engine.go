// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package authserver

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-jose/go-jose/v4"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/trustengine/pkg/authserver/clientkeys"
	"github.com/stacklok/trustengine/pkg/authserver/device"
	"github.com/stacklok/trustengine/pkg/authserver/granter"
	"github.com/stacklok/trustengine/pkg/authserver/jwe"
	"github.com/stacklok/trustengine/pkg/authserver/jwks"
	"github.com/stacklok/trustengine/pkg/authserver/jws"
	"github.com/stacklok/trustengine/pkg/authserver/keys"
	"github.com/stacklok/trustengine/pkg/authserver/requestobject"
	"github.com/stacklok/trustengine/pkg/authserver/server/handlers"
	"github.com/stacklok/trustengine/pkg/authserver/sessionstate"
	"github.com/stacklok/trustengine/pkg/authserver/storage"
	"github.com/stacklok/trustengine/pkg/authserver/tokens"
	"github.com/stacklok/trustengine/pkg/config"
	"github.com/stacklok/trustengine/pkg/logger"
)

// Engine holds every trust engine component. It is built once by New.
type Engine struct {
	Storage    storage.Storage
	Signing    *jws.Service
	Encryption *jwe.Service
	ClientKeys *clientkeys.Cache
	Requests   *requestobject.Processor
	Tokens     *tokens.Issuer
	Grants     *granter.Registry

	// Devices is nil when the device flow is disabled.
	Devices *device.Service

	// Sessions is nil when session management is disabled.
	Sessions *sessionstate.Helper

	handler http.Handler
	cancel  context.CancelFunc
}

// Option configures New.
type Option func(*options)

type options struct {
	storage        storage.Storage
	registerer     prometheus.Registerer
	gatherer       prometheus.Gatherer
	tracerProvider trace.TracerProvider
	httpClient     *http.Client
}

// WithStorage uses stor instead of building one from the storage config.
// The Engine takes ownership and closes it.
func WithStorage(stor storage.Storage) Option {
	return func(o *options) { o.storage = stor }
}

// WithRegistry registers metrics on reg and serves them from /metrics.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(o *options) {
		o.registerer = reg
		o.gatherer = reg
	}
}

// WithTracerProvider sets the provider of grant spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tracerProvider = tp }
}

// WithHTTPClient sets the client used to fetch remote JWKS.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// New builds the Engine described by cfg. cfg must already be validated.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (_ *Engine, retErr error) {
	o := &options{
		registerer:     prometheus.DefaultRegisterer,
		gatherer:       prometheus.DefaultGatherer,
		tracerProvider: otel.GetTracerProvider(),
	}
	for _, opt := range opts {
		opt(o)
	}
	log := logger.Get()
	log.Debug("initializing trust engine", "issuer", cfg.Issuer)

	keyCfg := keys.Config{
		KeyDir:            cfg.Keys.Dir,
		SigningKeyFile:    cfg.Keys.SigningKeyFile,
		SigningAlgorithm:  cfg.Keys.SigningAlgorithm,
		FallbackKeyFiles:  cfg.Keys.FallbackKeyFiles,
		EncryptionKeyFile: cfg.Keys.EncryptionKeyFile,
	}
	signing, err := newSigningService(keyCfg, cfg.Keys)
	if err != nil {
		return nil, err
	}
	encryption, err := newEncryptionService(keyCfg, cfg.Keys)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		if retErr != nil {
			cancel()
		}
	}()

	stor := o.storage
	if stor == nil {
		if stor, err = NewStorage(ctx, cfg.Storage); err != nil {
			return nil, err
		}
	}
	defer func() {
		if retErr != nil {
			_ = stor.Close()
		}
	}()
	if err := RegisterClients(ctx, stor, cfg.Clients); err != nil {
		return nil, err
	}

	fetcher, err := jwks.NewFetcher(ctx, o.httpClient)
	if err != nil {
		return nil, fmt.Errorf("failed to create JWKS fetcher: %w", err)
	}
	cache, err := clientkeys.NewCache(fetcher,
		clientkeys.WithTTL(cfg.Cache.TTL),
		clientkeys.WithMaxEntries(cfg.Cache.MaxEntries),
		clientkeys.WithKeyScan(cfg.Keys.AllowKeyScan),
		clientkeys.WithRegisterer(o.registerer),
		clientkeys.WithLogger(log),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create client key cache: %w", err)
	}

	issuer, err := tokens.NewIssuer(tokens.Config{
		Issuer:               cfg.Issuer,
		AccessTokenLifespan:  cfg.Tokens.AccessTokenLifespan,
		RefreshTokenLifespan: cfg.Tokens.RefreshTokenLifespan,
	}, signing, stor)
	if err != nil {
		return nil, fmt.Errorf("failed to create token issuer: %w", err)
	}

	e := &Engine{
		Storage:    stor,
		Signing:    signing,
		Encryption: encryption,
		ClientKeys: cache,
		Requests:   requestobject.NewProcessor(stor, cache, encryption, requestobject.WithLogger(log)),
		Tokens:     issuer,
		cancel:     cancel,
	}

	granters := []granter.Granter{
		granter.NewChainedGranter(stor, issuer),
		granter.NewRefreshTokenGranter(stor, issuer),
	}
	if cfg.Device.Enabled {
		e.Devices, err = device.NewService(stor, device.Config{
			VerificationURI: cfg.Device.VerificationURI,
			Lifespan:        cfg.Device.Lifespan,
			Interval:        cfg.Device.Interval,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create device service: %w", err)
		}
		granters = append(granters, granter.NewDeviceCodeGranter(stor, issuer))
	}
	if cfg.Assertion.Enabled {
		validator := assertionValidator(cfg, signing, fetcher)
		granters = append(granters, granter.NewJWTBearerGranter(validator, nil, issuer))
	}
	e.Grants = granter.NewRegistry(granters, granter.WithTracerProvider(o.tracerProvider))

	if cfg.Session.Enabled {
		e.Sessions = sessionstate.NewHelper(cfg.Issuer, cfg.Session.CookieName, stor,
			sessionstate.WithLifespan(cfg.Session.Lifespan))
	}

	e.handler = e.newHandler(cfg, o.gatherer, o.tracerProvider)

	log.Info("trust engine initialized",
		"issuer", cfg.Issuer,
		"grant_types", e.Grants.GrantTypes(),
		"clients", len(cfg.Clients),
		"storage", cfg.Storage.Type,
	)
	return e, nil
}

func newSigningService(keyCfg keys.Config, cfg config.KeysConfig) (*jws.Service, error) {
	set, defaultID, err := keys.LoadSigningKeys(keyCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load signing keys: %w", err)
	}
	if cfg.DefaultSigningKeyID != "" {
		defaultID = cfg.DefaultSigningKeyID
	}
	svc, err := jws.NewService(set,
		jws.WithDefaultKeyID(defaultID),
		jws.WithKeyScan(cfg.AllowKeyScan),
		jws.WithLogger(logger.Get()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create signing service: %w", err)
	}
	return svc, nil
}

func newEncryptionService(keyCfg keys.Config, cfg config.KeysConfig) (*jwe.Service, error) {
	set, defaultID, err := keys.LoadEncryptionKeys(keyCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load encryption keys: %w", err)
	}
	if cfg.DefaultEncryptionKeyID != "" {
		defaultID = cfg.DefaultEncryptionKeyID
	}
	opts := []jwe.Option{jwe.WithDefaultKeyID(defaultID), jwe.WithLogger(logger.Get())}
	if cfg.ContentEncryption != "" {
		opts = append(opts, jwe.WithContentEncryption(cfg.ContentEncryption))
	}
	svc, err := jwe.NewService(set, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create encryption service: %w", err)
	}
	return svc, nil
}

func assertionValidator(cfg *config.Config, signing *jws.Service, fetcher *jwks.Fetcher) granter.AssertionValidator {
	var anyOf granter.AnyAssertionValidator
	if cfg.Assertion.AllowSelfIssued {
		anyOf = append(anyOf, granter.NewSelfAssertionValidator(cfg.Issuer, cfg.Assertion.Audience, signing))
	}
	if len(cfg.Assertion.TrustedIssuers) > 0 {
		issuers := make(map[string]string, len(cfg.Assertion.TrustedIssuers))
		for _, ti := range cfg.Assertion.TrustedIssuers {
			issuers[ti.Issuer] = ti.JWKSURI
		}
		anyOf = append(anyOf, granter.NewWhitelistedIssuerAssertionValidator(
			issuers, cfg.Assertion.Audience, fetcher, cfg.Keys.AllowKeyScan))
	}
	return anyOf
}

func (e *Engine) newHandler(cfg *config.Config, gatherer prometheus.Gatherer, tp trace.TracerProvider) http.Handler {
	hcfg := handlers.Config{
		Issuer:                      cfg.Issuer,
		PublishJWKS:                 cfg.Server.PublishJWKS,
		EnableDeviceApproval:        cfg.Server.EnableDeviceApprovalEndpoint,
		Metrics:                     cfg.Server.Metrics,
		TokenSigningAlgs:            e.Signing.SupportedAlgorithms(),
		RequestObjectSigningAlgs:    append(e.Signing.SupportedAlgorithms(), jws.AlgNone),
		RequestObjectEncryptionAlgs: e.Encryption.SupportedEncryptionAlgorithms(),
		RequestObjectEncryptionEncs: e.Encryption.SupportedEncryptionMethods(),
	}
	deps := handlers.Dependencies{
		Clients:  e.Storage,
		Grants:   e.Grants,
		Requests: e.Requests,
		Tokens:   e.Tokens,
		Sessions: e.Sessions,

		Signer:     e.Signing,
		Encrypters: e.ClientKeys,

		Keys:     []handlers.KeyPublisher{e.Signing, e.Encryption},
		Gatherer: gatherer,
	}
	// A nil *device.Service must not become a non-nil interface.
	if e.Devices != nil {
		deps.Devices = e.Devices
	}
	return otelhttp.NewHandler(handlers.NewHandler(hcfg, deps).Routes(), "trustd",
		otelhttp.WithTracerProvider(tp),
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}

// Handler returns the HTTP handler serving every enabled endpoint.
func (e *Engine) Handler() http.Handler {
	return e.handler
}

// PublicKeys returns the public signing and encryption keys, as published
// on the JWKS endpoint.
func (e *Engine) PublicKeys() jose.JSONWebKeySet {
	set := e.Signing.PublicKeys()
	set.Keys = append(set.Keys, e.Encryption.PublicKeys().Keys...)
	return set
}

// Close stops background JWKS refreshes and releases storage.
func (e *Engine) Close() error {
	logger.Debugw("closing trust engine")
	e.cancel()
	return e.Storage.Close()
}
