// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package granter implements the token endpoint grant types the trust
// engine serves: chained delegation, device code polling, JWT-bearer
// assertions and refresh token redemption.
package granter

import (
	"context"
	stderrors "errors"
	"maps"
	"slices"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/trustengine/pkg/authserver/storage"
	"github.com/stacklok/trustengine/pkg/errors"
)

//go:generate mockgen -destination=mocks/mock_granter.go -package=mocks -source=granter.go TokenIssuer,Granter

// Grant type identifiers.
const (
	GrantTypeChained   = "urn:ietf:params:oauth:grant_type:redelegate"
	GrantTypeDevice    = "urn:ietf:params:oauth:grant-type:device_code"
	GrantTypeJWTBearer = "urn:ietf:params:oauth:grant-type:jwt-bearer"
	GrantTypeRefresh   = "refresh_token"
)

// Token request parameters consumed by the granters.
const (
	ParamToken      = "token"
	ParamScope      = "scope"
	ParamDeviceCode = "device_code"
	ParamAssertion  = "assertion"
	ParamRefresh    = "refresh_token"
)

const tracerName = "github.com/stacklok/trustengine/pkg/authserver/granter"

// ErrUnsupportedGrantType is returned by the Registry for grant types it
// has no granter for.
var ErrUnsupportedGrantType = stderrors.New("unsupported grant type")

// TokenRequest is a token endpoint request after client authentication.
type TokenRequest struct {
	GrantType  string
	Scope      []string
	Parameters map[string]string
}

// Param returns a request parameter or "".
func (r *TokenRequest) Param(name string) string {
	return r.Parameters[name]
}

// TokenIssuer mints and persists tokens for an authentication.
type TokenIssuer interface {
	Issue(ctx context.Context, client *storage.Client, auth *storage.Authentication) (*storage.IssuedToken, error)
}

// Granter exchanges one grant type for a token.
type Granter interface {
	// GrantType returns the grant type identifier handled.
	GrantType() string

	// Grant returns the issued token. A nil token with a nil error means the
	// grant was refused without a specific reason.
	Grant(ctx context.Context, client *storage.Client, req *TokenRequest) (*storage.IssuedToken, error)
}

// Registry dispatches token requests to granters by grant type.
type Registry struct {
	granters map[string]Granter
	tracer   trace.Tracer
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithTracerProvider sets the provider used for grant spans. The global
// provider is used otherwise.
func WithTracerProvider(tp trace.TracerProvider) RegistryOption {
	return func(r *Registry) { r.tracer = tp.Tracer(tracerName) }
}

// NewRegistry creates a Registry over granters. A later granter replaces an
// earlier one with the same grant type.
func NewRegistry(granters []Granter, opts ...RegistryOption) *Registry {
	r := &Registry{
		granters: make(map[string]Granter, len(granters)),
		tracer:   otel.Tracer(tracerName),
	}
	for _, g := range granters {
		r.granters[g.GrantType()] = g
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Supports reports whether a granter is registered for grantType.
func (r *Registry) Supports(grantType string) bool {
	_, ok := r.granters[grantType]
	return ok
}

// GrantTypes returns the registered grant type identifiers.
func (r *Registry) GrantTypes() []string {
	out := slices.Collect(maps.Keys(r.granters))
	slices.Sort(out)
	return out
}

// Grant runs the granter for req.GrantType.
func (r *Registry) Grant(ctx context.Context, client *storage.Client, req *TokenRequest) (_ *storage.IssuedToken, retErr error) {
	ctx, span := r.tracer.Start(ctx, "granter.Grant",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("oauth.grant_type", req.GrantType),
			attribute.String("oauth.client_id", client.ID),
		),
	)
	defer func() {
		if retErr != nil {
			span.RecordError(retErr)
			span.SetAttributes(attribute.String("oauth.error_type", errors.TypeOf(retErr)))
			span.SetStatus(codes.Error, retErr.Error())
		}
		span.End()
	}()

	g, ok := r.granters[req.GrantType]
	if !ok {
		return nil, ErrUnsupportedGrantType
	}
	if !client.HasGrantType(req.GrantType) {
		return nil, errors.NewInvalidGrantError("client "+client.ID+" is not authorized for grant type "+req.GrantType, nil)
	}

	token, err := g.Grant(ctx, client, req)
	if err != nil {
		return nil, err
	}
	if token == nil {
		return nil, errors.NewInvalidGrantError("grant was refused", nil)
	}
	return token, nil
}

// requestParameters copies the parameters worth keeping on an authentication.
func requestParameters(req *TokenRequest) map[string]string {
	out := maps.Clone(req.Parameters)
	delete(out, ParamAssertion)
	delete(out, ParamToken)
	delete(out, ParamDeviceCode)
	delete(out, ParamRefresh)
	delete(out, "client_secret")
	return out
}
