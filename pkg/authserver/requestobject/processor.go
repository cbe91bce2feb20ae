// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package requestobject normalizes authorization requests that carry a
// signed, unsecured or encrypted JWT in their request parameter.
package requestobject

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/stacklok/trustengine/pkg/authserver/jws"
	"github.com/stacklok/trustengine/pkg/authserver/storage"
	"github.com/stacklok/trustengine/pkg/errors"
)

// Parameter names read from the query or form.
const (
	ParamRequest             = "request"
	ParamClientID            = "client_id"
	ParamResponseType        = "response_type"
	ParamRedirectURI         = "redirect_uri"
	ParamScope               = "scope"
	ParamState               = "state"
	ParamNonce               = "nonce"
	ParamDisplay             = "display"
	ParamPrompt              = "prompt"
	ParamClaims              = "claims"
	ParamLoginHint           = "login_hint"
	ParamMaxAge              = "max_age"
	ParamCodeChallenge       = "code_challenge"
	ParamCodeChallengeMethod = "code_challenge_method"
)

// mergedClaims are the request object claims that override query parameters.
var mergedClaims = []string{
	ParamResponseType,
	ParamRedirectURI,
	ParamState,
	ParamNonce,
	ParamDisplay,
	ParamPrompt,
	ParamScope,
	ParamClaims,
	ParamLoginHint,
}

// extensionParams are stored in AuthorizationRequest.Extensions.
var extensionParams = []string{
	ParamNonce,
	ParamDisplay,
	ParamPrompt,
	ParamClaims,
	ParamLoginHint,
	ParamMaxAge,
	ParamCodeChallenge,
	ParamCodeChallengeMethod,
}

// ValidatorResolver resolves the validator for a client and algorithm.
// A nil validator with a nil error means the client has no usable key.
type ValidatorResolver interface {
	Validator(ctx context.Context, client *storage.Client, alg string) (jws.Validator, error)
}

// Decrypter decrypts compact JWE tokens addressed to the server.
type Decrypter interface {
	Decrypt(token string) ([]byte, error)
}

// Processor builds an AuthorizationRequest from request parameters.
type Processor struct {
	clients    storage.ClientLookup
	validators ValidatorResolver
	decrypter  Decrypter
	logger     *slog.Logger
}

// Option configures a Processor.
type Option func(*Processor)

// WithLogger sets the logger. slog.Default() is used otherwise.
func WithLogger(l *slog.Logger) Option {
	return func(p *Processor) { p.logger = l }
}

// NewProcessor creates a Processor. decrypter may be nil, in which case
// encrypted request objects are rejected.
func NewProcessor(clients storage.ClientLookup, validators ValidatorResolver, decrypter Decrypter, opts ...Option) *Processor {
	p := &Processor{
		clients:    clients,
		validators: validators,
		decrypter:  decrypter,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process returns the normalized request. Claims of an accepted request
// object take precedence over query parameters of the same name.
func (p *Processor) Process(ctx context.Context, params url.Values) (*storage.AuthorizationRequest, error) {
	req := fromParams(params)

	var client *storage.Client
	if token := params.Get(ParamRequest); token != "" {
		claims, c, err := p.readRequestObject(ctx, token, req.ClientID, false)
		if err != nil {
			return nil, err
		}
		client = c
		if req.ClientID == "" {
			req.ClientID = client.ID
		}
		p.merge(req, params, claims)
	} else {
		c, err := p.lookupClient(ctx, req.ClientID)
		if err != nil {
			return nil, err
		}
		client = c
	}

	if _, ok := req.Extensions[ParamMaxAge]; !ok && client.DefaultMaxAge > 0 {
		req.Extensions[ParamMaxAge] = strconv.FormatInt(int64(client.DefaultMaxAge.Seconds()), 10)
	}
	return req, nil
}

func fromParams(params url.Values) *storage.AuthorizationRequest {
	req := &storage.AuthorizationRequest{
		ClientID:      params.Get(ParamClientID),
		ResponseTypes: strings.Fields(params.Get(ParamResponseType)),
		RedirectURI:   params.Get(ParamRedirectURI),
		Scope:         storage.ParseScope(params.Get(ParamScope)),
		State:         params.Get(ParamState),
		Extensions:    make(map[string]string),
	}
	for _, name := range extensionParams {
		if v := params.Get(name); v != "" {
			req.Extensions[name] = v
		}
	}
	return req
}

// readRequestObject verifies or decrypts token and returns its claims and
// the client it belongs to.
func (p *Processor) readRequestObject(
	ctx context.Context, token, clientID string, nested bool,
) (map[string]any, *storage.Client, error) {
	switch jws.Segments(token) {
	case 5:
		if nested {
			return nil, nil, errors.NewDecryptionFailureError("nested encrypted request objects are not supported", nil)
		}
		return p.readEncrypted(ctx, token, clientID)
	case 3:
		header, err := jws.PeekHeader(token)
		if err != nil {
			return nil, nil, errors.NewInvalidSignatureError("malformed request object", err)
		}
		if header.Algorithm == jws.AlgNone {
			return p.readUnsecured(ctx, token, clientID)
		}
		return p.readSigned(ctx, token, header.Algorithm, clientID)
	default:
		return nil, nil, errors.NewInvalidSignatureError("request object is not a compact JWT", nil)
	}
}

func (p *Processor) readEncrypted(ctx context.Context, token, clientID string) (map[string]any, *storage.Client, error) {
	if p.decrypter == nil {
		return nil, nil, errors.NewDecryptionFailureError("encrypted request objects are not accepted", nil)
	}
	plaintext, err := p.decrypter.Decrypt(token)
	if err != nil {
		if errors.IsDecryptionFailure(err) {
			return nil, nil, err
		}
		return nil, nil, errors.NewDecryptionFailureError("failed to decrypt request object", err)
	}

	inner := strings.TrimSpace(string(plaintext))
	if n := jws.Segments(inner); !strings.HasPrefix(inner, "{") && (n == 3 || n == 5) {
		return p.readRequestObject(ctx, inner, clientID, true)
	}

	claims, err := decodeClaims(plaintext)
	if err != nil {
		return nil, nil, errors.NewDecryptionFailureError("decrypted request object is not a JWT claims set", err)
	}
	client, err := p.lookupClient(ctx, resolveClientID(clientID, claims))
	if err != nil {
		return nil, nil, err
	}
	return claims, client, nil
}

func (p *Processor) readSigned(
	ctx context.Context, token, alg, clientID string,
) (map[string]any, *storage.Client, error) {
	unverified, err := peekClaims(token)
	if err != nil {
		return nil, nil, errors.NewInvalidSignatureError("malformed request object", err)
	}
	client, err := p.lookupClient(ctx, resolveClientID(clientID, unverified))
	if err != nil {
		return nil, nil, err
	}
	if client.RequestObjectSigningAlg != alg {
		return nil, nil, errors.NewAlgorithmMismatchError(
			fmt.Sprintf("client %s registered %q, request object uses %q", client.ID, client.RequestObjectSigningAlg, alg), nil)
	}

	validator, err := p.validators.Validator(ctx, client, alg)
	if err != nil {
		return nil, nil, errors.NewInvalidSignatureError("failed to resolve client keys", err)
	}
	if validator == nil {
		return nil, nil, errors.NewInvalidSignatureError(
			fmt.Sprintf("client %s has no key usable with %s", client.ID, alg), nil)
	}
	payload, err := validator.Verify(token)
	if err != nil {
		if errors.IsInvalidSignature(err) {
			return nil, nil, err
		}
		return nil, nil, errors.NewInvalidSignatureError("request object signature is invalid", err)
	}
	claims, err := decodeClaims(payload)
	if err != nil {
		return nil, nil, errors.NewInvalidSignatureError("request object payload is not a claims set", err)
	}
	return claims, client, nil
}

func (p *Processor) readUnsecured(ctx context.Context, token, clientID string) (map[string]any, *storage.Client, error) {
	unverified, err := peekClaims(token)
	if err != nil {
		return nil, nil, errors.NewInvalidSignatureError("malformed request object", err)
	}
	client, err := p.lookupClient(ctx, resolveClientID(clientID, unverified))
	if err != nil {
		return nil, nil, err
	}
	if client.RequestObjectSigningAlg != jws.AlgNone {
		return nil, nil, errors.NewAlgorithmMismatchError(
			fmt.Sprintf("client %s does not accept unsecured request objects", client.ID), nil)
	}
	payload, err := jws.Unsigned{}.Verify(token)
	if err != nil {
		return nil, nil, err
	}
	claims, err := decodeClaims(payload)
	if err != nil {
		return nil, nil, errors.NewInvalidSignatureError("request object payload is not a claims set", err)
	}
	return claims, client, nil
}

func (p *Processor) lookupClient(ctx context.Context, clientID string) (*storage.Client, error) {
	if clientID == "" {
		return nil, errors.NewClientNotFoundError("client_id is required", nil)
	}
	client, err := p.clients.GetClient(ctx, clientID)
	if err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return nil, errors.NewClientNotFoundError("unknown client "+clientID, err)
		}
		return nil, fmt.Errorf("failed to look up client %s: %w", clientID, err)
	}
	return client, nil
}

// merge overrides request values with request object claims. A claim that
// disagrees with the query parameter is logged, never rejected.
func (p *Processor) merge(req *storage.AuthorizationRequest, params url.Values, claims map[string]any) {
	for _, name := range mergedClaims {
		raw, ok := claims[name]
		if !ok {
			continue
		}
		value, err := claimString(raw)
		if err != nil {
			p.logger.Info("ignoring request object claim that cannot be read",
				"client_id", req.ClientID, "claim", name, "error", err)
			continue
		}
		if param := params.Get(name); param != "" && param != value {
			p.logger.Info("request object claim overrides query parameter",
				"client_id", req.ClientID, "claim", name, "parameter", param, "value", value)
		}
		apply(req, name, value)
	}
}

func apply(req *storage.AuthorizationRequest, name, value string) {
	switch name {
	case ParamResponseType:
		req.ResponseTypes = strings.Fields(value)
	case ParamRedirectURI:
		req.RedirectURI = value
	case ParamState:
		req.State = value
	case ParamScope:
		req.Scope = storage.ParseScope(value)
	default:
		req.Extensions[name] = value
	}
}

func resolveClientID(param string, claims map[string]any) string {
	if param != "" {
		return param
	}
	if id, ok := claims[ParamClientID].(string); ok && id != "" {
		return id
	}
	// RFC 9101 signals the client through iss when client_id is absent
	id, _ := claims["iss"].(string)
	return id
}

// peekClaims reads the claims of a signed or unsecured JWT without
// verifying it.
func peekClaims(token string) (map[string]any, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

func decodeClaims(payload []byte) (map[string]any, error) {
	var claims map[string]any
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, err
	}
	if claims == nil {
		return nil, fmt.Errorf("claims set is empty")
	}
	return claims, nil
}

// claimString renders a claim as the string a query parameter would carry.
// Structured claims such as "claims" are re-encoded as JSON.
func claimString(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			s, ok := item.(string)
			if !ok {
				return "", fmt.Errorf("array claim holds a %T", item)
			}
			parts = append(parts, s)
		}
		return strings.Join(parts, " "), nil
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
}
