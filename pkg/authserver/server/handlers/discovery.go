// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-jose/go-jose/v4"

	"github.com/stacklok/trustengine/pkg/logger"
)

// Cache-Control max-age values for discovery endpoints.
const (
	// DefaultJWKSCacheMaxAge is the Cache-Control max-age for the JWKS endpoint (1 hour).
	DefaultJWKSCacheMaxAge = 3600

	// DefaultDiscoveryCacheMaxAge is the Cache-Control max-age for the discovery endpoint (1 hour).
	DefaultDiscoveryCacheMaxAge = 3600
)

// discoveryDocument is the subset of OIDC Discovery 1.0 metadata the engine serves.
type discoveryDocument struct {
	Issuer                            string   `json:"issuer"`
	AuthorizationEndpoint             string   `json:"authorization_endpoint"`
	TokenEndpoint                     string   `json:"token_endpoint"`
	IntrospectionEndpoint             string   `json:"introspection_endpoint"`
	RevocationEndpoint                string   `json:"revocation_endpoint"`
	DeviceAuthorizationEndpoint       string   `json:"device_authorization_endpoint,omitempty"`
	CheckSessionIframe                string   `json:"check_session_iframe,omitempty"`
	EndSessionEndpoint                string   `json:"end_session_endpoint,omitempty"`
	JWKSURI                           string   `json:"jwks_uri,omitempty"`
	GrantTypesSupported               []string `json:"grant_types_supported"`
	TokenEndpointAuthMethodsSupported []string `json:"token_endpoint_auth_methods_supported"`
	RequestParameterSupported         bool     `json:"request_parameter_supported"`
	RequestObjectSigningAlgValues     []string `json:"request_object_signing_alg_values_supported,omitempty"`
	RequestObjectEncryptionAlgValues  []string `json:"request_object_encryption_alg_values_supported,omitempty"`
	RequestObjectEncryptionEncValues  []string `json:"request_object_encryption_enc_values_supported,omitempty"`
	IntrospectionEndpointAuthMethods  []string `json:"introspection_endpoint_auth_methods_supported"`
	ResponseTypesSupported            []string `json:"response_types_supported"`
	SubjectTypesSupported             []string `json:"subject_types_supported"`
	IDTokenSigningAlgValues           []string `json:"id_token_signing_alg_values_supported,omitempty"`
}

// publicKeys merges the public keys of every configured publisher.
func (h *Handler) publicKeys() jose.JSONWebKeySet {
	var set jose.JSONWebKeySet
	for _, p := range h.deps.Keys {
		set.Keys = append(set.Keys, p.PublicKeys().Keys...)
	}
	return set
}

// JWKSHandler handles GET /.well-known/jwks.json requests.
// It returns the public signing and encryption keys of the engine.
func (h *Handler) JWKSHandler(w http.ResponseWriter, _ *http.Request) {
	data, err := json.Marshal(h.publicKeys())
	if err != nil {
		logger.Errorw("failed to encode JWKS",
			"error", err.Error(),
		)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", DefaultJWKSCacheMaxAge))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	_, _ = w.Write(data)
}

func (h *Handler) buildDiscovery() discoveryDocument {
	issuer := h.cfg.Issuer
	doc := discoveryDocument{
		Issuer:                            issuer,
		AuthorizationEndpoint:             issuer + "/oauth/authorize",
		TokenEndpoint:                     issuer + "/oauth/token",
		IntrospectionEndpoint:             issuer + "/oauth/introspect",
		RevocationEndpoint:                issuer + "/oauth/revoke",
		GrantTypesSupported:               h.deps.Grants.GrantTypes(),
		TokenEndpointAuthMethodsSupported: []string{"client_secret_basic", "client_secret_post", "none"},
		IntrospectionEndpointAuthMethods:  []string{"client_secret_basic", "client_secret_post"},
		RequestParameterSupported:         true,
		RequestObjectSigningAlgValues:     h.cfg.RequestObjectSigningAlgs,
		RequestObjectEncryptionAlgValues:  h.cfg.RequestObjectEncryptionAlgs,
		RequestObjectEncryptionEncValues:  h.cfg.RequestObjectEncryptionEncs,
		ResponseTypesSupported:            []string{"code", "token"},
		SubjectTypesSupported:             []string{"public"},
		IDTokenSigningAlgValues:           h.cfg.TokenSigningAlgs,
	}
	if h.deps.Devices != nil {
		doc.DeviceAuthorizationEndpoint = issuer + "/oauth/device_authorization"
	}
	if h.deps.Sessions != nil {
		doc.CheckSessionIframe = issuer + "/oauth/check_session"
		doc.EndSessionEndpoint = issuer + "/oauth/logout"
	}
	if h.cfg.PublishJWKS {
		doc.JWKSURI = issuer + "/.well-known/jwks.json"
	}
	return doc
}

// DiscoveryHandler handles GET /.well-known/openid-configuration requests.
func (h *Handler) DiscoveryHandler(w http.ResponseWriter, _ *http.Request) {
	data, err := json.Marshal(h.buildDiscovery())
	if err != nil {
		logger.Errorw("failed to encode discovery document",
			"error", err.Error(),
		)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", DefaultDiscoveryCacheMaxAge))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	_, _ = w.Write(data)
}
