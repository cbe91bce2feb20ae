// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/ory/fosite"

	"github.com/stacklok/trustengine/pkg/authserver/introspection"
	"github.com/stacklok/trustengine/pkg/authserver/storage"
)

// ContentTypeIntrospectionJWT requests and labels JWT introspection responses (RFC 9701).
const ContentTypeIntrospectionJWT = "application/token-introspection+jwt"

// IntrospectionHandler handles POST /oauth/introspect requests (RFC 7662).
// Unknown, revoked and expired tokens are reported as inactive, as are
// tokens of other clients unless the caller may introspect any token.
func (h *Handler) IntrospectionHandler(w http.ResponseWriter, req *http.Request) {
	if err := req.ParseForm(); err != nil {
		writeError(w, fosite.ErrInvalidRequest.WithHint("Unable to parse the request body.").WithWrap(err))
		return
	}
	caller, err := h.authenticateClient(req)
	if err != nil {
		writeError(w, err)
		return
	}
	if caller.Public {
		writeError(w, fosite.ErrUnauthorizedClient.WithHint("Public clients cannot introspect tokens."))
		return
	}

	value := req.PostForm.Get("token")
	if value == "" {
		writeError(w, fosite.ErrInvalidRequest.WithHint("The token parameter is required."))
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	doc := introspection.Inactive()
	token, err := h.deps.Tokens.Read(req.Context(), value)
	switch {
	case stderrors.Is(err, storage.ErrNotFound):
	case err != nil:
		writeError(w, err)
		return
	case token.ClientID == caller.ID || caller.Introspection:
		doc = introspection.Assemble(token, nil, h.now())
	}

	if h.deps.Signer != nil && strings.Contains(req.Header.Get("Accept"), ContentTypeIntrospectionJWT) {
		h.writeIntrospectionJWT(w, req, caller, doc)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// writeIntrospectionJWT signs doc for caller and encrypts it when the
// caller has registered encryption keys.
func (h *Handler) writeIntrospectionJWT(w http.ResponseWriter, req *http.Request, caller *storage.Client, doc map[string]any) {
	signed, err := h.deps.Signer.SignClaims(map[string]any{
		"iss":                 h.cfg.Issuer,
		"aud":                 caller.ID,
		"iat":                 h.now().Unix(),
		"token_introspection": doc,
	}, "")
	if err != nil {
		writeError(w, fmt.Errorf("failed to sign introspection response: %w", err))
		return
	}

	out := signed
	if h.deps.Encrypters != nil {
		enc, err := h.deps.Encrypters.Encrypter(req.Context(), caller)
		if err != nil {
			writeError(w, fmt.Errorf("failed to resolve client encryption keys: %w", err))
			return
		}
		if enc != nil {
			// Clients may register several encryption keys; the first one is used.
			var keyID string
			if published := enc.PublicKeys().Keys; len(published) > 0 {
				keyID = published[0].KeyID
			}
			out, err = enc.EncryptJWT(signed, keyID)
			if err != nil {
				writeError(w, fmt.Errorf("failed to encrypt introspection response: %w", err))
				return
			}
		}
	}

	w.Header().Set("Content-Type", ContentTypeIntrospectionJWT)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(out))
}
