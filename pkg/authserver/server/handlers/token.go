// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"crypto/subtle"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ory/fosite"
	"golang.org/x/crypto/bcrypt"

	"github.com/stacklok/trustengine/pkg/authserver/granter"
	"github.com/stacklok/trustengine/pkg/authserver/storage"
)

// tokenResponse is the successful token endpoint response (RFC 6749 section 5.1).
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	Scope        string `json:"scope,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// TokenHandler handles POST /oauth/token requests.
// It authenticates the client and dispatches the request to the granter
// registered for its grant_type.
func (h *Handler) TokenHandler(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	if err := req.ParseForm(); err != nil {
		writeError(w, fosite.ErrInvalidRequest.WithHint("Unable to parse the request body.").WithWrap(err))
		return
	}

	client, err := h.authenticateClient(req)
	if err != nil {
		writeError(w, err)
		return
	}

	tokenReq := &granter.TokenRequest{
		GrantType:  req.PostForm.Get("grant_type"),
		Scope:      storage.ParseScope(req.PostForm.Get("scope")),
		Parameters: flatten(req.PostForm),
	}
	if tokenReq.GrantType == "" {
		writeError(w, fosite.ErrInvalidRequest.WithHint("The grant_type parameter is required."))
		return
	}
	if err := validateResource(req.PostForm, client); err != nil {
		writeError(w, err)
		return
	}

	token, err := h.deps.Grants.Grant(ctx, client, tokenReq)
	if err != nil {
		writeError(w, err)
		return
	}

	slog.Debug("issued access token",
		"client_id", client.ID,
		"grant_type", tokenReq.GrantType,
	)

	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  token.Value,
		TokenType:    "bearer",
		ExpiresIn:    expiresIn(token, h.now()),
		Scope:        storage.JoinScope(token.Scope),
		RefreshToken: token.RefreshTokenValue,
	})
}

// authenticateClient resolves the calling client from HTTP basic auth or
// the client_id and client_secret form parameters. Public clients may
// identify themselves with client_id alone.
func (h *Handler) authenticateClient(req *http.Request) (*storage.Client, error) {
	clientID, secret, basic := req.BasicAuth()
	if basic {
		var err error
		if clientID, err = url.QueryUnescape(clientID); err != nil {
			return nil, fosite.ErrInvalidClient.WithHint("Unable to decode the client_id.").WithWrap(err)
		}
		if secret, err = url.QueryUnescape(secret); err != nil {
			return nil, fosite.ErrInvalidClient.WithHint("Unable to decode the client_secret.").WithWrap(err)
		}
	} else {
		clientID = req.PostForm.Get("client_id")
		secret = req.PostForm.Get("client_secret")
	}
	if clientID == "" {
		return nil, fosite.ErrInvalidClient.WithHint("Client authentication is required.")
	}

	client, err := h.deps.Clients.GetClient(req.Context(), clientID)
	if err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return nil, fosite.ErrInvalidClient.WithHint("Unknown client.").WithWrap(err)
		}
		return nil, err
	}

	if client.Public && secret == "" {
		return client, nil
	}
	if !secretMatches(client.Secret, secret) {
		return nil, fosite.ErrInvalidClient.WithHint("Client authentication failed.")
	}
	return client, nil
}

// secretMatches compares a presented secret with a registered one, which is
// either a bcrypt hash or the plain secret.
func secretMatches(registered, presented string) bool {
	if registered == "" {
		return false
	}
	if strings.HasPrefix(registered, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(registered), []byte(presented)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(registered), []byte(presented)) == 1
}

func flatten(form url.Values) map[string]string {
	out := make(map[string]string, len(form))
	for k, v := range form {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}

func expiresIn(token *storage.IssuedToken, now time.Time) int64 {
	return int64(math.Max(0, math.Round(token.ExpiresAt.Sub(now).Seconds())))
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	data, err := json.Marshal(body)
	if err != nil {
		slog.Error("failed to encode response", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(data)
}
