// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	stderrors "errors"
	"log/slog"
	"net/http"

	"github.com/ory/fosite"

	"github.com/stacklok/trustengine/pkg/authserver/storage"
)

// RevocationHandler handles POST /oauth/revoke requests (RFC 7009).
// Revoking an access token also revokes its refresh token. Unknown tokens
// are answered with 200, tokens of other clients are refused.
func (h *Handler) RevocationHandler(w http.ResponseWriter, req *http.Request) {
	if err := req.ParseForm(); err != nil {
		writeError(w, fosite.ErrInvalidRequest.WithHint("Unable to parse the request body.").WithWrap(err))
		return
	}
	client, err := h.authenticateClient(req)
	if err != nil {
		writeError(w, err)
		return
	}

	value := req.PostForm.Get("token")
	if value == "" {
		writeError(w, fosite.ErrInvalidRequest.WithHint("The token parameter is required."))
		return
	}

	token, err := h.deps.Tokens.Read(req.Context(), value)
	switch {
	case stderrors.Is(err, storage.ErrNotFound):
	case err != nil:
		writeError(w, err)
		return
	case token.ClientID != client.ID:
		writeError(w, fosite.ErrUnauthorizedClient.WithHint("The token was issued to another client."))
		return
	default:
		if err := h.deps.Tokens.Revoke(req.Context(), value); err != nil {
			writeError(w, err)
			return
		}
		slog.Debug("revoked token", "client_id", client.ID, "token_type", token.Type)
	}

	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
}
