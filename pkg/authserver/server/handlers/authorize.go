// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/ory/fosite"

	"github.com/stacklok/trustengine/pkg/authserver/storage"
)

// authorizeResponse is the normalized request plus the OIDC session_state
// of the browser that sent it.
type authorizeResponse struct {
	*storage.AuthorizationRequest
	SessionState string `json:"session_state,omitempty"`
}

// AuthorizeHandler handles GET and POST /oauth/authorize requests.
// Request objects passed by value are decrypted, verified and merged into
// the query parameters. The normalized request is returned as JSON for the
// consent layer in front of the engine.
func (h *Handler) AuthorizeHandler(w http.ResponseWriter, req *http.Request) {
	if err := req.ParseForm(); err != nil {
		writeError(w, fosite.ErrInvalidRequest.WithHint("Unable to parse the request.").WithWrap(err))
		return
	}
	if req.Form.Has("request_uri") {
		writeError(w, fosite.ErrRequestURINotSupported)
		return
	}

	authReq, err := h.deps.Requests.Process(req.Context(), req.Form)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := authorizeResponse{AuthorizationRequest: authReq}
	if h.deps.Sessions != nil && authReq.RedirectURI != "" {
		state, err := h.sessionState(w, req, authReq)
		if err != nil {
			writeError(w, err)
			return
		}
		resp.SessionState = state
	}

	slog.Debug("processed authorization request",
		"client_id", authReq.ClientID,
		"request_object", req.Form.Has("request"),
	)
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, resp)
}

// sessionState computes the session_state for authReq from the browser's
// server session, creating the session on first use. The browser-state
// cookie is rewritten whenever it disagrees with the server-held record.
func (h *Handler) sessionState(w http.ResponseWriter, req *http.Request, authReq *storage.AuthorizationRequest) (string, error) {
	sessions := h.deps.Sessions
	session, err := sessions.Load(req.Context(), req)
	if err != nil {
		return "", err
	}
	state, err := sessions.SessionState(authReq.ClientID, authReq.RedirectURI, session)
	if err != nil {
		return "", fosite.ErrInvalidRequest.WithHint("The redirect_uri must be an absolute URI.").WithWrap(err)
	}
	if err := sessions.Save(req.Context(), w, session); err != nil {
		return "", err
	}
	if sessions.HasChanged(req, session) {
		if err := sessions.WriteCookie(w, session); err != nil {
			return "", err
		}
	}
	return state, nil
}
