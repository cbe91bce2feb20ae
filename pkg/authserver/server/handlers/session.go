// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/ory/fosite"

	"github.com/stacklok/trustengine/pkg/authserver/sessionstate"
)

// Session check results.
const (
	sessionChanged   = "changed"
	sessionUnchanged = "unchanged"
)

// CheckSessionHandler handles GET /oauth/check_session requests.
// It compares the session_state a relying party holds against the one
// derived from the browser's server-held session. A browser-state cookie
// that disagrees with the server record always reports a change.
func (h *Handler) CheckSessionHandler(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()
	clientID := q.Get("client_id")
	redirectURI := q.Get("redirect_uri")
	state := q.Get("session_state")
	if clientID == "" || redirectURI == "" || state == "" {
		writeError(w, fosite.ErrInvalidRequest.WithHint("The client_id, redirect_uri and session_state parameters are required."))
		return
	}

	sessions := h.deps.Sessions
	session, err := sessions.Load(req.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	status := sessionChanged
	if rec := session.StateRecord(); rec != nil && !sessions.HasChanged(req, session) &&
		sessionstate.Validate(state, clientID, redirectURI, rec.Value) {
		status = sessionUnchanged
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, map[string]string{"status": status})
}

// LogoutHandler handles GET and POST /oauth/logout requests. It deletes the
// browser's server session and clears the session cookies, so relying
// parties checking the session see it change.
func (h *Handler) LogoutHandler(w http.ResponseWriter, req *http.Request) {
	if err := h.deps.Sessions.End(req.Context(), w, req); err != nil {
		writeError(w, err)
		return
	}
	slog.Debug("ended browser session")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusNoContent)
}
