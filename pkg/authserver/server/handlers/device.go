// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/ory/fosite"

	"github.com/stacklok/trustengine/pkg/authserver/storage"
)

// DeviceAuthorizationHandler handles POST /oauth/device_authorization requests (RFC 8628 section 3.1).
func (h *Handler) DeviceAuthorizationHandler(w http.ResponseWriter, req *http.Request) {
	if err := req.ParseForm(); err != nil {
		writeError(w, fosite.ErrInvalidRequest.WithHint("Unable to parse the request body.").WithWrap(err))
		return
	}
	client, err := h.authenticateClient(req)
	if err != nil {
		writeError(w, err)
		return
	}

	params := flatten(req.PostForm)
	delete(params, "client_secret")

	auth, err := h.deps.Devices.Create(req.Context(), client, storage.ParseScope(req.PostForm.Get("scope")), params)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, auth)
}

// DeviceApprovalHandler handles POST /oauth/device/approve requests.
// It binds the subject to the pending device code identified by user_code.
// The endpoint trusts the caller to have authenticated the end user.
func (h *Handler) DeviceApprovalHandler(w http.ResponseWriter, req *http.Request) {
	if err := req.ParseForm(); err != nil {
		writeError(w, fosite.ErrInvalidRequest.WithHint("Unable to parse the request body.").WithWrap(err))
		return
	}
	userCode := req.PostForm.Get("user_code")
	subject := req.PostForm.Get("subject")
	if userCode == "" || subject == "" {
		writeError(w, fosite.ErrInvalidRequest.WithHint("The user_code and subject parameters are required."))
		return
	}

	dc, err := h.deps.Devices.Approve(req.Context(), userCode, &storage.UserAuthentication{
		Subject:     subject,
		Authorities: req.PostForm["authority"],
	})
	if err != nil {
		writeError(w, err)
		return
	}

	slog.Info("device code approved", //nolint:gosec // G706: client ID and subject from approval request
		"client_id", dc.ClientID,
		"subject", subject,
	)
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "approved",
		"client_id": dc.ClientID,
	})
}
