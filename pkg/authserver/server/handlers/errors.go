// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	stderrors "errors"
	"log/slog"
	"net/http"

	"github.com/ory/fosite"

	"github.com/stacklok/trustengine/pkg/authserver/granter"
	"github.com/stacklok/trustengine/pkg/errors"
)

var (
	errAuthorizationPending = &fosite.RFC6749Error{
		ErrorField:       "authorization_pending",
		DescriptionField: "The authorization request is still pending as the end user hasn't yet completed the user-interaction steps.",
		CodeField:        http.StatusBadRequest,
	}
	errExpiredToken = &fosite.RFC6749Error{
		ErrorField:       "expired_token",
		DescriptionField: "The device_code has expired, and the device authorization session has concluded.",
		CodeField:        http.StatusBadRequest,
	}
)

// toRFC6749 maps an engine error onto its OAuth2 error response.
func toRFC6749(err error) *fosite.RFC6749Error {
	var rfcErr *fosite.RFC6749Error
	if stderrors.As(err, &rfcErr) {
		return rfcErr
	}

	switch {
	case stderrors.Is(err, granter.ErrUnsupportedGrantType):
		return fosite.ErrUnsupportedGrantType.WithWrap(err)
	case errors.IsClientNotFound(err):
		return fosite.ErrInvalidClient.WithWrap(err)
	case errors.IsInvalidSignature(err), errors.IsAlgorithmMismatch(err), errors.IsDecryptionFailure(err):
		return fosite.ErrInvalidRequestObject.WithWrap(err).WithHint(err.Error())
	case errors.IsInvalidScope(err):
		return fosite.ErrInvalidScope.WithWrap(err).WithHint(err.Error())
	case errors.IsAuthorizationPending(err):
		return errAuthorizationPending.WithWrap(err)
	case errors.IsDeviceCodeExpired(err):
		return errExpiredToken.WithWrap(err)
	case errors.IsInvalidGrant(err):
		return fosite.ErrInvalidGrant.WithWrap(err).WithHint(err.Error())
	default:
		return fosite.ErrServerError.WithWrap(err)
	}
}

// writeError renders err as an RFC 6749 JSON error response.
func writeError(w http.ResponseWriter, err error) {
	rfcErr := toRFC6749(err)
	code := rfcErr.StatusCode()
	if code >= http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
	} else {
		slog.Debug("request rejected", "error", rfcErr.ErrorField, "cause", err)
	}

	if rfcErr.ErrorField == fosite.ErrInvalidClient.ErrorField && code == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Basic realm="trustd"`)
	}
	writeJSON(w, code, map[string]string{
		"error":             rfcErr.ErrorField,
		"error_description": rfcErr.GetDescription(),
	})
}
