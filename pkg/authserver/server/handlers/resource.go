// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"net/http"
	"net/url"
	"slices"

	"github.com/ory/fosite"

	"github.com/stacklok/trustengine/pkg/authserver/storage"
	"github.com/stacklok/trustengine/pkg/authserver/tokens"
)

// errInvalidTarget is the RFC 8707 error for an invalid or unauthorized resource parameter.
var errInvalidTarget = &fosite.RFC6749Error{
	ErrorField:       "invalid_target",
	DescriptionField: "The requested resource is invalid, unknown, or malformed.",
	CodeField:        http.StatusBadRequest,
}

// validateResource checks the optional resource parameter of a token request.
// The resource must be an absolute http(s) URI without a fragment and one of
// the client's registered audiences. An empty resource is always valid.
func validateResource(form url.Values, client *storage.Client) error {
	values := form[tokens.ParamResource]
	switch len(values) {
	case 0:
		return nil
	case 1:
	default:
		return errInvalidTarget.WithHint("Only one resource parameter is supported.")
	}
	resource := values[0]

	parsed, err := url.Parse(resource)
	if err != nil {
		return errInvalidTarget.WithHintf("Resource parameter is not a valid URI: %s", err.Error())
	}
	if !parsed.IsAbs() || parsed.Host == "" {
		return errInvalidTarget.WithHint("Resource must be an absolute URI with a host.")
	}
	if parsed.Fragment != "" {
		return errInvalidTarget.WithHint("Resource must not contain a fragment.")
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return errInvalidTarget.WithHint("Resource must use http or https scheme.")
	}

	if !slices.Contains(client.Audience, resource) {
		return errInvalidTarget.WithHintf("Resource %q is not a registered audience of the client.", resource)
	}
	return nil
}
