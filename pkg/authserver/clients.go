// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package authserver

import (
	"context"
	"fmt"
	"os"

	"github.com/stacklok/trustengine/pkg/authserver/keys"
	"github.com/stacklok/trustengine/pkg/authserver/storage"
	"github.com/stacklok/trustengine/pkg/config"
	"github.com/stacklok/trustengine/pkg/logger"
)

var defaultResponseTypes = []string{"code"}

// RegisterClients adds the statically configured clients to stor.
func RegisterClients(ctx context.Context, stor storage.Storage, clients []config.ClientConfig) error {
	for _, cc := range clients {
		client, err := NewClient(cc)
		if err != nil {
			return fmt.Errorf("client %s: %w", cc.ID, err)
		}
		if err := stor.RegisterClient(ctx, client); err != nil {
			return fmt.Errorf("failed to register client %s: %w", cc.ID, err)
		}
		logger.Debugw("registered client",
			"client_id", client.ID,
			"grant_types", client.GrantTypes,
			"public", client.Public,
		)
	}
	return nil
}

// NewClient converts a client configuration into a storage.Client.
// Inline or file JWKS are parsed here so a malformed key set fails at startup.
func NewClient(cc config.ClientConfig) (*storage.Client, error) {
	client := &storage.Client{
		ID:                      cc.ID,
		Secret:                  cc.Secret,
		JWKSURI:                 cc.JWKSURI,
		RequestObjectSigningAlg: cc.RequestObjectSigningAlg,
		GrantTypes:              cc.GrantTypes,
		ResponseTypes:           cc.ResponseTypes,
		Scopes:                  cc.Scopes,
		RedirectURIs:            cc.RedirectURIs,
		Audience:                cc.Audience,
		Authorities:             cc.Authorities,
		DefaultMaxAge:           cc.DefaultMaxAge,
		Public:                  cc.Public,
		Introspection:           cc.Introspection,
	}
	if len(client.ResponseTypes) == 0 {
		client.ResponseTypes = defaultResponseTypes
	}

	var raw []byte
	switch {
	case cc.JWKS != "":
		raw = []byte(cc.JWKS)
	case cc.JWKSFile != "":
		data, err := os.ReadFile(cc.JWKSFile) // #nosec G304 - file path is provided by the operator
		if err != nil {
			return nil, fmt.Errorf("failed to read JWKS file: %w", err)
		}
		raw = data
	}
	if raw != nil {
		set, err := keys.ParseKeySet(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid JWKS: %w", err)
		}
		client.JWKS = set
	}
	return client, nil
}
