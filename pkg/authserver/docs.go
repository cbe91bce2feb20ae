// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package authserver assembles the trust engine from its configuration.
//
// The engine supports:
//   - Signed and encrypted authorization request objects (RFC 9101)
//   - Chained token exchange, device authorization (RFC 8628) and
//     JWT-bearer (RFC 7523) grants
//   - JWT access tokens signed with the engine's keys
//   - Token introspection (RFC 7662)
//   - OIDC session management session_state values
//   - JWKS publication and OIDC discovery
//
// # Usage
//
// The primary entry point is authserver.New, which builds every component
// once and returns an Engine. Nothing is kept in package-level state:
//
//	engine, err := authserver.New(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer engine.Close()
//	mux.Handle("/", engine.Handler())
//
// # Storage
//
// Clients, tokens and device codes live in memory by default. Redis storage
// shares them between replicas and makes device code consumption atomic
// across instances.
package authserver
