// Copyright 2025 Stacklok, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package handlers provides the HTTP surface of the trust engine.
//
// This package exposes:
//   - OAuth endpoints (authorize, token, introspect, revoke, device authorization)
//   - OIDC session management (check_session)
//   - Well-known endpoints (/.well-known/openid-configuration, /.well-known/jwks.json)
//   - Prometheus metrics (/metrics)
//
// Errors raised by the engine are rendered as RFC 6749 error responses using
// fosite's error catalogue.
package handlers
