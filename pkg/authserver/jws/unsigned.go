// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package jws

import (
	"encoding/base64"
	"strings"

	"github.com/stacklok/trustengine/pkg/errors"
)

// unsignedHeader is the encoded header {"alg":"none"}.
var unsignedHeader = base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none"}`))

// Unsigned validates unsecured JWTs. It must only be selected for clients
// explicitly registered for alg "none".
type Unsigned struct{}

// Sign returns payload as an unsecured compact JWT with an empty signature.
func (Unsigned) Sign(payload []byte) string {
	return unsignedHeader + "." + base64.RawURLEncoding.EncodeToString(payload) + "."
}

// Verify accepts any token whose header alg is "none" and whose signature
// segment is empty, and returns its payload.
func (Unsigned) Verify(token string) ([]byte, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, errors.NewInvalidSignatureError("unsecured token must have three segments", nil)
	}
	if parts[2] != "" {
		return nil, errors.NewInvalidSignatureError("unsecured token carries a signature", nil)
	}
	h, err := PeekHeader(token)
	if err != nil {
		return nil, errors.NewInvalidSignatureError("malformed unsecured token", err)
	}
	if h.Algorithm != AlgNone {
		return nil, errors.NewAlgorithmMismatchError("unsecured token header alg is "+h.Algorithm, nil)
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, errors.NewInvalidSignatureError("malformed unsecured token payload", err)
	}
	return payload, nil
}

// Validate reports whether Verify succeeds.
func (u Unsigned) Validate(token string) bool {
	_, err := u.Verify(token)
	return err == nil
}
