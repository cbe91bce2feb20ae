// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package jws

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// AlgNone is the JWS algorithm of unsecured tokens.
const AlgNone = "none"

// Header holds the protected header members the engine routes on.
type Header struct {
	Algorithm   string `json:"alg"`
	KeyID       string `json:"kid,omitempty"`
	Type        string `json:"typ,omitempty"`
	ContentType string `json:"cty,omitempty"`
	Encryption  string `json:"enc,omitempty"`
}

// PeekHeader decodes the protected header of a compact JWS or JWE without
// verifying anything.
func PeekHeader(token string) (*Header, error) {
	segment, _, ok := strings.Cut(token, ".")
	if !ok {
		return nil, fmt.Errorf("token is not in compact serialization")
	}
	raw, err := base64.RawURLEncoding.DecodeString(segment)
	if err != nil {
		return nil, fmt.Errorf("failed to decode token header: %w", err)
	}
	var h Header
	if err := json.Unmarshal(raw, &h); err != nil {
		return nil, fmt.Errorf("failed to parse token header: %w", err)
	}
	if h.Algorithm == "" {
		return nil, fmt.Errorf("token header has no alg")
	}
	return &h, nil
}

// Segments returns the number of dot-separated segments in a compact token.
func Segments(token string) int {
	return strings.Count(token, ".") + 1
}
