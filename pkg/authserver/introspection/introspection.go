// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package introspection assembles token introspection responses.
package introspection

import (
	"time"

	"github.com/stacklok/trustengine/pkg/authserver/storage"
)

// ExpirationFormat is the layout of the exp member.
const ExpirationFormat = "2006-01-02T15:04:05-0700"

// Response members.
const (
	FieldActive    = "active"
	FieldScope     = "scope"
	FieldClientID  = "client_id"
	FieldTokenType = "token_type"
	FieldSubject   = "sub"
	FieldUserID    = "user_id"
	FieldExpires   = "exp"
)

// UserInfo carries end-user attributes looked up by the caller.
type UserInfo struct {
	// UserID is the local user identifier, when it differs from the subject.
	UserID string
}

// Inactive is the response for unknown, revoked or expired tokens.
func Inactive() map[string]any {
	return map[string]any{FieldActive: false}
}

// Assemble builds the introspection response for token at now.
func Assemble(token *storage.IssuedToken, user *UserInfo, now time.Time) map[string]any {
	if token == nil || token.IsExpired(now) {
		return Inactive()
	}

	out := map[string]any{
		FieldActive:    true,
		FieldClientID:  token.ClientID,
		FieldTokenType: string(token.Type),
		FieldExpires:   token.ExpiresAt.Format(ExpirationFormat),
	}
	if scope := storage.JoinScope(token.Scope); scope != "" {
		out[FieldScope] = scope
	}

	if token.Authentication != nil && token.Authentication.User != nil {
		sub := token.Authentication.User.Subject
		out[FieldSubject] = sub
		out[FieldUserID] = sub
		if user != nil && user.UserID != "" {
			out[FieldUserID] = user.UserID
		}
	}
	return out
}
