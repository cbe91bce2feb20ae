// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package granter

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/stacklok/trustengine/pkg/authserver/storage"
	"github.com/stacklok/trustengine/pkg/errors"
)

// DeviceCodeGranter exchanges an approved device code for a token.
//
// Each poll is evaluated against the stored state of the code: pending codes
// yield AuthorizationPending, expired codes are cleared and yield
// DeviceCodeExpired, and approved codes are consumed exactly once.
type DeviceCodeGranter struct {
	codes  storage.DeviceCodeStore
	issuer TokenIssuer
	now    func() time.Time
}

// NewDeviceCodeGranter creates a DeviceCodeGranter.
func NewDeviceCodeGranter(codes storage.DeviceCodeStore, issuer TokenIssuer) *DeviceCodeGranter {
	return &DeviceCodeGranter{codes: codes, issuer: issuer, now: time.Now}
}

// GrantType implements Granter.
func (*DeviceCodeGranter) GrantType() string { return GrantTypeDevice }

// Grant implements Granter.
func (g *DeviceCodeGranter) Grant(ctx context.Context, client *storage.Client, req *TokenRequest) (*storage.IssuedToken, error) {
	code := req.Param(ParamDeviceCode)
	if code == "" {
		return nil, errors.NewInvalidGrantError("device_code parameter is required", nil)
	}

	dc, err := g.codes.GetDeviceCode(ctx, code)
	if err != nil {
		return nil, notFoundAsInvalidGrant(err, "device code is unknown")
	}
	if dc.ClientID != client.ID {
		return nil, errors.NewInvalidGrantError("device code was issued to another client", nil)
	}

	if dc.IsExpired(g.now()) {
		if _, err := g.codes.ConsumeDeviceCode(ctx, code); err != nil && !stderrors.Is(err, storage.ErrNotFound) {
			slog.Warn("failed to clear expired device code", "client_id", client.ID, "error", err)
		}
		return nil, errors.NewDeviceCodeExpiredError("device code has expired", nil)
	}
	if !dc.Approved {
		return nil, errors.NewAuthorizationPendingError("device code is awaiting approval", nil)
	}

	consumed, err := g.codes.ConsumeDeviceCode(ctx, code)
	if err != nil {
		return nil, notFoundAsInvalidGrant(err, "device code was already used")
	}
	if consumed.Authentication == nil {
		return nil, errors.NewInvalidGrantError("approved device code carries no authentication", nil)
	}

	auth := consumed.Authentication.Clone()
	params := maps.Clone(consumed.RequestParameters)
	if params == nil {
		params = make(map[string]string)
	}
	maps.Copy(params, requestParameters(req))
	auth.Request.ClientID = client.ID
	auth.Request.Scope = consumed.Scope
	auth.Request.GrantType = GrantTypeDevice
	auth.Request.RequestParameters = params

	return g.issuer.Issue(ctx, client, auth)
}

func notFoundAsInvalidGrant(err error, message string) error {
	if stderrors.Is(err, storage.ErrNotFound) {
		return errors.NewInvalidGrantError(message, err)
	}
	return fmt.Errorf("failed to read device code: %w", err)
}
