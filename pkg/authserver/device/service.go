// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package device implements the authorization side of the OAuth2 device
// flow: issuing device and user codes, and approving them once the end
// user signs in.
package device

import (
	"context"
	"crypto/rand"
	stderrors "errors"
	"fmt"
	"maps"
	"math/big"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/stacklok/trustengine/pkg/authserver/storage"
	"github.com/stacklok/trustengine/pkg/errors"
)

const (
	// DefaultLifespan is how long a device code can be polled.
	DefaultLifespan = 10 * time.Minute
	// DefaultInterval is the minimum polling interval advertised to devices.
	DefaultInterval = 5 * time.Second

	// UserCodeAlphabet avoids vowels and look-alike characters (RFC 8628 section 6.1).
	UserCodeAlphabet = "BCDFGHJKLMNPQRSTVWXZ"
	// UserCodeLength is the number of characters in a user code.
	UserCodeLength = 8

	createAttempts = 5

	grantTypeDevice = "urn:ietf:params:oauth:grant-type:device_code"
)

// Authorization is the device authorization response (RFC 8628 section 3.2).
type Authorization struct {
	DeviceCode              string `json:"device_code"`
	UserCode                string `json:"user_code"`
	VerificationURI         string `json:"verification_uri"`
	VerificationURIComplete string `json:"verification_uri_complete,omitempty"`
	ExpiresIn               int    `json:"expires_in"`
	Interval                int    `json:"interval"`
}

// Config configures a Service.
type Config struct {
	// VerificationURI is the page where the end user enters the user code.
	VerificationURI string
	Lifespan        time.Duration
	Interval        time.Duration
}

// Service creates, looks up and approves device codes.
type Service struct {
	codes storage.DeviceCodeStore
	cfg   Config
	now   func() time.Time
}

// NewService creates a Service. Zero durations take their defaults.
func NewService(codes storage.DeviceCodeStore, cfg Config) (*Service, error) {
	if cfg.VerificationURI == "" {
		return nil, fmt.Errorf("verification URI is required")
	}
	if _, err := url.Parse(cfg.VerificationURI); err != nil {
		return nil, fmt.Errorf("invalid verification URI: %w", err)
	}
	if cfg.Lifespan <= 0 {
		cfg.Lifespan = DefaultLifespan
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	return &Service{codes: codes, cfg: cfg, now: time.Now}, nil
}

// Create issues a pending device code for client. An empty scope requests
// every scope the client is registered for.
func (s *Service) Create(
	ctx context.Context, client *storage.Client, scope []string, params map[string]string,
) (*Authorization, error) {
	if !client.HasGrantType(grantTypeDevice) {
		return nil, errors.NewInvalidGrantError("client "+client.ID+" is not authorized for the device flow", nil)
	}
	if len(scope) == 0 {
		scope = slices.Clone(client.Scopes)
	}
	for _, sc := range scope {
		if !slices.Contains(client.Scopes, sc) {
			return nil, errors.NewInvalidScopeError(
				fmt.Sprintf("client %s is not registered for scope %q", client.ID, sc), nil)
		}
	}

	now := s.now()
	for range createAttempts {
		userCode, err := generateUserCode()
		if err != nil {
			return nil, err
		}
		dc := &storage.DeviceCode{
			Code:              uuid.NewString(),
			UserCode:          userCode,
			ClientID:          client.ID,
			Scope:             scope,
			CreatedAt:         now,
			ExpiresAt:         now.Add(s.cfg.Lifespan),
			RequestParameters: maps.Clone(params),
		}
		err = s.codes.CreateDeviceCode(ctx, dc)
		if stderrors.Is(err, storage.ErrAlreadyExists) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to store device code: %w", err)
		}
		return s.authorization(dc), nil
	}
	return nil, fmt.Errorf("failed to allocate a unique user code after %d attempts", createAttempts)
}

func (s *Service) authorization(dc *storage.DeviceCode) *Authorization {
	out := &Authorization{
		DeviceCode:      dc.Code,
		UserCode:        FormatUserCode(dc.UserCode),
		VerificationURI: s.cfg.VerificationURI,
		ExpiresIn:       int(s.cfg.Lifespan.Seconds()),
		Interval:        int(s.cfg.Interval.Seconds()),
	}
	if u, err := url.Parse(s.cfg.VerificationURI); err == nil {
		q := u.Query()
		q.Set("user_code", dc.UserCode)
		u.RawQuery = q.Encode()
		out.VerificationURIComplete = u.String()
	}
	return out
}

// LookUpByUserCode returns the pending device code for a user code as typed
// by the end user. Expired codes yield DeviceCodeExpired.
func (s *Service) LookUpByUserCode(ctx context.Context, userCode string) (*storage.DeviceCode, error) {
	dc, err := s.codes.GetDeviceCodeByUserCode(ctx, NormalizeUserCode(userCode))
	if err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return nil, errors.NewInvalidGrantError("user code is unknown", err)
		}
		return nil, fmt.Errorf("failed to look up user code: %w", err)
	}
	if dc.IsExpired(s.now()) {
		return nil, errors.NewDeviceCodeExpiredError("user code has expired", nil)
	}
	return dc, nil
}

// Approve records user as the end user behind userCode. The next poll with
// the matching device code receives a token.
func (s *Service) Approve(ctx context.Context, userCode string, user *storage.UserAuthentication) (*storage.DeviceCode, error) {
	if user == nil || user.Subject == "" {
		return nil, fmt.Errorf("an authenticated user is required to approve a device code")
	}
	dc, err := s.LookUpByUserCode(ctx, userCode)
	if err != nil {
		return nil, err
	}
	if dc.Approved {
		return nil, errors.NewInvalidGrantError("user code was already approved", nil)
	}

	auth := &storage.Authentication{
		Request: storage.OAuth2Request{
			ClientID:          dc.ClientID,
			Scope:             dc.Scope,
			GrantType:         grantTypeDevice,
			RequestParameters: dc.RequestParameters,
		},
		User: user,
	}
	approved, err := s.codes.ApproveDeviceCode(ctx, dc.Code, auth)
	if err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return nil, errors.NewInvalidGrantError("device code is no longer available", err)
		}
		return nil, fmt.Errorf("failed to approve device code: %w", err)
	}
	return approved, nil
}

// NormalizeUserCode uppercases a user code and strips separators.
func NormalizeUserCode(code string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '-', ' ', '\t':
			return -1
		}
		if r >= 'a' && r <= 'z' {
			return r - 'a' + 'A'
		}
		return r
	}, code)
}

// FormatUserCode renders a user code as two dash-separated halves.
func FormatUserCode(code string) string {
	if len(code) != UserCodeLength {
		return code
	}
	return code[:UserCodeLength/2] + "-" + code[UserCodeLength/2:]
}

func generateUserCode() (string, error) {
	limit := big.NewInt(int64(len(UserCodeAlphabet)))
	var b strings.Builder
	for range UserCodeLength {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("failed to generate user code: %w", err)
		}
		b.WriteByte(UserCodeAlphabet[n.Int64()])
	}
	return b.String(), nil
}
