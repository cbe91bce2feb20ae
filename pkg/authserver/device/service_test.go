// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package device

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/stacklok/trustengine/pkg/authserver/storage"
	"github.com/stacklok/trustengine/pkg/authserver/storage/mocks"
	"github.com/stacklok/trustengine/pkg/errors"
)

var deviceClient = &storage.Client{
	ID:         "tv",
	GrantTypes: []string{grantTypeDevice},
	Scopes:     []string{"read", "write"},
}

func newTestService(t *testing.T, codes storage.DeviceCodeStore) *Service {
	t.Helper()
	s, err := NewService(codes, Config{VerificationURI: "https://auth.example.com/device"})
	require.NoError(t, err)
	return s
}

func newMemory(t *testing.T) *storage.MemoryStorage {
	t.Helper()
	m := storage.NewMemoryStorage()
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestService_Create(t *testing.T) {
	t.Parallel()

	s := newTestService(t, newMemory(t))
	authz, err := s.Create(context.Background(), deviceClient, []string{"read"}, map[string]string{"audience": "api"})
	require.NoError(t, err)

	assert.NotEmpty(t, authz.DeviceCode)
	assert.Equal(t, "https://auth.example.com/device", authz.VerificationURI)
	assert.Equal(t, 600, authz.ExpiresIn)
	assert.Equal(t, 5, authz.Interval)

	code := NormalizeUserCode(authz.UserCode)
	require.Len(t, code, UserCodeLength)
	for _, r := range code {
		assert.True(t, strings.ContainsRune(UserCodeAlphabet, r), "unexpected character %q", r)
	}
	assert.Equal(t, "https://auth.example.com/device?user_code="+code, authz.VerificationURIComplete)

	dc, err := s.LookUpByUserCode(context.Background(), strings.ToLower(authz.UserCode))
	require.NoError(t, err)
	assert.Equal(t, authz.DeviceCode, dc.Code)
	assert.Equal(t, []string{"read"}, dc.Scope)
	assert.Equal(t, "api", dc.RequestParameters["audience"])
}

func TestService_CreateRejections(t *testing.T) {
	t.Parallel()

	s := newTestService(t, newMemory(t))

	_, err := s.Create(context.Background(), deviceClient, []string{"admin"}, nil)
	assert.True(t, errors.IsInvalidScope(err))

	other := &storage.Client{ID: "web", GrantTypes: []string{"authorization_code"}}
	_, err = s.Create(context.Background(), other, nil, nil)
	assert.True(t, errors.IsInvalidGrant(err))
}

func TestService_CreateDefaultsToRegisteredScopes(t *testing.T) {
	t.Parallel()

	s := newTestService(t, newMemory(t))
	authz, err := s.Create(context.Background(), deviceClient, nil, nil)
	require.NoError(t, err)

	dc, err := s.LookUpByUserCode(context.Background(), authz.UserCode)
	require.NoError(t, err)
	assert.Equal(t, []string{"read", "write"}, dc.Scope)
}

func TestService_CreateRetriesUserCodeCollisions(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	codes := mocks.NewMockDeviceCodeStore(ctrl)
	gomock.InOrder(
		codes.EXPECT().CreateDeviceCode(gomock.Any(), gomock.Any()).
			Return(fmt.Errorf("user code: %w", storage.ErrAlreadyExists)),
		codes.EXPECT().CreateDeviceCode(gomock.Any(), gomock.Any()).Return(nil),
	)

	s := newTestService(t, codes)
	_, err := s.Create(context.Background(), deviceClient, nil, nil)
	require.NoError(t, err)
}

func TestService_Approve(t *testing.T) {
	t.Parallel()

	mem := newMemory(t)
	s := newTestService(t, mem)
	authz, err := s.Create(context.Background(), deviceClient, []string{"read"}, nil)
	require.NoError(t, err)

	_, err = s.Approve(context.Background(), authz.UserCode, nil)
	require.Error(t, err)

	approved, err := s.Approve(context.Background(), authz.UserCode, &storage.UserAuthentication{Subject: "alice"})
	require.NoError(t, err)
	assert.True(t, approved.Approved)
	assert.Equal(t, "alice", approved.Authentication.Subject())
	assert.Equal(t, "tv", approved.Authentication.Request.ClientID)

	polled, err := mem.GetDeviceCode(context.Background(), authz.DeviceCode)
	require.NoError(t, err)
	assert.True(t, polled.Approved)

	_, err = s.Approve(context.Background(), authz.UserCode, &storage.UserAuthentication{Subject: "mallory"})
	assert.True(t, errors.IsInvalidGrant(err), "a code is approved once")
}

func TestService_LookUpByUserCode(t *testing.T) {
	t.Parallel()

	s := newTestService(t, newMemory(t))

	_, err := s.LookUpByUserCode(context.Background(), "BCDF-GHJK")
	assert.True(t, errors.IsInvalidGrant(err))

	authz, err := s.Create(context.Background(), deviceClient, nil, nil)
	require.NoError(t, err)

	s.now = func() time.Time { return time.Now().Add(DefaultLifespan + time.Minute) }
	_, err = s.LookUpByUserCode(context.Background(), authz.UserCode)
	assert.True(t, errors.IsDeviceCodeExpired(err))
}

func TestUserCodeFormatting(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "BCDF-GHJK", FormatUserCode("BCDFGHJK"))
	assert.Equal(t, "BCD", FormatUserCode("BCD"))
	assert.Equal(t, "BCDFGHJK", NormalizeUserCode(" bcdf-ghjk "))
}

func TestNewService_RequiresVerificationURI(t *testing.T) {
	t.Parallel()

	_, err := NewService(nil, Config{})
	require.Error(t, err)
}
