// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// timedEntry wraps a value with its expiration time for TTL tracking.
type timedEntry[T any] struct {
	value     T
	expiresAt time.Time
}

// MemoryStorage implements the Storage interface with in-memory maps.
// This implementation is thread-safe and suitable for single-instance
// deployments and testing. Device code consumption is serialized by the
// storage lock, which gives read-your-writes within the process.
type MemoryStorage struct {
	mu sync.RWMutex

	// clients maps client_id -> Client.
	clients map[string]*Client

	// tokens maps token value -> IssuedToken for both access and refresh tokens.
	tokens map[string]*timedEntry[*IssuedToken]

	// deviceCodes maps device_code -> DeviceCode. Entries outlive their
	// expiration by DeviceCodeRetention.
	deviceCodes map[string]*timedEntry[*DeviceCode]

	// userCodes maps user_code -> device_code.
	userCodes map[string]string

	// sessions maps session ID -> BrowserSession.
	sessions map[string]*timedEntry[*BrowserSession]

	// now is the clock, replaceable in tests.
	now func() time.Time

	// cleanupInterval is how often the background cleanup runs
	cleanupInterval time.Duration

	// stopCleanup is used to signal the cleanup goroutine to stop
	stopCleanup chan struct{}

	// cleanupDone is closed when the cleanup goroutine has fully stopped
	cleanupDone chan struct{}
}

// MemoryStorageOption configures a MemoryStorage instance.
type MemoryStorageOption func(*MemoryStorage)

// WithCleanupInterval sets a custom cleanup interval.
func WithCleanupInterval(interval time.Duration) MemoryStorageOption {
	return func(s *MemoryStorage) {
		s.cleanupInterval = interval
	}
}

// WithClock sets the clock used for expiry checks.
func WithClock(now func() time.Time) MemoryStorageOption {
	return func(s *MemoryStorage) {
		s.now = now
	}
}

// NewMemoryStorage creates a new MemoryStorage instance with initialized maps
// and starts the background cleanup goroutine.
func NewMemoryStorage(opts ...MemoryStorageOption) *MemoryStorage {
	s := &MemoryStorage{
		clients:         make(map[string]*Client),
		tokens:          make(map[string]*timedEntry[*IssuedToken]),
		deviceCodes:     make(map[string]*timedEntry[*DeviceCode]),
		userCodes:       make(map[string]string),
		sessions:        make(map[string]*timedEntry[*BrowserSession]),
		now:             time.Now,
		cleanupInterval: DefaultCleanupInterval,
		stopCleanup:     make(chan struct{}),
		cleanupDone:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	// Start background cleanup goroutine
	go s.cleanupLoop()

	return s
}

// Close stops the background cleanup goroutine and waits for it to finish.
func (s *MemoryStorage) Close() error {
	close(s.stopCleanup)
	<-s.cleanupDone
	return nil
}

// cleanupLoop runs periodic cleanup of expired entries.
func (s *MemoryStorage) cleanupLoop() {
	defer close(s.cleanupDone)

	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCleanup:
			return
		case <-ticker.C:
			s.cleanupExpired()
		}
	}
}

// cleanupExpired removes all expired entries from storage.
func (s *MemoryStorage) cleanupExpired() {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, v := range s.tokens {
		if now.After(v.expiresAt) {
			delete(s.tokens, k)
		}
	}
	for k, v := range s.deviceCodes {
		if now.After(v.expiresAt) {
			delete(s.userCodes, v.value.UserCode)
			delete(s.deviceCodes, k)
		}
	}
	for k, v := range s.sessions {
		if now.After(v.expiresAt) {
			delete(s.sessions, k)
		}
	}
}

// -----------------------
// Clients
// -----------------------

// RegisterClient adds or replaces a client.
func (s *MemoryStorage) RegisterClient(_ context.Context, client *Client) error {
	if client == nil || client.ID == "" {
		return fmt.Errorf("client ID cannot be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[client.ID] = client
	return nil
}

// GetClient loads the client by its ID.
func (s *MemoryStorage) GetClient(_ context.Context, clientID string) (*Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	client, ok := s.clients[clientID]
	if !ok {
		return nil, fmt.Errorf("client %q: %w", clientID, ErrNotFound)
	}
	return client, nil
}

// -----------------------
// Tokens
// -----------------------

// StoreToken saves a token until its expiration.
func (s *MemoryStorage) StoreToken(_ context.Context, token *IssuedToken) error {
	if token == nil || token.Value == "" {
		return fmt.Errorf("token value cannot be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token.Value] = &timedEntry[*IssuedToken]{value: token.Clone(), expiresAt: token.ExpiresAt}
	return nil
}

// GetToken returns a copy of the token if it is known and not expired.
func (s *MemoryStorage) GetToken(_ context.Context, value string) (*IssuedToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.tokens[value]
	if !ok || entry.value.IsExpired(s.now()) {
		return nil, fmt.Errorf("token: %w", ErrNotFound)
	}
	return entry.value.Clone(), nil
}

// RevokeToken deletes the token.
func (s *MemoryStorage) RevokeToken(_ context.Context, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, value)
	return nil
}

// -----------------------
// Device codes
// -----------------------

// CreateDeviceCode saves a new pending device code.
func (s *MemoryStorage) CreateDeviceCode(_ context.Context, code *DeviceCode) error {
	if code == nil || code.Code == "" || code.UserCode == "" {
		return fmt.Errorf("device code and user code cannot be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.deviceCodes[code.Code]; ok {
		return fmt.Errorf("device code: %w", ErrAlreadyExists)
	}
	if _, ok := s.userCodes[code.UserCode]; ok {
		return fmt.Errorf("user code: %w", ErrAlreadyExists)
	}
	s.deviceCodes[code.Code] = &timedEntry[*DeviceCode]{
		value:     code.Clone(),
		expiresAt: code.ExpiresAt.Add(DeviceCodeRetention),
	}
	s.userCodes[code.UserCode] = code.Code
	return nil
}

// GetDeviceCode returns a copy of the device code.
func (s *MemoryStorage) GetDeviceCode(_ context.Context, code string) (*DeviceCode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.deviceCodes[code]
	if !ok {
		return nil, fmt.Errorf("device code: %w", ErrNotFound)
	}
	return entry.value.Clone(), nil
}

// GetDeviceCodeByUserCode returns a copy of the device code bound to userCode.
func (s *MemoryStorage) GetDeviceCodeByUserCode(ctx context.Context, userCode string) (*DeviceCode, error) {
	s.mu.RLock()
	code, ok := s.userCodes[userCode]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("user code: %w", ErrNotFound)
	}
	return s.GetDeviceCode(ctx, code)
}

// ApproveDeviceCode marks the code approved and attaches auth.
func (s *MemoryStorage) ApproveDeviceCode(_ context.Context, code string, auth *Authentication) (*DeviceCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.deviceCodes[code]
	if !ok {
		return nil, fmt.Errorf("device code: %w", ErrNotFound)
	}
	entry.value.Approved = true
	entry.value.Authentication = auth.Clone()
	return entry.value.Clone(), nil
}

// ConsumeDeviceCode atomically removes the code and returns it.
func (s *MemoryStorage) ConsumeDeviceCode(_ context.Context, code string) (*DeviceCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.deviceCodes[code]
	if !ok {
		return nil, fmt.Errorf("device code: %w", ErrNotFound)
	}
	delete(s.deviceCodes, code)
	delete(s.userCodes, entry.value.UserCode)
	return entry.value, nil
}

// -----------------------
// Browser sessions
// -----------------------

// StoreSession saves or replaces a session until its expiration.
func (s *MemoryStorage) StoreSession(_ context.Context, session *BrowserSession) error {
	if session == nil || session.ID == "" {
		return fmt.Errorf("session ID cannot be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *session
	s.sessions[session.ID] = &timedEntry[*BrowserSession]{value: &stored, expiresAt: session.ExpiresAt}
	return nil
}

// GetSession returns a copy of the session if it is known and not expired.
func (s *MemoryStorage) GetSession(_ context.Context, id string) (*BrowserSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.sessions[id]
	if !ok || entry.value.IsExpired(s.now()) {
		return nil, fmt.Errorf("session: %w", ErrNotFound)
	}
	out := *entry.value
	return &out, nil
}

// DeleteSession removes the session.
func (s *MemoryStorage) DeleteSession(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}
