// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/redis/go-redis/v9"
)

// Default timeouts for Redis operations.
const (
	DefaultDialTimeout  = 5 * time.Second
	DefaultReadTimeout  = 3 * time.Second
	DefaultWriteTimeout = 3 * time.Second
)

// connectAttempts bounds the startup ping retries.
const connectAttempts = 5

// maxWatchRetries bounds optimistic-lock retries on concurrent updates.
const maxWatchRetries = 3

// Key types used in Redis key names.
const (
	KeyTypeClient   = "client"
	KeyTypeToken    = "token"
	KeyTypeDevice   = "device"
	KeyTypeUserCode = "usercode"
	KeyTypeSession  = "session"
)

// redisKey builds "<prefix><type>:<id>".
func redisKey(prefix, keyType, id string) string {
	return prefix + keyType + ":" + id
}

// RedisStorage implements the Storage interface with a Redis backend.
// Device code consumption uses GETDEL so exactly one instance can exchange a
// code, and approval uses WATCH so it never overwrites a concurrent consume.
type RedisStorage struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewRedisStorage connects to Redis, retrying the initial ping with
// exponential backoff.
func NewRedisStorage(ctx context.Context, cfg RedisConfig) (*RedisStorage, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("invalid redis configuration: address is required")
	}

	// Apply defaults
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = DefaultDialTimeout
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = DefaultKeyPrefix
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ping := func() (string, error) {
		res, err := client.Ping(ctx).Result()
		if err != nil {
			slog.Debug("redis ping failed, retrying", "addr", cfg.Addr, "error", err)
		}
		return res, err
	}
	if _, err := backoff.Retry(ctx, ping,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(connectAttempts),
	); err != nil {
		// Close the client to prevent resource leak
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStorage{
		client:    client,
		keyPrefix: cfg.KeyPrefix,
	}, nil
}

// NewRedisStorageWithClient creates a RedisStorage with a pre-configured client.
// This is useful for testing with miniredis.
func NewRedisStorageWithClient(client redis.UniversalClient, keyPrefix string) *RedisStorage {
	return &RedisStorage{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Close closes the Redis client connection.
func (s *RedisStorage) Close() error {
	return s.client.Close()
}

// Ping checks Redis connectivity (health check).
func (s *RedisStorage) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStorage) getJSON(ctx context.Context, key string, v any) error {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		return err
	}
	return json.Unmarshal(data, v)
}

// -----------------------
// Clients
// -----------------------

// RegisterClient adds or replaces a client. Clients do not expire.
func (s *RedisStorage) RegisterClient(ctx context.Context, client *Client) error {
	if client == nil || client.ID == "" {
		return fmt.Errorf("client ID cannot be empty")
	}
	data, err := json.Marshal(client)
	if err != nil {
		return fmt.Errorf("failed to marshal client: %w", err)
	}
	return s.client.Set(ctx, redisKey(s.keyPrefix, KeyTypeClient, client.ID), data, 0).Err()
}

// GetClient loads the client by its ID.
func (s *RedisStorage) GetClient(ctx context.Context, clientID string) (*Client, error) {
	var client Client
	if err := s.getJSON(ctx, redisKey(s.keyPrefix, KeyTypeClient, clientID), &client); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("client %q: %w", clientID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	return &client, nil
}

// -----------------------
// Tokens
// -----------------------

// StoreToken saves a token with a TTL matching its expiration. Tokens that
// are already expired are not stored.
func (s *RedisStorage) StoreToken(ctx context.Context, token *IssuedToken) error {
	if token == nil || token.Value == "" {
		return fmt.Errorf("token value cannot be empty")
	}
	ttl := time.Until(token.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}
	return s.client.Set(ctx, redisKey(s.keyPrefix, KeyTypeToken, token.Value), data, ttl).Err()
}

// GetToken returns the token if it is known and not expired.
func (s *RedisStorage) GetToken(ctx context.Context, value string) (*IssuedToken, error) {
	var token IssuedToken
	if err := s.getJSON(ctx, redisKey(s.keyPrefix, KeyTypeToken, value), &token); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("token: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get token: %w", err)
	}
	if token.IsExpired(time.Now()) {
		return nil, fmt.Errorf("token: %w", ErrNotFound)
	}
	return &token, nil
}

// RevokeToken deletes the token.
func (s *RedisStorage) RevokeToken(ctx context.Context, value string) error {
	if err := s.client.Del(ctx, redisKey(s.keyPrefix, KeyTypeToken, value)).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// -----------------------
// Device codes
// -----------------------

// CreateDeviceCode saves a new pending device code and its user code index.
// Both keys outlive the expiration by DeviceCodeRetention.
func (s *RedisStorage) CreateDeviceCode(ctx context.Context, code *DeviceCode) error {
	if code == nil || code.Code == "" || code.UserCode == "" {
		return fmt.Errorf("device code and user code cannot be empty")
	}
	data, err := json.Marshal(code)
	if err != nil {
		return fmt.Errorf("failed to marshal device code: %w", err)
	}
	ttl := time.Until(code.ExpiresAt) + DeviceCodeRetention
	if ttl <= 0 {
		return fmt.Errorf("device code is already past retention")
	}

	userKey := redisKey(s.keyPrefix, KeyTypeUserCode, code.UserCode)
	ok, err := s.client.SetNX(ctx, userKey, code.Code, ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to store user code: %w", err)
	}
	if !ok {
		return fmt.Errorf("user code: %w", ErrAlreadyExists)
	}

	deviceKey := redisKey(s.keyPrefix, KeyTypeDevice, code.Code)
	ok, err = s.client.SetNX(ctx, deviceKey, data, ttl).Result()
	if err != nil || !ok {
		_ = s.client.Del(ctx, userKey).Err()
		if err != nil {
			return fmt.Errorf("failed to store device code: %w", err)
		}
		return fmt.Errorf("device code: %w", ErrAlreadyExists)
	}
	return nil
}

// GetDeviceCode returns the device code by its value.
func (s *RedisStorage) GetDeviceCode(ctx context.Context, code string) (*DeviceCode, error) {
	var dc DeviceCode
	if err := s.getJSON(ctx, redisKey(s.keyPrefix, KeyTypeDevice, code), &dc); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("device code: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get device code: %w", err)
	}
	return &dc, nil
}

// GetDeviceCodeByUserCode returns the device code bound to userCode.
func (s *RedisStorage) GetDeviceCodeByUserCode(ctx context.Context, userCode string) (*DeviceCode, error) {
	code, err := s.client.Get(ctx, redisKey(s.keyPrefix, KeyTypeUserCode, userCode)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("user code: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user code: %w", err)
	}
	return s.GetDeviceCode(ctx, code)
}

// ApproveDeviceCode marks the code approved under WATCH, keeping its TTL.
func (s *RedisStorage) ApproveDeviceCode(ctx context.Context, code string, auth *Authentication) (*DeviceCode, error) {
	key := redisKey(s.keyPrefix, KeyTypeDevice, code)
	var approved *DeviceCode

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return fmt.Errorf("device code: %w", ErrNotFound)
			}
			return err
		}
		var dc DeviceCode
		if err := json.Unmarshal(data, &dc); err != nil {
			return fmt.Errorf("failed to unmarshal device code: %w", err)
		}
		dc.Approved = true
		dc.Authentication = auth.Clone()
		updated, err := json.Marshal(&dc)
		if err != nil {
			return fmt.Errorf("failed to marshal device code: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, redis.KeepTTL)
			return nil
		})
		if err == nil {
			approved = &dc
		}
		return err
	}

	for i := 0; i < maxWatchRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return approved, nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("failed to approve device code: concurrent modification")
}

// ConsumeDeviceCode removes the code with GETDEL and returns it.
func (s *RedisStorage) ConsumeDeviceCode(ctx context.Context, code string) (*DeviceCode, error) {
	data, err := s.client.GetDel(ctx, redisKey(s.keyPrefix, KeyTypeDevice, code)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("device code: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to consume device code: %w", err)
	}

	var dc DeviceCode
	if err := json.Unmarshal(data, &dc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal device code: %w", err)
	}
	if err := s.client.Del(ctx, redisKey(s.keyPrefix, KeyTypeUserCode, dc.UserCode)).Err(); err != nil {
		slog.Warn("failed to delete user code index", "error", err)
	}
	return &dc, nil
}

// -----------------------
// Browser sessions
// -----------------------

// StoreSession saves or replaces a session with a TTL matching its
// expiration. Sessions that are already expired are not stored.
func (s *RedisStorage) StoreSession(ctx context.Context, session *BrowserSession) error {
	if session == nil || session.ID == "" {
		return fmt.Errorf("session ID cannot be empty")
	}
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	return s.client.Set(ctx, redisKey(s.keyPrefix, KeyTypeSession, session.ID), data, ttl).Err()
}

// GetSession returns the session if it is known and not expired.
func (s *RedisStorage) GetSession(ctx context.Context, id string) (*BrowserSession, error) {
	var session BrowserSession
	if err := s.getJSON(ctx, redisKey(s.keyPrefix, KeyTypeSession, id), &session); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("session: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session.IsExpired(time.Now()) {
		return nil, fmt.Errorf("session: %w", ErrNotFound)
	}
	return &session, nil
}

// DeleteSession removes the session.
func (s *RedisStorage) DeleteSession(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, redisKey(s.keyPrefix, KeyTypeSession, id)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
