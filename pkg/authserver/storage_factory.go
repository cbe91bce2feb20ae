// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package authserver

import (
	"context"
	"fmt"

	"github.com/stacklok/trustengine/pkg/authserver/storage"
	"github.com/stacklok/trustengine/pkg/config"
	"github.com/stacklok/trustengine/pkg/logger"
)

// NewStorage creates a Storage implementation based on cfg.
// An empty type defaults to in-memory storage.
func NewStorage(ctx context.Context, cfg config.StorageConfig) (storage.Storage, error) {
	switch cfg.Type {
	case config.StorageTypeMemory, "":
		logger.Debugw("using in-memory storage")
		return storage.NewMemoryStorage(), nil

	case config.StorageTypeRedis:
		password, err := cfg.Redis.RedisPassword()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve Redis password: %w", err)
		}
		logger.Debugw("connecting to redis storage", "addr", cfg.Redis.Addr, "db", cfg.Redis.DB)
		stor, err := storage.NewRedisStorage(ctx, storage.RedisConfig{
			Addr:      cfg.Redis.Addr,
			Username:  cfg.Redis.Username,
			Password:  password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
		})
		if err != nil {
			return nil, err
		}
		return stor, nil

	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
