// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package clientkeys

import (
	"context"

	"github.com/stacklok/trustengine/pkg/authserver/keys"
)

//go:generate mockgen -destination=mocks/mock_fetcher.go -package=mocks -source=fetcher.go RemoteKeySetFetcher

// RemoteKeySetFetcher retrieves a client's published key set.
type RemoteKeySetFetcher interface {
	// Fetch returns the key set currently published at uri.
	Fetch(ctx context.Context, uri string) (*keys.KeySet, error)
}
