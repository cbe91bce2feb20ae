// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/stacklok/trustengine/pkg/config"
)

func TestNewTracerProvider(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		cfg      config.TelemetryConfig
		wantNoop bool
	}{
		{name: "no endpoint", cfg: config.TelemetryConfig{}, wantNoop: true},
		{
			name: "insecure endpoint with headers",
			cfg: config.TelemetryConfig{
				Endpoint:     "localhost:4318",
				Headers:      map[string]string{"x-api-key": "secret"},
				Insecure:     true,
				SamplingRate: 1,
				ServiceName:  "trustd",
			},
		},
		{
			name: "secure endpoint",
			cfg: config.TelemetryConfig{
				Endpoint:     "otel.example.com:4318",
				SamplingRate: 0.1,
				ServiceName:  "trustd",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()

			tp, shutdown, err := NewTracerProvider(ctx, tt.cfg, "test")
			require.NoError(t, err)
			require.NotNil(t, shutdown)

			if tt.wantNoop {
				assert.IsType(t, tracenoop.TracerProvider{}, tp)
			} else {
				assert.IsType(t, &sdktrace.TracerProvider{}, tp)
			}
			assert.NoError(t, shutdown(ctx))
		})
	}
}
