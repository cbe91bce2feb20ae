// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/stacklok/trustengine/pkg/authserver"
	"github.com/stacklok/trustengine/pkg/logger"
	"github.com/stacklok/trustengine/pkg/telemetry"
	"github.com/stacklok/trustengine/pkg/versions"
)

const serverIdleTimeout = 60 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the trust engine server",
		Long: `Start the trust engine HTTP server.

The configuration is read from the file given by --config and from TRUSTD_*
environment variables. The server shuts down gracefully on SIGINT or SIGTERM.`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	tracerProvider, shutdownTracing, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, versions.GetVersionInfo().Version)
	if err != nil {
		return fmt.Errorf("failed to create tracer provider: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Errorf("Failed to flush traces: %v", err)
		}
	}()

	engine, err := authserver.New(ctx, cfg, authserver.WithTracerProvider(tracerProvider))
	if err != nil {
		return fmt.Errorf("failed to create trust engine: %w", err)
	}
	defer func() {
		if err := engine.Close(); err != nil {
			logger.Errorf("Failed to close trust engine: %v", err)
		}
	}()

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      engine.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  serverIdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Server listening on %s", cfg.Server.Address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	logger.Infof("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
		return err
	}

	logger.Infof("Server shutdown complete")
	return nil
}
