// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package app provides the commands of the trustd command-line application.
package app

import (
	"encoding/json"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stacklok/trustengine/pkg/authserver"
	"github.com/stacklok/trustengine/pkg/authserver/storage"
	"github.com/stacklok/trustengine/pkg/config"
	"github.com/stacklok/trustengine/pkg/logger"
	"github.com/stacklok/trustengine/pkg/versions"
)

// NewRootCmd creates the root command of the trustd CLI.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:               "trustd",
		DisableAutoGenTag: true,
		Short:             "Trust engine - OIDC request objects, token grants and key publication",
		Long: `trustd is an OAuth2/OIDC trust engine. It provides:

- Signed and encrypted authorization request objects
- Chained token, device code and JWT-bearer grants
- Token introspection
- OIDC session state checks
- JWKS publication and OIDC discovery`,
		Run: func(cmd *cobra.Command, _ []string) {
			if err := cmd.Help(); err != nil {
				logger.Errorf("Error displaying help: %v", err)
			}
		},
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			logger.Initialize()
		},
	}

	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug mode")
	if err := viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		logger.Errorf("Error binding debug flag: %v", err)
	}

	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to the trustd configuration file")
	if err := viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config")); err != nil {
		logger.Errorf("Error binding config flag: %v", err)
	}

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newValidateCmd())
	rootCmd.AddCommand(newJWKSCmd())
	rootCmd.AddCommand(newVersionCmd())

	// Silence printing the usage on error
	rootCmd.SilenceUsage = true

	return rootCmd
}

// loadConfig loads the file named by --config, if any, overlaid with TRUSTD_* variables.
func loadConfig() (*config.Config, error) {
	configPath := viper.GetString("config")
	if configPath != "" {
		logger.Infof("Loading configuration from: %s", configPath)
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("configuration loading failed: %w", err)
	}
	return cfg, nil
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration",
		Long: `Validate the trustd configuration for syntax and semantic errors.

This command checks:
- YAML syntax validity
- Issuer, storage and client settings
- Inline and file client key sets`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			for _, cc := range cfg.Clients {
				if _, err := authserver.NewClient(cc); err != nil {
					return fmt.Errorf("client %s: %w", cc.ID, err)
				}
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintln(out, "Configuration is valid")
			_, _ = fmt.Fprintf(out, "  Issuer: %s\n", cfg.Issuer)
			_, _ = fmt.Fprintf(out, "  Storage: %s\n", storageType(cfg))
			_, _ = fmt.Fprintf(out, "  Clients: %d\n", len(cfg.Clients))
			_, _ = fmt.Fprintf(out, "  Device flow: %t\n", cfg.Device.Enabled)
			_, _ = fmt.Fprintf(out, "  JWT-bearer: %t (trusted issuers: %d)\n",
				cfg.Assertion.Enabled, len(cfg.Assertion.TrustedIssuers))
			return nil
		},
	}
}

func newJWKSCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "jwks",
		Short: "Print the public JWKS",
		Long: `Print the public signing and encryption keys as a JSON Web Key Set.

Keys are loaded exactly as 'serve' loads them. Storage is kept in memory
and no listener is started.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			engine, err := authserver.New(cmd.Context(), cfg,
				authserver.WithStorage(storage.NewMemoryStorage()),
				authserver.WithRegistry(prometheus.NewRegistry()),
			)
			if err != nil {
				return err
			}
			defer func() { _ = engine.Close() }()

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(engine.PublicKeys())
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := versions.GetVersionInfo()
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "trustd %s (commit %s, built %s, %s %s)\n",
				info.Version, info.Commit, info.BuildDate, info.GoVersion, info.Platform)
			return err
		},
	}
}

func storageType(cfg *config.Config) string {
	if cfg.Storage.Type == "" {
		return config.StorageTypeMemory
	}
	return cfg.Storage.Type
}
