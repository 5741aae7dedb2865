// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the venue-harvest CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/venue-harvest/internal/secrets"
	"github.com/pdiddy/venue-harvest/pkg/logger"
)

// version is set at build time via ldflags.
var version = "dev"

// configFileUsed is the config file initConfig read, if any. It is logged
// once the logger is set up.
var configFileUsed string

// envKeyReplacer maps nested keys such as fetch.api_key to
// VENUE_HARVEST_FETCH_API_KEY.
var envKeyReplacer = strings.NewReplacer(".", "_")

// rootCmd is the base command for the venue-harvest CLI.
var rootCmd = &cobra.Command{
	Use:   "venue-harvest",
	Short: "Harvest papers from publication venues by keyword",
	Long: `venue-harvest crawls the Semantic Scholar search API for every combination of
a list of publication venues and a list of keywords, keeps papers published
since a given year, optionally scores them with a relevance model, and writes
the deduplicated result set to CSV.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := logger.Setup(viper.GetString("log.env"), viper.GetString("log.level")); err != nil {
			return err
		}

		ctx := cmd.Context()
		if configFileUsed != "" {
			logger.Info(ctx, "using config file", zap.String("path", configFileUsed))
		}

		s, err := secrets.Load(ctx, viper.GetString("secrets_dir"))
		if err != nil {
			return err
		}
		if key := s.SemanticScholarAPIKey(); key != "" {
			// Flags, env and config file still take precedence.
			viper.SetDefault("fetch.api_key", key)
		}
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			slices.Sort(keys)
			logger.Info(ctx, "loaded secrets", zap.Strings("keys", keys))
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./venue-harvest.yaml or ~/.config/venue-harvest/config.yaml)")
	pf.String("log-level", "", "log level: debug, info, warn, error")
	pf.String("log-env", logger.DevelopmentEnvironment, "log format: development (console) or production (JSON)")
	pf.String("secrets-dir", secrets.DefaultDir, "directory of secret files")

	_ = viper.BindPFlag("log.level", pf.Lookup("log-level"))
	_ = viper.BindPFlag("log.env", pf.Lookup("log-env"))
	_ = viper.BindPFlag("secrets_dir", pf.Lookup("secrets-dir"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("venue-harvest")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "venue-harvest"))
		}
	}

	viper.SetEnvPrefix("VENUE_HARVEST")
	viper.SetEnvKeyReplacer(envKeyReplacer)
	viper.AutomaticEnv()

	setDefaults(viper.GetViper())

	configFileUsed = ""
	if err := viper.ReadInConfig(); err == nil {
		configFileUsed = viper.ConfigFileUsed()
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}
