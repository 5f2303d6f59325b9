// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the insight-engine CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/insight-engine/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// keyStore holds credentials loaded from .secrets/ at startup.
var keyStore *secrets.Store

// rootCmd is the base command for the insight-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "insight-engine",
	Short: "Concurrent market research aggregation",
	Long: `insight-engine researches a business theme by planning a set of domestic
and global search queries, running them concurrently against a web search
API, and aggregating the merged results into ranked, categorized insights
with a readable summary.

Run a research pass with "insight-engine research", or reformat a saved
summary with "insight-engine show".`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Open(".secrets/")
		if err != nil {
			return err
		}
		keyStore = s
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./insight-engine.yaml or ~/.config/insight-engine/config.yaml)")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable debug logging")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("insight-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "insight-engine"))
		}
	}

	viper.SetEnvPrefix("INSIGHT_ENGINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// newLogger builds the process logger. Console output goes to stderr so
// stdout stays clean for formatted results.
func newLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose, _ := rootCmd.PersistentFlags().GetBool("verbose"); verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
