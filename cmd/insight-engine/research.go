// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/insight-engine/internal/engine"
	"github.com/pdiddy/insight-engine/internal/metrics"
	"github.com/pdiddy/insight-engine/internal/secrets"
	"github.com/pdiddy/insight-engine/pkg/types"
)

var researchCmd = &cobra.Command{
	Use:   "research <theme>",
	Short: "Research a business theme and print aggregated insights",
	Long: `Research plans domestic and global search queries for the theme, runs
them concurrently, and prints the deduplicated, ranked insights with a
summary narrative. A Serper API key is required (SERPER_API_KEY or
.secrets/serper-api-key); an OpenAI key is optional and improves query
planning and the narrative.`,
	Args: cobra.ExactArgs(1),
	RunE: runResearch,
}

func init() {
	f := researchCmd.Flags()
	f.String("format", "table", "output format: table or json")
	f.String("output", "", "also save the summary as YAML to this path")
	f.Int("metrics-port", 0, "serve Prometheus metrics on this port (0 disables)")
	f.String("cache", "", "cache backend: memory or sqlite")
	f.String("cache-path", "", "SQLite cache file (sqlite backend only)")
	f.String("geo", "", "domestic country code (default jp)")
	f.String("lang", "", "domestic language code (default ja)")
	f.Int("results", 0, "results requested per query")
	f.Int("max-concurrent", 0, "maximum concurrent searches")

	rootCmd.AddCommand(researchCmd)
}

func runResearch(cmd *cobra.Command, args []string) error {
	log := newLogger()
	cfg := buildConfig(cmd)

	if cfg.Search.APIKey == "" {
		return fmt.Errorf("no search API key: set %s or create .secrets/%s",
			secrets.EnvName(secrets.KeySerper), secrets.KeySerper)
	}

	if port, _ := cmd.Flags().GetInt("metrics-port"); port > 0 {
		srv := metrics.Start(port, log)
		defer srv.Stop(context.Background())
		log.Info().Int("port", port).Msg("serving metrics")
	}

	eng, err := engine.New(cfg, log)
	if err != nil {
		return err
	}
	defer eng.Close()

	summary, err := eng.Run(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if output, _ := cmd.Flags().GetString("output"); output != "" {
		if err := engine.WriteSummaryFile(output, summary); err != nil {
			return err
		}
		log.Info().Str("path", output).Msg("summary saved")
	}

	return printSummary(cmd, summary)
}

func printSummary(cmd *cobra.Command, summary *types.ResearchSummary) error {
	format, _ := cmd.Flags().GetString("format")
	switch format {
	case "json":
		return engine.FormatJSON(summary, os.Stdout)
	case "table", "":
		engine.FormatTable(summary, os.Stdout)
		return nil
	default:
		return fmt.Errorf("unknown format %q (expected table or json)", format)
	}
}

// buildConfig assembles the engine configuration. Config file and
// environment values come first, flags override them, and secrets supply
// the API keys. Zero values defer to the engine defaults.
func buildConfig(cmd *cobra.Command) types.EngineConfig {
	f := cmd.Flags()

	var cfg types.EngineConfig
	cfg.Search.Timeout = viper.GetDuration("search.timeout")
	cfg.Search.UserAgent = viper.GetString("search.user_agent")
	cfg.Search.ResultCount = viper.GetInt("search.result_count")
	cfg.Search.MaxAttempts = viper.GetInt("search.max_attempts")
	cfg.Search.RetryBaseDelay = viper.GetDuration("search.retry_base_delay")
	cfg.Search.RetryMaxDelay = viper.GetDuration("search.retry_max_delay")
	cfg.Cache.Backend = types.CacheBackend(viper.GetString("cache.backend"))
	cfg.Cache.TTL = viper.GetDuration("cache.ttl")
	cfg.Cache.Capacity = viper.GetInt("cache.capacity")
	cfg.Cache.Path = viper.GetString("cache.path")
	cfg.RateLimit.Capacity = viper.GetInt("rate_limit.capacity")
	cfg.RateLimit.Window = viper.GetDuration("rate_limit.window")
	cfg.AI.Model = viper.GetString("ai.model")
	cfg.AI.Timeout = viper.GetDuration("ai.timeout")
	cfg.Region.DomesticGeo = viper.GetString("region.domestic_geo")
	cfg.Region.DomesticLang = viper.GetString("region.domestic_lang")
	cfg.Region.GlobalGeo = viper.GetString("region.global_geo")
	cfg.Region.GlobalLang = viper.GetString("region.global_lang")
	cfg.MaxConcurrent = viper.GetInt("max_concurrent")

	cfg.Search.APIKey = keyStore.Get(secrets.KeySerper)
	cfg.AI.APIKey = keyStore.Get(secrets.KeyOpenAI)

	if backend, _ := f.GetString("cache"); backend != "" {
		cfg.Cache.Backend = types.CacheBackend(backend)
	}
	if path, _ := f.GetString("cache-path"); path != "" {
		cfg.Cache.Path = path
	}
	if geo, _ := f.GetString("geo"); geo != "" {
		cfg.Region.DomesticGeo = geo
	}
	if lang, _ := f.GetString("lang"); lang != "" {
		cfg.Region.DomesticLang = lang
	}
	if n, _ := f.GetInt("results"); n > 0 {
		cfg.Search.ResultCount = n
	}
	if n, _ := f.GetInt("max-concurrent"); n > 0 {
		cfg.MaxConcurrent = n
	}

	return cfg.WithDefaults()
}
