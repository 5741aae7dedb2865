package main

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/pdiddy/venue-harvest/pkg/types"
)

const (
	defaultUserAgent = "venue-harvest/0.1"
	defaultCSVPath   = "harvest.csv"
	defaultYearFrom  = 2005
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.env", "development")
	v.SetDefault("log.level", "")
	v.SetDefault("secrets_dir", ".secrets")

	v.SetDefault("venues", []string{})
	v.SetDefault("venues_file", "")
	v.SetDefault("keywords", []string{})
	v.SetDefault("keywords_file", "")

	v.SetDefault("year_from", defaultYearFrom)
	v.SetDefault("time_budget", time.Duration(0))
	v.SetDefault("expand_citations", false)

	v.SetDefault("fetch.timeout", 30*time.Second)
	v.SetDefault("fetch.user_agent", defaultUserAgent)
	v.SetDefault("fetch.proxy", "")
	v.SetDefault("fetch.endpoint", string(types.EndpointRelevance))
	v.SetDefault("fetch.batch_size", 100)
	v.SetDefault("fetch.limit", 0)
	v.SetDefault("fetch.request_interval", time.Second)
	v.SetDefault("fetch.api_key", "")
	v.SetDefault("fetch.retry.max_retries", 5)
	v.SetDefault("fetch.retry.base_delay", time.Second)
	v.SetDefault("fetch.retry.max_delay", time.Minute)

	v.SetDefault("filter.model_path", "")
	// filter.threshold has no default so an unset value falls through to the
	// model's own threshold.

	v.SetDefault("output.csv_path", defaultCSVPath)
	v.SetDefault("output.no_abstract_copy", false)
	v.SetDefault("output.manifest_path", "")
	v.SetDefault("output.db_path", "")
	v.SetDefault("output.metrics_path", "")
}

// loadCrawlConfig decodes and validates the crawl settings from v.
func loadCrawlConfig(v *viper.Viper) (types.CrawlConfig, error) {
	var cfg types.CrawlConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("parsing configuration: %w", err)
	}

	switch cfg.Fetch.Endpoint {
	case types.EndpointRelevance, types.EndpointBulk:
	default:
		return cfg, fmt.Errorf("unknown endpoint %q (want %q or %q)",
			cfg.Fetch.Endpoint, types.EndpointRelevance, types.EndpointBulk)
	}
	if cfg.Output.CSVPath == "" {
		return cfg, fmt.Errorf("output.csv_path is required")
	}
	if v.IsSet("filter.threshold") {
		threshold := v.GetFloat64("filter.threshold")
		if threshold < 0 || threshold > 1 {
			return cfg, fmt.Errorf("threshold %v outside [0, 1]", threshold)
		}
		cfg.Filter.Threshold = &threshold
	}
	if cfg.Fetch.RequestInterval < 0 {
		return cfg, fmt.Errorf("request_interval must not be negative")
	}
	if cfg.TimeBudget < 0 {
		return cfg, fmt.Errorf("time_budget must not be negative")
	}
	return cfg, nil
}
