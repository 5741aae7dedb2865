package types

import "time"

// HTTPConfig holds shared HTTP settings used by every component that talks
// to the remote API.
type HTTPConfig struct {
	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "venue-harvest/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`

	// Proxy is an optional proxy URL such as "http://127.0.0.1:7890".
	Proxy string `json:"proxy,omitempty" yaml:"proxy,omitempty" mapstructure:"proxy"`
}

// Endpoint selects which Semantic Scholar search endpoint is paged.
type Endpoint string

const (
	// EndpointRelevance is /paper/search: offset paging, at most 100 per page.
	EndpointRelevance Endpoint = "search"

	// EndpointBulk is /paper/search/bulk: token paging, at most 1000 per page.
	EndpointBulk Endpoint = "bulk"
)

// MaxPageSize returns the largest page the endpoint accepts.
func (e Endpoint) MaxPageSize() int {
	if e == EndpointBulk {
		return 1000
	}
	return 100
}

// RetryConfig controls the backoff policy applied to every page request.
type RetryConfig struct {
	// MaxRetries bounds the number of retries after the first attempt
	// (default 5).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`

	// BaseDelay is the first backoff delay; it doubles per consecutive retry
	// (default 1s).
	BaseDelay time.Duration `json:"base_delay" yaml:"base_delay" mapstructure:"base_delay"`

	// MaxDelay caps a single backoff delay, including Retry-After values
	// (default 60s).
	MaxDelay time.Duration `json:"max_delay" yaml:"max_delay" mapstructure:"max_delay"`
}

// FetchConfig holds settings for paging through the search API.
type FetchConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`
	Retry      RetryConfig `json:"retry" yaml:"retry" mapstructure:"retry"`

	// Endpoint selects relevance search or bulk search (default "search").
	Endpoint Endpoint `json:"endpoint" yaml:"endpoint" mapstructure:"endpoint"`

	// BatchSize is the number of records requested per page (default 100).
	BatchSize int `json:"batch_size" yaml:"batch_size" mapstructure:"batch_size"`

	// Limit caps the records fetched for a single query; 0 means no cap.
	Limit int `json:"limit" yaml:"limit" mapstructure:"limit"`

	// RequestInterval is the minimum spacing between consecutive requests
	// (default 1s).
	RequestInterval time.Duration `json:"request_interval" yaml:"request_interval" mapstructure:"request_interval"`

	// APIKey is an optional Semantic Scholar API key sent as x-api-key.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`
}

// FilterConfig holds the relevance classifier settings.
type FilterConfig struct {
	// ModelPath is the path to a trained relevance model; empty means
	// pass-through mode.
	ModelPath string `json:"model_path,omitempty" yaml:"model_path,omitempty" mapstructure:"model_path"`

	// Threshold is the minimum score for acceptance (inclusive). When nil the
	// model file's own threshold, if any, is used. An explicit zero accepts
	// every scored record.
	Threshold *float64 `json:"threshold,omitempty" yaml:"threshold,omitempty" mapstructure:"-"`
}

// OutputConfig holds the destinations written at the end of a crawl.
type OutputConfig struct {
	// CSVPath is the main tabular output (default "harvest.csv").
	CSVPath string `json:"csv_path" yaml:"csv_path" mapstructure:"csv_path"`

	// NoAbstractCopy also writes <name>_noabs.csv without the abstract column.
	NoAbstractCopy bool `json:"no_abstract_copy" yaml:"no_abstract_copy" mapstructure:"no_abstract_copy"`

	// ManifestPath, when set, receives a YAML summary of the run.
	ManifestPath string `json:"manifest_path,omitempty" yaml:"manifest_path,omitempty" mapstructure:"manifest_path"`

	// DBPath, when set, receives the result set in a SQLite database.
	DBPath string `json:"db_path,omitempty" yaml:"db_path,omitempty" mapstructure:"db_path"`

	// MetricsPath, when set, receives crawl counters in Prometheus text format.
	MetricsPath string `json:"metrics_path,omitempty" yaml:"metrics_path,omitempty" mapstructure:"metrics_path"`
}

// CrawlConfig groups everything one crawl run needs.
type CrawlConfig struct {
	Fetch  FetchConfig  `json:"fetch" yaml:"fetch" mapstructure:"fetch"`
	Filter FilterConfig `json:"filter" yaml:"filter" mapstructure:"filter"`
	Output OutputConfig `json:"output" yaml:"output" mapstructure:"output"`

	// YearFrom is the earliest publication year kept (default 2005).
	YearFrom int `json:"year_from" yaml:"year_from" mapstructure:"year_from"`

	// TimeBudget bounds the whole crawl; checked only between queries.
	// Zero means unbounded.
	TimeBudget time.Duration `json:"time_budget" yaml:"time_budget" mapstructure:"time_budget"`

	// ExpandCitations fetches forward citations of every accepted seed.
	ExpandCitations bool `json:"expand_citations" yaml:"expand_citations" mapstructure:"expand_citations"`
}
