package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/venue-harvest/internal/crawl"
	"github.com/pdiddy/venue-harvest/internal/httputil"
	"github.com/pdiddy/venue-harvest/internal/inputs"
	"github.com/pdiddy/venue-harvest/internal/output"
	"github.com/pdiddy/venue-harvest/internal/relevance"
	"github.com/pdiddy/venue-harvest/internal/search"
	"github.com/pdiddy/venue-harvest/internal/store"
	"github.com/pdiddy/venue-harvest/pkg/logger"
	"github.com/pdiddy/venue-harvest/pkg/types"
)

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Crawl every venue × keyword pair and write the result set",
	Long: `Crawl runs one search per (venue, keyword) pair, venue by venue, paging through
the results with a polite request interval. Papers older than --year-from are
dropped, a relevance model (if given) rejects off-topic papers, and each paper
is kept once, under the first query that found it.

A query that fails after its retries is logged and skipped; the crawl carries
on with the next pair. The CSV is written even when some queries failed.`,
	RunE: runCrawl,
}

// crawlFlags maps flag names to configuration keys.
var crawlFlags = map[string]string{
	"venues":           "venues",
	"venues-file":      "venues_file",
	"keywords":         "keywords",
	"keywords-file":    "keywords_file",
	"year-from":        "year_from",
	"time-budget":      "time_budget",
	"expand-citations": "expand_citations",
	"endpoint":         "fetch.endpoint",
	"batch-size":       "fetch.batch_size",
	"limit":            "fetch.limit",
	"request-interval": "fetch.request_interval",
	"timeout":          "fetch.timeout",
	"proxy":            "fetch.proxy",
	"api-key":          "fetch.api_key",
	"max-retries":      "fetch.retry.max_retries",
	"model":            "filter.model_path",
	"threshold":        "filter.threshold",
	"out":              "output.csv_path",
	"no-abstract-copy": "output.no_abstract_copy",
	"manifest":         "output.manifest_path",
	"db":               "output.db_path",
	"metrics":          "output.metrics_path",
}

func init() {
	f := crawlCmd.Flags()
	f.StringSlice("venues", nil, "venue names, comma-separated")
	f.String("venues-file", "", "file of venue names, one per line")
	f.StringSlice("keywords", nil, "keywords, comma-separated")
	f.String("keywords-file", "", "file of keywords, one per line")
	f.Int("year-from", defaultYearFrom, "earliest publication year kept")
	f.Duration("time-budget", 0, "stop starting new queries after this long (0 = unbounded)")
	f.Bool("expand-citations", false, "also fetch papers citing each result")
	f.String("endpoint", string(types.EndpointRelevance), "search endpoint: search (offset paging) or bulk (token paging)")
	f.Int("batch-size", 100, "records requested per page")
	f.Int("limit", 0, "maximum records fetched per query (0 = no cap)")
	f.Duration("request-interval", 0, "minimum spacing between requests (default 1s)")
	f.Duration("timeout", 0, "HTTP request timeout (default 30s)")
	f.String("proxy", "", "HTTP proxy URL")
	f.String("api-key", "", "Semantic Scholar API key")
	f.Int("max-retries", 0, "retries per page request (default 5)")
	f.String("model", "", "relevance model file; omit to keep every paper")
	f.Float64("threshold", 0, "minimum relevance score kept (default: model's own, else 0.5)")
	f.String("out", defaultCSVPath, "output CSV path")
	f.Bool("no-abstract-copy", false, "also write <out>_noabs.csv without abstracts")
	f.String("manifest", "", "write a YAML run manifest to this path")
	f.String("db", "", "also store the result set in this SQLite database")
	f.String("metrics", "", "write crawl counters in Prometheus text format to this path")

	for name, key := range crawlFlags {
		_ = viper.BindPFlag(key, f.Lookup(name))
	}

	rootCmd.AddCommand(crawlCmd)
}

func runCrawl(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadCrawlConfig(viper.GetViper())
	if err != nil {
		return err
	}

	in, err := readInput()
	if err != nil {
		return err
	}

	builder, err := search.NewBuilder(cfg.YearFrom, cfg.Fetch.BatchSize, cfg.Fetch.Limit, cfg.Fetch.Endpoint)
	if err != nil {
		return fmt.Errorf("invalid query settings: %w", err)
	}

	filter, threshold, err := buildFilter(cfg.Filter)
	if err != nil {
		return err
	}

	client, err := httputil.NewClient(cfg.Fetch.HTTPConfig)
	if err != nil {
		return err
	}
	backend := search.NewSemanticScholarBackend(client, cfg.Fetch)
	metrics := crawl.NewMetrics()
	fetcher := search.NewFetcher(backend, cfg.Fetch.RequestInterval, metrics)

	c := &crawl.Crawler{
		Builder:    builder,
		Fetcher:    fetcher,
		Filter:     filter,
		Metrics:    metrics,
		TimeBudget: cfg.TimeBudget,
	}
	if cfg.ExpandCitations {
		c.Citations = fetcher.WithSource(search.CitationSource{SemanticScholarBackend: backend})
	}

	res, runErr := c.Run(ctx, in)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}

	// Partial results of an interrupted crawl are still written.
	if err := writeOutputs(context.WithoutCancel(ctx), cmd.OutOrStdout(), cfg, in, threshold, res, metrics); err != nil {
		return err
	}
	return runErr
}

func readInput() (crawl.Input, error) {
	venues, err := inputs.Venues(viper.GetString("venues_file"), viper.GetStringSlice("venues"))
	if err != nil {
		return crawl.Input{}, err
	}
	if len(venues) == 0 {
		return crawl.Input{}, fmt.Errorf("%w: pass --venues or --venues-file", crawl.ErrNoVenues)
	}
	keywords, err := inputs.Keywords(viper.GetString("keywords_file"), viper.GetStringSlice("keywords"))
	if err != nil {
		return crawl.Input{}, err
	}
	return crawl.Input{Venues: venues, Keywords: keywords}, nil
}

// buildFilter loads the relevance model, if configured, and returns the
// filter with the threshold it applies (zero in pass-through mode).
func buildFilter(cfg types.FilterConfig) (*relevance.Filter, float64, error) {
	if cfg.ModelPath == "" {
		return relevance.PassThrough(), 0, nil
	}
	m, err := relevance.LoadModel(cfg.ModelPath)
	if err != nil {
		return nil, 0, err
	}
	threshold := relevance.ResolveThreshold(cfg.Threshold, m)
	return relevance.NewFilter(m, threshold), threshold, nil
}

func writeOutputs(ctx context.Context, w io.Writer, cfg types.CrawlConfig, in crawl.Input, threshold float64, res crawl.Result, metrics *crawl.Metrics) error {
	out := cfg.Output

	if err := output.WriteCSV(out.CSVPath, res.Records.All()); err != nil {
		return err
	}
	fmt.Fprintf(w, "wrote %d papers to %s\n", res.Records.Len(), out.CSVPath)

	if out.NoAbstractCopy {
		path := output.NoAbstractPath(out.CSVPath)
		if err := output.WriteNoAbstractCSV(path, res.Records.All()); err != nil {
			return err
		}
		fmt.Fprintf(w, "wrote no-abstract copy to %s\n", path)
	}

	if out.DBPath != "" {
		if err := saveToStore(ctx, out.DBPath, in, res); err != nil {
			return fmt.Errorf("%w: %v", output.ErrOutputWriteFailed, err)
		}
		fmt.Fprintf(w, "stored run %s in %s\n", res.Summary.RunID, out.DBPath)
	}

	if out.ManifestPath != "" {
		if err := output.WriteManifest(out.ManifestPath, output.NewManifest(in, cfg, threshold, res)); err != nil {
			return err
		}
	}

	if out.MetricsPath != "" {
		if err := metrics.WriteTextfile(out.MetricsPath); err != nil {
			logger.Warn(ctx, "metrics not written", zap.Error(err))
		}
	}

	if n := len(res.Summary.Failures); n > 0 {
		fmt.Fprintf(w, "%d query(ies) failed; see log for details\n", n)
	}
	return nil
}

func saveToStore(ctx context.Context, path string, in crawl.Input, res crawl.Result) error {
	s, err := store.Open(path)
	if err != nil {
		return err
	}
	defer s.Close()

	run := store.Run{
		ID:       res.Summary.RunID,
		Started:  res.Summary.Started,
		Finished: res.Summary.Finished,
		Venues:   in.Venues,
		Keywords: in.Keywords,
		Accepted: res.Records.Len(),
	}
	return s.SaveRun(ctx, run, res.Records.All())
}
