// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package crawl

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pdiddy/venue-harvest/internal/search"
	"github.com/pdiddy/venue-harvest/pkg/types"
)

const namespace = "venue_harvest"

// Drop reasons recorded by the crawler in addition to the fetcher's.
const (
	DropIrrelevant      = "irrelevant"
	DropClassifierError = "classifier_error"
	DropDuplicate       = "duplicate"
	DropMissingID       = "missing_id"
)

// Metrics counts crawl activity on a private registry so several runs in
// one process do not collide. It implements search.Observer.
type Metrics struct {
	Registry *prometheus.Registry

	queries       *prometheus.CounterVec
	queryFailures *prometheus.CounterVec
	pages         *prometheus.CounterVec
	candidates    prometheus.Counter
	accepted      prometheus.Counter
	dropped       *prometheus.CounterVec
}

// NewMetrics registers the crawl counters on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Queries started, by kind (venue or citations).",
		}, []string{"kind"}),
		queryFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "query_failures_total",
			Help:      "Queries abandoned, by failure kind.",
		}, []string{"reason"}),
		pages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_fetched_total",
			Help:      "Result pages fetched, by query kind.",
		}, []string{"kind"}),
		candidates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidates_total",
			Help:      "Records that passed the year filter and reached relevance filtering.",
		}),
		accepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_accepted_total",
			Help:      "Records appended to the result set.",
		}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_dropped_total",
			Help:      "Records not appended, by reason.",
		}, []string{"reason"}),
	}
	m.Registry.MustRegister(m.queries, m.queryFailures, m.pages, m.candidates, m.accepted, m.dropped)
	return m
}

// PageFetched implements search.Observer.
func (m *Metrics) PageFetched(q search.Query, _ int) {
	m.pages.WithLabelValues(queryKind(q)).Inc()
}

// RecordDropped implements search.Observer.
func (m *Metrics) RecordDropped(_ search.Query, _ types.PaperRecord, reason string) {
	m.dropped.WithLabelValues(reason).Inc()
}

func (m *Metrics) queryStarted(q search.Query) {
	m.queries.WithLabelValues(queryKind(q)).Inc()
}

func (m *Metrics) queryFailed(err error) {
	m.queryFailures.WithLabelValues(failureReason(err)).Inc()
}

func (m *Metrics) drop(reason string) { m.dropped.WithLabelValues(reason).Inc() }

// WriteTextfile writes the counters in Prometheus text format, suitable for
// the node_exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.Registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}

func queryKind(q search.Query) string {
	if q.Seed != "" {
		return "citations"
	}
	return "venue"
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, search.ErrRateLimitExhausted):
		return "rate_limit_exhausted"
	case errors.Is(err, search.ErrQueryRejected):
		return "query_rejected"
	case errors.Is(err, search.ErrFetchFailed):
		return "fetch_failed"
	default:
		return "other"
	}
}
