// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"iter"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/pdiddy/venue-harvest/pkg/logger"
	"github.com/pdiddy/venue-harvest/pkg/types"
)

// Drop reasons reported to the Observer.
const (
	DropBelowYear   = "below_year"
	DropUnknownYear = "unknown_year"
)

// Observer receives fetch progress. The crawl's metrics implement it.
type Observer interface {
	PageFetched(q Query, records int)
	RecordDropped(q Query, rec types.PaperRecord, reason string)
}

type nopObserver struct{}

func (nopObserver) PageFetched(Query, int)                          {}
func (nopObserver) RecordDropped(Query, types.PaperRecord, string) {}

// Fetcher turns a query into a lazy sequence of records by paging a
// PageSource. Requests are spaced by a rate limiter shared by every query
// the fetcher runs.
type Fetcher struct {
	source   PageSource
	limiter  *rate.Limiter
	observer Observer
}

// NewFetcher returns a fetcher that waits at least interval between page
// requests. A non-positive interval disables throttling.
func NewFetcher(source PageSource, interval time.Duration, observer Observer) *Fetcher {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	if observer == nil {
		observer = nopObserver{}
	}
	return &Fetcher{
		source:   source,
		limiter:  rate.NewLimiter(limit, 1),
		observer: observer,
	}
}

// WithSource returns a fetcher for another source that shares this
// fetcher's rate limiter and observer.
func (f *Fetcher) WithSource(source PageSource) *Fetcher {
	return &Fetcher{source: source, limiter: f.limiter, observer: f.observer}
}

// Records returns the records of q page by page. The sequence ends when the
// API reports no next page, returns an empty page, when q.Limit records have
// been fetched, or at the
// first error, which is yielded once with a zero record. Each call performs
// a fresh fetch from the first page.
//
// Records published before q.YearFrom, or with no known year, are dropped
// even though the year filter was also sent to the API.
func (f *Fetcher) Records(ctx context.Context, q Query) iter.Seq2[types.PaperRecord, error] {
	return func(yield func(types.PaperRecord, error) bool) {
		var (
			cur     Cursor
			fetched int
		)
		for {
			size := q.PageSize
			if q.Limit > 0 {
				size = min(size, q.Limit-fetched)
			}
			if size <= 0 {
				return
			}

			if err := f.limiter.Wait(ctx); err != nil {
				yield(types.PaperRecord{}, err)
				return
			}

			page, err := f.source.FetchPage(ctx, q, cur, size)
			if err != nil {
				yield(types.PaperRecord{}, err)
				return
			}

			// Pages larger than requested are kept whole; only the
			// per-query cap trims them.
			records := page.Records
			if q.Limit > 0 && len(records) > q.Limit-fetched {
				records = records[:q.Limit-fetched]
			}
			fetched += len(records)
			f.observer.PageFetched(q, len(records))
			logger.Debug(ctx, "fetched page",
				zap.String("source", f.source.Name()),
				zap.Int("offset", cur.Offset),
				zap.Int("records", len(records)),
				zap.Int("fetched", fetched))

			for _, rec := range records {
				if reason := yearDropReason(rec, q.YearFrom); reason != "" {
					f.observer.RecordDropped(q, rec, reason)
					continue
				}
				if !yield(rec, nil) {
					return
				}
			}

			if page.Next == nil || page.returned() == 0 {
				return
			}
			cur = *page.Next
		}
	}
}

func yearDropReason(rec types.PaperRecord, yearFrom int) string {
	switch {
	case rec.Year == 0:
		return DropUnknownYear
	case rec.Year < yearFrom:
		return DropBelowYear
	default:
		return ""
	}
}
