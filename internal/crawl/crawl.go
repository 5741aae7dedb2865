// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package crawl runs a venue × keyword harvest. Queries run one after
// another; each one pages through the search API, and every record passes
// the relevance filter and the duplicate check before it joins the result
// set.
package crawl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pdiddy/venue-harvest/internal/relevance"
	"github.com/pdiddy/venue-harvest/internal/search"
	"github.com/pdiddy/venue-harvest/pkg/logger"
	"github.com/pdiddy/venue-harvest/pkg/types"
)

// ErrNoVenues is returned when a crawl is started without any venue.
var ErrNoVenues = errors.New("no venues to crawl")

// Input lists the venues and keywords to cross.
type Input struct {
	Venues   []string
	Keywords []string
}

// Failure records one abandoned query.
type Failure struct {
	Venue   string
	Keyword string
	Seed    string
	Offset  int
	Err     error
}

// Summary reports what a run did.
type Summary struct {
	RunID           string
	Started         time.Time
	Finished        time.Time
	Queries         int
	CitationQueries int
	Skipped         int
	BudgetExhausted bool
	Candidates      int
	Accepted        int
	Duplicates      int
	Irrelevant      int
	ClassifierFails int
	Failures        []Failure
}

// Result is the outcome of Run.
type Result struct {
	Records ResultSet
	Summary Summary
}

// Crawler wires the query builder, fetcher and filter together.
type Crawler struct {
	Builder *search.Builder
	Fetcher *search.Fetcher

	// Citations, when set, fetches the papers citing each venue result
	// after the venue pass.
	Citations *search.Fetcher

	Filter  *relevance.Filter
	Metrics *Metrics

	// TimeBudget stops the crawl at the next query boundary once elapsed.
	// Zero means no budget.
	TimeBudget time.Duration

	now func() time.Time
}

// state is the per-run mutable state, created fresh by every Run.
type state struct {
	seen    *SeenSet
	acc     *Accumulator
	summary *Summary
	started time.Time
}

// Run crawls every (venue, keyword) pair in venue-major order and returns
// the accepted records in discovery order. Per-query failures are logged and
// recorded in the summary; they do not fail the run. A canceled context
// stops the run and returns the records accepted so far with the context
// error.
func (c *Crawler) Run(ctx context.Context, in Input) (Result, error) {
	if len(in.Venues) == 0 {
		return Result{}, ErrNoVenues
	}
	if c.Filter == nil {
		c.Filter = relevance.PassThrough()
	}
	if c.Metrics == nil {
		c.Metrics = NewMetrics()
	}
	if c.now == nil {
		c.now = time.Now
	}

	st := &state{
		seen:    NewSeenSet(),
		acc:     &Accumulator{},
		summary: &Summary{RunID: uuid.NewString()},
		started: c.now(),
	}
	st.summary.Started = st.started
	ctx = logger.WithFields(ctx, zap.String("run_id", st.summary.RunID))

	if len(in.Keywords) == 0 {
		logger.Warn(ctx, "no keywords given, nothing to crawl")
	}

	logger.Info(ctx, "crawl started",
		zap.Int("venues", len(in.Venues)),
		zap.Int("keywords", len(in.Keywords)),
		zap.Bool("pass_through", c.Filter.PassThrough()))

	err := c.crawlVenues(ctx, st, in)
	if err == nil && c.Citations != nil {
		err = c.expandCitations(ctx, st)
	}

	st.summary.Finished = c.now()
	st.summary.Accepted = st.acc.Len()
	res := Result{Records: st.acc.Finalize(), Summary: *st.summary}

	logger.Info(ctx, "crawl finished",
		zap.Int("accepted", res.Summary.Accepted),
		zap.Int("duplicates", res.Summary.Duplicates),
		zap.Int("irrelevant", res.Summary.Irrelevant),
		zap.Int("failed_queries", len(res.Summary.Failures)),
		zap.Int("skipped_queries", res.Summary.Skipped),
		zap.Duration("elapsed", res.Summary.Finished.Sub(res.Summary.Started)))

	return res, err
}

func (c *Crawler) crawlVenues(ctx context.Context, st *state, in Input) error {
	total := len(in.Venues) * len(in.Keywords)
	done := 0
	for _, venue := range in.Venues {
		for _, keyword := range in.Keywords {
			if c.budgetSpent(st) {
				st.summary.BudgetExhausted = true
				st.summary.Skipped += total - done
				logger.Warn(ctx, "time budget exhausted, stopping crawl",
					zap.Duration("budget", c.TimeBudget),
					zap.Int("skipped_queries", total-done))
				return nil
			}
			done++

			q, err := c.Builder.Build(venue, keyword)
			if err != nil {
				logger.Warn(ctx, "skipping invalid query",
					zap.String("venue", venue),
					zap.String("keyword", keyword),
					zap.Error(err))
				st.summary.Skipped++
				continue
			}
			st.summary.Queries++
			if err := c.runQuery(ctx, st, c.Fetcher, q); err != nil {
				return err
			}
		}
	}
	return nil
}

// expandCitations fetches the citing papers of every record accepted during
// the venue pass. Citing papers are not themselves expanded.
func (c *Crawler) expandCitations(ctx context.Context, st *state) error {
	seeds := st.acc.Snapshot()
	logger.Info(ctx, "expanding citations", zap.Int("seeds", len(seeds)))

	for i, seed := range seeds {
		if c.budgetSpent(st) {
			st.summary.BudgetExhausted = true
			st.summary.Skipped += len(seeds) - i
			logger.Warn(ctx, "time budget exhausted, stopping citation expansion",
				zap.Int("skipped_seeds", len(seeds)-i))
			return nil
		}
		q, err := c.Builder.BuildCitations(seed)
		if err != nil {
			st.summary.Skipped++
			continue
		}
		st.summary.CitationQueries++
		if err := c.runQuery(ctx, st, c.Citations, q); err != nil {
			return err
		}
	}
	return nil
}

// runQuery drains one query. It returns an error only when ctx is done.
func (c *Crawler) runQuery(ctx context.Context, st *state, f *search.Fetcher, q search.Query) error {
	qctx := logger.WithFields(ctx,
		zap.String("venue", q.Venue),
		zap.String("keyword", q.Keyword))
	if q.Seed != "" {
		qctx = logger.WithFields(qctx, zap.String("seed", q.Seed))
	}
	c.Metrics.queryStarted(q)

	accepted := 0
	for rec, err := range f.Records(qctx, q) {
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return fmt.Errorf("crawl interrupted: %w", ctxErr)
			}
			c.recordFailure(qctx, st, q, err)
			break
		}
		if c.accept(qctx, st, q, rec) {
			accepted++
		}
	}

	logger.Debug(qctx, "query finished", zap.Int("accepted", accepted))
	return nil
}

func (c *Crawler) accept(ctx context.Context, st *state, q search.Query, rec types.PaperRecord) bool {
	st.summary.Candidates++
	c.Metrics.candidates.Inc()

	d := c.Filter.Evaluate(ctx, rec)
	if !d.Accept {
		if d.Err != nil {
			st.summary.ClassifierFails++
			c.Metrics.drop(DropClassifierError)
		} else {
			st.summary.Irrelevant++
			c.Metrics.drop(DropIrrelevant)
		}
		return false
	}
	rec.Score = d.Score

	if rec.ID == "" {
		c.Metrics.drop(DropMissingID)
		return false
	}
	if !st.seen.Add(rec.ID) {
		st.summary.Duplicates++
		c.Metrics.drop(DropDuplicate)
		return false
	}

	if rec.Keyword == "" {
		rec.Keyword = q.Keyword
	}
	if err := st.acc.Append(rec); err != nil {
		logger.Error(ctx, "appending record", zap.String("paper_id", rec.ID), zap.Error(err))
		return false
	}
	c.Metrics.accepted.Inc()
	return true
}

func (c *Crawler) recordFailure(ctx context.Context, st *state, q search.Query, err error) {
	f := Failure{Venue: q.Venue, Keyword: q.Keyword, Seed: q.Seed, Err: err}
	var qe *search.QueryError
	if errors.As(err, &qe) {
		f.Offset = qe.Offset
	}
	st.summary.Failures = append(st.summary.Failures, f)
	c.Metrics.queryFailed(err)

	logger.Warn(ctx, "query abandoned",
		zap.String("reason", failureReason(err)),
		zap.Int("offset", f.Offset),
		zap.Error(err))
}

func (c *Crawler) budgetSpent(st *state) bool {
	return c.TimeBudget > 0 && c.now().Sub(st.started) >= c.TimeBudget
}
