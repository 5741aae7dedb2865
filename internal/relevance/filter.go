// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package relevance decides whether a fetched paper is on topic. A Filter
// without a Scorer accepts everything; with one it keeps records scoring at
// or above a threshold.
package relevance

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/pdiddy/venue-harvest/pkg/logger"
	"github.com/pdiddy/venue-harvest/pkg/types"
)

// DefaultThreshold applies when neither the configuration nor the model
// provides one.
const DefaultThreshold = 0.5

// Scorer rates the topical relevance of a text. Higher is more relevant.
type Scorer interface {
	Score(text string) (float64, error)
}

// Decision is the outcome of filtering one record.
type Decision struct {
	Accept bool

	// Score is nil in pass-through mode and when the scorer failed.
	Score *float64

	// Err is the swallowed scorer failure, if any. A record with Err set is
	// always rejected.
	Err error
}

// Filter applies an optional Scorer with an inclusive threshold.
type Filter struct {
	scorer    Scorer
	threshold float64
}

// PassThrough returns a filter that accepts every record.
func PassThrough() *Filter { return &Filter{} }

// NewFilter returns a filter that accepts records scoring at or above
// threshold. A nil scorer gives pass-through mode.
func NewFilter(scorer Scorer, threshold float64) *Filter {
	return &Filter{scorer: scorer, threshold: threshold}
}

// PassThrough reports whether the filter accepts everything.
func (f *Filter) PassThrough() bool { return f.scorer == nil }

// Evaluate scores rec and decides. Scorer errors and non-finite scores
// reject the record and are logged; they are never returned to the caller.
func (f *Filter) Evaluate(ctx context.Context, rec types.PaperRecord) Decision {
	if f.scorer == nil {
		return Decision{Accept: true}
	}

	score, err := f.safeScore(rec.Text())
	if err == nil && (math.IsNaN(score) || math.IsInf(score, 0)) {
		err = fmt.Errorf("classifier returned non-finite score %v", score)
	}
	if err != nil {
		logger.Warn(ctx, "classifier failed, rejecting record",
			zap.String("paper_id", rec.ID),
			zap.Error(err))
		return Decision{Err: err}
	}

	return Decision{Accept: score >= f.threshold, Score: &score}
}

// safeScore turns a scorer panic into an error.
func (f *Filter) safeScore(text string) (score float64, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("classifier panicked: %v", p)
		}
	}()
	return f.scorer.Score(text)
}
