// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package crawl

import (
	"errors"
	"iter"
	"slices"

	"github.com/pdiddy/venue-harvest/pkg/types"
)

// ErrFinalized is returned when appending to a finalized accumulator.
var ErrFinalized = errors.New("result set already finalized")

// Accumulator collects accepted records in discovery order.
type Accumulator struct {
	records   []types.PaperRecord
	finalized bool
}

// Append adds rec at the end of the result set.
func (a *Accumulator) Append(rec types.PaperRecord) error {
	if a.finalized {
		return ErrFinalized
	}
	a.records = append(a.records, rec)
	return nil
}

// Len returns the number of records appended so far.
func (a *Accumulator) Len() int { return len(a.records) }

// Snapshot returns a copy of the records appended so far.
func (a *Accumulator) Snapshot() []types.PaperRecord { return slices.Clone(a.records) }

// Finalize closes the accumulator and returns the read-only result set.
// Calling it again returns the same set.
func (a *Accumulator) Finalize() ResultSet {
	a.finalized = true
	return ResultSet{records: a.records}
}

// ResultSet is the finalized, insertion-ordered output of a crawl.
type ResultSet struct {
	records []types.PaperRecord
}

// NewResultSet wraps records, in order, as a finalized result set.
func NewResultSet(records []types.PaperRecord) ResultSet {
	return ResultSet{records: slices.Clone(records)}
}

// Len returns the number of records.
func (r ResultSet) Len() int { return len(r.records) }

// All iterates over the records in discovery order.
func (r ResultSet) All() iter.Seq[types.PaperRecord] {
	return slices.Values(r.records)
}

// Records returns a copy of the records in discovery order.
func (r ResultSet) Records() []types.PaperRecord { return slices.Clone(r.records) }
