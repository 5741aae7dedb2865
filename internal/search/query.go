// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"fmt"
	"strings"
	"time"

	"github.com/pdiddy/venue-harvest/pkg/types"
)

const minPlausibleYear = 1000

// Query is one unit of crawl work: a venue-restricted keyword search, or the
// forward citations of a seed paper when Seed is set. A Query is built once
// per (venue, keyword) pair and consumed by exactly one fetch.
type Query struct {
	Venue    string
	Keyword  string
	YearFrom int

	// PageSize is the number of records requested per page.
	PageSize int

	// Limit caps the records fetched for this query; 0 means no cap.
	Limit int

	// Seed is the paper whose citations are listed; empty for venue queries.
	Seed string
}

// Source returns the provenance recorded on every record this query yields.
func (q Query) Source() string {
	if q.Seed != "" {
		return types.CitedBySource(q.Seed)
	}
	return types.VenueSource(q.Venue)
}

// Builder validates crawl-wide parameters once and builds one Query per
// (venue, keyword) pair.
type Builder struct {
	YearFrom int
	PageSize int
	Limit    int

	// MaxPageSize is the endpoint's page ceiling.
	MaxPageSize int
}

// NewBuilder checks the crawl-wide parameters. It fails fast on an
// implausible year, a non-positive or oversized page size, or a negative
// limit.
func NewBuilder(yearFrom, pageSize, limit int, endpoint types.Endpoint) (*Builder, error) {
	b := &Builder{YearFrom: yearFrom, PageSize: pageSize, Limit: limit, MaxPageSize: endpoint.MaxPageSize()}
	if err := b.validate(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Builder) validate() error {
	maxYear := time.Now().Year() + 1
	if b.YearFrom < minPlausibleYear || b.YearFrom > maxYear {
		return fmt.Errorf("year_from %d is not a plausible 4-digit year (%d..%d)", b.YearFrom, minPlausibleYear, maxYear)
	}
	if b.PageSize <= 0 {
		return fmt.Errorf("page size must be positive, got %d", b.PageSize)
	}
	if b.MaxPageSize > 0 && b.PageSize > b.MaxPageSize {
		return fmt.Errorf("page size %d exceeds the endpoint maximum of %d", b.PageSize, b.MaxPageSize)
	}
	if b.Limit < 0 {
		return fmt.Errorf("limit must not be negative, got %d", b.Limit)
	}
	return nil
}

// Build returns the Query for one (venue, keyword) pair. Venue and keyword
// are trimmed of surrounding whitespace but otherwise passed through
// verbatim: venue names must match the API's indexed names exactly.
func (b *Builder) Build(venue, keyword string) (Query, error) {
	if err := b.validate(); err != nil {
		return Query{}, err
	}
	venue = strings.TrimSpace(venue)
	keyword = strings.TrimSpace(keyword)
	if venue == "" {
		return Query{}, fmt.Errorf("venue is empty")
	}
	if keyword == "" {
		return Query{}, fmt.Errorf("keyword is empty")
	}
	return Query{
		Venue:    venue,
		Keyword:  keyword,
		YearFrom: b.YearFrom,
		PageSize: b.PageSize,
		Limit:    b.Limit,
	}, nil
}

// BuildCitations returns the Query listing forward citations of seed. The
// seed's keyword is carried along so citing papers keep their provenance.
func (b *Builder) BuildCitations(seed types.PaperRecord) (Query, error) {
	if err := b.validate(); err != nil {
		return Query{}, err
	}
	id := strings.TrimSpace(seed.ID)
	if id == "" {
		return Query{}, fmt.Errorf("seed paper has no identifier")
	}
	return Query{
		Keyword:  seed.Keyword,
		YearFrom: b.YearFrom,
		PageSize: min(b.PageSize, citationsMaxPageSize),
		Limit:    b.Limit,
		Seed:     id,
	}, nil
}
