// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the venue-harvest crawl:
// the paper record produced by the fetcher and the configuration structs
// consumed by every stage.
package types

import (
	"strconv"
	"strings"
)

// PaperRecord is one paper returned by the search API. Records are treated
// as immutable once fetched; filters and the accumulator copy them by value.
type PaperRecord struct {
	// ID is the Semantic Scholar paperId, globally unique per paper.
	ID string `json:"paper_id" yaml:"paper_id"`

	// Title is the paper title as returned by the API.
	Title string `json:"title" yaml:"title"`

	// Abstract is the abstract or snippet text; often empty.
	Abstract string `json:"abstract" yaml:"abstract"`

	// Year is the publication year; 0 when the API does not know it.
	Year int `json:"year" yaml:"year"`

	// Venue is the venue name as indexed by the API.
	Venue string `json:"venue" yaml:"venue"`

	// DOI and ArXiv are preserved external identifiers.
	DOI   string `json:"doi,omitempty" yaml:"doi,omitempty"`
	ArXiv string `json:"arxiv,omitempty" yaml:"arxiv,omitempty"`

	// Source records how the paper was discovered: "venue:<name>" or
	// "cited_by:<paper id>".
	Source string `json:"source" yaml:"source"`

	// Keyword is the search keyword of the query that discovered the paper.
	Keyword string `json:"keyword,omitempty" yaml:"keyword,omitempty"`

	// Score is the relevance score assigned by the classifier, if one ran.
	Score *float64 `json:"score,omitempty" yaml:"score,omitempty"`
}

// Columns lists the tabular output columns in order.
var Columns = []string{"paper_id", "title", "abstract", "year", "venue", "doi", "arxiv", "source", "keyword", "score"}

// Row renders the record in Columns order.
func (p PaperRecord) Row() []string {
	year := ""
	if p.Year > 0 {
		year = strconv.Itoa(p.Year)
	}
	score := ""
	if p.Score != nil {
		score = strconv.FormatFloat(*p.Score, 'f', 4, 64)
	}
	return []string{p.ID, p.Title, p.Abstract, year, p.Venue, p.DOI, p.ArXiv, p.Source, p.Keyword, score}
}

// Text returns the title and abstract joined for classification. Missing
// fields contribute nothing.
func (p PaperRecord) Text() string {
	return strings.TrimSpace(p.Title + " " + p.Abstract)
}

// VenueSource formats the Source value for a venue query.
func VenueSource(venue string) string { return "venue:" + venue }

// CitedBySource formats the Source value for a forward citation of seed.
func CitedBySource(seedID string) string { return "cited_by:" + seedID }
