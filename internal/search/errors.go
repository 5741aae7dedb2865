// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"errors"
	"fmt"
	"strings"
)

// Per-query failure kinds. A QueryError always matches exactly one of them
// with errors.Is. None of them is fatal to a crawl.
var (
	// ErrQueryRejected means the API refused the request (4xx other than 429).
	ErrQueryRejected = errors.New("query rejected")

	// ErrRateLimitExhausted means every retry was answered with HTTP 429.
	ErrRateLimitExhausted = errors.New("rate limit retries exhausted")

	// ErrFetchFailed means transient failures (5xx, network errors, timeouts)
	// outlasted the retry bound, or a successful response could not be parsed.
	ErrFetchFailed = errors.New("fetch failed")
)

// QueryError describes a failed page request with enough context to
// reproduce it.
type QueryError struct {
	Kind     error
	Venue    string
	Keyword  string
	Seed     string
	Offset   int
	Status   int
	Attempts int
	Message  string
	Err      error
}

func (e *QueryError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Seed != "" {
		fmt.Fprintf(&b, " (citations of %s", e.Seed)
	} else {
		fmt.Fprintf(&b, " (venue=%q keyword=%q", e.Venue, e.Keyword)
	}
	fmt.Fprintf(&b, " offset=%d", e.Offset)
	if e.Status != 0 {
		fmt.Fprintf(&b, " status=%d", e.Status)
	}
	if e.Attempts > 0 {
		fmt.Fprintf(&b, " attempts=%d", e.Attempts)
	}
	b.WriteString(")")
	if e.Message != "" {
		b.WriteString(": " + e.Message)
	}
	if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the kind sentinel and the underlying cause.
func (e *QueryError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newQueryError(kind error, q Query, cur Cursor) *QueryError {
	return &QueryError{Kind: kind, Venue: q.Venue, Keyword: q.Keyword, Seed: q.Seed, Offset: cur.Offset}
}
