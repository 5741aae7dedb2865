// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search builds venue/keyword queries and pages through the
// Semantic Scholar Graph API, yielding paper records one at a time.
package search

import (
	"context"

	"github.com/pdiddy/venue-harvest/pkg/types"
)

// Cursor identifies a page. Offset-paged endpoints advance Offset; token-paged
// endpoints carry Token and keep Offset as the count of records already
// fetched, for logging.
type Cursor struct {
	Offset int
	Token  string
}

// Page is one page of results and the cursor of the next page. Next is nil
// when the API reports no more results.
type Page struct {
	Records []types.PaperRecord
	Next    *Cursor

	// Returned is the number of items the API sent, including any the
	// source discarded as unusable. Zero means len(Records).
	Returned int
}

func (p Page) returned() int {
	if p.Returned > 0 {
		return p.Returned
	}
	return len(p.Records)
}

// PageSource fetches a single page for a query. Implementations apply the
// retry policy and return a *QueryError on failure.
type PageSource interface {
	Name() string
	FetchPage(ctx context.Context, q Query, cur Cursor, size int) (Page, error)
}
