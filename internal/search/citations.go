// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pdiddy/venue-harvest/pkg/types"
)

// semanticPaperBase is the Semantic Scholar single-paper endpoint. Declared
// as a var so tests can substitute an httptest server.
var semanticPaperBase = "https://api.semanticscholar.org/graph/v1/paper"

// citationsMaxPageSize is the page ceiling of the citations endpoint.
const citationsMaxPageSize = 1000

// CitationSource pages through the papers citing a seed paper. It shares the
// client, key and retry policy of the search backend.
type CitationSource struct {
	*SemanticScholarBackend
}

// Name returns the source identifier.
func (c CitationSource) Name() string { return "semantic_scholar_citations" }

// FetchPage requests one page of citations of q.Seed. The API answers 400
// for papers it has no citation data for; that ends the sequence with no
// records instead of failing.
func (c CitationSource) FetchPage(ctx context.Context, q Query, cur Cursor, size int) (Page, error) {
	if q.Seed == "" {
		return Page{}, fmt.Errorf("%s needs a seed paper", c.Name())
	}

	params := url.Values{
		"fields": {semanticFields},
		"offset": {strconv.Itoa(cur.Offset)},
		"limit":  {strconv.Itoa(size)},
	}
	reqURL := semanticPaperBase + "/" + url.PathEscape(q.Seed) + "/citations?" + params.Encode()

	var cr citationsResponse
	if err := c.getJSON(ctx, reqURL, q, cur, &cr); err != nil {
		var qe *QueryError
		if errors.As(err, &qe) && qe.Status == http.StatusBadRequest {
			return Page{}, nil
		}
		return Page{}, err
	}

	page := Page{Records: make([]types.PaperRecord, 0, len(cr.Data)), Returned: len(cr.Data)}
	for _, item := range cr.Data {
		if item.CitingPaper.PaperID == "" {
			continue
		}
		page.Records = append(page.Records, item.CitingPaper.record(q))
	}
	if cr.Next != nil {
		page.Next = &Cursor{Offset: *cr.Next}
	}
	return page, nil
}

type citationsResponse struct {
	Offset int            `json:"offset"`
	Next   *int           `json:"next"`
	Data   []citationItem `json:"data"`
}

type citationItem struct {
	CitingPaper semanticPaper `json:"citingPaper"`
}
