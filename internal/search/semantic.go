// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pdiddy/venue-harvest/internal/httputil"
	"github.com/pdiddy/venue-harvest/pkg/types"
)

// semanticAPIBase is the Semantic Scholar paper search endpoint; the bulk
// endpoint is semanticAPIBase + "/bulk". Declared as a var so tests can
// substitute an httptest server.
var semanticAPIBase = "https://api.semanticscholar.org/graph/v1/paper/search"

const semanticFields = "paperId,title,abstract,year,venue,externalIds"

// SemanticScholarBackend pages through venue-restricted keyword searches.
type SemanticScholarBackend struct {
	Client    *http.Client
	APIKey    string
	UserAgent string
	Endpoint  types.Endpoint
	Policy    httputil.Policy
}

// NewSemanticScholarBackend builds a backend from the fetch configuration.
func NewSemanticScholarBackend(client *http.Client, cfg types.FetchConfig) *SemanticScholarBackend {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = types.EndpointRelevance
	}
	return &SemanticScholarBackend{
		Client:    client,
		APIKey:    cfg.APIKey,
		UserAgent: cfg.UserAgent,
		Endpoint:  endpoint,
		Policy:    httputil.PolicyFrom(cfg.Retry),
	}
}

// Name returns the backend identifier.
func (b *SemanticScholarBackend) Name() string { return "semantic_scholar" }

// FetchPage requests one page of q starting at cur. The year filter is sent
// with the request; the fetcher re-checks it on every record.
func (b *SemanticScholarBackend) FetchPage(ctx context.Context, q Query, cur Cursor, size int) (Page, error) {
	if q.Seed != "" {
		return Page{}, fmt.Errorf("citation query passed to %s search", b.Name())
	}

	params := url.Values{
		"query":  {q.Keyword},
		"venue":  {q.Venue},
		"year":   {buildYearRange(q.YearFrom)},
		"fields": {semanticFields},
	}

	endpoint := semanticAPIBase
	if b.Endpoint == types.EndpointBulk {
		endpoint += "/bulk"
		if cur.Token != "" {
			params.Set("token", cur.Token)
		}
	} else {
		params.Set("offset", strconv.Itoa(cur.Offset))
	}
	params.Set("limit", strconv.Itoa(size))

	var sr semanticResponse
	if err := b.getJSON(ctx, endpoint+"?"+params.Encode(), q, cur, &sr); err != nil {
		return Page{}, err
	}

	page := Page{Records: make([]types.PaperRecord, 0, len(sr.Data)), Returned: len(sr.Data)}
	for _, p := range sr.Data {
		page.Records = append(page.Records, p.record(q))
	}

	switch {
	case b.Endpoint == types.EndpointBulk && sr.Token != "":
		page.Next = &Cursor{Offset: cur.Offset + len(sr.Data), Token: sr.Token}
	case b.Endpoint != types.EndpointBulk && sr.Next != nil:
		page.Next = &Cursor{Offset: *sr.Next}
	}
	return page, nil
}

// getJSON runs one request through the retry state machine and decodes a
// successful body into out. Failures come back as *QueryError.
func (b *SemanticScholarBackend) getJSON(ctx context.Context, reqURL string, q Query, cur Cursor, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if b.UserAgent != "" {
		req.Header.Set("User-Agent", b.UserAgent)
	}
	if b.APIKey != "" {
		req.Header.Set("x-api-key", b.APIKey)
	}

	res, err := httputil.DoWithRetry(ctx, b.Client, req, b.Policy)
	if err != nil {
		qe := newQueryError(ErrFetchFailed, q, cur)
		qe.Attempts = res.Attempts
		qe.Err = err
		return qe
	}

	switch res.State {
	case httputil.StateSucceeded:
	case httputil.StateRejected:
		qe := newQueryError(ErrQueryRejected, q, cur)
		qe.Status, qe.Attempts, qe.Message = res.StatusCode, res.Attempts, res.Message
		return qe
	default:
		kind := ErrFetchFailed
		if res.Last == httputil.OutcomeRateLimited {
			kind = ErrRateLimitExhausted
		}
		qe := newQueryError(kind, q, cur)
		qe.Status, qe.Attempts, qe.Message = res.StatusCode, res.Attempts, res.Message
		return qe
	}

	defer res.Response.Body.Close()
	if err := json.NewDecoder(res.Response.Body).Decode(out); err != nil {
		qe := newQueryError(ErrFetchFailed, q, cur)
		qe.Status, qe.Attempts = res.StatusCode, res.Attempts
		qe.Err = fmt.Errorf("parsing Semantic Scholar response: %w", err)
		return qe
	}
	return nil
}

// buildYearRange returns the open-ended Semantic Scholar year filter ("2020-").
func buildYearRange(from int) string {
	return fmt.Sprintf("%d-", from)
}

// Semantic Scholar API JSON structures.
type semanticResponse struct {
	Total  int             `json:"total"`
	Offset int             `json:"offset"`
	Next   *int            `json:"next"`
	Token  string          `json:"token"`
	Data   []semanticPaper `json:"data"`
}

type semanticPaper struct {
	PaperID     string               `json:"paperId"`
	Title       string               `json:"title"`
	Abstract    string               `json:"abstract"`
	Year        int                  `json:"year"`
	Venue       string               `json:"venue"`
	ExternalIDs *semanticExternalIDs `json:"externalIds"`
}

type semanticExternalIDs struct {
	DOI   string `json:"DOI"`
	ArXiv string `json:"ArXiv"`
}

func (p semanticPaper) record(q Query) types.PaperRecord {
	r := types.PaperRecord{
		ID:       p.PaperID,
		Title:    p.Title,
		Abstract: p.Abstract,
		Year:     p.Year,
		Venue:    p.Venue,
		Source:   q.Source(),
		Keyword:  q.Keyword,
	}
	if p.ExternalIDs != nil {
		r.DOI = p.ExternalIDs.DOI
		r.ArXiv = p.ExternalIDs.ArXiv
	}
	return r
}
