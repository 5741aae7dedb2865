// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pdiddy/venue-harvest/internal/httputil"
	"github.com/pdiddy/venue-harvest/pkg/types"
)

func testPolicy() httputil.Policy {
	return httputil.Policy{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

// withSemanticServer points the backend at an httptest server for the test.
func withSemanticServer(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)

	oldSearch, oldPaper := semanticAPIBase, semanticPaperBase
	semanticAPIBase = ts.URL + "/graph/v1/paper/search"
	semanticPaperBase = ts.URL + "/graph/v1/paper"
	t.Cleanup(func() { semanticAPIBase, semanticPaperBase = oldSearch, oldPaper })
	return ts
}

func testQuery() Query {
	return Query{Venue: "ACL", Keyword: "parsing", YearFrom: 2020, PageSize: 2}
}

// --- Request construction (URL params, headers) ---

func TestSemanticFetchPageRequestParams(t *testing.T) {
	var captured *http.Request
	ts := withSemanticServer(t, func(w http.ResponseWriter, r *http.Request) {
		captured = r
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"total":0,"offset":40,"data":[]}`)
	})

	b := &SemanticScholarBackend{Client: ts.Client(), UserAgent: "test/0.1", Policy: testPolicy()}
	if _, err := b.FetchPage(context.Background(), testQuery(), Cursor{Offset: 40}, 20); err != nil {
		t.Fatalf("FetchPage: %v", err)
	}

	if captured.URL.Path != "/graph/v1/paper/search" {
		t.Errorf("path = %q", captured.URL.Path)
	}
	q := captured.URL.Query()
	want := map[string]string{
		"query":  "parsing",
		"venue":  "ACL",
		"year":   "2020-",
		"offset": "40",
		"limit":  "20",
	}
	for k, v := range want {
		if got := q.Get(k); got != v {
			t.Errorf("%s param = %q, want %q", k, got, v)
		}
	}
	for _, f := range []string{"paperId", "title", "abstract", "year", "venue", "externalIds"} {
		if !strings.Contains(q.Get("fields"), f) {
			t.Errorf("fields param %q missing %q", q.Get("fields"), f)
		}
	}
	if got := captured.Header.Get("User-Agent"); got != "test/0.1" {
		t.Errorf("User-Agent = %q", got)
	}
}

func TestSemanticFetchPageBulkUsesToken(t *testing.T) {
	var captured *http.Request
	ts := withSemanticServer(t, func(w http.ResponseWriter, r *http.Request) {
		captured = r
		fmt.Fprint(w, `{"total":3,"token":"tok-2","data":[{"paperId":"a","year":2021}]}`)
	})

	b := &SemanticScholarBackend{Client: ts.Client(), Endpoint: types.EndpointBulk, Policy: testPolicy()}
	page, err := b.FetchPage(context.Background(), testQuery(), Cursor{Offset: 5, Token: "tok-1"}, 2)
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}

	if captured.URL.Path != "/graph/v1/paper/search/bulk" {
		t.Errorf("path = %q", captured.URL.Path)
	}
	if got := captured.URL.Query().Get("token"); got != "tok-1" {
		t.Errorf("token param = %q", got)
	}
	if captured.URL.Query().Has("offset") {
		t.Error("bulk request should not send offset")
	}
	if got := captured.URL.Query().Get("limit"); got != "2" {
		t.Errorf("limit param = %q, want 2", got)
	}
	if page.Next == nil || page.Next.Token != "tok-2" || page.Next.Offset != 6 {
		t.Errorf("Next = %+v, want token tok-2 offset 6", page.Next)
	}
}

func TestSemanticFetchPageAPIKeyHeader(t *testing.T) {
	tests := []struct {
		name   string
		apiKey string
	}{
		{"with API key", "test-key-123"},
		{"without API key", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			ts := withSemanticServer(t, func(w http.ResponseWriter, r *http.Request) {
				got = r.Header.Get("x-api-key")
				fmt.Fprint(w, `{"data":[]}`)
			})

			b := &SemanticScholarBackend{Client: ts.Client(), APIKey: tt.apiKey, Policy: testPolicy()}
			if _, err := b.FetchPage(context.Background(), testQuery(), Cursor{}, 2); err != nil {
				t.Fatalf("FetchPage: %v", err)
			}
			if got != tt.apiKey {
				t.Errorf("x-api-key header = %q, want %q", got, tt.apiKey)
			}
		})
	}
}

// --- Response parsing ---

func TestSemanticFetchPageParsesRecords(t *testing.T) {
	ts := withSemanticServer(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"total":5,"offset":0,"next":2,"data":[
			{"paperId":"p1","title":"Parsing Things","abstract":"We parse.","year":2021,"venue":"ACL",
			 "externalIds":{"DOI":"10.1/x","ArXiv":"2101.00001"}},
			{"paperId":"p2","title":"No Abstract","abstract":null,"year":2022,"venue":"ACL","externalIds":null}
		]}`)
	})

	b := &SemanticScholarBackend{Client: ts.Client(), Policy: testPolicy()}
	page, err := b.FetchPage(context.Background(), testQuery(), Cursor{}, 2)
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	if len(page.Records) != 2 {
		t.Fatalf("len(records) = %d, want 2", len(page.Records))
	}
	r := page.Records[0]
	if r.ID != "p1" || r.DOI != "10.1/x" || r.ArXiv != "2101.00001" || r.Year != 2021 {
		t.Errorf("record[0] = %+v", r)
	}
	if r.Source != "venue:ACL" || r.Keyword != "parsing" {
		t.Errorf("provenance = %q/%q", r.Source, r.Keyword)
	}
	if page.Records[1].Abstract != "" || page.Records[1].DOI != "" {
		t.Errorf("record[1] = %+v, want empty abstract and DOI", page.Records[1])
	}
	if page.Next == nil || page.Next.Offset != 2 {
		t.Errorf("Next = %+v, want offset 2", page.Next)
	}
}

func TestSemanticFetchPageLastPageHasNoNext(t *testing.T) {
	ts := withSemanticServer(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"total":1,"offset":0,"data":[{"paperId":"p1","year":2021}]}`)
	})

	b := &SemanticScholarBackend{Client: ts.Client(), Policy: testPolicy()}
	page, err := b.FetchPage(context.Background(), testQuery(), Cursor{}, 2)
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	if page.Next != nil {
		t.Errorf("Next = %+v, want nil", page.Next)
	}
}

// --- Error cases ---

func TestSemanticFetchPageErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantKind  error
		wantCalls int32
	}{
		{"429 exhausts retries", http.StatusTooManyRequests, ErrRateLimitExhausted, 3},
		{"500 exhausts retries", http.StatusInternalServerError, ErrFetchFailed, 3},
		{"400 is rejected at once", http.StatusBadRequest, ErrQueryRejected, 1},
		{"404 is rejected at once", http.StatusNotFound, ErrQueryRejected, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			ts := withSemanticServer(t, func(w http.ResponseWriter, _ *http.Request) {
				atomic.AddInt32(&calls, 1)
				w.WriteHeader(tt.status)
			})

			b := &SemanticScholarBackend{Client: ts.Client(), Policy: testPolicy()}
			_, err := b.FetchPage(context.Background(), testQuery(), Cursor{Offset: 4}, 2)
			if !errors.Is(err, tt.wantKind) {
				t.Fatalf("error = %v, want %v", err, tt.wantKind)
			}
			var qe *QueryError
			if !errors.As(err, &qe) {
				t.Fatalf("error %T is not a *QueryError", err)
			}
			if qe.Venue != "ACL" || qe.Keyword != "parsing" || qe.Offset != 4 || qe.Status != tt.status {
				t.Errorf("QueryError = %+v", qe)
			}
			if got := atomic.LoadInt32(&calls); got != tt.wantCalls {
				t.Errorf("calls = %d, want %d", got, tt.wantCalls)
			}
		})
	}
}

func TestSemanticFetchPageMalformedJSON(t *testing.T) {
	ts := withSemanticServer(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{invalid json`)
	})

	b := &SemanticScholarBackend{Client: ts.Client(), Policy: testPolicy()}
	_, err := b.FetchPage(context.Background(), testQuery(), Cursor{}, 2)
	if !errors.Is(err, ErrFetchFailed) {
		t.Fatalf("error = %v, want ErrFetchFailed", err)
	}
	if !strings.Contains(err.Error(), "parsing") {
		t.Errorf("error = %q, want substring 'parsing'", err.Error())
	}
}

func TestSemanticFetchPageRejectsCitationQuery(t *testing.T) {
	b := &SemanticScholarBackend{Client: http.DefaultClient, Policy: testPolicy()}
	q := testQuery()
	q.Seed = "abc"
	if _, err := b.FetchPage(context.Background(), q, Cursor{}, 2); err == nil {
		t.Fatal("expected error for citation query")
	}
}

func TestNewSemanticScholarBackendDefaults(t *testing.T) {
	b := NewSemanticScholarBackend(http.DefaultClient, types.FetchConfig{APIKey: "k"})
	if b.Endpoint != types.EndpointRelevance {
		t.Errorf("Endpoint = %q, want %q", b.Endpoint, types.EndpointRelevance)
	}
	if b.Policy.MaxRetries != 5 {
		t.Errorf("MaxRetries = %d, want 5", b.Policy.MaxRetries)
	}
	if b.APIKey != "k" {
		t.Errorf("APIKey = %q", b.APIKey)
	}
}
