// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func citationQuery() Query {
	return Query{Keyword: "parsing", YearFrom: 2020, PageSize: 100, Seed: "seed-1"}
}

func TestCitationSourceFetchPage(t *testing.T) {
	var captured *http.Request
	ts := withSemanticServer(t, func(w http.ResponseWriter, r *http.Request) {
		captured = r
		fmt.Fprint(w, `{"offset":0,"next":100,"data":[
			{"citingPaper":{"paperId":"c1","title":"Citing One","year":2023,"venue":"EMNLP"}},
			{"citingPaper":{"paperId":null,"title":"Unresolved"}}
		]}`)
	})

	src := CitationSource{&SemanticScholarBackend{Client: ts.Client(), Policy: testPolicy()}}
	page, err := src.FetchPage(context.Background(), citationQuery(), Cursor{}, 100)
	require.NoError(t, err)

	assert.Equal(t, "/graph/v1/paper/seed-1/citations", captured.URL.Path)
	assert.Equal(t, "100", captured.URL.Query().Get("limit"))
	require.Len(t, page.Records, 1)
	assert.Equal(t, "c1", page.Records[0].ID)
	assert.Equal(t, "cited_by:seed-1", page.Records[0].Source)
	assert.Equal(t, "parsing", page.Records[0].Keyword)
	require.NotNil(t, page.Next)
	assert.Equal(t, 100, page.Next.Offset)
}

func TestCitationSourceBadRequestMeansNoCitations(t *testing.T) {
	ts := withSemanticServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})

	src := CitationSource{&SemanticScholarBackend{Client: ts.Client(), Policy: testPolicy()}}
	page, err := src.FetchPage(context.Background(), citationQuery(), Cursor{}, 100)
	require.NoError(t, err)
	assert.Empty(t, page.Records)
	assert.Nil(t, page.Next)
}

func TestCitationSourceServerErrorFails(t *testing.T) {
	ts := withSemanticServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	src := CitationSource{&SemanticScholarBackend{Client: ts.Client(), Policy: testPolicy()}}
	_, err := src.FetchPage(context.Background(), citationQuery(), Cursor{}, 100)
	assert.ErrorIs(t, err, ErrFetchFailed)
	assert.Contains(t, err.Error(), "citations of seed-1")
}

func TestCitationSourceNeedsSeed(t *testing.T) {
	src := CitationSource{&SemanticScholarBackend{Client: http.DefaultClient, Policy: testPolicy()}}
	_, err := src.FetchPage(context.Background(), testQuery(), Cursor{}, 100)
	assert.Error(t, err)
}

func TestCitationSourcePagesPastUnresolvedItems(t *testing.T) {
	ts := withSemanticServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("offset") {
		case "0":
			fmt.Fprint(w, `{"offset":0,"next":2,"data":[
				{"citingPaper":{"paperId":null,"title":"Unresolved"}},
				{"citingPaper":{"paperId":"","title":"Also unresolved"}}
			]}`)
		default:
			fmt.Fprint(w, `{"offset":2,"data":[{"citingPaper":{"paperId":"c3","year":2023}}]}`)
		}
	})

	src := CitationSource{&SemanticScholarBackend{Client: ts.Client(), Policy: testPolicy()}}
	page, err := src.FetchPage(context.Background(), citationQuery(), Cursor{}, 2)
	require.NoError(t, err)
	assert.Empty(t, page.Records)
	assert.Equal(t, 2, page.Returned)

	f := NewFetcher(src, 0, nil)
	q := citationQuery()
	q.PageSize = 2
	ids, err := collect(t, f, q)
	require.NoError(t, err)
	assert.Equal(t, []string{"c3"}, ids)
}
