// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pdiddy/deep-research/internal/httputil"
	"github.com/pdiddy/deep-research/pkg/types"
)

// crossRefBase is the CrossRef works endpoint. Declared as a var so tests
// can substitute an httptest server.
var crossRefBase = "https://api.crossref.org/works"

// CrossRefBackend queries the CrossRef API.
type CrossRefBackend struct {
	Client    *http.Client
	UserAgent string
}

// Name returns the backend identifier.
func (b *CrossRefBackend) Name() types.BackendID { return types.BackendCrossRef }

// Fetch queries the CrossRef API, sorted by relevance. A filter field is
// interpreted as a publication type filter (journal-article, book,
// proceedings-article, ...). CrossRef rate-limits aggressively, so requests
// go through the shared 429 retry helper.
func (b *CrossRefBackend) Fetch(ctx context.Context, query types.SearchQuery) ([]types.SearchResult, error) {
	params := url.Values{
		"query": {query.Text},
		"rows":  {fmt.Sprintf("%d", query.MaxResults)},
		"sort":  {"relevance"},
		"order": {"desc"},
	}
	if query.FilterField != "" {
		params.Set("filter", "type:"+query.FilterField)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, crossRefBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", b.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, b.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("CrossRef API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("CrossRef API returned HTTP %d", resp.StatusCode)
	}

	var cr crossRefResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return nil, fmt.Errorf("parsing CrossRef response: %w", err)
	}

	var results []types.SearchResult
	for _, item := range cr.Message.Items {
		r := types.SearchResult{
			Source: types.BackendCrossRef,
		}

		if len(item.Title) > 0 {
			r.Title = item.Title[0]
		}
		if item.DOI != "" {
			r.URL = "https://doi.org/" + item.DOI
		}

		for _, a := range item.Author {
			name := strings.TrimSpace(strings.TrimSpace(a.Given) + " " + strings.TrimSpace(a.Family))
			if name != "" {
				r.Authors = append(r.Authors, name)
			}
		}

		r.PublishedAt = crossRefDate(item)

		// CrossRef rarely carries abstracts; fall back to venue or
		// publisher so the snippet is never silently blank.
		switch {
		case item.Abstract != "":
			r.Snippet = item.Abstract
		case len(item.ContainerTitle) > 0 && item.ContainerTitle[0] != "":
			r.Snippet = "Published in " + item.ContainerTitle[0]
		case item.Publisher != "":
			r.Snippet = "Published by " + item.Publisher
		}

		results = append(results, r)
	}
	return results, nil
}

// crossRefDate picks the print date when present, otherwise the online date.
// CrossRef encodes dates as [year, month, day] with month and day optional.
func crossRefDate(item crossRefItem) time.Time {
	parts := item.PublishedPrint.DateParts
	if len(parts) == 0 || len(parts[0]) == 0 {
		parts = item.PublishedOnline.DateParts
	}
	if len(parts) == 0 || len(parts[0]) == 0 {
		return time.Time{}
	}

	p := parts[0]
	year, month, day := p[0], 1, 1
	if len(p) > 1 {
		month = p[1]
	}
	if len(p) > 2 {
		day = p[2]
	}
	if year <= 0 {
		return time.Time{}
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// CrossRef API JSON structures.
type crossRefResponse struct {
	Message crossRefMessage `json:"message"`
}

type crossRefMessage struct {
	Items []crossRefItem `json:"items"`
}

type crossRefItem struct {
	DOI             string           `json:"DOI"`
	Title           []string         `json:"title"`
	Abstract        string           `json:"abstract"`
	Author          []crossRefAuthor `json:"author"`
	ContainerTitle  []string         `json:"container-title"`
	Publisher       string           `json:"publisher"`
	PublishedPrint  crossRefDateSpec `json:"published-print"`
	PublishedOnline crossRefDateSpec `json:"published-online"`
}

type crossRefAuthor struct {
	Given  string `json:"given"`
	Family string `json:"family"`
}

type crossRefDateSpec struct {
	DateParts [][]int `json:"date-parts"`
}
