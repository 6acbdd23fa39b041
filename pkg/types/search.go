// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the deep-research pipeline:
// search queries and result sets, cache entries, stage artifacts, pipeline
// runs, and the configuration structs passed into component constructors.
package types

import (
	"strings"
	"time"
)

// BackendID identifies one external search backend.
type BackendID string

const (
	// BackendWeb is the general web search backend (DuckDuckGo).
	BackendWeb BackendID = "web"

	// BackendOpenAlex is the OpenAlex academic-metadata backend.
	BackendOpenAlex BackendID = "openalex"

	// BackendCrossRef is the CrossRef academic-metadata backend.
	BackendCrossRef BackendID = "crossref"
)

// AllBackends lists every known backend in canonical order.
var AllBackends = []BackendID{BackendWeb, BackendOpenAlex, BackendCrossRef}

// DefaultMaxResults bounds how many results a backend contributes when the
// query does not say otherwise. Keeps cache entries and downstream token
// usage small.
const DefaultMaxResults = 5

// SearchQuery holds the parameters of one search request. Queries are value
// types and are never mutated after construction. Two queries are equivalent
// iff all fields match after normalization.
type SearchQuery struct {
	// Text is the search term or phrase.
	Text string `json:"text" yaml:"text"`

	// ExactPhrase requests an exact-phrase match where the backend supports it.
	ExactPhrase bool `json:"exact_phrase,omitempty" yaml:"exact_phrase,omitempty"`

	// FilterField restricts the search to a specific field (e.g. "title",
	// "abstract") on backends that support field filtering.
	FilterField string `json:"filter_field,omitempty" yaml:"filter_field,omitempty"`

	// MaxResults caps the number of results per backend. Zero means
	// DefaultMaxResults.
	MaxResults int `json:"max_results,omitempty" yaml:"max_results,omitempty"`
}

// Normalized returns the query with trimmed, case-folded text and filter
// field, and MaxResults defaulted. Cache keys and equivalence checks operate
// on the normalized form.
func (q SearchQuery) Normalized() SearchQuery {
	q.Text = strings.ToLower(strings.TrimSpace(q.Text))
	q.FilterField = strings.ToLower(strings.TrimSpace(q.FilterField))
	if q.MaxResults <= 0 {
		q.MaxResults = DefaultMaxResults
	}
	return q
}

// IsEmpty reports whether the query contains no searchable text.
func (q SearchQuery) IsEmpty() bool {
	return strings.TrimSpace(q.Text) == ""
}

// SearchResult is a single item returned by a backend. Results are produced
// by backend adapters or reconstructed from cache and never mutated after
// creation.
type SearchResult struct {
	// Title is the result title as returned by the backend.
	Title string `json:"title" yaml:"title"`

	// Snippet is the abstract, summary, or page excerpt.
	Snippet string `json:"snippet" yaml:"snippet"`

	// URL points at the source document (DOI URL for academic results).
	URL string `json:"url" yaml:"url"`

	// Source identifies which backend produced this result.
	Source BackendID `json:"source" yaml:"source"`

	// PublishedAt is the publication date, when the backend reports one.
	PublishedAt time.Time `json:"published_at,omitempty" yaml:"published_at,omitempty"`

	// Authors lists author names in source order.
	Authors []string `json:"authors,omitempty" yaml:"authors,omitempty"`
}

// SearchResultSet is the outcome of asking one backend one query. A set with
// Error populated and empty Results records a backend failure as data; the
// aggregator never lets a backend failure escape as an error.
type SearchResultSet struct {
	Query     SearchQuery    `json:"query" yaml:"query"`
	Backend   BackendID      `json:"backend" yaml:"backend"`
	FetchedAt time.Time      `json:"fetched_at" yaml:"fetched_at"`
	Results   []SearchResult `json:"results" yaml:"results"`
	Error     string         `json:"error,omitempty" yaml:"error,omitempty"`
}

// Failed reports whether this set records a backend failure.
func (s SearchResultSet) Failed() bool { return s.Error != "" }

// CacheEntry wraps a SearchResultSet stored in the result cache. Entries are
// owned exclusively by the cache and live until an explicit clear.
type CacheEntry struct {
	Key       string          `json:"key"`
	Payload   SearchResultSet `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}
