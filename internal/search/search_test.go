// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pdiddy/deep-research/internal/cache"
	"github.com/pdiddy/deep-research/pkg/types"
)

// --- mock backend ---

type mockBackend struct {
	name    types.BackendID
	results []types.SearchResult
	err     error
	delay   time.Duration
	calls   int32
}

func (m *mockBackend) Name() types.BackendID { return m.name }

func (m *mockBackend) Fetch(ctx context.Context, _ types.SearchQuery) ([]types.SearchResult, error) {
	atomic.AddInt32(&m.calls, 1)
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return m.results, m.err
}

func (m *mockBackend) callCount() int32 { return atomic.LoadInt32(&m.calls) }

func testCache(t *testing.T) *cache.Cache {
	t.Helper()
	c, err := cache.New(types.CacheConfig{Dir: filepath.Join(t.TempDir(), "cache")})
	if err != nil {
		t.Fatalf("New cache: %v", err)
	}
	return c
}

func testAggregator(t *testing.T, backends ...Backend) *Aggregator {
	t.Helper()
	return NewAggregator(testCache(t), backends, types.SearchConfig{BackendTimeout: 5 * time.Second}, io.Discard)
}

func webResults(n int) []types.SearchResult {
	results := make([]types.SearchResult, n)
	for i := range results {
		results[i] = types.SearchResult{
			Title:  fmt.Sprintf("Result %d", i+1),
			URL:    fmt.Sprintf("https://example.com/%d", i+1),
			Source: types.BackendWeb,
		}
	}
	return results
}

// --- validation ---

func TestSearchEmptyQuery(t *testing.T) {
	agg := testAggregator(t, &mockBackend{name: types.BackendWeb})

	_, err := agg.Search(context.Background(), types.SearchQuery{Text: "   "}, []types.BackendID{types.BackendWeb})
	if err == nil {
		t.Fatal("expected validation error for empty query")
	}
}

func TestSearchNoBackendsRequested(t *testing.T) {
	agg := testAggregator(t, &mockBackend{name: types.BackendWeb})

	_, err := agg.Search(context.Background(), types.SearchQuery{Text: "topic"}, nil)
	if err == nil {
		t.Fatal("expected error for empty backend list")
	}
}

// --- failure isolation and ordering ---

func TestSearchIsolatesBackendFailure(t *testing.T) {
	web := &mockBackend{name: types.BackendWeb, results: webResults(2)}
	openalex := &mockBackend{name: types.BackendOpenAlex, err: errors.New("connection refused")}
	crossref := &mockBackend{name: types.BackendCrossRef, results: []types.SearchResult{
		{Title: "Paper", URL: "https://doi.org/10.1/x", Source: types.BackendCrossRef},
	}}
	agg := testAggregator(t, web, openalex, crossref)

	requested := []types.BackendID{types.BackendWeb, types.BackendOpenAlex, types.BackendCrossRef}
	sets, err := agg.Search(context.Background(), types.SearchQuery{Text: "topic"}, requested)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(sets) != 3 {
		t.Fatalf("len(sets) = %d, want 3", len(sets))
	}

	// One set per requested backend, in the order requested.
	for i, id := range requested {
		if sets[i].Backend != id {
			t.Errorf("sets[%d].Backend = %s, want %s", i, sets[i].Backend, id)
		}
	}

	if sets[0].Failed() || len(sets[0].Results) != 2 {
		t.Errorf("web set should succeed with 2 results, got error=%q len=%d", sets[0].Error, len(sets[0].Results))
	}
	if !sets[1].Failed() || len(sets[1].Results) != 0 {
		t.Errorf("openalex set should carry the failure, got error=%q len=%d", sets[1].Error, len(sets[1].Results))
	}
	if sets[2].Failed() || len(sets[2].Results) != 1 {
		t.Errorf("crossref set should succeed with 1 result, got error=%q len=%d", sets[2].Error, len(sets[2].Results))
	}
}

func TestSearchUnknownBackend(t *testing.T) {
	web := &mockBackend{name: types.BackendWeb, results: webResults(1)}
	agg := testAggregator(t, web)

	sets, err := agg.Search(context.Background(), types.SearchQuery{Text: "topic"},
		[]types.BackendID{types.BackendWeb, types.BackendOpenAlex})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if sets[0].Failed() {
		t.Errorf("web set should succeed, got %q", sets[0].Error)
	}
	if !sets[1].Failed() {
		t.Error("unconfigured backend should carry an error result set")
	}
}

func TestSearchSlowBackendTimesOutAlone(t *testing.T) {
	fast := &mockBackend{name: types.BackendWeb, results: webResults(1)}
	slow := &mockBackend{name: types.BackendOpenAlex, delay: time.Second, results: webResults(1)}
	agg := NewAggregator(testCache(t), []Backend{fast, slow},
		types.SearchConfig{BackendTimeout: 20 * time.Millisecond}, io.Discard)

	start := time.Now()
	sets, err := agg.Search(context.Background(), types.SearchQuery{Text: "topic"},
		[]types.BackendID{types.BackendWeb, types.BackendOpenAlex})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("aggregator took %v, should be bounded by the backend timeout", elapsed)
	}

	if sets[0].Failed() {
		t.Errorf("fast backend should succeed, got %q", sets[0].Error)
	}
	if !sets[1].Failed() {
		t.Error("slow backend should record a timeout error")
	}
}

// --- cache mediation ---

func TestSearchCachesResults(t *testing.T) {
	web := &mockBackend{name: types.BackendWeb, results: webResults(3)}
	agg := testAggregator(t, web)
	query := types.SearchQuery{Text: "renewable energy trends"}

	first, err := agg.Search(context.Background(), query, []types.BackendID{types.BackendWeb})
	if err != nil {
		t.Fatalf("first Search: %v", err)
	}

	second, err := agg.Search(context.Background(), query, []types.BackendID{types.BackendWeb})
	if err != nil {
		t.Fatalf("second Search: %v", err)
	}

	if got := web.callCount(); got != 1 {
		t.Errorf("backend called %d times, want 1 (second call should hit cache)", got)
	}
	if !second[0].FetchedAt.Equal(first[0].FetchedAt) {
		t.Errorf("cached FetchedAt = %v, want original %v", second[0].FetchedAt, first[0].FetchedAt)
	}
	if len(second[0].Results) != 3 {
		t.Errorf("cached set has %d results, want 3", len(second[0].Results))
	}
}

func TestSearchPrepopulatedCacheSkipsNetwork(t *testing.T) {
	c := testCache(t)
	query := types.SearchQuery{Text: "renewable energy trends"}
	fetchedAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	cached := types.SearchResultSet{
		Query:     query.Normalized(),
		Backend:   types.BackendWeb,
		FetchedAt: fetchedAt,
		Results:   webResults(2),
	}
	if err := c.Put(cache.Key(query, types.BackendWeb), cached); err != nil {
		t.Fatalf("Put: %v", err)
	}

	web := &mockBackend{name: types.BackendWeb, results: webResults(5)}
	agg := NewAggregator(c, []Backend{web}, types.SearchConfig{}, io.Discard)

	sets, err := agg.Search(context.Background(), query, []types.BackendID{types.BackendWeb})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if got := web.callCount(); got != 0 {
		t.Errorf("backend called %d times, want 0 for a pre-populated cache", got)
	}
	if !sets[0].FetchedAt.Equal(fetchedAt) {
		t.Errorf("FetchedAt = %v, want the original cache write time %v", sets[0].FetchedAt, fetchedAt)
	}
	if len(sets[0].Results) != 2 {
		t.Errorf("len(Results) = %d, want the 2 cached results", len(sets[0].Results))
	}
}

func TestSearchDoesNotCacheFailures(t *testing.T) {
	failing := &mockBackend{name: types.BackendWeb, err: errors.New("boom")}
	agg := testAggregator(t, failing)
	query := types.SearchQuery{Text: "topic"}

	for i := 0; i < 2; i++ {
		sets, err := agg.Search(context.Background(), query, []types.BackendID{types.BackendWeb})
		if err != nil {
			t.Fatalf("Search %d: %v", i, err)
		}
		if !sets[0].Failed() {
			t.Fatalf("Search %d: expected failure set", i)
		}
	}

	if got := failing.callCount(); got != 2 {
		t.Errorf("backend called %d times, want 2 (failures must not be cached)", got)
	}
}

// --- truncation ---

func TestSearchTruncatesToMaxResults(t *testing.T) {
	web := &mockBackend{name: types.BackendWeb, results: webResults(12)}
	agg := testAggregator(t, web)

	sets, err := agg.Search(context.Background(),
		types.SearchQuery{Text: "topic", MaxResults: 5}, []types.BackendID{types.BackendWeb})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if len(sets[0].Results) != 5 {
		t.Fatalf("len(Results) = %d, want 5", len(sets[0].Results))
	}
	// Adapter order is preserved: top five of the original twelve.
	for i, r := range sets[0].Results {
		want := fmt.Sprintf("Result %d", i+1)
		if r.Title != want {
			t.Errorf("Results[%d].Title = %q, want %q", i, r.Title, want)
		}
	}
}

func TestSearchDefaultMaxResults(t *testing.T) {
	web := &mockBackend{name: types.BackendWeb, results: webResults(9)}
	agg := testAggregator(t, web)

	sets, err := agg.Search(context.Background(),
		types.SearchQuery{Text: "topic"}, []types.BackendID{types.BackendWeb})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(sets[0].Results) != types.DefaultMaxResults {
		t.Errorf("len(Results) = %d, want default %d", len(sets[0].Results), types.DefaultMaxResults)
	}
}

// --- backend construction ---

func TestEnabled(t *testing.T) {
	tests := []struct {
		name string
		cfg  types.SearchConfig
		want []types.BackendID
	}{
		{
			name: "all backends",
			cfg:  types.SearchConfig{EnableWeb: true, EnableOpenAlex: true, EnableCrossRef: true},
			want: []types.BackendID{types.BackendWeb, types.BackendOpenAlex, types.BackendCrossRef},
		},
		{
			name: "academic only",
			cfg:  types.SearchConfig{EnableOpenAlex: true, EnableCrossRef: true},
			want: []types.BackendID{types.BackendOpenAlex, types.BackendCrossRef},
		},
		{
			name: "none",
			cfg:  types.SearchConfig{},
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backends := Enabled(tt.cfg, nil)
			if len(backends) != len(tt.want) {
				t.Fatalf("len = %d, want %d", len(backends), len(tt.want))
			}
			for i, b := range backends {
				if b.Name() != tt.want[i] {
					t.Errorf("backends[%d] = %s, want %s", i, b.Name(), tt.want[i])
				}
			}
		})
	}
}
