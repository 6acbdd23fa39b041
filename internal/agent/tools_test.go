// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package agent

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/pdiddy/deep-research/pkg/types"
)

type mockSearcher struct {
	lastQuery    types.SearchQuery
	lastBackends []types.BackendID
	sets         []types.SearchResultSet
	err          error
}

func (m *mockSearcher) Search(_ context.Context, query types.SearchQuery, backends []types.BackendID) ([]types.SearchResultSet, error) {
	m.lastQuery = query
	m.lastBackends = backends
	if m.err != nil {
		return nil, m.err
	}
	return m.sets, nil
}

func TestSearchToolsBackendMapping(t *testing.T) {
	tests := []struct {
		toolName string
		backend  types.BackendID
	}{
		{"web_search", types.BackendWeb},
		{"openalex_search", types.BackendOpenAlex},
		{"crossref_search", types.BackendCrossRef},
	}

	for _, tt := range tests {
		t.Run(tt.toolName, func(t *testing.T) {
			searcher := &mockSearcher{sets: []types.SearchResultSet{{Backend: tt.backend}}}
			tool := toolNamed(t, SearchTools(searcher), tt.toolName)

			_, err := tool.Run(context.Background(), json.RawMessage(`{"query": "solar power"}`))
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if len(searcher.lastBackends) != 1 || searcher.lastBackends[0] != tt.backend {
				t.Errorf("backends = %v, want [%s]", searcher.lastBackends, tt.backend)
			}
			if searcher.lastQuery.Text != "solar power" {
				t.Errorf("query text = %q", searcher.lastQuery.Text)
			}
		})
	}
}

func TestSearchToolSerializesResultSet(t *testing.T) {
	set := types.SearchResultSet{
		Query:     types.SearchQuery{Text: "solar", MaxResults: 5},
		Backend:   types.BackendWeb,
		FetchedAt: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		Results: []types.SearchResult{
			{Title: "Solar Basics", URL: "https://example.com/solar", Source: types.BackendWeb},
		},
	}
	searcher := &mockSearcher{sets: []types.SearchResultSet{set}}
	tool := toolNamed(t, SearchTools(searcher), "web_search")

	out, err := tool.Run(context.Background(), json.RawMessage(`{"query": "solar", "max_results": 5}`))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	var decoded types.SearchResultSet
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("tool output is not valid JSON: %v", err)
	}
	if decoded.Results[0].Title != "Solar Basics" {
		t.Errorf("decoded title = %q", decoded.Results[0].Title)
	}
}

func TestSearchToolPassesAllArguments(t *testing.T) {
	searcher := &mockSearcher{sets: []types.SearchResultSet{{}}}
	tool := toolNamed(t, SearchTools(searcher), "openalex_search")

	input := `{"query": "grid storage", "exact_phrase": true, "filter_field": "title", "max_results": 3}`
	if _, err := tool.Run(context.Background(), json.RawMessage(input)); err != nil {
		t.Fatalf("Run: %v", err)
	}

	q := searcher.lastQuery
	if !q.ExactPhrase || q.FilterField != "title" || q.MaxResults != 3 {
		t.Errorf("query = %+v", q)
	}
}

func TestSearchToolBadArguments(t *testing.T) {
	searcher := &mockSearcher{sets: []types.SearchResultSet{{}}}
	tool := toolNamed(t, SearchTools(searcher), "web_search")

	_, err := tool.Run(context.Background(), json.RawMessage(`{"query": 42`))
	if err == nil {
		t.Fatal("expected error for malformed arguments")
	}
}

func TestSearchToolAggregatorError(t *testing.T) {
	searcher := &mockSearcher{err: errors.New("query is empty")}
	tool := toolNamed(t, SearchTools(searcher), "web_search")

	_, err := tool.Run(context.Background(), json.RawMessage(`{"query": ""}`))
	if err == nil || !strings.Contains(err.Error(), "query is empty") {
		t.Fatalf("err = %v, want aggregator error", err)
	}
}

func toolNamed(t *testing.T, tools []Tool, name string) Tool {
	t.Helper()
	for _, tool := range tools {
		if tool.Name == name {
			return tool
		}
	}
	t.Fatalf("no tool named %q", name)
	return Tool{}
}
