// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pdiddy/deep-research/pkg/types"
)

// Searcher is the retrieval capability handed to the research role. The
// aggregator implements it.
type Searcher interface {
	Search(ctx context.Context, query types.SearchQuery, backends []types.BackendID) ([]types.SearchResultSet, error)
}

// searchArgs is the argument shape shared by all three search tools.
type searchArgs struct {
	Query       string `json:"query"`
	ExactPhrase bool   `json:"exact_phrase"`
	FilterField string `json:"filter_field"`
	MaxResults  int    `json:"max_results"`
}

const searchInputSchema = `{
  "type": "object",
  "properties": {
    "query": {"type": "string", "description": "Search term or phrase"},
    "exact_phrase": {"type": "boolean", "description": "Match the exact phrase"},
    "filter_field": {"type": "string", "description": "Restrict the search to one field or publication type"},
    "max_results": {"type": "integer", "description": "Maximum number of results (default 5)"}
  },
  "required": ["query"]
}`

// SearchTools builds the three search tools the research role may call. Each
// tool targets one backend; the model decides which to use and with what
// queries.
func SearchTools(searcher Searcher) []Tool {
	return []Tool{
		{
			Name:        "web_search",
			Description: "Search the web via DuckDuckGo. Best for general knowledge, recent statistics, and news.",
			InputSchema: json.RawMessage(searchInputSchema),
			Run:         searchRunner(searcher, types.BackendWeb),
		},
		{
			Name:        "openalex_search",
			Description: "Search academic literature via OpenAlex. Best for scholarly articles and research papers. filter_field restricts the match to a field such as title or abstract.",
			InputSchema: json.RawMessage(searchInputSchema),
			Run:         searchRunner(searcher, types.BackendOpenAlex),
		},
		{
			Name:        "crossref_search",
			Description: "Search academic publications via CrossRef. Best for peer-reviewed work with DOIs. filter_field restricts the match to a publication type such as journal-article or book.",
			InputSchema: json.RawMessage(searchInputSchema),
			Run:         searchRunner(searcher, types.BackendCrossRef),
		},
	}
}

// searchRunner adapts one backend of the aggregator into a tool Run
// function. A backend failure comes back inside the result set and is
// serialized for the model like any other outcome; only argument and
// aggregator-level errors surface as tool errors.
func searchRunner(searcher Searcher, backend types.BackendID) func(context.Context, json.RawMessage) (string, error) {
	return func(ctx context.Context, input json.RawMessage) (string, error) {
		var args searchArgs
		if err := json.Unmarshal(input, &args); err != nil {
			return "", fmt.Errorf("parsing tool arguments: %w", err)
		}

		query := types.SearchQuery{
			Text:        args.Query,
			ExactPhrase: args.ExactPhrase,
			FilterField: args.FilterField,
			MaxResults:  args.MaxResults,
		}

		sets, err := searcher.Search(ctx, query, []types.BackendID{backend})
		if err != nil {
			return "", err
		}

		out, err := json.MarshalIndent(sets[0], "", "  ")
		if err != nil {
			return "", fmt.Errorf("serializing results: %w", err)
		}
		return string(out), nil
	}
}
