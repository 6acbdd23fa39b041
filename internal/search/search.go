// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search presents a uniform retrieval facade over dissimilar search
// backends (general web search plus two academic-metadata APIs). Backends
// fail independently: a failure is captured as data inside its result set,
// never raised to the caller. Every backend call is mediated by the result
// cache.
package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/pdiddy/deep-research/internal/cache"
	"github.com/pdiddy/deep-research/pkg/types"
)

// Backend fetches ranked results for a query from a single external service.
// Each backend (DuckDuckGo, OpenAlex, CrossRef) implements this interface per
// the Strategy pattern.
type Backend interface {
	Name() types.BackendID
	Fetch(ctx context.Context, query types.SearchQuery) ([]types.SearchResult, error)
}

// defaultBackendTimeout bounds one backend call when the config does not.
const defaultBackendTimeout = 15 * time.Second

// Aggregator fans a query out across requested backends, consults the cache
// before any network call, and assembles one result set per backend in the
// requested order.
type Aggregator struct {
	cache    *cache.Cache
	backends map[types.BackendID]Backend
	timeout  time.Duration
	w        io.Writer
}

// NewAggregator builds an aggregator over the given backends. Progress and
// cache-write warnings go to w.
func NewAggregator(c *cache.Cache, backends []Backend, cfg types.SearchConfig, w io.Writer) *Aggregator {
	byName := make(map[types.BackendID]Backend, len(backends))
	for _, b := range backends {
		byName[b.Name()] = b
	}
	timeout := cfg.BackendTimeout
	if timeout <= 0 {
		timeout = defaultBackendTimeout
	}
	if w == nil {
		w = io.Discard
	}
	return &Aggregator{cache: c, backends: byName, timeout: timeout, w: w}
}

// Search returns one SearchResultSet per requested backend, in the order
// requested. Cache hits are served verbatim with their original fetch time.
// Misses are fetched concurrently, each under its own timeout; a slow or
// failing backend only affects its own slot. Results are truncated to the
// query's MaxResults before caching and returning.
func (a *Aggregator) Search(ctx context.Context, query types.SearchQuery, requested []types.BackendID) ([]types.SearchResultSet, error) {
	if query.IsEmpty() {
		return nil, fmt.Errorf("query is empty: provide search text")
	}
	if len(requested) == 0 {
		return nil, fmt.Errorf("no backends requested")
	}
	query = query.Normalized()

	sets := make([]types.SearchResultSet, len(requested))
	var wg sync.WaitGroup

	for i, id := range requested {
		backend, ok := a.backends[id]
		if !ok {
			sets[i] = errorSet(query, id, fmt.Sprintf("backend %q is not configured", id))
			continue
		}

		key := cache.Key(query, id)
		if entry, hit := a.cache.Get(key); hit {
			sets[i] = entry.Payload
			fmt.Fprintf(a.w, "cache hit: %s %q\n", id, query.Text)
			continue
		}

		wg.Add(1)
		go func(slot int, b Backend, key string) {
			defer wg.Done()
			sets[slot] = a.fetch(ctx, b, query, key)
		}(i, backend, key)
	}

	wg.Wait()
	return sets, nil
}

// fetch runs one backend call under its own timeout and converts any failure
// into an error-carrying result set. Successful sets are cached; a cache
// write failure is logged and swallowed since caching is an optimization.
func (a *Aggregator) fetch(ctx context.Context, b Backend, query types.SearchQuery, key string) types.SearchResultSet {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	results, err := b.Fetch(ctx, query)
	if err != nil {
		fmt.Fprintf(a.w, "warning: backend %s failed: %v\n", b.Name(), err)
		return errorSet(query, b.Name(), err.Error())
	}

	if len(results) > query.MaxResults {
		results = results[:query.MaxResults]
	}

	set := types.SearchResultSet{
		Query:     query,
		Backend:   b.Name(),
		FetchedAt: time.Now().UTC(),
		Results:   results,
	}

	// Only complete payloads reach the cache; a cancelled fetch never
	// gets here.
	if err := a.cache.Put(key, set); err != nil {
		fmt.Fprintf(a.w, "warning: caching %s results: %v\n", b.Name(), err)
	}
	return set
}

func errorSet(query types.SearchQuery, id types.BackendID, msg string) types.SearchResultSet {
	return types.SearchResultSet{
		Query:     query,
		Backend:   id,
		FetchedAt: time.Now().UTC(),
		Error:     msg,
	}
}

// Enabled returns the backends switched on by cfg, in canonical order.
func Enabled(cfg types.SearchConfig, client *http.Client) []Backend {
	var backends []Backend
	if cfg.EnableWeb {
		backends = append(backends, &DuckDuckGoBackend{Client: client, UserAgent: cfg.UserAgent})
	}
	if cfg.EnableOpenAlex {
		backends = append(backends, &OpenAlexBackend{Client: client, UserAgent: cfg.UserAgent, Email: cfg.ContactEmail})
	}
	if cfg.EnableCrossRef {
		backends = append(backends, &CrossRefBackend{Client: client, UserAgent: cfg.UserAgent})
	}
	return backends
}
