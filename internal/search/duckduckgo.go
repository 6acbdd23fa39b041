// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/pdiddy/deep-research/pkg/types"
)

// duckDuckGoBase is the DuckDuckGo lite endpoint. The lite HTML page is far
// more stable for scraping than the full site. Declared as a var so tests
// can substitute an httptest server.
var duckDuckGoBase = "https://lite.duckduckgo.com/lite/"

// DuckDuckGoBackend performs general web search by scraping the DuckDuckGo
// lite HTML interface. DuckDuckGo has no result-type filtering, so a query
// with a filter field is rejected; the aggregator records that as this
// backend's error while the others proceed.
type DuckDuckGoBackend struct {
	Client    *http.Client
	UserAgent string
}

// Name returns the backend identifier.
func (b *DuckDuckGoBackend) Name() types.BackendID { return types.BackendWeb }

// Fetch posts the query to the lite page and parses result links and
// snippets out of the returned HTML.
func (b *DuckDuckGoBackend) Fetch(ctx context.Context, query types.SearchQuery) ([]types.SearchResult, error) {
	if query.FilterField != "" {
		return nil, fmt.Errorf("web search does not support field filtering (filter %q)", query.FilterField)
	}

	text := query.Text
	if query.ExactPhrase {
		text = `"` + text + `"`
	}

	form := url.Values{}
	form.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, duckDuckGoBase, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", b.UserAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := b.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("DuckDuckGo request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("DuckDuckGo returned HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading DuckDuckGo response: %w", err)
	}

	return parseLiteResults(string(body)), nil
}

// Result links on the lite page look like
// <a rel="nofollow" href="URL" class='result-link'>TITLE</a>, with the
// snippet in a following <td class='result-snippet'>.
var (
	liteLinkPattern    = regexp.MustCompile(`<a[^>]*class=['"]result-link['"][^>]*href=['"]([^'"]+)['"][^>]*>([^<]+)</a>`)
	liteLinkAltPattern = regexp.MustCompile(`<a[^>]*href=['"]([^'"]+)['"][^>]*class=['"]result-link['"][^>]*>([^<]+)</a>`)
	liteSnippetPattern = regexp.MustCompile(`<td[^>]*class=['"]result-snippet['"][^>]*>(.*?)</td>`)
	tagPattern         = regexp.MustCompile(`<[^>]+>`)
)

// parseLiteResults extracts search results from the DuckDuckGo lite HTML.
// Link order on the page is DuckDuckGo's relevance order and is preserved.
func parseLiteResults(html string) []types.SearchResult {
	matches := liteLinkPattern.FindAllStringSubmatch(html, -1)
	if len(matches) == 0 {
		matches = liteLinkAltPattern.FindAllStringSubmatch(html, -1)
	}
	snippets := liteSnippetPattern.FindAllStringSubmatch(html, -1)

	var results []types.SearchResult
	for i, m := range matches {
		resultURL := strings.TrimSpace(m[1])
		title := cleanHTML(m[2])
		if resultURL == "" || title == "" {
			continue
		}

		snippet := ""
		if i < len(snippets) {
			snippet = cleanHTML(snippets[i][1])
		}

		results = append(results, types.SearchResult{
			Title:   title,
			Snippet: snippet,
			URL:     resultURL,
			Source:  types.BackendWeb,
		})
	}
	return results
}

// cleanHTML strips tags and decodes the entities the lite page uses.
func cleanHTML(s string) string {
	s = tagPattern.ReplaceAllString(s, "")
	replacer := strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#x27;", "'",
		"&#39;", "'",
		"&nbsp;", " ",
	)
	return strings.TrimSpace(replacer.Replace(s))
}
