package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Compile-time interface check.
var _ Tool = (*SerperSearch)(nil)

// DefaultSerperBaseURL is the production Serper endpoint.
const DefaultSerperBaseURL = "https://google.serper.dev"

// defaultMaxResults caps how many organic results are rendered per search.
const defaultMaxResults = 5

// SearchResult is one entry from a web search.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"link"`
	Snippet string `json:"snippet"`
}

// SerperSearch is the web_search tool backed by the Serper API.
type SerperSearch struct {
	apiKey     string
	baseURL    string
	http       *http.Client
	maxResults int
}

// SerperOption configures a SerperSearch.
type SerperOption func(*SerperSearch)

// WithSerperBaseURL overrides the API endpoint. Used by tests.
func WithSerperBaseURL(u string) SerperOption {
	return func(s *SerperSearch) { s.baseURL = u }
}

// WithSerperHTTPClient replaces the underlying *http.Client.
func WithSerperHTTPClient(c *http.Client) SerperOption {
	return func(s *SerperSearch) { s.http = c }
}

// WithSerperMaxResults caps rendered results per query.
func WithSerperMaxResults(n int) SerperOption {
	return func(s *SerperSearch) {
		if n > 0 {
			s.maxResults = n
		}
	}
}

// NewSerperSearch creates the web_search tool.
func NewSerperSearch(apiKey string, opts ...SerperOption) *SerperSearch {
	s := &SerperSearch{
		apiKey:     apiKey,
		baseURL:    DefaultSerperBaseURL,
		http:       &http.Client{},
		maxResults: defaultMaxResults,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the tool identifier.
func (s *SerperSearch) Name() string { return "web_search" }

// Description tells the model how to use the tool.
func (s *SerperSearch) Description() string {
	return `Search the web. Arguments: {"query": "<search terms>"}. Returns titles, URLs, and snippets.`
}

// Call performs one search. A query with no hits returns a "no results"
// observation, not an error.
func (s *SerperSearch) Call(ctx context.Context, args map[string]any) (string, error) {
	query, ok := args["query"].(string)
	if !ok || strings.TrimSpace(query) == "" {
		return "", &InvalidArgsError{Tool: s.Name(), Reason: `"query" must be a non-empty string`}
	}

	results, err := s.search(ctx, query)
	if err != nil {
		return "", err
	}
	return renderResults(query, results), nil
}

func (s *SerperSearch) search(ctx context.Context, query string) ([]SearchResult, error) {
	payload, err := json.Marshal(map[string]string{"q": query})
	if err != nil {
		return nil, fmt.Errorf("tool: %s: marshal query: %w", s.Name(), err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/search", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("tool: %s: create request: %w", s.Name(), err)
	}
	req.Header.Set("X-API-KEY", s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tool: %s: %w", s.Name(), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("tool: %s: read response: %w", s.Name(), err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Tool: s.Name(), Code: resp.StatusCode, Body: string(body)}
	}

	var parsed struct {
		Organic []SearchResult `json:"organic"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("tool: %s: decode response: %w", s.Name(), err)
	}

	if len(parsed.Organic) > s.maxResults {
		parsed.Organic = parsed.Organic[:s.maxResults]
	}
	return parsed.Organic, nil
}

// renderResults formats search results as a text observation.
func renderResults(query string, results []SearchResult) string {
	if len(results) == 0 {
		return fmt.Sprintf("No results found for %q.", query)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Search results for %q:\n", query)
	for i, r := range results {
		fmt.Fprintf(&sb, "%d. %s\n   %s\n   %s\n", i+1, r.Title, r.URL, r.Snippet)
	}
	return sb.String()
}
