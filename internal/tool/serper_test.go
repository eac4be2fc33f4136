package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serperServer(t *testing.T, handler http.HandlerFunc) *SerperSearch {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewSerperSearch("test-key", WithSerperBaseURL(srv.URL))
}

func TestSerperSearch_Call(t *testing.T) {
	s := serperServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("X-API-KEY"))
		assert.Equal(t, "/search", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Adidas overview", body["q"])

		fmt.Fprint(w, `{"organic":[
			{"title":"Adidas","link":"https://adidas.com","snippet":"Sportswear maker."},
			{"title":"Adidas news","link":"https://example.com/news","snippet":"Recent launches."}
		]}`)
	})

	out, err := s.Call(context.Background(), map[string]any{"query": "Adidas overview"})
	require.NoError(t, err)
	assert.Contains(t, out, "Adidas")
	assert.Contains(t, out, "https://adidas.com")
	assert.Contains(t, out, "Sportswear maker.")
}

func TestSerperSearch_EmptyResultsIsNotAnError(t *testing.T) {
	s := serperServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"organic":[]}`)
	})

	out, err := s.Call(context.Background(), map[string]any{"query": "zero hits"})
	require.NoError(t, err, "zero search results is valid empty data")
	assert.Contains(t, out, "No results found")
}

func TestSerperSearch_MissingQuery(t *testing.T) {
	s := NewSerperSearch("k")
	for _, args := range []map[string]any{nil, {}, {"query": ""}, {"query": 42}} {
		_, err := s.Call(context.Background(), args)
		var ia *InvalidArgsError
		require.ErrorAs(t, err, &ia, "args %v", args)
	}
}

func TestSerperSearch_RateLimitSurfacesStatusError(t *testing.T) {
	s := serperServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := s.Call(context.Background(), map[string]any{"query": "q"})
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusTooManyRequests, se.Code)
}

func TestSerperSearch_MaxResults(t *testing.T) {
	s := serperServer(t, func(w http.ResponseWriter, r *http.Request) {
		var results []SearchResult
		for i := 0; i < 10; i++ {
			results = append(results, SearchResult{Title: fmt.Sprintf("r%d", i), URL: "u", Snippet: "s"})
		}
		json.NewEncoder(w).Encode(map[string]any{"organic": results})
	})

	out, err := s.Call(context.Background(), map[string]any{"query": "q"})
	require.NoError(t, err)
	assert.Contains(t, out, "r4")
	assert.NotContains(t, out, "r5", "results beyond the cap are dropped")
}

func TestScrapeWebsite_Call(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><style>body{color:red}</style><script>alert(1)</script></head>
			<body><h1>Puma</h1><p>German &amp; global sportswear brand.</p></body></html>`)
	}))
	defer srv.Close()

	s := NewScrapeWebsite(nil)
	out, err := s.Call(context.Background(), map[string]any{"url": srv.URL})
	require.NoError(t, err)
	assert.Contains(t, out, "Puma")
	assert.Contains(t, out, "German & global sportswear brand.")
	assert.NotContains(t, out, "alert(1)", "script content must be stripped")
	assert.NotContains(t, out, "color:red", "style content must be stripped")
}

func TestScrapeWebsite_BadURL(t *testing.T) {
	s := NewScrapeWebsite(nil)
	for _, u := range []any{nil, "", "ftp://example.com", 7} {
		_, err := s.Call(context.Background(), map[string]any{"url": u})
		var ia *InvalidArgsError
		require.ErrorAs(t, err, &ia, "url %v", u)
	}
}

func TestScrapeWebsite_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	s := NewScrapeWebsite(nil)
	_, err := s.Call(context.Background(), map[string]any{"url": srv.URL})
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.Code)
}
