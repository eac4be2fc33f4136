package tool

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
)

// Compile-time interface check.
var _ Tool = (*ScrapeWebsite)(nil)

// maxScrapeBytes caps how much of a page body is read.
const maxScrapeBytes = 512 * 1024

// maxScrapeChars caps the observation returned to the model.
const maxScrapeChars = 8000

var (
	scriptRe = regexp.MustCompile(`(?is)<(script|style|noscript)[^>]*>.*?</(script|style|noscript)>`)
	tagRe    = regexp.MustCompile(`(?s)<[^>]*>`)
	spaceRe  = regexp.MustCompile(`[ \t\r\f]+`)
	blankRe  = regexp.MustCompile(`\n{3,}`)
)

// ScrapeWebsite is the scrape_website tool: it fetches a page and returns
// its visible text.
type ScrapeWebsite struct {
	http *http.Client
}

// NewScrapeWebsite creates the scrape_website tool. A nil client uses
// http.DefaultClient semantics.
func NewScrapeWebsite(client *http.Client) *ScrapeWebsite {
	if client == nil {
		client = &http.Client{}
	}
	return &ScrapeWebsite{http: client}
}

// Name returns the tool identifier.
func (s *ScrapeWebsite) Name() string { return "scrape_website" }

// Description tells the model how to use the tool.
func (s *ScrapeWebsite) Description() string {
	return `Fetch a web page and return its visible text. Arguments: {"url": "<http(s) URL>"}.`
}

// Call fetches the page once; retries belong to the Adapter.
func (s *ScrapeWebsite) Call(ctx context.Context, args map[string]any) (string, error) {
	raw, ok := args["url"].(string)
	if !ok || strings.TrimSpace(raw) == "" {
		return "", &InvalidArgsError{Tool: s.Name(), Reason: `"url" must be a non-empty string`}
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return "", &InvalidArgsError{Tool: s.Name(), Reason: fmt.Sprintf("%q is not an http(s) URL", raw)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("tool: %s: create request: %w", s.Name(), err)
	}
	req.Header.Set("User-Agent", "market-research-agent/1.0")

	resp, err := s.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("tool: %s: %w", s.Name(), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxScrapeBytes))
	if err != nil {
		return "", fmt.Errorf("tool: %s: read body: %w", s.Name(), err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{Tool: s.Name(), Code: resp.StatusCode, Body: truncate(string(body), 200)}
	}

	text := stripHTML(string(body))
	if text == "" {
		return fmt.Sprintf("No readable text at %s.", u), nil
	}
	return fmt.Sprintf("Content of %s:\n%s", u, truncate(text, maxScrapeChars)), nil
}

// stripHTML reduces an HTML document to its visible text.
func stripHTML(html string) string {
	text := scriptRe.ReplaceAllString(html, " ")
	text = tagRe.ReplaceAllString(text, " ")
	text = strings.NewReplacer("&amp;", "&", "&lt;", "<", "&gt;", ">", "&quot;", `"`, "&#39;", "'", "&nbsp;", " ").Replace(text)
	text = spaceRe.ReplaceAllString(text, " ")

	// Collapse whitespace-only lines.
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" {
			kept = append(kept, trimmed)
		}
	}
	out := strings.Join(kept, "\n")
	return strings.TrimSpace(blankRe.ReplaceAllString(out, "\n\n"))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
