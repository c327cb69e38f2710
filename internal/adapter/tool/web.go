package tool

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"model8cli/internal/domain"
	"model8cli/internal/infra/config"
)

const (
	defaultWebTimeout       = 30 * time.Second
	defaultWebMaxResponse   = 1 * 1024 * 1024 // 1 MB
	defaultSearchMaxResults = 5
	searchEndpoint          = "https://html.duckduckgo.com/html/"
)

var searchResultPattern = regexp.MustCompile(`(?s)result__a[^>]*href="([^"]+)"[^>]*>(.*?)</a>`)
var htmlTagPattern = regexp.MustCompile(`<[^>]+>`)

// NewWebTools builds the web_tools set: a size-limited page fetcher and a
// DuckDuckGo HTML search.
func NewWebTools(cfg config.ToolsConfig) []domain.Tool {
	timeout := cfg.WebTimeout
	if timeout <= 0 {
		timeout = defaultWebTimeout
	}
	maxResponse := cfg.WebMaxResponse
	if maxResponse <= 0 {
		maxResponse = defaultWebMaxResponse
	}
	maxResults := cfg.SearchMaxResults
	if maxResults <= 0 {
		maxResults = defaultSearchMaxResults
	}

	client := &http.Client{Timeout: timeout}

	webFetch := New(Options{
		Name:        "web_fetch",
		Description: "Fetch the contents of a URL over HTTP or HTTPS",
		Category:    domain.CategoryWebTools,
		Parameters: []domain.ToolParameter{
			{Name: "url", Type: "string", Description: "URL to fetch", Required: true, Pattern: "^https?://"},
		},
		Run: func(ctx context.Context, args Args) (any, error) {
			rawURL, err := args.String("url")
			if err != nil {
				return nil, err
			}
			parsed, err := url.Parse(rawURL)
			if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
				return nil, fmt.Errorf("invalid URL: %s", rawURL)
			}

			req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
			if err != nil {
				return nil, err
			}
			req.Header.Set("User-Agent", "model8cli/1.0")

			resp, err := client.Do(req)
			if err != nil {
				return nil, err
			}
			defer resp.Body.Close()

			body, err := io.ReadAll(io.LimitReader(resp.Body, int64(maxResponse)))
			if err != nil {
				return nil, err
			}

			return map[string]any{
				"url":          rawURL,
				"status_code":  resp.StatusCode,
				"content_type": resp.Header.Get("Content-Type"),
				"content":      string(body),
				"truncated":    len(body) == maxResponse,
			}, nil
		},
	})

	webSearch := New(Options{
		Name:        "web_search",
		Description: "Search the web and return result titles with URLs",
		Category:    domain.CategoryWebTools,
		Parameters: []domain.ToolParameter{
			{Name: "query", Type: "string", Description: "Search query", Required: true, MinLength: intPtr(1)},
		},
		Run: func(ctx context.Context, args Args) (any, error) {
			query, err := args.String("query")
			if err != nil {
				return nil, err
			}

			form := url.Values{"q": {query}}
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, searchEndpoint, strings.NewReader(form.Encode()))
			if err != nil {
				return nil, err
			}
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			req.Header.Set("User-Agent", "model8cli/1.0")

			resp, err := client.Do(req)
			if err != nil {
				return nil, err
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return nil, fmt.Errorf("search request failed with status %d", resp.StatusCode)
			}

			body, err := io.ReadAll(io.LimitReader(resp.Body, int64(maxResponse)))
			if err != nil {
				return nil, err
			}

			results := parseSearchResults(string(body), maxResults)
			return map[string]any{"query": query, "results": results}, nil
		},
	})

	return []domain.Tool{webFetch, webSearch}
}

// parseSearchResults extracts result links from DuckDuckGo's HTML page.
func parseSearchResults(html string, limit int) []map[string]string {
	matches := searchResultPattern.FindAllStringSubmatch(html, limit)
	results := make([]map[string]string, 0, len(matches))
	for _, m := range matches {
		title := strings.TrimSpace(htmlTagPattern.ReplaceAllString(m[2], ""))
		link := m[1]
		// DuckDuckGo wraps links in a redirect; unwrap when present.
		if u, err := url.Parse(link); err == nil {
			if target := u.Query().Get("uddg"); target != "" {
				link = target
			}
		}
		results = append(results, map[string]string{"title": title, "url": link})
	}
	return results
}

func intPtr(v int) *int { return &v }
