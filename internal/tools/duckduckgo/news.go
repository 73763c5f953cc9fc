package duckduckgo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/html"
)

const (
	// DefaultSiteURL serves the page that carries the vqd token.
	DefaultSiteURL = "https://duckduckgo.com"
	// DefaultLinksURL serves the JSON news endpoint.
	DefaultLinksURL = "https://links.duckduckgo.com"

	newsRegion     = "us-en"
	safeSearchMode = "-1" // moderate
)

var vqdPattern = regexp.MustCompile(`vqd=["']?([\w-]+)`)

// NewsResult is a single news article.
type NewsResult struct {
	Title  string `json:"title"`
	Href   string `json:"href"`
	Body   string `json:"body"`
	Date   string `json:"date,omitempty"`
	Source string `json:"source,omitempty"`
}

type newsResponse struct {
	Results []struct {
		Date    int64  `json:"date"`
		Title   string `json:"title"`
		Excerpt string `json:"excerpt"`
		URL     string `json:"url"`
		Source  string `json:"source"`
	} `json:"results"`
}

// News returns up to maxResults recent articles for query.
func (c *Client) News(ctx context.Context, query string, maxResults int) ([]NewsResult, error) {
	vqd, err := c.vqd(ctx, query)
	if err != nil {
		return nil, err
	}

	body, err := c.fetcher.Get(ctx, c.linksURL+"/news.js", url.Values{
		"l":     {newsRegion},
		"o":     {"json"},
		"noamp": {"1"},
		"q":     {query},
		"vqd":   {vqd},
		"p":     {safeSearchMode},
	})
	if err != nil {
		return nil, err
	}

	var resp newsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode news results: %w", err)
	}

	results := make([]NewsResult, 0, len(resp.Results))
	for _, r := range resp.Results {
		if r.URL == "" || r.Title == "" {
			continue
		}
		n := NewsResult{
			Title:  plainText(r.Title),
			Href:   r.URL,
			Body:   plainText(r.Excerpt),
			Source: r.Source,
		}
		if r.Date > 0 {
			n.Date = time.Unix(r.Date, 0).UTC().Format(time.RFC3339)
		}
		results = append(results, n)
		if maxResults > 0 && len(results) == maxResults {
			break
		}
	}
	return results, nil
}

// vqd fetches the per-query token the JSON endpoints require.
func (c *Client) vqd(ctx context.Context, query string) (string, error) {
	page, err := c.fetcher.Get(ctx, c.siteURL+"/", url.Values{"q": {query}})
	if err != nil {
		return "", fmt.Errorf("fetch vqd token: %w", err)
	}
	m := vqdPattern.FindSubmatch(page)
	if m == nil {
		return "", fmt.Errorf("vqd token not found for %q", query)
	}
	return string(m[1]), nil
}

// plainText strips markup and entities from an API snippet.
func plainText(s string) string {
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}
	return textContent(doc)
}
