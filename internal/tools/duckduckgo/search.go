// Package duckduckgo provides web and news search tools backed by DuckDuckGo.
package duckduckgo

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/ashureev/stock-analyst/internal/tools"
	"golang.org/x/net/html"
)

// DefaultBaseURL is the JavaScript-free DuckDuckGo host.
const DefaultBaseURL = "https://html.duckduckgo.com"

// Result is a single organic search hit.
type Result struct {
	Title string `json:"title"`
	Href  string `json:"href"`
	Body  string `json:"body"`
}

// Client runs DuckDuckGo searches.
type Client struct {
	baseURL  string
	siteURL  string
	linksURL string
	fetcher  *tools.Fetcher
}

// Option configures a Client.
type Option func(*Client)

// WithNewsURLs overrides DefaultSiteURL and DefaultLinksURL. Empty values
// keep the defaults.
func WithNewsURLs(siteURL, linksURL string) Option {
	return func(c *Client) {
		if siteURL != "" {
			c.siteURL = strings.TrimRight(siteURL, "/")
		}
		if linksURL != "" {
			c.linksURL = strings.TrimRight(linksURL, "/")
		}
	}
}

// NewClient creates a client. An empty baseURL selects DefaultBaseURL.
func NewClient(baseURL string, fetcher *tools.Fetcher, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		siteURL:  DefaultSiteURL,
		linksURL: DefaultLinksURL,
		fetcher:  fetcher,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search returns up to maxResults organic results for query.
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	body, err := c.fetcher.Get(ctx, c.baseURL+"/html/", url.Values{"q": {query}})
	if err != nil {
		return nil, err
	}
	results, err := parseResults(body)
	if err != nil {
		return nil, err
	}
	if maxResults > 0 && len(results) > maxResults {
		results = results[:maxResults]
	}
	return results, nil
}

func parseResults(page []byte) ([]Result, error) {
	doc, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parse search results: %w", err)
	}

	var results []Result
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && hasClass(n, "result__body") {
			if r, ok := extractResult(n); ok {
				results = append(results, r)
			}
			return
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)
	return results, nil
}

func extractResult(n *html.Node) (Result, bool) {
	if n.Parent != nil && hasClass(n.Parent, "result--ad") {
		return Result{}, false
	}
	var r Result
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch {
			case n.Data == "a" && hasClass(n, "result__a") && r.Title == "":
				r.Title = textContent(n)
				r.Href = resolveRedirect(attr(n, "href"))
			case hasClass(n, "result__snippet") && r.Body == "":
				r.Body = textContent(n)
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return r, r.Title != "" && r.Href != ""
}

// resolveRedirect unwraps DuckDuckGo's /l/?uddg= tracking links.
func resolveRedirect(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}

func hasClass(n *html.Node, class string) bool {
	for _, f := range strings.Fields(attr(n, "class")) {
		if f == class {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}
