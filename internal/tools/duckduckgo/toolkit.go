package duckduckgo

import (
	"context"
	"fmt"
	"strings"

	"github.com/ashureev/stock-analyst/internal/tools"
)

// DefaultMaxResults bounds a search when neither the model nor the options set a limit.
const DefaultMaxResults = 5

// Options configures the search toolkit. News defaults to enabled.
type Options struct {
	MaxResults int   `yaml:"max_results"`
	News       *bool `yaml:"news"`
}

func (o Options) newsEnabled() bool {
	return o.News == nil || *o.News
}

// Toolkit returns the web search tools.
func Toolkit(c *Client, opts Options) []tools.Tool {
	if opts.MaxResults <= 0 {
		opts.MaxResults = DefaultMaxResults
	}
	ts := []tools.Tool{&searchTool{c: c, maxResults: opts.MaxResults}}
	if opts.newsEnabled() {
		ts = append(ts, &newsTool{c: c, maxResults: opts.MaxResults})
	}
	return ts
}

type searchArgs struct {
	Query      string `json:"query" jsonschema:"description=The query to search for"`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"description=Maximum number of results to return"`
}

// limit validates args and picks the result count, never above the configured maximum.
func (a searchArgs) limit(configured int) (string, int, error) {
	query := strings.TrimSpace(a.Query)
	if query == "" {
		return "", 0, fmt.Errorf("query is required")
	}
	n := configured
	if a.MaxResults > 0 && a.MaxResults < n {
		n = a.MaxResults
	}
	return query, n, nil
}

type searchTool struct {
	c          *Client
	maxResults int
}

func (t *searchTool) Definition() tools.Definition {
	return tools.Definition{
		Name:        "duckduckgo_search",
		Description: "Search DuckDuckGo for a query and return the top results with title, link and snippet.",
		Parameters:  tools.SchemaFor[searchArgs](),
	}
}

func (t *searchTool) Execute(ctx context.Context, argsJSON string) (string, error) {
	args, err := tools.ParseArgs[searchArgs](argsJSON)
	if err != nil {
		return "", err
	}
	query, limit, err := args.limit(t.maxResults)
	if err != nil {
		return "", err
	}

	results, err := t.c.Search(ctx, query, limit)
	if err != nil {
		return "", err
	}
	if results == nil {
		results = []Result{}
	}
	return tools.JSONResult(results)
}

type newsTool struct {
	c          *Client
	maxResults int
}

func (t *newsTool) Definition() tools.Definition {
	return tools.Definition{
		Name:        "duckduckgo_news",
		Description: "Get the latest news from DuckDuckGo for a query, with title, link, snippet, date and source.",
		Parameters:  tools.SchemaFor[searchArgs](),
	}
}

func (t *newsTool) Execute(ctx context.Context, argsJSON string) (string, error) {
	args, err := tools.ParseArgs[searchArgs](argsJSON)
	if err != nil {
		return "", err
	}
	query, limit, err := args.limit(t.maxResults)
	if err != nil {
		return "", err
	}

	results, err := t.c.News(ctx, query, limit)
	if err != nil {
		return "", err
	}
	return tools.JSONResult(results)
}
