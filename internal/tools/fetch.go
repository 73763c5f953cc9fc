package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"
)

// maxResponseBytes caps upstream bodies read by tool clients.
const maxResponseBytes = 4 << 20

// DefaultUserAgent is sent by tool clients; several public endpoints reject
// requests without a browser-like agent.
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// HTTPClient performs HTTP requests. *http.Client satisfies it.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// StatusError reports a non-2xx upstream response. Body is a short excerpt
// for messages; Payload holds the full response for callers that decode
// error envelopes.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
	Payload    []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d: %s", e.URL, e.StatusCode, e.Body)
}

// Fetcher issues throttled GET requests on behalf of a toolkit.
type Fetcher struct {
	client  HTTPClient
	limiter *rate.Limiter
}

// NewFetcher creates a fetcher. A nil client selects NewHTTPClient(timeout);
// perMinute <= 0 disables throttling.
func NewFetcher(client HTTPClient, timeout time.Duration, perMinute int) *Fetcher {
	if client == nil {
		client = NewHTTPClient(timeout)
	}
	limit := rate.Inf
	burst := 1
	if perMinute > 0 {
		limit = rate.Limit(float64(perMinute) / 60.0)
		burst = max(1, perMinute/10)
	}
	return &Fetcher{
		client:  client,
		limiter: rate.NewLimiter(limit, burst),
	}
}

// NewHTTPClient returns a client with a cookie jar, so session cookies set by
// one upstream call are sent on the next.
func NewHTTPClient(timeout time.Duration) *http.Client {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return &http.Client{Timeout: timeout}
	}
	return &http.Client{Timeout: timeout, Jar: jar}
}

// Get fetches rawURL with the query parameters and returns the body.
func (f *Fetcher) Get(ctx context.Context, rawURL string, query url.Values) ([]byte, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	u := rawURL
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", DefaultUserAgent)
	req.Header.Set("Accept", "application/json, text/html;q=0.9, */*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", rawURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rawURL, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := string(body)
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		return nil, &StatusError{URL: rawURL, StatusCode: resp.StatusCode, Body: snippet, Payload: body}
	}
	return body, nil
}
