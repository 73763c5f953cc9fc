// Package yfinance provides financial data tools backed by Yahoo Finance's
// public JSON endpoints.
package yfinance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/ashureev/stock-analyst/internal/tools"
)

// DefaultBaseURL is the Yahoo Finance query host.
const DefaultBaseURL = "https://query1.finance.yahoo.com"

// DefaultCookieURL hands out the session cookie that getcrumb requires.
const DefaultCookieURL = "https://fc.yahoo.com"

// Client fetches quotes and summaries from Yahoo Finance.
type Client struct {
	baseURL   string
	cookieURL string
	fetcher   *tools.Fetcher

	mu    sync.Mutex
	crumb string
}

// Option configures a Client.
type Option func(*Client)

// WithCookieURL overrides DefaultCookieURL.
func WithCookieURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.cookieURL = u
		}
	}
}

// NewClient creates a client. An empty baseURL selects DefaultBaseURL. The
// fetcher's HTTP client needs a cookie jar for quoteSummary calls.
func NewClient(baseURL string, fetcher *tools.Fetcher, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		cookieURL: DefaultCookieURL,
		fetcher:   fetcher,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Value is Yahoo's {raw, fmt} number wrapper.
type Value struct {
	Raw float64 `json:"raw"`
	Fmt string  `json:"fmt"`
}

type apiError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

func (e *apiError) err(symbol string) error {
	if e == nil {
		return nil
	}
	return fmt.Errorf("yahoo finance %s: %s: %s", symbol, e.Code, e.Description)
}

// errorEnvelope covers the shapes Yahoo uses for error bodies.
type errorEnvelope struct {
	Finance *struct {
		Error *apiError `json:"error"`
	} `json:"finance"`
	Chart *struct {
		Error *apiError `json:"error"`
	} `json:"chart"`
	QuoteSummary *struct {
		Error *apiError `json:"error"`
	} `json:"quoteSummary"`
}

func (e errorEnvelope) apiError() *apiError {
	switch {
	case e.Finance != nil && e.Finance.Error != nil:
		return e.Finance.Error
	case e.Chart != nil && e.Chart.Error != nil:
		return e.Chart.Error
	case e.QuoteSummary != nil && e.QuoteSummary.Error != nil:
		return e.QuoteSummary.Error
	}
	return nil
}

// upstreamError replaces a bare status error with Yahoo's own description
// when the body carries one. The status error stays in the chain.
func upstreamError(symbol string, err error) error {
	var se *tools.StatusError
	if !errors.As(err, &se) {
		return err
	}
	var env errorEnvelope
	if json.Unmarshal(se.Payload, &env) != nil {
		return err
	}
	ae := env.apiError()
	if ae == nil {
		return err
	}
	return fmt.Errorf("yahoo finance %s: %s: %s (status %d): %w", symbol, ae.Code, ae.Description, se.StatusCode, err)
}

func isUnauthorized(err error) bool {
	var se *tools.StatusError
	return errors.As(err, &se) && (se.StatusCode == http.StatusUnauthorized || se.StatusCode == http.StatusForbidden)
}

// sessionCrumb returns the cached crumb, or performs the cookie and crumb
// handshake when there is none or refresh is set.
func (c *Client) sessionCrumb(ctx context.Context, refresh bool) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.crumb != "" && !refresh {
		return c.crumb, nil
	}
	c.crumb = ""

	// The cookie host answers 404 but still sets the cookie.
	if _, err := c.fetcher.Get(ctx, c.cookieURL, nil); err != nil {
		var se *tools.StatusError
		if !errors.As(err, &se) {
			return "", fmt.Errorf("yahoo cookie: %w", err)
		}
	}

	body, err := c.fetcher.Get(ctx, c.baseURL+"/v1/test/getcrumb", nil)
	if err != nil {
		return "", fmt.Errorf("yahoo crumb: %w", upstreamError("crumb", err))
	}
	crumb := strings.TrimSpace(string(body))
	if crumb == "" || strings.ContainsAny(crumb, "<{ \n") {
		if len(crumb) > 64 {
			crumb = crumb[:64]
		}
		return "", fmt.Errorf("yahoo crumb: unexpected response %q", crumb)
	}
	c.crumb = crumb
	return crumb, nil
}

// ChartMeta is the quote metadata attached to a chart response.
type ChartMeta struct {
	Symbol               string  `json:"symbol"`
	Currency             string  `json:"currency"`
	ExchangeName         string  `json:"exchangeName"`
	LongName             string  `json:"longName"`
	RegularMarketPrice   float64 `json:"regularMarketPrice"`
	ChartPreviousClose   float64 `json:"chartPreviousClose"`
	RegularMarketDayHigh float64 `json:"regularMarketDayHigh"`
	RegularMarketDayLow  float64 `json:"regularMarketDayLow"`
	FiftyTwoWeekHigh     float64 `json:"fiftyTwoWeekHigh"`
	FiftyTwoWeekLow      float64 `json:"fiftyTwoWeekLow"`
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta ChartMeta `json:"meta"`
		} `json:"result"`
		Error *apiError `json:"error"`
	} `json:"chart"`
}

// Quote returns the latest chart metadata for symbol.
func (c *Client) Quote(ctx context.Context, symbol string) (*ChartMeta, error) {
	body, err := c.fetcher.Get(ctx, c.baseURL+"/v8/finance/chart/"+url.PathEscape(symbol), url.Values{
		"range":    {"1d"},
		"interval": {"1d"},
	})
	if err != nil {
		return nil, upstreamError(symbol, err)
	}

	var resp chartResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode chart for %s: %w", symbol, err)
	}
	if err := resp.Chart.Error.err(symbol); err != nil {
		return nil, err
	}
	if len(resp.Chart.Result) == 0 {
		return nil, fmt.Errorf("no chart data for %s", symbol)
	}
	return &resp.Chart.Result[0].Meta, nil
}

// RecommendationTrend is one period of analyst ratings.
type RecommendationTrend struct {
	Period     string `json:"period"`
	StrongBuy  int    `json:"strongBuy"`
	Buy        int    `json:"buy"`
	Hold       int    `json:"hold"`
	Sell       int    `json:"sell"`
	StrongSell int    `json:"strongSell"`
}

// Summary holds the quoteSummary modules this package reads.
type Summary struct {
	RecommendationTrend *struct {
		Trend []RecommendationTrend `json:"trend"`
	} `json:"recommendationTrend,omitempty"`
	AssetProfile *struct {
		Sector   string `json:"sector"`
		Industry string `json:"industry"`
	} `json:"assetProfile,omitempty"`
	Price *struct {
		LongName  string `json:"longName"`
		ShortName string `json:"shortName"`
		MarketCap Value  `json:"marketCap"`
	} `json:"price,omitempty"`
	SummaryDetail *struct {
		TrailingPE       Value `json:"trailingPE"`
		DividendYield    Value `json:"dividendYield"`
		Beta             Value `json:"beta"`
		FiftyTwoWeekHigh Value `json:"fiftyTwoWeekHigh"`
		FiftyTwoWeekLow  Value `json:"fiftyTwoWeekLow"`
	} `json:"summaryDetail,omitempty"`
	DefaultKeyStatistics *struct {
		PriceToBook Value `json:"priceToBook"`
		TrailingEps Value `json:"trailingEps"`
	} `json:"defaultKeyStatistics,omitempty"`
}

type summaryResponse struct {
	QuoteSummary struct {
		Result []Summary  `json:"result"`
		Error  *apiError `json:"error"`
	} `json:"quoteSummary"`
}

// QuoteSummary fetches the named quoteSummary modules for symbol. A rejected
// crumb is refreshed once before giving up.
func (c *Client) QuoteSummary(ctx context.Context, symbol string, modules ...string) (*Summary, error) {
	body, err := c.quoteSummary(ctx, symbol, modules, false)
	if isUnauthorized(err) {
		body, err = c.quoteSummary(ctx, symbol, modules, true)
	}
	if err != nil {
		return nil, err
	}

	var resp summaryResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode quote summary for %s: %w", symbol, err)
	}
	if err := resp.QuoteSummary.Error.err(symbol); err != nil {
		return nil, err
	}
	if len(resp.QuoteSummary.Result) == 0 {
		return nil, fmt.Errorf("no quote summary for %s", symbol)
	}
	return &resp.QuoteSummary.Result[0], nil
}

func (c *Client) quoteSummary(ctx context.Context, symbol string, modules []string, refresh bool) ([]byte, error) {
	crumb, err := c.sessionCrumb(ctx, refresh)
	if err != nil {
		return nil, err
	}
	body, err := c.fetcher.Get(ctx, c.baseURL+"/v10/finance/quoteSummary/"+url.PathEscape(symbol), url.Values{
		"modules": {strings.Join(modules, ",")},
		"crumb":   {crumb},
	})
	if err != nil {
		return nil, upstreamError(symbol, err)
	}
	return body, nil
}
