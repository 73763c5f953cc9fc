package yfinance

import (
	"context"
	"fmt"
	"strings"

	"github.com/ashureev/stock-analyst/internal/tools"
)

// Options selects which financial sub-features are exposed to the model.
type Options struct {
	StockPrice             bool `yaml:"stock_price"`
	AnalystRecommendations bool `yaml:"analyst_recommendations"`
	StockFundamentals      bool `yaml:"stock_fundamentals"`
}

// Toolkit returns the tools enabled by opts.
func Toolkit(c *Client, opts Options) []tools.Tool {
	var ts []tools.Tool
	if opts.StockPrice {
		ts = append(ts, &priceTool{c: c})
	}
	if opts.AnalystRecommendations {
		ts = append(ts, &recommendationsTool{c: c})
	}
	if opts.StockFundamentals {
		ts = append(ts, &fundamentalsTool{c: c})
	}
	return ts
}

type symbolArgs struct {
	Symbol string `json:"symbol" jsonschema:"description=The stock ticker symbol, e.g. AAPL"`
}

func parseSymbol(argsJSON string) (string, error) {
	args, err := tools.ParseArgs[symbolArgs](argsJSON)
	if err != nil {
		return "", err
	}
	symbol := strings.ToUpper(strings.TrimSpace(args.Symbol))
	if symbol == "" {
		return "", fmt.Errorf("symbol is required")
	}
	return symbol, nil
}

type priceTool struct{ c *Client }

func (t *priceTool) Definition() tools.Definition {
	return tools.Definition{
		Name:        "get_current_stock_price",
		Description: "Get the current stock price for a given symbol.",
		Parameters:  tools.SchemaFor[symbolArgs](),
	}
}

func (t *priceTool) Execute(ctx context.Context, argsJSON string) (string, error) {
	symbol, err := parseSymbol(argsJSON)
	if err != nil {
		return "", err
	}
	meta, err := t.c.Quote(ctx, symbol)
	if err != nil {
		return "", err
	}
	return tools.JSONResult(map[string]any{
		"symbol":         meta.Symbol,
		"price":          meta.RegularMarketPrice,
		"currency":       meta.Currency,
		"previous_close": meta.ChartPreviousClose,
		"day_high":       meta.RegularMarketDayHigh,
		"day_low":        meta.RegularMarketDayLow,
	})
}

type recommendationsTool struct{ c *Client }

func (t *recommendationsTool) Definition() tools.Definition {
	return tools.Definition{
		Name:        "get_analyst_recommendations",
		Description: "Get analyst recommendations (strong buy to strong sell counts per period) for a given symbol.",
		Parameters:  tools.SchemaFor[symbolArgs](),
	}
}

func (t *recommendationsTool) Execute(ctx context.Context, argsJSON string) (string, error) {
	symbol, err := parseSymbol(argsJSON)
	if err != nil {
		return "", err
	}
	s, err := t.c.QuoteSummary(ctx, symbol, "recommendationTrend")
	if err != nil {
		return "", err
	}
	if s.RecommendationTrend == nil || len(s.RecommendationTrend.Trend) == 0 {
		return "", fmt.Errorf("no analyst recommendations for %s", symbol)
	}
	return tools.JSONResult(s.RecommendationTrend.Trend)
}

type fundamentalsTool struct{ c *Client }

func (t *fundamentalsTool) Definition() tools.Definition {
	return tools.Definition{
		Name:        "get_stock_fundamentals",
		Description: "Get fundamental data for a given stock symbol: company name, sector, industry, market cap, P/E, P/B, dividend yield, EPS, beta and 52-week range.",
		Parameters:  tools.SchemaFor[symbolArgs](),
	}
}

// Fundamentals is the flattened fundamentals payload returned to the model.
type Fundamentals struct {
	Symbol           string  `json:"symbol"`
	CompanyName      string  `json:"company_name"`
	Sector           string  `json:"sector"`
	Industry         string  `json:"industry"`
	MarketCap        float64 `json:"market_cap"`
	PERatio          float64 `json:"pe_ratio"`
	PBRatio          float64 `json:"pb_ratio"`
	DividendYield    float64 `json:"dividend_yield"`
	EPS              float64 `json:"eps"`
	Beta             float64 `json:"beta"`
	FiftyTwoWeekHigh float64 `json:"52_week_high"`
	FiftyTwoWeekLow  float64 `json:"52_week_low"`
}

func (t *fundamentalsTool) Execute(ctx context.Context, argsJSON string) (string, error) {
	symbol, err := parseSymbol(argsJSON)
	if err != nil {
		return "", err
	}
	s, err := t.c.QuoteSummary(ctx, symbol, "assetProfile", "price", "summaryDetail", "defaultKeyStatistics")
	if err != nil {
		return "", err
	}
	return tools.JSONResult(flattenFundamentals(symbol, s))
}

func flattenFundamentals(symbol string, s *Summary) Fundamentals {
	f := Fundamentals{Symbol: symbol}
	if p := s.Price; p != nil {
		f.CompanyName = p.LongName
		if f.CompanyName == "" {
			f.CompanyName = p.ShortName
		}
		f.MarketCap = p.MarketCap.Raw
	}
	if a := s.AssetProfile; a != nil {
		f.Sector = a.Sector
		f.Industry = a.Industry
	}
	if d := s.SummaryDetail; d != nil {
		f.PERatio = d.TrailingPE.Raw
		f.DividendYield = d.DividendYield.Raw
		f.Beta = d.Beta.Raw
		f.FiftyTwoWeekHigh = d.FiftyTwoWeekHigh.Raw
		f.FiftyTwoWeekLow = d.FiftyTwoWeekLow.Raw
	}
	if k := s.DefaultKeyStatistics; k != nil {
		f.PBRatio = k.PriceToBook.Raw
		f.EPS = k.TrailingEps.Raw
	}
	return f
}
