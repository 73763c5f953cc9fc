// Package analyst assembles the stock analysis agent from its embedded profile.
package analyst

import (
	_ "embed"
	"errors"
	"fmt"

	"github.com/ashureev/stock-analyst/internal/agent"
	"github.com/ashureev/stock-analyst/internal/llm"
	"github.com/ashureev/stock-analyst/internal/tools"
	"github.com/ashureev/stock-analyst/internal/tools/duckduckgo"
	"github.com/ashureev/stock-analyst/internal/tools/yfinance"
	"gopkg.in/yaml.v3"
)

// ErrNoProvider is returned when the model credentials are missing.
var ErrNoProvider = errors.New("no model provider configured: set GROQ_API_KEY")

//go:embed stock_analyst.yaml
var defaultProfile []byte

// Profile is the fixed recipe for the agent.
type Profile struct {
	Name          string   `yaml:"name"`
	Model         string   `yaml:"model"`
	ShowToolCalls bool     `yaml:"show_tool_calls"`
	Markdown      bool     `yaml:"markdown"`
	Instructions  []string `yaml:"instructions"`
	Tools         struct {
		YFinance   yfinance.Options   `yaml:"yfinance"`
		DuckDuckGo duckduckgo.Options `yaml:"duckduckgo"`
	} `yaml:"tools"`
}

// DefaultProfile parses the embedded profile.
func DefaultProfile() (Profile, error) {
	return ParseProfile(defaultProfile)
}

// ParseProfile decodes a YAML profile.
func ParseProfile(data []byte) (Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Profile{}, fmt.Errorf("parse agent profile: %w", err)
	}
	if p.Model == "" {
		return Profile{}, fmt.Errorf("agent profile: model is required")
	}
	return p, nil
}

// Factory builds agents from a profile and shared clients.
type Factory struct {
	Profile  Profile
	Provider llm.Provider
	Finance  *yfinance.Client
	Search   *duckduckgo.Client
	MaxTurns int
}

// New constructs one agent. Each session gets its own.
func (f *Factory) New() (*agent.Agent, error) {
	if f.Provider == nil {
		return nil, ErrNoProvider
	}
	var ts []tools.Tool
	ts = append(ts, yfinance.Toolkit(f.Finance, f.Profile.Tools.YFinance)...)
	ts = append(ts, duckduckgo.Toolkit(f.Search, f.Profile.Tools.DuckDuckGo)...)

	return agent.New(agent.Config{
		Name:          f.Profile.Name,
		Model:         f.Profile.Model,
		Provider:      f.Provider,
		Tools:         ts,
		Instructions:  f.Profile.Instructions,
		Markdown:      f.Profile.Markdown,
		ShowToolCalls: f.Profile.ShowToolCalls,
		MaxTurns:      f.MaxTurns,
	})
}
