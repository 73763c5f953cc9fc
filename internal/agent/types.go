// Package agent implements the tool-calling agent runtime: a model, a fixed
// toolset and a list of instructions, driven synchronously per query.
package agent

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ashureev/stock-analyst/internal/llm"
	"github.com/ashureev/stock-analyst/internal/tools"
)

// DefaultMaxTurns bounds the number of model calls in a single run.
const DefaultMaxTurns = 10

// Config describes how an agent is built.
type Config struct {
	Name          string
	Model         string
	Provider      llm.Provider
	Tools         []tools.Tool
	Instructions  []string
	Markdown      bool
	ShowToolCalls bool
	MaxTurns      int
}

// ToolExecution records one tool call made during a run.
type ToolExecution struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Arguments  string `json:"arguments"`
	Result     string `json:"result,omitempty"`
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

// RunResponse is the outcome of a single Run.
type RunResponse struct {
	RunID     string          `json:"run_id"`
	Agent     string          `json:"agent,omitempty"`
	Model     string          `json:"model"`
	Content   string          `json:"content"`
	Completed bool            `json:"completed"`
	Messages  []llm.Message   `json:"messages"`
	ToolCalls []ToolExecution `json:"tool_calls,omitempty"`
	Turns     int             `json:"turns"`
	CreatedAt time.Time       `json:"created_at"`
}

// ResponseContent returns the final answer. ok is false when the run ended
// without one, e.g. after exhausting its turn budget.
func (r *RunResponse) ResponseContent() (string, bool) {
	return r.Content, r.Completed
}

// ResponseMessages returns the full run transcript.
func (r *RunResponse) ResponseMessages() []llm.Message {
	return r.Messages
}

// String renders the response for debugging.
func (r *RunResponse) String() string {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Sprintf("%+v", *r)
	}
	return string(b)
}
