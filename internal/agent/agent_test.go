package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/ashureev/stock-analyst/internal/llm"
	"github.com/ashureev/stock-analyst/internal/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedProvider replays canned model messages and records what it was sent.
type scriptedProvider struct {
	mu      sync.Mutex
	replies []llm.Message
	err     error
	calls   [][]llm.Message
	defs    [][]tools.Definition
}

func (p *scriptedProvider) Complete(_ context.Context, _ string, messages []llm.Message, defs []tools.Definition) (llm.Message, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, append([]llm.Message(nil), messages...))
	p.defs = append(p.defs, defs)
	if p.err != nil {
		return llm.Message{}, p.err
	}
	if len(p.replies) == 0 {
		return llm.Message{}, errors.New("script exhausted")
	}
	msg := p.replies[0]
	p.replies = p.replies[1:]
	return msg, nil
}

type echoTool struct {
	name string
	err  error
}

func (e echoTool) Definition() tools.Definition {
	return tools.Definition{Name: e.name, Description: "echo", Parameters: map[string]any{"type": "object"}}
}

func (e echoTool) Execute(_ context.Context, argsJSON string) (string, error) {
	if e.err != nil {
		return "", e.err
	}
	return "echo:" + argsJSON, nil
}

func toolCall(id, name, args string) llm.Message {
	return llm.Message{Role: llm.RoleAssistant, ToolCalls: []llm.ToolCall{{ID: id, Name: name, Arguments: args}}}
}

func TestNewValidatesConfig(t *testing.T) {
	p := &scriptedProvider{}
	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing provider", Config{Model: "m"}},
		{"missing model", Config{Provider: p}},
		{"negative turns", Config{Provider: p, Model: "m", MaxTurns: -1}},
		{"invalid tool", Config{Provider: p, Model: "m", Tools: []tools.Tool{echoTool{name: ""}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			assert.Error(t, err)
		})
	}
}

func TestSystemPrompt(t *testing.T) {
	a, err := New(Config{
		Provider:     &scriptedProvider{},
		Model:        "m",
		Instructions: []string{"Use the table to display the data", "  ", "Present data in a clear, structured format"},
		Markdown:     true,
	})
	require.NoError(t, err)

	want := "## Instructions\n" +
		"- Use the table to display the data\n" +
		"- Present data in a clear, structured format\n" +
		"- Use markdown to format your answers."
	assert.Equal(t, want, a.SystemPrompt())

	bare, err := New(Config{Provider: &scriptedProvider{}, Model: "m"})
	require.NoError(t, err)
	assert.Empty(t, bare.SystemPrompt())
}

func TestRunWithoutTools(t *testing.T) {
	p := &scriptedProvider{replies: []llm.Message{{Role: llm.RoleAssistant, Content: "META is up."}}}
	a, err := New(Config{Provider: p, Model: "m", Instructions: []string{"be brief"}})
	require.NoError(t, err)

	resp, err := a.Run(context.Background(), "How is META?")
	require.NoError(t, err)

	content, ok := resp.ResponseContent()
	assert.True(t, ok)
	assert.Equal(t, "META is up.", content)
	assert.Equal(t, 1, resp.Turns)
	assert.NotEmpty(t, resp.RunID)
	require.Len(t, resp.Messages, 3)
	assert.Equal(t, llm.RoleSystem, resp.Messages[0].Role)
	assert.Equal(t, "How is META?", resp.Messages[1].Content)
	assert.Len(t, p.calls, 1)
}

func TestRunExecutesToolCalls(t *testing.T) {
	p := &scriptedProvider{replies: []llm.Message{
		toolCall("c1", "get_current_stock_price", `{"symbol":"META"}`),
		{Role: llm.RoleAssistant, Content: "| Symbol | Price |"},
	}}
	a, err := New(Config{
		Provider:      p,
		Model:         "m",
		Tools:         []tools.Tool{echoTool{name: "get_current_stock_price"}},
		ShowToolCalls: true,
	})
	require.NoError(t, err)

	resp, err := a.Run(context.Background(), "price of META")
	require.NoError(t, err)

	assert.True(t, resp.Completed)
	assert.Equal(t, " - Running: get_current_stock_price(symbol=META)\n\n| Symbol | Price |", resp.Content)
	assert.Equal(t, 2, resp.Turns)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, `echo:{"symbol":"META"}`, resp.ToolCalls[0].Result)

	// The second model call sees the tool result.
	require.Len(t, p.calls, 2)
	last := p.calls[1][len(p.calls[1])-1]
	assert.Equal(t, llm.RoleTool, last.Role)
	assert.Equal(t, "c1", last.ToolCallID)
	assert.Equal(t, `echo:{"symbol":"META"}`, last.Content)
	require.Len(t, p.defs[0], 1)
	assert.Equal(t, "get_current_stock_price", p.defs[0][0].Name)
}

func TestRunHidesToolCallsWhenDisabled(t *testing.T) {
	p := &scriptedProvider{replies: []llm.Message{
		toolCall("c1", "t", `{}`),
		{Role: llm.RoleAssistant, Content: "done"},
	}}
	a, err := New(Config{Provider: p, Model: "m", Tools: []tools.Tool{echoTool{name: "t"}}})
	require.NoError(t, err)

	resp, err := a.Run(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, "done", resp.Content)
}

func TestRunReportsToolFailuresToModel(t *testing.T) {
	p := &scriptedProvider{replies: []llm.Message{
		{Role: llm.RoleAssistant, ToolCalls: []llm.ToolCall{
			{ID: "c1", Name: "broken", Arguments: `{}`},
			{ID: "c2", Name: "missing", Arguments: `{}`},
		}},
		{Role: llm.RoleAssistant, Content: "Sorry, data unavailable."},
	}}
	a, err := New(Config{Provider: p, Model: "m", Tools: []tools.Tool{echoTool{name: "broken", err: errors.New("upstream 503")}}})
	require.NoError(t, err)

	resp, err := a.Run(context.Background(), "q")
	require.NoError(t, err)
	assert.True(t, resp.Completed)

	require.Len(t, resp.ToolCalls, 2)
	assert.Equal(t, "upstream 503", resp.ToolCalls[0].Error)
	assert.Contains(t, resp.ToolCalls[1].Error, "not found")

	sent := p.calls[1]
	assert.Equal(t, "Error: upstream 503", sent[len(sent)-2].Content)
	assert.True(t, strings.HasPrefix(sent[len(sent)-1].Content, "Error: "))
}

func TestRunStopsAtTurnLimit(t *testing.T) {
	p := &scriptedProvider{replies: []llm.Message{
		{Role: llm.RoleAssistant, Content: "Let me check.", ToolCalls: []llm.ToolCall{{ID: "1", Name: "t", Arguments: `{}`}}},
		toolCall("2", "t", `{}`),
	}}
	a, err := New(Config{Provider: p, Model: "m", MaxTurns: 2, Tools: []tools.Tool{echoTool{name: "t"}}})
	require.NoError(t, err)

	resp, err := a.Run(context.Background(), "q")
	require.NoError(t, err)

	_, ok := resp.ResponseContent()
	assert.False(t, ok)
	assert.Equal(t, 2, resp.Turns)
	assert.Len(t, p.calls, 2)
}

func TestRunWrapsProviderErrorWithStack(t *testing.T) {
	cause := errors.New("401 invalid api key")
	a, err := New(Config{Provider: &scriptedProvider{err: cause}, Model: "m"})
	require.NoError(t, err)

	resp, err := a.Run(context.Background(), "q")
	assert.Nil(t, resp)
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "401 invalid api key")
	assert.Contains(t, fmt.Sprintf("%+v", err), "agent.(*Agent).Run")
}

func TestFormatToolCall(t *testing.T) {
	tests := []struct {
		name, args, want string
	}{
		{"get_current_stock_price", `{"symbol":"META"}`, "get_current_stock_price(symbol=META)"},
		{"duckduckgo_search", `{"query":"nvda","max_results":3}`, "duckduckgo_search(max_results=3, query=nvda)"},
		{"noop", ``, "noop()"},
		{"noop", `{}`, "noop()"},
		{"odd", `not json`, "odd(not json)"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatToolCall(tt.name, tt.args))
	}
}

func TestRunResponseString(t *testing.T) {
	r := &RunResponse{RunID: "r1", Model: "m", Content: "hi", Completed: true}
	s := r.String()
	assert.Contains(t, s, `"run_id": "r1"`)
	assert.Contains(t, s, `"content": "hi"`)
}
