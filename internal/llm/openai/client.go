// Package openai implements llm.Provider for OpenAI-compatible chat APIs.
// The default base URL points at Groq.
package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ashureev/stock-analyst/internal/llm"
	"github.com/ashureev/stock-analyst/internal/tools"
	openai "github.com/sashabaranov/go-openai"
)

// DefaultBaseURL is Groq's OpenAI-compatible endpoint.
const DefaultBaseURL = "https://api.groq.com/openai/v1"

// ErrNoChoices is returned when the API answers without any choice.
var ErrNoChoices = errors.New("no choices in response")

// Client talks to an OpenAI-compatible chat completions endpoint.
type Client struct {
	api *openai.Client
}

// NewClient creates a client. An empty baseURL selects DefaultBaseURL.
func NewClient(apiKey, baseURL string) *Client {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = DefaultBaseURL
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Client{api: openai.NewClientWithConfig(cfg)}
}

var _ llm.Provider = (*Client)(nil)

// Complete implements llm.Provider.
func (c *Client) Complete(ctx context.Context, model string, messages []llm.Message, defs []tools.Definition) (llm.Message, error) {
	start := time.Now()

	req := openai.ChatCompletionRequest{
		Model:    model,
		Messages: make([]openai.ChatCompletionMessage, len(messages)),
	}
	for i, m := range messages {
		req.Messages[i] = toOpenAI(m)
	}
	if len(defs) > 0 {
		req.Tools = convertTools(defs)
		req.ToolChoice = "auto"
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		slog.Error("LLM request failed",
			"model", model,
			"error", err,
			"duration_ms", time.Since(start).Milliseconds())
		return llm.Message{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return llm.Message{}, ErrNoChoices
	}

	out := fromOpenAI(resp.Choices[0].Message)
	slog.Debug("LLM response received",
		"model", model,
		"tool_calls", len(out.ToolCalls),
		"content_length", len(out.Content),
		"duration_ms", time.Since(start).Milliseconds())
	return out, nil
}

func toOpenAI(m llm.Message) openai.ChatCompletionMessage {
	msg := openai.ChatCompletionMessage{
		Role:       m.Role,
		Content:    m.Content,
		ToolCallID: m.ToolCallID,
		Name:       m.Name,
	}
	for _, tc := range m.ToolCalls {
		msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
			ID:   tc.ID,
			Type: openai.ToolTypeFunction,
			Function: openai.FunctionCall{
				Name:      tc.Name,
				Arguments: tc.Arguments,
			},
		})
	}
	return msg
}

func fromOpenAI(m openai.ChatCompletionMessage) llm.Message {
	msg := llm.Message{
		Role:    m.Role,
		Content: m.Content,
	}
	if msg.Role == "" {
		msg.Role = llm.RoleAssistant
	}
	for _, tc := range m.ToolCalls {
		msg.ToolCalls = append(msg.ToolCalls, llm.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return msg
}

func convertTools(defs []tools.Definition) []openai.Tool {
	out := make([]openai.Tool, len(defs))
	for i, d := range defs {
		out[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  d.Parameters,
			},
		}
	}
	return out
}
