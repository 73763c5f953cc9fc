// Package llm defines the provider-neutral chat types used by the agent runtime.
package llm

import (
	"context"

	"github.com/ashureev/stock-analyst/internal/tools"
)

// Chat roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ToolCall is a function call requested by the model.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Message is a single chat message.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Name       string     `json:"name,omitempty"`
}

// Provider is a hosted chat-completion model.
type Provider interface {
	// Complete sends the conversation and returns the model's next message.
	// defs may be empty, in which case the model cannot call tools.
	Complete(ctx context.Context, model string, messages []Message, defs []tools.Definition) (Message, error)
}
