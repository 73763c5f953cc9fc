package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ashureev/stock-analyst/internal/llm"
	"github.com/ashureev/stock-analyst/internal/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompleteSendsToolsAndParsesToolCalls(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &captured))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1,
			"model": "llama-3.3-70b-versatile",
			"choices": [{
				"index": 0,
				"finish_reason": "tool_calls",
				"message": {
					"role": "assistant",
					"content": "",
					"tool_calls": [{
						"id": "call_1",
						"type": "function",
						"function": {"name": "get_current_stock_price", "arguments": "{\"symbol\":\"META\"}"}
					}]
				}
			}]
		}`)
	}))
	defer srv.Close()

	c := NewClient("test-key", srv.URL)
	defs := []tools.Definition{{
		Name:        "get_current_stock_price",
		Description: "price",
		Parameters:  map[string]any{"type": "object"},
	}}
	msg, err := c.Complete(context.Background(), "llama-3.3-70b-versatile", []llm.Message{
		{Role: llm.RoleSystem, Content: "sys"},
		{Role: llm.RoleUser, Content: "META?"},
	}, defs)
	require.NoError(t, err)

	assert.Equal(t, llm.RoleAssistant, msg.Role)
	require.Len(t, msg.ToolCalls, 1)
	assert.Equal(t, "call_1", msg.ToolCalls[0].ID)
	assert.Equal(t, "get_current_stock_price", msg.ToolCalls[0].Name)
	assert.JSONEq(t, `{"symbol":"META"}`, msg.ToolCalls[0].Arguments)

	assert.Equal(t, "llama-3.3-70b-versatile", captured["model"])
	assert.Equal(t, "auto", captured["tool_choice"])
	toolsSent, ok := captured["tools"].([]any)
	require.True(t, ok)
	assert.Len(t, toolsSent, 1)
}

func TestCompleteWithoutChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"x","object":"chat.completion","created":1,"model":"m","choices":[]}`)
	}))
	defer srv.Close()

	_, err := NewClient("k", srv.URL).Complete(context.Background(), "m", []llm.Message{{Role: llm.RoleUser, Content: "hi"}}, nil)
	assert.ErrorIs(t, err, ErrNoChoices)
}

func TestCompleteAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":{"message":"Invalid API Key","type":"invalid_request_error"}}`)
	}))
	defer srv.Close()

	_, err := NewClient("bad", srv.URL).Complete(context.Background(), "m", []llm.Message{{Role: llm.RoleUser, Content: "hi"}}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid API Key")
}

func TestMessageRoundTripKeepsToolFields(t *testing.T) {
	in := llm.Message{
		Role:      llm.RoleAssistant,
		ToolCalls: []llm.ToolCall{{ID: "c1", Name: "duckduckgo_search", Arguments: `{"query":"nvda"}`}},
	}
	out := fromOpenAI(toOpenAI(in))
	assert.Equal(t, in, out)

	tool := toOpenAI(llm.Message{Role: llm.RoleTool, Content: "[]", ToolCallID: "c1", Name: "duckduckgo_search"})
	assert.Equal(t, "c1", tool.ToolCallID)
	assert.Equal(t, "duckduckgo_search", tool.Name)
}
