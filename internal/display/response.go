// Package display turns agent responses and errors into what the UI shows.
package display

import (
	"fmt"

	"github.com/ashureev/stock-analyst/internal/llm"
	"github.com/samber/lo"
)

// NoContent is shown when a transcript holds no assistant text.
const NoContent = "No response content available"

// ContentResponse is a response that may carry a final answer.
type ContentResponse interface {
	ResponseContent() (string, bool)
}

// MessagesResponse is a response that carries a chat transcript.
type MessagesResponse interface {
	ResponseMessages() []llm.Message
}

// Text derives the display text from resp, trying in order: its content,
// the last non-empty assistant message, and its string form.
func Text(resp any) string {
	if c, ok := resp.(ContentResponse); ok {
		if content, ok := c.ResponseContent(); ok {
			return content
		}
	}
	if m, ok := resp.(MessagesResponse); ok {
		return lastAssistantContent(m.ResponseMessages())
	}
	return fmt.Sprint(resp)
}

func lastAssistantContent(messages []llm.Message) string {
	replies := lo.Filter(messages, func(m llm.Message, _ int) bool {
		return m.Role == llm.RoleAssistant && m.Content != ""
	})
	if len(replies) == 0 {
		return NoContent
	}
	return replies[len(replies)-1].Content
}
