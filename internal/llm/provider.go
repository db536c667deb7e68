// Package llm abstracts the tool-calling language-model provider used by the
// resource wizard. The wizard only depends on the Provider interface; the
// concrete client speaks the OpenAI chat-completions protocol, which most
// hosted providers accept.
package llm

import (
	"context"
)

// Message is one chat turn sent to or received from the model.
type Message struct {
	Role       string     `json:"role"` // system, user, assistant, tool
	Content    string     `json:"content"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
}

// ToolCall is a tool invocation requested by the model. Arguments are decoded
// from the provider's JSON but remain untrusted until the executor validates
// them.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// Usage reports token consumption for one call.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatRequest is a completion request: messages plus an optional fixed set of
// tool definitions in OpenAI function format.
type ChatRequest struct {
	Model       string
	Messages    []Message
	Tools       []map[string]any
	MaxTokens   int
	Temperature float64
}

// ChatResponse is the model's reply: free text, tool calls, or both.
type ChatResponse struct {
	Content      string
	ToolCalls    []ToolCall
	FinishReason string
	Usage        Usage
}

// Provider is a tool-calling language-model client.
type Provider interface {
	// Chat sends a completion request and returns the model's reply.
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
}
