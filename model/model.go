package model

import (
	"context"
	"encoding/json"
)

// Message is one role-tagged text message in a completion request. Roles
// follow chat-completion conventions (system, user, assistant).
type Message struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// ToolDefinition declaratively exposes an invocable decision shape to the
// model. Parameters is a minimal JSON Schema object.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// ToolCall is a decision invocation returned by a model provider, unified
// across vendors so the engine never branches per provider.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// Request captures the normalized completion input built by the engine: the
// standing instructions, the dialogue window and the declared decision shapes.
type Request struct {
	Instructions string           `json:"instructions"`
	Messages     []Message        `json:"messages"`
	Tools        []ToolDefinition `json:"tools,omitempty"`
}

// TokenUsage captures token statistics for a completion.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the completed model output: free text, zero or more tool calls,
// and provider metadata.
type Response struct {
	Text         string      `json:"text,omitempty"`
	ToolCalls    []ToolCall  `json:"tool_calls,omitempty"`
	FinishReason string      `json:"finish_reason,omitempty"`
	Usage        *TokenUsage `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"` // "openai", "anthropic", "mock", ...
}

// Model is the single-capability completion interface the engine drives. A
// call blocks until the provider answers or the context is cancelled; the
// engine guarantees at most one in-flight call per session.
type Model interface {
	Generate(ctx context.Context, req Request) (*Response, error)

	// Info returns information about the model implementation.
	Info() Info
}
