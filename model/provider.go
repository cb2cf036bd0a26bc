package model

import (
	"context"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
)

// Provider abstracts completion services (OpenAI-compatible, Anthropic,
// Ollama) using provider-agnostic types from the model layer.
//
// The interface lives in the model package (not provider) so that the agent,
// workflow and provider packages can all depend on it without import cycles.
type Provider interface {
	// Chat performs one synchronous completion. A transport, auth or quota
	// failure is returned as an error; the caller decides whether to retry.
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)

	// GetModel returns the currently selected model name.
	GetModel() string

	// SetModel changes the active model.
	SetModel(model string)

	// Ping checks if the provider is reachable.
	Ping(ctx context.Context) error
}

// ChatRequest is everything a completion call needs besides the model name.
type ChatRequest struct {
	Messages    []Message
	Tools       []mcptypes.Tool
	MaxTokens   int
	Temperature *float64
}

// ChatResponse is one assistant turn. An empty ToolCalls slice means the
// content is the final answer.
type ChatResponse struct {
	Content      string
	ToolCalls    []ToolCall
	Usage        Usage
	FinishReason string
}

// HasToolCalls reports whether the model asked for tool execution.
func (r *ChatResponse) HasToolCalls() bool {
	return r != nil && len(r.ToolCalls) > 0
}
