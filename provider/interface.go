// Package provider adapts completion services to model.Provider.
//
// agentflow talks to several LLM backends (OpenAI-compatible endpoints such
// as DashScope and OpenRouter, Anthropic, local Ollama) through a single
// synchronous interface. The agent loop and the workflows never see a
// provider-specific type.
//
// # Type Conversions
//
// Each adapter translates in both directions:
//   - model.Message (with ToolCalls / ToolCallID) to the provider's message
//     format, including tool results
//   - mcptypes.Tool definitions to the provider's tool format (see the
//     converters in package mcp)
//   - the provider's response back to model.ChatResponse with tool calls,
//     usage and finish reason
//
// # Retries
//
// Adapters disable SDK-level retries. A failed completion surfaces as an
// error on the first attempt and the caller decides what to do.
//
// # Usage
//
//	p, err := provider.NewProvider(provider.Config{
//	    Type:    provider.ProviderTypeOpenAI,
//	    BaseURL: "https://dashscope.aliyuncs.com/compatible-mode/v1",
//	    Model:   "qwen-plus",
//	    APIKey:  os.Getenv("DASHSCOPE_API_KEY"),
//	})
//	resp, err := p.Chat(ctx, model.ChatRequest{Messages: msgs})
package provider

// Note: The Provider interface is defined in the model package
// (model/provider.go) to avoid import cycles. This package implements it.

// ProviderType identifies the provider implementation.
type ProviderType string

const (
	ProviderTypeOllama     ProviderType = "ollama"
	ProviderTypeOpenRouter ProviderType = "openrouter"
	ProviderTypeOpenAI     ProviderType = "openai"
	ProviderTypeAnthropic  ProviderType = "anthropic"
)

// Config holds provider-specific configuration.
type Config struct {
	Type    ProviderType
	BaseURL string
	Model   string
	APIKey  string // For OpenAI/Anthropic (unused for Ollama)
}
