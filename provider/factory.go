package provider

import (
	"fmt"

	"agentflow/model"
)

const openRouterBaseURL = "https://openrouter.ai/api/v1"

// NewProvider creates a provider based on configuration.
//
// This is the centralized factory function for creating any provider type.
// It handles dispatching to the appropriate provider constructor based on
// the Config.Type field.
//
// Supported provider types:
//   - ProviderTypeOpenAI: any OpenAI-compatible endpoint (OpenAI, DashScope, vLLM)
//   - ProviderTypeOpenRouter: OpenAI-compatible, defaults to the OpenRouter URL
//   - ProviderTypeAnthropic: Anthropic Messages API
//   - ProviderTypeOllama: local Ollama server
//
// Returns an error if the provider type is unknown or the provider-specific
// constructor fails (e.g., missing API key, invalid URL).
//
// Example:
//
//	cfg := provider.Config{
//	    Type:    provider.ProviderTypeOllama,
//	    BaseURL: "http://localhost:11434",
//	    Model:   "qwen2.5",
//	}
//	p, err := provider.NewProvider(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
func NewProvider(cfg Config) (model.Provider, error) {
	switch cfg.Type {
	case ProviderTypeOllama:
		return NewOllamaProvider(cfg.BaseURL, cfg.Model)
	case ProviderTypeOpenRouter:
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = openRouterBaseURL
		}
		return NewOpenAIProvider(baseURL, cfg.APIKey, cfg.Model)
	case ProviderTypeOpenAI:
		return NewOpenAIProvider(cfg.BaseURL, cfg.APIKey, cfg.Model)
	case ProviderTypeAnthropic:
		return NewAnthropicProvider(cfg.BaseURL, cfg.APIKey, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown provider type: %s", cfg.Type)
	}
}

// MapProviderIDToType converts config provider ID to factory ProviderType.
//
// Mappings:
//   - "ollama" → ProviderTypeOllama
//   - "openrouter" → ProviderTypeOpenRouter (OpenAI-compatible)
//   - "openai", "dashscope", "qwen" → ProviderTypeOpenAI
//   - "anthropic", "claude" → ProviderTypeAnthropic
//
// For unknown IDs, returns the ID cast as ProviderType (factory will error).
func MapProviderIDToType(id string) ProviderType {
	switch id {
	case "ollama":
		return ProviderTypeOllama
	case "openrouter":
		return ProviderTypeOpenRouter
	case "openai", "dashscope", "qwen":
		return ProviderTypeOpenAI
	case "anthropic", "claude":
		return ProviderTypeAnthropic
	default:
		// Fallback: pass ID as-is (factory will return error)
		return ProviderType(id)
	}
}
