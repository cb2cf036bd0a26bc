package provider

import (
	"testing"

	"agentflow/config"
	"agentflow/model"
)

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name        string
		config      Config
		expectError bool
		expectType  string
	}{
		{
			name:       "ollama provider with defaults",
			config:     Config{Type: ProviderTypeOllama},
			expectType: "*provider.OllamaProvider",
		},
		{
			name: "ollama provider with custom config",
			config: Config{
				Type:    ProviderTypeOllama,
				BaseURL: "http://localhost:11434",
				Model:   "qwen2.5",
			},
			expectType: "*provider.OllamaProvider",
		},
		{
			name: "openai provider",
			config: Config{
				Type:    ProviderTypeOpenAI,
				BaseURL: "https://dashscope.aliyuncs.com/compatible-mode/v1",
				Model:   "qwen-plus",
				APIKey:  "test-key",
			},
			expectType: "*provider.OpenAIProvider",
		},
		{
			name: "openrouter uses the openai adapter",
			config: Config{
				Type:   ProviderTypeOpenRouter,
				Model:  "qwen/qwen3-coder",
				APIKey: "test-key",
			},
			expectType: "*provider.OpenAIProvider",
		},
		{
			name: "anthropic provider",
			config: Config{
				Type:   ProviderTypeAnthropic,
				Model:  "claude-sonnet-4-5-20250929",
				APIKey: "test-key",
			},
			expectType: "*provider.AnthropicProvider",
		},
		{
			name:        "openai without key",
			config:      Config{Type: ProviderTypeOpenAI},
			expectError: true,
		},
		{
			name:        "anthropic without key",
			config:      Config{Type: ProviderTypeAnthropic},
			expectError: true,
		},
		{
			name:        "unknown provider type",
			config:      Config{Type: ProviderType("unknown"), BaseURL: "http://localhost", Model: "test"},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProvider(tt.config)

			if tt.expectError {
				if err == nil {
					t.Error("expected error, got nil")
				}
				if p != nil {
					t.Error("expected nil provider, got non-nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			var _ model.Provider = p
			if got := typeName(p); got != tt.expectType {
				t.Errorf("expected %s, got %s", tt.expectType, got)
			}
		})
	}
}

func typeName(p model.Provider) string {
	switch p.(type) {
	case *OllamaProvider:
		return "*provider.OllamaProvider"
	case *OpenAIProvider:
		return "*provider.OpenAIProvider"
	case *AnthropicProvider:
		return "*provider.AnthropicProvider"
	default:
		return "unknown"
	}
}

func TestOpenRouterDefaultBaseURL(t *testing.T) {
	p, err := NewProvider(Config{Type: ProviderTypeOpenRouter, APIKey: "k"})
	if err != nil {
		t.Fatal(err)
	}
	if got := p.(*OpenAIProvider).baseURL; got != openRouterBaseURL {
		t.Errorf("baseURL = %q, want %q", got, openRouterBaseURL)
	}
}

func TestMapProviderIDToType(t *testing.T) {
	tests := map[string]ProviderType{
		"ollama":     ProviderTypeOllama,
		"openrouter": ProviderTypeOpenRouter,
		"openai":     ProviderTypeOpenAI,
		"dashscope":  ProviderTypeOpenAI,
		"anthropic":  ProviderTypeAnthropic,
		"mystery":    ProviderType("mystery"),
	}
	for id, want := range tests {
		if got := MapProviderIDToType(id); got != want {
			t.Errorf("MapProviderIDToType(%q) = %q, want %q", id, got, want)
		}
	}
}

func TestFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Model.APIKeyEnv = "AGENTFLOW_TEST_KEY_FROM_CONFIG"

	t.Setenv(cfg.Model.APIKeyEnv, "")
	if _, err := FromConfig(cfg); err == nil {
		t.Error("expected error without API key")
	}

	t.Setenv(cfg.Model.APIKeyEnv, "secret")
	p, err := FromConfig(cfg)
	if err != nil {
		t.Fatalf("FromConfig() error = %v", err)
	}
	if p.GetModel() != cfg.Model.Name {
		t.Errorf("model = %q, want %q", p.GetModel(), cfg.Model.Name)
	}
}
