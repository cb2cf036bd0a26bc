package provider

import (
	"fmt"

	"agentflow/config"
	"agentflow/model"
)

// FromConfig creates the provider described by the [model] section of the
// application configuration. The API key is read from the environment
// variable named by api_key_env; Ollama needs none.
func FromConfig(cfg *config.Config) (model.Provider, error) {
	providerType := MapProviderIDToType(cfg.Model.Provider)

	p, err := NewProvider(Config{
		Type:    providerType,
		BaseURL: cfg.Model.BaseURL,
		Model:   cfg.Model.Name,
		APIKey:  cfg.APIKey(),
	})
	if err != nil {
		if providerType != ProviderTypeOllama && cfg.APIKey() == "" {
			return nil, fmt.Errorf("failed to initialize provider %s (is %s set?): %w", cfg.Model.Provider, cfg.Model.APIKeyEnv, err)
		}
		return nil, fmt.Errorf("failed to initialize provider %s: %w", cfg.Model.Provider, err)
	}

	if config.DebugLog != nil {
		config.DebugLog.Printf("[Provider] Initialized provider: %s (type: %s, model: %s)", cfg.Model.Provider, providerType, p.GetModel())
	}
	return p, nil
}
