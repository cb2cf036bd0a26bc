package agent

import (
	globalconfig "agentflow/config"
	"agentflow/mcp"
	"agentflow/model"
	"agentflow/tools"
)

// ConfigFrom maps the [agent] and [model] sections to a loop Config.
func ConfigFrom(cfg *globalconfig.Config) Config {
	temperature := cfg.Model.Temperature
	return Config{
		Name:                cfg.Agent.Name,
		SystemPrompt:        cfg.Agent.SystemPrompt,
		MaxIterations:       cfg.Agent.MaxIterations,
		RunTimeout:          cfg.Agent.RunTimeout.Duration,
		MaxTokens:           cfg.Model.MaxTokens,
		Temperature:         &temperature,
		ContextWindowTokens: cfg.Model.ContextWindowTokens,
	}
}

// FromConfig builds an agent with the executor and MCP servers described by
// cfg. Options are applied after the configured ones and may override them.
func FromConfig(cfg *globalconfig.Config, p model.Provider, opts ...Option) (*Agent, error) {
	executor := tools.NewExecutor(cfg.Agent.ToolTimeout.Duration)
	executor.Parallel = cfg.Agent.ParallelTools

	base := []Option{WithExecutor(executor)}
	if len(cfg.MCP.Servers) > 0 {
		base = append(base, WithServers(mcp.NewConnector(cfg.MCP), cfg.MCP.Servers...))
	}
	return New(ConfigFrom(cfg), p, append(base, opts...)...)
}
