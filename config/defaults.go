package config

import "time"

const (
	DefaultProvider            = "openai"
	DefaultBaseURL             = "https://dashscope.aliyuncs.com/compatible-mode/v1"
	DefaultModel               = "qwen-plus"
	DefaultAPIKeyEnv           = "DASHSCOPE_API_KEY"
	DefaultMaxTokens           = 4096
	DefaultTemperature         = 1.0
	DefaultContextWindowTokens = 180000
	DefaultMaxIterations       = 10
	DefaultToolTimeout         = 60 * time.Second
	DefaultConnectTimeout      = 30 * time.Second
	DefaultSystemPrompt        = "You are a helpful assistant."
)

func Default() *Config {
	return &Config{
		Agent: AgentConfig{
			Name:          "agent",
			SystemPrompt:  DefaultSystemPrompt,
			MaxIterations: DefaultMaxIterations,
			ParallelTools: true,
			ToolTimeout:   Duration{DefaultToolTimeout},
		},
		Model: ModelConfig{
			Provider:            DefaultProvider,
			BaseURL:             DefaultBaseURL,
			Name:                DefaultModel,
			APIKeyEnv:           DefaultAPIKeyEnv,
			MaxTokens:           DefaultMaxTokens,
			Temperature:         DefaultTemperature,
			ContextWindowTokens: DefaultContextWindowTokens,
		},
		MCP: MCPConfig{
			ConnectTimeout: Duration{DefaultConnectTimeout},
			CallTimeout:    Duration{DefaultToolTimeout},
		},
		Storage: StorageConfig{
			DataDirectory: GetDefaultDataDir(),
		},
	}
}

// fillDefaults restores defaults for fields a config file explicitly zeroed.
func (c *Config) fillDefaults() {
	if c.Agent.MaxIterations <= 0 {
		c.Agent.MaxIterations = DefaultMaxIterations
	}
	if c.Model.Provider == "" {
		c.Model.Provider = DefaultProvider
	}
	if c.Model.MaxTokens <= 0 {
		c.Model.MaxTokens = DefaultMaxTokens
	}
	if c.Storage.DataDirectory == "" {
		c.Storage.DataDirectory = GetDefaultDataDir()
	}
}

func GenerateConfigTemplate() string {
	return `# agentflow configuration
# Location: ~/.config/agentflow/config.toml
# This file uses TOML format: https://toml.io

[agent]
name = "agent"
system_prompt = "You are a helpful assistant."

# Upper bound on model round-trips per run
max_iterations = 10

# Optional wall-clock limit per run ("0s" disables it)
run_timeout = "0s"

# Run the tool calls of one model turn concurrently
parallel_tools = true
tool_timeout = "60s"

[model]
# openai (any OpenAI-compatible endpoint), anthropic or ollama
provider = "openai"
base_url = "https://dashscope.aliyuncs.com/compatible-mode/v1"
name = "qwen-plus"

# Name of the environment variable holding the API key
api_key_env = "DASHSCOPE_API_KEY"

max_tokens = 4096
temperature = 1.0
context_window_tokens = 180000

[mcp]
# Fail the run when any server cannot be reached
strict = false
connect_timeout = "30s"
call_timeout = "60s"

# Local server over stdio:
# [[mcp.servers]]
# name = "fetch"
# command = "uvx"
# args = ["mcp-server-fetch"]
#
# Remote server:
# [[mcp.servers]]
# name = "search"
# url = "https://example.com/mcp"
# transport = "streamable-http"   # or "sse"
# headers = { Authorization = "Bearer ..." }

[storage]
data_directory = "~/.local/share/agentflow"
`
}
