package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/baalimago/go_away_boilerplate/pkg/misc"
)

// Duration wraps time.Duration so TOML files can use Go duration strings ("30s").
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

type AgentConfig struct {
	Name          string   `toml:"name"`
	SystemPrompt  string   `toml:"system_prompt"`
	MaxIterations int      `toml:"max_iterations"`
	RunTimeout    Duration `toml:"run_timeout"`
	ParallelTools bool     `toml:"parallel_tools"`
	ToolTimeout   Duration `toml:"tool_timeout"`
}

type ModelConfig struct {
	Provider            string  `toml:"provider"`
	BaseURL             string  `toml:"base_url"`
	Name                string  `toml:"name"`
	APIKeyEnv           string  `toml:"api_key_env"`
	MaxTokens           int     `toml:"max_tokens"`
	Temperature         float64 `toml:"temperature"`
	ContextWindowTokens int     `toml:"context_window_tokens"`
}

// ServerConfig describes one MCP tool provider. Either Command (stdio) or
// URL (sse / streamable-http) must be set.
type ServerConfig struct {
	Name      string            `toml:"name"`
	Command   string            `toml:"command,omitempty"`
	Args      []string          `toml:"args,omitempty"`
	Env       map[string]string `toml:"env,omitempty"`
	URL       string            `toml:"url,omitempty"`
	Transport string            `toml:"transport,omitempty"`
	Headers   map[string]string `toml:"headers,omitempty"`
	Namespace bool              `toml:"namespace,omitempty"`
}

type MCPConfig struct {
	Strict         bool           `toml:"strict"`
	ConnectTimeout Duration       `toml:"connect_timeout"`
	CallTimeout    Duration       `toml:"call_timeout"`
	Servers        []ServerConfig `toml:"servers"`
}

type StorageConfig struct {
	DataDirectory string `toml:"data_directory"`
}

type Config struct {
	Agent   AgentConfig   `toml:"agent"`
	Model   ModelConfig   `toml:"model"`
	MCP     MCPConfig     `toml:"mcp"`
	Storage StorageConfig `toml:"storage"`
}

var Debug = false
var DebugLog *log.Logger

func (c *Config) DataDir() string {
	return ExpandPath(c.Storage.DataDirectory)
}

// APIKey resolves the provider key from the configured environment variable.
func (c *Config) APIKey() string {
	if c.Model.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.Model.APIKeyEnv)
}

func (c *Config) applyEnvOverrides() {
	if p := os.Getenv("AGENTFLOW_PROVIDER"); p != "" {
		c.Model.Provider = p
	}
	if url := os.Getenv("AGENTFLOW_BASE_URL"); url != "" {
		c.Model.BaseURL = url
	}
	if model := os.Getenv("AGENTFLOW_MODEL"); model != "" {
		c.Model.Name = model
	}
	if dataDir := os.Getenv("AGENTFLOW_DATA_DIR"); dataDir != "" {
		c.Storage.DataDirectory = dataDir
	}
}

// Validate reports configuration that would only fail later at run time.
func (c *Config) Validate() error {
	if c.Model.Name == "" {
		return fmt.Errorf("model.name is required")
	}
	if c.Model.ContextWindowTokens <= 0 {
		return fmt.Errorf("model.context_window_tokens must be positive, got %d", c.Model.ContextWindowTokens)
	}
	seen := make(map[string]bool, len(c.MCP.Servers))
	for i, s := range c.MCP.Servers {
		if s.Name == "" {
			return fmt.Errorf("mcp.servers[%d]: name is required", i)
		}
		if seen[s.Name] {
			return fmt.Errorf("mcp.servers[%d]: duplicate server name %q", i, s.Name)
		}
		seen[s.Name] = true
		if s.Command == "" && s.URL == "" {
			return fmt.Errorf("mcp server %q: one of command or url is required", s.Name)
		}
		if s.Command != "" && s.URL != "" {
			return fmt.Errorf("mcp server %q: command and url are mutually exclusive", s.Name)
		}
	}
	return nil
}

func CheckDebug() bool {
	return misc.Truthy(os.Getenv("AGENTFLOW_DEBUG"))
}

func InitDebugLog(dataDir string) {
	if !CheckDebug() {
		return
	}

	Debug = true
	logPath := filepath.Join(dataDir, "debug.log")

	// 0600: prompts and tool output end up in here
	f, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not open debug log at %s: %v\n", logPath, err)
		return
	}

	DebugLog = log.New(f, "", log.Ldate|log.Ltime|log.Lmicroseconds|log.Lshortfile)
	DebugLog.Printf("=== Debug logging started (AGENTFLOW_DEBUG=%s) ===", os.Getenv("AGENTFLOW_DEBUG"))
	DebugLog.Printf("Log path: %s", logPath)
}

// InitStderrLog points DebugLog at stderr, used by --verbose.
func InitStderrLog() {
	Debug = true
	DebugLog = log.New(os.Stderr, "", log.Ltime|log.Lmicroseconds)
}

// Load reads the config file at path (or the default location when path is
// empty), fills unset fields from defaults and applies environment overrides.
// A missing default config file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = GetConfigFilePath()
	}

	switch {
	case FileExists(path):
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
		}
	case explicit:
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	cfg.applyEnvOverrides()
	cfg.fillDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	dataDir := cfg.DataDir()
	if err := EnsureDataDirPermissions(dataDir); err != nil {
		return nil, fmt.Errorf("failed to prepare data directory: %w", err)
	}

	return cfg, nil
}
