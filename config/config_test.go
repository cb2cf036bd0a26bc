package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/baalimago/go_away_boilerplate/pkg/testboil"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	dataDir := filepath.Join(t.TempDir(), "data")

	tests := []struct {
		name     string
		body     string
		env      map[string]string
		wantErr  bool
		validate func(t *testing.T, cfg *Config)
	}{
		{
			name: "defaults fill unset fields",
			body: `
[storage]
data_directory = "` + dataDir + `"
`,
			validate: func(t *testing.T, cfg *Config) {
				testboil.FailTestIfDiff(t, cfg.Model.Name, DefaultModel)
				testboil.FailTestIfDiff(t, cfg.Model.BaseURL, DefaultBaseURL)
				testboil.FailTestIfDiff(t, cfg.Model.ContextWindowTokens, DefaultContextWindowTokens)
				testboil.FailTestIfDiff(t, cfg.Agent.MaxIterations, DefaultMaxIterations)
				testboil.FailTestIfDiff(t, cfg.Agent.ParallelTools, true)
				testboil.FailTestIfDiff(t, cfg.MCP.ConnectTimeout.Duration, DefaultConnectTimeout)
			},
		},
		{
			name: "servers and durations decode",
			body: `
[agent]
max_iterations = 3
tool_timeout = "5s"
parallel_tools = false

[mcp]
strict = true
connect_timeout = "2s"

[[mcp.servers]]
name = "fetch"
command = "uvx"
args = ["mcp-server-fetch"]

[[mcp.servers]]
name = "search"
url = "http://localhost:9000/mcp"
transport = "streamable-http"
namespace = true

[storage]
data_directory = "` + dataDir + `"
`,
			validate: func(t *testing.T, cfg *Config) {
				testboil.FailTestIfDiff(t, cfg.Agent.MaxIterations, 3)
				testboil.FailTestIfDiff(t, cfg.Agent.ToolTimeout.Duration, 5*time.Second)
				testboil.FailTestIfDiff(t, cfg.Agent.ParallelTools, false)
				testboil.FailTestIfDiff(t, cfg.MCP.Strict, true)
				testboil.FailTestIfDiff(t, cfg.MCP.ConnectTimeout.Duration, 2*time.Second)
				testboil.FailTestIfDiff(t, len(cfg.MCP.Servers), 2)
				testboil.FailTestIfDiff(t, cfg.MCP.Servers[0].Args[0], "mcp-server-fetch")
				testboil.FailTestIfDiff(t, cfg.MCP.Servers[1].Namespace, true)
			},
		},
		{
			name: "env overrides file",
			body: `
[model]
name = "from-file"

[storage]
data_directory = "` + dataDir + `"
`,
			env: map[string]string{"AGENTFLOW_MODEL": "from-env", "AGENTFLOW_PROVIDER": "ollama"},
			validate: func(t *testing.T, cfg *Config) {
				testboil.FailTestIfDiff(t, cfg.Model.Name, "from-env")
				testboil.FailTestIfDiff(t, cfg.Model.Provider, "ollama")
			},
		},
		{
			name: "server without endpoint is rejected",
			body: `
[[mcp.servers]]
name = "broken"

[storage]
data_directory = "` + dataDir + `"
`,
			wantErr: true,
		},
		{
			name: "bad duration is rejected",
			body: `
[agent]
tool_timeout = "soon"
`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := Load(writeConfig(t, tt.body))
			if (err != nil) != tt.wantErr {
				t.Fatalf("Load() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.validate != nil {
				tt.validate(t, cfg)
			}
		})
	}
}

func TestLoadMissingExplicitPath(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err == nil {
		t.Fatal("expected error for missing explicit config path")
	}
	testboil.AssertStringContains(t, err.Error(), "config file not found")
}

func TestWriteConfigTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	written, err := WriteConfigTemplate(path)
	if err != nil {
		t.Fatalf("WriteConfigTemplate() error = %v", err)
	}
	testboil.FailTestIfDiff(t, written, true)

	// The template must round-trip through Load.
	t.Setenv("AGENTFLOW_DATA_DIR", t.TempDir())
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load(template) error = %v", err)
	}
	testboil.FailTestIfDiff(t, cfg.Model.Name, DefaultModel)

	written, err = WriteConfigTemplate(path)
	if err != nil {
		t.Fatalf("second WriteConfigTemplate() error = %v", err)
	}
	testboil.FailTestIfDiff(t, written, false)
}

func TestAPIKey(t *testing.T) {
	t.Setenv("TEST_AGENTFLOW_KEY", "sk-test")
	cfg := Default()
	cfg.Model.APIKeyEnv = "TEST_AGENTFLOW_KEY"
	testboil.FailTestIfDiff(t, cfg.APIKey(), "sk-test")

	cfg.Model.APIKeyEnv = ""
	testboil.FailTestIfDiff(t, cfg.APIKey(), "")
}
