package mcp

import (
	"fmt"
	"os/exec"

	globalconfig "agentflow/config"

	"github.com/mark3labs/mcp-go/client"
	mcptypes "github.com/mark3labs/mcp-go/mcp"
)

// Connection is one live MCP server connection and the catalog it reported.
type Connection struct {
	Server  globalconfig.ServerConfig
	Client  *client.Client
	Process *exec.Cmd // nil for remote and injected clients
	Tools   []mcptypes.Tool
}

// Stage names the step at which a provider failed.
type Stage string

const (
	StageConnect    Stage = "connect"
	StageInitialize Stage = "initialize"
	StageListTools  Stage = "list_tools"
)

// ProviderConnectionError reports an MCP server that could not be reached or
// enumerated. Its tools are absent from the session.
type ProviderConnectionError struct {
	Server string
	Stage  Stage
	Err    error
}

func (e *ProviderConnectionError) Error() string {
	return fmt.Sprintf("mcp server %s: %s failed: %v", e.Server, e.Stage, e.Err)
}

func (e *ProviderConnectionError) Unwrap() error {
	return e.Err
}
