package mcp

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	globalconfig "agentflow/config"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	mcptypes "github.com/mark3labs/mcp-go/mcp"
)

const (
	clientName      = "agentflow"
	clientVersion   = "1.0.0"
	protocolVersion = "2025-06-18"

	closeTimeout = 1 * time.Second
)

func initializeRequest() mcptypes.InitializeRequest {
	return mcptypes.InitializeRequest{
		Params: mcptypes.InitializeParams{
			ProtocolVersion: protocolVersion,
			Capabilities:    mcptypes.ClientCapabilities{},
			ClientInfo: mcptypes.Implementation{
				Name:    clientName,
				Version: clientVersion,
			},
		},
	}
}

// dialServer creates and starts a client for server. Local servers are
// spawned over stdio; remote ones use SSE or streamable HTTP.
func dialServer(ctx context.Context, server globalconfig.ServerConfig) (*client.Client, *exec.Cmd, error) {
	switch {
	case server.URL != "":
		c, err := createRemoteClient(ctx, server)
		return c, nil, err
	case server.Command != "":
		return createLocalClient(server)
	default:
		return nil, nil, fmt.Errorf("server %s has neither command nor url", server.Name)
	}
}

// createRemoteClient creates an MCP client for remote servers
func createRemoteClient(ctx context.Context, server globalconfig.ServerConfig) (*client.Client, error) {
	// Default to SSE if transport not specified
	kind := server.Transport
	if kind == "" {
		kind = "sse"
	}

	var mcpClient *client.Client
	var err error

	switch kind {
	case "streamable-http", "http":
		var opts []transport.StreamableHTTPCOption
		if len(server.Headers) > 0 {
			opts = append(opts, transport.WithHTTPHeaders(server.Headers))
		}
		mcpClient, err = client.NewStreamableHttpClient(server.URL, opts...)
	case "sse":
		var opts []transport.ClientOption
		if len(server.Headers) > 0 {
			opts = append(opts, transport.WithHeaders(server.Headers))
		}
		mcpClient, err = client.NewSSEMCPClient(server.URL, opts...)
	default:
		return nil, fmt.Errorf("unknown transport type: %s", kind)
	}
	if err != nil {
		return nil, err
	}

	// Transport must be started before Initialize/ListTools
	if err := mcpClient.GetTransport().Start(ctx); err != nil {
		_ = mcpClient.Close()
		return nil, fmt.Errorf("failed to start %s transport: %w", kind, err)
	}

	if globalconfig.DebugLog != nil {
		globalconfig.DebugLog.Printf("[MCP] Started %s transport for '%s' at %s", kind, server.Name, server.URL)
	}

	return mcpClient, nil
}

// createLocalClient spawns a stdio server and returns the command so a hung
// process can be killed on close.
func createLocalClient(server globalconfig.ServerConfig) (*client.Client, *exec.Cmd, error) {
	if _, err := lookupCommand(server); err != nil {
		return nil, nil, err
	}

	env := configToEnv(server.Env)
	var capturedCmd *exec.Cmd

	if globalconfig.DebugLog != nil {
		globalconfig.DebugLog.Printf("[MCP] Spawning '%s': %s %v", server.Name, server.Command, server.Args)
	}

	cmdFunc := func(ctx context.Context, command string, env []string, args []string) (*exec.Cmd, error) {
		cmd := exec.CommandContext(ctx, command, args...)
		cmd.Env = env
		capturedCmd = cmd
		return cmd, nil
	}

	mcpClient, err := client.NewStdioMCPClientWithOptions(
		server.Command,
		env,
		server.Args,
		transport.WithCommandFunc(cmdFunc),
	)
	if err != nil {
		return nil, nil, err
	}

	if capturedCmd != nil && capturedCmd.Process != nil && globalconfig.DebugLog != nil {
		globalconfig.DebugLog.Printf("[MCP] Started local server '%s' with PID %d", server.Name, capturedCmd.Process.Pid)
	}

	return mcpClient, capturedCmd, nil
}

// closeConnection closes the client, waiting at most closeTimeout, and kills
// a local process whose client did not close cleanly.
func closeConnection(name string, c *client.Client, proc *exec.Cmd) error {
	if c == nil {
		return nil
	}

	closeDone := make(chan error, 1)
	go func() {
		closeDone <- c.Close()
	}()

	var closeErr error
	closed := false
	select {
	case closeErr = <-closeDone:
		closed = closeErr == nil
	case <-time.After(closeTimeout):
		closeErr = fmt.Errorf("close timed out after %v", closeTimeout)
		if globalconfig.DebugLog != nil {
			globalconfig.DebugLog.Printf("[MCP] Close timeout for '%s'", name)
		}
	}

	if !closed && proc != nil && proc.Process != nil {
		if globalconfig.DebugLog != nil {
			globalconfig.DebugLog.Printf("[MCP] Forcefully killing process for '%s' (PID: %d)", name, proc.Process.Pid)
		}
		if err := proc.Process.Kill(); err != nil && globalconfig.DebugLog != nil {
			globalconfig.DebugLog.Printf("[MCP] Error killing process for '%s': %v", name, err)
		}
	}

	if closeErr != nil {
		return fmt.Errorf("close %s: %w", name, closeErr)
	}
	return nil
}

func configToEnv(envMap map[string]string) []string {
	// Start with current process environment to preserve PATH and other system vars
	env := os.Environ()

	for k, v := range envMap {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}

	return env
}
