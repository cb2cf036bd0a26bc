package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	globalconfig "agentflow/config"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
)

// RemoteTool forwards invocations to a tool on a connected MCP server.
type RemoteTool struct {
	name        string
	def         mcptypes.Tool
	conn        *Connection
	callTimeout time.Duration
}

func newRemoteTool(conn *Connection, def mcptypes.Tool, callTimeout time.Duration) *RemoteTool {
	name := def.Name
	if conn.Server.Namespace {
		name = conn.Server.Name + "_" + def.Name
	}
	exposed := def
	exposed.Name = name
	return &RemoteTool{
		name:        name,
		def:         exposed,
		conn:        conn,
		callTimeout: callTimeout,
	}
}

func (t *RemoteTool) Name() string {
	return t.name
}

func (t *RemoteTool) Definition() mcptypes.Tool {
	return t.def
}

// Server returns the name of the server the tool lives on.
func (t *RemoteTool) Server() string {
	return t.conn.Server.Name
}

// RemoteName returns the tool name as the server knows it.
func (t *RemoteTool) RemoteName() string {
	return parseToolName(t.conn.Server, t.name)
}

// Invoke calls the tool on its server. A result flagged as an error by the
// server is returned as an error carrying the result text.
func (t *RemoteTool) Invoke(ctx context.Context, args map[string]any) (string, error) {
	if t.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.callTimeout)
		defer cancel()
	}

	result, err := t.conn.Client.CallTool(ctx, mcptypes.CallToolRequest{
		Params: mcptypes.CallToolParams{
			Name:      t.RemoteName(),
			Arguments: args,
		},
	})
	if err != nil {
		return "", fmt.Errorf("call %s on %s: %w", t.RemoteName(), t.Server(), err)
	}

	text := ResultText(result)
	if result.IsError {
		return "", errors.New(text)
	}

	if globalconfig.DebugLog != nil {
		globalconfig.DebugLog.Printf("[MCP] Tool %s result: %d chars", t.name, len(text))
	}
	return text, nil
}

// ResultText flattens an MCP tool result into the text fed back to the model.
func ResultText(result *mcptypes.CallToolResult) string {
	if result == nil || len(result.Content) == 0 {
		return "Tool executed successfully (no output)"
	}

	parts := make([]string, 0, len(result.Content))
	for _, content := range result.Content {
		switch c := content.(type) {
		case mcptypes.TextContent:
			parts = append(parts, c.Text)
		case *mcptypes.TextContent:
			parts = append(parts, c.Text)
		case mcptypes.ImageContent:
			parts = append(parts, fmt.Sprintf("[image: %s]", c.MIMEType))
		default:
			raw, err := json.Marshal(content)
			if err != nil {
				parts = append(parts, fmt.Sprintf("[unreadable content: %v]", err))
				continue
			}
			parts = append(parts, string(raw))
		}
	}
	return strings.Join(parts, "\n")
}

func parseToolName(server globalconfig.ServerConfig, exposed string) string {
	if server.Namespace {
		return strings.TrimPrefix(exposed, server.Name+"_")
	}
	return exposed
}
