package model

import (
	"context"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
)

// Tool is a named capability the model can invoke. Local tools and tools
// discovered on MCP servers both satisfy it, so the executor never needs to
// know where a tool lives.
type Tool interface {
	// Name is the identifier the model uses in tool calls.
	Name() string

	// Definition describes the tool (name, description, JSON schema) in MCP
	// form; provider adapters translate it to their wire format.
	Definition() mcptypes.Tool

	// Invoke runs the tool. The returned string is fed back to the model.
	Invoke(ctx context.Context, args map[string]any) (string, error)
}

// Definitions collects the definitions of tools in order.
func Definitions(tools []Tool) []mcptypes.Tool {
	if len(tools) == 0 {
		return nil
	}
	defs := make([]mcptypes.Tool, len(tools))
	for i, t := range tools {
		defs[i] = t.Definition()
	}
	return defs
}
