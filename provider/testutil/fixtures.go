package testutil

import (
	"time"

	"agentflow/model"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
)

// TestMessages returns a sample conversation for testing
func TestMessages() []model.Message {
	return []model.Message{
		{
			Role:      model.RoleUser,
			Content:   "Hello, how are you?",
			Timestamp: time.Now(),
		},
		{
			Role:      model.RoleAssistant,
			Content:   "I'm doing well, thank you!",
			Timestamp: time.Now(),
		},
		{
			Role:      model.RoleUser,
			Content:   "Can you help me with a task?",
			Timestamp: time.Now(),
		},
	}
}

// SingleUserMessage returns a single user message for simple tests
func SingleUserMessage(content string) []model.Message {
	return []model.Message{
		{
			Role:      model.RoleUser,
			Content:   content,
			Timestamp: time.Now(),
		},
	}
}

// ToolRoundTrip returns a conversation in wire form where the assistant
// called two tools and both results came back.
func ToolRoundTrip() []model.Message {
	return []model.Message{
		{Role: model.RoleSystem, Content: "You are a helpful assistant."},
		{Role: model.RoleUser, Content: "Weather in Paris and 6*7?"},
		{
			Role:    model.RoleAssistant,
			Content: "Let me check.",
			ToolCalls: []model.ToolCall{
				{ID: "call_1", Name: "get_weather", Arguments: map[string]any{"location": "Paris"}},
				{ID: "call_2", Name: "calculate", Arguments: map[string]any{"expression": "6*7"}},
			},
		},
		{Role: model.RoleTool, Content: "Sunny", ToolCallID: "call_1", ToolName: "get_weather"},
		{Role: model.RoleTool, Content: "Tool 'calculate' not found", ToolCallID: "call_2", ToolName: "calculate", IsError: true},
	}
}

// Answer returns a plain final-answer response.
func Answer(content string) *model.ChatResponse {
	return &model.ChatResponse{Content: content, FinishReason: "stop"}
}

// CallTools returns a response requesting the given tool calls.
func CallTools(calls ...model.ToolCall) *model.ChatResponse {
	return &model.ChatResponse{ToolCalls: calls, FinishReason: "tool_calls"}
}

// TestMCPTools returns sample MCP tools for testing
func TestMCPTools() []mcptypes.Tool {
	return []mcptypes.Tool{
		{
			Name:        "get_weather",
			Description: "Get the current weather for a location",
			InputSchema: mcptypes.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"location": map[string]any{
						"type":        "string",
						"description": "The city and state, e.g. San Francisco, CA",
					},
				},
				Required: []string{"location"},
			},
		},
		{
			Name:        "calculate",
			Description: "Perform a mathematical calculation",
			InputSchema: mcptypes.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"expression": map[string]any{
						"type":        "string",
						"description": "The mathematical expression to evaluate",
					},
				},
				Required: []string{"expression"},
			},
		},
	}
}

// SystemMessage returns a system message for testing
func SystemMessage(content string) model.Message {
	return model.Message{
		Role:      model.RoleSystem,
		Content:   content,
		Timestamp: time.Now(),
	}
}
