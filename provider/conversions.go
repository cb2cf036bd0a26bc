package provider

import (
	"encoding/json"

	"agentflow/model"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/google/uuid"
	"github.com/ollama/ollama/api"
	"github.com/openai/openai-go/v3"
)

// ParseToolArguments parses JSON arguments string into a map.
// Used by the OpenAI adapter, whose tool calls carry arguments as a string.
func ParseToolArguments(argsJSON string) map[string]any {
	var args map[string]any
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil || args == nil {
		// If parsing fails, return empty map
		return make(map[string]any)
	}
	return args
}

// encodeToolArguments is the inverse of ParseToolArguments.
func encodeToolArguments(args map[string]any) string {
	if args == nil {
		return "{}"
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return "{}"
	}
	return string(raw)
}

// ConvertToOpenAIMessages converts messages to OpenAI chat format. Assistant
// turns keep their tool calls and tool turns reference the call they answer.
func ConvertToOpenAIMessages(messages []model.Message) []openai.ChatCompletionMessageParamUnion {
	result := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))

	for _, msg := range messages {
		switch msg.Role {
		case model.RoleSystem:
			result = append(result, openai.SystemMessage(msg.Content))
		case model.RoleUser:
			result = append(result, openai.UserMessage(msg.Content))
		case model.RoleAssistant:
			if len(msg.ToolCalls) == 0 {
				result = append(result, openai.AssistantMessage(msg.Content))
				continue
			}
			asst := openai.ChatCompletionAssistantMessageParam{
				ToolCalls: make([]openai.ChatCompletionMessageToolCallUnionParam, len(msg.ToolCalls)),
			}
			if msg.Content != "" {
				asst.Content.OfString = openai.String(msg.Content)
			}
			for i, call := range msg.ToolCalls {
				asst.ToolCalls[i] = openai.ChatCompletionMessageToolCallUnionParam{
					OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
						ID: call.ID,
						Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
							Name:      call.Name,
							Arguments: encodeToolArguments(call.Arguments),
						},
					},
				}
			}
			result = append(result, openai.ChatCompletionMessageParamUnion{OfAssistant: &asst})
		case model.RoleTool:
			result = append(result, openai.ToolMessage(msg.Content, msg.ToolCallID))
		default:
			// Default to user message
			result = append(result, openai.UserMessage(msg.Content))
		}
	}

	return result
}

// convertToAnthropicMessages converts messages to Anthropic format and
// returns the system prompt separately. Consecutive tool messages are merged
// into one user turn of tool_result blocks, as the Messages API requires.
func convertToAnthropicMessages(messages []model.Message) ([]anthropic.MessageParam, []anthropic.TextBlockParam) {
	var systemBlocks []anthropic.TextBlockParam
	anthropicMsgs := make([]anthropic.MessageParam, 0, len(messages))

	var pendingResults []anthropic.ContentBlockParamUnion
	flushResults := func() {
		if len(pendingResults) > 0 {
			anthropicMsgs = append(anthropicMsgs, anthropic.NewUserMessage(pendingResults...))
			pendingResults = nil
		}
	}

	for _, msg := range messages {
		if msg.Role == model.RoleTool {
			pendingResults = append(pendingResults,
				anthropic.NewToolResultBlock(msg.ToolCallID, msg.Content, msg.IsError))
			continue
		}
		flushResults()

		switch msg.Role {
		case model.RoleSystem:
			// Anthropic uses a separate system parameter, not in messages array
			systemBlocks = append(systemBlocks, anthropic.TextBlockParam{Text: msg.Content})

		case model.RoleAssistant:
			blocks := make([]anthropic.ContentBlockParamUnion, 0, len(msg.ToolCalls)+1)
			if msg.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
			}
			for _, call := range msg.ToolCalls {
				input := call.Arguments
				if input == nil {
					input = map[string]any{}
				}
				blocks = append(blocks, anthropic.NewToolUseBlock(call.ID, input, call.Name))
			}
			// The Messages API rejects empty text blocks; an empty answer
			// carries nothing worth replaying.
			if len(blocks) == 0 {
				continue
			}
			anthropicMsgs = append(anthropicMsgs, anthropic.NewAssistantMessage(blocks...))

		default:
			anthropicMsgs = append(anthropicMsgs,
				anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)),
			)
		}
	}
	flushResults()

	return anthropicMsgs, systemBlocks
}

// extractAnthropicContent splits an Anthropic response into text and tool calls.
func extractAnthropicContent(content []anthropic.ContentBlockUnion) (string, []model.ToolCall) {
	var text string
	var toolCalls []model.ToolCall

	for _, block := range content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			text += variant.Text
		case anthropic.ToolUseBlock:
			// Convert json.RawMessage to map[string]any
			args := make(map[string]any)
			if len(variant.Input) > 0 {
				if err := json.Unmarshal(variant.Input, &args); err != nil || args == nil {
					args = make(map[string]any)
				}
			}
			toolCalls = append(toolCalls, model.ToolCall{
				ID:        variant.ID,
				Name:      variant.Name,
				Arguments: args,
			})
		}
	}

	return text, toolCalls
}

// ConvertToOllamaMessages converts messages to Ollama api.Message. Ollama
// matches tool results by tool name rather than by call id.
func ConvertToOllamaMessages(messages []model.Message) []api.Message {
	result := make([]api.Message, len(messages))
	for i, msg := range messages {
		result[i] = api.Message{
			Role:      string(msg.Role),
			Content:   msg.Content,
			ToolCalls: ConvertFromProviderToolCalls(msg.ToolCalls),
			ToolName:  msg.ToolName,
		}
	}
	return result
}

// ConvertToProviderToolCalls converts Ollama api.ToolCall to model.ToolCall.
//
// Ollama does not assign call ids, so each call gets a fresh uuid that the
// matching result will reference.
//
// Returns nil if the input is nil or empty, maintaining the same nil semantics
// as the Ollama API.
func ConvertToProviderToolCalls(ollamaCalls []api.ToolCall) []model.ToolCall {
	if len(ollamaCalls) == 0 {
		return nil
	}

	result := make([]model.ToolCall, len(ollamaCalls))
	for i, call := range ollamaCalls {
		args := map[string]any(call.Function.Arguments)
		if args == nil {
			args = make(map[string]any)
		}
		result[i] = model.ToolCall{
			ID:        "call_" + uuid.New().String(),
			Name:      call.Function.Name,
			Arguments: args,
		}
	}
	return result
}

// ConvertFromProviderToolCalls converts model.ToolCall to Ollama api.ToolCall.
//
// Returns nil if the input is nil or empty, maintaining the same nil semantics.
func ConvertFromProviderToolCalls(providerCalls []model.ToolCall) []api.ToolCall {
	if len(providerCalls) == 0 {
		return nil
	}

	result := make([]api.ToolCall, len(providerCalls))
	for i, call := range providerCalls {
		result[i] = api.ToolCall{
			Function: api.ToolCallFunction{
				Index:     i,
				Name:      call.Name,
				Arguments: call.Arguments,
			},
		}
	}
	return result
}
