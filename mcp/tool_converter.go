package mcp

import (
	"encoding/json"

	"github.com/anthropics/anthropic-sdk-go"
	mcptypes "github.com/mark3labs/mcp-go/mcp"
	"github.com/ollama/ollama/api"
	"github.com/openai/openai-go/v3"
)

// schemaProperties returns the schema properties, never nil: OpenAI and
// Anthropic both reject an object schema without a properties map.
func schemaProperties(schema mcptypes.ToolInputSchema) map[string]any {
	if schema.Properties == nil {
		return map[string]any{}
	}
	return schema.Properties
}

// ConvertMCPToolsToOllama converts tool definitions to Ollama API tool format
func ConvertMCPToolsToOllama(mcpTools []mcptypes.Tool) []api.Tool {
	if len(mcpTools) == 0 {
		return nil
	}

	ollamaTools := make([]api.Tool, 0, len(mcpTools))
	for _, mcpTool := range mcpTools {
		ollamaTools = append(ollamaTools, api.Tool{
			Type: "function",
			Function: api.ToolFunction{
				Name:        mcpTool.Name,
				Description: mcpTool.Description,
				Parameters:  convertInputSchemaToParameters(mcpTool.InputSchema),
			},
		})
	}

	return ollamaTools
}

func convertInputSchemaToParameters(inputSchema mcptypes.ToolInputSchema) api.ToolFunctionParameters {
	schemaType := inputSchema.Type
	if schemaType == "" {
		schemaType = "object"
	}

	params := api.ToolFunctionParameters{
		Type:       schemaType,
		Required:   inputSchema.Required,
		Properties: make(map[string]api.ToolProperty),
	}

	if inputSchema.Defs != nil {
		params.Defs = inputSchema.Defs
	}

	for propName, propValue := range inputSchema.Properties {
		params.Properties[propName] = convertPropertyValue(propValue)
	}

	return params
}

func convertPropertyValue(propValue any) api.ToolProperty {
	toolProp := api.ToolProperty{}

	propMap, ok := propValue.(map[string]any)
	if !ok {
		// Typed schema structs: go through JSON to get a plain map
		bytes, err := json.Marshal(propValue)
		if err != nil {
			return toolProp
		}
		var m map[string]any
		if err := json.Unmarshal(bytes, &m); err != nil {
			return toolProp
		}
		propMap = m
	}

	// type can be a string or a list of strings
	if typeVal, ok := propMap["type"]; ok {
		switch t := typeVal.(type) {
		case string:
			toolProp.Type = api.PropertyType{t}
		case []string:
			toolProp.Type = api.PropertyType(t)
		case []any:
			types := make([]string, 0, len(t))
			for _, v := range t {
				if s, ok := v.(string); ok {
					types = append(types, s)
				}
			}
			toolProp.Type = api.PropertyType(types)
		}
	}

	if desc, ok := propMap["description"].(string); ok {
		toolProp.Description = desc
	}

	if enumSlice, ok := propMap["enum"].([]any); ok {
		toolProp.Enum = enumSlice
	}

	if items, ok := propMap["items"]; ok {
		toolProp.Items = items
	}

	if anyOfSlice, ok := propMap["anyOf"].([]any); ok {
		anyOfProps := make([]api.ToolProperty, 0, len(anyOfSlice))
		for _, item := range anyOfSlice {
			anyOfProps = append(anyOfProps, convertPropertyValue(item))
		}
		toolProp.AnyOf = anyOfProps
	}

	return toolProp
}

// ConvertMCPToolsToOpenAIFormat converts tool definitions to the OpenAI
// function-tool format, shared by every OpenAI-compatible endpoint.
//
// MCP:    {"name", "description", "inputSchema": {"type", "properties", "required"}}
// OpenAI: {"type": "function", "function": {"name", "description", "parameters"}}
func ConvertMCPToolsToOpenAIFormat(mcpTools []mcptypes.Tool) []openai.ChatCompletionToolUnionParam {
	if len(mcpTools) == 0 {
		return nil
	}

	result := make([]openai.ChatCompletionToolUnionParam, len(mcpTools))

	for i, tool := range mcpTools {
		schemaType := tool.InputSchema.Type
		if schemaType == "" {
			schemaType = "object"
		}

		params := openai.FunctionParameters{
			"type":       schemaType,
			"properties": schemaProperties(tool.InputSchema),
		}

		if len(tool.InputSchema.Required) > 0 {
			params["required"] = tool.InputSchema.Required
		}

		if tool.InputSchema.Defs != nil {
			params["$defs"] = tool.InputSchema.Defs
		}

		def := openai.FunctionDefinitionParam{
			Name:       tool.Name,
			Parameters: params,
		}
		if tool.Description != "" {
			def.Description = openai.String(tool.Description)
		}

		result[i] = openai.ChatCompletionFunctionTool(def)
	}

	return result
}

// ConvertMCPToolsToAnthropicFormat converts tool definitions to Anthropic
// ToolUnionParam values with an input_schema.
func ConvertMCPToolsToAnthropicFormat(mcpTools []mcptypes.Tool) []anthropic.ToolUnionParam {
	if len(mcpTools) == 0 {
		return nil
	}

	result := make([]anthropic.ToolUnionParam, len(mcpTools))

	for i, tool := range mcpTools {
		// Type defaults to "object" when omitted
		inputSchema := anthropic.ToolInputSchemaParam{
			Properties: schemaProperties(tool.InputSchema),
		}

		if len(tool.InputSchema.Required) > 0 {
			inputSchema.Required = tool.InputSchema.Required
		}

		if tool.InputSchema.Defs != nil {
			inputSchema.ExtraFields = map[string]any{
				"$defs": tool.InputSchema.Defs,
			}
		}

		result[i] = anthropic.ToolUnionParamOfTool(inputSchema, tool.Name)

		if tool.Description != "" {
			result[i].OfTool.Description = anthropic.String(tool.Description)
		}
	}

	return result
}
