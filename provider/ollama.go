package provider

import (
	"context"
	"fmt"

	"agentflow/config"
	"agentflow/mcp"
	"agentflow/model"
	"agentflow/ollama"

	"github.com/ollama/ollama/api"
)

// OllamaProvider wraps ollama.Client to implement model.Provider.
//
// It converts model.Message to api.Message, mcptypes.Tool to api.Tool and
// api.ToolCall back to model.ToolCall, assigning the call ids Ollama omits.
type OllamaProvider struct {
	client *ollama.Client
}

// NewOllamaProvider creates a new Ollama provider instance.
//
// Parameters:
//   - baseURL: The Ollama server URL (e.g., "http://localhost:11434").
//     If empty, defaults to "http://localhost:11434".
//   - model: The model name to use (e.g., "qwen2.5:latest").
//     If empty, defaults to "qwen2.5:latest".
//
// Returns an error if the baseURL is invalid.
func NewOllamaProvider(baseURL, model string) (*OllamaProvider, error) {
	client, err := ollama.NewClient(baseURL, model)
	if err != nil {
		return nil, fmt.Errorf("failed to create Ollama client: %w", err)
	}

	return &OllamaProvider{
		client: client,
	}, nil
}

// Chat implements model.Provider.
//
// Tools are sent even to models not known to support them; Ollama then
// answers in plain text, which the agent treats as a final answer.
func (p *OllamaProvider) Chat(ctx context.Context, req model.ChatRequest) (*model.ChatResponse, error) {
	var tools []api.Tool
	if len(req.Tools) > 0 {
		tools = mcp.ConvertMCPToolsToOllama(req.Tools)
		if !p.client.SupportsToolCalling() && config.DebugLog != nil {
			config.DebugLog.Printf("[Provider] Ollama model '%s' is not known to support tool calling", p.client.GetModel())
		}
	}

	options := map[string]any{}
	if req.MaxTokens > 0 {
		options["num_predict"] = req.MaxTokens
	}
	if req.Temperature != nil {
		options["temperature"] = *req.Temperature
	}

	resp, err := p.client.Chat(ctx, ConvertToOllamaMessages(req.Messages), tools, options)
	if err != nil {
		return nil, fmt.Errorf("Ollama completion error: %w", err)
	}

	return &model.ChatResponse{
		Content:      resp.Message.Content,
		ToolCalls:    ConvertToProviderToolCalls(resp.Message.ToolCalls),
		FinishReason: resp.DoneReason,
		Usage: model.Usage{
			PromptTokens:     resp.PromptEvalCount,
			CompletionTokens: resp.EvalCount,
		},
	}, nil
}

// GetModel implements Provider.GetModel (direct passthrough).
func (p *OllamaProvider) GetModel() string {
	return p.client.GetModel()
}

// SetModel implements Provider.SetModel (direct passthrough).
func (p *OllamaProvider) SetModel(model string) {
	p.client.SetModel(model)
}

// Ping implements Provider.Ping (direct passthrough).
//
// Checks if the Ollama server is reachable by making a lightweight API call.
func (p *OllamaProvider) Ping(ctx context.Context) error {
	return p.client.Ping(ctx)
}
