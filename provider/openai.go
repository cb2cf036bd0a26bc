package provider

import (
	"context"
	"errors"
	"fmt"

	"agentflow/config"
	"agentflow/mcp"
	"agentflow/model"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAIProvider implements model.Provider using OpenAI's official Go SDK.
// It serves every OpenAI-compatible endpoint: OpenAI itself, DashScope's
// compatible mode, OpenRouter and self-hosted servers.
type OpenAIProvider struct {
	client  openai.Client
	model   string
	baseURL string
}

// NewOpenAIProvider creates a new OpenAI-compatible provider instance.
//
// Parameters:
//   - baseURL: API base URL (default: "https://api.openai.com/v1")
//   - apiKey: API key (required)
//   - model: Initial model to use (default: "gpt-4o-mini")
//
// Returns an error if the API key is missing.
func NewOpenAIProvider(baseURL, apiKey, model string) (*OpenAIProvider, error) {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	if model == "" {
		model = "gpt-4o-mini" // Default to affordable model
	}

	client := openai.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	)

	return &OpenAIProvider{
		client:  client,
		model:   model,
		baseURL: baseURL,
	}, nil
}

// Chat implements model.Provider with a single non-streaming completion.
func (p *OpenAIProvider) Chat(ctx context.Context, req model.ChatRequest) (*model.ChatResponse, error) {
	params := openai.ChatCompletionNewParams{
		Messages: ConvertToOpenAIMessages(req.Messages),
		Model:    openai.ChatModel(p.model),
	}

	if len(req.Tools) > 0 {
		params.Tools = mcp.ConvertMCPToolsToOpenAIFormat(req.Tools)
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}

	if config.DebugLog != nil {
		config.DebugLog.Printf("[Provider] OpenAI request: model=%s messages=%d tools=%d", p.model, len(params.Messages), len(params.Tools))
	}

	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("OpenAI completion error: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, errors.New("OpenAI completion returned no choices")
	}

	choice := completion.Choices[0]
	resp := &model.ChatResponse{
		Content:      choice.Message.Content,
		FinishReason: choice.FinishReason,
		Usage: model.Usage{
			PromptTokens:     int(completion.Usage.PromptTokens),
			CompletionTokens: int(completion.Usage.CompletionTokens),
		},
	}

	for _, call := range choice.Message.ToolCalls {
		resp.ToolCalls = append(resp.ToolCalls, model.ToolCall{
			ID:        call.ID,
			Name:      call.Function.Name,
			Arguments: ParseToolArguments(call.Function.Arguments),
		})
	}

	return resp, nil
}

// GetModel implements Provider.GetModel.
func (p *OpenAIProvider) GetModel() string {
	return p.model
}

// SetModel implements Provider.SetModel.
func (p *OpenAIProvider) SetModel(model string) {
	p.model = model
}

// Ping implements Provider.Ping by attempting to list models.
func (p *OpenAIProvider) Ping(ctx context.Context) error {
	_, err := p.client.Models.List(ctx)
	if err != nil {
		return fmt.Errorf("OpenAI ping failed: %w", err)
	}
	return nil
}
