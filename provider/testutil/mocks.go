package testutil

import (
	"context"
	"fmt"
	"sync"

	"agentflow/model"
)

// MockProvider implements model.Provider for testing
type MockProvider struct {
	// Configurable responses
	ChatFunc func(ctx context.Context, req model.ChatRequest) (*model.ChatResponse, error)
	PingFunc func(ctx context.Context) error

	// State
	currentModel string
}

// NewMockProvider creates a mock provider with default implementations
func NewMockProvider(modelName string) *MockProvider {
	mock := &MockProvider{
		currentModel: modelName,
	}
	mock.ChatFunc = mock.defaultChat
	mock.PingFunc = mock.defaultPing
	return mock
}

func (m *MockProvider) defaultChat(ctx context.Context, req model.ChatRequest) (*model.ChatResponse, error) {
	// Default: plain answer, mentioning tools when some were offered
	if len(req.Tools) > 0 {
		return &model.ChatResponse{Content: "Mock response with tools", FinishReason: "stop"}, nil
	}
	return &model.ChatResponse{Content: "Mock response", FinishReason: "stop"}, nil
}

func (m *MockProvider) defaultPing(ctx context.Context) error {
	return nil
}

func (m *MockProvider) Chat(ctx context.Context, req model.ChatRequest) (*model.ChatResponse, error) {
	return m.ChatFunc(ctx, req)
}

func (m *MockProvider) GetModel() string {
	return m.currentModel
}

func (m *MockProvider) SetModel(model string) {
	m.currentModel = model
}

func (m *MockProvider) Ping(ctx context.Context) error {
	return m.PingFunc(ctx)
}

// Step is one scripted provider reply: a response or an error.
type Step struct {
	Response *model.ChatResponse
	Err      error
}

// ScriptedProvider replays a fixed sequence of replies and records every
// request it receives. A call past the end of the script fails the call.
type ScriptedProvider struct {
	mu       sync.Mutex
	steps    []Step
	requests []model.ChatRequest
	model    string
}

func NewScriptedProvider(steps ...Step) *ScriptedProvider {
	return &ScriptedProvider{steps: steps, model: "scripted"}
}

func (s *ScriptedProvider) Chat(ctx context.Context, req model.ChatRequest) (*model.ChatResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Copy, the caller reuses its slices between calls.
	req.Messages = append([]model.Message(nil), req.Messages...)
	req.Tools = append(req.Tools[:0:0], req.Tools...)
	s.requests = append(s.requests, req)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	n := len(s.requests)
	if n > len(s.steps) {
		return nil, fmt.Errorf("scripted provider: unexpected call %d (script has %d steps)", n, len(s.steps))
	}
	step := s.steps[n-1]
	return step.Response, step.Err
}

// Calls returns how many times Chat was called.
func (s *ScriptedProvider) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// Requests returns the recorded requests in call order.
func (s *ScriptedProvider) Requests() []model.ChatRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.ChatRequest(nil), s.requests...)
}

func (s *ScriptedProvider) GetModel() string {
	return s.model
}

func (s *ScriptedProvider) SetModel(model string) {
	s.model = model
}

func (s *ScriptedProvider) Ping(ctx context.Context) error {
	return nil
}
