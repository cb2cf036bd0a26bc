// Package agent runs the tool-calling loop: it sends the conversation to a
// completion service, executes the tool calls the model asks for, feeds the
// results back and stops at the first plain answer.
package agent

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"
	"time"

	globalconfig "agentflow/config"
	"agentflow/history"
	"agentflow/mcp"
	"agentflow/model"
	"agentflow/tools"

	"github.com/google/uuid"
)

// DefaultMaxIterations bounds the completion calls of one run when
// Config.MaxIterations is not positive.
const DefaultMaxIterations = 10

// Config holds the per-agent settings of the loop.
type Config struct {
	Name          string
	SystemPrompt  string
	MaxIterations int
	// RunTimeout bounds the wall-clock time of one Run; zero means none.
	RunTimeout time.Duration

	MaxTokens           int
	Temperature         *float64
	ContextWindowTokens int
}

// Result is the final answer of a run.
type Result struct {
	Content      string
	Usage        model.Usage
	Iterations   int
	ToolCalls    int
	FinishReason string
}

// Agent owns one conversation and the tools available to it. Runs on the same
// Agent are serialized; separate Agents are independent.
type Agent struct {
	cfg       Config
	provider  model.Provider
	executor  *tools.Executor
	connector *mcp.Connector
	servers   []globalconfig.ServerConfig
	observer  Observer
	overrides map[string]tools.OverrideFunc
	history   *history.History

	// runMu serializes Run and guards baseline and history.
	runMu    sync.Mutex
	baseline *tools.Set

	// activeMu guards active, which Tools reads while a run is in flight.
	activeMu sync.RWMutex
	active   *tools.Set
}

type Option func(*Agent)

// WithTools registers base tools, available to every run.
func WithTools(ts ...model.Tool) Option {
	return func(a *Agent) {
		a.baseline.Add(ts...)
	}
}

// WithServers makes every run connect to servers through connector and
// expose their tools for the duration of the run.
func WithServers(connector *mcp.Connector, servers ...globalconfig.ServerConfig) Option {
	return func(a *Agent) {
		a.connector = connector
		a.servers = append(a.servers, servers...)
	}
}

func WithExecutor(e *tools.Executor) Option {
	return func(a *Agent) {
		a.executor = e
	}
}

// WithOverrides short-circuits the named tools on the agent's executor.
func WithOverrides(overrides map[string]tools.OverrideFunc) Option {
	return func(a *Agent) {
		if a.overrides == nil {
			a.overrides = make(map[string]tools.OverrideFunc, len(overrides))
		}
		maps.Copy(a.overrides, overrides)
	}
}

func WithObserver(o Observer) Option {
	return func(a *Agent) {
		a.observer = o
	}
}

// New creates an agent talking to p.
func New(cfg Config, p model.Provider, opts ...Option) (*Agent, error) {
	if p == nil {
		return nil, errors.New("agent: provider is required")
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	if cfg.Name == "" {
		cfg.Name = "agent"
	}

	a := &Agent{
		cfg:      cfg,
		provider: p,
		baseline: tools.NewSet(),
		history:  history.New(cfg.SystemPrompt, cfg.ContextWindowTokens),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.executor == nil {
		a.executor = tools.NewExecutor(0)
	}
	if len(a.overrides) > 0 {
		// Merge into a private copy so agents sharing an executor keep
		// their own stubs.
		e := *a.executor
		e.Overrides = make(map[string]tools.OverrideFunc, len(a.executor.Overrides)+len(a.overrides))
		maps.Copy(e.Overrides, a.executor.Overrides)
		maps.Copy(e.Overrides, a.overrides)
		a.executor = &e
	}
	if a.connector == nil && len(a.servers) > 0 {
		a.connector = &mcp.Connector{}
	}
	a.active = a.baseline
	return a, nil
}

func (a *Agent) Name() string {
	return a.cfg.Name
}

// Tools returns the names of the active tools: the base tools between runs,
// the base tools plus the remote ones during a run.
func (a *Agent) Tools() []string {
	a.activeMu.RLock()
	defer a.activeMu.RUnlock()
	return a.active.Names()
}

// AddTools registers more base tools. It waits for a running Run to finish.
func (a *Agent) AddTools(ts ...model.Tool) {
	a.runMu.Lock()
	defer a.runMu.Unlock()

	next := a.baseline.Clone()
	next.Add(ts...)
	a.baseline = next
	a.setActive(next)
}

// History returns a snapshot of the conversation in wire form.
func (a *Agent) History() []model.Message {
	a.runMu.Lock()
	defer a.runMu.Unlock()
	return a.history.FormatForAPI()
}

// Usage returns the token usage accumulated over every run.
func (a *Agent) Usage() model.Usage {
	a.runMu.Lock()
	defer a.runMu.Unlock()
	return a.history.Usage()
}

// Reset clears the conversation, keeping the system prompt and tools.
func (a *Agent) Reset() {
	a.runMu.Lock()
	defer a.runMu.Unlock()
	a.history.Reset()
}

func (a *Agent) setActive(s *tools.Set) {
	a.activeMu.Lock()
	a.active = s
	a.activeMu.Unlock()
}

func (a *Agent) notify(ev Event) {
	if a.observer != nil {
		a.observer(ev)
	}
}

// Run appends input as a user turn and loops until the model answers without
// tool calls. Remote tools are connected for this run only, and the active
// tool set is back to the base tools when Run returns.
//
// A response without tool calls is always the final answer. Completion
// errors are returned as *CompletionServiceError without retrying.
func (a *Agent) Run(ctx context.Context, input string) (*Result, error) {
	a.runMu.Lock()
	defer a.runMu.Unlock()

	runCtx := ctx
	if a.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, a.cfg.RunTimeout)
		defer cancel()
	}

	active := a.baseline
	if len(a.servers) > 0 {
		session, err := a.connector.Connect(runCtx, a.servers)
		if err != nil {
			return nil, err
		}
		defer func() {
			if cerr := session.Close(); cerr != nil && globalconfig.DebugLog != nil {
				globalconfig.DebugLog.Printf("[Agent] %s: closing tool servers: %v", a.cfg.Name, cerr)
			}
		}()

		active = a.baseline.Clone()
		if replaced := active.Add(session.Tools()...); len(replaced) > 0 && globalconfig.DebugLog != nil {
			globalconfig.DebugLog.Printf("[Agent] %s: remote tools replaced %v", a.cfg.Name, replaced)
		}
	}
	a.setActive(active)
	defer a.setActive(a.baseline)

	a.notify(Event{State: AwaitingInput})
	a.history.Add(model.RoleUser, input, nil)

	result := &Result{}
	var lastResults []model.ToolResult
	for iteration := 1; ; iteration++ {
		if iteration > a.cfg.MaxIterations {
			return nil, fmt.Errorf("%w: no final answer after %d iterations", ErrLoopBudgetExceeded, a.cfg.MaxIterations)
		}
		if err := a.interrupted(ctx, runCtx); err != nil {
			return nil, err
		}

		if dropped := a.history.Truncate(); dropped > 0 && globalconfig.DebugLog != nil {
			globalconfig.DebugLog.Printf("[Agent] %s: truncated %d turns", a.cfg.Name, dropped)
		}
		a.notify(Event{State: CallingModel, Iteration: iteration, Results: lastResults})

		resp, err := a.provider.Chat(runCtx, model.ChatRequest{
			Messages:    a.history.FormatForAPI(),
			Tools:       active.Definitions(),
			MaxTokens:   a.cfg.MaxTokens,
			Temperature: a.cfg.Temperature,
		})
		if err != nil {
			if ierr := a.interrupted(ctx, runCtx); ierr != nil {
				return nil, errors.Join(ierr, &CompletionServiceError{Iteration: iteration, Err: err})
			}
			return nil, &CompletionServiceError{Iteration: iteration, Err: err}
		}
		if resp == nil {
			return nil, &CompletionServiceError{Iteration: iteration, Err: ErrEmptyResponse}
		}

		result.Iterations = iteration
		result.Usage = result.Usage.Add(resp.Usage)

		if !resp.HasToolCalls() {
			a.history.AddAssistant(resp.Content, nil, &resp.Usage)
			result.Content = resp.Content
			result.FinishReason = resp.FinishReason
			a.notify(Event{State: Done, Iteration: iteration, Content: resp.Content})

			if globalconfig.DebugLog != nil {
				globalconfig.DebugLog.Printf("[Agent] %s: answered after %d iterations, %d tool calls, %d tokens",
					a.cfg.Name, iteration, result.ToolCalls, result.Usage.Total())
			}
			return result, nil
		}

		calls := withCallIDs(resp.ToolCalls)
		a.history.AddAssistant(resp.Content, calls, &resp.Usage)
		a.notify(Event{State: AwaitingToolResults, Iteration: iteration, Calls: calls})

		lastResults = a.executor.Execute(runCtx, calls, active)
		result.ToolCalls += len(calls)
		a.history.AddToolResults(lastResults)
	}
}

// interrupted reports why runCtx is done: the caller's cancellation as is,
// the run's own timeout as ErrLoopBudgetExceeded.
func (a *Agent) interrupted(parent, runCtx context.Context) error {
	if err := parent.Err(); err != nil {
		return err
	}
	if err := runCtx.Err(); err != nil {
		return fmt.Errorf("%w: run timeout %v: %w", ErrLoopBudgetExceeded, a.cfg.RunTimeout, err)
	}
	return nil
}

// withCallIDs fills in ids a provider left empty so each result can be
// matched to its call.
func withCallIDs(calls []model.ToolCall) []model.ToolCall {
	out := append([]model.ToolCall(nil), calls...)
	for i := range out {
		if out[i].ID == "" {
			out[i].ID = "call_" + uuid.New().String()
		}
	}
	return out
}
