package tools

import (
	"context"
	"errors"
	"fmt"
	"time"

	"agentflow/config"
	"agentflow/model"

	"golang.org/x/sync/errgroup"
)

// ErrToolNotFound is returned (wrapped) when a call names an unknown tool.
var ErrToolNotFound = errors.New("tool not found")

// ExecutionError records a tool invocation that returned an error, panicked
// or timed out.
type ExecutionError struct {
	Tool string
	Err  error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("tool %s: %v", e.Tool, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// OverrideFunc answers a tool call without consulting the tool lookup.
type OverrideFunc func(ctx context.Context, args map[string]any) (string, error)

// Executor runs batches of tool calls. The zero value runs calls sequentially
// with no timeout.
type Executor struct {
	// Parallel dispatches every call of a batch concurrently.
	Parallel bool
	// MaxConcurrency bounds parallel dispatch; zero means unbounded.
	MaxConcurrency int
	// Timeout bounds each individual invocation; zero means no timeout.
	Timeout time.Duration
	// Overrides short-circuit the named tools. Used for stubs and demos.
	Overrides map[string]OverrideFunc
}

func NewExecutor(timeout time.Duration) *Executor {
	return &Executor{
		Parallel: true,
		Timeout:  timeout,
	}
}

// Execute runs calls against lookup and returns exactly one result per call,
// in call order. Failures of individual tools (unknown name, error, panic,
// timeout) become error-flagged results and never abort the batch.
func (e *Executor) Execute(ctx context.Context, calls []model.ToolCall, lookup Lookup) []model.ToolResult {
	results := make([]model.ToolResult, len(calls))
	if len(calls) == 0 {
		return results
	}

	if !e.Parallel || len(calls) == 1 {
		for i, call := range calls {
			results[i] = e.run(ctx, call, lookup)
		}
		return results
	}

	var g errgroup.Group
	if e.MaxConcurrency > 0 {
		g.SetLimit(e.MaxConcurrency)
	}
	for i, call := range calls {
		g.Go(func() error {
			results[i] = e.run(ctx, call, lookup)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (e *Executor) run(ctx context.Context, call model.ToolCall, lookup Lookup) model.ToolResult {
	start := time.Now()
	content, err := e.invoke(ctx, call, lookup)

	result := model.ToolResult{
		CallID:  call.ID,
		Name:    call.Name,
		Content: content,
	}

	switch {
	case errors.Is(err, ErrToolNotFound):
		result.IsError = true
		result.Content = fmt.Sprintf("Tool '%s' not found", call.Name)
	case err != nil:
		result.IsError = true
		result.Content = fmt.Sprintf("Error executing tool: %v", err)
	}

	if config.DebugLog != nil {
		config.DebugLog.Printf("[Tools] %s (id=%s) finished in %v (error=%v, %d chars)",
			call.Name, call.ID, time.Since(start), result.IsError, len(result.Content))
	}
	return result
}

func (e *Executor) invoke(ctx context.Context, call model.ToolCall, lookup Lookup) (string, error) {
	var fn OverrideFunc
	if override, ok := e.Overrides[call.Name]; ok {
		fn = override
	} else {
		var tool model.Tool
		var found bool
		if lookup != nil {
			tool, found = lookup.Get(call.Name)
		}
		if !found {
			return "", fmt.Errorf("%w: %s", ErrToolNotFound, call.Name)
		}
		fn = tool.Invoke
	}

	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	args := call.Arguments
	if args == nil {
		args = map[string]any{}
	}

	type outcome struct {
		content string
		err     error
	}
	// A tool that ignores ctx keeps running in the background after a
	// timeout; its late result is discarded.
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		c, err := fn(ctx, args)
		done <- outcome{content: c, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			return "", &ExecutionError{Tool: call.Name, Err: out.err}
		}
		return out.content, nil
	case <-ctx.Done():
		return "", &ExecutionError{Tool: call.Name, Err: fmt.Errorf("timed out: %w", ctx.Err())}
	}
}
