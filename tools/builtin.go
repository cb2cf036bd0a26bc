package tools

import (
	"context"
	"fmt"
	"strings"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
)

// Func adapts a Go function into a model.Tool.
type Func struct {
	Def mcptypes.Tool
	Fn  func(ctx context.Context, args map[string]any) (string, error)
}

func NewFunc(def mcptypes.Tool, fn func(ctx context.Context, args map[string]any) (string, error)) *Func {
	return &Func{Def: def, Fn: fn}
}

func (f *Func) Name() string {
	return f.Def.Name
}

func (f *Func) Definition() mcptypes.Tool {
	return f.Def
}

func (f *Func) Invoke(ctx context.Context, args map[string]any) (string, error) {
	return f.Fn(ctx, args)
}

// NewThinkTool returns a scratchpad tool: the model writes a thought and gets
// it acknowledged, which gives it room to reason between tool calls.
func NewThinkTool() *Func {
	def := mcptypes.NewTool("think",
		mcptypes.WithDescription("Use the tool to think about something. It will not obtain new information "+
			"or change anything, but just append the thought to the log. Use it when complex reasoning "+
			"or some cache memory is needed."),
		mcptypes.WithString("thought",
			mcptypes.Required(),
			mcptypes.Description("A thought to think about."),
		),
	)
	return NewFunc(def, func(_ context.Context, args map[string]any) (string, error) {
		thought, _ := args["thought"].(string)
		if thought == "" {
			return "", fmt.Errorf("missing required argument 'thought'")
		}
		return "Thinking complete!", nil
	})
}

// ConstantAnswer returns an override that ignores its arguments and always
// answers with value.
func ConstantAnswer(value string) OverrideFunc {
	return func(context.Context, map[string]any) (string, error) {
		return value, nil
	}
}

// ParseStubs turns "name=value" pairs into constant-answer overrides.
func ParseStubs(specs []string) (map[string]OverrideFunc, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	out := make(map[string]OverrideFunc, len(specs))
	for _, spec := range specs {
		name, value, ok := strings.Cut(spec, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid stub %q, want name=value", spec)
		}
		out[name] = ConstantAnswer(value)
	}
	return out, nil
}
