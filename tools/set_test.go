package tools

import (
	"context"
	"testing"

	"agentflow/model"

	"github.com/baalimago/go_away_boilerplate/pkg/testboil"
	mcptypes "github.com/mark3labs/mcp-go/mcp"
)

func constTool(name, answer string) *Func {
	return NewFunc(mcptypes.NewTool(name, mcptypes.WithDescription(answer)), func(context.Context, map[string]any) (string, error) {
		return answer, nil
	})
}

func TestSetLastRegisteredWins(t *testing.T) {
	s := NewSet(constTool("search", "local"), constTool("think", "think"))

	replaced := s.Add(constTool("search", "remote"))
	testboil.FailTestIfDiff(t, len(replaced), 1)
	testboil.FailTestIfDiff(t, replaced[0], "search")

	tool, ok := s.Get("search")
	if !ok {
		t.Fatal("search not registered")
	}
	got, _ := tool.Invoke(context.Background(), nil)
	testboil.FailTestIfDiff(t, got, "remote")

	// Position is that of the first registration.
	names := s.Names()
	testboil.FailTestIfDiff(t, len(names), 2)
	testboil.FailTestIfDiff(t, names[0], "search")
	testboil.FailTestIfDiff(t, names[1], "think")

	defs := s.Definitions()
	testboil.FailTestIfDiff(t, defs[0].Description, "remote")
}

func TestSetCloneIsIndependent(t *testing.T) {
	base := NewSet(constTool("a", "1"))
	clone := base.Clone()
	clone.Add(constTool("b", "2"))

	testboil.FailTestIfDiff(t, base.Len(), 1)
	testboil.FailTestIfDiff(t, clone.Len(), 2)
	if _, ok := base.Get("b"); ok {
		t.Error("clone mutation leaked into base set")
	}
}

func TestSetIgnoresNil(t *testing.T) {
	var nilTool model.Tool
	s := NewSet(nilTool, constTool("a", "1"))
	testboil.FailTestIfDiff(t, s.Len(), 1)
}

func TestThinkTool(t *testing.T) {
	think := NewThinkTool()
	testboil.FailTestIfDiff(t, think.Name(), "think")

	got, err := think.Invoke(context.Background(), map[string]any{"thought": "plan first"})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	testboil.FailTestIfDiff(t, got, "Thinking complete!")

	if _, err := think.Invoke(context.Background(), map[string]any{}); err == nil {
		t.Error("expected error for missing thought")
	}
}

func TestParseStubs(t *testing.T) {
	tests := []struct {
		name    string
		specs   []string
		wantErr bool
		want    map[string]string
	}{
		{name: "none", specs: nil, want: map[string]string{}},
		{name: "single", specs: []string{"calculator=12"}, want: map[string]string{"calculator": "12"}},
		{name: "value with equals", specs: []string{"eq=a=b"}, want: map[string]string{"eq": "a=b"}},
		{name: "missing separator", specs: []string{"calculator"}, wantErr: true},
		{name: "empty name", specs: []string{"=12"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStubs(tt.specs)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseStubs() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			testboil.FailTestIfDiff(t, len(got), len(tt.want))
			for name, want := range tt.want {
				answer, _ := got[name](context.Background(), nil)
				testboil.FailTestIfDiff(t, answer, want)
			}
		})
	}
}
