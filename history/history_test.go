package history

import (
	"reflect"
	"strings"
	"testing"

	"agentflow/model"

	"github.com/baalimago/go_away_boilerplate/pkg/testboil"
)

// words builds content of roughly n tokens.
func words(n int) string {
	return strings.Repeat("abcd", n)
}

func fillHistory(h *History, turns int, tokensPerTurn int) {
	for i := 0; i < turns; i++ {
		h.Add(model.RoleUser, words(tokensPerTurn), nil)
		h.Add(model.RoleAssistant, words(tokensPerTurn), nil)
	}
}

func TestTruncateKeepsSystemAndLatestUserTurn(t *testing.T) {
	h := New("you are terse", 200)
	fillHistory(h, 10, 50)
	h.Add(model.RoleUser, "latest question", nil)

	dropped := h.Truncate()
	if dropped == 0 {
		t.Fatal("expected turns to be dropped")
	}

	wire := h.FormatForAPI()
	testboil.FailTestIfDiff(t, wire[0].Role, model.RoleSystem)
	testboil.FailTestIfDiff(t, wire[0].Content, "you are terse")

	last := wire[len(wire)-1]
	testboil.FailTestIfDiff(t, last.Role, model.RoleUser)
	testboil.FailTestIfDiff(t, last.Content, "latest question")

	if h.EstimateTokens() > h.Budget() {
		t.Errorf("estimate %d still exceeds budget %d", h.EstimateTokens(), h.Budget())
	}
}

func TestTruncateNeverDropsTriggeringTurn(t *testing.T) {
	// Budget far below the size of the latest turn alone.
	h := New("sys", 10)
	fillHistory(h, 3, 20)
	h.Add(model.RoleUser, words(100), nil)

	h.Truncate()

	wire := h.FormatForAPI()
	testboil.FailTestIfDiff(t, len(wire), 3)
	testboil.FailTestIfDiff(t, wire[0].Role, model.RoleSystem)
	testboil.FailTestIfDiff(t, wire[1].Content, TruncationNotice)
	testboil.FailTestIfDiff(t, wire[2].Content, words(100))
}

func TestTruncateIdempotent(t *testing.T) {
	tests := []struct {
		name   string
		budget int
		setup  func(h *History)
	}{
		{
			name:   "fits after dropping",
			budget: 300,
			setup: func(h *History) {
				fillHistory(h, 8, 40)
				h.Add(model.RoleUser, "now", nil)
			},
		},
		{
			name:   "minimal history still over budget",
			budget: 5,
			setup: func(h *History) {
				fillHistory(h, 4, 40)
				h.Add(model.RoleUser, words(80), nil)
			},
		},
		{
			name:   "already within budget",
			budget: 100000,
			setup: func(h *History) {
				fillHistory(h, 2, 5)
			},
		},
		{
			name:   "tool exchange after latest user turn",
			budget: 120,
			setup: func(h *History) {
				fillHistory(h, 6, 30)
				h.Add(model.RoleUser, "look it up", nil)
				h.AddAssistant("", []model.ToolCall{{ID: "c1", Name: "search", Arguments: map[string]any{"q": "go"}}}, nil)
				h.AddToolResults([]model.ToolResult{{CallID: "c1", Name: "search", Content: words(10)}})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New("system prompt", tt.budget)
			tt.setup(h)

			h.Truncate()
			first := h.FormatForAPI()
			if dropped := h.Truncate(); dropped != 0 {
				t.Errorf("second Truncate() dropped %d turns, want 0", dropped)
			}
			second := h.FormatForAPI()

			if !reflect.DeepEqual(first, second) {
				t.Errorf("Truncate() not idempotent:\nfirst:  %+v\nsecond: %+v", first, second)
			}
		})
	}
}

func TestTruncateDropsOrphanedToolResults(t *testing.T) {
	h := New("sys", 60)
	h.Add(model.RoleUser, words(30), nil)
	h.AddAssistant("", []model.ToolCall{{ID: "a", Name: "lookup"}}, nil)
	h.AddToolResults([]model.ToolResult{{CallID: "a", Name: "lookup", Content: words(30)}})
	h.Add(model.RoleAssistant, words(30), nil)
	h.Add(model.RoleUser, "next", nil)

	h.Truncate()

	for _, msg := range h.FormatForAPI() {
		if msg.Role == model.RoleTool {
			t.Fatalf("tool result survived without its assistant turn: %+v", msg)
		}
	}
}

func TestTruncateSingleNotice(t *testing.T) {
	h := New("sys", 100)
	fillHistory(h, 6, 30)
	h.Add(model.RoleUser, "first", nil)
	h.Truncate()

	fillHistory(h, 6, 30)
	h.Add(model.RoleUser, "second", nil)
	h.Truncate()

	notices := 0
	for _, msg := range h.FormatForAPI() {
		if msg.Content == TruncationNotice {
			notices++
		}
	}
	testboil.FailTestIfDiff(t, notices, 1)
}

func TestFormatForAPIExpandsResults(t *testing.T) {
	h := New("sys", 0)
	h.Add(model.RoleUser, "add numbers", nil)
	h.AddAssistant("", []model.ToolCall{
		{ID: "1", Name: "add", Arguments: map[string]any{"a": 1}},
		{ID: "2", Name: "missing"},
	}, nil)
	h.AddToolResults([]model.ToolResult{
		{CallID: "1", Name: "add", Content: "3"},
		{CallID: "2", Name: "missing", Content: "Tool 'missing' not found", IsError: true},
	})

	wire := h.FormatForAPI()
	testboil.FailTestIfDiff(t, len(wire), 5)
	testboil.FailTestIfDiff(t, h.Len(), 3)

	testboil.FailTestIfDiff(t, wire[3].Role, model.RoleTool)
	testboil.FailTestIfDiff(t, wire[3].ToolCallID, "1")
	testboil.FailTestIfDiff(t, wire[3].Content, "3")
	testboil.FailTestIfDiff(t, wire[4].ToolCallID, "2")
	testboil.FailTestIfDiff(t, wire[4].IsError, true)

	// Mutating the returned slice must not leak back.
	wire[2].ToolCalls[0].Name = "changed"
	testboil.FailTestIfDiff(t, h.Turns()[1].ToolCalls[0].Name, "add")
}

func TestAddAccumulatesUsage(t *testing.T) {
	h := New("sys", 0)
	h.Add(model.RoleUser, "hi", nil)
	h.AddAssistant("hello", nil, &model.Usage{PromptTokens: 10, CompletionTokens: 2})
	h.Add(model.RoleUser, "again", nil)
	h.AddAssistant("hello again", nil, &model.Usage{PromptTokens: 15, CompletionTokens: 3})

	testboil.FailTestIfDiff(t, h.Usage(), model.Usage{PromptTokens: 25, CompletionTokens: 5})
	testboil.FailTestIfDiff(t, h.Usage().Total(), 30)
}

func TestAddIgnoresSystemTurns(t *testing.T) {
	h := New("sys", 0)
	h.Add(model.RoleSystem, "second system prompt", nil)
	h.Add(model.RoleUser, "hi", nil)

	wire := h.FormatForAPI()
	testboil.FailTestIfDiff(t, len(wire), 2)
	testboil.FailTestIfDiff(t, wire[0].Content, "sys")
}
