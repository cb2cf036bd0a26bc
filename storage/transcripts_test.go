package storage

import (
	"errors"
	"strings"
	"testing"
	"time"

	"agentflow/model"

	"github.com/baalimago/go_away_boilerplate/pkg/testboil"
)

func openTestStore(t *testing.T) *TranscriptStore {
	t.Helper()
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleMessages(question string) []model.Message {
	return []model.Message{
		{Role: model.RoleSystem, Content: "You are helpful."},
		{Role: model.RoleUser, Content: question},
		{Role: model.RoleAssistant, ToolCalls: []model.ToolCall{{ID: "c1", Name: "calculator", Arguments: map[string]any{"expression": "3*4"}}}},
		{Role: model.RoleTool, Content: "12", ToolCallID: "c1", ToolName: "calculator"},
		{Role: model.RoleAssistant, Content: "The answer is 12."},
	}
}

func TestSaveAndLoad(t *testing.T) {
	s := openTestStore(t)

	tr := &Transcript{
		Agent:    "default",
		Model:    "gpt-4o-mini",
		Usage:    model.Usage{PromptTokens: 40, CompletionTokens: 8},
		Messages: sampleMessages("What is 3*4?"),
	}
	if err := s.Save(tr); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if tr.ID == "" {
		t.Fatal("Save should assign an id")
	}
	testboil.FailTestIfDiff(t, tr.Title, "What is 3*4?")

	got, err := s.Load(tr.ID)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	testboil.FailTestIfDiff(t, got.Agent, "default")
	testboil.FailTestIfDiff(t, got.Model, "gpt-4o-mini")
	testboil.FailTestIfDiff(t, got.Usage, tr.Usage)
	testboil.FailTestIfDiff(t, len(got.Messages), 5)
	testboil.FailTestIfDiff(t, got.Messages[2].ToolCalls[0].Name, "calculator")
	testboil.FailTestIfDiff(t, got.Messages[3].ToolCallID, "c1")
	if got.CreatedAt.Sub(tr.CreatedAt).Abs() > time.Millisecond {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, tr.CreatedAt)
	}
}

func TestLoadMissing(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.Load("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := s.Delete("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListNewestFirst(t *testing.T) {
	s := openTestStore(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, q := range []string{"first", "second", "third"} {
		err := s.Save(&Transcript{
			ID:        q,
			Agent:     "a",
			Model:     "m",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
			Messages:  sampleMessages(q),
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	all, err := s.List(0)
	if err != nil {
		t.Fatal(err)
	}
	testboil.FailTestIfDiff(t, len(all), 3)
	testboil.FailTestIfDiff(t, all[0].ID, "third")
	testboil.FailTestIfDiff(t, all[2].ID, "first")
	testboil.FailTestIfDiff(t, all[0].MessageCount, 5)

	limited, err := s.List(2)
	if err != nil {
		t.Fatal(err)
	}
	testboil.FailTestIfDiff(t, len(limited), 2)

	if err := s.Delete("second"); err != nil {
		t.Fatal(err)
	}
	all, _ = s.List(0)
	testboil.FailTestIfDiff(t, len(all), 2)
}

func TestSaveReplaces(t *testing.T) {
	s := openTestStore(t)
	tr := &Transcript{ID: "x", Agent: "a", Model: "m", Messages: sampleMessages("q")}
	if err := s.Save(tr); err != nil {
		t.Fatal(err)
	}
	tr.Messages = append(tr.Messages, model.Message{Role: model.RoleUser, Content: "follow-up"})
	if err := s.Save(tr); err != nil {
		t.Fatal(err)
	}

	got, err := s.Load("x")
	if err != nil {
		t.Fatal(err)
	}
	testboil.FailTestIfDiff(t, len(got.Messages), 6)
}

func TestSearch(t *testing.T) {
	s := openTestStore(t)
	_ = s.Save(&Transcript{ID: "one", Agent: "a", Model: "m", Messages: sampleMessages("Tell me about Go channels")})
	_ = s.Save(&Transcript{ID: "two", Agent: "a", Model: "m", Messages: sampleMessages("Rust lifetimes")})

	matches, err := s.Search("CHANNELS")
	if err != nil {
		t.Fatal(err)
	}
	testboil.FailTestIfDiff(t, len(matches), 1)
	testboil.FailTestIfDiff(t, matches[0].TranscriptID, "one")
	testboil.FailTestIfDiff(t, matches[0].MessageIndex, 1)

	// System prompts are not searched.
	matches, _ = s.Search("helpful")
	testboil.FailTestIfDiff(t, len(matches), 0)

	matches, _ = s.Search("")
	testboil.FailTestIfDiff(t, len(matches), 0)
}

func TestTitle(t *testing.T) {
	long := strings.Repeat("word ", 20)
	got := Title([]model.Message{{Role: model.RoleUser, Content: long}})
	testboil.FailTestIfDiff(t, got, strings.Repeat("word ", 6)+"...")

	got = Title([]model.Message{{Role: model.RoleUser, Content: " multi\nline\r\n text "}})
	testboil.FailTestIfDiff(t, got, "multi line text")

	got = Title(nil)
	if !strings.HasPrefix(got, "Run ") {
		t.Errorf("fallback title = %q", got)
	}
}
