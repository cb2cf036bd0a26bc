package workflow

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"agentflow/model"
	"agentflow/provider/testutil"

	"github.com/baalimago/go_away_boilerplate/pkg/testboil"
)

// lastUser returns the content of the last user message of req.
func lastUser(req model.ChatRequest) string {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == model.RoleUser {
			return req.Messages[i].Content
		}
	}
	return ""
}

func replyWith(fn func(prompt string) (string, error)) *testutil.MockProvider {
	p := testutil.NewMockProvider("mock")
	p.ChatFunc = func(ctx context.Context, req model.ChatRequest) (*model.ChatResponse, error) {
		out, err := fn(lastUser(req))
		if err != nil {
			return nil, err
		}
		return testutil.Answer(out), nil
	}
	return p
}

func TestExtractXML(t *testing.T) {
	tests := []struct {
		name, text, tag, want string
	}{
		{"simple", "<a>x</a>", "a", "x"},
		{"first match", "<a>1</a><a>2</a>", "a", "1"},
		{"multiline", "pre <r>\nline1\nline2\n</r> post", "r", "\nline1\nline2\n"},
		{"missing", "<a>x</a>", "b", ""},
		{"unclosed", "<a>x", "a", ""},
		{"meta chars in tag", "<a.b>x</a.b><aXb>y</aXb>", "a.b", "x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testboil.FailTestIfDiff(t, ExtractXML(tt.text, tt.tag), tt.want)
		})
	}
}

func TestFormatPrompt(t *testing.T) {
	vars := map[string]string{"task": "write", "style": "short"}

	got, err := FormatPrompt("Do {task} in a {style} way. Literal {{braces}}.", vars)
	if err != nil {
		t.Fatal(err)
	}
	testboil.FailTestIfDiff(t, got, "Do write in a short way. Literal {braces}.")

	_, err = FormatPrompt("Do {missing}", vars)
	if !errors.Is(err, ErrMissingVariable) {
		t.Errorf("expected ErrMissingVariable, got %v", err)
	}
	if _, err := FormatPrompt("open {task", vars); err == nil {
		t.Error("expected error for unterminated placeholder")
	}
	if _, err := FormatPrompt("stray } brace", vars); err == nil {
		t.Error("expected error for single closing brace")
	}
}

func TestCallSendsSystemPrompt(t *testing.T) {
	p := testutil.NewScriptedProvider(
		testutil.Step{Response: testutil.Answer("a")},
		testutil.Step{Response: testutil.Answer("b")},
	)
	if _, err := Call(context.Background(), p, "hi", "be brief"); err != nil {
		t.Fatal(err)
	}
	if _, err := Call(context.Background(), p, "hi", ""); err != nil {
		t.Fatal(err)
	}

	reqs := p.Requests()
	testboil.FailTestIfDiff(t, len(reqs[0].Messages), 2)
	testboil.FailTestIfDiff(t, reqs[0].Messages[0].Role, model.RoleSystem)
	testboil.FailTestIfDiff(t, len(reqs[1].Messages), 1)
	testboil.FailTestIfDiff(t, len(reqs[1].Tools), 0)
}

func TestChain(t *testing.T) {
	p := replyWith(func(prompt string) (string, error) {
		_, input, _ := strings.Cut(prompt, "\nInput: ")
		step, _, _ := strings.Cut(prompt, "\n")
		return input + "+" + step, nil
	})

	got, err := Chain(context.Background(), p, "x", []string{"s1", "s2", "s3"})
	if err != nil {
		t.Fatal(err)
	}
	testboil.FailTestIfDiff(t, got, "x+s1+s2+s3")

	got, err = Chain(context.Background(), p, "x", nil)
	if err != nil {
		t.Fatal(err)
	}
	testboil.FailTestIfDiff(t, got, "x")
}

func TestChainStopsOnError(t *testing.T) {
	p := testutil.NewScriptedProvider(
		testutil.Step{Response: testutil.Answer("one")},
		testutil.Step{Err: errors.New("rate limited")},
	)
	_, err := Chain(context.Background(), p, "x", []string{"a", "b", "c"})
	if err == nil || !strings.Contains(err.Error(), "chain step 2") {
		t.Fatalf("unexpected error %v", err)
	}
	testboil.FailTestIfDiff(t, p.Calls(), 2)
}

func TestParallelKeepsOrderAndBound(t *testing.T) {
	var inFlight, peak atomic.Int32
	p := replyWith(func(prompt string) (string, error) {
		n := inFlight.Add(1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		_, input, _ := strings.Cut(prompt, "\nInput: ")
		return strings.ToUpper(input), nil
	})

	inputs := []string{"a", "b", "c", "d", "e", "f"}
	got, err := Parallel(context.Background(), p, "upper", inputs, 2)
	if err != nil {
		t.Fatal(err)
	}
	testboil.FailTestIfDiff(t, strings.Join(got, ""), "ABCDEF")
	if peak.Load() > 2 {
		t.Errorf("peak concurrency %d exceeds limit", peak.Load())
	}
}

func TestParallelError(t *testing.T) {
	p := replyWith(func(prompt string) (string, error) {
		if strings.HasSuffix(prompt, "bad") {
			return "", errors.New("refused")
		}
		return "ok", nil
	})
	if _, err := Parallel(context.Background(), p, "p", []string{"good", "bad"}, 0); err == nil {
		t.Fatal("expected error")
	}
}

func TestRoute(t *testing.T) {
	routes := map[string]string{
		"Billing":   "You are a billing specialist.",
		"technical": "You are a support engineer.",
	}

	t.Run("selected route answers", func(t *testing.T) {
		p := testutil.NewScriptedProvider(
			testutil.Step{Response: testutil.Answer("<reasoning>card charge</reasoning>\n<selection>\n  BILLING \n</selection>")},
			testutil.Step{Response: testutil.Answer("refund issued")},
		)
		res, err := Route(context.Background(), p, "I was charged twice", routes)
		if err != nil {
			t.Fatal(err)
		}
		testboil.FailTestIfDiff(t, res.Route, "billing")
		testboil.FailTestIfDiff(t, res.Reasoning, "card charge")
		testboil.FailTestIfDiff(t, res.Output, "refund issued")

		selector := lastUser(p.Requests()[0])
		testboil.AssertStringContains(t, selector, "[billing, technical]")
		testboil.AssertStringContains(t, selector, "Input: I was charged twice")
		testboil.AssertStringContains(t, lastUser(p.Requests()[1]), "You are a billing specialist.")
	})

	t.Run("unknown route", func(t *testing.T) {
		p := testutil.NewScriptedProvider(
			testutil.Step{Response: testutil.Answer("<selection>sales</selection>")},
		)
		res, err := Route(context.Background(), p, "buy", routes)
		if !errors.Is(err, ErrUnknownRoute) {
			t.Fatalf("expected ErrUnknownRoute, got %v", err)
		}
		testboil.FailTestIfDiff(t, res.Route, "sales")
		testboil.FailTestIfDiff(t, p.Calls(), 1)
	})
}

func TestRefine(t *testing.T) {
	p := testutil.NewScriptedProvider(
		testutil.Step{Response: testutil.Answer("<thoughts>t1</thoughts><response>v1</response>")},
		testutil.Step{Response: testutil.Answer("<evaluation>NEEDS_IMPROVEMENT</evaluation><feedback>add tests</feedback>")},
		testutil.Step{Response: testutil.Answer("<thoughts>t2</thoughts><response>v2</response>")},
		testutil.Step{Response: testutil.Answer("<evaluation> pass </evaluation><feedback>good</feedback>")},
	)

	res, err := Refine(context.Background(), p, "implement a stack", "EVAL", "GEN", 3)
	if err != nil {
		t.Fatal(err)
	}
	testboil.FailTestIfDiff(t, res.Output, "v2")
	testboil.FailTestIfDiff(t, len(res.Attempts), 2)
	testboil.FailTestIfDiff(t, res.Attempts[0].Feedback, "add tests")

	first := lastUser(p.Requests()[0])
	testboil.FailTestIfDiff(t, first, "GEN\nTask: implement a stack")

	second := lastUser(p.Requests()[2])
	testboil.AssertStringContains(t, second, "Previous attempts:\n- v1")
	testboil.AssertStringContains(t, second, "Feedback: add tests")

	eval := lastUser(p.Requests()[1])
	testboil.FailTestIfDiff(t, eval, "EVAL\nOriginal task: implement a stack\nContent to evaluate: v1")
}

func TestRefineBudget(t *testing.T) {
	gen := testutil.Step{Response: testutil.Answer("<response>v</response>")}
	fail := testutil.Step{Response: testutil.Answer("<evaluation>FAIL</evaluation><feedback>no</feedback>")}
	p := testutil.NewScriptedProvider(gen, fail, gen, fail)

	res, err := Refine(context.Background(), p, "task", "E", "G", 2)
	if !errors.Is(err, ErrRefineBudgetExceeded) {
		t.Fatalf("expected ErrRefineBudgetExceeded, got %v", err)
	}
	testboil.FailTestIfDiff(t, len(res.Attempts), 2)
	testboil.FailTestIfDiff(t, p.Calls(), 4)
}

func TestParseTasks(t *testing.T) {
	in := `
<task>
<type>formal</type>
<description>Write a precise version</description>
</task>
<task>
<description>No type given</description>
</task>
<task>
<type>orphan</type>
</task>
`
	got := ParseTasks(in)
	want := []Task{
		{Type: "formal", Description: "Write a precise version"},
		{Type: "default", Description: "No type given"},
	}
	testboil.FailTestIfDiff(t, len(got), len(want))
	for i := range want {
		testboil.FailTestIfDiff(t, got[i], want[i])
	}
}

func TestOrchestratorProcess(t *testing.T) {
	var mu sync.Mutex
	var workerPrompts []string
	p := replyWith(func(prompt string) (string, error) {
		if strings.HasPrefix(prompt, "PLAN") {
			return `<analysis>two angles</analysis>
<tasks>
<task>
<type>formal</type>
<description>precise</description>
</task>
<task>
<type>casual</type>
<description>friendly</description>
</task>
</tasks>`, nil
		}
		mu.Lock()
		workerPrompts = append(workerPrompts, prompt)
		mu.Unlock()
		typ, _, _ := strings.Cut(strings.TrimPrefix(prompt, "WORK "), " ")
		return "<response>" + typ + " text</response>", nil
	})

	o := &Orchestrator{
		Prompt:       "PLAN {task} for {audience}",
		WorkerPrompt: "WORK {task_type} {task_description} of {original_task} for {audience}",
	}
	res, err := o.Process(context.Background(), p, "a product blurb", map[string]string{"audience": "devs"})
	if err != nil {
		t.Fatal(err)
	}

	testboil.FailTestIfDiff(t, res.Analysis, "two angles")
	testboil.FailTestIfDiff(t, len(res.Results), 2)
	testboil.FailTestIfDiff(t, res.Results[0].Type, "formal")
	testboil.FailTestIfDiff(t, res.Results[0].Result, "formal text")
	testboil.FailTestIfDiff(t, res.Results[1].Result, "casual text")

	for _, wp := range workerPrompts {
		testboil.AssertStringContains(t, wp, "of a product blurb for devs")
	}
}

func TestOrchestratorMissingVariable(t *testing.T) {
	p := testutil.NewScriptedProvider()
	o := &Orchestrator{Prompt: "PLAN {task} for {audience}", WorkerPrompt: "W"}

	_, err := o.Process(context.Background(), p, "x", nil)
	if !errors.Is(err, ErrMissingVariable) {
		t.Fatalf("expected ErrMissingVariable, got %v", err)
	}
	testboil.FailTestIfDiff(t, p.Calls(), 0)
}
