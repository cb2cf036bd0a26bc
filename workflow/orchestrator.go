package workflow

import (
	"context"
	"fmt"
	"maps"
	"strings"

	"agentflow/model"

	"golang.org/x/sync/errgroup"
)

// Task is one subtask proposed by the orchestrator.
type Task struct {
	Type        string
	Description string
}

// WorkerResult is a worker's answer to one Task.
type WorkerResult struct {
	Task
	Result string
}

type OrchestratorResult struct {
	Analysis string
	Results  []WorkerResult
}

// Orchestrator breaks a task down with Prompt and answers each subtask with
// WorkerPrompt.
//
// Prompt is formatted with {task} plus the caller's variables and should ask
// for <analysis> and <tasks>. WorkerPrompt additionally gets {original_task},
// {task_type} and {task_description}, and should ask for <response>.
type Orchestrator struct {
	Prompt       string
	WorkerPrompt string
	// Workers bounds concurrent worker calls; zero means DefaultWorkers.
	Workers int
}

// Process runs the orchestrator call and then one worker call per parsed
// subtask. Results keep the order of the subtasks.
func (o *Orchestrator) Process(ctx context.Context, p model.Provider, task string, vars map[string]string) (*OrchestratorResult, error) {
	input := maps.Clone(vars)
	if input == nil {
		input = map[string]string{}
	}
	input["task"] = task

	prompt, err := FormatPrompt(o.Prompt, input)
	if err != nil {
		return nil, fmt.Errorf("orchestrator prompt: %w", err)
	}
	resp, err := Call(ctx, p, prompt, "")
	if err != nil {
		return nil, fmt.Errorf("orchestrator: %w", err)
	}

	res := &OrchestratorResult{Analysis: strings.TrimSpace(ExtractXML(resp, "analysis"))}
	tasks := ParseTasks(ExtractXML(resp, "tasks"))
	debugf("orchestrator produced %d tasks", len(tasks))
	res.Results = make([]WorkerResult, len(tasks))

	workers := o.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, t := range tasks {
		g.Go(func() error {
			wvars := maps.Clone(vars)
			if wvars == nil {
				wvars = map[string]string{}
			}
			wvars["original_task"] = task
			wvars["task_type"] = t.Type
			wvars["task_description"] = t.Description

			wprompt, err := FormatPrompt(o.WorkerPrompt, wvars)
			if err != nil {
				return fmt.Errorf("worker prompt: %w", err)
			}
			out, err := Call(gctx, p, wprompt, "")
			if err != nil {
				return fmt.Errorf("worker %s: %w", t.Type, err)
			}
			res.Results[i] = WorkerResult{Task: t, Result: strings.TrimSpace(ExtractXML(out, "response"))}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return res, nil
}

// ParseTasks reads <task> blocks with <type> and <description> children, one
// element per line. Tasks without a description are skipped; a missing type
// becomes "default".
func ParseTasks(s string) []Task {
	var tasks []Task
	var cur Task
	var hasDesc bool

	for line := range strings.Lines(s) {
		line = strings.TrimSpace(line)
		switch {
		case line == "":
		case strings.HasPrefix(line, "<task>"):
			cur, hasDesc = Task{}, false
		case strings.HasPrefix(line, "<type>"):
			cur.Type = strings.TrimSpace(between(line, "type"))
		case strings.HasPrefix(line, "<description>"):
			cur.Description = strings.TrimSpace(between(line, "description"))
			hasDesc = true
		case strings.HasPrefix(line, "</task>"):
			if !hasDesc {
				continue
			}
			if cur.Type == "" {
				cur.Type = "default"
			}
			tasks = append(tasks, cur)
		}
	}
	return tasks
}

func between(line, tag string) string {
	line = strings.TrimPrefix(line, "<"+tag+">")
	return strings.TrimSuffix(line, "</"+tag+">")
}
