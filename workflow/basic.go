package workflow

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"agentflow/model"

	"golang.org/x/sync/errgroup"
)

// ErrUnknownRoute is returned by Route when the model selects a key that is
// not in the route table.
var ErrUnknownRoute = errors.New("unknown route")

// DefaultWorkers bounds Parallel when workers is not positive.
const DefaultWorkers = 3

// Chain runs prompts in order, feeding each step's output into the next as
// its input. It returns the last output; with no prompts it returns input.
func Chain(ctx context.Context, p model.Provider, input string, prompts []string) (string, error) {
	result := input
	for i, prompt := range prompts {
		out, err := Call(ctx, p, withInput(prompt, result), "")
		if err != nil {
			return "", fmt.Errorf("chain step %d: %w", i+1, err)
		}
		debugf("chain step %d/%d: %d chars", i+1, len(prompts), len(out))
		result = out
	}
	return result, nil
}

// Parallel applies prompt to every input with at most workers calls in
// flight. Outputs are in input order. The first failure cancels the rest.
func Parallel(ctx context.Context, p model.Provider, prompt string, inputs []string, workers int) ([]string, error) {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	outputs := make([]string, len(inputs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, input := range inputs {
		g.Go(func() error {
			out, err := Call(gctx, p, withInput(prompt, input), "")
			if err != nil {
				return fmt.Errorf("input %d: %w", i, err)
			}
			outputs[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outputs, nil
}

// RouteResult reports the selected route and the specialist's answer.
type RouteResult struct {
	Reasoning string
	Route     string
	Output    string
}

const selectorPrompt = `Analyze the input and select the most appropriate support team from these options: [%s]
First explain your reasoning, then provide your selection in this XML format:

<reasoning>
Brief explanation of why this ticket should be routed to a specific team.
Consider key terms, user intent, and urgency level.
</reasoning>

<selection>
The chosen team name
</selection>

Input: %s`

// Route asks the model to pick one of routes for input, then answers input
// with the selected route's prompt. Route keys are matched in lower case.
func Route(ctx context.Context, p model.Provider, input string, routes map[string]string) (*RouteResult, error) {
	keys := make([]string, 0, len(routes))
	table := make(map[string]string, len(routes))
	for k, v := range routes {
		key := strings.ToLower(strings.TrimSpace(k))
		keys = append(keys, key)
		table[key] = v
	}
	slices.Sort(keys)

	resp, err := Call(ctx, p, fmt.Sprintf(selectorPrompt, strings.Join(keys, ", "), input), "")
	if err != nil {
		return nil, fmt.Errorf("route selection: %w", err)
	}
	res := &RouteResult{
		Reasoning: strings.TrimSpace(ExtractXML(resp, "reasoning")),
		Route:     strings.ToLower(strings.TrimSpace(ExtractXML(resp, "selection"))),
	}
	debugf("route selected %q from %v", res.Route, keys)

	prompt, ok := table[res.Route]
	if !ok {
		return res, fmt.Errorf("%w: %q (available: %s)", ErrUnknownRoute, res.Route, strings.Join(keys, ", "))
	}
	res.Output, err = Call(ctx, p, withInput(prompt, input), "")
	if err != nil {
		return res, fmt.Errorf("route %s: %w", res.Route, err)
	}
	return res, nil
}
