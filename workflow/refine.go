package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"agentflow/model"
)

// ErrRefineBudgetExceeded is returned when no attempt passed evaluation
// within the allowed rounds.
var ErrRefineBudgetExceeded = errors.New("refine budget exceeded")

// DefaultRefineRounds bounds Refine when maxRounds is not positive.
const DefaultRefineRounds = 5

// Evaluation verdicts.
const (
	Pass             = "PASS"
	NeedsImprovement = "NEEDS_IMPROVEMENT"
	Fail             = "FAIL"
)

// Attempt is one generate/evaluate round.
type Attempt struct {
	Thoughts   string
	Response   string
	Evaluation string
	Feedback   string
}

// RefineResult holds the accepted output and every attempt that led to it.
type RefineResult struct {
	Output   string
	Attempts []Attempt
}

// Refine generates a solution for task, has it evaluated, and regenerates
// with the earlier attempts and the latest feedback until the evaluator
// answers PASS. It gives up after maxRounds generations; the attempts made so
// far are returned alongside ErrRefineBudgetExceeded.
func Refine(ctx context.Context, p model.Provider, task, evaluatorPrompt, generatorPrompt string, maxRounds int) (*RefineResult, error) {
	if maxRounds <= 0 {
		maxRounds = DefaultRefineRounds
	}
	res := &RefineResult{}
	var memory []string
	feedback := ""

	for round := 1; round <= maxRounds; round++ {
		thoughts, response, err := generate(ctx, p, generatorPrompt, task, refineContext(memory, feedback))
		if err != nil {
			return res, fmt.Errorf("generate round %d: %w", round, err)
		}
		memory = append(memory, response)

		evaluation, fb, err := evaluate(ctx, p, evaluatorPrompt, response, task)
		if err != nil {
			return res, fmt.Errorf("evaluate round %d: %w", round, err)
		}
		res.Attempts = append(res.Attempts, Attempt{
			Thoughts:   thoughts,
			Response:   response,
			Evaluation: evaluation,
			Feedback:   fb,
		})
		debugf("refine round %d/%d: %s", round, maxRounds, evaluation)

		if evaluation == Pass {
			res.Output = response
			return res, nil
		}
		feedback = fb
	}
	return res, fmt.Errorf("%w: no passing attempt in %d rounds", ErrRefineBudgetExceeded, maxRounds)
}

func refineContext(memory []string, feedback string) string {
	if len(memory) == 0 {
		return ""
	}
	lines := []string{"Previous attempts:"}
	for _, m := range memory {
		lines = append(lines, "- "+m)
	}
	lines = append(lines, "\nFeedback: "+feedback)
	return strings.Join(lines, "\n")
}

func generate(ctx context.Context, p model.Provider, prompt, task, earlier string) (thoughts, response string, err error) {
	full := prompt + "\nTask: " + task
	if earlier != "" {
		full = prompt + "\n" + earlier + "\nTask: " + task
	}
	out, err := Call(ctx, p, full, "")
	if err != nil {
		return "", "", err
	}
	return strings.TrimSpace(ExtractXML(out, "thoughts")), strings.TrimSpace(ExtractXML(out, "response")), nil
}

func evaluate(ctx context.Context, p model.Provider, prompt, content, task string) (evaluation, feedback string, err error) {
	full := prompt + "\nOriginal task: " + task + "\nContent to evaluate: " + content
	out, err := Call(ctx, p, full, "")
	if err != nil {
		return "", "", err
	}
	evaluation = strings.ToUpper(strings.TrimSpace(ExtractXML(out, "evaluation")))
	return evaluation, strings.TrimSpace(ExtractXML(out, "feedback")), nil
}
