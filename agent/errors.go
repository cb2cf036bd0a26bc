package agent

import (
	"errors"
	"fmt"
)

// ErrLoopBudgetExceeded is returned when a run hits MaxIterations or its
// RunTimeout before the model produced a final answer.
var ErrLoopBudgetExceeded = errors.New("agent loop budget exceeded")

// ErrEmptyResponse is wrapped in a CompletionServiceError when a provider
// returns neither a response nor an error.
var ErrEmptyResponse = errors.New("completion service returned no response")

// CompletionServiceError wraps a failed completion call. The loop does not
// retry; the error ends the run.
type CompletionServiceError struct {
	Iteration int
	Err       error
}

func (e *CompletionServiceError) Error() string {
	return fmt.Sprintf("completion failed at iteration %d: %v", e.Iteration, e.Err)
}

func (e *CompletionServiceError) Unwrap() error {
	return e.Err
}
