package agent

import "agentflow/model"

// State is a step of the agent loop.
type State int

const (
	AwaitingInput State = iota
	CallingModel
	AwaitingToolResults
	Done
)

func (s State) String() string {
	switch s {
	case AwaitingInput:
		return "awaiting_input"
	case CallingModel:
		return "calling_model"
	case AwaitingToolResults:
		return "awaiting_tool_results"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

// Event reports a state the loop entered. Calls is set when entering
// AwaitingToolResults; Results is set once the batch finished, on the
// following CallingModel event; Content is set on Done.
type Event struct {
	State     State
	Iteration int
	Calls     []model.ToolCall
	Results   []model.ToolResult
	Content   string
}

// Observer receives loop events synchronously on the loop goroutine.
type Observer func(Event)
