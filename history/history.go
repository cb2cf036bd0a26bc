// Package history keeps the conversation of one agent and fits it into the
// model's context window before every completion call.
package history

import (
	"encoding/json"
	"time"
	"unicode/utf8"

	"agentflow/config"
	"agentflow/model"
)

// TruncationNotice replaces dropped turns so the model knows context is missing.
const TruncationNotice = "[Earlier history has been truncated.]"

// messageOverheadTokens approximates the per-message framing a chat API adds.
const messageOverheadTokens = 4

// History is an ordered log of conversation turns plus the fixed system
// prompt and a token budget. It is not safe for concurrent use; the agent
// loop is its only writer.
type History struct {
	system string
	budget int
	turns  []model.Message
	// noticed is true when turns[0] is the truncation notice.
	noticed bool
	usage   model.Usage
}

// New creates a history. A non-positive contextWindowTokens disables truncation.
func New(systemPrompt string, contextWindowTokens int) *History {
	return &History{
		system: systemPrompt,
		budget: contextWindowTokens,
	}
}

// Add appends a turn. Usage, when present, is accumulated for reporting.
// The system prompt is fixed at construction, so system turns are ignored.
func (h *History) Add(role model.Role, content string, usage *model.Usage) {
	if role == model.RoleSystem {
		if config.DebugLog != nil {
			config.DebugLog.Printf("[History] Ignoring system turn added after construction")
		}
		return
	}
	h.append(model.Message{Role: role, Content: content}, usage)
}

// AddAssistant appends an assistant turn that may request tool calls.
func (h *History) AddAssistant(content string, calls []model.ToolCall, usage *model.Usage) {
	h.append(model.Message{
		Role:      model.RoleAssistant,
		Content:   content,
		ToolCalls: calls,
	}, usage)
}

// AddToolResults appends one consolidated turn holding every result of a batch.
func (h *History) AddToolResults(results []model.ToolResult) {
	if len(results) == 0 {
		return
	}
	h.append(model.Message{
		Role:    model.RoleTool,
		Results: append([]model.ToolResult(nil), results...),
	}, nil)
}

func (h *History) append(msg model.Message, usage *model.Usage) {
	msg.Timestamp = time.Now()
	if usage != nil {
		u := *usage
		msg.Usage = &u
		h.usage = h.usage.Add(u)
	}
	h.turns = append(h.turns, msg)
}

// Truncate drops the oldest non-system turns until the estimated size fits the
// budget, or until only the system prompt and the turns from the latest user
// turn onward remain. A tool-results turn left without its assistant turn is
// dropped with it. Truncate never fails: a history that cannot be shrunk
// further is left as is. It returns the number of turns dropped; calling it
// again without new turns drops nothing.
func (h *History) Truncate() int {
	if h.budget <= 0 {
		return 0
	}
	size := h.EstimateTokens()
	if size <= h.budget {
		return 0
	}

	body := h.turns
	if h.noticed {
		body = body[1:]
	} else {
		size += noticeTokens()
	}

	limit := lastUserIndex(body)
	if limit < 0 {
		limit = len(body) - 1
	}

	start := 0
	for start < limit && size > h.budget {
		size -= estimateMessage(body[start])
		start++
		for start < limit && body[start].Role == model.RoleTool {
			size -= estimateMessage(body[start])
			start++
		}
	}
	if start == 0 {
		return 0
	}

	kept := make([]model.Message, 0, len(body)-start+1)
	kept = append(kept, model.Message{
		Role:      model.RoleUser,
		Content:   TruncationNotice,
		Timestamp: time.Now(),
	})
	kept = append(kept, body[start:]...)
	h.turns = kept
	h.noticed = true

	if config.DebugLog != nil {
		config.DebugLog.Printf("[History] Truncated %d turns (estimate %d tokens, budget %d)", start, size, h.budget)
	}
	return start
}

// FormatForAPI returns the conversation in wire order: the system prompt first,
// then every turn, with each consolidated results turn expanded into one tool
// message per result. It does not modify the history.
func (h *History) FormatForAPI() []model.Message {
	out := make([]model.Message, 0, len(h.turns)+1)
	if h.system != "" {
		out = append(out, model.Message{Role: model.RoleSystem, Content: h.system})
	}
	for _, turn := range h.turns {
		if turn.Role == model.RoleTool && len(turn.Results) > 0 {
			for _, r := range turn.Results {
				out = append(out, model.Message{
					Role:       model.RoleTool,
					Content:    r.Content,
					ToolCallID: r.CallID,
					ToolName:   r.Name,
					IsError:    r.IsError,
					Timestamp:  turn.Timestamp,
				})
			}
			continue
		}
		msg := turn
		msg.ToolCalls = append([]model.ToolCall(nil), turn.ToolCalls...)
		msg.Usage = nil
		out = append(out, msg)
	}
	return out
}

// Turns returns a copy of the stored turns, excluding the system prompt.
func (h *History) Turns() []model.Message {
	return append([]model.Message(nil), h.turns...)
}

func (h *History) Len() int {
	return len(h.turns)
}

func (h *History) System() string {
	return h.system
}

func (h *History) Budget() int {
	return h.budget
}

// Usage returns the token counters accumulated from completion responses.
func (h *History) Usage() model.Usage {
	return h.usage
}

// EstimateTokens approximates the serialized size of the system prompt plus
// every turn.
func (h *History) EstimateTokens() int {
	total := 0
	if h.system != "" {
		total += estimateText(h.system) + messageOverheadTokens
	}
	for _, turn := range h.turns {
		total += estimateMessage(turn)
	}
	return total
}

// Reset drops every turn, keeping the system prompt and budget.
func (h *History) Reset() {
	h.turns = nil
	h.noticed = false
	h.usage = model.Usage{}
}

func lastUserIndex(turns []model.Message) int {
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role == model.RoleUser {
			return i
		}
	}
	return -1
}

func noticeTokens() int {
	return estimateText(TruncationNotice) + messageOverheadTokens
}

func estimateMessage(m model.Message) int {
	n := estimateText(m.Content)
	for _, call := range m.ToolCalls {
		n += estimateText(call.Name)
		if args, err := json.Marshal(call.Arguments); err == nil {
			n += estimateText(string(args))
		}
	}
	for _, r := range m.Results {
		n += estimateText(r.Content) + messageOverheadTokens
	}
	return n + messageOverheadTokens
}

// estimateText uses the common four-characters-per-token approximation.
func estimateText(s string) int {
	return (utf8.RuneCountInString(s) + 3) / 4
}
