// Package tools holds the tool registry, the batch executor and a few
// built-in tools.
package tools

import (
	"agentflow/config"
	"agentflow/model"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
)

// Lookup resolves a tool by the name the model used.
type Lookup interface {
	Get(name string) (model.Tool, bool)
}

// Set is an ordered name -> Tool registry. Adding a tool whose name is already
// present replaces the earlier one in place (last registered wins) and keeps
// its original position in Names and Definitions.
type Set struct {
	order  []string
	byName map[string]model.Tool
}

func NewSet(tools ...model.Tool) *Set {
	s := &Set{byName: make(map[string]model.Tool, len(tools))}
	s.Add(tools...)
	return s
}

// Add registers tools in order. It reports the names that replaced an
// existing registration.
func (s *Set) Add(tools ...model.Tool) (replaced []string) {
	for _, t := range tools {
		if t == nil {
			continue
		}
		name := t.Name()
		if _, exists := s.byName[name]; exists {
			replaced = append(replaced, name)
			if config.DebugLog != nil {
				config.DebugLog.Printf("[Tools] Tool '%s' registered again, last registration wins", name)
			}
		} else {
			s.order = append(s.order, name)
		}
		s.byName[name] = t
	}
	return replaced
}

func (s *Set) Get(name string) (model.Tool, bool) {
	t, ok := s.byName[name]
	return t, ok
}

func (s *Set) Len() int {
	return len(s.order)
}

// Names returns tool names in first-registration order.
func (s *Set) Names() []string {
	return append([]string(nil), s.order...)
}

// Tools returns the registered tools in first-registration order.
func (s *Set) Tools() []model.Tool {
	out := make([]model.Tool, len(s.order))
	for i, name := range s.order {
		out[i] = s.byName[name]
	}
	return out
}

// Definitions returns the tool definitions sent to the model.
func (s *Set) Definitions() []mcptypes.Tool {
	return model.Definitions(s.Tools())
}

// Clone returns an independent copy; mutating it leaves s untouched.
func (s *Set) Clone() *Set {
	return NewSet(s.Tools()...)
}
