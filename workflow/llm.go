// Package workflow composes plain completion calls into the common agent
// patterns: prompt chaining, parallel fan-out, routing, a generator/evaluator
// loop and an orchestrator that delegates subtasks to workers.
//
// None of these use tools; they only need a model.Provider.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"agentflow/config"
	"agentflow/model"
)

// ErrMissingVariable is returned by FormatPrompt when a placeholder has no
// value.
var ErrMissingVariable = errors.New("missing required prompt variable")

// Call sends prompt as a single user turn, preceded by system when it is not
// empty, and returns the reply text.
func Call(ctx context.Context, p model.Provider, prompt, system string) (string, error) {
	msgs := make([]model.Message, 0, 2)
	if system != "" {
		msgs = append(msgs, model.Message{Role: model.RoleSystem, Content: system})
	}
	msgs = append(msgs, model.Message{Role: model.RoleUser, Content: prompt})

	resp, err := p.Chat(ctx, model.ChatRequest{Messages: msgs})
	if err != nil {
		return "", fmt.Errorf("completion: %w", err)
	}
	if resp == nil {
		return "", errors.New("completion: empty response")
	}
	return resp.Content, nil
}

var (
	xmlPatternsMu sync.Mutex
	xmlPatterns   = map[string]*regexp.Regexp{}
)

// ExtractXML returns the content of the first <tag>...</tag> in text, or ""
// when the tag is absent. Content may span lines.
func ExtractXML(text, tag string) string {
	xmlPatternsMu.Lock()
	re, ok := xmlPatterns[tag]
	if !ok {
		q := regexp.QuoteMeta(tag)
		re = regexp.MustCompile(`(?s)<` + q + `>(.*?)</` + q + `>`)
		xmlPatterns[tag] = re
	}
	xmlPatternsMu.Unlock()

	m := re.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return m[1]
}

// FormatPrompt replaces {name} placeholders in tmpl with vars[name]. "{{" and
// "}}" produce literal braces.
func FormatPrompt(tmpl string, vars map[string]string) (string, error) {
	var b strings.Builder
	b.Grow(len(tmpl))

	for i := 0; i < len(tmpl); i++ {
		c := tmpl[i]
		switch {
		case c == '{' && i+1 < len(tmpl) && tmpl[i+1] == '{':
			b.WriteByte('{')
			i++
		case c == '}' && i+1 < len(tmpl) && tmpl[i+1] == '}':
			b.WriteByte('}')
			i++
		case c == '{':
			end := strings.IndexByte(tmpl[i+1:], '}')
			if end < 0 {
				return "", fmt.Errorf("unterminated placeholder at offset %d", i)
			}
			name := strings.TrimSpace(tmpl[i+1 : i+1+end])
			v, ok := vars[name]
			if !ok {
				return "", fmt.Errorf("%w: %q", ErrMissingVariable, name)
			}
			b.WriteString(v)
			i += end + 1
		case c == '}':
			return "", fmt.Errorf("single '}' at offset %d", i)
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), nil
}

func withInput(prompt, input string) string {
	return prompt + "\nInput: " + input
}

func debugf(format string, args ...any) {
	if config.DebugLog != nil {
		config.DebugLog.Printf("[Workflow] "+format, args...)
	}
}
