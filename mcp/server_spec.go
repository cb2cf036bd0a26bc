package mcp

import (
	"fmt"
	"os/exec"
	"strings"

	globalconfig "agentflow/config"
)

// ParseServerSpec parses a server given on the command line:
//
//	name=command arg1 'arg two'
//	name=https://host/mcp
//
// A "~" prefix on the name disables namespacing; every server given this way
// is namespaced otherwise.
func ParseServerSpec(spec string) (globalconfig.ServerConfig, error) {
	name, rest, ok := strings.Cut(spec, "=")
	name = strings.TrimSpace(name)
	rest = strings.TrimSpace(rest)
	if !ok || name == "" || rest == "" {
		return globalconfig.ServerConfig{}, fmt.Errorf("invalid server %q, expected name=command or name=url", spec)
	}

	server := globalconfig.ServerConfig{Name: name, Namespace: true}
	if strings.HasPrefix(name, "~") {
		server.Name = strings.TrimPrefix(name, "~")
		server.Namespace = false
	}

	if strings.HasPrefix(rest, "http://") || strings.HasPrefix(rest, "https://") {
		server.URL = rest
		return server, nil
	}

	tokens, err := tokenizeArgs(rest)
	if err != nil {
		return globalconfig.ServerConfig{}, fmt.Errorf("server %s: %w", server.Name, err)
	}
	server.Command = tokens[0]
	server.Args = tokens[1:]
	return server, nil
}

// tokenizeArgs splits a command line on spaces, keeping quoted runs together.
func tokenizeArgs(argsString string) ([]string, error) {
	var tokens []string
	var current strings.Builder
	var quote byte
	inToken := false

	for i := 0; i < len(argsString); i++ {
		char := argsString[i]

		switch {
		case quote != 0:
			if char == quote {
				quote = 0
				continue
			}
			current.WriteByte(char)
		case char == '\'' || char == '"':
			quote = char
			inToken = true
		case char == ' ' || char == '\t':
			if inToken {
				tokens = append(tokens, current.String())
				current.Reset()
				inToken = false
			}
		default:
			current.WriteByte(char)
			inToken = true
		}
	}

	if quote != 0 {
		return nil, fmt.Errorf("unterminated %c quote", quote)
	}
	if inToken {
		tokens = append(tokens, current.String())
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("empty command")
	}
	return tokens, nil
}

// lookupCommand resolves a stdio server's command on PATH before spawning it,
// so a missing runtime (npx, uvx, python) fails with a readable error.
func lookupCommand(server globalconfig.ServerConfig) (string, error) {
	path, err := exec.LookPath(server.Command)
	if err != nil {
		return "", fmt.Errorf("%s not found on PATH", server.Command)
	}
	return path, nil
}
