package cmd

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"agentflow/agent"

	markdown "github.com/MichaelMure/go-term-markdown"
	"github.com/charmbracelet/lipgloss"
	gomarkdown "github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/parser"
	"github.com/mattn/go-runewidth"
	"github.com/sahilm/fuzzy"
)

var (
	dimColor     = lipgloss.Color("7")
	accentColor  = lipgloss.Color("12")
	successColor = lipgloss.Color("10")
	warningColor = lipgloss.Color("11")
	dangerColor  = lipgloss.Color("9")

	labelStyle   = lipgloss.NewStyle().Foreground(accentColor).Bold(true)
	userStyle    = lipgloss.NewStyle().Foreground(successColor).Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(dimColor)
	warningStyle = lipgloss.NewStyle().Foreground(warningColor)
	errorStyle   = lipgloss.NewStyle().Foreground(dangerColor).Bold(true)
)

const defaultWidth = 80

// terminalWidth honours $COLUMNS and falls back to 80.
func terminalWidth() int {
	if n, err := strconv.Atoi(os.Getenv("COLUMNS")); err == nil && n > 20 {
		return n
	}
	return defaultWidth
}

// renderMarkdown renders content for the terminal. Autolink stays off so
// URLs remain plain text the terminal can detect.
func renderMarkdown(content string, width int) string {
	ext := markdown.Extensions() &^ parser.Autolink
	p := parser.NewWithExtensions(ext)
	r := markdown.NewRenderer(width-4, 0)
	return string(gomarkdown.Render(p.Parse([]byte(content)), r))
}

func printAnswer(w io.Writer, content string, asMarkdown bool) {
	if asMarkdown {
		fmt.Fprint(w, renderMarkdown(content, terminalWidth()))
		return
	}
	fmt.Fprintln(w, content)
}

// preview collapses whitespace and cuts s to width display cells.
func preview(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	return runewidth.Truncate(s, width, "...")
}

// fuzzyFilter returns the indexes of targets matching query, best first. An
// empty query keeps every target in order.
func fuzzyFilter(query string, targets []string) []int {
	if query == "" {
		idx := make([]int, len(targets))
		for i := range idx {
			idx[i] = i
		}
		return idx
	}
	matches := fuzzy.Find(query, targets)
	idx := make([]int, len(matches))
	for i, m := range matches {
		idx[i] = m.Index
	}
	return idx
}

// progressObserver prints tool activity to w as the loop runs.
func progressObserver(w io.Writer) agent.Observer {
	width := terminalWidth()
	return func(ev agent.Event) {
		switch ev.State {
		case agent.CallingModel:
			for _, r := range ev.Results {
				status := dimStyle.Render("ok")
				if r.IsError {
					status = errorStyle.Render("error")
				}
				fmt.Fprintf(w, "  %s %s %s %s\n", dimStyle.Render("<-"), r.Name, status, dimStyle.Render(preview(r.Content, width-len(r.Name)-16)))
			}
			fmt.Fprintf(w, "%s %s\n", dimStyle.Render(fmt.Sprintf("[%d]", ev.Iteration)), dimStyle.Render("calling model..."))
		case agent.AwaitingToolResults:
			for _, c := range ev.Calls {
				fmt.Fprintf(w, "  %s %s %s\n", labelStyle.Render("->"), c.Name, dimStyle.Render(preview(fmt.Sprint(c.Arguments), width-len(c.Name)-8)))
			}
		}
	}
}
