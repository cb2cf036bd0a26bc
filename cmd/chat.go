package cmd

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	chatFlags    agentFlags
	chatMarkdown bool
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to one agent interactively",
	Long: `Talk to one agent interactively. History persists across turns.

Commands: /tools, /usage, /reset, /save, exit.`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	chatFlags.register(chatCmd)
	chatCmd.Flags().BoolVar(&chatMarkdown, "markdown", true, "Render answers as Markdown")
}

var exitCommands = map[string]bool{
	"exit":  true,
	"quit":  true,
	"/exit": true,
	"/quit": true,
	":q":    true,
}

func runChat(cmd *cobra.Command, _ []string) error {
	a, p, err := buildAgent(chatFlags, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()

	fmt.Fprintf(out, "%s %s (type 'exit' to quit)\n\n", labelStyle.Render(a.Name()), dimStyle.Render(p.GetModel()))

	scanner := bufio.NewScanner(cmd.InOrStdin())
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		fmt.Fprint(out, userStyle.Render("You: "))
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case exitCommands[strings.ToLower(line)]:
			return nil
		case line == "/reset":
			a.Reset()
			fmt.Fprintln(out, dimStyle.Render("history cleared"))
			continue
		case line == "/tools":
			fmt.Fprintln(out, dimStyle.Render(strings.Join(a.Tools(), ", ")))
			continue
		case line == "/usage":
			u := a.Usage()
			fmt.Fprintln(out, dimStyle.Render(fmt.Sprintf("%d tokens (%d in / %d out)", u.Total(), u.PromptTokens, u.CompletionTokens)))
			continue
		case line == "/save":
			id, err := saveTranscript(a, p.GetModel(), a.Usage())
			if err != nil {
				fmt.Fprintln(errOut, errorStyle.Render("Error:"), err)
				continue
			}
			fmt.Fprintln(out, dimStyle.Render("saved transcript "+id))
			continue
		}

		// Ctrl+C cancels the current turn, not the session.
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		res, err := a.Run(ctx, line)
		stop()

		switch {
		case interrupted(err):
			fmt.Fprintln(errOut, warningStyle.Render("interrupted"))
		case err != nil:
			fmt.Fprintln(errOut, errorStyle.Render("Error:"), err)
		default:
			fmt.Fprintln(out)
			fmt.Fprintln(out, labelStyle.Render(a.Name()+":"))
			printAnswer(out, res.Content, chatMarkdown)
			fmt.Fprintln(out)
		}
	}
}
