package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"agentflow/agent"
	"agentflow/mcp"
	"agentflow/model"
	"agentflow/storage"
	"agentflow/tools"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"
)

// agentFlags are shared by run and chat.
type agentFlags struct {
	stubs         []string
	servers       []string
	maxIterations int
	strict        bool
	noThink       bool
}

func (f *agentFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVar(&f.stubs, "stub", nil, "Answer a tool with a constant, as name=value (repeatable)")
	cmd.Flags().StringArrayVar(&f.servers, "server", nil, "Extra MCP server, as name=command args or name=https://url (repeatable)")
	cmd.Flags().IntVar(&f.maxIterations, "max-iterations", 0, "Completion calls allowed per run (default from config)")
	cmd.Flags().BoolVar(&f.strict, "strict", false, "Fail when any MCP server cannot be reached")
	cmd.Flags().BoolVar(&f.noThink, "no-think", false, "Do not offer the built-in think tool")
}

var (
	runFlags    agentFlags
	runMarkdown bool
	runCopy     bool
	runSave     bool
)

var runCmd = &cobra.Command{
	Use:   "run [message]",
	Short: "Run the agent once and print its answer",
	Long:  "Run the agent once and print its answer. Without arguments, or with '-', the message is read from stdin.",
	RunE:  runRun,
}

func init() {
	runFlags.register(runCmd)
	runCmd.Flags().BoolVar(&runMarkdown, "markdown", false, "Render the answer as Markdown")
	runCmd.Flags().BoolVar(&runCopy, "copy", false, "Copy the answer to the clipboard")
	runCmd.Flags().BoolVar(&runSave, "save", false, "Record the conversation in the transcript store")
}

func runRun(cmd *cobra.Command, args []string) error {
	message, err := readMessage(cmd, args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, p, err := buildAgent(runFlags, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	res, err := a.Run(ctx, message)
	if err != nil {
		return err
	}

	printAnswer(cmd.OutOrStdout(), res.Content, runMarkdown)

	if runCopy {
		if err := clipboard.WriteAll(res.Content); err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), warningStyle.Render("could not copy to clipboard: "+err.Error()))
		}
	}
	if runSave {
		id, err := saveTranscript(a, p.GetModel(), res.Usage)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.ErrOrStderr(), dimStyle.Render("saved transcript "+id))
	}
	if verbose {
		fmt.Fprintln(cmd.ErrOrStderr(), dimStyle.Render(fmt.Sprintf("%d iterations, %d tool calls, %d tokens (%d in / %d out)",
			res.Iterations, res.ToolCalls, res.Usage.Total(), res.Usage.PromptTokens, res.Usage.CompletionTokens)))
	}
	return nil
}

func readMessage(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 && !(len(args) == 1 && args[0] == "-") {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	message := strings.TrimSpace(string(data))
	if message == "" {
		return "", fmt.Errorf("no message given")
	}
	return message, nil
}

// buildAgent creates the provider and an agent configured from cfg and flags.
// Loop progress goes to progress when --verbose is set.
func buildAgent(f agentFlags, progress io.Writer) (*agent.Agent, model.Provider, error) {
	if f.maxIterations > 0 {
		cfg.Agent.MaxIterations = f.maxIterations
	}
	if f.strict {
		cfg.MCP.Strict = true
	}
	for _, spec := range f.servers {
		server, err := mcp.ParseServerSpec(spec)
		if err != nil {
			return nil, nil, err
		}
		cfg.MCP.Servers = append(cfg.MCP.Servers, server)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	overrides, err := tools.ParseStubs(f.stubs)
	if err != nil {
		return nil, nil, err
	}

	p, err := newProvider(cfg)
	if err != nil {
		return nil, nil, err
	}

	opts := []agent.Option{agent.WithOverrides(overrides)}
	if !f.noThink {
		opts = append(opts, agent.WithTools(tools.NewThinkTool()))
	}
	if verbose {
		opts = append(opts, agent.WithObserver(progressObserver(progress)))
	}
	a, err := agent.FromConfig(cfg, p, opts...)
	if err != nil {
		return nil, nil, err
	}
	return a, p, nil
}

func saveTranscript(a *agent.Agent, modelName string, usage model.Usage) (string, error) {
	store, err := storage.Open(cfg.DataDir())
	if err != nil {
		return "", err
	}
	defer store.Close()

	t := &storage.Transcript{
		Agent:    a.Name(),
		Model:    modelName,
		Usage:    usage,
		Messages: a.History(),
	}
	if err := store.Save(t); err != nil {
		return "", err
	}
	return t.ID, nil
}

// interrupted reports whether err came from the user hitting Ctrl+C.
func interrupted(err error) bool {
	return errors.Is(err, context.Canceled)
}
