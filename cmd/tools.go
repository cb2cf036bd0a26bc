package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"agentflow/mcp"
	"agentflow/model"
	"agentflow/tools"

	"github.com/spf13/cobra"
)

var toolsServers []string

var toolsCmd = &cobra.Command{
	Use:   "tools [filter]",
	Short: "List the tools the agent would see",
	Long:  "Connect to the configured MCP servers and list every tool they offer, fuzzy-filtered by name.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTools,
}

func init() {
	toolsCmd.Flags().StringArrayVar(&toolsServers, "server", nil, "Extra MCP server, as name=command args or name=https://url (repeatable)")
}

func runTools(cmd *cobra.Command, args []string) error {
	servers := cfg.MCP.Servers
	for _, spec := range toolsServers {
		server, err := mcp.ParseServerSpec(spec)
		if err != nil {
			return err
		}
		servers = append(servers, server)
	}
	filter := ""
	if len(args) == 1 {
		filter = args[0]
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	connector := mcp.NewConnector(cfg.MCP)
	return connector.Scope(ctx, servers, func(ctx context.Context, s *mcp.Session) error {
		for _, err := range s.Failures {
			fmt.Fprintln(cmd.ErrOrStderr(), warningStyle.Render("skipped: "+err.Error()))
		}

		set := tools.NewSet(tools.NewThinkTool())
		set.Add(s.Tools()...)
		listTools(cmd.OutOrStdout(), set.Tools(), filter, terminalWidth())
		return nil
	})
}

func listTools(w io.Writer, ts []model.Tool, filter string, width int) {
	names := make([]string, len(ts))
	for i, t := range ts {
		names[i] = t.Name()
	}

	idx := fuzzyFilter(filter, names)
	if len(idx) == 0 {
		fmt.Fprintln(w, dimStyle.Render("no tools match "+filter))
		return
	}
	for _, i := range idx {
		source := "local"
		if rt, ok := ts[i].(*mcp.RemoteTool); ok {
			source = rt.Server()
		}
		line := fmt.Sprintf("%s %s", labelStyle.Render(names[i]), dimStyle.Render("("+source+")"))
		fmt.Fprintln(w, line)
		if desc := ts[i].Definition().Description; desc != "" {
			fmt.Fprintln(w, "  "+preview(desc, width-2))
		}
	}
}
