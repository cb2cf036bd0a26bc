package cmd

import (
	"fmt"
	"strings"

	"agentflow/model"
	"agentflow/storage"

	"github.com/spf13/cobra"
)

var transcriptsLimit int

var transcriptsCmd = &cobra.Command{
	Use:     "transcripts",
	Aliases: []string{"tr"},
	Short:   "Browse runs recorded with --save",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withStore(func(s *storage.TranscriptStore) error {
			list, err := s.List(transcriptsLimit)
			if err != nil {
				return err
			}
			if len(list) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), dimStyle.Render("no transcripts"))
				return nil
			}
			for _, t := range list {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %s\n",
					dimStyle.Render(t.ID[:min(8, len(t.ID))]),
					labelStyle.Render(t.Title),
					dimStyle.Render(fmt.Sprintf("%s · %s · %d msgs · %d tokens", t.CreatedAt.Local().Format("Jan 2 15:04"), t.Model, t.MessageCount, t.Usage.Total())))
			}
			return nil
		})
	},
}

var transcriptShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a recorded conversation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(s *storage.TranscriptStore) error {
			t, err := s.Load(args[0])
			if err != nil {
				return err
			}
			printTranscript(cmd, t)
			return nil
		})
	},
}

var transcriptSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Find messages containing query",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(s *storage.TranscriptStore) error {
			matches, err := s.Search(strings.Join(args, " "))
			if err != nil {
				return err
			}
			for _, m := range matches {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s #%d %s\n  %s\n",
					dimStyle.Render(m.TranscriptID), labelStyle.Render(m.Title), m.MessageIndex, m.Role, m.Preview)
			}
			return nil
		})
	},
}

var transcriptDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a recorded conversation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(s *storage.TranscriptStore) error {
			return s.Delete(args[0])
		})
	},
}

func init() {
	transcriptsCmd.Flags().IntVarP(&transcriptsLimit, "limit", "n", 20, "Show at most n transcripts (0 for all)")
	transcriptsCmd.AddCommand(transcriptShowCmd, transcriptSearchCmd, transcriptDeleteCmd)
}

func withStore(fn func(s *storage.TranscriptStore) error) error {
	s, err := storage.Open(cfg.DataDir())
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}

func printTranscript(cmd *cobra.Command, t *storage.Transcript) {
	out := cmd.OutOrStdout()
	width := terminalWidth()
	fmt.Fprintf(out, "%s %s\n\n", labelStyle.Render(t.Title), dimStyle.Render(t.Agent+" · "+t.Model))
	for _, m := range t.Messages {
		switch m.Role {
		case model.RoleSystem:
			fmt.Fprintln(out, dimStyle.Render("system: "+preview(m.Content, width-8)))
		case model.RoleUser:
			fmt.Fprintln(out, userStyle.Render("You:")+" "+m.Content)
		case model.RoleAssistant:
			for _, c := range m.ToolCalls {
				fmt.Fprintln(out, "  "+labelStyle.Render("->")+" "+c.Name+" "+dimStyle.Render(preview(fmt.Sprint(c.Arguments), width-len(c.Name)-8)))
			}
			if m.Content != "" {
				fmt.Fprintln(out, labelStyle.Render(t.Agent+":")+" "+m.Content)
			}
		case model.RoleTool:
			label := m.ToolName
			if m.IsError {
				label += " " + errorStyle.Render("error")
			}
			fmt.Fprintln(out, "  "+dimStyle.Render("<-")+" "+label+" "+dimStyle.Render(preview(m.Content, width-len(label)-8)))
		}
	}
}
