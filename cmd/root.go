// Package cmd implements the agentflow CLI using cobra.
package cmd

import (
	"fmt"
	"os"

	"agentflow/config"
	"agentflow/provider"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

var (
	configPath string
	verbose    bool

	// cfg is loaded once per invocation by the root PersistentPreRunE.
	cfg *config.Config

	// newProvider is swapped in tests.
	newProvider = provider.FromConfig
)

// skipConfig marks commands that must run without a loaded config.
const skipConfig = "skip-config"

var rootCmd = &cobra.Command{
	Use:           "agentflow",
	Short:         "Tool-calling agent loop over MCP servers",
	Long:          "agentflow runs a tool-calling agent against an OpenAI-compatible, Anthropic or Ollama model,\nwith tools served by local or remote MCP servers.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if cmd.Annotations[skipConfig] == "true" {
			return nil
		}
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded

		if verbose {
			config.InitStderrLog()
		} else {
			config.InitDebugLog(cfg.DataDir())
		}
		return nil
	},
}

// Execute runs the root command and exits on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error:"), err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = version

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (default: "+config.GetConfigFilePath()+")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log loop progress and debug output to stderr")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(toolsCmd)
	rootCmd.AddCommand(workflowCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(transcriptsCmd)
}
