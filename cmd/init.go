package cmd

import (
	"fmt"

	"agentflow/config"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:         "init",
	Short:       "Write the default config file",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{skipConfig: "true"},
	RunE: func(cmd *cobra.Command, _ []string) error {
		path := configPath
		if path == "" {
			path = config.GetConfigFilePath()
		}
		path = config.ExpandPath(path)

		written, err := config.WriteConfigTemplate(path)
		if err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		if !written {
			fmt.Fprintln(cmd.OutOrStdout(), dimStyle.Render("config already exists at "+path))
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), "wrote "+labelStyle.Render(path))
		return nil
	},
}
