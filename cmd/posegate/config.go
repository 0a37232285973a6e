package main

import (
	"fmt"

	cli "github.com/spf13/cobra"
)

var configCmd = &cli.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Long: `Show the effective configuration after defaults, the config file and
POSEGATE_* environment variables are applied.

Configuration locations:
  System: /etc/posegate/posegate.yaml
  User:   ~/.config/posegate/posegate.yaml`,
	Args: cli.NoArgs,
	RunE: runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(cmd *cli.Command, args []string) error {
	data, err := cfg.Marshal()
	if err != nil {
		return fmt.Errorf("failed to render configuration: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}
