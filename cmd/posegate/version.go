package main

import (
	"fmt"
	"runtime"

	cli "github.com/spf13/cobra"
)

var versionCmd = &cli.Command{
	Use:   "version",
	Short: "Show version information",
	Args:  cli.NoArgs,
	// Skip config loading so version works with a broken config.
	PersistentPreRunE: func(cmd *cli.Command, args []string) error { return nil },
	Run: func(cmd *cli.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "PoseGate v%s\n", version)
		fmt.Fprintln(out, "Pose-gated face and password authentication")
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Build Information:")
		fmt.Fprintf(out, "  Go version: %s\n", runtime.Version())
		fmt.Fprintf(out, "  Platform:   %s/%s\n", runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
