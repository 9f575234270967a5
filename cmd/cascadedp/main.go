// Package main provides the entry point for the cascadedp CLI tool.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/cascadedp/cmd/cascadedp/commands"
	"github.com/Sumatoshi-tech/cascadedp/pkg/version"
)

// Exit codes, per the external-interface contract: 0 success, 1 user
// error (bad flags, an unresolvable path), 2 internal error (anything
// else - a rejected dispatch, a corrupt checkpoint file, an I/O failure).
const (
	exitOK       = 0
	exitUsage    = 1
	exitInternal = 2
)

var (
	verbose bool
	quiet   bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "cascadedp",
		Short: "CascadeDP - hierarchical in-memory record engine",
		Long: `cascadedp drives and inspects a CascadeDP record tree.

Commands:
  run         Drive the step loop over a demo cascade pipeline
  inspect     Pretty-print a subtree
  render      Render a depth-histogram chart of a subtree
  diff        Line-diff two checkpoint snapshots
  mcp         Serve a read-only MCP tree-browsing server
  checkpoint  Save, load, and list checkpoint snapshots`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress progress output")

	rootCmd.AddCommand(
		commands.NewRunCommand(),
		commands.NewInspectCommand(),
		commands.NewRenderCommand(),
		commands.NewDiffCommand(),
		commands.NewMCPCommand(),
		commands.NewCheckpointCommand(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		red := color.New(color.FgRed)
		red.Fprintf(os.Stderr, "Error: %v\n", err)

		if errors.Is(err, commands.ErrUsage) {
			os.Exit(exitUsage)
		}

		os.Exit(exitInternal)
	}

	os.Exit(exitOK)
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintln(os.Stdout, version.String())
		},
	}
}
