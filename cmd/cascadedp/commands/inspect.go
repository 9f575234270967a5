package commands

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/cascadedp/pkg/cdp"
	"github.com/Sumatoshi-tech/cascadedp/pkg/system"
)

// NewInspectCommand creates the inspect subcommand, which pretty-prints a
// subtree of either the live demo tree (default) or a restored checkpoint.
func NewInspectCommand() *cobra.Command {
	var (
		checkpointDir  string
		checkpointName string
	)

	cmd := &cobra.Command{
		Use:   "inspect [path]",
		Short: "Pretty-print a subtree",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cobraCmd *cobra.Command, args []string) error {
			path := "/"
			if len(args) > 0 {
				path = args[0]
			}

			return runInspect(path, checkpointDir, checkpointName, cobraCmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&checkpointDir, "checkpoint-dir", "", "load a checkpoint from this directory instead of the live demo tree")
	cmd.Flags().StringVar(&checkpointName, "checkpoint", "", "checkpoint name to load from --checkpoint-dir")

	return cmd
}

func runInspect(path, checkpointDir, checkpointName string, out io.Writer) error {
	root, err := resolveInspectRoot(checkpointDir, checkpointName)
	if err != nil {
		return err
	}

	rec, err := resolvePath(root, path)
	if err != nil {
		return err
	}

	if rec.IsData() {
		fmt.Fprintf(out, "%s: %s\n", describeName(rec.Meta.Name), describeKind(rec))

		return nil
	}

	return printChildren(rec, out)
}

// resolveInspectRoot returns the live demo system's root, or a record
// wrapping a restored checkpoint's store if checkpointName is set.
func resolveInspectRoot(checkpointDir, checkpointName string) (*cdp.Record, error) {
	if checkpointName == "" {
		sys, err := system.New(system.Deps{})
		if err != nil {
			return nil, fmt.Errorf("build system: %w", err)
		}

		return sys.Root, nil
	}

	return loadCheckpointRoot(checkpointDir, checkpointName)
}

func printChildren(rec *cdp.Record, out io.Writer) error {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.AppendHeader(table.Row{"Name", "Kind"})

	err := rec.Traverse(func(child *cdp.Record, _ int) error {
		t.AppendRow(table.Row{describeName(child.Meta.Name), describeKind(child)})

		return nil
	})
	if err != nil {
		return fmt.Errorf("traverse %v: %w", rec.Meta.Name, err)
	}

	t.Render()

	return nil
}
