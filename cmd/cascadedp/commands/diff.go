package commands

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/cascadedp/pkg/cdp"
)

// NewDiffCommand creates the diff subcommand, which line-diffs a flat
// textual rendering of two checkpoint snapshots restored from the same
// directory.
func NewDiffCommand() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "diff <name-a> <name-b>",
		Short: "Line-diff two checkpoint snapshots",
		Args:  cobra.ExactArgs(2), //nolint:mnd // two checkpoint names, by definition.
		RunE: func(cobraCmd *cobra.Command, args []string) error {
			if dir == "" {
				return fmt.Errorf("%w: --dir is required", ErrUsage)
			}

			return runDiff(cobraCmd.Context(), dir, args[0], args[1], cobraCmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "checkpoint directory containing both snapshots")

	return cmd
}

func runDiff(ctx context.Context, dir, nameA, nameB string, out io.Writer) error {
	rootA, err := loadCheckpointRoot(dir, nameA)
	if err != nil {
		return fmt.Errorf("load %q: %w", nameA, err)
	}

	rootB, err := loadCheckpointRoot(dir, nameB)
	if err != nil {
		return fmt.Errorf("load %q: %w", nameB, err)
	}

	textA, err := renderTree(ctx, rootA)
	if err != nil {
		return fmt.Errorf("render %q: %w", nameA, err)
	}

	textB, err := renderTree(ctx, rootB)
	if err != nil {
		return fmt.Errorf("render %q: %w", nameB, err)
	}

	dmp := diffmatchpatch.New()

	runesA, runesB, lines := dmp.DiffLinesToRunes(textA, textB)
	diffs := dmp.DiffMainRunes(runesA, runesB, false)
	diffs = dmp.DiffCharsToLines(diffs, lines)

	printDiffs(diffs, out)

	return nil
}

// renderTree produces a deterministic, one-line-per-record textual
// rendering of rec's subtree: path, kind, and size, sorted by path.
func renderTree(ctx context.Context, rec *cdp.Record) (string, error) {
	var lines []string

	err := rec.DeepTraverse(ctx, func(entry cdp.Entry) error {
		lines = append(lines, fmt.Sprintf("%s %s", pathString(entry.Record), describeKind(entry.Record)))

		return nil
	})
	if err != nil {
		return "", err
	}

	sort.Strings(lines)

	return strings.Join(lines, "\n") + "\n", nil
}

func pathString(rec *cdp.Record) string {
	segments := rec.Path()

	parts := make([]string, len(segments))
	for i, seg := range segments {
		parts[i] = describeName(seg)
	}

	return pathSep + strings.Join(parts, pathSep)
}

func printDiffs(diffs []diffmatchpatch.Diff, out io.Writer) {
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)

	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			green.Fprint(out, "+ "+d.Text)
		case diffmatchpatch.DiffDelete:
			red.Fprint(out, "- "+d.Text)
		case diffmatchpatch.DiffEqual:
			fmt.Fprint(out, "  "+d.Text)
		}
	}
}
