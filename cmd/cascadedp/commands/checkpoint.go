package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/cascadedp/pkg/checkpoint"
	"github.com/Sumatoshi-tech/cascadedp/pkg/system"
)

const defaultCompressionThreshold = 1000

// NewCheckpointCommand creates the checkpoint parent command with its
// save/load/list subcommands, the only way a snapshot of the engine's
// state ever reaches disk: always an explicit, operator-triggered action.
func NewCheckpointCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Save, load, and list checkpoint snapshots",
	}

	cmd.AddCommand(newCheckpointSaveCommand(), newCheckpointLoadCommand(), newCheckpointListCommand())

	return cmd
}

func newCheckpointSaveCommand() *cobra.Command {
	var (
		dir  string
		path string
	)

	cmd := &cobra.Command{
		Use:   "save <name>",
		Short: "Hibernate a subtree of the live demo tree and write it to disk",
		Args:  cobra.ExactArgs(1),
		RunE: func(cobraCmd *cobra.Command, args []string) error {
			if dir == "" {
				return fmt.Errorf("%w: --dir is required", ErrUsage)
			}

			return runCheckpointSave(dir, path, args[0], cobraCmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "checkpoint directory")
	cmd.Flags().StringVar(&path, "path", "/data", "path of the store-bearing subtree to save")

	return cmd
}

func runCheckpointSave(dir, path, name string, out io.Writer) error {
	sys, err := system.New(system.Deps{})
	if err != nil {
		return fmt.Errorf("build system: %w", err)
	}

	rec, err := resolvePath(sys.Root, path)
	if err != nil {
		return err
	}

	if !rec.IsStore() {
		return fmt.Errorf("%w: %s is a data record, not a store", ErrUsage, path)
	}

	mgr := checkpoint.NewManager(dir, defaultCompressionThreshold)
	if err := mgr.Save(name, rec.Store()); err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}

	fmt.Fprintf(out, "saved %s (%s)\n", mgr.Path(name), fileSize(mgr.Path(name)))

	return nil
}

func newCheckpointLoadCommand() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "load <name>",
		Short: "Restore a checkpoint and report its record count",
		Args:  cobra.ExactArgs(1),
		RunE: func(cobraCmd *cobra.Command, args []string) error {
			if dir == "" {
				return fmt.Errorf("%w: --dir is required", ErrUsage)
			}

			return runCheckpointLoad(dir, args[0], cobraCmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "checkpoint directory")

	return cmd
}

func runCheckpointLoad(dir, name string, out io.Writer) error {
	rec, err := loadCheckpointRoot(dir, name)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "restored %s: %d top-level records\n", name, rec.Store().Len())

	return nil
}

func newCheckpointListCommand() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List checkpoint snapshots in a directory",
		Args:  cobra.NoArgs,
		RunE: func(cobraCmd *cobra.Command, _ []string) error {
			if dir == "" {
				return fmt.Errorf("%w: --dir is required", ErrUsage)
			}

			return runCheckpointList(dir, cobraCmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "checkpoint directory")

	return cmd
}

func runCheckpointList(dir string, out io.Writer) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read checkpoint dir: %w", err)
	}

	var names []string

	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".ckpt") {
			names = append(names, strings.TrimSuffix(e.Name(), ".ckpt"))
		}
	}

	sort.Strings(names)

	for _, n := range names {
		fmt.Fprintf(out, "%s (%s)\n", n, fileSize(filepath.Join(dir, n+".ckpt")))
	}

	return nil
}

func fileSize(path string) string {
	info, err := os.Stat(path)
	if err != nil {
		return "unknown size"
	}

	return humanize.Bytes(uint64(info.Size())) //nolint:gosec // file sizes never approach int64 overflow.
}
