package commands

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/cascadedp/pkg/cdp"
	"github.com/Sumatoshi-tech/cascadedp/pkg/system"
)

const (
	renderCmdOutputFlag = "output"
	renderChartTitle    = "CascadeDP subtree depth histogram"
)

// NewRenderCommand creates the render subcommand, which writes an HTML bar
// chart of how many records live at each depth of a subtree.
func NewRenderCommand() *cobra.Command {
	var (
		outputFile     string
		checkpointDir  string
		checkpointName string
	)

	cmd := &cobra.Command{
		Use:   "render [path]",
		Short: "Render a depth-histogram chart of a subtree",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cobraCmd *cobra.Command, args []string) error {
			path := "/"
			if len(args) > 0 {
				path = args[0]
			}

			if outputFile == "" {
				return fmt.Errorf("%w: --output is required", ErrUsage)
			}

			return runRender(cobraCmd.Context(), path, outputFile, checkpointDir, checkpointName)
		},
	}

	cmd.Flags().StringVarP(&outputFile, renderCmdOutputFlag, "o", "", "output HTML file path")
	cmd.Flags().StringVar(&checkpointDir, "checkpoint-dir", "", "load a checkpoint from this directory instead of the live demo tree")
	cmd.Flags().StringVar(&checkpointName, "checkpoint", "", "checkpoint name to load from --checkpoint-dir")

	return cmd
}

func runRender(ctx context.Context, path, outputFile, checkpointDir, checkpointName string) error {
	root, err := resolveInspectRoot(checkpointDir, checkpointName)
	if err != nil {
		return err
	}

	rec, err := resolvePath(root, path)
	if err != nil {
		return err
	}

	histogram, err := depthHistogram(ctx, rec)
	if err != nil {
		return fmt.Errorf("walk subtree: %w", err)
	}

	f, err := os.Create(outputFile) //nolint:gosec // CLI-supplied output path by design.
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer f.Close()

	return renderHistogram(histogram, f)
}

// depthHistogram walks rec's subtree and counts how many records appear at
// each depth, rec itself at depth 0.
func depthHistogram(ctx context.Context, rec *cdp.Record) (map[int]int, error) {
	counts := map[int]int{}

	err := rec.DeepTraverse(ctx, func(entry cdp.Entry) error {
		counts[entry.Depth]++

		return nil
	})
	if err != nil {
		return nil, err
	}

	return counts, nil
}

func renderHistogram(histogram map[int]int, w *os.File) error {
	depths := make([]int, 0, len(histogram))
	for d := range histogram {
		depths = append(depths, d)
	}

	sort.Ints(depths)

	labels := make([]string, 0, len(depths))
	values := make([]opts.BarData, 0, len(depths))

	for _, d := range depths {
		labels = append(labels, fmt.Sprintf("depth %d", d))
		values = append(values, opts.BarData{Value: histogram[d]})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(charts.WithTitleOpts(opts.Title{Title: renderChartTitle}))
	bar.SetXAxis(labels).AddSeries("records", values)

	return bar.Render(w)
}
