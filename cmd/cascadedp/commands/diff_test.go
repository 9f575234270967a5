package commands

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/cascadedp/pkg/checkpoint"
	"github.com/Sumatoshi-tech/cascadedp/pkg/system"
)

func TestRenderTreeIsDeterministic(t *testing.T) {
	t.Parallel()

	sys, err := system.New(system.Deps{})
	require.NoError(t, err)

	first, err := renderTree(context.Background(), sys.Root)
	require.NoError(t, err)

	second, err := renderTree(context.Background(), sys.Root)
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.Contains(t, first, "/data")
}

func TestRunDiffReportsDifferenceBetweenSnapshots(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	sysA, err := system.New(system.Deps{})
	require.NoError(t, err)

	mgr := checkpoint.NewManager(dir, defaultCompressionThreshold)
	require.NoError(t, mgr.Save("a", sysA.Data.Store()))

	sysB, err := system.New(system.Deps{})
	require.NoError(t, err)

	_, err = wireDemoCounter(sysB)
	require.NoError(t, err)

	require.NoError(t, mgr.Save("b", sysB.Data.Store()))

	var out bytes.Buffer

	err = runDiff(context.Background(), dir, "a", "b", &out)
	require.NoError(t, err)
	require.Contains(t, out.String(), "+")
}

func TestRunDiffRequiresBothCheckpoints(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	err := runDiff(context.Background(), t.TempDir(), "missing-a", "missing-b", &out)
	require.Error(t, err)
}
