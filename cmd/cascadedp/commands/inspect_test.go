package commands

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunInspectStoreListsChildren(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	err := runInspect("/data", "", "", &out)
	require.NoError(t, err)
}

func TestRunInspectDataPrintsSingleLine(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	err := runInspect("/system/void", "", "", &out)
	require.NoError(t, err)
}

func TestRunInspectUnresolvedPathErrors(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	err := runInspect("/no/such/path", "", "", &out)
	require.ErrorIs(t, err, ErrPathNotFound)
}

func TestRunInspectRequiresCheckpointDirWhenNameGiven(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	err := runInspect("/", "", "some-checkpoint", &out)
	require.ErrorIs(t, err, ErrUsage)
}

func TestResolveInspectRootDefaultsToLiveSystem(t *testing.T) {
	t.Parallel()

	root, err := resolveInspectRoot("", "")
	require.NoError(t, err)
	require.NotNil(t, root)
	require.True(t, root.IsStore())
}
