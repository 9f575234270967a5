package checkpoint_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/cascadedp/pkg/cdp"
	"github.com/Sumatoshi-tech/cascadedp/pkg/checkpoint"
	"github.com/Sumatoshi-tech/cascadedp/pkg/dt"
)

func nameFor(t *testing.T, word string) dt.DT {
	t.Helper()

	id, err := dt.EncodeWord(word)
	require.NoError(t, err)

	return dt.DT{Domain: id, Tag: id}
}

func newLeaf(t *testing.T, word string) *cdp.Record {
	t.Helper()

	data, err := cdp.NewData(nameFor(t, word), dt.DT{}, 0, cdp.DataValue, true, []byte(word), len(word), nil)
	require.NoError(t, err)

	rec, err := cdp.Initialize(nameFor(t, word), cdp.ShadowingNone, false, data)
	require.NoError(t, err)

	return rec
}

func newTree(t *testing.T, words ...string) *cdp.Record {
	t.Helper()

	root, err := cdp.InitializeStore(nameFor(t, "root"), cdp.ShadowingMany, false, cdp.BackendRBTree, cdp.ByName, nil)
	require.NoError(t, err)

	for _, w := range words {
		require.NoError(t, root.Add(newLeaf(t, w)))
	}

	return root
}

func traverseWords(t *testing.T, root *cdp.Record) []string {
	t.Helper()

	var got []string

	err := root.Traverse(func(child *cdp.Record, _ int) error {
		got = append(got, string(child.Data().Bytes()))

		return nil
	})
	require.NoError(t, err)

	return got
}

func TestSaveLoadRoundTripPreservesValuesAndOrder(t *testing.T) {
	t.Parallel()

	root := newTree(t, "delta", "alpha", "gamma", "beta")
	mgr := checkpoint.NewManager(t.TempDir(), 1<<20) // threshold above the test payload: no compression path.

	require.NoError(t, mgr.Save("domain", root.Store()))
	assert.True(t, mgr.Exists("domain"))
	assert.FileExists(t, mgr.Path("domain"))

	fresh, err := cdp.InitializeStore(nameFor(t, "root"), cdp.ShadowingMany, false, cdp.BackendRBTree, cdp.ByName, nil)
	require.NoError(t, err)

	require.NoError(t, mgr.Load("domain", fresh.Store()))

	assert.Equal(t, []string{"alpha", "beta", "delta", "gamma"}, traverseWords(t, fresh))
}

func TestSaveLoadRoundTripWithCompression(t *testing.T) {
	t.Parallel()

	words := make([]string, 0, 20)
	for _, w := range []string{"alpha", "beta", "gamma", "delta", "epsilon"} {
		words = append(words, w)
	}

	root := newTree(t, words...)
	mgr := checkpoint.NewManager(t.TempDir(), 0) // threshold zero: always compress.

	require.NoError(t, mgr.Save("domain", root.Store()))

	fresh, err := cdp.InitializeStore(nameFor(t, "root"), cdp.ShadowingMany, false, cdp.BackendRBTree, cdp.ByName, nil)
	require.NoError(t, err)

	require.NoError(t, mgr.Load("domain", fresh.Store()))

	assert.ElementsMatch(t, words, traverseWords(t, fresh))
}

func TestLoadRejectsUnknownVersion(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	mgr := checkpoint.NewManager(dir, 1<<20)

	root := newTree(t, "alpha")
	require.NoError(t, mgr.Save("domain", root.Store()))

	path := mgr.Path("domain")
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	raw[0] = 99 // corrupt the version byte.
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	fresh, err := cdp.InitializeStore(nameFor(t, "root"), cdp.ShadowingMany, false, cdp.BackendRBTree, cdp.ByName, nil)
	require.NoError(t, err)

	err = mgr.Load("domain", fresh.Store())
	require.Error(t, err)
	assert.ErrorIs(t, err, checkpoint.ErrVersionMismatch)
}

func TestSaveRejectsNestedStoreChildren(t *testing.T) {
	t.Parallel()

	root, err := cdp.InitializeStore(nameFor(t, "root"), cdp.ShadowingMany, false, cdp.BackendRBTree, cdp.ByName, nil)
	require.NoError(t, err)

	branch, err := cdp.InitializeStore(nameFor(t, "nested"), cdp.ShadowingMany, false, cdp.BackendList, cdp.ByInsertion, nil)
	require.NoError(t, err)
	require.NoError(t, root.Add(branch))

	mgr := checkpoint.NewManager(t.TempDir(), 1<<20)

	err = mgr.Save("domain", root.Store())
	require.Error(t, err)
	assert.ErrorIs(t, err, checkpoint.ErrUnsupportedRecord)
}

func TestExistsReportsAbsence(t *testing.T) {
	t.Parallel()

	mgr := checkpoint.NewManager(t.TempDir(), 1<<20)
	assert.False(t, mgr.Exists("missing"))
}

func TestPathJoinsDirAndName(t *testing.T) {
	t.Parallel()

	mgr := checkpoint.NewManager("/tmp/checkpoints", 1<<20)
	assert.Equal(t, filepath.Join("/tmp/checkpoints", "domain.ckpt"), mgr.Path("domain"))
}
