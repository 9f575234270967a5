package cdp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/cascadedp/pkg/dt"
)

func nameFor(t *testing.T, word string) dt.DT {
	t.Helper()

	id, err := dt.EncodeWord(word)
	require.NoError(t, err)

	return dt.DT{Domain: id, Tag: id}
}

func newLeaf(t *testing.T, word string) *Record {
	t.Helper()

	data, err := NewData(nameFor(t, word), dt.DT{}, 0, DataValue, true, []byte(word), len(word), nil)
	require.NoError(t, err)

	rec, err := Initialize(nameFor(t, word), ShadowingNone, false, data)
	require.NoError(t, err)

	return rec
}

func newBranch(t *testing.T, word string, backend Backend, indexing Indexing, compare CompareFunc) *Record {
	t.Helper()

	rec, err := InitializeStore(nameFor(t, word), ShadowingMany, false, backend, indexing, compare)
	require.NoError(t, err)

	return rec
}

func TestInitializeRejectsNilData(t *testing.T) {
	t.Parallel()

	_, err := Initialize(nameFor(t, "x"), ShadowingNone, false, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestRecordAddAndLookup(t *testing.T) {
	t.Parallel()

	root := newBranch(t, "root", BackendList, ByInsertion, nil)
	a := newLeaf(t, "alpha")
	b := newLeaf(t, "beta")

	require.NoError(t, root.Add(a))
	require.NoError(t, root.Add(b))

	assert.Equal(t, 2, root.Store().Len())

	first, err := root.First()
	require.NoError(t, err)
	assert.Same(t, a, first)

	last, err := root.Last()
	require.NoError(t, err)
	assert.Same(t, b, last)

	found, err := root.FindByName(nameFor(t, "beta"))
	require.NoError(t, err)
	assert.Same(t, b, found)

	assert.Same(t, root.Store(), a.Parent())
}

func TestRecordAddOnLeafFailsWithNoStore(t *testing.T) {
	t.Parallel()

	leaf := newLeaf(t, "leaf")
	child := newLeaf(t, "child")

	err := leaf.Add(child)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoStore)
}

func TestRecordTakeDetachesWithoutFinalizing(t *testing.T) {
	t.Parallel()

	root := newBranch(t, "root", BackendList, ByInsertion, nil)
	a := newLeaf(t, "alpha")
	require.NoError(t, root.Add(a))

	require.NoError(t, a.Take())
	assert.Nil(t, a.Parent())
	assert.NotNil(t, a.Data())
	assert.Equal(t, 0, root.Store().Len())
}

func TestRecordRemoveFinalizes(t *testing.T) {
	t.Parallel()

	root := newBranch(t, "root", BackendList, ByInsertion, nil)
	a := newLeaf(t, "alpha")
	require.NoError(t, root.Add(a))

	require.NoError(t, root.Remove(a))
	assert.Nil(t, a.Data())
}

func TestRecordPrevNext(t *testing.T) {
	t.Parallel()

	root := newBranch(t, "root", BackendList, ByInsertion, nil)
	a := newLeaf(t, "alpha")
	b := newLeaf(t, "beta")
	c := newLeaf(t, "gamma")

	require.NoError(t, root.Add(a))
	require.NoError(t, root.Add(b))
	require.NoError(t, root.Add(c))

	next, err := a.Next()
	require.NoError(t, err)
	assert.Same(t, b, next)

	prev, err := c.Prev()
	require.NoError(t, err)
	assert.Same(t, b, prev)

	_, err = a.Prev()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecordPrevNextOnRootFails(t *testing.T) {
	t.Parallel()

	root := newBranch(t, "root", BackendList, ByInsertion, nil)

	_, err := root.Next()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIsRoot)
}

func TestLinkShadowingNoneRejected(t *testing.T) {
	t.Parallel()

	target, err := Initialize(nameFor(t, "target"), ShadowingNone, false, mustData(t, "target"))
	require.NoError(t, err)

	linker := newLeaf(t, "linker")

	err = linker.Link(target)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrWrongIndexing)
}

func TestLinkShadowingSingleRejectsSecondLink(t *testing.T) {
	t.Parallel()

	target, err := Initialize(nameFor(t, "target"), ShadowingSingle, false, mustData(t, "target"))
	require.NoError(t, err)

	first := newLeaf(t, "first")
	second := newLeaf(t, "second")

	require.NoError(t, first.Link(target))

	err = second.Link(target)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateKey)
}

func TestLinkResolveAndFinalizeGuard(t *testing.T) {
	t.Parallel()

	target, err := Initialize(nameFor(t, "target"), ShadowingMany, false, mustData(t, "target"))
	require.NoError(t, err)

	linker := newLeaf(t, "linker")
	require.NoError(t, linker.Link(target))

	resolved, err := linker.Resolve()
	require.NoError(t, err)
	assert.Same(t, target, resolved)

	err = target.Finalize()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrHasShadows)

	require.NoError(t, linker.Finalize())
	require.NoError(t, target.Finalize())
}

func mustData(t *testing.T, word string) *Data {
	t.Helper()

	data, err := NewData(nameFor(t, word), dt.DT{}, 0, DataValue, true, []byte(word), len(word), nil)
	require.NoError(t, err)

	return data
}

func TestDeepTraverseVisitsPreOrder(t *testing.T) {
	t.Parallel()

	root := newBranch(t, "root", BackendList, ByInsertion, nil)
	branch := newBranch(t, "branch", BackendList, ByInsertion, nil)
	leaf1 := newLeaf(t, "leafa")
	leaf2 := newLeaf(t, "leafb")

	require.NoError(t, branch.Add(leaf1))
	require.NoError(t, root.Add(branch))
	require.NoError(t, root.Add(leaf2))

	var visited []dt.DT

	err := root.DeepTraverse(t.Context(), func(e Entry) error {
		visited = append(visited, e.Record.Meta.Name)

		return nil
	})
	require.NoError(t, err)

	require.Len(t, visited, 4)
	assert.Equal(t, root.Meta.Name, visited[0])
	assert.Equal(t, branch.Meta.Name, visited[1])
	assert.Equal(t, leaf1.Meta.Name, visited[2])
	assert.Equal(t, leaf2.Meta.Name, visited[3])
}

func TestPathAndFindByPath(t *testing.T) {
	t.Parallel()

	root := newBranch(t, "root", BackendList, ByInsertion, nil)
	branch := newBranch(t, "branch", BackendList, ByInsertion, nil)
	leaf := newLeaf(t, "leaf")

	require.NoError(t, branch.Add(leaf))
	require.NoError(t, root.Add(branch))

	assert.Empty(t, root.Path())
	assert.Equal(t, []dt.DT{branch.Meta.Name}, branch.Path())
	assert.Equal(t, []dt.DT{branch.Meta.Name, leaf.Meta.Name}, leaf.Path())

	found, err := FindByPath(root, leaf.Path())
	require.NoError(t, err)
	assert.Same(t, leaf, found)

	found, err = FindByPath(root, root.Path())
	require.NoError(t, err)
	assert.Same(t, root, found)
}
