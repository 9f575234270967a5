package commands

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/cascadedp/pkg/cdp"
	"github.com/Sumatoshi-tech/cascadedp/pkg/dt"
)

func TestParsePath(t *testing.T) {
	t.Parallel()

	segments, err := parsePath("/user/alice")
	require.NoError(t, err)
	require.Len(t, segments, 2)
	require.Equal(t, describeName(segments[0]), "user")
	require.Equal(t, describeName(segments[1]), "alice")
}

func TestParsePathEmptyResolvesToNoSegments(t *testing.T) {
	t.Parallel()

	segments, err := parsePath("")
	require.NoError(t, err)
	require.Empty(t, segments)

	segments, err = parsePath("/")
	require.NoError(t, err)
	require.Empty(t, segments)
}

func TestParsePathRejectsSegmentTooLongToEncode(t *testing.T) {
	t.Parallel()

	_, err := parsePath("/this-segment-is-far-too-long-to-fit-in-a-word-encoded-id")
	require.ErrorIs(t, err, ErrUsage)
}

func TestResolvePathRoot(t *testing.T) {
	t.Parallel()

	root := newTestStoreRecord(t, "root")

	rec, err := resolvePath(root, "")
	require.NoError(t, err)
	require.Same(t, root, rec)
}

func TestResolvePathUnresolvedIsPathNotFound(t *testing.T) {
	t.Parallel()

	root := newTestStoreRecord(t, "root")

	_, err := resolvePath(root, "/does/not/exist")
	require.ErrorIs(t, err, ErrPathNotFound)
}

func TestResolvePathFindsChild(t *testing.T) {
	t.Parallel()

	root := newTestStoreRecord(t, "root")
	child := newTestStoreRecord(t, "child")

	require.NoError(t, root.Add(child))

	rec, err := resolvePath(root, "/child")
	require.NoError(t, err)
	require.Same(t, child, rec)
}

func TestDescribeNameDecodesNonWordIDs(t *testing.T) {
	t.Parallel()

	id, err := dt.EncodeNumeric(42)
	require.NoError(t, err)

	name := dt.DT{Domain: id, Tag: id}
	require.Equal(t, "42", describeName(name))
}

func TestDescribeKindData(t *testing.T) {
	t.Parallel()

	rec := newTestDataRecord(t, "leaf", []byte("hello"))
	require.Equal(t, "data (5 bytes)", describeKind(rec))
}

func TestDescribeKindStore(t *testing.T) {
	t.Parallel()

	rec := newTestStoreRecord(t, "branch")
	require.Contains(t, describeKind(rec), "rbtree")
	require.Contains(t, describeKind(rec), "name")
	require.Contains(t, describeKind(rec), "0 children")
}

func TestBackendAndIndexingNameCoverAllVariants(t *testing.T) {
	t.Parallel()

	require.Equal(t, "list", backendName(cdp.BackendList))
	require.Equal(t, "array", backendName(cdp.BackendArray))
	require.Equal(t, "queue", backendName(cdp.BackendQueue))
	require.Equal(t, "rbtree", backendName(cdp.BackendRBTree))
	require.Equal(t, "octree", backendName(cdp.BackendOctree))
	require.Equal(t, "unknown", backendName(cdp.Backend(99)))

	require.Equal(t, "insertion", indexingName(cdp.ByInsertion))
	require.Equal(t, "name", indexingName(cdp.ByName))
	require.Equal(t, "function", indexingName(cdp.ByFunction))
	require.Equal(t, "hash", indexingName(cdp.ByHash))
	require.Equal(t, "unknown", indexingName(cdp.Indexing(99)))
}

func TestErrUsageIsDistinctSentinel(t *testing.T) {
	t.Parallel()

	wrapped := errors.New("flag missing")
	require.NotErrorIs(t, wrapped, ErrUsage)
}

// newTestStoreRecord builds a standalone name-indexed red-black record for path
// resolution tests.
func newTestStoreRecord(t *testing.T, word string) *cdp.Record {
	t.Helper()

	id, err := dt.EncodeWord(word)
	require.NoError(t, err)

	rec, err := cdp.InitializeStore(dt.DT{Domain: id, Tag: id}, cdp.ShadowingNone, false, cdp.BackendRBTree, cdp.ByName, nil)
	require.NoError(t, err)

	return rec
}

func newTestDataRecord(t *testing.T, word string, payload []byte) *cdp.Record {
	t.Helper()

	id, err := dt.EncodeWord(word)
	require.NoError(t, err)

	name := dt.DT{Domain: id, Tag: id}

	data, err := cdp.NewData(name, dt.DT{}, 0, cdp.DataValue, true, payload, len(payload), nil)
	require.NoError(t, err)

	rec, err := cdp.Initialize(name, cdp.ShadowingNone, false, data)
	require.NoError(t, err)

	return rec
}
