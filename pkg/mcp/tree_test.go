package mcp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/cascadedp/pkg/cdp"
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

func newBranch(t *testing.T, word string) *cdp.Record {
	t.Helper()

	rec, err := cdp.InitializeStore(nameFor(t, word), cdp.ShadowingMany, false, cdp.BackendList, cdp.ByInsertion, nil)
	require.NoError(t, err)

	return rec
}

// buildTestTree builds:
//
//	root
//	  system
//	    agent (leaf)
//	  user
//	    alice (leaf)
func buildTestTree(t *testing.T) *cdp.Record {
	t.Helper()

	root := newBranch(t, "root")
	system := newBranch(t, "system")
	user := newBranch(t, "user")

	require.NoError(t, root.Add(system))
	require.NoError(t, root.Add(user))
	require.NoError(t, system.Add(newLeaf(t, "agent")))
	require.NoError(t, user.Add(newLeaf(t, "alice")))

	return root
}

func TestFindByPathResolvesNestedRecord(t *testing.T) {
	t.Parallel()

	root := buildTestTree(t)

	rec, err := findByPath(root, "/system/agent")
	require.NoError(t, err)
	assert.Equal(t, "agent", decodeSegment(rec.Meta.Name.Domain))
	assert.True(t, rec.IsData())
}

func TestFindByPathEmptyResolvesRoot(t *testing.T) {
	t.Parallel()

	root := buildTestTree(t)

	rec, err := findByPath(root, "/")
	require.NoError(t, err)
	assert.Equal(t, root, rec)

	rec, err = findByPath(root, "")
	require.NoError(t, err)
	assert.Equal(t, root, rec)
}

func TestFindByPathMissingSegmentErrors(t *testing.T) {
	t.Parallel()

	root := buildTestTree(t)

	_, err := findByPath(root, "/system/missing")
	require.Error(t, err)
}

func TestListChildrenReturnsDirectChildrenOnly(t *testing.T) {
	t.Parallel()

	root := buildTestTree(t)

	children, err := listChildren(root)
	require.NoError(t, err)
	require.Len(t, children, 2)

	names := []string{children[0].Domain, children[1].Domain}
	assert.ElementsMatch(t, []string{"system", "user"}, names)
}

func TestListChildrenRejectsDataRecord(t *testing.T) {
	t.Parallel()

	root := buildTestTree(t)

	agent, err := findByPath(root, "/system/agent")
	require.NoError(t, err)

	_, err = listChildren(agent)
	require.Error(t, err)
	assert.ErrorIs(t, err, cdp.ErrNoStore)
}

func TestDescribeRecordReportsKindAndPath(t *testing.T) {
	t.Parallel()

	root := buildTestTree(t)

	agent, err := findByPath(root, "/system/agent")
	require.NoError(t, err)

	info := describeRecord(agent)
	assert.Equal(t, "/system/agent", info.Path)
	assert.Equal(t, "data", info.Kind)
	assert.Equal(t, len("agent"), info.DataSize)

	sys, err := findByPath(root, "/system")
	require.NoError(t, err)

	sysInfo := describeRecord(sys)
	assert.Equal(t, "store", sysInfo.Kind)
}

func TestFindByIdentityLocatesRecordAnywhereInTree(t *testing.T) {
	t.Parallel()

	root := buildTestTree(t)

	rec, err := findByIdentity(context.Background(), root, "alice", "")
	require.NoError(t, err)
	assert.Equal(t, "/user/alice", recordPath(rec))
}

func TestFindByIdentityReturnsNotFound(t *testing.T) {
	t.Parallel()

	root := buildTestTree(t)

	_, err := findByIdentity(context.Background(), root, "nobody", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, cdp.ErrNotFound)
}
