package cdp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHibernateRejectsNonRBTreeBackend(t *testing.T) {
	t.Parallel()

	root := newBranch(t, "root", BackendList, ByInsertion, nil)

	err := root.Store().Hibernate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrWrongBackend)
}

func TestHibernateBootRoundTripPreservesOrder(t *testing.T) {
	t.Parallel()

	root := newBranch(t, "root", BackendRBTree, ByName, nil)

	words := []string{"delta", "alpha", "gamma", "beta", "epsilon"}
	for _, w := range words {
		require.NoError(t, root.Add(newLeaf(t, w)))
	}

	store := root.Store()
	require.NoError(t, store.Hibernate())

	records, err := store.HibernatedRecords()
	require.NoError(t, err)
	assert.Len(t, records, len(words)+1) // slot 0 is the reserved sentinel.

	require.NoError(t, store.Boot())

	var got []string

	err = root.Traverse(func(child *Record, _ int) error {
		got = append(got, wordOf(child))

		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta", "delta", "epsilon", "gamma"}, got)
}

func TestSerializeRequiresHibernation(t *testing.T) {
	t.Parallel()

	root := newBranch(t, "root", BackendRBTree, ByName, nil)
	require.NoError(t, root.Add(newLeaf(t, "alpha")))

	_, err := root.Store().SerializeStructure()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrWrongBackend)
}

func TestSerializeDeserializeStructureRoundTrip(t *testing.T) {
	t.Parallel()

	root := newBranch(t, "root", BackendRBTree, ByName, nil)

	words := []string{"delta", "alpha", "gamma", "beta"}
	for _, w := range words {
		require.NoError(t, root.Add(newLeaf(t, w)))
	}

	store := root.Store()
	require.NoError(t, store.Hibernate())

	records, err := store.HibernatedRecords()
	require.NoError(t, err)

	raw, err := store.SerializeStructure()
	require.NoError(t, err)
	assert.NotEmpty(t, raw)

	fresh := newBranch(t, "fresh", BackendRBTree, ByName, nil)
	freshStore := fresh.Store()

	require.NoError(t, freshStore.DeserializeStructure(raw))
	require.NoError(t, freshStore.SetHibernatedRecords(records))
	require.NoError(t, freshStore.Boot())

	var got []string

	err = fresh.Traverse(func(child *Record, _ int) error {
		got = append(got, wordOf(child))

		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta", "delta", "gamma"}, got)
}

func TestIsHibernatedReflectsState(t *testing.T) {
	t.Parallel()

	root := newBranch(t, "root", BackendRBTree, ByName, nil)
	require.NoError(t, root.Add(newLeaf(t, "alpha")))

	store := root.Store()

	before, err := store.IsHibernated()
	require.NoError(t, err)
	assert.False(t, before)

	require.NoError(t, store.Hibernate())

	after, err := store.IsHibernated()
	require.NoError(t, err)
	assert.True(t, after)
}

func TestIsHibernatedRejectsNonRBTreeBackend(t *testing.T) {
	t.Parallel()

	root := newBranch(t, "root", BackendList, ByInsertion, nil)

	_, err := root.Store().IsHibernated()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrWrongBackend)
}

func TestSetHibernatedRecordsRejectsWrongCount(t *testing.T) {
	t.Parallel()

	root := newBranch(t, "root", BackendRBTree, ByName, nil)
	require.NoError(t, root.Add(newLeaf(t, "alpha")))

	store := root.Store()
	require.NoError(t, store.Hibernate())

	err := store.SetHibernatedRecords([]*Record{nil})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCapacityExceeded)
}
