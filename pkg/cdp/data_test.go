package cdp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/cascadedp/pkg/dt"
)

func TestNewDataValueCapacityEnforced(t *testing.T) {
	t.Parallel()

	_, err := NewData(nameFor(t, "v"), dt.DT{}, 0, DataValue, true, nil, inlineValueCapacity+1, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCapacityExceeded)
}

func TestDataUpdateReadOnlyRejected(t *testing.T) {
	t.Parallel()

	data, err := NewData(nameFor(t, "ro"), dt.DT{}, 0, DataValue, false, []byte("x"), 1, nil)
	require.NoError(t, err)

	err = data.Update(1, 1, []byte("y"), false)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrReadOnly)
}

func TestDataUpdateLockedRejected(t *testing.T) {
	t.Parallel()

	data, err := NewData(nameFor(t, "lk"), dt.DT{}, 0, DataValue, true, []byte("x"), 1, nil)
	require.NoError(t, err)

	data.SetLocked(true)
	assert.True(t, data.Locked())

	err = data.Update(1, 1, []byte("y"), false)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLocked)
}

func TestDataHeapUpdateGrowsCapacity(t *testing.T) {
	t.Parallel()

	data, err := NewData(nameFor(t, "heap"), dt.DT{}, 0, DataHeap, true, []byte("abc"), 3, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, data.Size())

	err = data.Update(6, 6, []byte("abcdef"), false)
	require.NoError(t, err)
	assert.Equal(t, 6, data.Size())
	assert.Equal(t, []byte("abcdef"), data.Bytes())
	assert.Equal(t, 6, data.Capacity())
}

func TestDataHeapUpdateSwapTakesOwnership(t *testing.T) {
	t.Parallel()

	data, err := NewData(nameFor(t, "heap"), dt.DT{}, 0, DataHeap, true, nil, 0, nil)
	require.NoError(t, err)

	swapped := []byte("swapped")

	require.NoError(t, data.Update(len(swapped), len(swapped), swapped, true))
	assert.Equal(t, swapped, data.Bytes())
}

func TestDataCloseRunsDestructorAndClearsChain(t *testing.T) {
	t.Parallel()

	var destroyed []byte

	data, err := NewData(nameFor(t, "heap"), dt.DT{}, 0, DataHeap, true, []byte("payload"), len("payload"), func(v any) {
		destroyed = v.([]byte)
	})
	require.NoError(t, err)

	data.Close()

	assert.Equal(t, []byte("payload"), destroyed)
	assert.Nil(t, data.Bytes())
	assert.Nil(t, data.Handle())
}

func TestDataHandlePayloadHasNoBuffer(t *testing.T) {
	t.Parallel()

	data, err := NewData(nameFor(t, "handle"), dt.DT{}, 0, DataHandle, true, nil, 0, nil)
	require.NoError(t, err)

	assert.Equal(t, 0, data.Size())

	data.SetHandle(42)
	assert.Equal(t, 42, data.Handle())
}
