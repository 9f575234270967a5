package cdp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/cascadedp/pkg/dt"
)

func TestAgentRegistryLookupMissing(t *testing.T) {
	t.Parallel()

	reg := NewAgentRegistry()

	_, err := reg.Lookup(dt.ID(1), dt.ID(2))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAgentMissing)
}

func TestAgentRegistryRegisterAndLookup(t *testing.T) {
	t.Parallel()

	reg := NewAgentRegistry()

	called := false
	agent := func(client, returned, self *Record, action Action, record *Record, value uint64) Status {
		called = true

		return StatusOk
	}

	reg.Register(dt.ID(1), dt.ID(2), agent)

	got, err := reg.Lookup(dt.ID(1), dt.ID(2))
	require.NoError(t, err)

	got(nil, nil, nil, ActionDataNew, nil, 0)
	assert.True(t, called)
}

func TestDispatchShortCircuitsOnFailure(t *testing.T) {
	t.Parallel()

	self := newLeaf(t, "self")

	var calls []string

	ok := func(client, returned, self *Record, action Action, record *Record, value uint64) Status {
		calls = append(calls, "ok")

		return StatusOk
	}

	fail := func(client, returned, self *Record, action Action, record *Record, value uint64) Status {
		calls = append(calls, "fail")

		return StatusFail
	}

	never := func(client, returned, self *Record, action Action, record *Record, value uint64) Status {
		calls = append(calls, "never")

		return StatusOk
	}

	self.data.AddAgent(dt.ID(1), dt.ID(1), ok)
	self.data.AddAgent(dt.ID(2), dt.ID(2), fail)
	self.data.AddAgent(dt.ID(3), dt.ID(3), never)

	status, _ := Dispatch(nil, self, ActionDataUpdate, nil, 0)

	assert.Equal(t, StatusFail, status)
	assert.Equal(t, []string{"ok", "fail"}, calls)
}

func TestDispatchNeverCallsSameAgentTwice(t *testing.T) {
	t.Parallel()

	self := newLeaf(t, "self")

	count := 0
	agent := func(client, returned, self *Record, action Action, record *Record, value uint64) Status {
		count++

		return StatusOk
	}

	self.data.AddAgent(dt.ID(1), dt.ID(1), agent)
	self.data.AddAgent(dt.ID(1), dt.ID(1), agent)

	status, _ := Dispatch(nil, self, ActionInstanceInitiate, nil, 0)

	assert.Equal(t, StatusOk, status)
	assert.Equal(t, 1, count)
}

func TestDispatchInstanceActionPrefersDataChainThenStore(t *testing.T) {
	t.Parallel()

	branch := newBranch(t, "branch", BackendList, ByInsertion, nil)

	storeCalled := false
	branch.store.AddAgent(dt.ID(9), dt.ID(9), func(client, returned, self *Record, action Action, record *Record, value uint64) Status {
		storeCalled = true

		return StatusOk
	})

	status, _ := Dispatch(nil, branch, ActionInstanceValidate, nil, 0)

	assert.Equal(t, StatusOk, status)
	assert.True(t, storeCalled)
}

func TestLogLevelMapsToSlog(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "instance.initiate", ActionInstanceInitiate.String())
	assert.Equal(t, "store.add_item", ActionStoreAddItem.String())
	assert.NotEqual(t, LevelDebug.Level(), LevelFatal.Level())
}
