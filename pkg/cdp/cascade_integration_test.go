package cdp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCascadeAdderPipeline wires three agents into a pipeline — stdin
// (produces a tic's value), adder (accumulates and forwards the running
// sum), stdout (records what it observes) — by the same inlet/connect/
// unplug mechanics pkg/system's step agent uses, then feeds tics carrying
// 1, 2, 3 and checks stdout observes the running sums 1, 3, 6 in order.
func TestCascadeAdderPipeline(t *testing.T) {
	t.Parallel()

	stdin := newLeaf(t, "stdin")
	adder := newLeaf(t, "adder")
	stdout := newLeaf(t, "stdout")

	var observed []uint64

	stdout.data.AddAgent(stdout.Meta.Name.Domain, stdout.Meta.Name.Tag,
		func(_, _, _ *Record, action Action, _ *Record, value uint64) Status {
			if action == ActionDataUpdate {
				observed = append(observed, value)
			}

			return StatusOk
		})

	var sum uint64

	adder.data.AddAgent(adder.Meta.Name.Domain, adder.Meta.Name.Tag,
		func(_, _, self *Record, action Action, _ *Record, value uint64) Status {
			if action != ActionDataUpdate {
				return StatusOk
			}

			sum += value

			status, _ := Dispatch(self, stdout, ActionDataUpdate, self, sum)

			return status
		})

	// Wire stdin -> adder by registering stdin's own forwarding agent,
	// mirroring pkg/system's StepAgent.advance/handle Connect contract:
	// a producer dispatches ActionDataUpdate to each of its outputs.
	var outputs []*Record

	stdin.data.AddAgent(stdin.Meta.Name.Domain, stdin.Meta.Name.Tag,
		func(_, _, self *Record, action Action, record *Record, value uint64) Status {
			switch action {
			case ActionInstanceConnect:
				outputs = append(outputs, record)

				return StatusOk
			case ActionInstanceUnplug:
				for i, out := range outputs {
					if out == record {
						outputs = append(outputs[:i], outputs[i+1:]...)

						break
					}
				}

				return StatusOk
			case ActionDataUpdate:
				for _, out := range outputs {
					status, _ := Dispatch(self, out, ActionDataUpdate, self, value)
					if status < StatusOk {
						return status
					}
				}

				return StatusOk
			default:
				return StatusOk
			}
		})

	status, _ := Dispatch(nil, stdin, ActionInstanceConnect, adder, 0)
	require.Equal(t, StatusOk, status)

	for _, v := range []uint64{1, 2, 3} {
		status, _ := Dispatch(nil, stdin, ActionDataUpdate, nil, v)
		require.Equal(t, StatusOk, status)
	}

	assert.Equal(t, []uint64{1, 3, 6}, observed)

	status, _ = Dispatch(nil, stdin, ActionInstanceUnplug, adder, 0)
	require.Equal(t, StatusOk, status)
	assert.Empty(t, outputs)

	status, _ = Dispatch(nil, stdin, ActionDataUpdate, nil, 99)
	require.Equal(t, StatusOk, status)
	assert.Equal(t, []uint64{1, 3, 6}, observed, "unplugged adder must stop receiving updates")
}
