package system

import (
	"encoding/binary"
	"fmt"

	"github.com/Sumatoshi-tech/cascadedp/pkg/cdp"
	"github.com/Sumatoshi-tech/cascadedp/pkg/dt"
)

// stepAgentWord names both the step agent's record and the (domain, tag)
// pair its handler is registered under in the dispatch chain.
const stepAgentWord = "step"

// ticSize is the byte width of the step agent's tic counter payload.
const ticSize = 8

// StepAgent is the engine's built-in clock pulse. System.Step increments its
// tic and dispatches ActionDataUpdate to every connected output in
// connection order, driving downstream agents forward one tic at a time.
type StepAgent struct {
	record  *cdp.Record
	outputs []*cdp.Record
}

// newStepAgent allocates the step agent's tic data record and registers its
// handler, then runs ActionInstanceInitiate on it.
func newStepAgent() (*StepAgent, error) {
	name, err := dt.EncodeWord(stepAgentWord)
	if err != nil {
		return nil, fmt.Errorf("system: encode step agent name: %w", err)
	}

	id := dt.DT{Domain: name, Tag: name}

	data, err := cdp.NewData(id, dt.DT{}, 0, cdp.DataValue, true, make([]byte, ticSize), ticSize, nil)
	if err != nil {
		return nil, fmt.Errorf("system: allocate step agent data: %w", err)
	}

	rec, err := cdp.Initialize(id, cdp.ShadowingNone, false, data)
	if err != nil {
		return nil, fmt.Errorf("system: initialize step agent record: %w", err)
	}

	agent := &StepAgent{record: rec}

	data.AddAgent(id.Domain, id.Tag, agent.handle)

	status, _ := cdp.Dispatch(nil, rec, cdp.ActionInstanceInitiate, nil, 0)
	if status < cdp.StatusOk {
		return nil, fmt.Errorf("%w: step agent initiate", ErrAgentRejected)
	}

	return agent, nil
}

// Record returns the step agent's own tic record, the value System.Step
// connects downstream agents to via Inlet/Connect.
func (a *StepAgent) Record() *cdp.Record { return a.record }

// Tic returns the current tic value.
func (a *StepAgent) Tic() uint64 {
	return binary.LittleEndian.Uint64(a.record.Data().Bytes())
}

// advance writes tic into the agent's data payload and dispatches
// ActionDataUpdate to every connected output, stopping at the first failure.
func (a *StepAgent) advance(tic uint64) error {
	buf := make([]byte, ticSize)
	binary.LittleEndian.PutUint64(buf, tic)

	if err := a.record.Data().Update(ticSize, ticSize, buf, false); err != nil {
		return fmt.Errorf("system: update step tic: %w", err)
	}

	status, _ := cdp.Dispatch(nil, a.record, cdp.ActionDataUpdate, nil, tic)
	if status < cdp.StatusOk {
		return fmt.Errorf("%w: step tic %d", ErrAgentRejected, tic)
	}

	return nil
}

// handle implements cdp.Agent for the step agent's own dispatch chain.
func (a *StepAgent) handle(_, _, _ *cdp.Record, action cdp.Action, record *cdp.Record, value uint64) cdp.Status {
	switch action {
	case cdp.ActionInstanceInitiate:
		a.outputs = nil

		return cdp.StatusOk
	case cdp.ActionInstanceConnect:
		if record == nil {
			return cdp.StatusFail
		}

		a.outputs = append(a.outputs, record)

		return cdp.StatusOk
	case cdp.ActionInstanceUnplug:
		a.disconnect(record)

		return cdp.StatusOk
	case cdp.ActionDataUpdate:
		for _, out := range a.outputs {
			status, _ := cdp.Dispatch(a.record, out, cdp.ActionDataUpdate, a.record, value)
			if status < cdp.StatusOk {
				return status
			}
		}

		return cdp.StatusOk
	default:
		return cdp.StatusOk
	}
}

func (a *StepAgent) disconnect(target *cdp.Record) {
	for i, out := range a.outputs {
		if out == target {
			a.outputs = append(a.outputs[:i], a.outputs[i+1:]...)

			return
		}
	}
}
