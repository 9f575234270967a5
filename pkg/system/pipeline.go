package system

import (
	"fmt"

	"github.com/Sumatoshi-tech/cascadedp/pkg/cdp"
	"github.com/Sumatoshi-tech/cascadedp/pkg/dt"
)

// Inlet asks target to expose (or materialize) an input named name,
// returning the record callers should pass to Connect. Most agents have a
// single inlet and simply return target unchanged; an agent with several
// named inlets returns whichever sub-record backs name.
func Inlet(target *cdp.Record, name dt.DT) (*cdp.Record, error) {
	status, returned := cdp.Dispatch(nil, target, cdp.ActionInstanceInlet, nil, uint64(name.Domain))
	if status < cdp.StatusOk {
		return nil, fmt.Errorf("%w: inlet %v on %v", ErrAgentRejected, name, target.Meta.Name)
	}

	if returned != nil {
		return returned, nil
	}

	return target, nil
}

// Connect records a link from source's named output to inlet, so that a
// future System.Step (or any ActionDataUpdate dispatched on source) also
// reaches inlet. The topology formed by repeated Connect calls is a DAG in
// practice; the engine does not detect cycles.
func Connect(source *cdp.Record, name dt.DT, inlet *cdp.Record) error {
	status, _ := cdp.Dispatch(nil, source, cdp.ActionInstanceConnect, inlet, uint64(name.Domain))
	if status < cdp.StatusOk {
		return fmt.Errorf("%w: connect %v on %v", ErrAgentRejected, name, source.Meta.Name)
	}

	return nil
}

// Unplug removes a previously connected inlet from source's outputs.
func Unplug(source *cdp.Record, inlet *cdp.Record) error {
	status, _ := cdp.Dispatch(nil, source, cdp.ActionInstanceUnplug, inlet, 0)
	if status < cdp.StatusOk {
		return fmt.Errorf("%w: unplug on %v", ErrAgentRejected, source.Meta.Name)
	}

	return nil
}
