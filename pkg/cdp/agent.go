package cdp

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/Sumatoshi-tech/cascadedp/pkg/dt"
)

// Action is the closed set of actions an agent may receive. Actions are
// dispatched through a Data or Store agent chain, or both for composite
// "instance" actions.
type Action uint8

const (
	ActionInstanceInitiate Action = iota
	ActionInstanceValidate
	ActionInstanceInlet
	ActionInstanceConnect
	ActionInstanceUnplug
	ActionInstanceClean
	ActionDataNew
	ActionDataUpdate
	ActionDataDelete
	ActionStoreNew
	ActionStoreAddItem
	ActionStoreRemoveItem
	ActionStoreDelete
)

// instanceActions identifies the composite actions dispatched preferentially
// through the Data chain, falling back to the Store chain when absent.
var instanceActions = map[Action]bool{
	ActionInstanceInitiate: true,
	ActionInstanceValidate: true,
	ActionInstanceInlet:    true,
	ActionInstanceConnect:  true,
	ActionInstanceUnplug:   true,
	ActionInstanceClean:    true,
}

func (a Action) String() string {
	switch a {
	case ActionInstanceInitiate:
		return "instance.initiate"
	case ActionInstanceValidate:
		return "instance.validate"
	case ActionInstanceInlet:
		return "instance.inlet"
	case ActionInstanceConnect:
		return "instance.connect"
	case ActionInstanceUnplug:
		return "instance.unplug"
	case ActionInstanceClean:
		return "instance.clean"
	case ActionDataNew:
		return "data.new"
	case ActionDataUpdate:
		return "data.update"
	case ActionDataDelete:
		return "data.delete"
	case ActionStoreNew:
		return "store.new"
	case ActionStoreAddItem:
		return "store.add_item"
	case ActionStoreRemoveItem:
		return "store.remove_item"
	case ActionStoreDelete:
		return "store.delete"
	default:
		return "unknown"
	}
}

// Status is the closed set of agent dispatch outcomes. Any Status less than
// StatusOk short-circuits the remainder of a dispatch chain.
type Status int8

const (
	StatusFail Status = iota - 1
	StatusProgress
	StatusOk
	StatusSuccess
)

// LogLevel mirrors the original engine's closed log-level vocabulary,
// bridged onto slog.Level by Level().
type LogLevel uint8

const (
	LevelDebug LogLevel = iota
	LevelWarning
	LevelError
	LevelFatal
)

// Level returns the slog.Level equivalent of l.
func (l LogLevel) Level() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarning:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	case LevelFatal:
		return slog.LevelError + 4
	default:
		return slog.LevelInfo
	}
}

// Agent receives a dispatched Action on record, on behalf of self (the
// record carrying the agent chain), called by client. Agents return a
// Status; returning less than StatusOk aborts the remainder of the chain.
type Agent func(client, returned, self *Record, action Action, record *Record, value uint64) Status

type chainedAgent struct {
	domain dt.ID
	tag    dt.ID
	agent  Agent
}

// AgentRegistry maps (domain, tag) pairs to a registered Agent, the global
// table consulted when constructing a new agent instance for a kind.
type AgentRegistry struct {
	mu     sync.RWMutex
	agents map[dt.DT]Agent
}

// NewAgentRegistry returns an empty registry.
func NewAgentRegistry() *AgentRegistry {
	return &AgentRegistry{agents: make(map[dt.DT]Agent)}
}

// Register binds agent to (domain, tag).
func (r *AgentRegistry) Register(domain, tag dt.ID, agent Agent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.agents[dt.DT{Domain: domain, Tag: tag}] = agent
}

// Lookup returns the agent registered for (domain, tag), or ErrAgentMissing.
func (r *AgentRegistry) Lookup(domain, tag dt.ID) (Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	agent, ok := r.agents[dt.DT{Domain: domain, Tag: tag}]
	if !ok {
		return nil, fmt.Errorf("%w: domain=%v tag=%v", ErrAgentMissing, domain, tag)
	}

	return agent, nil
}

// dispatchKey identifies one agent invocation for the single-call-per-agent
// guard within one Dispatch call.
type dispatchKey struct {
	domain dt.ID
	tag    dt.ID
	record *Record
}

// Dispatch runs action on record, preferring the Data agent chain for
// composite instance actions and falling back to the Store chain when the
// Data chain is absent or empty. Iteration stops at the first Status below
// StatusOk. A given (domain, tag) agent is never invoked twice for the same
// record within one Dispatch call.
func Dispatch(client, self *Record, action Action, record *Record, value uint64) (Status, *Record) {
	var returned *Record

	visited := make(map[dispatchKey]bool)

	chains := selectChains(self, action)
	for _, chain := range chains {
		for _, ca := range chain {
			key := dispatchKey{domain: ca.domain, tag: ca.tag, record: self}
			if visited[key] {
				continue
			}

			visited[key] = true

			status := ca.agent(client, returned, self, action, record, value)
			if status < StatusOk {
				return status, returned
			}
		}
	}

	return StatusOk, returned
}

func selectChains(self *Record, action Action) [][]chainedAgent {
	if instanceActions[action] {
		if self.data != nil && len(self.data.agents) > 0 {
			return [][]chainedAgent{self.data.agents}
		}

		if self.store != nil {
			return [][]chainedAgent{self.store.agents}
		}

		return nil
	}

	switch {
	case action == ActionDataNew || action == ActionDataUpdate || action == ActionDataDelete:
		if self.data != nil {
			return [][]chainedAgent{self.data.agents}
		}
	case action == ActionStoreNew || action == ActionStoreAddItem || action == ActionStoreRemoveItem || action == ActionStoreDelete:
		if self.store != nil {
			return [][]chainedAgent{self.store.agents}
		}
	}

	return nil
}
