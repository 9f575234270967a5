// Package system builds and drives the process-wide record tree: the
// `/system`, `/user`, `/public`, `/data`, `/network`, and `/temp` roots, the
// built-in step agent, and the Startup/Step/Shutdown lifecycle.
package system

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/cascadedp/pkg/cdp"
	"github.com/Sumatoshi-tech/cascadedp/pkg/dt"
	"github.com/Sumatoshi-tech/cascadedp/pkg/observability"
)

// Well-known directory segment names. Each must satisfy dt.EncodeWord's
// alphabet and length constraints (lowercase letters, at most 11 chars).
const (
	segRoot    = "root"
	segSystem  = "system"
	segDomain  = "domain"
	segAgent   = "agent"
	segCascade = "cascade"
	segUser    = "user"
	segPublic  = "public"
	segData    = "data"
	segNetwork = "network"
	segTemp    = "temp"
	segVoid    = "void"
	segPrivate = "private"
	segService = "service"
)

// Deps holds injectable dependencies for a System. A nil Logger falls back
// to slog.Default(); nil Metrics and Tracer record nothing.
type Deps struct {
	Logger  *slog.Logger
	Metrics *observability.Metrics
	Tracer  trace.Tracer
}

// System owns the process-wide record tree and its lifecycle. It is not
// safe for concurrent use from multiple goroutines without external
// synchronization; Step is the single cooperative point where the engine is
// quiescent between calls.
type System struct {
	Root      *cdp.Record
	SystemDir *cdp.Record
	Domain    *cdp.Record
	Agent     *cdp.Record
	Cascade   *cdp.Record
	User      *cdp.Record
	Public    *cdp.Record
	Data      *cdp.Record
	Network   *cdp.Record
	Temp      *cdp.Record
	Void      *cdp.Record

	Step *StepAgent

	registry *cdp.AgentRegistry

	tic     uint64
	started bool
	logger  *slog.Logger
	metrics *observability.Metrics
	tracer  trace.Tracer
}

var (
	instance     *System
	instanceErr  error
	instanceOnce sync.Once
)

// Root returns the process-wide System, constructing it with default
// dependencies (slog.Default() logger, no metrics, no tracer) on first call. Construction is
// lazy: nothing is built until the first caller asks for it, and every
// subsequent call returns the same instance.
func Root() (*System, error) {
	instanceOnce.Do(func() {
		instance, instanceErr = New(Deps{})
	})

	return instance, instanceErr
}

// New constructs the system root and its standard subtree: `/system`
// (holding `/system/domain`, `/system/agent`, `/system/cascade`), `/user`,
// `/public`, `/data`, and `/network` as red-black dictionaries, `/temp` as
// a linked list, and a global void sentinel leaf under `/system`. The
// built-in step agent is created and attached under `/system/agent`.
func New(deps Deps) (*System, error) {
	s := &System{
		registry: cdp.NewAgentRegistry(),
		logger:   deps.Logger,
		metrics:  deps.Metrics,
		tracer:   deps.Tracer,
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}

	root, err := newStore(segRoot, cdp.BackendArray, cdp.ByName)
	if err != nil {
		return nil, err
	}

	s.Root = root

	if err := s.buildSystemDir(); err != nil {
		return nil, err
	}

	if err := s.buildDictionaries(); err != nil {
		return nil, err
	}

	step, err := newStepAgent()
	if err != nil {
		return nil, err
	}

	s.Step = step

	if err := s.Agent.Add(step.record); err != nil {
		return nil, fmt.Errorf("system: attach step agent: %w", err)
	}

	voidData, err := cdp.NewData(nameFor(segVoid), dt.DT{}, 0, cdp.DataValue, false, nil, 0, nil)
	if err != nil {
		return nil, fmt.Errorf("system: allocate void sentinel: %w", err)
	}

	void, err := cdp.Initialize(nameFor(segVoid), cdp.ShadowingMany, true, voidData)
	if err != nil {
		return nil, fmt.Errorf("system: initialize void sentinel: %w", err)
	}

	if err := s.SystemDir.Add(void); err != nil {
		return nil, fmt.Errorf("system: attach void sentinel: %w", err)
	}

	s.Void = void

	return s, nil
}

func (s *System) buildSystemDir() error {
	sys, err := newStore(segSystem, cdp.BackendArray, cdp.ByName)
	if err != nil {
		return err
	}

	domain, err := newStore(segDomain, cdp.BackendRBTree, cdp.ByName)
	if err != nil {
		return err
	}

	agent, err := newStore(segAgent, cdp.BackendArray, cdp.ByName)
	if err != nil {
		return err
	}

	cascade, err := newStore(segCascade, cdp.BackendList, cdp.ByInsertion)
	if err != nil {
		return err
	}

	for _, child := range []*cdp.Record{domain, agent, cascade} {
		if err := sys.Add(child); err != nil {
			return fmt.Errorf("system: attach /system child %v: %w", child.Meta.Name, err)
		}
	}

	if err := s.Root.Add(sys); err != nil {
		return fmt.Errorf("system: attach /system: %w", err)
	}

	s.SystemDir, s.Domain, s.Agent, s.Cascade = sys, domain, agent, cascade

	return nil
}

func (s *System) buildDictionaries() error {
	specs := []struct {
		word    string
		backend cdp.Backend
		slot    **cdp.Record
	}{
		{segUser, cdp.BackendRBTree, &s.User},
		{segPublic, cdp.BackendRBTree, &s.Public},
		{segData, cdp.BackendRBTree, &s.Data},
		{segNetwork, cdp.BackendRBTree, &s.Network},
		{segTemp, cdp.BackendList, &s.Temp},
	}

	for _, spec := range specs {
		indexing := cdp.ByName
		if spec.backend == cdp.BackendList {
			indexing = cdp.ByInsertion
		}

		rec, err := newStore(spec.word, spec.backend, indexing)
		if err != nil {
			return err
		}

		if err := s.Root.Add(rec); err != nil {
			return fmt.Errorf("system: attach /%s: %w", spec.word, err)
		}

		*spec.slot = rec
	}

	return nil
}

// Startup traverses /system/domain and dispatches ActionInstanceInitiate on
// every registered entry, in store order. A second call before Shutdown is
// a no-op.
func (s *System) Startup(_ context.Context) error {
	if s.started {
		return nil
	}

	var initErr error

	err := s.Domain.Traverse(func(child *cdp.Record, _ int) error {
		status, _ := cdp.Dispatch(nil, child, cdp.ActionInstanceInitiate, nil, 0)
		if status < cdp.StatusOk {
			initErr = fmt.Errorf("%w: startup initiate %v", ErrAgentRejected, child.Meta.Name)

			return initErr
		}

		return nil
	})
	if err != nil {
		return err
	}

	s.started = true

	s.logger.Info("system startup complete")

	return nil
}

// Step advances the monotonic tic by one and dispatches ActionDataUpdate
// from the step agent to every connected output, driving downstream agents
// forward. It is the engine's single cooperative point.
func (s *System) Step(ctx context.Context) error {
	start := time.Now()

	s.tic++

	if err := s.Step.advance(s.tic); err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.RecordStep(ctx, time.Since(start))
	}

	s.logger.Debug("system step", slog.Uint64("tic", s.tic))

	return nil
}

// Shutdown traverses the root's direct children in reverse, dispatching
// ActionInstanceClean and then removing each, and clears the agent
// registry. After Shutdown, the System must not be reused.
func (s *System) Shutdown(_ context.Context) error {
	var children []*cdp.Record

	err := s.Root.Traverse(func(child *cdp.Record, _ int) error {
		children = append(children, child)

		return nil
	})
	if err != nil {
		return err
	}

	for i := len(children) - 1; i >= 0; i-- {
		child := children[i]

		status, _ := cdp.Dispatch(nil, child, cdp.ActionInstanceClean, nil, 0)
		if status < cdp.StatusOk {
			return fmt.Errorf("%w: shutdown clean %v", ErrAgentRejected, child.Meta.Name)
		}

		if err := s.Root.Remove(child); err != nil {
			return fmt.Errorf("system: shutdown remove %v: %w", child.Meta.Name, err)
		}
	}

	s.registry = cdp.NewAgentRegistry()
	s.started = false

	s.logger.Info("system shutdown complete")

	return nil
}

// Registry returns the system's agent-kind registry, consulted when
// constructing new agent instances by (domain, tag).
func (s *System) Registry() *cdp.AgentRegistry { return s.registry }

// nameFor encodes word as a Word-coded DT with matching domain and tag, the
// convention every directory-layout record in this package follows.
func nameFor(word string) dt.DT {
	id, err := dt.EncodeWord(word)
	if err != nil {
		// Every name in this package is a package constant validated by
		// table-driven tests; a failure here is a programming error.
		panic(fmt.Sprintf("system: invalid built-in name %q: %v", word, err))
	}

	return dt.DT{Domain: id, Tag: id}
}

// newStore builds a store-bearing record named word with the given backend
// and indexing discipline.
func newStore(word string, backend cdp.Backend, indexing cdp.Indexing) (*cdp.Record, error) {
	rec, err := cdp.InitializeStore(nameFor(word), cdp.ShadowingMany, false, backend, indexing, nil)
	if err != nil {
		return nil, fmt.Errorf("system: initialize store %q: %w", word, err)
	}

	return rec, nil
}
