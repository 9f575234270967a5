package system

import (
	"fmt"

	"github.com/Sumatoshi-tech/cascadedp/pkg/cdp"
)

// UserPrivate returns the `/user/<id>/private` store, creating `/user/<id>`
// and `/user/<id>/private` as red-black dictionaries on demand. Per-user,
// never-replicated state belongs here.
func (s *System) UserPrivate(id string) (*cdp.Record, error) {
	userDir, err := ensureChildStore(s.User, id, cdp.BackendRBTree, cdp.ByName)
	if err != nil {
		return nil, fmt.Errorf("system: user %q: %w", id, err)
	}

	private, err := ensureChildStore(userDir, segPrivate, cdp.BackendRBTree, cdp.ByName)
	if err != nil {
		return nil, fmt.Errorf("system: user %q private: %w", id, err)
	}

	return private, nil
}

// PublicAgent returns the `/public/<name>` store, creating it as a
// red-black dictionary on demand. Records advertised to the rest of a
// (hypothetical) network belong here; the engine itself never replicates
// anything.
func (s *System) PublicAgent(name string) (*cdp.Record, error) {
	rec, err := ensureChildStore(s.Public, name, cdp.BackendRBTree, cdp.ByName)
	if err != nil {
		return nil, fmt.Errorf("system: public agent %q: %w", name, err)
	}

	return rec, nil
}

// ServiceLocation returns the `/data/service/<name>` store, creating
// `/data/service` and `/data/service/<name>` as red-black dictionaries on
// demand. Agent-instance-creation-service locations belong here.
func (s *System) ServiceLocation(name string) (*cdp.Record, error) {
	serviceDir, err := ensureChildStore(s.Data, segService, cdp.BackendRBTree, cdp.ByName)
	if err != nil {
		return nil, fmt.Errorf("system: service directory: %w", err)
	}

	rec, err := ensureChildStore(serviceDir, name, cdp.BackendRBTree, cdp.ByName)
	if err != nil {
		return nil, fmt.Errorf("system: service %q: %w", name, err)
	}

	return rec, nil
}

// ensureChildStore returns parent's existing child named word if it is a
// store, or creates and attaches a new store-bearing child with the given
// backend and indexing discipline if none exists yet.
func ensureChildStore(parent *cdp.Record, word string, backend cdp.Backend, indexing cdp.Indexing) (*cdp.Record, error) {
	name := nameFor(word)

	existing, err := parent.FindByName(name)
	if err == nil {
		if !existing.IsStore() {
			return nil, fmt.Errorf("%w: %v is a data record", ErrNotDirectory, name)
		}

		return existing, nil
	}

	child, err := newStore(word, backend, indexing)
	if err != nil {
		return nil, err
	}

	if err := parent.Add(child); err != nil {
		return nil, fmt.Errorf("system: attach %v: %w", name, err)
	}

	return child, nil
}
