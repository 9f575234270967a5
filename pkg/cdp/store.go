package cdp

import (
	"fmt"

	"github.com/Sumatoshi-tech/cascadedp/pkg/dt"
)

// Backend selects the storage discipline a Store uses to hold its children.
type Backend uint8

const (
	// BackendList is a doubly linked list: O(1) append/prepend/take, O(n)
	// positional and keyed lookup.
	BackendList Backend = iota
	// BackendArray is a contiguous slice of child pointers: O(1) positional
	// access, O(log n) keyed lookup when sorted, O(n) insert/remove.
	BackendArray
	// BackendQueue is a packed ring-style queue: O(1) append and pop;
	// positional and keyed lookup walk the chunks linearly.
	BackendQueue
	// BackendRBTree is a red-black tree keyed by child name: O(log n)
	// insert/remove/lookup, in-order traversal.
	BackendRBTree
	// BackendOctree partitions children by a 3-axis spatial key: insert
	// descends one octant per level; lookup and removal walk every entry.
	BackendOctree
)

// Indexing selects how a Store orders and disambiguates its children.
type Indexing uint8

const (
	// ByInsertion preserves caller-specified order; Append/Prepend/Sort are
	// meaningful, duplicate names are permitted.
	ByInsertion Indexing = iota
	// ByName keeps children sorted by dt.Compare on Meta.Name; names must
	// be unique.
	ByName
	// ByFunction keeps children sorted by a caller-supplied CompareFunc.
	ByFunction
	// ByHash keeps children sorted by the caller-supplied CompareFunc,
	// exactly as ByFunction does; no hash table is kept.
	ByHash
)

// CompareFunc orders two records for ByFunction/ByHash stores. ctx is the
// store's CompareCtx, threaded through unchanged.
type CompareFunc func(a, b *Record, ctx any) int

// KeyCompareFunc orders a record against an arbitrary lookup key for
// FindByKey on ByFunction/ByHash stores. ctx is the store's CompareCtx.
type KeyCompareFunc func(a *Record, key any, ctx any) int

// SpatialKeyFunc extracts the 3-axis coordinate a BackendOctree store
// partitions child records by.
type SpatialKeyFunc func(rec *Record) [3]float64

// backend is the storage strategy interface each Backend kind implements.
// Every method takes the owning Store so it can consult cross-cutting
// fields (indexing discipline, compare function, child count).
type backend interface {
	add(s *Store, child *Record) error
	appendChild(s *Store, child *Record) error
	prependChild(s *Store, child *Record) error
	first(s *Store) (*Record, error)
	last(s *Store) (*Record, error)
	findByName(s *Store, name dt.DT) (*Record, error)
	findByKey(s *Store, key any) (*Record, error)
	findByPosition(s *Store, position int) (*Record, error)
	prev(s *Store, child *Record) (*Record, error)
	next(s *Store, child *Record) (*Record, error)
	take(s *Store, child *Record) error
	pop(s *Store) (*Record, error)
	sort(s *Store) error
	traverse(s *Store, visit func(child *Record, position int) error) error
	children(s *Store) ([]*Record, error)
	deleteAllChildren(s *Store)
	len() int
}

// Store is the child collection owned by a branch Record: a chosen backend
// plus the indexing discipline, comparison, and agent chain that govern it.
type Store struct {
	owner       *Record
	backendKind Backend
	backend     backend
	indexing    Indexing
	compare     CompareFunc
	compareKey  KeyCompareFunc
	compareCtx  any
	spatialKey  SpatialKeyFunc
	nextAutoID  uint64
	agents      []chainedAgent
}

func newStore(owner *Record, kind Backend, indexing Indexing, compare CompareFunc) (*Store, error) {
	s := &Store{owner: owner, backendKind: kind, indexing: indexing, compare: compare}

	switch kind {
	case BackendList:
		s.backend = newListBackend()
	case BackendArray:
		s.backend = newArrayBackend()
	case BackendQueue:
		s.backend = newQueueBackend()
	case BackendRBTree:
		s.backend = newRBTreeBackend()
	case BackendOctree:
		s.backend = newOctreeBackend()
	default:
		return nil, fmt.Errorf("%w: unknown backend kind %d", ErrWrongBackend, kind)
	}

	if indexing != ByInsertion && kind == BackendQueue {
		return nil, fmt.Errorf("%w: packed queue only supports ByInsertion", ErrWrongIndexing)
	}

	if indexing == ByInsertion && (kind == BackendRBTree || kind == BackendOctree) {
		return nil, fmt.Errorf("%w: %v backend requires ByName, ByFunction, or ByHash indexing", ErrWrongIndexing, kind)
	}

	if (indexing == ByFunction || indexing == ByHash) && compare == nil {
		return nil, fmt.Errorf("%w: %v indexing requires a compare function", ErrWrongIndexing, indexing)
	}

	return s, nil
}

// NewStore constructs a standalone Store not yet attached to an owning
// Record; used by the system root and by tests constructing a store in
// isolation before wrapping it in a Record via InitializeStore.
func NewStore(kind Backend, indexing Indexing, compare CompareFunc) (*Store, error) {
	return newStore(nil, kind, indexing, compare)
}

// SetCompareCtx attaches ctx, passed unchanged to every CompareFunc call.
func (s *Store) SetCompareCtx(ctx any) { s.compareCtx = ctx }

// SetCompareKey attaches the key-comparison callback used by FindByKey on
// ByFunction/ByHash stores.
func (s *Store) SetCompareKey(fn KeyCompareFunc) { s.compareKey = fn }

// SetSpatialKey attaches the coordinate-extraction callback a BackendOctree
// store uses to place each child.
func (s *Store) SetSpatialKey(fn SpatialKeyFunc) { s.spatialKey = fn }

// SetOctreeBounds configures the root bounding cube (center and subwide, the
// half-width) a BackendOctree store partitions against, overriding the
// default center (0,0,0) and subwide 1<<30. Call before adding children;
// it does not re-partition entries already inserted.
func (s *Store) SetOctreeBounds(center [3]float64, subwide float64) error {
	ob, ok := s.backend.(*octreeBackend)
	if !ok {
		return fmt.Errorf("%w: SetOctreeBounds only applies to BackendOctree stores", ErrWrongBackend)
	}

	ob.setBounds(center, subwide)

	return nil
}

// Len returns the number of direct children currently held.
func (s *Store) Len() int { return s.backend.len() }

// Backend returns the storage discipline this store uses.
func (s *Store) Backend() Backend { return s.backendKind }

// Indexing returns the ordering discipline this store enforces.
func (s *Store) Indexing() Indexing { return s.indexing }

// NextAutoID implements dt.AutoIDSource, handing out sequential numeric
// names scoped to this store.
func (s *Store) NextAutoID() (uint64, error) {
	v := s.nextAutoID
	s.nextAutoID++

	return v, nil
}

// AddAgent appends agent to this store's dispatch chain for (domain, tag).
func (s *Store) AddAgent(domain, tag dt.ID, agent Agent) {
	s.agents = append(s.agents, chainedAgent{domain: domain, tag: tag, agent: agent})
}

func (s *Store) resolveName(child *Record) error {
	if dt.IsAutoID(child.Meta.Name.Tag) {
		id, err := dt.NextAutoID(s)
		if err != nil {
			return err
		}

		child.Meta.Name.Tag = id

		return nil
	}

	// An explicit Numeric name must never collide with a future autoid: bump
	// the counter past it so NextAutoID skips numbers already claimed here.
	if dt.CodingOf(child.Meta.Name.Tag) == dt.CodingNumeric {
		if value, err := dt.DecodeNumeric(child.Meta.Name.Tag); err == nil && value >= s.nextAutoID {
			s.nextAutoID = value + 1
		}
	}

	return nil
}

func (s *Store) add(child *Record) error {
	if err := s.resolveName(child); err != nil {
		return err
	}

	if err := s.backend.add(s, child); err != nil {
		return err
	}

	child.parent = s

	return nil
}

func (s *Store) appendChild(child *Record) error {
	if s.indexing != ByInsertion {
		return fmt.Errorf("%w: append requires ByInsertion indexing", ErrWrongIndexing)
	}

	if err := s.resolveName(child); err != nil {
		return err
	}

	if err := s.backend.appendChild(s, child); err != nil {
		return err
	}

	child.parent = s

	return nil
}

func (s *Store) prependChild(child *Record) error {
	if s.indexing != ByInsertion {
		return fmt.Errorf("%w: prepend requires ByInsertion indexing", ErrWrongIndexing)
	}

	if err := s.resolveName(child); err != nil {
		return err
	}

	if err := s.backend.prependChild(s, child); err != nil {
		return err
	}

	child.parent = s

	return nil
}

func (s *Store) first() (*Record, error) { return s.backend.first(s) }
func (s *Store) last() (*Record, error)  { return s.backend.last(s) }

func (s *Store) findByName(name dt.DT) (*Record, error) { return s.backend.findByName(s, name) }
func (s *Store) findByKey(key any) (*Record, error)     { return s.backend.findByKey(s, key) }

func (s *Store) findByPosition(position int) (*Record, error) {
	return s.backend.findByPosition(s, position)
}

func (s *Store) prev(child *Record) (*Record, error) { return s.backend.prev(s, child) }
func (s *Store) next(child *Record) (*Record, error) { return s.backend.next(s, child) }

func (s *Store) take(child *Record) error {
	if err := s.backend.take(s, child); err != nil {
		return err
	}

	child.parent = nil

	return nil
}

func (s *Store) pop() (*Record, error) {
	child, err := s.backend.pop(s)
	if err != nil {
		return nil, err
	}

	child.parent = nil

	return child, nil
}

func (s *Store) sort() error {
	if s.indexing != ByInsertion {
		return fmt.Errorf("%w: only ByInsertion stores may be explicitly sorted", ErrAlreadySorted)
	}

	return s.backend.sort(s)
}

func (s *Store) traverse(visit func(child *Record, position int) error) error {
	return s.backend.traverse(s, visit)
}

func (s *Store) children() ([]*Record, error) { return s.backend.children(s) }

func (s *Store) deleteAllChildren() { s.backend.deleteAllChildren(s) }
