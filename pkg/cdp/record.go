package cdp

import (
	"context"
	"fmt"

	"github.com/Sumatoshi-tech/cascadedp/pkg/dt"
)

// RecordType discriminates the two record shapes: a leaf carrying a Data
// payload, or a branch carrying a child Store.
type RecordType uint8

const (
	RecordData RecordType = iota
	RecordStore
)

// Shadowing controls whether a record may be the target of a link (shadow
// record) and, if so, how many simultaneous links are permitted.
type Shadowing uint8

const (
	// ShadowingNone forbids this record from being linked to.
	ShadowingNone Shadowing = iota
	// ShadowingSingle permits exactly one link at a time.
	ShadowingSingle
	// ShadowingMany permits any number of simultaneous links.
	ShadowingMany
)

// Metarecord carries the identity and structural flags every Record has
// regardless of whether it holds Data or a Store.
type Metarecord struct {
	Type      RecordType
	Shadowing Shadowing
	Hidden    bool
	Name      dt.DT
}

// shadowSet tracks the records that currently link to a shadowed record.
type shadowSet struct {
	links []*Record
}

func (s *shadowSet) add(r *Record) {
	s.links = append(s.links, r)
}

func (s *shadowSet) remove(r *Record) {
	for i, l := range s.links {
		if l == r {
			s.links = append(s.links[:i], s.links[i+1:]...)

			return
		}
	}
}

func (s *shadowSet) empty() bool {
	return s == nil || len(s.links) == 0
}

// Record is the single node kind of the hierarchy: a Metarecord identity
// plus exactly one of a Data payload or a child Store, an optional link to
// another record (making it a shadow), and the back-reference to the Store
// that owns it (nil only for the system root).
type Record struct {
	Meta   Metarecord
	parent *Store
	data   *Data
	store  *Store
	link   *Record
	shadow *shadowSet
}

// Initialize constructs a leaf Record carrying data. name must be unique
// within the eventual owning store's indexing discipline; that is enforced
// at Add/Append time, not here.
func Initialize(name dt.DT, shadowing Shadowing, hidden bool, data *Data) (*Record, error) {
	if data == nil {
		return nil, fmt.Errorf("%w: initialize requires a non-nil data payload", ErrNoData)
	}

	return &Record{
		Meta: Metarecord{Type: RecordData, Shadowing: shadowing, Hidden: hidden, Name: name},
		data: data,
	}, nil
}

// InitializeStore constructs a branch Record carrying a child Store built
// with the given backend and indexing discipline.
func InitializeStore(name dt.DT, shadowing Shadowing, hidden bool, backend Backend, indexing Indexing, compare CompareFunc) (*Record, error) {
	r := &Record{
		Meta: Metarecord{Type: RecordStore, Shadowing: shadowing, Hidden: hidden, Name: name},
	}

	store, err := newStore(r, backend, indexing, compare)
	if err != nil {
		return nil, err
	}

	r.store = store

	return r, nil
}

// Finalize releases r's payload (Data.Close or recursive store teardown)
// and unbinds any shadow links pointing at or from r. Finalize fails with
// ErrHasShadows if other records still link to r.
func (r *Record) Finalize() error {
	if !r.shadow.empty() {
		return fmt.Errorf("%w: record %v", ErrHasShadows, r.Meta.Name)
	}

	if r.link != nil {
		r.link.unshadow(r)
		r.link = nil
	}

	switch r.Meta.Type {
	case RecordData:
		if r.data != nil {
			r.data.Close()
			r.data = nil
		}
	case RecordStore:
		if r.store != nil {
			r.store.deleteAllChildren()
			r.store = nil
		}
	}

	return nil
}

func (r *Record) unshadow(linker *Record) {
	if r.shadow != nil {
		r.shadow.remove(linker)
	}
}

// IsData reports whether r carries a Data payload.
func (r *Record) IsData() bool { return r.Meta.Type == RecordData }

// IsStore reports whether r carries a child Store.
func (r *Record) IsStore() bool { return r.Meta.Type == RecordStore }

// Data returns r's payload, or nil if r is not a data record.
func (r *Record) Data() *Data { return r.data }

// Store returns r's child store, or nil if r is not a store record.
func (r *Record) Store() *Store { return r.store }

// Parent returns the Store that owns r, or nil for the system root.
func (r *Record) Parent() *Store { return r.parent }

// Link binds r as a shadow record pointing at target. target's Shadowing
// policy must permit it: ShadowingNone always fails, ShadowingSingle fails
// if target already has a link.
func (r *Record) Link(target *Record) error {
	if target.Meta.Shadowing == ShadowingNone {
		return fmt.Errorf("%w: target %v does not permit shadowing", ErrWrongIndexing, target.Meta.Name)
	}

	if target.Meta.Shadowing == ShadowingSingle && !target.shadow.empty() {
		return fmt.Errorf("%w: target %v already has a shadow link", ErrDuplicateKey, target.Meta.Name)
	}

	if r.link != nil {
		r.link.unshadow(r)
	}

	r.link = target

	if target.shadow == nil {
		target.shadow = &shadowSet{}
	}

	target.shadow.add(r)

	return nil
}

// Resolve follows r's shadow link, returning ErrDanglingLink if r is not a
// shadow record.
func (r *Record) Resolve() (*Record, error) {
	if r.link == nil {
		return nil, fmt.Errorf("%w: record %v is not a shadow", ErrDanglingLink, r.Meta.Name)
	}

	return r.link, nil
}

// Add inserts child into r's store, honoring the store's indexing
// discipline. It fails with ErrNoStore if r is not a store record.
func (r *Record) Add(child *Record) error {
	if r.store == nil {
		return fmt.Errorf("%w: record %v", ErrNoStore, r.Meta.Name)
	}

	return r.store.add(child)
}

// Append inserts child at the end of r's store. Valid only for ByInsertion
// stores; other indexings are rejected with an error.
func (r *Record) Append(child *Record) error {
	if r.store == nil {
		return fmt.Errorf("%w: record %v", ErrNoStore, r.Meta.Name)
	}

	return r.store.appendChild(child)
}

// Prepend inserts child at the start of r's store. Valid only for
// ByInsertion stores.
func (r *Record) Prepend(child *Record) error {
	if r.store == nil {
		return fmt.Errorf("%w: record %v", ErrNoStore, r.Meta.Name)
	}

	return r.store.prependChild(child)
}

// First returns r's first child, or ErrEmptyStore.
func (r *Record) First() (*Record, error) {
	if r.store == nil {
		return nil, fmt.Errorf("%w: record %v", ErrNoStore, r.Meta.Name)
	}

	return r.store.first()
}

// Last returns r's last child, or ErrEmptyStore.
func (r *Record) Last() (*Record, error) {
	if r.store == nil {
		return nil, fmt.Errorf("%w: record %v", ErrNoStore, r.Meta.Name)
	}

	return r.store.last()
}

// FindByName looks up a direct child of r by name. Valid for any indexing.
func (r *Record) FindByName(name dt.DT) (*Record, error) {
	if r.store == nil {
		return nil, fmt.Errorf("%w: record %v", ErrNoStore, r.Meta.Name)
	}

	return r.store.findByName(name)
}

// FindByKey looks up a direct child by comparison key. Valid only for
// ByFunction/ByHash stores whose compare callback accepts key.
func (r *Record) FindByKey(key any) (*Record, error) {
	if r.store == nil {
		return nil, fmt.Errorf("%w: record %v", ErrNoStore, r.Meta.Name)
	}

	return r.store.findByKey(key)
}

// FindByPosition looks up the nth direct child (0-based). Valid for any
// backend; cost varies by backend.
func (r *Record) FindByPosition(position int) (*Record, error) {
	if r.store == nil {
		return nil, fmt.Errorf("%w: record %v", ErrNoStore, r.Meta.Name)
	}

	return r.store.findByPosition(position)
}

// Prev returns the sibling immediately before r within its parent store.
func (r *Record) Prev() (*Record, error) {
	if r.parent == nil {
		return nil, fmt.Errorf("%w: record %v", ErrIsRoot, r.Meta.Name)
	}

	return r.parent.prev(r)
}

// Next returns the sibling immediately after r within its parent store.
func (r *Record) Next() (*Record, error) {
	if r.parent == nil {
		return nil, fmt.Errorf("%w: record %v", ErrIsRoot, r.Meta.Name)
	}

	return r.parent.next(r)
}

// Take removes r from its parent store and leaves it detached (parent
// becomes nil), without finalizing its payload. It returns only an error.
func (r *Record) Take() error {
	if r.parent == nil {
		return fmt.Errorf("%w: record %v", ErrIsRoot, r.Meta.Name)
	}

	return r.parent.take(r)
}

// Pop removes and returns the first child of r's store (FIFO pop), used
// chiefly by the packed-queue backend.
func (r *Record) Pop() (*Record, error) {
	if r.store == nil {
		return nil, fmt.Errorf("%w: record %v", ErrNoStore, r.Meta.Name)
	}

	return r.store.pop()
}

// Remove detaches child from r's store and finalizes it.
func (r *Record) Remove(child *Record) error {
	if r.store == nil {
		return fmt.Errorf("%w: record %v", ErrNoStore, r.Meta.Name)
	}

	if err := r.store.take(child); err != nil {
		return err
	}

	return child.Finalize()
}

// Sort re-orders r's store's children according to its compare function.
// Valid only for ByInsertion stores (the other disciplines stay sorted by
// construction); fails with ErrAlreadySorted otherwise.
func (r *Record) Sort() error {
	if r.store == nil {
		return fmt.Errorf("%w: record %v", ErrNoStore, r.Meta.Name)
	}

	return r.store.sort()
}

// Traverse visits each direct child of r in store order, stopping at the
// first error returned by visit.
func (r *Record) Traverse(visit func(child *Record, position int) error) error {
	if r.store == nil {
		return fmt.Errorf("%w: record %v", ErrNoStore, r.Meta.Name)
	}

	return r.store.traverse(visit)
}

// Entry is one step of a DeepTraverse walk: the current record, its parent,
// its position among its siblings and its depth from the walk's root. It
// does not carry the previous or next sibling.
type Entry struct {
	Record   *Record
	Parent   *Record
	Position int
	Depth    int
}

// DeepTraverse walks r and its full descendant tree in pre-order using an
// explicit, growable stack (no recursion, so depth is bounded only by
// available memory). ctx is checked between records so a caller can cancel
// a walk over a large hierarchy.
func (r *Record) DeepTraverse(ctx context.Context, visit func(Entry) error) error {
	type frame struct {
		rec      *Record
		parent   *Record
		position int
		depth    int
	}

	stack := []frame{{rec: r, parent: nil, position: 0, depth: 0}}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if err := visit(Entry{Record: top.rec, Parent: top.parent, Position: top.position, Depth: top.depth}); err != nil {
			return err
		}

		if top.rec.store == nil {
			continue
		}

		children, err := top.rec.store.children()
		if err != nil {
			return err
		}

		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, frame{rec: children[i], parent: top.rec, position: i, depth: top.depth + 1})
		}
	}

	return nil
}

// Path returns the sequence of names from the walk-root's topmost child
// down to r, by walking parent back-references. The walk-root itself (the
// record with no parent store) contributes no segment, so Path on the
// walk-root returns an empty slice; this keeps Path and FindByPath inverses
// of each other: FindByPath(root, root.Path()) == root and
// FindByPath(root, child.Path()) == child for any descendant child.
func (r *Record) Path() []dt.DT {
	var reversed []dt.DT

	for cur := r; cur != nil && cur.parent != nil; cur = cur.parent.owner {
		reversed = append(reversed, cur.Meta.Name)
	}

	path := make([]dt.DT, len(reversed))
	for i, name := range reversed {
		path[len(reversed)-1-i] = name
	}

	return path
}

// FindByPath resolves a slash-style path of names starting at r, descending
// through child stores by FindByName at each step.
func FindByPath(root *Record, path []dt.DT) (*Record, error) {
	cur := root

	for _, name := range path {
		next, err := cur.FindByName(name)
		if err != nil {
			return nil, err
		}

		cur = next
	}

	return cur, nil
}
