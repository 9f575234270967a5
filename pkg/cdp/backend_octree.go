package cdp

import (
	"fmt"

	"github.com/Sumatoshi-tech/cascadedp/pkg/dt"
)

// octreeEpsilon bounds the smallest half-width a node may subdivide to,
// guarding against runaway recursion when many records share a coordinate.
const octreeEpsilon = 1e-10

// octreeEntry is one record held in a node's list, doubly linked so
// Prev/Next can walk within and across node boundaries without a full
// re-traverse.
type octreeEntry struct {
	rec        *Record
	prev, next *octreeEntry
	node       *octreeNode
}

type octreeBound struct {
	subwide float64
	center  [3]float64
}

// octreeNode is one cell of the spatial partition: up to 8 children
// (octants), the list of records stored at this cell (add descends until a
// further split would fall below octreeEpsilon, then appends here), and the
// bound it covers.
type octreeNode struct {
	children [8]*octreeNode
	parent   *octreeNode
	index    int
	bound    octreeBound
	list     *octreeEntry
}

// octreeBackend partitions children by a 3-axis spatial key (SpatialKeyFunc
// on the owning Store), recursively subdividing a cubic bound into 8
// octants. Insert descends one octant per level; lookup and removal walk
// every entry (O(n)); Traverse visits records in node-then-child order, not coordinate order.
type octreeBackend struct {
	root  octreeNode
	depth int
	count int
}

func newOctreeBackend() *octreeBackend {
	return &octreeBackend{
		root:  octreeNode{bound: octreeBound{subwide: 1 << 30}},
		depth: 1,
	}
}

func (b *octreeBackend) len() int { return b.count }

// setBounds replaces the root cell's center and half-width ("subwide" in
// the original). Only meaningful before any children have been added: it
// does not re-partition existing entries.
func (b *octreeBackend) setBounds(center [3]float64, subwide float64) {
	b.root.bound = octreeBound{subwide: subwide, center: center}
}

func quadrantBound(parent octreeBound, n int) octreeBound {
	half := parent.subwide / 2
	signs := [8][3]float64{
		{+1, +1, +1}, {-1, +1, +1}, {+1, -1, +1}, {-1, -1, +1},
		{+1, +1, -1}, {-1, +1, -1}, {+1, -1, -1}, {-1, -1, -1},
	}

	s := signs[n]

	return octreeBound{
		subwide: half,
		center: [3]float64{
			parent.center[0] + s[0]*half,
			parent.center[1] + s[1]*half,
			parent.center[2] + s[2]*half,
		},
	}
}

// octantBits returns which of the 8 child quadrants of bound contains
// coord, one bit per axis.
func octantBits(bound octreeBound, coord [3]float64) int {
	n := 0

	if coord[0] < bound.center[0] {
		n |= 1
	}

	if coord[1] < bound.center[1] {
		n |= 2
	}

	if coord[2] < bound.center[2] {
		n |= 4
	}

	return n
}

func (b *octreeBackend) add(s *Store, child *Record) error {
	if s.spatialKey == nil {
		return fmt.Errorf("%w: octree backend requires a spatial key function", ErrWrongIndexing)
	}

	coord := s.spatialKey(child)

	node := &b.root
	depth := 1

	for {
		n := octantBits(node.bound, coord)
		if node.children[n] != nil {
			node = node.children[n]
			depth++

			continue
		}

		bound := quadrantBound(node.bound, n)
		if bound.subwide <= octreeEpsilon {
			break
		}

		node.children[n] = &octreeNode{parent: node, bound: bound, index: n}
		node = node.children[n]
		depth++
	}

	entry := &octreeEntry{rec: child, node: node, next: node.list}
	if entry.next != nil {
		entry.next.prev = entry
	}

	node.list = entry

	b.count++
	if depth > b.depth {
		b.depth = depth
	}

	return nil
}

func (b *octreeBackend) appendChild(_ *Store, _ *Record) error {
	return fmt.Errorf("%w: octree backend orders by spatial position, not insertion", ErrWrongIndexing)
}

func (b *octreeBackend) prependChild(_ *Store, _ *Record) error {
	return fmt.Errorf("%w: octree backend orders by spatial position, not insertion", ErrWrongIndexing)
}

func nodeFirst(node *octreeNode) *octreeEntry {
	for {
		if node.list != nil {
			return node.list
		}

		next := (*octreeNode)(nil)

		for _, c := range node.children {
			if c != nil {
				next = c

				break
			}
		}

		if next == nil {
			return nil
		}

		node = next
	}
}

func nodeLast(node *octreeNode) *octreeEntry {
	var last *octreeEntry

	for {
		if node.list != nil {
			for e := node.list; e != nil; e = e.next {
				last = e
			}
		}

		next := (*octreeNode)(nil)

		for i := 7; i >= 0; i-- {
			if node.children[i] != nil {
				next = node.children[i]

				break
			}
		}

		if next == nil {
			return last
		}

		node = next
	}
}

func (b *octreeBackend) first(_ *Store) (*Record, error) {
	e := nodeFirst(&b.root)
	if e == nil {
		return nil, ErrEmptyStore
	}

	return e.rec, nil
}

func (b *octreeBackend) last(_ *Store) (*Record, error) {
	e := nodeLast(&b.root)
	if e == nil {
		return nil, ErrEmptyStore
	}

	return e.rec, nil
}

// walk returns every entry in node-then-child order, the same order
// Traverse/children expose.
func (b *octreeBackend) walk() []*octreeEntry {
	out := make([]*octreeEntry, 0, b.count)

	var visit func(node *octreeNode)

	visit = func(node *octreeNode) {
		for e := node.list; e != nil; e = e.next {
			out = append(out, e)
		}

		for _, c := range node.children {
			if c != nil {
				visit(c)
			}
		}
	}

	visit(&b.root)

	return out
}

func (b *octreeBackend) findByName(_ *Store, name dt.DT) (*Record, error) {
	for _, e := range b.walk() {
		if dt.Equal(e.rec.Meta.Name, name) {
			return e.rec, nil
		}
	}

	return nil, fmt.Errorf("%w: name %v", ErrNotFound, name)
}

func (b *octreeBackend) findByKey(s *Store, key any) (*Record, error) {
	if s.compareKey == nil {
		return nil, fmt.Errorf("%w: store has no key compare function", ErrWrongIndexing)
	}

	for _, e := range b.walk() {
		if s.compareKey(e.rec, key, s.compareCtx) == 0 {
			return e.rec, nil
		}
	}

	return nil, fmt.Errorf("%w: key %v", ErrNotFound, key)
}

func (b *octreeBackend) findByPosition(_ *Store, position int) (*Record, error) {
	entries := b.walk()
	if position < 0 || position >= len(entries) {
		return nil, fmt.Errorf("%w: position %d out of range [0,%d)", ErrNotFound, position, len(entries))
	}

	return entries[position].rec, nil
}

func (b *octreeBackend) locate(child *Record) *octreeEntry {
	for _, e := range b.walk() {
		if e.rec == child {
			return e
		}
	}

	return nil
}

func (b *octreeBackend) prev(_ *Store, child *Record) (*Record, error) {
	entries := b.walk()

	for i, e := range entries {
		if e.rec == child {
			if i == 0 {
				return nil, ErrNotFound
			}

			return entries[i-1].rec, nil
		}
	}

	return nil, ErrNotFound
}

func (b *octreeBackend) next(_ *Store, child *Record) (*Record, error) {
	entries := b.walk()

	for i, e := range entries {
		if e.rec == child {
			if i == len(entries)-1 {
				return nil, ErrNotFound
			}

			return entries[i+1].rec, nil
		}
	}

	return nil, ErrNotFound
}

func (b *octreeBackend) removeEntry(e *octreeEntry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		e.node.list = e.next
	}

	if e.next != nil {
		e.next.prev = e.prev
	}

	b.count--

	node := e.node
	for node.parent != nil {
		if node.list != nil {
			return
		}

		hasChildren := false

		for _, c := range node.children {
			if c != nil {
				hasChildren = true

				break
			}
		}

		if hasChildren {
			return
		}

		parent := node.parent
		parent.children[node.index] = nil
		node = parent
	}
}

func (b *octreeBackend) take(_ *Store, child *Record) error {
	e := b.locate(child)
	if e == nil {
		return fmt.Errorf("%w: record %v", ErrNotFound, child.Meta.Name)
	}

	b.removeEntry(e)

	return nil
}

func (b *octreeBackend) pop(s *Store) (*Record, error) {
	rec, err := b.first(s)
	if err != nil {
		return nil, err
	}

	if err := b.take(s, rec); err != nil {
		return nil, err
	}

	return rec, nil
}

func (b *octreeBackend) sort(_ *Store) error {
	return fmt.Errorf("%w: octree backend is always ordered by spatial position", ErrAlreadySorted)
}

func (b *octreeBackend) traverse(_ *Store, visit func(child *Record, position int) error) error {
	for i, e := range b.walk() {
		if err := visit(e.rec, i); err != nil {
			return err
		}
	}

	return nil
}

func (b *octreeBackend) children(_ *Store) ([]*Record, error) {
	entries := b.walk()
	out := make([]*Record, len(entries))

	for i, e := range entries {
		out[i] = e.rec
	}

	return out, nil
}

func (b *octreeBackend) deleteAllChildren(_ *Store) {
	for _, e := range b.walk() {
		_ = e.rec.Finalize()
	}

	b.root = octreeNode{bound: b.root.bound}
	b.depth = 1
	b.count = 0
}
