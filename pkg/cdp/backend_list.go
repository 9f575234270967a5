package cdp

import (
	"fmt"

	"github.com/Sumatoshi-tech/cascadedp/pkg/dt"
)

// listNode is one link of the doubly linked list backend. The backend owns
// nodes separately from Record so Record itself carries no backend-specific
// fields.
type listNode struct {
	rec  *Record
	prev *listNode
	next *listNode
}

// listBackend is a doubly linked list: O(1) append/prepend/take, O(n)
// positional and name lookup. Suited to small or append-mostly stores
// where insertion order matters more than lookup speed.
type listBackend struct {
	head  *listNode
	tail  *listNode
	index map[*Record]*listNode
	count int
}

func newListBackend() *listBackend {
	return &listBackend{index: make(map[*Record]*listNode)}
}

func (b *listBackend) len() int { return b.count }

func (b *listBackend) linkTail(n *listNode) {
	n.prev = b.tail
	n.next = nil

	if b.tail != nil {
		b.tail.next = n
	} else {
		b.head = n
	}

	b.tail = n
}

func (b *listBackend) linkHead(n *listNode) {
	n.next = b.head
	n.prev = nil

	if b.head != nil {
		b.head.prev = n
	} else {
		b.tail = n
	}

	b.head = n
}

func (b *listBackend) unlink(n *listNode) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		b.head = n.next
	}

	if n.next != nil {
		n.next.prev = n.prev
	} else {
		b.tail = n.prev
	}
}

func (b *listBackend) add(s *Store, child *Record) error {
	switch s.indexing {
	case ByInsertion:
		return b.appendChild(s, child)
	case ByName:
		return b.insertSorted(s, child, func(a, c *Record) int { return dt.Compare(a.Meta.Name, c.Meta.Name) })
	case ByFunction, ByHash:
		return b.insertSorted(s, child, func(a, c *Record) int { return s.compare(a, c, s.compareCtx) })
	default:
		return fmt.Errorf("%w: unsupported indexing %d", ErrWrongIndexing, s.indexing)
	}
}

func (b *listBackend) insertSorted(s *Store, child *Record, less func(a, c *Record) int) error {
	for n := b.head; n != nil; n = n.next {
		cmp := less(child, n.rec)
		if cmp == 0 {
			return fmt.Errorf("%w: name %v", ErrDuplicateKey, child.Meta.Name)
		}

		if cmp < 0 {
			node := &listNode{rec: child}

			node.prev = n.prev
			node.next = n

			if n.prev != nil {
				n.prev.next = node
			} else {
				b.head = node
			}

			n.prev = node

			b.index[child] = node
			b.count++

			return nil
		}
	}

	return b.appendChild(s, child)
}

func (b *listBackend) appendChild(_ *Store, child *Record) error {
	n := &listNode{rec: child}
	b.linkTail(n)
	b.index[child] = n
	b.count++

	return nil
}

func (b *listBackend) prependChild(_ *Store, child *Record) error {
	n := &listNode{rec: child}
	b.linkHead(n)
	b.index[child] = n
	b.count++

	return nil
}

func (b *listBackend) first(_ *Store) (*Record, error) {
	if b.head == nil {
		return nil, ErrEmptyStore
	}

	return b.head.rec, nil
}

func (b *listBackend) last(_ *Store) (*Record, error) {
	if b.tail == nil {
		return nil, ErrEmptyStore
	}

	return b.tail.rec, nil
}

func (b *listBackend) findByName(_ *Store, name dt.DT) (*Record, error) {
	for n := b.head; n != nil; n = n.next {
		if dt.Equal(n.rec.Meta.Name, name) {
			return n.rec, nil
		}
	}

	return nil, fmt.Errorf("%w: name %v", ErrNotFound, name)
}

func (b *listBackend) findByKey(s *Store, key any) (*Record, error) {
	if s.compareKey == nil {
		return nil, fmt.Errorf("%w: store has no key compare function", ErrWrongIndexing)
	}

	for n := b.head; n != nil; n = n.next {
		if s.compareKey(n.rec, key, s.compareCtx) == 0 {
			return n.rec, nil
		}
	}

	return nil, fmt.Errorf("%w: key %v", ErrNotFound, key)
}

func (b *listBackend) findByPosition(_ *Store, position int) (*Record, error) {
	if position < 0 || position >= b.count {
		return nil, fmt.Errorf("%w: position %d out of range [0,%d)", ErrNotFound, position, b.count)
	}

	n := b.head
	for i := 0; i < position; i++ {
		n = n.next
	}

	return n.rec, nil
}

func (b *listBackend) prev(_ *Store, child *Record) (*Record, error) {
	n, ok := b.index[child]
	if !ok || n.prev == nil {
		return nil, ErrNotFound
	}

	return n.prev.rec, nil
}

func (b *listBackend) next(_ *Store, child *Record) (*Record, error) {
	n, ok := b.index[child]
	if !ok || n.next == nil {
		return nil, ErrNotFound
	}

	return n.next.rec, nil
}

func (b *listBackend) take(_ *Store, child *Record) error {
	n, ok := b.index[child]
	if !ok {
		return fmt.Errorf("%w: record %v", ErrNotFound, child.Meta.Name)
	}

	b.unlink(n)
	delete(b.index, child)
	b.count--

	return nil
}

func (b *listBackend) pop(s *Store) (*Record, error) {
	if b.head == nil {
		return nil, ErrEmptyStore
	}

	rec := b.head.rec
	if err := b.take(s, rec); err != nil {
		return nil, err
	}

	return rec, nil
}

func (b *listBackend) sort(s *Store) error {
	children, err := b.children(s)
	if err != nil {
		return err
	}

	less := func(a, c *Record) int {
		if s.compare != nil {
			return s.compare(a, c, s.compareCtx)
		}

		return dt.Compare(a.Meta.Name, c.Meta.Name)
	}

	for i := 1; i < len(children); i++ {
		for j := i; j > 0 && less(children[j], children[j-1]) < 0; j-- {
			children[j], children[j-1] = children[j-1], children[j]
		}
	}

	b.head, b.tail = nil, nil
	b.index = make(map[*Record]*listNode, len(children))
	b.count = 0

	for _, rec := range children {
		n := &listNode{rec: rec}
		b.linkTail(n)
		b.index[rec] = n
		b.count++
	}

	return nil
}

func (b *listBackend) traverse(_ *Store, visit func(child *Record, position int) error) error {
	position := 0
	for n := b.head; n != nil; n = n.next {
		if err := visit(n.rec, position); err != nil {
			return err
		}

		position++
	}

	return nil
}

func (b *listBackend) children(_ *Store) ([]*Record, error) {
	out := make([]*Record, 0, b.count)
	for n := b.head; n != nil; n = n.next {
		out = append(out, n.rec)
	}

	return out, nil
}

func (b *listBackend) deleteAllChildren(_ *Store) {
	for n := b.head; n != nil; {
		next := n.next
		_ = n.rec.Finalize()
		n = next
	}

	b.head, b.tail = nil, nil
	b.index = make(map[*Record]*listNode)
	b.count = 0
}
