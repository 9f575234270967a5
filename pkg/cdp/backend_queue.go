package cdp

import (
	"fmt"

	"github.com/Sumatoshi-tech/cascadedp/pkg/dt"
)

// queueChunkSize is the fixed capacity of one packed-queue node, grouping
// several child pointers per allocation instead of one node per child.
const queueChunkSize = 32

// queueChunk is one fixed-capacity buffer of the packed queue, with
// first/last marking the live window within records (mirroring a
// contiguous buffer that grows from both ends).
type queueChunk struct {
	records    [queueChunkSize]*Record
	first, last int // last is exclusive; empty chunk has first == last
	prev, next *queueChunk
}

// queueBackend is a packed FIFO/deque: fixed-size chunks linked head to
// tail, each holding several child pointers contiguously. It supports only
// ByInsertion ordering and only first/last removal; positional/keyed
// lookup walks chunks linearly.
type queueBackend struct {
	head, tail *queueChunk
	count      int
}

func newQueueBackend() *queueBackend {
	return &queueBackend{}
}

func (b *queueBackend) len() int { return b.count }

func (b *queueBackend) add(s *Store, child *Record) error {
	return b.appendChild(s, child)
}

func (b *queueBackend) appendChild(_ *Store, child *Record) error {
	if b.tail == nil {
		b.tail = &queueChunk{}
		b.head = b.tail
	}

	if b.tail.last == queueChunkSize {
		if b.tail.first > 0 {
			shift := b.tail.first
			copy(b.tail.records[:b.tail.last-shift], b.tail.records[shift:b.tail.last])
			b.tail.first, b.tail.last = 0, b.tail.last-shift
		}

		if b.tail.last == queueChunkSize {
			chunk := &queueChunk{}
			chunk.prev = b.tail
			b.tail.next = chunk
			b.tail = chunk
		}
	}

	b.tail.records[b.tail.last] = child
	b.tail.last++
	b.count++

	return nil
}

func (b *queueBackend) prependChild(_ *Store, child *Record) error {
	if b.head == nil {
		b.head = &queueChunk{first: queueChunkSize, last: queueChunkSize}
		b.tail = b.head
	}

	if b.head.first == 0 {
		chunk := &queueChunk{first: queueChunkSize, last: queueChunkSize}
		chunk.next = b.head
		b.head.prev = chunk
		b.head = chunk
	}

	b.head.first--
	b.head.records[b.head.first] = child
	b.count++

	return nil
}

func (b *queueBackend) first(_ *Store) (*Record, error) {
	if b.count == 0 {
		return nil, ErrEmptyStore
	}

	return b.head.records[b.head.first], nil
}

func (b *queueBackend) last(_ *Store) (*Record, error) {
	if b.count == 0 {
		return nil, ErrEmptyStore
	}

	return b.tail.records[b.tail.last-1], nil
}

func (b *queueBackend) findByName(_ *Store, name dt.DT) (*Record, error) {
	for c := b.head; c != nil; c = c.next {
		for i := c.first; i < c.last; i++ {
			if dt.Equal(c.records[i].Meta.Name, name) {
				return c.records[i], nil
			}
		}
	}

	return nil, fmt.Errorf("%w: name %v", ErrNotFound, name)
}

func (b *queueBackend) findByKey(s *Store, key any) (*Record, error) {
	if s.compareKey == nil {
		return nil, fmt.Errorf("%w: store has no key compare function", ErrWrongIndexing)
	}

	for c := b.head; c != nil; c = c.next {
		for i := c.first; i < c.last; i++ {
			if s.compareKey(c.records[i], key, s.compareCtx) == 0 {
				return c.records[i], nil
			}
		}
	}

	return nil, fmt.Errorf("%w: key %v", ErrNotFound, key)
}

func (b *queueBackend) findByPosition(_ *Store, position int) (*Record, error) {
	if position < 0 {
		return nil, fmt.Errorf("%w: position %d out of range", ErrNotFound, position)
	}

	for c := b.head; c != nil; c = c.next {
		chunkLen := c.last - c.first
		if position < chunkLen {
			return c.records[c.first+position], nil
		}

		position -= chunkLen
	}

	return nil, fmt.Errorf("%w: position out of range", ErrNotFound)
}

func (b *queueBackend) locate(child *Record) (*queueChunk, int) {
	for c := b.head; c != nil; c = c.next {
		for i := c.first; i < c.last; i++ {
			if c.records[i] == child {
				return c, i
			}
		}
	}

	return nil, -1
}

func (b *queueBackend) prev(_ *Store, child *Record) (*Record, error) {
	c, i := b.locate(child)
	if c == nil {
		return nil, ErrNotFound
	}

	if i > c.first {
		return c.records[i-1], nil
	}

	if c.prev == nil || c.prev.last == c.prev.first {
		return nil, ErrNotFound
	}

	return c.prev.records[c.prev.last-1], nil
}

func (b *queueBackend) next(_ *Store, child *Record) (*Record, error) {
	c, i := b.locate(child)
	if c == nil {
		return nil, ErrNotFound
	}

	if i+1 < c.last {
		return c.records[i+1], nil
	}

	if c.next == nil || c.next.last == c.next.first {
		return nil, ErrNotFound
	}

	return c.next.records[c.next.first], nil
}

// take only supports removing the current first or last record, matching
// the packed queue's original restriction to double-ended removal.
func (b *queueBackend) take(s *Store, child *Record) error {
	first, err := b.first(s)
	if err == nil && first == child {
		_, popErr := b.pop(s)

		return popErr
	}

	last, err := b.last(s)
	if err == nil && last == child {
		return b.dropLast()
	}

	return fmt.Errorf("%w: packed queue only supports removing the first or last record", ErrWrongBackend)
}

func (b *queueBackend) dropLast() error {
	b.tail.last--
	b.tail.records[b.tail.last] = nil
	b.count--

	if b.tail.last == b.tail.first {
		empty := b.tail
		b.tail = empty.prev

		if b.tail != nil {
			b.tail.next = nil
		} else {
			b.head = nil
		}
	}

	return nil
}

func (b *queueBackend) pop(_ *Store) (*Record, error) {
	if b.count == 0 {
		return nil, ErrEmptyStore
	}

	rec := b.head.records[b.head.first]
	b.head.records[b.head.first] = nil
	b.head.first++
	b.count--

	if b.head.first == b.head.last {
		empty := b.head
		b.head = empty.next

		if b.head != nil {
			b.head.prev = nil
		} else {
			b.tail = nil
		}
	}

	return rec, nil
}

func (b *queueBackend) sort(_ *Store) error {
	return fmt.Errorf("%w: packed queue does not support sorting", ErrWrongBackend)
}

func (b *queueBackend) traverse(_ *Store, visit func(child *Record, position int) error) error {
	position := 0
	for c := b.head; c != nil; c = c.next {
		for i := c.first; i < c.last; i++ {
			if err := visit(c.records[i], position); err != nil {
				return err
			}

			position++
		}
	}

	return nil
}

func (b *queueBackend) children(_ *Store) ([]*Record, error) {
	out := make([]*Record, 0, b.count)
	for c := b.head; c != nil; c = c.next {
		out = append(out, c.records[c.first:c.last]...)
	}

	return out, nil
}

func (b *queueBackend) deleteAllChildren(_ *Store) {
	for c := b.head; c != nil; c = c.next {
		for i := c.first; i < c.last; i++ {
			_ = c.records[i].Finalize()
		}
	}

	b.head, b.tail = nil, nil
	b.count = 0
}
