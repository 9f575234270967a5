package cdp

import (
	"fmt"
	"sort"

	"github.com/Sumatoshi-tech/cascadedp/pkg/dt"
)

// arrayBackend is a contiguous slice of child pointers. Because children
// are stored as *Record rather than embedded by value, moving a record's
// slot during insertion/removal never invalidates its identity: a child's
// parent back-reference always points at the fixed *Store, not at a slot
// address, so no pointer-fixup pass over descendants is required after a
// shift (unlike an array of embedded records, where every moved record's
// children would need their "owning book" pointer reseated).
type arrayBackend struct {
	records []*Record
}

func newArrayBackend() *arrayBackend {
	return &arrayBackend{}
}

func (b *arrayBackend) len() int { return len(b.records) }

func (b *arrayBackend) less(s *Store, a, c *Record) int {
	if s.compare != nil {
		return s.compare(a, c, s.compareCtx)
	}

	return dt.Compare(a.Meta.Name, c.Meta.Name)
}

func (b *arrayBackend) add(s *Store, child *Record) error {
	switch s.indexing {
	case ByInsertion:
		return b.appendChild(s, child)
	case ByName, ByFunction, ByHash:
		idx := sort.Search(len(b.records), func(i int) bool {
			return b.less(s, b.records[i], child) >= 0
		})

		if idx < len(b.records) && b.less(s, b.records[idx], child) == 0 {
			return fmt.Errorf("%w: name %v", ErrDuplicateKey, child.Meta.Name)
		}

		b.records = append(b.records, nil)
		copy(b.records[idx+1:], b.records[idx:])
		b.records[idx] = child

		return nil
	default:
		return fmt.Errorf("%w: unsupported indexing %d", ErrWrongIndexing, s.indexing)
	}
}

func (b *arrayBackend) appendChild(_ *Store, child *Record) error {
	b.records = append(b.records, child)

	return nil
}

func (b *arrayBackend) prependChild(_ *Store, child *Record) error {
	b.records = append(b.records, nil)
	copy(b.records[1:], b.records)
	b.records[0] = child

	return nil
}

func (b *arrayBackend) first(_ *Store) (*Record, error) {
	if len(b.records) == 0 {
		return nil, ErrEmptyStore
	}

	return b.records[0], nil
}

func (b *arrayBackend) last(_ *Store) (*Record, error) {
	if len(b.records) == 0 {
		return nil, ErrEmptyStore
	}

	return b.records[len(b.records)-1], nil
}

func (b *arrayBackend) findByName(s *Store, name dt.DT) (*Record, error) {
	if s.indexing == ByName {
		idx := sort.Search(len(b.records), func(i int) bool {
			return dt.Compare(b.records[i].Meta.Name, name) >= 0
		})

		if idx < len(b.records) && dt.Equal(b.records[idx].Meta.Name, name) {
			return b.records[idx], nil
		}

		return nil, fmt.Errorf("%w: name %v", ErrNotFound, name)
	}

	for _, rec := range b.records {
		if dt.Equal(rec.Meta.Name, name) {
			return rec, nil
		}
	}

	return nil, fmt.Errorf("%w: name %v", ErrNotFound, name)
}

func (b *arrayBackend) findByKey(s *Store, key any) (*Record, error) {
	if s.compareKey == nil {
		return nil, fmt.Errorf("%w: store has no key compare function", ErrWrongIndexing)
	}

	if s.indexing == ByFunction || s.indexing == ByHash {
		idx := sort.Search(len(b.records), func(i int) bool {
			return s.compareKey(b.records[i], key, s.compareCtx) >= 0
		})

		if idx < len(b.records) && s.compareKey(b.records[idx], key, s.compareCtx) == 0 {
			return b.records[idx], nil
		}

		return nil, fmt.Errorf("%w: key %v", ErrNotFound, key)
	}

	for _, rec := range b.records {
		if s.compareKey(rec, key, s.compareCtx) == 0 {
			return rec, nil
		}
	}

	return nil, fmt.Errorf("%w: key %v", ErrNotFound, key)
}

func (b *arrayBackend) findByPosition(_ *Store, position int) (*Record, error) {
	if position < 0 || position >= len(b.records) {
		return nil, fmt.Errorf("%w: position %d out of range [0,%d)", ErrNotFound, position, len(b.records))
	}

	return b.records[position], nil
}

func (b *arrayBackend) indexOf(child *Record) int {
	for i, rec := range b.records {
		if rec == child {
			return i
		}
	}

	return -1
}

func (b *arrayBackend) prev(_ *Store, child *Record) (*Record, error) {
	idx := b.indexOf(child)
	if idx <= 0 {
		return nil, ErrNotFound
	}

	return b.records[idx-1], nil
}

func (b *arrayBackend) next(_ *Store, child *Record) (*Record, error) {
	idx := b.indexOf(child)
	if idx < 0 || idx >= len(b.records)-1 {
		return nil, ErrNotFound
	}

	return b.records[idx+1], nil
}

func (b *arrayBackend) take(_ *Store, child *Record) error {
	idx := b.indexOf(child)
	if idx < 0 {
		return fmt.Errorf("%w: record %v", ErrNotFound, child.Meta.Name)
	}

	b.records = append(b.records[:idx], b.records[idx+1:]...)

	return nil
}

func (b *arrayBackend) pop(s *Store) (*Record, error) {
	if len(b.records) == 0 {
		return nil, ErrEmptyStore
	}

	rec := b.records[0]
	if err := b.take(s, rec); err != nil {
		return nil, err
	}

	return rec, nil
}

func (b *arrayBackend) sort(s *Store) error {
	sort.SliceStable(b.records, func(i, j int) bool {
		return b.less(s, b.records[i], b.records[j]) < 0
	})

	return nil
}

func (b *arrayBackend) traverse(_ *Store, visit func(child *Record, position int) error) error {
	for i, rec := range b.records {
		if err := visit(rec, i); err != nil {
			return err
		}
	}

	return nil
}

func (b *arrayBackend) children(_ *Store) ([]*Record, error) {
	out := make([]*Record, len(b.records))
	copy(out, b.records)

	return out, nil
}

func (b *arrayBackend) deleteAllChildren(_ *Store) {
	for _, rec := range b.records {
		_ = rec.Finalize()
	}

	b.records = nil
}
