package cdp

import (
	"bytes"
	"fmt"
)

// Hibernate compresses a BackendRBTree store's structural arrays in place,
// freeing the uncompressed node pool. Only the red-black backend supports
// hibernation; the original's packed-queue/array/octree backends already
// keep their children in a single contiguous allocation with nothing to
// gain from deinterleaving. Child Record values are left live in memory —
// see HibernatedRecords for lifting them out for durable persistence.
// Hibernate panics if the store is already hibernated; callers that don't
// track this themselves should check IsHibernated first.
func (s *Store) Hibernate() error {
	b, ok := s.backend.(*rbtreeBackend)
	if !ok {
		return fmt.Errorf("%w: hibernate requires a red-black backend", ErrWrongBackend)
	}

	b.alloc.Hibernate()

	return nil
}

// IsHibernated reports whether a red-black store is currently hibernated.
func (s *Store) IsHibernated() (bool, error) {
	b, ok := s.backend.(*rbtreeBackend)
	if !ok {
		return false, fmt.Errorf("%w: only red-black stores hibernate", ErrWrongBackend)
	}

	return b.alloc.hibernatedLen > 0, nil
}

// Boot reverses Hibernate, decompressing the structural arrays back into a
// live node pool. Call SetHibernatedRecords first when booting from a cold
// process (the structural blob alone carries no record payloads).
func (s *Store) Boot() error {
	b, ok := s.backend.(*rbtreeBackend)
	if !ok {
		return fmt.Errorf("%w: boot requires a red-black backend", ErrWrongBackend)
	}

	b.alloc.Boot()

	if st := b.storage(); b.root == 0 && len(st) > 1 {
		for i := 1; i < len(st); i++ {
			if b.alloc.gaps[uint32(i)] {
				continue
			}

			b.count++
			if st[i].value != nil {
				st[i].value.parent = s
			}

			if st[i].parent == 0 {
				b.root = uint32(i)
			}
		}

		b.recomputeMinNode()
		b.recomputeMaxNode()
	}

	return nil
}

// SerializeStructure writes a hibernated store's structural arrays
// (key/parent/left/right/color, LZ4-compressed) to a portable byte slice.
// Store() must be hibernated first. Record payloads are not included —
// pair this with HibernatedRecords for a full checkpoint.
func (s *Store) SerializeStructure() ([]byte, error) {
	b, ok := s.backend.(*rbtreeBackend)
	if !ok {
		return nil, fmt.Errorf("%w: serialize requires a red-black backend", ErrWrongBackend)
	}

	var buf bytes.Buffer

	if err := b.alloc.Serialize(&buf); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// DeserializeStructure reads back a byte slice written by
// SerializeStructure into a freshly constructed, still-hibernated store.
// Call SetHibernatedRecords then Boot to bring the store back to life.
func (s *Store) DeserializeStructure(raw []byte) error {
	b, ok := s.backend.(*rbtreeBackend)
	if !ok {
		return fmt.Errorf("%w: deserialize requires a red-black backend", ErrWrongBackend)
	}

	return b.alloc.Deserialize(bytes.NewReader(raw))
}

// HibernatedRecords returns the live Record pointers a hibernated store is
// still holding, in storage-slot order matching SerializeStructure's
// key/parent/left/right arrays (slot 0 is the reserved nil sentinel).
// The checkpoint package walks this slice to persist each record's name
// and data payload alongside the structural blob.
func (s *Store) HibernatedRecords() ([]*Record, error) {
	b, ok := s.backend.(*rbtreeBackend)
	if !ok {
		return nil, fmt.Errorf("%w: only red-black stores hibernate", ErrWrongBackend)
	}

	if b.alloc.hibernatedLen == 0 {
		return nil, fmt.Errorf("%w: store is not hibernated", ErrWrongBackend)
	}

	return b.alloc.hibernatedValues, nil
}

// SetHibernatedRecords installs records (indexed identically to
// HibernatedRecords' output) into a store deserialized by
// DeserializeStructure, before calling Boot. len(records) must equal the
// structural blob's node count.
func (s *Store) SetHibernatedRecords(records []*Record) error {
	b, ok := s.backend.(*rbtreeBackend)
	if !ok {
		return fmt.Errorf("%w: only red-black stores hibernate", ErrWrongBackend)
	}

	if len(records) != b.alloc.hibernatedLen {
		return fmt.Errorf("%w: expected %d records, got %d", ErrCapacityExceeded, b.alloc.hibernatedLen, len(records))
	}

	b.alloc.hibernatedValues = records

	return nil
}
