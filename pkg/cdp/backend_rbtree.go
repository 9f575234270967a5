package cdp

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sync"

	"github.com/pierrec/lz4/v4"

	"github.com/Sumatoshi-tech/cascadedp/pkg/dt"
)

// Node index 0 is reserved as the nil sentinel and math.MaxUint32 as the
// negative-limit sentinel, avoiding a separate boolean "is valid" flag per
// slot.
const (
	rbRed               = false
	rbBlack             = true
	rbNegativeLimitNode = math.MaxUint32
)

type rbNode struct {
	key                 dt.DT
	value               *Record
	parent, left, right uint32
	color               bool
}

// rbAllocator is an index-based node pool for the red-black backend. Nodes
// are referenced by uint32 slot rather than pointer so the tree's
// structural arrays can be deinterleaved and LZ4-compressed wholesale when
// a store is hibernated (see Hibernate/Boot), instead of compressing many
// small, pointer-chasing allocations individually.
type rbAllocator struct {
	storage              []rbNode
	gaps                 map[uint32]bool
	hibernatedValues     []*Record
	hibernatedData       [6][]byte // domain, tag, parent, left, right, color; each LZ4-compressed
	hibernatedColorsGaps []byte    // LZ4-compressed free-slot indices
	hibernationThreshold int
	hibernatedLen        int
	hibernatedGapsLen    int
}

func newRBAllocator() *rbAllocator {
	return &rbAllocator{storage: []rbNode{}, gaps: map[uint32]bool{}}
}

func (a *rbAllocator) malloc() uint32 {
	if a.storage == nil {
		panic("cdp: rbtree allocator is hibernated")
	}

	if len(a.gaps) > 0 {
		var key uint32
		for key = range a.gaps {
			break
		}

		delete(a.gaps, key)

		return key
	}

	if len(a.storage) == 0 {
		a.storage = append(a.storage, rbNode{})
	}

	if len(a.storage) == rbNegativeLimitNode-1 {
		panic("cdp: rbtree allocator exhausted uint32 index space")
	}

	a.storage = append(a.storage, rbNode{})

	return uint32(len(a.storage) - 1)
}

func (a *rbAllocator) free(idx uint32) {
	if idx == 0 {
		panic("cdp: rbtree node #0 cannot be freed")
	}

	a.storage[idx] = rbNode{}
	a.gaps[idx] = true
}

// Hibernate compresses the tree's structural arrays (parent/left/right,
// color, and key) with LZ4 once the allocator grows past
// hibernationThreshold, deinterleaving fields first for a better
// compression ratio. Record values are kept in an uncompressed side slice:
// they are live Go objects, not flat integers, and compressing pointers
// buys nothing - whole-subtree persistence is handled by the checkpoint
// package, not by this index.
func (a *rbAllocator) Hibernate() {
	if a.hibernatedLen > 0 {
		panic("cdp: rbtree allocator already hibernated")
	}

	if len(a.storage) < a.hibernationThreshold {
		return
	}

	n := len(a.storage)
	a.hibernatedLen = n

	domains := make([]uint32, n)
	tags := make([]uint32, n)
	parents := make([]uint32, n)
	lefts := make([]uint32, n)
	rights := make([]uint32, n)
	colors := make([]uint32, n)
	values := make([]*Record, n)

	for i, nd := range a.storage {
		domains[i] = uint32(nd.key.Domain)
		tags[i] = uint32(nd.key.Tag)
		parents[i] = nd.parent
		lefts[i] = nd.left
		rights[i] = nd.right

		if nd.color {
			colors[i] = 1
		}

		values[i] = nd.value
	}

	buffers := [][]uint32{domains, tags, parents, lefts, rights, colors}

	var wg sync.WaitGroup

	compressed := make([][]byte, len(buffers))

	wg.Add(len(buffers))

	for i, buf := range buffers {
		go func(idx int, b []uint32) {
			defer wg.Done()

			compressed[idx] = compressUint32Slice(b)
		}(i, buf)
	}

	wg.Wait()

	a.hibernatedData = [6][]byte{compressed[0], compressed[1], compressed[2], compressed[3], compressed[4], compressed[5]}
	a.hibernatedValues = values
	a.storage = nil

	if len(a.gaps) > 0 {
		a.hibernatedGapsLen = len(a.gaps)
		gapsBuf := make([]uint32, 0, len(a.gaps))

		for k := range a.gaps {
			gapsBuf = append(gapsBuf, k)
		}

		a.hibernatedColorsGaps = compressUint32Slice(gapsBuf)
	}

	a.gaps = nil
}

func compressUint32Slice(data []uint32) []byte {
	buf := new(bytes.Buffer)
	_ = binary.Write(buf, binary.LittleEndian, data)

	dst := make([]byte, lz4.CompressBlockBound(buf.Len()))

	n, err := lz4.CompressBlock(buf.Bytes(), dst, nil)
	if err != nil || n == 0 {
		return nil
	}

	return dst[:n]
}

func decompressUint32Slice(data []byte, out []uint32) {
	raw := make([]byte, len(out)*4)

	if _, err := lz4.UncompressBlock(data, raw); err != nil {
		return
	}

	_ = binary.Read(bytes.NewReader(raw), binary.LittleEndian, out)
}

// Boot reverses Hibernate, decompressing the structural arrays back into
// live rbNode storage.
func (a *rbAllocator) Boot() {
	if a.hibernatedLen == 0 {
		if a.storage == nil {
			a.storage = []rbNode{}
			a.gaps = map[uint32]bool{}
		}

		return
	}

	n := a.hibernatedLen
	buffers := make([][]uint32, 6)

	for i := range buffers {
		buffers[i] = make([]uint32, n)
		decompressUint32Slice(a.hibernatedData[i], buffers[i])
	}

	a.storage = make([]rbNode, n)
	for i := range a.storage {
		a.storage[i] = rbNode{
			key:    dt.DT{Domain: dt.ID(buffers[0][i]), Tag: dt.ID(buffers[1][i])},
			parent: buffers[2][i],
			left:   buffers[3][i],
			right:  buffers[4][i],
			color:  buffers[5][i] > 0,
			value:  a.hibernatedValues[i],
		}
	}

	a.gaps = map[uint32]bool{}

	if a.hibernatedGapsLen > 0 {
		gapsBuf := make([]uint32, a.hibernatedGapsLen)
		decompressUint32Slice(a.hibernatedColorsGaps, gapsBuf)

		for _, k := range gapsBuf {
			a.gaps[k] = true
		}

		a.hibernatedGapsLen = 0
		a.hibernatedColorsGaps = nil
	}

	a.hibernatedValues = nil
	a.hibernatedData = [6][]byte{}
	a.hibernatedLen = 0
}

// Serialize writes the hibernated structural arrays to w, varint-length
// prefixed. Record values are intentionally not serialized here: durable
// persistence of the record graph itself is the checkpoint package's job.
func (a *rbAllocator) Serialize(w *bytes.Buffer) error {
	if a.storage != nil {
		return fmt.Errorf("%w: serialize requires a hibernated allocator", ErrWrongBackend)
	}

	var hdr [binary.MaxVarintLen64]byte

	writeVarint := func(v int64) error {
		m := binary.PutVarint(hdr[:], v)
		_, err := w.Write(hdr[:m])

		return err
	}

	if err := writeVarint(int64(a.hibernatedLen)); err != nil {
		return err
	}

	if err := writeVarint(int64(a.hibernatedGapsLen)); err != nil {
		return err
	}

	for _, buf := range a.hibernatedData {
		if err := writeVarint(int64(len(buf))); err != nil {
			return err
		}

		w.Write(buf)
	}

	gapsLen := len(a.hibernatedColorsGaps)
	if err := writeVarint(int64(gapsLen)); err != nil {
		return err
	}

	w.Write(a.hibernatedColorsGaps)

	return nil
}

// Deserialize reads back an allocator previously written by Serialize.
func (a *rbAllocator) Deserialize(r *bytes.Reader) error {
	readVarint := func() (int64, error) {
		return binary.ReadVarint(r)
	}

	storageLen, err := readVarint()
	if err != nil {
		return fmt.Errorf("read storage len: %w", err)
	}

	a.hibernatedLen = int(storageLen)

	gapsLen, err := readVarint()
	if err != nil {
		return fmt.Errorf("read gaps len: %w", err)
	}

	a.hibernatedGapsLen = int(gapsLen)

	for i := range a.hibernatedData {
		n, err := readVarint()
		if err != nil {
			return fmt.Errorf("read data len %d: %w", i, err)
		}

		buf := make([]byte, n)
		if _, err := r.Read(buf); err != nil {
			return fmt.Errorf("read data %d: %w", i, err)
		}

		a.hibernatedData[i] = buf
	}

	gapsBufLen, err := readVarint()
	if err != nil {
		return fmt.Errorf("read gaps buffer len: %w", err)
	}

	gapsBuf := make([]byte, gapsBufLen)
	if _, err := io.ReadFull(r, gapsBuf); err != nil {
		return fmt.Errorf("read gaps buffer: %w", err)
	}

	a.hibernatedColorsGaps = gapsBuf
	a.hibernatedValues = make([]*Record, a.hibernatedLen)

	return nil
}

// rbtreeBackend is a red-black tree keyed by dt.Compare over child names,
// adapted from an index-based allocator design: O(log n) insert, remove,
// and lookup, with in-order traversal for Traverse/children.
type rbtreeBackend struct {
	alloc   *rbAllocator
	root    uint32
	minNode uint32
	maxNode uint32
	count   int
}

func newRBTreeBackend() *rbtreeBackend {
	return &rbtreeBackend{alloc: newRBAllocator()}
}

func (b *rbtreeBackend) len() int { return b.count }

func (b *rbtreeBackend) storage() []rbNode { return b.alloc.storage }

func (b *rbtreeBackend) add(s *Store, child *Record) error {
	if s.indexing != ByName {
		return fmt.Errorf("%w: red-black backend requires ByName indexing", ErrWrongIndexing)
	}

	key := child.Meta.Name

	nodeIdx := b.doInsert(key, child)
	if nodeIdx == 0 {
		return fmt.Errorf("%w: name %v", ErrDuplicateKey, key)
	}

	b.rebalanceInsert(nodeIdx)

	return nil
}

func (b *rbtreeBackend) appendChild(_ *Store, _ *Record) error {
	return fmt.Errorf("%w: red-black backend does not support append", ErrWrongIndexing)
}

func (b *rbtreeBackend) prependChild(_ *Store, _ *Record) error {
	return fmt.Errorf("%w: red-black backend does not support prepend", ErrWrongIndexing)
}

func (b *rbtreeBackend) doInsert(key dt.DT, value *Record) uint32 {
	if b.root == 0 {
		idx := b.alloc.malloc()
		st := b.storage()
		st[idx].key = key
		st[idx].value = value
		b.root = idx
		b.minNode = idx
		b.maxNode = idx
		b.count++

		return idx
	}

	parent := b.root

	for {
		st := b.storage()
		pn := st[parent]
		cmp := dt.Compare(key, pn.key)

		switch {
		case cmp == 0:
			return 0
		case cmp < 0:
			if pn.left == 0 {
				idx := b.alloc.malloc()
				st = b.storage()
				st[idx].key = key
				st[idx].value = value
				st[idx].parent = parent
				st[parent].left = idx
				b.count++

				if dt.Compare(key, st[b.minNode].key) < 0 {
					b.minNode = idx
				}

				return idx
			}

			parent = pn.left
		default:
			if pn.right == 0 {
				idx := b.alloc.malloc()
				st = b.storage()
				st[idx].key = key
				st[idx].value = value
				st[idx].parent = parent
				st[parent].right = idx
				b.count++

				if dt.Compare(key, st[b.maxNode].key) > 0 {
					b.maxNode = idx
				}

				return idx
			}

			parent = pn.right
		}
	}
}

func (b *rbtreeBackend) rebalanceInsert(nodeIdx uint32) {
	st := b.storage()
	st[nodeIdx].color = rbRed

	for {
		if st[nodeIdx].parent == 0 {
			st[nodeIdx].color = rbBlack

			break
		}

		if st[st[nodeIdx].parent].color == rbBlack {
			break
		}

		grandparent := st[st[nodeIdx].parent].parent

		var uncle uint32
		if b.isLeftChild(st[nodeIdx].parent) {
			uncle = st[grandparent].right
		} else {
			uncle = st[grandparent].left
		}

		if uncle != 0 && st[uncle].color == rbRed {
			st[st[nodeIdx].parent].color = rbBlack
			st[uncle].color = rbBlack
			st[grandparent].color = rbRed
			nodeIdx = grandparent

			continue
		}

		if b.isRightChild(nodeIdx) && b.isLeftChild(st[nodeIdx].parent) {
			b.rotateLeft(st[nodeIdx].parent)
			nodeIdx = st[nodeIdx].left

			st = b.storage()

			continue
		}

		if b.isLeftChild(nodeIdx) && b.isRightChild(st[nodeIdx].parent) {
			b.rotateRight(st[nodeIdx].parent)
			nodeIdx = st[nodeIdx].right

			st = b.storage()

			continue
		}

		st[st[nodeIdx].parent].color = rbBlack
		st[grandparent].color = rbRed

		if b.isLeftChild(nodeIdx) {
			b.rotateRight(grandparent)
		} else {
			b.rotateLeft(grandparent)
		}

		break
	}
}

func (b *rbtreeBackend) isLeftChild(nodeIdx uint32) bool {
	st := b.storage()

	return nodeIdx == st[st[nodeIdx].parent].left
}

func (b *rbtreeBackend) isRightChild(nodeIdx uint32) bool {
	st := b.storage()

	return nodeIdx == st[st[nodeIdx].parent].right
}

func (b *rbtreeBackend) colorOf(nodeIdx uint32) bool {
	if nodeIdx == 0 {
		return rbBlack
	}

	return b.storage()[nodeIdx].color
}

func (b *rbtreeBackend) sibling(nodeIdx uint32) uint32 {
	st := b.storage()
	if b.isLeftChild(nodeIdx) {
		return st[st[nodeIdx].parent].right
	}

	return st[st[nodeIdx].parent].left
}

func (b *rbtreeBackend) rotateDirection(pivot uint32, left bool) {
	st := b.storage()

	var child uint32
	if left {
		child = st[pivot].right
	} else {
		child = st[pivot].left
	}

	var inner uint32
	if left {
		inner = st[child].left
		st[pivot].right = inner
	} else {
		inner = st[child].right
		st[pivot].left = inner
	}

	if inner != 0 {
		st[inner].parent = pivot
	}

	st[child].parent = st[pivot].parent

	if st[pivot].parent == 0 {
		b.root = child
	} else if b.isLeftChild(pivot) {
		st[st[pivot].parent].left = child
	} else {
		st[st[pivot].parent].right = child
	}

	if left {
		st[child].left = pivot
	} else {
		st[child].right = pivot
	}

	st[pivot].parent = child
}

func (b *rbtreeBackend) rotateLeft(nodeIdx uint32)  { b.rotateDirection(nodeIdx, true) }
func (b *rbtreeBackend) rotateRight(nodeIdx uint32) { b.rotateDirection(nodeIdx, false) }

func (b *rbtreeBackend) findGE(key dt.DT) (uint32, bool) {
	st := b.storage()
	nodeIdx := b.root

	for {
		if nodeIdx == 0 {
			return 0, false
		}

		cmp := dt.Compare(key, st[nodeIdx].key)

		switch {
		case cmp == 0:
			return nodeIdx, true
		case cmp < 0:
			if st[nodeIdx].left == 0 {
				return nodeIdx, false
			}

			nodeIdx = st[nodeIdx].left
		default:
			if st[nodeIdx].right == 0 {
				succ := b.doNext(nodeIdx)
				if succ == 0 {
					return 0, false
				}

				return succ, dt.Equal(key, st[succ].key)
			}

			nodeIdx = st[nodeIdx].right
		}
	}
}

func (b *rbtreeBackend) doNext(nodeIdx uint32) uint32 {
	st := b.storage()
	if st[nodeIdx].right != 0 {
		cur := st[nodeIdx].right
		for st[cur].left != 0 {
			cur = st[cur].left
		}

		return cur
	}

	for nodeIdx != 0 {
		parent := st[nodeIdx].parent
		if parent == 0 {
			return 0
		}

		if b.isLeftChild(nodeIdx) {
			return parent
		}

		nodeIdx = parent
	}

	return 0
}

func (b *rbtreeBackend) doPrev(nodeIdx uint32) uint32 {
	st := b.storage()
	if st[nodeIdx].left != 0 {
		cur := st[nodeIdx].left
		for st[cur].right != 0 {
			cur = st[cur].right
		}

		return cur
	}

	for nodeIdx != 0 {
		parent := st[nodeIdx].parent
		if parent == 0 {
			return rbNegativeLimitNode
		}

		if b.isRightChild(nodeIdx) {
			return parent
		}

		nodeIdx = parent
	}

	return rbNegativeLimitNode
}

func (b *rbtreeBackend) first(_ *Store) (*Record, error) {
	if b.minNode == 0 {
		return nil, ErrEmptyStore
	}

	return b.storage()[b.minNode].value, nil
}

func (b *rbtreeBackend) last(_ *Store) (*Record, error) {
	if b.maxNode == 0 {
		return nil, ErrEmptyStore
	}

	return b.storage()[b.maxNode].value, nil
}

func (b *rbtreeBackend) findByName(_ *Store, name dt.DT) (*Record, error) {
	idx, exact := b.findGE(name)
	if !exact {
		return nil, fmt.Errorf("%w: name %v", ErrNotFound, name)
	}

	return b.storage()[idx].value, nil
}

func (b *rbtreeBackend) findByKey(s *Store, key any) (*Record, error) {
	if s.compareKey == nil {
		return nil, fmt.Errorf("%w: store has no key compare function", ErrWrongIndexing)
	}

	for idx := b.minNode; idx != 0; idx = b.doNext(idx) {
		if s.compareKey(b.storage()[idx].value, key, s.compareCtx) == 0 {
			return b.storage()[idx].value, nil
		}
	}

	return nil, fmt.Errorf("%w: key %v", ErrNotFound, key)
}

func (b *rbtreeBackend) findByPosition(_ *Store, position int) (*Record, error) {
	if position < 0 || position >= b.count {
		return nil, fmt.Errorf("%w: position %d out of range [0,%d)", ErrNotFound, position, b.count)
	}

	idx := b.minNode
	for i := 0; i < position; i++ {
		idx = b.doNext(idx)
	}

	return b.storage()[idx].value, nil
}

func (b *rbtreeBackend) locate(child *Record) uint32 {
	for idx := b.minNode; idx != 0; idx = b.doNext(idx) {
		if b.storage()[idx].value == child {
			return idx
		}
	}

	return 0
}

func (b *rbtreeBackend) prev(_ *Store, child *Record) (*Record, error) {
	idx := b.locate(child)
	if idx == 0 {
		return nil, ErrNotFound
	}

	p := b.doPrev(idx)
	if p == 0 || p == rbNegativeLimitNode {
		return nil, ErrNotFound
	}

	return b.storage()[p].value, nil
}

func (b *rbtreeBackend) next(_ *Store, child *Record) (*Record, error) {
	idx := b.locate(child)
	if idx == 0 {
		return nil, ErrNotFound
	}

	n := b.doNext(idx)
	if n == 0 {
		return nil, ErrNotFound
	}

	return b.storage()[n].value, nil
}

func (b *rbtreeBackend) take(_ *Store, child *Record) error {
	idx := b.locate(child)
	if idx == 0 {
		return fmt.Errorf("%w: record %v", ErrNotFound, child.Meta.Name)
	}

	b.doDelete(idx)

	return nil
}

func (b *rbtreeBackend) pop(s *Store) (*Record, error) {
	rec, err := b.first(s)
	if err != nil {
		return nil, err
	}

	if err := b.take(s, rec); err != nil {
		return nil, err
	}

	return rec, nil
}

func (b *rbtreeBackend) doDelete(nodeIdx uint32) {
	st := b.storage()

	if st[nodeIdx].left != 0 && st[nodeIdx].right != 0 {
		pred := b.maxPredecessor(nodeIdx)
		b.swapNodes(nodeIdx, pred)
		st = b.storage()
	}

	child := st[nodeIdx].right
	if child == 0 {
		child = st[nodeIdx].left
	}

	if st[nodeIdx].color == rbBlack {
		st[nodeIdx].color = b.colorOf(child)
		b.deleteCase1(nodeIdx)
		st = b.storage()
	}

	b.replaceNode(nodeIdx, child)
	st = b.storage()

	if st[nodeIdx].parent == 0 && child != 0 {
		st[child].color = rbBlack
	}

	b.alloc.free(nodeIdx)
	b.count--

	if b.count == 0 {
		b.minNode, b.maxNode = 0, 0
	} else {
		if b.minNode == nodeIdx {
			b.recomputeMinNode()
		}

		if b.maxNode == nodeIdx {
			b.recomputeMaxNode()
		}
	}
}

func (b *rbtreeBackend) maxPredecessor(nodeIdx uint32) uint32 {
	st := b.storage()
	cur := st[nodeIdx].left

	for st[cur].right != 0 {
		cur = st[cur].right
	}

	return cur
}

func (b *rbtreeBackend) recomputeMinNode() {
	st := b.storage()
	b.minNode = b.root

	if b.minNode != 0 {
		for st[b.minNode].left != 0 {
			b.minNode = st[b.minNode].left
		}
	}
}

func (b *rbtreeBackend) recomputeMaxNode() {
	st := b.storage()
	b.maxNode = b.root

	if b.maxNode != 0 {
		for st[b.maxNode].right != 0 {
			b.maxNode = st[b.maxNode].right
		}
	}
}

func (b *rbtreeBackend) replaceNode(oldIdx, newIdx uint32) {
	st := b.storage()

	if st[oldIdx].parent == 0 {
		b.root = newIdx
	} else if oldIdx == st[st[oldIdx].parent].left {
		st[st[oldIdx].parent].left = newIdx
	} else {
		st[st[oldIdx].parent].right = newIdx
	}

	if newIdx != 0 {
		st[newIdx].parent = st[oldIdx].parent
	}
}

func (b *rbtreeBackend) swapNodes(nodeIdx, pred uint32) {
	st := b.storage()
	isLeft := b.isLeftChild(pred)
	tmp := st[pred]

	b.replaceNode(nodeIdx, pred)
	st[pred].color = st[nodeIdx].color

	if tmp.parent == nodeIdx {
		if isLeft {
			st[pred].left = nodeIdx
			st[pred].right = st[nodeIdx].right

			if st[pred].right != 0 {
				st[st[pred].right].parent = pred
			}
		} else {
			st[pred].left = st[nodeIdx].left

			if st[pred].left != 0 {
				st[st[pred].left].parent = pred
			}

			st[pred].right = nodeIdx
		}

		st[nodeIdx].key, st[nodeIdx].value = tmp.key, tmp.value
		st[nodeIdx].parent = pred

		st[nodeIdx].left = tmp.left
		if st[nodeIdx].left != 0 {
			st[st[nodeIdx].left].parent = nodeIdx
		}

		st[nodeIdx].right = tmp.right
		if st[nodeIdx].right != 0 {
			st[st[nodeIdx].right].parent = nodeIdx
		}
	} else {
		st[pred].left = st[nodeIdx].left
		if st[pred].left != 0 {
			st[st[pred].left].parent = pred
		}

		st[pred].right = st[nodeIdx].right
		if st[pred].right != 0 {
			st[st[pred].right].parent = pred
		}

		if isLeft {
			st[tmp.parent].left = nodeIdx
		} else {
			st[tmp.parent].right = nodeIdx
		}

		st[nodeIdx].key, st[nodeIdx].value = tmp.key, tmp.value
		st[nodeIdx].parent = tmp.parent
		st[nodeIdx].left = tmp.left

		if st[nodeIdx].left != 0 {
			st[st[nodeIdx].left].parent = nodeIdx
		}

		st[nodeIdx].right = tmp.right

		if st[nodeIdx].right != 0 {
			st[st[nodeIdx].right].parent = nodeIdx
		}
	}

	st[nodeIdx].color = tmp.color
}

func (b *rbtreeBackend) deleteCase1(nodeIdx uint32) {
	st := b.storage()

	for st[nodeIdx].parent != 0 {
		if b.colorOf(b.sibling(nodeIdx)) == rbRed {
			st[st[nodeIdx].parent].color = rbRed
			st[b.sibling(nodeIdx)].color = rbBlack

			if nodeIdx == st[st[nodeIdx].parent].left {
				b.rotateLeft(st[nodeIdx].parent)
			} else {
				b.rotateRight(st[nodeIdx].parent)
			}

			st = b.storage()
		}

		if b.colorOf(st[nodeIdx].parent) == rbBlack &&
			b.colorOf(b.sibling(nodeIdx)) == rbBlack &&
			b.colorOf(st[b.sibling(nodeIdx)].left) == rbBlack &&
			b.colorOf(st[b.sibling(nodeIdx)].right) == rbBlack {
			st[b.sibling(nodeIdx)].color = rbRed
			nodeIdx = st[nodeIdx].parent

			continue
		}

		if b.colorOf(st[nodeIdx].parent) == rbRed &&
			b.colorOf(b.sibling(nodeIdx)) == rbBlack &&
			b.colorOf(st[b.sibling(nodeIdx)].left) == rbBlack &&
			b.colorOf(st[b.sibling(nodeIdx)].right) == rbBlack {
			st[b.sibling(nodeIdx)].color = rbRed
			st[st[nodeIdx].parent].color = rbBlack
		} else {
			b.deleteCase5(nodeIdx)
		}

		break
	}
}

func (b *rbtreeBackend) deleteCase5(nodeIdx uint32) {
	st := b.storage()

	if nodeIdx == st[st[nodeIdx].parent].left &&
		b.colorOf(b.sibling(nodeIdx)) == rbBlack &&
		b.colorOf(st[b.sibling(nodeIdx)].left) == rbRed &&
		b.colorOf(st[b.sibling(nodeIdx)].right) == rbBlack {
		st[b.sibling(nodeIdx)].color = rbRed
		st[st[b.sibling(nodeIdx)].left].color = rbBlack
		b.rotateRight(b.sibling(nodeIdx))
		st = b.storage()
	} else if nodeIdx == st[st[nodeIdx].parent].right &&
		b.colorOf(b.sibling(nodeIdx)) == rbBlack &&
		b.colorOf(st[b.sibling(nodeIdx)].right) == rbRed &&
		b.colorOf(st[b.sibling(nodeIdx)].left) == rbBlack {
		st[b.sibling(nodeIdx)].color = rbRed
		st[st[b.sibling(nodeIdx)].right].color = rbBlack
		b.rotateLeft(b.sibling(nodeIdx))
		st = b.storage()
	}

	st[b.sibling(nodeIdx)].color = b.colorOf(st[nodeIdx].parent)
	st[st[nodeIdx].parent].color = rbBlack

	if nodeIdx == st[st[nodeIdx].parent].left {
		st[st[b.sibling(nodeIdx)].right].color = rbBlack
		b.rotateLeft(st[nodeIdx].parent)
	} else {
		st[st[b.sibling(nodeIdx)].left].color = rbBlack
		b.rotateRight(st[nodeIdx].parent)
	}
}

func (b *rbtreeBackend) sort(_ *Store) error {
	return fmt.Errorf("%w: red-black backend is always sorted by name", ErrAlreadySorted)
}

func (b *rbtreeBackend) traverse(_ *Store, visit func(child *Record, position int) error) error {
	position := 0
	for idx := b.minNode; idx != 0; idx = b.doNext(idx) {
		if err := visit(b.storage()[idx].value, position); err != nil {
			return err
		}

		position++
	}

	return nil
}

func (b *rbtreeBackend) children(_ *Store) ([]*Record, error) {
	out := make([]*Record, 0, b.count)
	for idx := b.minNode; idx != 0; idx = b.doNext(idx) {
		out = append(out, b.storage()[idx].value)
	}

	return out, nil
}

func (b *rbtreeBackend) deleteAllChildren(s *Store) {
	children, _ := b.children(s)
	for _, rec := range children {
		_ = rec.Finalize()
	}

	b.alloc = newRBAllocator()
	b.root, b.minNode, b.maxNode, b.count = 0, 0, 0, 0
}
