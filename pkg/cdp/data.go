package cdp

import (
	"fmt"

	"github.com/Sumatoshi-tech/cascadedp/pkg/dt"
)

// DataType discriminates the four payload shapes a Data can hold.
type DataType uint8

const (
	// DataValue stores its buffer inline inside the Data struct.
	DataValue DataType = iota
	// DataHeap stores a heap-allocated buffer with an optional destructor.
	DataHeap
	// DataHandle stores an opaque library resource handle.
	DataHandle
	// DataStream stores a windowed view into a library-owned stream.
	DataStream
)

// inlineValueCapacity bounds the Value payload shape, mirroring the small
// inline slot the original record struct reserves inside its cache line.
const inlineValueCapacity = 32

// Destructor frees resources owned by a DataHeap or DataHandle payload.
type Destructor func(value any)

// Data is a typed payload: an identity (its own DT), attribute/encoding
// metadata, a byte buffer or opaque handle, and an agent chain dispatched
// on data-level actions.
type Data struct {
	DT         dt.DT
	Attribute  uint32
	Encoding   dt.DT
	datatype   DataType
	writable   bool
	locked     bool
	value      []byte
	handle     any
	capacity   int
	destructor Destructor
	next       *Data
	agents     []chainedAgent
}

// NewData allocates a Data with the requested storage class. For DataValue
// the buffer is capped at inlineValueCapacity; for DataHeap a buffer of
// capacity bytes is allocated and value (if non-nil) copied into it.
func NewData(id dt.DT, encoding dt.DT, attribute uint32, datatype DataType, writable bool, value []byte, capacity int, destructor Destructor) (*Data, error) {
	d := &Data{
		DT:         id,
		Attribute:  attribute,
		Encoding:   encoding,
		datatype:   datatype,
		writable:   writable,
		destructor: destructor,
	}

	switch datatype {
	case DataValue:
		if capacity > inlineValueCapacity {
			return nil, fmt.Errorf("%w: value payload capacity %d exceeds inline slot %d", ErrCapacityExceeded, capacity, inlineValueCapacity)
		}

		d.capacity = inlineValueCapacity
		d.value = make([]byte, len(value), inlineValueCapacity)
		copy(d.value, value)
	case DataHeap:
		d.capacity = capacity
		d.value = make([]byte, len(value), capacity)
		copy(d.value, value)
	case DataHandle, DataStream:
		// No buffer; payload lives in d.handle, set by the caller via Update.
	}

	return d, nil
}

// Size returns the number of live payload bytes (zero for Handle/Stream).
func (d *Data) Size() int {
	return len(d.value)
}

// Type returns the payload's storage class.
func (d *Data) Type() DataType {
	return d.datatype
}

// Writable reports whether Update is permitted against this payload.
func (d *Data) Writable() bool {
	return d.writable
}

// Capacity returns the allocated buffer capacity.
func (d *Data) Capacity() int {
	return d.capacity
}

// Bytes returns the live payload buffer. Callers must not retain it across
// an Update call with swap=true.
func (d *Data) Bytes() []byte {
	return d.value
}

// Handle returns the opaque resource carried by a Handle/Stream payload.
func (d *Data) Handle() any {
	return d.handle
}

// SetHandle assigns the opaque resource for a Handle/Stream payload.
func (d *Data) SetHandle(h any) {
	d.handle = h
}

// Update writes size bytes from value into the payload. For DataValue
// payloads, a requested capacity beyond the inline slot fails with
// ErrCapacityExceeded. For DataHeap payloads, capacity growth reallocates.
// When swap is true, ownership of value is taken directly instead of
// copying (value must not be reused by the caller afterward).
func (d *Data) Update(size, capacity int, value []byte, swap bool) error {
	if !d.writable {
		return fmt.Errorf("%w: data %v", ErrReadOnly, d.DT)
	}

	if d.locked {
		return fmt.Errorf("%w: data %v", ErrLocked, d.DT)
	}

	switch d.datatype {
	case DataValue:
		if capacity > inlineValueCapacity {
			return fmt.Errorf("%w: value payload capacity %d exceeds inline slot %d", ErrCapacityExceeded, capacity, inlineValueCapacity)
		}

		d.value = append(d.value[:0], value[:size]...)
	case DataHeap:
		if capacity > d.capacity {
			d.capacity = capacity
		}

		if swap {
			d.value = value[:size]
		} else {
			if cap(d.value) < size {
				d.value = make([]byte, size, d.capacity)
			}

			d.value = d.value[:size]
			copy(d.value, value)
		}
	case DataHandle, DataStream:
		// Handle/Stream payloads carry no byte buffer; nothing to update here.
	}

	return nil
}

// SetLocked toggles the cooperative lock bit operations must consult.
func (d *Data) SetLocked(locked bool) {
	d.locked = locked
}

// Locked reports whether the cooperative lock bit is set.
func (d *Data) Locked() bool {
	return d.locked
}

// AddAgent appends agent to the dispatch chain for (domain, tag).
func (d *Data) AddAgent(domain, tag dt.ID, agent Agent) {
	d.agents = append(d.agents, chainedAgent{domain: domain, tag: tag, agent: agent})
}

// Close releases the payload: runs the destructor for heap/handle payloads,
// walks and releases the next-representation chain, and drops the agent
// chain.
func (d *Data) Close() {
	if d.destructor != nil {
		if d.datatype == DataHeap {
			d.destructor(d.value)
		} else if d.datatype == DataHandle || d.datatype == DataStream {
			d.destructor(d.handle)
		}
	}

	if d.next != nil {
		d.next.Close()
		d.next = nil
	}

	d.agents = nil
	d.value = nil
	d.handle = nil
}
