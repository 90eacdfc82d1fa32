package queue

import (
	"errors"
	"fmt"
	"math/bits"
	"sync/atomic"
)

// Errors
var (
	// ErrFull is returned by Push when every slot holds unconsumed data.
	// Expected under back-pressure; callers branch on it, it is never logged
	// here.
	ErrFull = errors.New("queue full")

	// ErrEmpty is returned by Pop when no slot is ready.
	ErrEmpty = errors.New("queue empty")
)

// MaxCapacity bounds the requested capacity before power-of-two rounding.
const MaxCapacity = 1 << 30

// cell is one ring slot. sequence encodes the claim state for the slot's
// current lap: == slot index means free for a producer, == index+1 means
// written and ready for the consumer.
type cell[T any] struct {
	sequence atomic.Uint64
	data     T
}

// Ring is a bounded MPSC ring buffer. See the package comment for the
// concurrency contract.
type Ring[T any] struct {
	cells []cell[T]
	mask  uint64

	// head and tail are monotonically increasing claim positions, never
	// reset; they wrap into slot indices via mask. Padded to keep producer
	// and consumer counters off the same cache line.
	_pad0 [56]byte
	head  atomic.Uint64
	_pad1 [56]byte
	tail  atomic.Uint64
	_pad2 [56]byte

	pushes atomic.Uint64
	_pad3  [56]byte
	pops   atomic.Uint64
}

// RingStats is a point-in-time view of ring counters. Values are read
// independently and may be mutually inconsistent under load.
type RingStats struct {
	Capacity int
	Length   int
	Pushes   uint64
	Pops     uint64
}

// New creates a ring holding at least capacity elements, rounded up to the
// next power of two, minimum 2.
func New[T any](capacity int) (*Ring[T], error) {
	if capacity < 1 {
		return nil, fmt.Errorf("capacity must be >= 1, got %d", capacity)
	}
	if capacity > MaxCapacity {
		return nil, fmt.Errorf("capacity must be <= %d, got %d", MaxCapacity, capacity)
	}

	size := uint64(1) << bits.Len64(uint64(capacity-1))
	if size < 2 {
		// With a single slot the ready encoding (index+1) and the next-lap
		// free encoding (index+C) coincide, so a producer could reclaim an
		// unconsumed cell. Two slots is the protocol's minimum.
		size = 2
	}
	r := &Ring[T]{
		cells: make([]cell[T], size),
		mask:  size - 1,
	}
	for i := range r.cells {
		r.cells[i].sequence.Store(uint64(i))
	}
	return r, nil
}

// Push writes v into the next free slot. Returns ErrFull when the consumer
// has not yet freed the slot for this lap. Safe for any number of concurrent
// callers; never blocks on another producer.
func (r *Ring[T]) Push(v T) error {
	pos := r.head.Load()
	for {
		c := &r.cells[pos&r.mask]
		seq := c.sequence.Load()
		diff := int64(seq) - int64(pos)

		switch {
		case diff == 0:
			// Free slot and it is this attempt's turn; claim it by
			// advancing head.
			if r.head.CompareAndSwap(pos, pos+1) {
				c.data = v
				c.sequence.Store(pos + 1)
				r.pushes.Add(1)
				return nil
			}
			pos = r.head.Load()
		case diff < 0:
			// Slot not freed from the previous lap.
			return ErrFull
		default:
			// Another producer advanced past this slot since head was read.
			pos = r.head.Load()
		}
	}
}

// Pop removes and returns the oldest ready element. Returns ErrEmpty when no
// slot is ready. Single consumer only; the CAS on tail is kept anyway so
// accidental concurrent consumers fail over to a retry instead of reading the
// same slot twice.
func (r *Ring[T]) Pop() (T, error) {
	var zero T
	pos := r.tail.Load()
	for {
		c := &r.cells[pos&r.mask]
		seq := c.sequence.Load()
		diff := int64(seq) - int64(pos+1)

		switch {
		case diff == 0:
			if r.tail.CompareAndSwap(pos, pos+1) {
				v := c.data
				c.data = zero // clear reference for GC
				// index + capacity keeps the free/ready encoding aligned on
				// the next lap.
				c.sequence.Store(pos + uint64(len(r.cells)))
				r.pops.Add(1)
				return v, nil
			}
			pos = r.tail.Load()
		case diff < 0:
			return zero, ErrEmpty
		default:
			pos = r.tail.Load()
		}
	}
}

// Flush drains everything that becomes ready during the call, in pop order.
// Returns nil when nothing was ready. Single consumer only, like Pop.
func (r *Ring[T]) Flush() []T {
	var out []T
	for {
		v, err := r.Pop()
		if err != nil {
			return out
		}
		if out == nil {
			out = make([]T, 0, r.Len()+1)
		}
		out = append(out, v)
	}
}

// Cap returns the fixed slot count.
func (r *Ring[T]) Cap() int {
	return len(r.cells)
}

// Len reports occupied slots. Approximate while producers or the consumer
// are active.
func (r *Ring[T]) Len() int {
	head := r.head.Load()
	tail := r.tail.Load()
	if head <= tail {
		return 0
	}
	n := head - tail
	if n > uint64(len(r.cells)) {
		n = uint64(len(r.cells))
	}
	return int(n)
}

// PushCount returns the number of successful pushes. Diagnostic only: it is
// not synchronized with the ring state and must not drive control flow.
func (r *Ring[T]) PushCount() uint64 {
	return r.pushes.Load()
}

// PopCount returns the number of successful pops. Diagnostic only.
func (r *Ring[T]) PopCount() uint64 {
	return r.pops.Load()
}

// Stats returns current ring counters.
func (r *Ring[T]) Stats() RingStats {
	return RingStats{
		Capacity: r.Cap(),
		Length:   r.Len(),
		Pushes:   r.pushes.Load(),
		Pops:     r.pops.Load(),
	}
}
