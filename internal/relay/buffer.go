package relay

import (
	"sync"
)

// Buffer is a thread-safe ring that doubles its capacity when it reaches 70%
// full, up to an optional ceiling. Send never blocks: once the ceiling is
// reached, further items are dropped and counted.
type Buffer[T any] struct {
	mu       sync.Mutex
	cond     *sync.Cond
	buf      []T
	head     int // read position
	tail     int // write position
	count    int
	capacity int
	ceiling  int // max capacity; 0 = unbounded
	closed   bool

	// Stats
	received  int64
	delivered int64
	dropped   int64
	resizes   int
}

// BufferStats contains buffer counters.
type BufferStats struct {
	Count     int
	Capacity  int
	Received  int64
	Delivered int64
	Dropped   int64
	Resizes   int
}

// NewBuffer creates a buffer with the given initial capacity. ceiling bounds
// growth; 0 means unbounded.
func NewBuffer[T any](initialCapacity, ceiling int) *Buffer[T] {
	if initialCapacity < 1 {
		initialCapacity = 1
	}
	if ceiling > 0 && ceiling < initialCapacity {
		ceiling = initialCapacity
	}
	b := &Buffer[T]{
		buf:      make([]T, initialCapacity),
		capacity: initialCapacity,
		ceiling:  ceiling,
	}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Send adds an item without blocking. Returns false if the buffer is closed
// or full at its ceiling; a full-at-ceiling send is counted as dropped.
func (b *Buffer[T]) Send(item T) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return false
	}

	// Grow at or above 70% occupancy after this item.
	threshold := (b.capacity * 70) / 100
	if threshold < 1 {
		threshold = 1
	}
	if b.count+1 >= threshold {
		b.grow()
	}

	if b.count == b.capacity {
		b.dropped++
		return false
	}

	b.buf[b.tail] = item
	b.tail = (b.tail + 1) % b.capacity
	b.count++
	b.received++

	b.cond.Signal()
	return true
}

// Receive removes and returns an item, blocking until one is available or
// the buffer is closed. Returns the zero value and false once closed and
// drained.
func (b *Buffer[T]) Receive() (T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for b.count == 0 && !b.closed {
		b.cond.Wait()
	}

	if b.count == 0 {
		var zero T
		return zero, false
	}
	return b.take(), true
}

// TryReceive removes and returns an item without blocking.
func (b *Buffer[T]) TryReceive() (T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count == 0 {
		var zero T
		return zero, false
	}
	return b.take(), true
}

// DrainTo removes up to max items (all of them when max <= 0) and returns
// them in arrival order. Returns nil when the buffer is empty.
func (b *Buffer[T]) DrainTo(max int) []T {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count == 0 {
		return nil
	}

	n := b.count
	if max > 0 && max < n {
		n = max
	}

	out := make([]T, n)
	for i := 0; i < n; i++ {
		out[i] = b.take()
	}
	return out
}

// Close closes the buffer. Send returns false afterwards; receivers drain
// the remaining items and then observe the close.
func (b *Buffer[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	b.cond.Broadcast()
}

// Len returns the current number of buffered items.
func (b *Buffer[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Cap returns the current capacity.
func (b *Buffer[T]) Cap() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.capacity
}

// Stats returns buffer counters.
func (b *Buffer[T]) Stats() BufferStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return BufferStats{
		Count:     b.count,
		Capacity:  b.capacity,
		Received:  b.received,
		Delivered: b.delivered,
		Dropped:   b.dropped,
		Resizes:   b.resizes,
	}
}

// take removes the head item. Caller holds the lock and has checked count.
func (b *Buffer[T]) take() T {
	item := b.buf[b.head]
	var zero T
	b.buf[b.head] = zero // clear reference for GC
	b.head = (b.head + 1) % b.capacity
	b.count--
	b.delivered++
	return item
}

// grow doubles capacity up to the ceiling. Caller holds the lock.
func (b *Buffer[T]) grow() {
	newCapacity := b.capacity * 2
	if b.ceiling > 0 && newCapacity > b.ceiling {
		newCapacity = b.ceiling
	}
	if newCapacity <= b.capacity {
		return
	}

	newBuf := make([]T, newCapacity)
	if b.count > 0 {
		if b.head < b.tail {
			copy(newBuf, b.buf[b.head:b.tail])
		} else {
			n := copy(newBuf, b.buf[b.head:])
			copy(newBuf[n:], b.buf[:b.tail])
		}
	}

	b.buf = newBuf
	b.head = 0
	b.tail = b.count
	b.capacity = newCapacity
	b.resizes++
}
