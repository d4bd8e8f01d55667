// File: internal/concurrency/ring.go
// Package concurrency implements the circular buffers used by the completion layer.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// GrowRing is an unbounded circular buffer. It is not synchronized; callers
// serialize access (the completion queue holds its mutex around every call).

package concurrency

// GrowRing is a FIFO circular buffer that doubles its capacity instead of
// rejecting an append. Empty when head == tail. The ring is never left full:
// the append that would make tail catch up with head grows the buffer first.
type GrowRing[T any] struct {
	items  []T
	head   int
	tail   int
	growth int
}

// NewGrowRing allocates a ring with the given initial capacity (minimum 2).
func NewGrowRing[T any](capacity int) *GrowRing[T] {
	if capacity < 2 {
		capacity = 2
	}
	return &GrowRing[T]{items: make([]T, capacity)}
}

// Push appends item at the tail. It reports whether the ring was empty
// before the call.
func (r *GrowRing[T]) Push(item T) (wasEmpty bool) {
	wasEmpty = r.head == r.tail
	r.items[r.tail] = item
	r.tail = (r.tail + 1) % len(r.items)
	if r.tail == r.head {
		r.grow()
	}
	return wasEmpty
}

// grow doubles the capacity. The wrapped prefix [0, tail) is copied right
// behind the old end so [head, tail) stays one contiguous run.
func (r *GrowRing[T]) grow() {
	old := len(r.items)
	items := make([]T, old*2)
	copy(items, r.items)
	copy(items[old:], r.items[:r.tail])
	var zero T
	for i := 0; i < r.tail; i++ {
		items[i] = zero
	}
	r.items = items
	r.tail += old
	r.growth++
}

// Pop removes the head item. It reports ok=false on an empty ring and
// nowEmpty=true when the pop drained the ring.
func (r *GrowRing[T]) Pop() (item T, ok bool, nowEmpty bool) {
	if r.head == r.tail {
		return item, false, true
	}
	item = r.items[r.head]
	var zero T
	r.items[r.head] = zero
	r.head = (r.head + 1) % len(r.items)
	return item, true, r.head == r.tail
}

// Len returns the number of queued items.
func (r *GrowRing[T]) Len() int {
	if r.tail >= r.head {
		return r.tail - r.head
	}
	return len(r.items) - r.head + r.tail
}

// Cap returns the current capacity.
func (r *GrowRing[T]) Cap() int {
	return len(r.items)
}

// Growths returns how many times the ring doubled.
func (r *GrowRing[T]) Growths() int {
	return r.growth
}
