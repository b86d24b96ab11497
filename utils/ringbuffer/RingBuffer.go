// Package ringbuffer implements a bounded buffer which keeps only the
// most recently pushed items
package ringbuffer

import (
	"fmt"

	"github.com/gammazero/deque"
)

// RingBuffer holds at most size items. Pushing onto a full RingBuffer
// drops the oldest item.
type RingBuffer[T any] struct {
	items *deque.Deque[T]
	size  int
}

// New returns a new RingBuffer that holds at most size items
func New[T any](size int) (*RingBuffer[T], error) {
	if size <= 0 {
		return nil, fmt.Errorf("new: size must be > 0")
	}
	return &RingBuffer[T]{items: deque.New[T](size), size: size}, nil
}

// Push appends item, evicting the oldest item if the buffer is full
func (r *RingBuffer[T]) Push(item T) {
	if r.items.Len() >= r.size {
		r.items.PopFront()
	}
	r.items.PushBack(item)
}

// Snapshot returns a copy of the buffer contents ordered from oldest
// to newest
func (r *RingBuffer[T]) Snapshot() []T {
	out := make([]T, r.items.Len())
	for i := range out {
		out[i] = r.items.At(i)
	}
	return out
}

// Len returns the number of items currently held
func (r *RingBuffer[T]) Len() int {
	return r.items.Len()
}

// Size returns the maximum number of items held
func (r *RingBuffer[T]) Size() int {
	return r.size
}

// Full returns whether the buffer holds Size() items
func (r *RingBuffer[T]) Full() bool {
	return r.items.Len() == r.size
}

// Clear removes all items
func (r *RingBuffer[T]) Clear() {
	r.items.Clear()
}
