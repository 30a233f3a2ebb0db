// Package circularbuffer keeps the most recent N elements pushed to it.
package circularbuffer

import "sync"

type CircularBuffer[T any] struct {
	values   []T
	position int
	full     bool
	mu       sync.Mutex
}

// New returns a buffer holding at most size elements. A size below one is
// treated as one.
func New[T any](size int) *CircularBuffer[T] {
	if size < 1 {
		size = 1
	}

	return &CircularBuffer[T]{
		values: make([]T, size),
	}
}

// Push stores element, overwriting the oldest one once the buffer is full.
func (cb *CircularBuffer[T]) Push(element T) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.values[cb.position] = element
	cb.position++

	if cb.position >= len(cb.values) {
		cb.position = 0
		cb.full = true
	}
}

func (cb *CircularBuffer[T]) Len() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return cb.len()
}

func (cb *CircularBuffer[T]) Cap() int {
	return len(cb.values)
}

func (cb *CircularBuffer[T]) len() int {
	if cb.full {
		return len(cb.values)
	}
	return cb.position
}

// Each iterates over all elements in the buffer in the order they were
// inserted, oldest first. Returning false from fn stops the iteration.
func (cb *CircularBuffer[T]) Each(fn func(T) bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.each(fn)
}

func (cb *CircularBuffer[T]) each(fn func(T) bool) {
	i := 0
	if cb.full {
		i = cb.position
	}

	for n := cb.len(); n > 0; n-- {
		if !fn(cb.values[i]) {
			return
		}

		i++
		if i >= len(cb.values) {
			i = 0
		}
	}
}

// Snapshot copies out the buffered elements, oldest first.
func (cb *CircularBuffer[T]) Snapshot() []T {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	out := make([]T, 0, cb.len())
	cb.each(func(v T) bool {
		out = append(out, v)
		return true
	})
	return out
}

// Find returns the newest element matching fn.
func (cb *CircularBuffer[T]) Find(fn func(T) bool) (T, bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	var found T
	ok := false
	cb.each(func(v T) bool {
		if fn(v) {
			found = v
			ok = true
		}
		return true
	})
	return found, ok
}
