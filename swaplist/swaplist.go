// Package swaplist implements a fixed-size circular list whose elements
// keep their original index as a stable handle while their circular order
// is rearranged in place.
package swaplist

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyList       = errors.New("list is empty")
	ErrIndexOutOfRange = errors.New("index out of range")
)

type slot[T any] struct {
	value T
	next  int
	prev  int
}

// List is an arena of slots linked into a single cycle. Slot i always holds
// the i-th value it was built from; only the links change.
type List[T any] struct {
	slots []slot[T]
}

func New[T any](values []T) *List[T] {
	n := len(values)
	slots := make([]slot[T], n)
	for i, v := range values {
		slots[i] = slot[T]{
			value: v,
			next:  (i + 1) % n,
			prev:  (i + n - 1) % n,
		}
	}

	return &List[T]{slots: slots}
}

func (l *List[T]) Len() int {
	return len(l.slots)
}

func (l *List[T]) check(i int) error {
	if len(l.slots) == 0 {
		return ErrEmptyList
	}
	if i < 0 || i >= len(l.slots) {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, i, len(l.slots))
	}
	return nil
}

// At returns the value that started at original index i.
func (l *List[T]) At(i int) (T, error) {
	if err := l.check(i); err != nil {
		var zero T
		return zero, err
	}
	return l.slots[i].value, nil
}

// Next returns the original index of the slot currently after i.
func (l *List[T]) Next(i int) (int, error) {
	if err := l.check(i); err != nil {
		return 0, err
	}
	return l.slots[i].next, nil
}

// Prev returns the original index of the slot currently before i.
func (l *List[T]) Prev(i int) (int, error) {
	if err := l.check(i); err != nil {
		return 0, err
	}
	return l.slots[i].prev, nil
}

// AdvanceOne swaps slot i with its successor in the circular order.
func (l *List[T]) AdvanceOne(i int) error {
	if err := l.check(i); err != nil {
		return err
	}
	if len(l.slots) <= 1 {
		return nil
	}

	l.advance(i)
	return nil
}

// RetreatOne swaps slot i with its predecessor, which is the same as
// advancing the predecessor.
func (l *List[T]) RetreatOne(i int) error {
	if err := l.check(i); err != nil {
		return err
	}
	if len(l.slots) <= 1 {
		return nil
	}

	l.advance(l.slots[i].prev)
	return nil
}

// Move shifts slot i by k positions, forward when k is positive. Going all
// the way around the other N-1 elements is a no-op, so only |k| mod (N-1)
// single steps are taken.
func (l *List[T]) Move(i int, k int) error {
	if err := l.check(i); err != nil {
		return err
	}
	n := len(l.slots)
	if n <= 1 {
		return nil
	}

	steps := k % (n - 1)
	for ; steps > 0; steps-- {
		l.advance(i)
	}
	for ; steps < 0; steps++ {
		l.advance(l.slots[i].prev)
	}
	return nil
}

func (l *List[T]) advance(i int) {
	next := l.slots[i].next
	l.detach(i)
	l.insertAfter(next, i)
}

func (l *List[T]) detach(i int) {
	prev := l.slots[i].prev
	next := l.slots[i].next

	l.slots[next].prev = prev
	l.slots[prev].next = next
}

func (l *List[T]) insertAfter(after int, i int) {
	next := l.slots[after].next

	l.slots[i].next = next
	l.slots[i].prev = after

	l.slots[after].next = i
	l.slots[next].prev = i
}

// Values returns one lap of the circular order starting at slot start.
func (l *List[T]) Values(start int) ([]T, error) {
	c, err := l.Iter(start)
	if err != nil {
		return nil, err
	}
	return c.Take(len(l.slots)), nil
}

// IndexOf returns the original index of the first slot, in original order,
// whose value matches. ok is false if nothing matches.
func (l *List[T]) IndexOf(match func(T) bool) (index int, ok bool) {
	for i := range l.slots {
		if match(l.slots[i].value) {
			return i, true
		}
	}
	return 0, false
}
