package swaplist

// Cursor walks a List's circular order forever. It reads the links lazily,
// so it sees the order as it is when each step is taken.
type Cursor[T any] struct {
	list     *List[T]
	position int
}

// Iter returns a cursor positioned on slot start.
func (l *List[T]) Iter(start int) (*Cursor[T], error) {
	if err := l.check(start); err != nil {
		return nil, err
	}

	return &Cursor[T]{
		list:     l,
		position: start,
	}, nil
}

// Slot is the original index the cursor is on.
func (c *Cursor[T]) Slot() int {
	return c.position
}

func (c *Cursor[T]) Current() T {
	return c.list.slots[c.position].value
}

func (c *Cursor[T]) PeekNext() T {
	return c.list.slots[c.list.slots[c.position].next].value
}

func (c *Cursor[T]) Advance() {
	c.position = c.list.slots[c.position].next
}

// Next returns the current value and moves on.
func (c *Cursor[T]) Next() T {
	v := c.Current()
	c.Advance()
	return v
}

// Take consumes n values.
func (c *Cursor[T]) Take(n int) []T {
	if n <= 0 {
		return nil
	}
	values := make([]T, 0, n)
	for i := 0; i < n; i++ {
		values = append(values, c.Next())
	}
	return values
}
