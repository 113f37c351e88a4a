package memdb

// Table is a keyed collection of T values. It must only be touched through
// a Conn obtained from the DB that owns the lock guarding it.
type Table[T any] struct {
	rows  map[string]T
	clone func(T) T
}

// NewTable creates a table. clone must return a copy of its argument that
// shares no mutable memory with it; nil means T is safe to copy by value.
func NewTable[T any](clone func(T) T) *Table[T] {
	if clone == nil {
		clone = func(v T) T { return v }
	}
	return &Table[T]{rows: make(map[string]T), clone: clone}
}

// Get returns a copy of the row stored under id.
func (t *Table[T]) Get(c *Conn, id string) (T, bool, error) {
	var zero T
	if err := c.checkRead(); err != nil {
		return zero, false, err
	}
	v, ok := t.rows[id]
	if !ok {
		return zero, false, nil
	}
	return t.clone(v), true, nil
}

// Scan calls fn with a copy of every row until fn returns false. Row order
// is unspecified.
func (t *Table[T]) Scan(c *Conn, fn func(v T) bool) error {
	if err := c.checkRead(); err != nil {
		return err
	}
	for _, v := range t.rows {
		if !fn(t.clone(v)) {
			return nil
		}
	}
	return nil
}

// Len returns the number of rows.
func (t *Table[T]) Len(c *Conn) (int, error) {
	if err := c.checkRead(); err != nil {
		return 0, err
	}
	return len(t.rows), nil
}

// Put stores a copy of v under id, replacing any existing row.
func (t *Table[T]) Put(c *Conn, id string, v T) error {
	if err := c.checkWrite(); err != nil {
		return err
	}

	prev, existed := t.rows[id]
	c.undo = append(c.undo, func() {
		if existed {
			t.rows[id] = prev
		} else {
			delete(t.rows, id)
		}
	})

	t.rows[id] = t.clone(v)
	return nil
}

// Delete removes the row stored under id and reports whether it existed.
func (t *Table[T]) Delete(c *Conn, id string) (bool, error) {
	if err := c.checkWrite(); err != nil {
		return false, err
	}

	prev, existed := t.rows[id]
	if !existed {
		return false, nil
	}
	c.undo = append(c.undo, func() { t.rows[id] = prev })

	delete(t.rows, id)
	return true, nil
}
