package grid

import "fmt"

// RowCache is the local, ordered mirror of the remote rows, indexed by id.
type RowCache struct {
	rows    []*Row
	index   map[string]int
	version uint64
}

func NewRowCache() *RowCache {
	return &RowCache{index: make(map[string]int)}
}

// SetItems replaces the contents. Every row needs a unique id.
func (c *RowCache) SetItems(rows []*Row) error {
	index := make(map[string]int, len(rows))
	for i, r := range rows {
		if r.ID == nil {
			return fmt.Errorf("row %d: %w", i, ErrMissingID)
		}
		key := idKey(r.ID)
		if _, ok := index[key]; ok {
			return fmt.Errorf("row %d id %v: %w", i, r.ID, ErrDuplicateID)
		}
		index[key] = i
	}
	c.rows = append([]*Row(nil), rows...)
	c.index = index
	c.version++
	return nil
}

func (c *RowCache) Len() int {
	return len(c.rows)
}

// Item returns the row at position i, or nil when out of range.
func (c *RowCache) Item(i int) *Row {
	if i < 0 || i >= len(c.rows) {
		return nil
	}
	return c.rows[i]
}

func (c *RowCache) ItemByID(id any) (*Row, bool) {
	i, ok := c.index[idKey(id)]
	if !ok {
		return nil, false
	}
	return c.rows[i], true
}

// IndexOf returns the position of the row with id, or -1.
func (c *RowCache) IndexOf(id any) int {
	if i, ok := c.index[idKey(id)]; ok {
		return i
	}
	return -1
}

// AddItem appends r. Views pick it up after Refresh.
func (c *RowCache) AddItem(r *Row) error {
	if r.ID == nil {
		return ErrMissingID
	}
	key := idKey(r.ID)
	if _, ok := c.index[key]; ok {
		return fmt.Errorf("id %v: %w", r.ID, ErrDuplicateID)
	}
	c.rows = append(c.rows, r)
	c.index[key] = len(c.rows) - 1
	return nil
}

// DeleteItem removes the row with id.
func (c *RowCache) DeleteItem(id any) error {
	key := idKey(id)
	i, ok := c.index[key]
	if !ok {
		return fmt.Errorf("id %v: %w", id, ErrUnknownID)
	}
	copy(c.rows[i:], c.rows[i+1:])
	c.rows[len(c.rows)-1] = nil
	c.rows = c.rows[:len(c.rows)-1]
	delete(c.index, key)
	for j := i; j < len(c.rows); j++ {
		c.index[idKey(c.rows[j].ID)] = j
	}
	c.version++
	return nil
}

// Refresh marks the cache as changed so views redraw.
func (c *RowCache) Refresh() {
	c.version++
}

// Version increases on every structural change.
func (c *RowCache) Version() uint64 {
	return c.version
}

// Rows returns a copy of the ordered row slice.
func (c *RowCache) Rows() []*Row {
	return append([]*Row(nil), c.rows...)
}
