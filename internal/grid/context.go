package grid

import "time"

// DefaultDateLayout is the layout date cells are edited in.
const DefaultDateLayout = "2006-01-02"

type Options struct {
	// DateLayout is the time layout of date cells. Empty means DefaultDateLayout.
	DateLayout string
	// LockIndexColumn keeps the first column read-only.
	LockIndexColumn bool
	// Now returns the current time. Nil means time.Now.
	Now func() time.Time
}

func (o Options) dateLayout() string {
	if o.DateLayout == "" {
		return DefaultDateLayout
	}
	return o.DateLayout
}

func (o Options) now() time.Time {
	if o.Now == nil {
		return time.Now()
	}
	return o.Now()
}

// Context is the grid state shared with editors. It is owned by a Controller.
type Context struct {
	Cache   *RowCache
	Columns []*ColumnDescriptor
	Options Options
}

// Column returns the descriptor at i, or nil.
func (c *Context) Column(i int) *ColumnDescriptor {
	if i < 0 || i >= len(c.Columns) {
		return nil
	}
	return c.Columns[i]
}

// ColumnIndex returns the position of the column named field, or -1.
func (c *Context) ColumnIndex(field string) int {
	for i, col := range c.Columns {
		if col.Field == field {
			return i
		}
	}
	return -1
}
