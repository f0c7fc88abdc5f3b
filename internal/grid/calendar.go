package grid

import (
	"strings"
	"time"
)

// Calendar is the date picker popup attached to a date cell.
type Calendar struct {
	layout    string
	cursor    time.Time
	open      bool
	visible   bool
	destroyed bool
	top, left int

	onOpen  func()
	onClose func()
}

func (*Calendar) control() {}

func NewCalendar(layout string) *Calendar {
	return &Calendar{layout: layout}
}

// Open shows the popup with the cursor on value, or on now when value does not
// parse.
func (c *Calendar) Open(value string, now time.Time) {
	if c.destroyed || c.open {
		return
	}
	if t, err := time.Parse(c.layout, strings.TrimSpace(value)); err == nil {
		c.cursor = t
	} else {
		c.cursor = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	}
	c.open = true
	c.visible = true
	if c.onOpen != nil {
		c.onOpen()
	}
}

func (c *Calendar) Close() {
	if !c.open {
		return
	}
	c.open = false
	c.visible = false
	if c.onClose != nil {
		c.onClose()
	}
}

func (c *Calendar) Show() {
	if c.open {
		c.visible = true
	}
}

func (c *Calendar) Hide() {
	c.visible = false
}

func (c *Calendar) SetPosition(top, left int) {
	c.top, c.left = top, left
}

func (c *Calendar) Position() (top, left int) {
	return c.top, c.left
}

func (c *Calendar) MoveDays(n int) {
	if c.open {
		c.cursor = c.cursor.AddDate(0, 0, n)
	}
}

func (c *Calendar) MoveMonths(n int) {
	if c.open {
		c.cursor = c.cursor.AddDate(0, n, 0)
	}
}

// Cursor is the highlighted date.
func (c *Calendar) Cursor() time.Time {
	return c.cursor
}

// Selected formats the highlighted date with the column layout.
func (c *Calendar) Selected() string {
	return c.cursor.Format(c.layout)
}

func (c *Calendar) IsOpen() bool {
	return c.open
}

func (c *Calendar) Visible() bool {
	return c.visible
}

func (c *Calendar) Destroyed() bool {
	return c.destroyed
}

// Destroy releases the popup. It closes it first if still open.
func (c *Calendar) Destroy() {
	if c.destroyed {
		return
	}
	c.Close()
	c.visible = false
	c.destroyed = true
	c.onOpen, c.onClose = nil, nil
}
