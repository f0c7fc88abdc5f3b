package grid

import (
	"errors"
	"fmt"

	"github.com/kobzarvs/qgrid/internal/logger"
	"github.com/kobzarvs/qgrid/internal/protocol"
)

// ErrNoActiveCell is returned by operations that need an active cell when
// there is none.
var ErrNoActiveCell = errors.New("no active cell")

// Sender receives outbound messages. It must not block.
type Sender interface {
	Send(msg protocol.Message)
}

// ValidationError reports a commit rejected by the column validator. The
// editor stays open.
type ValidationError struct {
	Row    int
	Column string
	Msg    string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("row %d column %s: %s", e.Row, e.Column, e.Msg)
}

// Cell addresses a grid position.
type Cell struct {
	Row, Col int
}

// Controller owns the grid state: rows, columns, the active cell and at most
// one open editor. It is not safe for concurrent use; callers drive it from a
// single event loop.
type Controller struct {
	out      Sender
	ctx      *Context
	editable bool

	active    Cell
	hasActive bool

	editor    Editor
	container *CellContainer
	message   string
}

func NewController(out Sender, opts Options) *Controller {
	return &Controller{
		out: out,
		ctx: &Context{Cache: NewRowCache(), Options: opts},
	}
}

// Setup loads rows and builds the column descriptors. When editable is false
// no editors are attached.
func (c *Controller) Setup(rows []*Row, columns []protocol.ColumnSpec, editable bool) error {
	c.Cancel()
	if err := c.ctx.Cache.SetItems(rows); err != nil {
		return fmt.Errorf("setup: %w", err)
	}
	c.ctx.Columns = buildColumns(columns, editable, c.ctx.Options.LockIndexColumn)
	c.editable = editable
	c.hasActive = false
	c.active = Cell{}
	if c.ctx.Cache.Len() > 0 && len(c.ctx.Columns) > 0 {
		c.active = Cell{Row: 0, Col: c.firstEditableColumn()}
		c.hasActive = true
	}
	logger.Info("grid setup", "rows", len(rows), "columns", len(columns), "editable", editable)
	return nil
}

func (c *Controller) firstEditableColumn() int {
	for i, col := range c.ctx.Columns {
		if col.Editable {
			return i
		}
	}
	return 0
}

func (c *Controller) Context() *Context {
	return c.ctx
}

func (c *Controller) Columns() []*ColumnDescriptor {
	return c.ctx.Columns
}

func (c *Controller) Cache() *RowCache {
	return c.ctx.Cache
}

func (c *Controller) Editable() bool {
	return c.editable
}

func (c *Controller) ActiveCell() (Cell, bool) {
	return c.active, c.hasActive
}

// Editor returns the open editor, or nil.
func (c *Controller) Editor() Editor {
	return c.editor
}

func (c *Controller) Editing() bool {
	return c.editor != nil
}

// Container returns the container of the cell being edited, or nil.
func (c *Controller) Container() *CellContainer {
	if c.editor == nil {
		return nil
	}
	return c.container
}

// ValidationMessage is the last rejection shown to the user.
func (c *Controller) ValidationMessage() string {
	return c.message
}

// Activate moves the active cell to (row, col), clamped to the grid. An open
// editor is committed first; if the commit is rejected the cell stays.
func (c *Controller) Activate(row, col int) error {
	n, m := c.ctx.Cache.Len(), len(c.ctx.Columns)
	if n == 0 || m == 0 {
		return ErrNoActiveCell
	}
	row = clamp(row, 0, n-1)
	col = clamp(col, 0, m-1)
	if c.hasActive && c.active.Row == row && c.active.Col == col {
		return nil
	}
	if c.editor != nil {
		if err := c.Commit(); err != nil {
			return err
		}
	}
	c.active = Cell{Row: row, Col: col}
	c.hasActive = true
	return nil
}

// Move shifts the active cell by (dr, dc).
func (c *Controller) Move(dr, dc int) error {
	if !c.hasActive {
		return c.Activate(0, 0)
	}
	return c.Activate(c.active.Row+dr, c.active.Col+dc)
}

// BeginEdit opens the column editor on the active cell. It does nothing on a
// read-only column or when an editor is already open.
func (c *Controller) BeginEdit() error {
	if !c.hasActive {
		return ErrNoActiveCell
	}
	if c.editor != nil {
		return nil
	}
	col := c.ctx.Column(c.active.Col)
	if col == nil || !col.Editable || col.NewEditor == nil {
		return nil
	}
	row := c.ctx.Cache.Item(c.active.Row)
	if row == nil {
		return ErrNoActiveCell
	}
	c.container = &CellContainer{Row: c.active.Row, Col: c.active.Col}
	ed := col.NewEditor(EditorArgs{Column: col, Container: c.container, Grid: c.ctx})
	ed.Init()
	ed.LoadValue(row)
	c.editor = ed
	c.message = ""
	logger.Debug("edit begin", "row", c.active.Row, "column", col.Field)
	return nil
}

// Commit closes the open editor. A changed value must pass validation; it is
// then written to the row and announced with one cell_change message.
func (c *Controller) Commit() error {
	ed := c.editor
	if ed == nil {
		return nil
	}
	col := c.ctx.Column(c.active.Col)
	row := c.ctx.Cache.Item(c.active.Row)
	if col == nil || row == nil {
		c.closeEditor()
		return ErrNoActiveCell
	}
	if ed.IsValueChanged() {
		if res := ed.Validate(); !res.Valid {
			c.message = res.Msg
			logger.Debug("edit rejected", "row", c.active.Row, "column", col.Field, "msg", res.Msg)
			return &ValidationError{Row: c.active.Row, Column: col.Name, Msg: res.Msg}
		}
		ed.ApplyValue(row, ed.SerializeValue())
		c.out.Send(protocol.CellChange(c.active.Row, col.Name, row.Get(col.Field)))
	}
	c.closeEditor()
	return nil
}

// Cancel closes the open editor without touching the row.
func (c *Controller) Cancel() {
	if c.editor == nil {
		return
	}
	c.closeEditor()
}

func (c *Controller) closeEditor() {
	c.editor.Destroy()
	c.editor = nil
	c.container = nil
	c.message = ""
}

func (c *Controller) InsertRune(r rune) {
	if c.editor != nil {
		c.editor.Input().InsertRune(r)
		c.message = ""
	}
}

func (c *Controller) Backspace() {
	if c.editor != nil {
		c.editor.Input().Backspace()
		c.message = ""
	}
}

func (c *Controller) CursorLeft() {
	if c.editor != nil {
		c.editor.Input().Left()
	}
}

func (c *Controller) CursorRight() {
	if c.editor != nil {
		c.editor.Input().Right()
	}
}

// CalendarOpen reports whether the open editor shows its popup.
func (c *Controller) CalendarOpen() bool {
	if c.editor == nil {
		return false
	}
	p := c.editor.Popup()
	return p != nil && p.IsOpen()
}

func (c *Controller) OpenCalendar() {
	if c.editor != nil {
		c.editor.OpenPopup(c.ctx.Options.now())
	}
}

func (c *Controller) CloseCalendar() {
	if c.editor != nil {
		c.editor.ClosePopup()
	}
}

func (c *Controller) MoveCalendar(days int) {
	if c.editor != nil {
		c.editor.MovePopup(days)
	}
}

func (c *Controller) PickDate() {
	if c.editor != nil {
		c.editor.PickPopup()
	}
}

// HandleMessage applies a message from the model. Types the grid does not
// know are ignored.
func (c *Controller) HandleMessage(msg protocol.Message) error {
	switch msg.Type {
	case protocol.TypeRemoveRow:
		return c.removeActiveRow()
	case protocol.TypeAddRow:
		return c.addRow(msg)
	case protocol.TypeSetup:
		if msg.Setup == nil {
			return nil
		}
		rows := make([]*Row, 0, len(msg.Setup.Rows))
		for i, rec := range msg.Setup.Rows {
			rows = append(rows, NewRow(rec, i))
		}
		return c.Setup(rows, msg.Setup.Columns, msg.Setup.Editable)
	default:
		logger.Debug("ignoring message", "type", msg.Type)
		return nil
	}
}

func (c *Controller) removeActiveRow() error {
	if !c.hasActive {
		logger.Warn("remove_row without active cell")
		return ErrNoActiveCell
	}
	pos := c.active.Row
	row := c.ctx.Cache.Item(pos)
	if row == nil {
		logger.Warn("remove_row without active row", "row", pos)
		return ErrNoActiveCell
	}
	c.Cancel()
	id := row.ID
	if err := c.ctx.Cache.DeleteItem(id); err != nil {
		return fmt.Errorf("remove_row: %w", err)
	}
	if n := c.ctx.Cache.Len(); n == 0 {
		c.hasActive = false
		c.active = Cell{}
	} else if c.active.Row >= n {
		c.active.Row = n - 1
	}
	c.out.Send(protocol.RemoveRowConfirm(pos, id))
	logger.Info("row removed", "row", pos, "id", id)
	return nil
}

func (c *Controller) addRow(msg protocol.Message) error {
	row := NewRow(msg.Fields, FreshID())
	if err := c.ctx.Cache.AddItem(row); err != nil {
		return fmt.Errorf("add_row: %w", err)
	}
	c.ctx.Cache.Refresh()
	if !c.hasActive && len(c.ctx.Columns) > 0 {
		c.active = Cell{Row: 0, Col: c.firstEditableColumn()}
		c.hasActive = true
	}
	c.out.Send(msg)
	logger.Info("row added", "id", row.ID)
	return nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
