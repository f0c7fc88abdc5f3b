package grid

import (
	"fmt"
	"strconv"
	"time"

	"github.com/kobzarvs/qgrid/internal/validate"
)

// Editor is the state machine behind one cell edit. The set of variants is
// closed: TextEditor and DateEditor.
//
// Lifecycle: Init, LoadValue, any number of input changes, then either
// Validate + SerializeValue + ApplyValue (commit) or nothing (cancel), and
// finally Destroy.
type Editor interface {
	Init()
	LoadValue(row *Row)
	SerializeValue() string
	ApplyValue(row *Row, value string)
	IsValueChanged() bool
	Validate() validate.Result
	Destroy()
	Destroyed() bool

	// Show, Hide and Position only act while a popup is open.
	Show()
	Hide()
	Position(top, left int)

	OpenPopup(now time.Time)
	ClosePopup()
	MovePopup(days int)
	PickPopup()

	Input() *Input
	Popup() *Calendar

	editor()
}

// EditorArgs is what a column's editor factory receives.
type EditorArgs struct {
	Column    *ColumnDescriptor
	Container Container
	Grid      *Context
}

type EditorFactory func(EditorArgs) Editor

// FormatValue is the display form of a cell value.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case time.Time:
		return x.Format(DefaultDateLayout)
	default:
		return fmt.Sprint(x)
	}
}

// session holds the state shared by both editor variants.
type session struct {
	args         EditorArgs
	input        *Input
	defaultValue any
	destroyed    bool
}

func (s *session) init() {
	s.input = &Input{}
	s.args.Container.Mount(s.input)
	s.input.Focus()
}

func (s *session) LoadValue(row *Row) {
	s.defaultValue = row.Get(s.args.Column.Field)
	s.input.SetValue(FormatValue(s.defaultValue))
	s.input.Select()
}

func (s *session) SerializeValue() string {
	return s.input.Value()
}

func (s *session) ApplyValue(row *Row, value string) {
	row.Set(s.args.Column.Field, value)
}

// IsValueChanged treats an empty buffer over a missing value as unchanged, so
// clearing a cell that was never set sends nothing.
func (s *session) IsValueChanged() bool {
	buf := s.input.Value()
	if buf == "" && s.defaultValue == nil {
		return false
	}
	return buf != FormatValue(s.defaultValue)
}

func (s *session) Input() *Input {
	return s.input
}

func (s *session) Destroyed() bool {
	return s.destroyed
}

func (s *session) release() {
	if s.input != nil {
		s.input.Blur()
		s.args.Container.Unmount(s.input)
	}
	s.destroyed = true
}

func (*session) editor() {}

// TextEditor edits a cell as free text, checked by the column validator.
type TextEditor struct {
	session
}

func NewTextEditor(args EditorArgs) Editor {
	return &TextEditor{session: session{args: args}}
}

func (e *TextEditor) Init() {
	e.init()
}

func (e *TextEditor) Validate() validate.Result {
	if v := e.args.Column.Validator; v != nil {
		return v(e.input.Value())
	}
	return validate.OK()
}

func (e *TextEditor) Destroy() {
	if e.destroyed {
		return
	}
	e.release()
}

func (*TextEditor) Show() {}
func (*TextEditor) Hide() {}
func (*TextEditor) Position(int, int) {}
func (*TextEditor) OpenPopup(time.Time) {}
func (*TextEditor) ClosePopup() {}
func (*TextEditor) MovePopup(int) {}
func (*TextEditor) PickPopup() {}
func (*TextEditor) Popup() *Calendar { return nil }

// DateEditor edits a date cell through the input and an attached calendar.
type DateEditor struct {
	session
	calendar     *Calendar
	calendarOpen bool
}

func NewDateEditor(args EditorArgs) Editor {
	return &DateEditor{session: session{args: args}}
}

func (e *DateEditor) Init() {
	e.init()
	e.calendar = NewCalendar(e.args.Grid.Options.dateLayout())
	e.calendar.onOpen = func() { e.calendarOpen = true }
	e.calendar.onClose = func() { e.calendarOpen = false }
	e.args.Container.Mount(e.calendar)
}

// Validate accepts any input; dates are parsed by the model.
func (e *DateEditor) Validate() validate.Result {
	return validate.OK()
}

func (e *DateEditor) Show() {
	if e.calendarOpen {
		e.calendar.Show()
	}
}

func (e *DateEditor) Hide() {
	if e.calendarOpen {
		e.calendar.Hide()
	}
}

// Position places the popup one row below the cell at (top, left).
func (e *DateEditor) Position(top, left int) {
	if e.calendarOpen {
		e.calendar.SetPosition(top+1, left)
	}
}

func (e *DateEditor) OpenPopup(now time.Time) {
	if e.destroyed || e.calendar == nil {
		return
	}
	e.calendar.Open(e.input.Value(), now)
}

func (e *DateEditor) ClosePopup() {
	if e.calendar != nil {
		e.calendar.Close()
	}
}

func (e *DateEditor) MovePopup(days int) {
	if e.calendarOpen {
		e.calendar.MoveDays(days)
	}
}

// PickPopup copies the highlighted date into the input and closes the popup.
func (e *DateEditor) PickPopup() {
	if !e.calendarOpen {
		return
	}
	e.input.SetValue(e.calendar.Selected())
	e.calendar.Close()
}

func (e *DateEditor) Popup() *Calendar {
	return e.calendar
}

// CalendarOpen reports the popup sub-state.
func (e *DateEditor) CalendarOpen() bool {
	return e.calendarOpen
}

// Destroy stops and hides the popup before destroying it, then releases the
// input.
func (e *DateEditor) Destroy() {
	if e.destroyed {
		return
	}
	if c := e.calendar; c != nil {
		c.Hide()
		c.Close()
		c.Destroy()
		e.args.Container.Unmount(c)
	}
	e.calendarOpen = false
	e.release()
}
