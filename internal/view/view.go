// Package view draws a grid controller onto a terminal screen and turns key
// presses into grid actions.
package view

import (
	"errors"
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"

	"github.com/kobzarvs/qgrid/internal/config"
	"github.com/kobzarvs/qgrid/internal/grid"
	"github.com/kobzarvs/qgrid/internal/logger"
)

type keymaps struct {
	grid     map[string]string
	edit     map[string]string
	calendar map[string]string
}

type styles struct {
	main       tcell.Style
	header     tcell.Style
	index      tcell.Style
	active     tcell.Style
	readonly   tcell.Style
	editor     tcell.Style
	selection  tcell.Style
	calendar   tcell.Style
	calendarOn tcell.Style
	status     tcell.Style
	errorMsg   tcell.Style
	separator  tcell.Style
}

// column is where a grid column landed on screen in the last render.
type column struct {
	index int
	x     int
	width int
}

// View renders a Controller. It must be used from the goroutine that owns
// the controller.
type View struct {
	grid   *grid.Controller
	keymap keymaps
	style  styles

	minWidth int
	maxWidth int

	title     string
	status    string
	scrollRow int
	scrollCol int

	// Layout of the last render.
	bodyHeight int
	columns    []column
}

func copyKeys(src map[string]string) map[string]string {
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

func New(cfg config.Config, c *grid.Controller) *View {
	mainFg := parseColor(cfg.Theme.Foreground, tcell.ColorWhite)
	mainBg := parseColor(cfg.Theme.Background, tcell.ColorBlack)
	statusFg := parseColor(cfg.Theme.StatuslineForeground, tcell.ColorBlack)
	statusBg := parseColor(cfg.Theme.StatuslineBackground, tcell.ColorGray)
	headerFg := parseColor(cfg.Theme.HeaderForeground, mainFg)
	headerBg := parseColor(cfg.Theme.HeaderBackground, statusBg)
	editorFg := parseColor(cfg.Theme.EditorForeground, mainFg)
	editorBg := parseColor(cfg.Theme.EditorBackground, mainBg)
	calFg := parseColor(cfg.Theme.CalendarForeground, mainFg)
	calBg := parseColor(cfg.Theme.CalendarBackground, statusBg)

	minWidth := cfg.Grid.ColumnWidth
	if minWidth < 3 {
		minWidth = 3
	}
	maxWidth := cfg.Grid.MaxColumnWidth
	if maxWidth < minWidth {
		maxWidth = minWidth
	}

	main := tcell.StyleDefault.Foreground(mainFg).Background(mainBg)
	return &View{
		grid: c,
		keymap: keymaps{
			grid:     copyKeys(cfg.Keymap.Grid),
			edit:     copyKeys(cfg.Keymap.Edit),
			calendar: copyKeys(cfg.Keymap.Calendar),
		},
		style: styles{
			main:       main,
			header:     tcell.StyleDefault.Foreground(headerFg).Background(headerBg).Bold(true),
			index:      main.Foreground(parseColor(cfg.Theme.IndexForeground, mainFg)),
			active:     tcell.StyleDefault.Foreground(parseColor(cfg.Theme.ActiveForeground, mainBg)).Background(parseColor(cfg.Theme.ActiveBackground, mainFg)),
			readonly:   main.Foreground(parseColor(cfg.Theme.ReadonlyForeground, mainFg)),
			editor:     tcell.StyleDefault.Foreground(editorFg).Background(editorBg),
			selection:  tcell.StyleDefault.Foreground(editorBg).Background(editorFg),
			calendar:   tcell.StyleDefault.Foreground(calFg).Background(calBg),
			calendarOn: tcell.StyleDefault.Foreground(calBg).Background(parseColor(cfg.Theme.CalendarSelected, calFg)),
			status:     tcell.StyleDefault.Foreground(statusFg).Background(statusBg),
			errorMsg:   tcell.StyleDefault.Foreground(parseColor(cfg.Theme.ErrorForeground, tcell.ColorRed)).Background(statusBg),
			separator:  main.Foreground(parseColor(cfg.Theme.SeparatorForeground, mainFg)),
		},
		minWidth: minWidth,
		maxWidth: maxWidth,
	}
}

func (v *View) SetTitle(title string) {
	v.title = title
}

// SetStatus shows msg in the status line until the next key press.
func (v *View) SetStatus(msg string) {
	v.status = msg
}

func (v *View) Status() string {
	return v.status
}

// Scroll returns the first visible row and column.
func (v *View) Scroll() (row, col int) {
	return v.scrollRow, v.scrollCol
}

func (v *View) SetScroll(row, col int) {
	v.scrollRow, v.scrollCol = max(row, 0), max(col, 0)
}

func (v *View) columnWidth(ci int, col *grid.ColumnDescriptor, cache *grid.RowCache, first, last int) int {
	w := runewidth.StringWidth(col.Name)
	for r := first; r < last; r++ {
		if row := cache.Item(r); row != nil {
			w = max(w, runewidth.StringWidth(grid.FormatValue(row.Get(col.Field))))
		}
	}
	if ed := v.grid.Editor(); ed != nil {
		if cell, ok := v.grid.ActiveCell(); ok && cell.Col == ci {
			w = max(w, runewidth.StringWidth(ed.Input().Value())+1)
		}
	}
	return min(max(w, v.minWidth), v.maxWidth)
}

// ensureVisible scrolls so the active cell is on screen.
func (v *View) ensureVisible(screenW int) {
	cell, ok := v.grid.ActiveCell()
	if !ok {
		v.scrollRow, v.scrollCol = 0, 0
		return
	}
	if v.bodyHeight > 0 {
		if cell.Row < v.scrollRow {
			v.scrollRow = cell.Row
		}
		if cell.Row >= v.scrollRow+v.bodyHeight {
			v.scrollRow = cell.Row - v.bodyHeight + 1
		}
	}
	if cell.Col < v.scrollCol {
		v.scrollCol = cell.Col
	}
	cache := v.grid.Cache()
	last := min(v.scrollRow+v.bodyHeight, cache.Len())
	for v.scrollCol < cell.Col {
		x := 0
		for ci := v.scrollCol; ci <= cell.Col; ci++ {
			x += v.columnWidth(ci, v.grid.Columns()[ci], cache, v.scrollRow, last) + 1
		}
		if x <= screenW {
			break
		}
		v.scrollCol++
	}
}

func (v *View) Render(s tcell.Screen) {
	w, h := s.Size()
	if w <= 0 || h <= 0 {
		return
	}
	s.SetStyle(v.style.main)
	s.Clear()

	statusY := h - 1
	v.bodyHeight = max(h-2, 0)
	v.ensureVisible(w)

	cache := v.grid.Cache()
	cols := v.grid.Columns()
	firstRow := v.scrollRow
	lastRow := min(firstRow+v.bodyHeight, cache.Len())
	active, hasActive := v.grid.ActiveCell()
	editing := v.grid.Editing()

	v.columns = v.columns[:0]
	x := 0
	for ci := v.scrollCol; ci < len(cols) && x < w; ci++ {
		width := v.columnWidth(ci, cols[ci], cache, firstRow, lastRow)
		v.columns = append(v.columns, column{index: ci, x: x, width: width})
		x += width + 1
	}

	if h > 1 {
		clearLine(s, 0, w, v.style.header)
		for _, c := range v.columns {
			drawText(s, c.x, 0, min(c.x+c.width, w), fitCell(cols[c.index].Name, c.width), v.style.header)
		}
	}

	cursorX, cursorY := -1, -1
	for r := firstRow; r < lastRow; r++ {
		y := r - firstRow + 1
		row := cache.Item(r)
		for _, c := range v.columns {
			col := cols[c.index]
			style := v.style.main
			switch {
			case hasActive && active.Row == r && active.Col == c.index:
				style = v.style.active
			case c.index == 0:
				style = v.style.index
			case !col.Editable:
				style = v.style.readonly
			}
			maxX := min(c.x+c.width, w)
			if editing && hasActive && active.Row == r && active.Col == c.index {
				cursorX, cursorY = v.drawInput(s, c.x, y, maxX)
			} else {
				drawText(s, c.x, y, maxX, fitCell(grid.FormatValue(row.Get(col.Field)), c.width), style)
			}
			if sep := c.x + c.width; sep < w {
				s.SetContent(sep, y, '│', nil, v.style.separator)
			}
		}
	}

	// The popup follows its cell and is hidden while the cell is off screen.
	if editing && v.grid.CalendarOpen() {
		ed := v.grid.Editor()
		if cursorY >= 0 {
			ed.Show()
			ed.Position(cursorY, v.cellX(active.Col))
		} else {
			ed.Hide()
		}
		v.drawCalendar(s, ed.Popup(), w, h-1)
	}

	v.renderStatusline(s, w, statusY)

	if cursorX >= 0 && cursorY >= 0 && !v.grid.CalendarOpen() {
		s.SetCursorStyle(tcell.CursorStyleSteadyBar)
		s.ShowCursor(cursorX, cursorY)
	} else {
		s.HideCursor()
	}
	s.Show()
}

func (v *View) cellX(col int) int {
	for _, c := range v.columns {
		if c.index == col {
			return c.x
		}
	}
	return 0
}

// drawInput draws the open editor's buffer and returns the cursor position.
func (v *View) drawInput(s tcell.Screen, x, y, maxX int) (int, int) {
	in := v.grid.Editor().Input()
	style := v.style.editor
	if in.Selected() {
		style = v.style.selection
	}
	buf := []rune(in.Value())
	before := runewidth.StringWidth(string(buf[:in.Cursor()]))
	width := maxX - x
	// Keep the cursor inside the cell by skipping leading runes.
	start := 0
	for before-runewidth.StringWidth(string(buf[:start])) >= width && start < len(buf) {
		start++
	}
	for cx := x; cx < maxX; cx++ {
		s.SetContent(cx, y, ' ', nil, v.style.editor)
	}
	drawText(s, x, y, maxX, string(buf[start:]), style)
	return x + before - runewidth.StringWidth(string(buf[:start])), y
}

func (v *View) drawCalendar(s tcell.Screen, cal *grid.Calendar, w, bottom int) {
	if cal == nil || !cal.Visible() {
		return
	}
	const boxW, boxH = 22, 9
	top, left := cal.Position()
	if top+boxH > bottom {
		top = max(top-boxH-1, 0)
	}
	if left+boxW > w {
		left = max(w-boxW, 0)
	}
	cur := cal.Cursor()
	for y := top; y < top+boxH && y < bottom; y++ {
		for x := left; x < left+boxW && x < w; x++ {
			s.SetContent(x, y, ' ', nil, v.style.calendar)
		}
	}
	title := cur.Format("January 2006")
	drawText(s, left+(boxW-runewidth.StringWidth(title))/2, top, left+boxW, title, v.style.calendar.Bold(true))
	drawText(s, left+1, top+1, left+boxW, "Mo Tu We Th Fr Sa Su", v.style.calendar)

	first := time.Date(cur.Year(), cur.Month(), 1, 0, 0, 0, 0, time.UTC)
	offset := (int(first.Weekday()) + 6) % 7
	days := first.AddDate(0, 1, -1).Day()
	for d := 1; d <= days; d++ {
		slot := offset + d - 1
		y := top + 2 + slot/7
		x := left + 1 + (slot%7)*3
		style := v.style.calendar
		if d == cur.Day() {
			style = v.style.calendarOn
		}
		drawText(s, x, y, x+2, fmt.Sprintf("%2d", d), style)
	}
}

func (v *View) renderStatusline(s tcell.Screen, w, y int) {
	mode := "GRID"
	switch {
	case v.grid.CalendarOpen():
		mode = "CALENDAR"
	case v.grid.Editing():
		mode = "EDIT"
	case !v.grid.Editable():
		mode = "READONLY"
	}
	left := fmt.Sprintf(" %s | %s | %d rows ", mode, v.title, v.grid.Cache().Len())
	style := v.style.status
	if msg := v.grid.ValidationMessage(); msg != "" {
		left = fmt.Sprintf(" %s | %s ", mode, msg)
		style = v.style.errorMsg
	} else if v.status != "" {
		left = fmt.Sprintf(" %s | %s ", mode, v.status)
	}
	right := ""
	if cell, ok := v.grid.ActiveCell(); ok {
		name := ""
		if col := v.grid.Context().Column(cell.Col); col != nil {
			name = col.Name
		}
		right = fmt.Sprintf(" R%d C%d %s ", cell.Row+1, cell.Col+1, name)
	}
	clearLine(s, y, w, v.style.status)
	drawText(s, 0, y, w, composeStatusLine(left, right, w), style)
}

// HandleKey applies a key press. It returns true when the user asked to quit.
func (v *View) HandleKey(ev *tcell.EventKey) bool {
	v.status = ""
	switch {
	case v.grid.CalendarOpen():
		return v.handleCalendar(ev)
	case v.grid.Editing():
		return v.handleEdit(ev)
	default:
		return v.handleGrid(ev)
	}
}

func (v *View) handleGrid(ev *tcell.EventKey) bool {
	if key := keyString(ev); key != "" {
		if action, ok := v.keymap.grid[key]; ok {
			return v.execAction(action)
		}
	}
	if ev.Key() == tcell.KeyRune && v.grid.Editable() {
		v.report(v.grid.BeginEdit())
		if v.grid.Editing() {
			v.grid.InsertRune(ev.Rune())
		}
	}
	return false
}

func (v *View) handleEdit(ev *tcell.EventKey) bool {
	if key := keyString(ev); key != "" {
		if action, ok := v.keymap.edit[key]; ok {
			return v.execAction(action)
		}
	}
	if ev.Key() == tcell.KeyRune {
		v.grid.InsertRune(ev.Rune())
	}
	return false
}

func (v *View) handleCalendar(ev *tcell.EventKey) bool {
	if key := keyString(ev); key != "" {
		if action, ok := v.keymap.calendar[key]; ok {
			return v.execAction(action)
		}
	}
	return false
}

func (v *View) execAction(action string) bool {
	cell, _ := v.grid.ActiveCell()
	switch action {
	case "quit":
		return true
	case "move_left":
		v.report(v.grid.Move(0, -1))
	case "move_right":
		v.report(v.grid.Move(0, 1))
	case "move_up":
		v.report(v.grid.Move(-1, 0))
	case "move_down":
		v.report(v.grid.Move(1, 0))
	case "row_start":
		v.report(v.grid.Activate(cell.Row, 0))
	case "row_end":
		v.report(v.grid.Activate(cell.Row, len(v.grid.Columns())-1))
	case "page_up":
		v.report(v.grid.Move(-max(v.bodyHeight-1, 1), 0))
	case "page_down":
		v.report(v.grid.Move(max(v.bodyHeight-1, 1), 0))
	case "first_row":
		v.report(v.grid.Activate(0, cell.Col))
	case "last_row":
		v.report(v.grid.Activate(v.grid.Cache().Len()-1, cell.Col))
	case "edit":
		v.report(v.grid.BeginEdit())
	case "commit":
		v.report(v.grid.Commit())
	case "commit_right":
		v.report(v.grid.Move(0, 1))
	case "commit_up":
		v.report(v.grid.Move(-1, 0))
	case "commit_down":
		v.report(v.grid.Move(1, 0))
	case "cancel":
		v.grid.Cancel()
	case "cursor_left":
		v.grid.CursorLeft()
	case "cursor_right":
		v.grid.CursorRight()
	case "backspace":
		v.grid.Backspace()
	case "open_calendar":
		v.grid.OpenCalendar()
	case "prev_day":
		v.grid.MoveCalendar(-1)
	case "next_day":
		v.grid.MoveCalendar(1)
	case "prev_week":
		v.grid.MoveCalendar(-7)
	case "next_week":
		v.grid.MoveCalendar(7)
	case "prev_month":
		v.moveCalendarMonths(-1)
	case "next_month":
		v.moveCalendarMonths(1)
	case "pick":
		v.grid.PickDate()
	case "close":
		v.grid.CloseCalendar()
	default:
		logger.Debug("unknown action", "action", action)
	}
	return false
}

func (v *View) moveCalendarMonths(n int) {
	if ed := v.grid.Editor(); ed != nil {
		if p := ed.Popup(); p != nil {
			p.MoveMonths(n)
		}
	}
}

// report shows err in the status line. Validation errors are shown by the
// controller itself.
func (v *View) report(err error) {
	if err == nil {
		return
	}
	var verr *grid.ValidationError
	if errors.As(err, &verr) {
		return
	}
	if errors.Is(err, grid.ErrNoActiveCell) {
		v.status = "no active cell"
		return
	}
	v.status = err.Error()
}

// HandleMouse activates the clicked cell.
func (v *View) HandleMouse(ev *tcell.EventMouse) {
	switch ev.Buttons() {
	case tcell.WheelUp:
		v.report(v.grid.Move(-3, 0))
	case tcell.WheelDown:
		v.report(v.grid.Move(3, 0))
	case tcell.Button1:
		x, y := ev.Position()
		if y < 1 || y > v.bodyHeight {
			return
		}
		row := v.scrollRow + y - 1
		if row >= v.grid.Cache().Len() {
			return
		}
		for _, c := range v.columns {
			if x >= c.x && x < c.x+c.width {
				v.report(v.grid.Activate(row, c.index))
				return
			}
		}
	}
}
