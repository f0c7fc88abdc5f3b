package view

import (
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/kobzarvs/qgrid/internal/config"
	"github.com/kobzarvs/qgrid/internal/grid"
	"github.com/kobzarvs/qgrid/internal/protocol"
)

type recorder struct {
	sent []protocol.Message
}

func (r *recorder) Send(msg protocol.Message) {
	r.sent = append(r.sent, msg)
}

func newTestView(t *testing.T) (*View, *grid.Controller, *recorder) {
	t.Helper()
	rec := &recorder{}
	c := grid.NewController(rec, grid.Options{
		LockIndexColumn: true,
		Now:             func() time.Time { return time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC) },
	})
	columns := []protocol.ColumnSpec{
		{Field: "Index", Type: "integer"},
		{Field: "name", Type: "object"},
		{Field: "qty", Type: "float64"},
		{Field: "day", Type: "datetime"},
	}
	rows := []*grid.Row{
		{ID: 1, Values: map[string]any{"Index": float64(0), "name": "apple", "qty": float64(3), "day": "2024-01-15"}},
		{ID: 2, Values: map[string]any{"Index": float64(1), "name": "pear", "qty": 2.5, "day": nil}},
	}
	if err := c.Setup(rows, columns, true); err != nil {
		t.Fatalf("Setup error: %v", err)
	}
	v := New(config.Default(), c)
	v.SetTitle("fruit.json")
	return v, c, rec
}

func newScreen(t *testing.T, w, h int) tcell.SimulationScreen {
	t.Helper()
	s := tcell.NewSimulationScreen("UTF-8")
	if err := s.Init(); err != nil {
		t.Fatalf("screen Init error: %v", err)
	}
	s.SetSize(w, h)
	t.Cleanup(s.Fini)
	return s
}

func screenLine(s tcell.Screen, y int) string {
	w, _ := s.Size()
	var b strings.Builder
	for x := 0; x < w; x++ {
		r, _, _, _ := s.GetContent(x, y)
		b.WriteRune(r)
	}
	return b.String()
}

func screenText(s tcell.Screen) string {
	_, h := s.Size()
	lines := make([]string, h)
	for y := range lines {
		lines[y] = screenLine(s, y)
	}
	return strings.Join(lines, "\n")
}

func key(k tcell.Key) *tcell.EventKey {
	return tcell.NewEventKey(k, 0, tcell.ModNone)
}

func runeKey(r rune) *tcell.EventKey {
	return tcell.NewEventKey(tcell.KeyRune, r, tcell.ModNone)
}

func TestRenderShowsHeaderAndCells(t *testing.T) {
	v, _, _ := newTestView(t)
	s := newScreen(t, 80, 10)
	v.Render(s)

	header := screenLine(s, 0)
	for _, name := range []string{"Index", "name", "qty", "day"} {
		if !strings.Contains(header, name) {
			t.Fatalf("header = %q, missing %q", header, name)
		}
	}
	if line := screenLine(s, 2); !strings.Contains(line, "pear") || !strings.Contains(line, "2.5") {
		t.Fatalf("row 2 = %q", line)
	}
	status := screenLine(s, 9)
	if !strings.Contains(status, "GRID") || !strings.Contains(status, "fruit.json") || !strings.Contains(status, "R1 C2 name") {
		t.Fatalf("status = %q", status)
	}
}

func TestTypingCommitsThroughController(t *testing.T) {
	v, c, rec := newTestView(t)
	v.HandleKey(key(tcell.KeyRight))
	if cell, _ := c.ActiveCell(); cell.Col != 2 {
		t.Fatalf("active col = %d, want 2", cell.Col)
	}
	v.HandleKey(runeKey('7'))
	if !c.Editing() {
		t.Fatalf("typing did not open an editor")
	}
	if got := c.Editor().Input().Value(); got != "7" {
		t.Fatalf("buffer = %q, want %q", got, "7")
	}
	if quit := v.HandleKey(key(tcell.KeyEnter)); quit {
		t.Fatalf("enter asked to quit")
	}
	if c.Editing() {
		t.Fatalf("editor still open after commit")
	}
	if len(rec.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(rec.sent))
	}
	msg := rec.sent[0]
	if msg.Type != protocol.TypeCellChange || msg.Row != 0 || msg.Column != "qty" || msg.Value != "7" {
		t.Fatalf("message = %+v", msg)
	}
}

func TestInvalidNumberShowsError(t *testing.T) {
	v, c, rec := newTestView(t)
	s := newScreen(t, 80, 6)
	v.HandleKey(key(tcell.KeyRight))
	v.HandleKey(runeKey('x'))
	v.HandleKey(key(tcell.KeyEnter))
	if !c.Editing() {
		t.Fatalf("rejected value closed the editor")
	}
	if len(rec.sent) != 0 {
		t.Fatalf("sent %d messages, want 0", len(rec.sent))
	}
	v.Render(s)
	if status := screenLine(s, 5); !strings.Contains(status, c.ValidationMessage()) {
		t.Fatalf("status = %q, want %q", status, c.ValidationMessage())
	}
	v.HandleKey(key(tcell.KeyEscape))
	if c.Editing() || c.ValidationMessage() != "" {
		t.Fatalf("esc left editor open or message set")
	}
}

func TestCalendarPopupFlow(t *testing.T) {
	v, c, rec := newTestView(t)
	s := newScreen(t, 80, 16)
	v.HandleKey(key(tcell.KeyEnd))
	v.HandleKey(key(tcell.KeyEnter))
	v.HandleKey(tcell.NewEventKey(tcell.KeyCtrlD, 0, tcell.ModCtrl))
	if !c.CalendarOpen() {
		t.Fatalf("calendar not open")
	}
	v.Render(s)
	text := screenText(s)
	if !strings.Contains(text, "January 2024") || !strings.Contains(text, "Mo Tu We") {
		t.Fatalf("calendar not drawn:\n%s", text)
	}
	if status := screenLine(s, 15); !strings.Contains(status, "CALENDAR") {
		t.Fatalf("status = %q", status)
	}
	top, left := c.Editor().Popup().Position()
	if top != 2 || left != v.cellX(3) {
		t.Fatalf("popup at %d,%d", top, left)
	}

	v.HandleKey(key(tcell.KeyDown))
	v.HandleKey(key(tcell.KeyPgDn))
	v.HandleKey(key(tcell.KeyEnter))
	if c.CalendarOpen() {
		t.Fatalf("calendar still open after pick")
	}
	v.HandleKey(key(tcell.KeyEnter))
	if len(rec.sent) != 1 || rec.sent[0].Value != "2024-02-22" {
		t.Fatalf("sent = %+v", rec.sent)
	}
}

func TestCalendarHiddenWhileCellOffScreen(t *testing.T) {
	v, c, _ := newTestView(t)
	if err := c.Activate(0, 3); err != nil {
		t.Fatalf("Activate error: %v", err)
	}
	if err := c.BeginEdit(); err != nil {
		t.Fatalf("BeginEdit error: %v", err)
	}
	c.OpenCalendar()

	// No body rows fit on a two-line screen.
	s := newScreen(t, 80, 2)
	v.Render(s)
	popup := c.Editor().Popup()
	if popup.Visible() {
		t.Fatalf("popup visible while its cell is off screen")
	}
	if !c.CalendarOpen() {
		t.Fatalf("hiding the popup closed it")
	}

	s.SetSize(80, 16)
	v.Render(s)
	if !popup.Visible() {
		t.Fatalf("popup not shown again")
	}
	if top, _ := popup.Position(); top != 2 {
		t.Fatalf("popup top = %d, want 2", top)
	}
}

func TestQuitKey(t *testing.T) {
	v, _, _ := newTestView(t)
	if !v.HandleKey(runeKey('q')) {
		t.Fatalf("q did not quit")
	}
}

func TestMouseClickActivatesCell(t *testing.T) {
	v, c, _ := newTestView(t)
	s := newScreen(t, 80, 10)
	v.Render(s)
	v.HandleMouse(tcell.NewEventMouse(v.cellX(2)+1, 2, tcell.Button1, tcell.ModNone))
	if cell, _ := c.ActiveCell(); cell != (grid.Cell{Row: 1, Col: 2}) {
		t.Fatalf("active cell = %+v", cell)
	}
}

func TestKeyString(t *testing.T) {
	tests := []struct {
		ev   *tcell.EventKey
		want string
	}{
		{key(tcell.KeyEnter), "enter"},
		{key(tcell.KeyTab), "tab"},
		{key(tcell.KeyBackspace2), "backspace"},
		{key(tcell.KeyEscape), "esc"},
		{tcell.NewEventKey(tcell.KeyCtrlD, 0, tcell.ModCtrl), "ctrl+d"},
		{runeKey(' '), "space"},
		{runeKey('G'), "G"},
		{key(tcell.KeyPgDn), "pgdn"},
	}
	for _, tt := range tests {
		if got := keyString(tt.ev); got != tt.want {
			t.Fatalf("keyString(%v) = %q, want %q", tt.ev.Name(), got, tt.want)
		}
	}
}

func TestFitCell(t *testing.T) {
	if got := fitCell("banana", 4); got != "ban…" {
		t.Fatalf("fitCell = %q, want %q", got, "ban…")
	}
	if got := fitCell("ab", 4); got != "ab  " {
		t.Fatalf("fitCell = %q, want %q", got, "ab  ")
	}
	if got := composeStatusLine("left", "right", 12); got != "left   right" {
		t.Fatalf("composeStatusLine = %q", got)
	}
}
