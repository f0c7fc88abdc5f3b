package grid

// Control is something an editor mounts into a cell container.
type Control interface {
	control()
}

// Container hosts the controls of the cell being edited.
type Container interface {
	Mount(c Control)
	Unmount(c Control)
}

// CellContainer is the container of the active cell. The view reads Controls
// to draw whatever is mounted.
type CellContainer struct {
	Row, Col int
	controls []Control
}

func (c *CellContainer) Mount(ctl Control) {
	for _, existing := range c.controls {
		if existing == ctl {
			return
		}
	}
	c.controls = append(c.controls, ctl)
}

func (c *CellContainer) Unmount(ctl Control) {
	for i, existing := range c.controls {
		if existing == ctl {
			c.controls = append(c.controls[:i], c.controls[i+1:]...)
			return
		}
	}
}

func (c *CellContainer) Controls() []Control {
	return append([]Control(nil), c.controls...)
}

// Input is a single line text buffer with a cursor.
type Input struct {
	buf      []rune
	cursor   int
	selected bool
	focused  bool
}

func (*Input) control() {}

// SetValue replaces the buffer and moves the cursor to the end.
func (in *Input) SetValue(s string) {
	in.buf = []rune(s)
	in.cursor = len(in.buf)
	in.selected = false
}

func (in *Input) Value() string {
	return string(in.buf)
}

func (in *Input) Cursor() int {
	return in.cursor
}

// Select marks the whole buffer; the next typed rune replaces it.
func (in *Input) Select() {
	in.selected = true
	in.cursor = len(in.buf)
}

func (in *Input) Selected() bool {
	return in.selected
}

func (in *Input) Focus() {
	in.focused = true
}

func (in *Input) Blur() {
	in.focused = false
}

func (in *Input) Focused() bool {
	return in.focused
}

func (in *Input) InsertRune(r rune) {
	if in.selected {
		in.buf = in.buf[:0]
		in.cursor = 0
		in.selected = false
	}
	in.buf = append(in.buf, 0)
	copy(in.buf[in.cursor+1:], in.buf[in.cursor:])
	in.buf[in.cursor] = r
	in.cursor++
}

func (in *Input) Backspace() {
	if in.selected {
		in.buf = in.buf[:0]
		in.cursor = 0
		in.selected = false
		return
	}
	if in.cursor == 0 {
		return
	}
	in.buf = append(in.buf[:in.cursor-1], in.buf[in.cursor:]...)
	in.cursor--
}

func (in *Input) Left() {
	in.selected = false
	if in.cursor > 0 {
		in.cursor--
	}
}

func (in *Input) Right() {
	in.selected = false
	if in.cursor < len(in.buf) {
		in.cursor++
	}
}
