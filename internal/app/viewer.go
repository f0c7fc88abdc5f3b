package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gdamore/tcell/v2"

	"github.com/kobzarvs/qgrid/internal/config"
	"github.com/kobzarvs/qgrid/internal/grid"
	"github.com/kobzarvs/qgrid/internal/logger"
	"github.com/kobzarvs/qgrid/internal/protocol"
	"github.com/kobzarvs/qgrid/internal/session"
	"github.com/kobzarvs/qgrid/internal/view"
)

var errModelClosed = errors.New("model closed the connection before sending a grid")

// channelDone is posted when the channel reader stops.
type channelDone struct {
	err error
}

// Viewer runs one grid on a screen. Everything that touches the grid happens
// on the goroutine that calls Run.
type Viewer struct {
	screen   tcell.Screen
	channel  *protocol.Channel
	grid     *grid.Controller
	view     *view.View
	sessions *session.Manager
	key      string
	readOnly bool
	ready    bool

	mu    sync.Mutex
	inbox []any
}

// NewViewer wires a grid to t. key names the dataset in the session file;
// sessions may be nil.
func NewViewer(cfg config.Config, s tcell.Screen, t protocol.Transport, key string, readOnly bool, sessions *session.Manager) *Viewer {
	ch := protocol.NewChannel(t)
	ctl := grid.NewController(ch, grid.Options{
		DateLayout:      cfg.Grid.DateLayout,
		LockIndexColumn: cfg.Grid.LockIndex(),
	})
	v := &Viewer{
		screen:   s,
		channel:  ch,
		grid:     ctl,
		view:     view.New(cfg, ctl),
		sessions: sessions,
		key:      key,
		readOnly: readOnly || !cfg.Grid.IsEditable(),
	}
	v.view.SetTitle(key)
	v.view.SetStatus("waiting for model")
	return v
}

// post hands x to the loop. A dropped wakeup is harmless because the inbox is
// drained after every event.
func (v *Viewer) post(x any) {
	v.mu.Lock()
	v.inbox = append(v.inbox, x)
	v.mu.Unlock()
	_ = v.screen.PostEvent(tcell.NewEventInterrupt(nil))
}

func (v *Viewer) drain() []any {
	v.mu.Lock()
	defer v.mu.Unlock()
	items := v.inbox
	v.inbox = nil
	return items
}

// Run reads model messages and screen events until the user quits, ctx is
// done, or the model goes away before the handshake.
func (v *Viewer) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer func() {
		v.saveState()
		_ = v.channel.Close()
	}()

	go func() {
		err := v.channel.Run(ctx, func(msg protocol.Message) { v.post(msg) })
		v.post(channelDone{err: err})
	}()
	go func() {
		<-ctx.Done()
		_ = v.screen.PostEvent(tcell.NewEventInterrupt(ctx))
	}()

	v.view.Render(v.screen)
	for {
		ev := v.screen.PollEvent()
		if ev == nil {
			return nil
		}
		switch ev := ev.(type) {
		case *tcell.EventKey:
			if v.view.HandleKey(ev) {
				return nil
			}
		case *tcell.EventMouse:
			v.view.HandleMouse(ev)
		case *tcell.EventResize:
			v.screen.Sync()
		case *tcell.EventInterrupt:
			if ev.Data() == ctx {
				return nil
			}
		}
		for _, item := range v.drain() {
			if err := v.apply(item); err != nil {
				return err
			}
		}
		v.view.Render(v.screen)
	}
}

func (v *Viewer) apply(item any) error {
	switch x := item.(type) {
	case protocol.Message:
		if x.Type == protocol.TypeSetup && x.Setup != nil {
			setup := *x.Setup
			if v.readOnly {
				setup.Editable = false
			}
			x.Setup = &setup
		}
		if err := v.grid.HandleMessage(x); err != nil {
			logger.Warn("message rejected", "type", x.Type, "error", err)
			v.view.SetStatus(fmt.Sprintf("%s: %v", x.Type, err))
			return nil
		}
		if x.Type == protocol.TypeSetup {
			v.ready = true
			v.view.SetStatus("")
			v.restoreState()
		}
	case channelDone:
		if !v.ready {
			if x.err != nil {
				return fmt.Errorf("model: %w", x.err)
			}
			return errModelClosed
		}
		if x.err != nil {
			logger.Warn("model connection lost", "error", x.err)
		}
		v.view.SetStatus("model disconnected")
	}
	return nil
}

func (v *Viewer) restoreState() {
	if v.sessions == nil || v.key == "" {
		return
	}
	state, ok := v.sessions.GridState(v.key)
	if !ok {
		return
	}
	row := state.ActiveRow
	if state.RowID != "" {
		if i := v.grid.Cache().IndexOf(state.RowID); i >= 0 {
			row = i
		}
	}
	if err := v.grid.Activate(row, state.ActiveCol); err != nil {
		return
	}
	v.view.SetScroll(state.ScrollRow, state.ScrollCol)
}

func (v *Viewer) saveState() {
	if v.sessions == nil || v.key == "" || !v.ready {
		return
	}
	cell, ok := v.grid.ActiveCell()
	if !ok {
		return
	}
	scrollRow, scrollCol := v.view.Scroll()
	state := session.GridState{
		ActiveRow: cell.Row,
		ActiveCol: cell.Col,
		ScrollRow: scrollRow,
		ScrollCol: scrollCol,
	}
	if row := v.grid.Cache().Item(cell.Row); row != nil {
		state.RowID = grid.FormatValue(row.ID)
	}
	v.sessions.SetGridState(v.key, state)
}
