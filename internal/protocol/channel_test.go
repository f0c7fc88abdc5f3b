package protocol

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestReadMessage(t *testing.T) {
	msg := "Content-Length: 4\r\n\r\ntest"
	out, err := readMessage(bufio.NewReader(strings.NewReader(msg)))
	if err != nil {
		t.Fatalf("readMessage error: %v", err)
	}
	if string(out) != "test" {
		t.Fatalf("readMessage = %q, want %q", string(out), "test")
	}
}

func TestReadMessageMissingLength(t *testing.T) {
	_, err := readMessage(bufio.NewReader(strings.NewReader("X-Other: 1\r\n\r\nbody")))
	if err == nil {
		t.Fatalf("readMessage without content-length succeeded")
	}
}

func TestReadMessageRejectsOversizedFrame(t *testing.T) {
	msg := fmt.Sprintf("Content-Length: %d\r\n\r\n{}", maxFrameSize+1)
	_, err := readMessage(bufio.NewReader(strings.NewReader(msg)))
	if !errors.Is(err, ErrFrameTooLarge) {
		t.Fatalf("readMessage error = %v, want %v", err, ErrFrameTooLarge)
	}
}

func TestStreamTransportRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewStreamTransport(strings.NewReader(""), &buf)
	if err := w.WriteFrame([]byte(`{"type":"remove_row"}`)); err != nil {
		t.Fatalf("WriteFrame error: %v", err)
	}
	if err := w.WriteFrame([]byte(`{"type":"add_row"}`)); err != nil {
		t.Fatalf("WriteFrame error: %v", err)
	}
	r := NewStreamTransport(&buf, io.Discard)
	first, err := r.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame error: %v", err)
	}
	second, err := r.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame error: %v", err)
	}
	if string(first) != `{"type":"remove_row"}` || string(second) != `{"type":"add_row"}` {
		t.Fatalf("frames = %q, %q", first, second)
	}
	if _, err := r.ReadFrame(); err != io.EOF {
		t.Fatalf("ReadFrame at end = %v, want EOF", err)
	}
}

func pipePair() (*StreamTransport, *StreamTransport) {
	aToB, aWriter := io.Pipe()
	bToA, bWriter := io.Pipe()
	a := NewStreamTransport(bToA, aWriter, aWriter, bToA)
	b := NewStreamTransport(aToB, bWriter, bWriter, aToB)
	return a, b
}

func TestChannelPreservesOrder(t *testing.T) {
	ta, tb := pipePair()
	sender := NewChannel(ta)
	receiver := NewChannel(tb)

	got := make(chan Message, 64)
	runErr := make(chan error, 1)
	go func() {
		runErr <- receiver.Run(context.Background(), func(m Message) { got <- m })
	}()

	const n = 40
	for i := 0; i < n; i++ {
		sender.Send(CellChange(i, "c", i))
	}
	if err := sender.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	for i := 0; i < n; i++ {
		select {
		case m := <-got:
			if m.Type != TypeCellChange || m.Row != i {
				t.Fatalf("message %d = %+v", i, m)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for message %d", i)
		}
	}
	select {
	case err := <-runErr:
		if err != nil {
			t.Fatalf("Run error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not stop at end of stream")
	}
	_ = receiver.Close()
}

func TestChannelSkipsMalformedFrames(t *testing.T) {
	ta, tb := pipePair()
	receiver := NewChannel(tb)
	got := make(chan Message, 8)
	go func() {
		_ = receiver.Run(context.Background(), func(m Message) { got <- m })
	}()

	for _, frame := range []string{`garbage`, `{"row":1}`, `{"type":"remove_row"}`} {
		if err := ta.WriteFrame([]byte(frame)); err != nil {
			t.Fatalf("WriteFrame error: %v", err)
		}
	}
	select {
	case m := <-got:
		if m.Type != TypeRemoveRow {
			t.Fatalf("first delivered = %+v, want remove_row", m)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out")
	}
	_ = ta.Close()
	_ = receiver.Close()
}

func TestChannelSendAfterCloseIsDropped(t *testing.T) {
	var buf bytes.Buffer
	c := NewChannel(NewStreamTransport(strings.NewReader(""), &buf))
	c.Send(RemoveRowDirective())
	if err := c.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	c.Send(RemoveRowDirective())
	if n := strings.Count(buf.String(), "Content-Length"); n != 1 {
		t.Fatalf("frames written = %d, want 1", n)
	}
}

func TestChannelRunStopsOnCancel(t *testing.T) {
	_, tb := pipePair()
	c := NewChannel(tb)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx, func(Message) {}) }()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run ignored cancellation")
	}
}

func TestWebSocketTransport(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		ch := NewChannel(NewWebSocketTransport(conn))
		_ = ch.Run(r.Context(), func(m Message) {
			if m.Type == TypeAddRow {
				ch.Send(m)
			}
		})
		_ = ch.Close()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	tr, err := DialWebSocket(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"))
	if err != nil {
		t.Fatalf("DialWebSocket error: %v", err)
	}
	client := NewChannel(tr)
	got := make(chan Message, 1)
	go func() { _ = client.Run(ctx, func(m Message) { got <- m }) }()

	client.Send(AddRow(map[string]any{"name": "X"}))
	select {
	case m := <-got:
		if m.Type != TypeAddRow || m.Fields["name"] != "X" {
			t.Fatalf("echo = %+v", m)
		}
	case <-ctx.Done():
		t.Fatalf("timed out waiting for echo")
	}
	_ = client.Close()
}
