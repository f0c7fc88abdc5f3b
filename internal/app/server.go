package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kobzarvs/qgrid/internal/loader"
	"github.com/kobzarvs/qgrid/internal/logger"
	"github.com/kobzarvs/qgrid/internal/model"
	"github.com/kobzarvs/qgrid/internal/protocol"
)

// Server shares one Frame with every connected grid.
type Server struct {
	frame    *model.Frame
	editable bool
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*protocol.Channel]struct{}
}

func NewServer(frame *model.Frame, editable bool) *Server {
	return &Server{
		frame:    frame,
		editable: editable,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[*protocol.Channel]struct{}),
	}
}

// Frame returns the shared model.
func (s *Server) Frame() *model.Frame {
	return s.frame
}

// Clients returns the number of connected grids.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Serve sends the setup handshake over t and applies what the grid sends back
// until the transport ends or ctx is done.
func (s *Server) Serve(ctx context.Context, t protocol.Transport) error {
	ch := protocol.NewChannel(t)
	s.mu.Lock()
	s.clients[ch] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.clients, ch)
		s.mu.Unlock()
		_ = ch.Close()
	}()

	ch.Send(s.frame.SetupMessage(s.editable))
	logger.Info("grid connected", "rows", s.frame.Len())
	err := ch.Run(ctx, s.frame.HandleMessage)
	logger.Info("grid disconnected")
	return err
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade", "error", err)
		return
	}
	if err := s.Serve(r.Context(), protocol.NewWebSocketTransport(conn)); err != nil {
		logger.Warn("websocket session", "remote", r.RemoteAddr, "error", err)
	}
}

// Broadcast queues msg for every connected grid.
func (s *Server) Broadcast(msg protocol.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.clients {
		ch.Send(msg)
	}
}

// AddRow appends a copy of the last record and tells the grids about it.
func (s *Server) AddRow() error {
	msg, err := s.frame.AddRow()
	if err != nil {
		return err
	}
	s.Broadcast(msg)
	return nil
}

// RemoveRow asks the grids to delete their active row. The frame changes when
// a grid confirms.
func (s *Server) RemoveRow() {
	s.Broadcast(s.frame.RemoveRow())
}

// WriteJSON dumps the current frame as a dataset table.
func (s *Server) WriteJSON(w io.Writer) error {
	ds := &loader.Dataset{
		IndexName: s.frame.IndexName(),
		Columns:   s.frame.Columns(),
		Records:   s.frame.Records(),
	}
	return ds.WriteJSON(w)
}

// RunCommands reads operator commands from r, one per line, until EOF or
// ctx is done.
func (s *Server) RunCommands(ctx context.Context, r io.Reader, w io.Writer) error {
	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		errc <- sc.Err()
	}()
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errc:
			return err
		case line := <-lines:
			if err := s.command(strings.TrimSpace(line), w); err != nil {
				fmt.Fprintln(w, "error:", err)
			}
		}
	}
}

func (s *Server) command(line string, w io.Writer) error {
	switch line {
	case "":
		return nil
	case "add", "add_row":
		return s.AddRow()
	case "remove", "remove_row":
		s.RemoveRow()
		return nil
	case "print", "show":
		return s.WriteJSON(w)
	case "clients":
		fmt.Fprintln(w, s.Clients())
		return nil
	case "help":
		fmt.Fprintln(w, "commands: add, remove, print, clients, help")
		return nil
	default:
		return fmt.Errorf("unknown command %q", line)
	}
}

// ListenAndServe serves websocket grids on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.serveListener(ctx, ln)
}

func (s *Server) serveListener(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		// Hijacked websocket sessions end with ctx, not with Shutdown.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	logger.Info("model server listening", "addr", ln.Addr().String())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
