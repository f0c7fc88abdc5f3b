// Package app runs the grid viewer and the model server.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/gdamore/tcell/v2"

	"github.com/kobzarvs/qgrid/internal/config"
	"github.com/kobzarvs/qgrid/internal/loader"
	"github.com/kobzarvs/qgrid/internal/logger"
	"github.com/kobzarvs/qgrid/internal/model"
	"github.com/kobzarvs/qgrid/internal/protocol"
	"github.com/kobzarvs/qgrid/internal/remote"
	"github.com/kobzarvs/qgrid/internal/session"
)

var ErrNoDataset = errors.New("no dataset and no remote model given")

// ViewOptions selects where the viewer gets its model. Remote wins over Exec,
// which wins over a local Dataset.
type ViewOptions struct {
	Dataset  string
	Remote   string
	Exec     string
	ReadOnly bool
}

// ServeOptions configures the model server.
type ServeOptions struct {
	Dataset  string
	Addr     string
	Stdio    bool
	ReadOnly bool
}

// link is an open connection to a model.
type link struct {
	transport protocol.Transport
	key       string
	close     func()
}

// View opens the grid on the terminal.
func View(ctx context.Context, cfg config.Config, opts ViewOptions) error {
	runtime.LockOSThread()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	l, err := connect(ctx, cfg, opts)
	if err != nil {
		return err
	}
	defer l.close()

	var sessions *session.Manager
	if sm, err := session.NewManager(); err == nil {
		sessions = sm
		defer sm.Stop()
	} else {
		logger.Warn("session disabled", "error", err)
	}

	s, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := s.Init(); err != nil {
		return err
	}
	s.EnableMouse()
	defer s.Fini()

	return NewViewer(cfg, s, l.transport, l.key, opts.ReadOnly, sessions).Run(ctx)
}

func connect(ctx context.Context, cfg config.Config, opts ViewOptions) (*link, error) {
	if url := opts.Remote; url != "" || (opts.Exec == "" && opts.Dataset == "" && cfg.Remote.URL != "") {
		if url == "" {
			url = cfg.Remote.URL
		}
		t, err := protocol.DialWebSocket(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("connect %s: %w", url, err)
		}
		logger.Info("connected to model", "url", url)
		return &link{transport: t, key: url, close: func() { _ = t.Close() }}, nil
	}
	if opts.Exec != "" {
		fields := strings.Fields(opts.Exec)
		if len(fields) == 0 {
			return nil, remote.ErrNoCommand
		}
		return startProcess(fields[0], fields[1:], opts.Exec)
	}
	if opts.Dataset == "" {
		return nil, ErrNoDataset
	}

	key := opts.Dataset
	if abs, err := filepath.Abs(opts.Dataset); err == nil {
		key = abs
	}
	if formats, err := config.LoadFormats(); err != nil {
		logger.Warn("formats.toml", "error", err)
	} else if cmd, args, ok := formats.ServerFor(opts.Dataset); ok {
		return startProcess(cmd, args, key)
	}
	if cfg.Remote.Command != "" {
		args := make([]string, len(cfg.Remote.Args))
		for i, a := range cfg.Remote.Args {
			args[i] = strings.ReplaceAll(a, "{file}", opts.Dataset)
		}
		return startProcess(cfg.Remote.Command, args, key)
	}

	frame, err := openFrame(opts.Dataset)
	if err != nil {
		return nil, err
	}
	gridSide, modelSide := pipePair()
	srv := NewServer(frame, true)
	go func() {
		if err := srv.Serve(ctx, modelSide); err != nil {
			logger.Warn("local model", "error", err)
		}
	}()
	return &link{transport: gridSide, key: key, close: func() { _ = modelSide.Close() }}, nil
}

func startProcess(command string, args []string, key string) (*link, error) {
	p, err := remote.Start(command, args, "")
	if err != nil {
		return nil, fmt.Errorf("start %s: %w", command, err)
	}
	return &link{transport: p.Transport(), key: key, close: p.Stop}, nil
}

// pipePair returns two connected stream transports.
func pipePair() (a, b *protocol.StreamTransport) {
	ar, bw := io.Pipe()
	br, aw := io.Pipe()
	a = protocol.NewStreamTransport(ar, aw, ar, aw)
	b = protocol.NewStreamTransport(br, bw, br, bw)
	return a, b
}

func openFrame(path string) (*model.Frame, error) {
	ds, err := loader.Load(path)
	if err != nil {
		return nil, err
	}
	logger.Info("dataset loaded", "path", path, "rows", len(ds.Records), "columns", len(ds.Columns))
	return model.NewFrame(ds.IndexName, ds.Columns, ds.Records), nil
}

// Serve shares a dataset with grids, over websocket or over stdin/stdout.
func Serve(ctx context.Context, opts ServeOptions) error {
	frame, err := openFrame(opts.Dataset)
	if err != nil {
		return err
	}
	srv := NewServer(frame, !opts.ReadOnly)
	if opts.Stdio {
		t := protocol.NewStreamTransport(os.Stdin, os.Stdout, os.Stdin)
		return srv.Serve(ctx, t)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe(ctx, opts.Addr) }()
	go func() {
		if err := srv.RunCommands(ctx, os.Stdin, os.Stdout); err != nil {
			logger.Warn("command input", "error", err)
		}
	}()
	return <-errc
}
