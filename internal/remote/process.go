// Package remote runs the backing model as a child process.
package remote

import (
	"bufio"
	"errors"
	"io"
	"os/exec"
	"sync"

	"github.com/kobzarvs/qgrid/internal/logger"
	"github.com/kobzarvs/qgrid/internal/protocol"
)

var ErrNoCommand = errors.New("no model command configured")

// Process is a running model command. Messages travel over its stdin and
// stdout as Content-Length framed JSON.
type Process struct {
	name      string
	cmd       *exec.Cmd
	transport *protocol.StreamTransport
	stopOnce  sync.Once
}

// Start launches command with args.
func Start(command string, args []string, dir string) (*Process, error) {
	if command == "" {
		return nil, ErrNoCommand
	}
	cmd := exec.Command(command, args...)
	cmd.Dir = dir
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	p := &Process{
		name:      command,
		cmd:       cmd,
		transport: protocol.NewStreamTransport(stdout, stdin, stdin),
	}
	go p.logStderr(stderr)
	logger.Info("model process started", "command", command, "pid", cmd.Process.Pid)
	return p, nil
}

// Transport returns the framed stream over the process pipes.
func (p *Process) Transport() protocol.Transport {
	return p.transport
}

func (p *Process) logStderr(r io.Reader) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		logger.Debug("model stderr", "command", p.name, "line", sc.Text())
	}
}

// Stop closes the pipes and kills the process.
func (p *Process) Stop() {
	p.stopOnce.Do(func() {
		_ = p.transport.Close()
		if p.cmd == nil || p.cmd.Process == nil {
			return
		}
		_ = p.cmd.Process.Kill()
		_ = p.cmd.Wait()
		logger.Info("model process stopped", "command", p.name)
	})
}
