package protocol

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/kobzarvs/qgrid/internal/logger"
)

// Channel is the asynchronous bridge between a grid and its backing model.
//
// Send never blocks and never reports failure: messages are queued and written in
// order by a single writer goroutine. Inbound frames are decoded by Run and handed
// to the deliver callback in arrival order.
type Channel struct {
	transport Transport

	mu     sync.Mutex
	queue  []Message
	closed bool

	wake       chan struct{}
	done       chan struct{}
	writerDone chan struct{}
	closeOnce  sync.Once
	closeErr   error
}

func NewChannel(t Transport) *Channel {
	c := &Channel{
		transport:  t,
		wake:       make(chan struct{}, 1),
		done:       make(chan struct{}),
		writerDone: make(chan struct{}),
	}
	go c.writeLoop()
	return c
}

// Send queues msg for delivery. Messages sent after Close are dropped.
func (c *Channel) Send(msg Message) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		logger.Warn("channel closed, dropping message", "type", msg.Type)
		return
	}
	c.queue = append(c.queue, msg)
	c.mu.Unlock()
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *Channel) writeLoop() {
	defer close(c.writerDone)
	for {
		select {
		case <-c.wake:
			c.flush()
		case <-c.done:
			c.flush()
			return
		}
	}
}

func (c *Channel) flush() {
	for {
		c.mu.Lock()
		batch := c.queue
		c.queue = nil
		c.mu.Unlock()
		if len(batch) == 0 {
			return
		}
		for _, msg := range batch {
			frame, err := Encode(msg)
			if err != nil {
				logger.Warn("encode message", "type", msg.Type, "error", err)
				continue
			}
			if err := c.transport.WriteFrame(frame); err != nil {
				logger.Warn("write message", "type", msg.Type, "error", err)
				continue
			}
			logger.Debug("sent", "type", msg.Type)
		}
	}
}

// Run reads messages until the transport ends, ctx is cancelled, or the channel is
// closed. Frames that fail to decode are skipped.
func (c *Channel) Run(ctx context.Context, deliver func(Message)) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = c.Close()
		case <-stop:
		}
	}()

	for {
		frame, err := c.transport.ReadFrame()
		if err != nil {
			if ctx.Err() != nil || c.isClosed() || isEndOfStream(err) {
				return nil
			}
			return fmt.Errorf("channel read: %w", err)
		}
		msg, err := Decode(frame)
		if err != nil {
			logger.Warn("dropping malformed message", "error", err)
			continue
		}
		logger.Debug("received", "type", msg.Type)
		deliver(msg)
	}
}

// Close flushes queued messages, then closes the transport.
func (c *Channel) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		close(c.done)
		<-c.writerDone
		c.closeErr = c.transport.Close()
	})
	return c.closeErr
}

func (c *Channel) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func isEndOfStream(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, net.ErrClosed) ||
		websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
}
