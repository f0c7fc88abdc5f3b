package protocol

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
)

// maxFrameSize bounds the Content-Length a peer may announce.
const maxFrameSize = 64 << 20

var ErrFrameTooLarge = errors.New("frame too large")

// Transport moves whole frames. Implementations must preserve order.
type Transport interface {
	ReadFrame() ([]byte, error)
	WriteFrame(frame []byte) error
	Close() error
}

// StreamTransport frames JSON payloads with a Content-Length header over a byte
// stream, typically a child process's stdout/stdin.
type StreamTransport struct {
	reader  *bufio.Reader
	writer  io.Writer
	closers []io.Closer
	mu      sync.Mutex
	once    sync.Once
}

func NewStreamTransport(r io.Reader, w io.Writer, closers ...io.Closer) *StreamTransport {
	return &StreamTransport{
		reader:  bufio.NewReader(r),
		writer:  w,
		closers: closers,
	}
}

func (t *StreamTransport) ReadFrame() ([]byte, error) {
	return readMessage(t.reader)
}

func (t *StreamTransport) WriteFrame(frame []byte) error {
	header := fmt.Sprintf("Content-Length: %d\r\n\r\n", len(frame))
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, err := io.WriteString(t.writer, header); err != nil {
		return err
	}
	_, err := t.writer.Write(frame)
	return err
}

func (t *StreamTransport) Close() error {
	var errs []error
	t.once.Do(func() {
		for _, c := range t.closers {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	})
	return errors.Join(errs...)
}

func readMessage(r *bufio.Reader) ([]byte, error) {
	length := -1
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return nil, err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			break
		}
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			continue
		}
		if strings.ToLower(strings.TrimSpace(parts[0])) == "content-length" {
			val := strings.TrimSpace(parts[1])
			if n, err := strconv.Atoi(val); err == nil {
				length = n
			}
		}
	}
	if length < 0 {
		return nil, errors.New("missing content-length")
	}
	if length > maxFrameSize {
		return nil, fmt.Errorf("content-length %d: %w", length, ErrFrameTooLarge)
	}
	buf := make([]byte, length)
	_, err := io.ReadFull(r, buf)
	return buf, err
}
