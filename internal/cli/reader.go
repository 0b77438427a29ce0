package cli

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
)

// ErrInputCancelled is returned when input is canceled by context.
var ErrInputCancelled = errors.New("input canceled")

// ErrInputClosed is returned when the input stream ends before a line is read.
var ErrInputClosed = errors.New("input terminated")

// LineReader reads answers line by line while honoring context
// cancellation. A single goroutine owns the underlying reader, so a line
// typed after a canceled read is handed to the next ReadLine.
type LineReader struct {
	reader *bufio.Reader
	lines  chan string
	// err is the terminal read error, set before lines is closed.
	err   error
	start sync.Once
}

// NewLineReader creates a LineReader over reader.
func NewLineReader(reader io.Reader) *LineReader {
	if reader == nil {
		panic("reader cannot be nil")
	}

	return &LineReader{
		reader: bufio.NewReader(reader),
		lines:  make(chan string),
	}
}

func (r *LineReader) pump() {
	defer close(r.lines)
	for {
		line, err := r.reader.ReadString('\n')
		if line != "" && (err == nil || errors.Is(err, io.EOF)) {
			r.lines <- line
		}
		if errors.Is(err, io.EOF) {
			r.err = ErrInputClosed
			return
		}
		if err != nil {
			r.err = err
			return
		}
	}
}

// ReadLine returns the next line with surrounding whitespace trimmed. A final
// line without a trailing newline is returned as-is; after that, or on an
// empty stream, ReadLine yields ErrInputClosed.
func (r *LineReader) ReadLine(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", ErrInputCancelled
	}
	r.start.Do(func() { go r.pump() })

	select {
	case <-ctx.Done():
		return "", ErrInputCancelled
	case line, ok := <-r.lines:
		if !ok {
			return "", r.err
		}
		return strings.TrimSpace(line), nil
	}
}
