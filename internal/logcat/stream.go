// Package logcat drives the device's continuous system log stream. It
// spawns the log-reader subcommand of the bridge tool, reads its output
// line by line, and lets callers block until a pattern shows up
// (Monitor) or capture the whole stream for offline search (Recorder).
package logcat

import (
	"bufio"
	"errors"
	"io"
	"strings"
	"sync"
	"time"
)

// ErrReadTimeout is returned by ReadLine when no complete line arrived
// within the given timeout. The reader remains usable afterwards.
var ErrReadTimeout = errors.New("logcat: read timeout")

// LineReader turns the raw byte stream of a pty-backed logcat process
// into complete text lines. The local pty layer translates "\n" to
// "\r\n", and adb already runs the device stream through its own pty,
// so lines typically arrive terminated as "\r\r\n". All trailing
// carriage returns are stripped so callers only ever see bare lines.
//
// A LineReader is not restartable: once the underlying stream ends it
// reports io.EOF forever, and a fresh reader over a fresh subprocess is
// required.
type LineReader struct {
	lines chan string
	done  chan struct{}
	once  sync.Once
}

// NewLineReader starts reading from r in the background. Reading stops
// when r reports an error or the reader is closed.
func NewLineReader(r io.Reader) *LineReader {
	lr := &LineReader{
		lines: make(chan string),
		done:  make(chan struct{}),
	}
	go lr.pump(r)
	return lr
}

func (lr *LineReader) pump(r io.Reader) {
	defer close(lr.lines)
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if err != nil {
			// A trailing fragment without a newline is dropped: logcat
			// entries are newline terminated, so a partial line at end
			// of stream never holds a complete entry.
			return
		}
		select {
		case lr.lines <- normalizeLine(line):
		case <-lr.done:
			return
		}
	}
}

// normalizeLine strips the line terminator, collapsing "\r\r\n", "\r\n"
// and "\n" alike to nothing. Doubled pty translation is what produces
// the "\r\r\n" form.
func normalizeLine(line string) string {
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimRight(line, "\r")
}

// ReadLine returns the next complete line, ErrReadTimeout when the
// timeout elapses first, or io.EOF when the stream has ended.
func (lr *LineReader) ReadLine(timeout time.Duration) (string, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case line, ok := <-lr.lines:
		if !ok {
			return "", io.EOF
		}
		return line, nil
	case <-timer.C:
		return "", ErrReadTimeout
	}
}

// Close releases the background reader. It does not close the
// underlying stream; the owner of the subprocess does that by killing
// it.
func (lr *LineReader) Close() {
	lr.once.Do(func() { close(lr.done) })
}
