package logcat

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
)

// Recorder captures the entire logcat stream into memory for later
// offline search. It runs a dedicated subprocess, independent of any
// Monitor, and is never resynchronized: recording ends when
// StopRecording kills the process.
type Recorder struct {
	control ControlChannel
	spawner Spawner

	proc Process
	done chan struct{}

	mu  sync.Mutex
	buf bytes.Buffer
}

func NewRecorder(control ControlChannel, spawner Spawner) *Recorder {
	return &Recorder{control: control, spawner: spawner}
}

// StartRecording spawns the log reader and starts copying everything it
// emits into the in-memory buffer. With clear set the existing device
// log is cleared first.
func (r *Recorder) StartRecording(clear bool, filters []string) error {
	if r.proc != nil {
		return errors.New("logcat: recording already active")
	}
	if clear {
		if _, err := r.control.Shell("logcat -c"); err != nil {
			slog.Warn("clearing device log failed", "error", err)
		}
	}
	if len(filters) == 0 {
		filters = DefaultFilters
	}
	args := append([]string{"logcat", "-v", "threadtime"}, filters...)
	proc, err := r.spawner.SpawnLogcat(args)
	if err != nil {
		return fmt.Errorf("spawning logcat: %w", err)
	}
	r.proc = proc
	r.buf.Reset()
	r.done = make(chan struct{})
	go r.capture(proc)
	return nil
}

func (r *Recorder) capture(proc Process) {
	defer close(r.done)
	buf := make([]byte, 8192)
	for {
		n, err := proc.Output().Read(buf)
		if n > 0 {
			r.mu.Lock()
			r.buf.Write(buf[:n])
			r.mu.Unlock()
		}
		if err != nil {
			return
		}
	}
}

// StopRecording force-kills the recording subprocess and returns
// everything captured so far. Returns nil when no recording was active.
// The kill is deliberate: log readers do not reliably exit on their
// own.
func (r *Recorder) StopRecording() []byte {
	if r.proc == nil {
		return nil
	}
	_ = r.proc.Kill()
	<-r.done
	r.proc = nil

	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]byte, r.buf.Len())
	copy(out, r.buf.Bytes())
	return out
}

// Entry is one parsed threadtime log line.
type Entry struct {
	ThreadID  string
	ProcID    string
	LogLevel  string
	Component string
	Message   string
}

// SearchFilter narrows SearchRecord results. Empty fields match
// anything; a set field must equal the parsed value exactly.
type SearchFilter struct {
	ThreadID  string
	ProcID    string
	LogLevel  string
	Component string
}

var recordLineRE = regexp.MustCompile(`(\d+)\s+(\d+)\s+([A-Z])\s+([A-Za-z]+)\s*:(.*)`)

// SearchRecord scans a recorded capture for entries whose message
// contains message as a substring and whose fields satisfy the filter.
// Lines that do not fit the threadtime grammar are skipped silently.
func SearchRecord(record []byte, message string, filter SearchFilter) []Entry {
	var results []Entry
	for _, line := range strings.Split(string(record), "\n") {
		m := recordLineRE.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		e := Entry{
			ThreadID:  m[1],
			ProcID:    m[2],
			LogLevel:  m[3],
			Component: m[4],
			Message:   m[5],
		}
		if !strings.Contains(e.Message, message) {
			continue
		}
		if filter.ThreadID != "" && filter.ThreadID != e.ThreadID {
			continue
		}
		if filter.ProcID != "" && filter.ProcID != e.ProcID {
			continue
		}
		if filter.LogLevel != "" && filter.LogLevel != e.LogLevel {
			continue
		}
		if filter.Component != "" && filter.Component != e.Component {
			continue
		}
		results = append(results, e)
	}
	return results
}
