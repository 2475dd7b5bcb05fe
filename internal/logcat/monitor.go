package logcat

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ControlChannel executes a shell command on the device and returns its
// captured output. It is the side channel used to clear the device log
// and to write the synchronization marker. adb.Bridge implements it.
type ControlChannel interface {
	Shell(cmd string) (string, error)
}

// Process is a running log-reader subprocess. Kill must terminate it
// forcefully; logcat does not reliably exit on its own.
type Process interface {
	Output() io.Reader
	Kill() error
}

// Spawner launches the log-reader subcommand with the given arguments
// (output format plus filter specs) and hands back the live process.
type Spawner interface {
	SpawnLogcat(args []string) (Process, error)
}

const (
	syncAttempts = 4
	syncTimeout  = 10 * time.Second
)

// DefaultTimeout bounds WaitForLogMatch when the caller passes a zero
// timeout.
const DefaultTimeout = 10 * time.Second

// DefaultFilters matches everything at verbose level and above.
var DefaultFilters = []string{"*:v"}

// Monitor owns a single live logcat session: the subprocess, its line
// reader, and the arguments needed to respawn it. A device connection
// supports one log consumer at a time, so never run a Monitor and a
// Recorder against the same device simultaneously.
//
// A Monitor is not safe for concurrent callers. Overlapping
// WaitForLogMatch calls are a precondition violation: the session is
// single-reader by design.
type Monitor struct {
	control ControlChannel
	spawner Spawner

	args   []string
	proc   Process
	reader *LineReader
}

// NewMonitor returns an unstarted Monitor. The first WaitForLogMatch
// call starts it implicitly if StartMonitoring was never called.
func NewMonitor(control ControlChannel, spawner Spawner) *Monitor {
	return &Monitor{control: control, spawner: spawner}
}

// StartMonitoring spawns the log reader and synchronizes with it: a
// unique marker is written to the device log over the control channel,
// and the new stream must echo the marker back, proving it is
// delivering fresh output. The spawn-and-sync cycle is attempted up to
// four times; after that a *SyncError is returned and the session must
// be considered unusable.
//
// With clear set, the existing device log is cleared first so stale
// lines cannot satisfy a later wait.
func (m *Monitor) StartMonitoring(clear bool, filters []string) error {
	m.kill()
	if clear {
		// Fire and forget: a failed clear only risks matching stale output.
		if _, err := m.control.Shell("logcat -c"); err != nil {
			slog.Warn("clearing device log failed", "error", err)
		}
	}
	if len(filters) == 0 {
		filters = DefaultFilters
	}
	args := append([]string{"logcat", "-v", "threadtime"}, filters...)

	marker := "startup_sync_" + uuid.NewString()
	for attempt := 1; attempt <= syncAttempts; attempt++ {
		if err := m.spawn(args); err != nil {
			return fmt.Errorf("spawning logcat: %w", err)
		}
		if _, err := m.control.Shell("log " + marker); err != nil {
			slog.Warn("writing sync marker failed", "attempt", attempt, "error", err)
		}
		if m.awaitMarker(marker) {
			m.args = args
			return nil
		}
		m.kill()
		slog.Warn("logcat did not deliver sync marker", "attempt", attempt)
	}
	return &SyncError{Attempts: syncAttempts, Marker: marker}
}

// awaitMarker reads lines until the marker shows up, the stream ends,
// or the handshake timeout elapses.
func (m *Monitor) awaitMarker(marker string) bool {
	deadline := time.Now().Add(syncTimeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return false
		}
		line, err := m.reader.ReadLine(remaining)
		if err != nil {
			return false
		}
		if strings.Contains(line, marker) {
			return true
		}
	}
}

// WaitForLogMatch blocks until a line matches one of the patterns or
// the timeout elapses. The timeout is wall-clock, measured from call
// entry, and is recomputed before every line read so slow reads cannot
// overshoot it.
//
// Returns the success captures on a match. Returns (nil, nil) when the
// error pattern matched first: a negative but non-exceptional outcome.
// On expiry the error is a *TimeoutError naming the awaited pattern.
//
// An unexpected end of stream is absorbed by respawning the subprocess
// with the original arguments; the caller's time budget keeps running
// across the resync and no error is surfaced unless the respawn itself
// fails.
func (m *Monitor) WaitForLogMatch(success, errPattern *regexp.Regexp, timeout time.Duration) ([]string, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	deadline := time.Now().Add(timeout)
	slog.Info("waiting for logcat match", "pattern", success.String())
	if m.reader == nil {
		if err := m.StartMonitoring(false, nil); err != nil {
			return nil, err
		}
	}
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, &TimeoutError{Pattern: success.String(), Timeout: timeout}
		}
		line, err := m.reader.ReadLine(remaining)
		switch {
		case errors.Is(err, ErrReadTimeout):
			return nil, &TimeoutError{Pattern: success.String(), Timeout: timeout}
		case errors.Is(err, io.EOF):
			// logcat sometimes ends unexpectedly, observed after a
			// device reboot followed by a cache clear. Respawn with the
			// original arguments and keep reading.
			slog.Warn("logcat stream ended, respawning")
			if err := m.resync(); err != nil {
				return nil, err
			}
			continue
		case err != nil:
			return nil, err
		}
		switch outcome, captures := Match(line, success, errPattern); outcome {
		case MatchedError:
			return nil, nil
		case MatchedSuccess:
			return captures, nil
		}
		slog.Debug("skipped logcat line", "line", line)
	}
}

// resync replaces the dead subprocess. The prior handle is killed first
// so respawning never leaks a log-reader slot.
func (m *Monitor) resync() error {
	m.kill()
	if err := m.spawn(m.args); err != nil {
		return fmt.Errorf("respawning logcat: %w", err)
	}
	return nil
}

func (m *Monitor) spawn(args []string) error {
	proc, err := m.spawner.SpawnLogcat(args)
	if err != nil {
		return err
	}
	m.proc = proc
	m.reader = NewLineReader(proc.Output())
	return nil
}

func (m *Monitor) kill() {
	if m.reader != nil {
		m.reader.Close()
		m.reader = nil
	}
	if m.proc != nil {
		_ = m.proc.Kill()
		m.proc = nil
	}
}

// Stop force-kills the log reader and discards the session state. The
// monitor may be started again afterwards.
func (m *Monitor) Stop() {
	m.kill()
	m.args = nil
}
