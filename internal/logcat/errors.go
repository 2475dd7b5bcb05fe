package logcat

import (
	"fmt"
	"time"
)

// SyncError is returned when the startup handshake never observes its
// marker within the bounded number of spawn attempts. The log channel
// is considered fundamentally broken; callers should abort the
// automation run rather than retry.
type SyncError struct {
	Attempts int
	Marker   string
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("logcat: sync marker %q not seen after %d attempts", e.Marker, e.Attempts)
}

// TimeoutError reports that a WaitForLogMatch time budget elapsed
// before either pattern matched. It names the success pattern that was
// awaited to aid diagnosis.
type TimeoutError struct {
	Pattern string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("logcat: timeout (%s) exceeded waiting for pattern %q", e.Timeout, e.Pattern)
}
