package adb

import (
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/creack/pty"

	"droidbridge/internal/logcat"
)

var (
	_ logcat.Spawner        = (*Bridge)(nil)
	_ logcat.ControlChannel = (*Bridge)(nil)
)

// logcatProcess is a pty-backed adb subprocess. The pty keeps adb's
// output line buffered; under a plain pipe logcat output can arrive in
// large block-buffered flushes instead of line by line.
type logcatProcess struct {
	cmd  *exec.Cmd
	ptmx *os.File
}

func (p *logcatProcess) Output() io.Reader { return p.ptmx }

// Kill force-terminates the subprocess and closes its pty. Log readers
// do not exit on their own, so there is no graceful path.
func (p *logcatProcess) Kill() error {
	if p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
	}
	err := p.ptmx.Close()
	_ = p.cmd.Wait()
	return err
}

// SpawnLogcat launches the log-reader subcommand with the given
// arguments ("logcat -v threadtime" plus filter specs) under a pty.
func (b *Bridge) SpawnLogcat(args []string) (logcat.Process, error) {
	cmd := exec.Command(b.Path, b.args(args...)...)
	ptmx, err := pty.Start(cmd)
	if err != nil {
		return nil, fmt.Errorf("starting %s under pty: %w", b.Path, err)
	}
	return &logcatProcess{cmd: cmd, ptmx: ptmx}, nil
}

// OpenShell starts an interactive device shell under a pty and returns
// the pty master plus the running command. The caller owns both.
func (b *Bridge) OpenShell() (*os.File, *exec.Cmd, error) {
	cmd := exec.Command(b.Path, b.args("shell")...)
	ptmx, err := pty.Start(cmd)
	if err != nil {
		return nil, nil, fmt.Errorf("starting device shell: %w", err)
	}
	return ptmx, cmd, nil
}
