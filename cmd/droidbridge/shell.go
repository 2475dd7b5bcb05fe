package main

import (
	"fmt"
	"io"
	"os"

	"github.com/creack/pty"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"droidbridge/internal/adb"
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Open an interactive device shell",
	Long: `Open adb shell under a local pty with the terminal in raw mode, so
interactive device programs behave as if run from a directly attached
terminal.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		bridge, _, err := newBridge()
		if err != nil {
			return err
		}
		return runShell(bridge)
	},
	SilenceUsage: true,
}

func runShell(bridge *adb.Bridge) error {
	ptmx, cmd, err := bridge.OpenShell()
	if err != nil {
		return err
	}
	defer ptmx.Close()

	stdin := int(os.Stdin.Fd())
	if term.IsTerminal(stdin) {
		_ = pty.InheritSize(os.Stdin, ptmx)
		oldState, err := term.MakeRaw(stdin)
		if err != nil {
			return fmt.Errorf("entering raw mode: %w", err)
		}
		defer func() { _ = term.Restore(stdin, oldState) }()
	}

	go func() { _, _ = io.Copy(ptmx, os.Stdin) }()
	_, _ = io.Copy(os.Stdout, ptmx)
	return cmd.Wait()
}
