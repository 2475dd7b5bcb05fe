package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"regexp"
	"time"

	"github.com/spf13/cobra"

	"droidbridge/internal/adb"
	"droidbridge/internal/config"
	"droidbridge/internal/logcat"
	"droidbridge/internal/relay"
)

var (
	adbPath    string
	serial     string
	configPath string

	successPattern string
	errorPattern   string
	waitTimeout    time.Duration
	clearLog       bool

	recordDuration time.Duration

	searchMessage   string
	searchThreadID  string
	searchProcID    string
	searchLevel     string
	searchComponent string

	listenAddr string
)

var rootCmd = &cobra.Command{
	Use:   "droidbridge",
	Short: "Droidbridge - device automation over adb",
	Long: `Droidbridge drives an Android device or emulator over adb. It monitors
the logcat stream for patterns, records it for offline search, relays it
to WebSocket clients, and opens interactive device shells.`,
}

// newBridge builds the adb wrapper from config plus flag overrides.
func newBridge() (*adb.Bridge, *config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if adbPath != "" {
		cfg.AdbPath = adbPath
	}
	if serial != "" {
		cfg.Serial = serial
	}
	return adb.New(cfg.AdbPath, cfg.Serial), cfg, nil
}

var monitorCmd = &cobra.Command{
	Use:   "monitor [filter...]",
	Short: "Wait for a logcat pattern",
	Long: `Start monitoring the device log and block until the success pattern
matches, the error pattern matches, or the timeout expires.

Filters use logcat filter-spec syntax (for example "ActivityManager:I *:s").
The default matches everything. On success the match and its capture
groups are printed one per line.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		bridge, cfg, err := newBridge()
		if err != nil {
			return err
		}
		success, err := regexp.Compile(successPattern)
		if err != nil {
			return fmt.Errorf("invalid --success pattern: %w", err)
		}
		var errRe *regexp.Regexp
		if errorPattern != "" {
			errRe, err = regexp.Compile(errorPattern)
			if err != nil {
				return fmt.Errorf("invalid --error pattern: %w", err)
			}
		}
		filters := args
		if len(filters) == 0 {
			filters = cfg.Filters
		}
		timeout := waitTimeout
		if timeout == 0 {
			timeout = time.Duration(cfg.WaitTimeout)
		}

		m := logcat.NewMonitor(bridge, bridge)
		defer m.Stop()
		if err := m.StartMonitoring(clearLog, filters); err != nil {
			return err
		}
		captures, err := m.WaitForLogMatch(success, errRe, timeout)
		if err != nil {
			return err
		}
		if captures == nil {
			return errors.New("error pattern matched before success pattern")
		}
		for _, c := range captures {
			fmt.Println(c)
		}
		return nil
	},
	SilenceUsage: true,
}

var recordCmd = &cobra.Command{
	Use:   "record [filter...]",
	Short: "Record logcat output and dump it to stdout",
	Long: `Record the entire logcat stream into memory until --duration elapses
(or until interrupted) and write the captured bytes to stdout.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		bridge, cfg, err := newBridge()
		if err != nil {
			return err
		}
		filters := args
		if len(filters) == 0 {
			filters = cfg.Filters
		}

		r := logcat.NewRecorder(bridge, bridge)
		if err := r.StartRecording(clearLog, filters); err != nil {
			return err
		}

		interrupt := make(chan os.Signal, 1)
		signal.Notify(interrupt, os.Interrupt)
		select {
		case <-time.After(recordDuration):
		case <-interrupt:
		}
		_, err = os.Stdout.Write(r.StopRecording())
		return err
	},
	SilenceUsage: true,
}

var searchCmd = &cobra.Command{
	Use:   "search FILE",
	Short: "Search a recorded logcat capture",
	Long: `Parse a capture produced by "droidbridge record" and print the entries
whose message contains --message and whose fields match every supplied
filter. Lines that do not fit the threadtime grammar are skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		record, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		entries := logcat.SearchRecord(record, searchMessage, logcat.SearchFilter{
			ThreadID:  searchThreadID,
			ProcID:    searchProcID,
			LogLevel:  searchLevel,
			Component: searchComponent,
		})
		for _, e := range entries {
			fmt.Printf("%s %s %s %s:%s\n", e.ThreadID, e.ProcID, e.LogLevel, e.Component, e.Message)
		}
		return nil
	},
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Relay the live logcat stream over WebSocket",
	RunE: func(cmd *cobra.Command, args []string) error {
		bridge, cfg, err := newBridge()
		if err != nil {
			return err
		}
		addr := listenAddr
		if addr == "" {
			addr = cfg.ListenAddr
		}
		return relay.New(bridge, cfg.Filters).Run(addr)
	},
	SilenceUsage: true,
}

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List connected devices",
	RunE: func(cmd *cobra.Command, args []string) error {
		bridge, _, err := newBridge()
		if err != nil {
			return err
		}
		devices, err := bridge.Devices()
		if err != nil {
			return err
		}
		for _, d := range devices {
			fmt.Printf("%s\t%s\n", d.Serial, d.State)
		}
		return nil
	},
	SilenceUsage: true,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show local adb server telemetry",
	RunE: func(cmd *cobra.Command, args []string) error {
		info, err := adb.FindServer()
		if err != nil {
			return err
		}
		if info == nil {
			fmt.Println("adb server not running")
			return nil
		}
		fmt.Printf("pid: %d\ncmdline: %s\ncpu: %.1f%%\nrss: %.1f MB\nstarted: %s\n",
			info.PID, info.Cmdline, info.CPUPercent, info.MemoryMB,
			info.StartTime.Format(time.RFC3339))
		return nil
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&adbPath, "adb", "", "Path to the adb binary (default: adb on PATH)")
	rootCmd.PersistentFlags().StringVarP(&serial, "serial", "s", "", "Device serial to address")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to the droidbridge config file")

	monitorCmd.Flags().StringVar(&successPattern, "success", "", "Regexp that ends the wait with a match")
	monitorCmd.Flags().StringVar(&errorPattern, "error", "", "Regexp that ends the wait without a match")
	monitorCmd.Flags().DurationVar(&waitTimeout, "timeout", 0, "Wait budget (default from config, 10s)")
	monitorCmd.Flags().BoolVar(&clearLog, "clear", false, "Clear the device log before monitoring")
	_ = monitorCmd.MarkFlagRequired("success")

	recordCmd.Flags().DurationVar(&recordDuration, "duration", 10*time.Second, "How long to record")
	recordCmd.Flags().BoolVar(&clearLog, "clear", false, "Clear the device log before recording")

	searchCmd.Flags().StringVar(&searchMessage, "message", "", "Substring the entry message must contain")
	searchCmd.Flags().StringVar(&searchThreadID, "thread-id", "", "Exact thread id filter")
	searchCmd.Flags().StringVar(&searchProcID, "proc-id", "", "Exact process id filter")
	searchCmd.Flags().StringVar(&searchLevel, "level", "", "Exact log level filter (V, D, I, W, E, F)")
	searchCmd.Flags().StringVar(&searchComponent, "component", "", "Exact component tag filter")
	_ = searchCmd.MarkFlagRequired("message")

	serveCmd.Flags().StringVar(&listenAddr, "addr", "", "Listen address (default from config, :22123)")

	rootCmd.AddCommand(monitorCmd)
	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(shellCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
