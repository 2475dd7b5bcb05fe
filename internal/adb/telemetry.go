package adb

import (
	"fmt"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// ServerInfo describes the local adb server daemon.
type ServerInfo struct {
	PID        int32     `json:"pid"`
	Cmdline    string    `json:"cmdline"`
	CPUPercent float64   `json:"cpu_percent"`
	MemoryMB   float64   `json:"memory_mb"`
	StartTime  time.Time `json:"start_time"`
}

// FindServer locates the adb daemon on the host (the "fork-server"
// process adb launches on first use). Returns nil when no server is
// running.
func FindServer() (*ServerInfo, error) {
	procs, err := process.Processes()
	if err != nil {
		return nil, fmt.Errorf("listing processes: %w", err)
	}
	for _, p := range procs {
		name, err := p.Name()
		if err != nil || name != "adb" {
			continue
		}
		cmdline, err := p.Cmdline()
		if err != nil || !strings.Contains(cmdline, "fork-server") {
			continue
		}
		info := &ServerInfo{PID: p.Pid, Cmdline: cmdline}
		if cpu, err := p.CPUPercent(); err == nil {
			info.CPUPercent = cpu
		}
		if mem, err := p.MemoryInfo(); err == nil {
			info.MemoryMB = float64(mem.RSS) / 1024 / 1024
		}
		if created, err := p.CreateTime(); err == nil {
			info.StartTime = time.Unix(0, created*int64(time.Millisecond))
		}
		return info, nil
	}
	return nil, nil
}
