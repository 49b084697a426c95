// Package runlog writes the per-run transcript: a plain-text file named
// with the run start time, holding a host snapshot header, every outcome
// line in chronological order, and the final summary table.
package runlog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// Log is an append-only transcript file for one run.
type Log struct {
	f    *os.File
	path string
}

// Open creates the transcript file for a run starting at start. The
// directory is created if missing. Failure here is startup-fatal: a run
// without a transcript has nothing to show the firewall operator.
func Open(dir string, start time.Time) (*Log, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	name := "traffic-" + start.Format("20060102-150405") + ".log"
	path := filepath.Join(dir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open run log: %w", err)
	}

	return &Log{f: f, path: path}, nil
}

// Path returns the transcript file path.
func (l *Log) Path() string {
	return l.path
}

// Printf appends one formatted line to the transcript.
func (l *Log) Printf(format string, args ...any) {
	fmt.Fprintf(l.f, format+"\n", args...)
}

// Close flushes and closes the transcript file.
func (l *Log) Close() error {
	return l.f.Close()
}

// HostInfo is the environment snapshot written at the top of each
// transcript, so a saved run records where it was generated.
type HostInfo struct {
	Hostname string
	Platform string
	Kernel   string
	Uptime   time.Duration
	CPUs     int
	MemTotal uint64
}

// CollectHost gathers the host snapshot. Every field is best-effort;
// a demo box inside a container may not expose all of them.
func CollectHost(ctx context.Context) HostInfo {
	info := HostInfo{CPUs: runtime.NumCPU()}

	if hi, err := host.InfoWithContext(ctx); err == nil {
		info.Hostname = hi.Hostname
		info.Platform = fmt.Sprintf("%s %s (%s)", hi.Platform, hi.PlatformVersion, hi.OS)
		info.Kernel = hi.KernelVersion
		info.Uptime = time.Duration(hi.Uptime) * time.Second
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		info.MemTotal = vm.Total
	}

	return info
}

// WriteHeader writes the run banner and host snapshot.
func (l *Log) WriteHeader(start time.Time, info HostInfo) {
	l.Printf("Traffic Generator for Firewall Demo")
	l.Printf("run started %s", start.Format("2006-01-02 15:04:05"))
	if info.Hostname != "" {
		l.Printf("host: %s | %s | kernel %s | up %s",
			info.Hostname, info.Platform, info.Kernel, info.Uptime.Round(time.Minute))
	}
	l.Printf("cpus: %d | memory: %d MiB", info.CPUs, info.MemTotal/(1024*1024))
	l.Printf("")
}
