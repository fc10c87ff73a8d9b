// Package sysstats samples host and process resource usage for a
// CheckLocalData hook to call from the listener's local-data tick; the
// listener itself does not call Collect.
//
// Grounded on the teacher's agent metrics collector
// (cmd/agent/main.go:collectMetrics, now removed from this tree since the
// rest of that binary — registration/pairing over HTTP to a control
// plane — had no home in the listener's domain): same gopsutil/v3
// subpackage combination (cpu, mem, load, process), same
// best-effort/ignore-individual-errors shape, restructured here as a
// reusable Collect() call instead of a one-shot collector loop baked into
// main().
package sysstats

import (
	"os"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// HostSample captures host-wide resource usage.
type HostSample struct {
	CPUPercent   float64
	MemTotal     uint64
	MemUsed      uint64
	MemAvailable uint64
	SwapUsed     uint64
	LoadAvg1     float64
	LoadAvg5     float64
	LoadAvg15    float64
}

// ProcessSample captures resource usage for the listener's own process.
type ProcessSample struct {
	PID             int
	CPUPercent      float64
	NumThreads      int
	MemRSS          uint64
	MemVMS          uint64
	NumFDs          int
	OpenConnections int
}

// Sample is a point-in-time snapshot of host and self-process resource
// usage, as returned by Collect.
type Sample struct {
	Host    *HostSample
	Process *ProcessSample
}

// Collect gathers a Sample. Every sub-measurement is best-effort: a
// failure reading one stat (e.g. swap unsupported on this platform) leaves
// that field at its zero value rather than failing the whole sample, same
// as the teacher's collector. Two readings are gating: if the CPU reading
// fails, Collect returns an empty Sample (Host and Process both nil), and
// if the own-process handle cannot be opened, Process is nil.
func Collect() Sample {
	var s Sample

	cpuPercent, err := cpu.Percent(0, false)
	if err != nil || len(cpuPercent) == 0 {
		return s
	}

	s.Host = &HostSample{CPUPercent: cpuPercent[0]}

	if memInfo, err := mem.VirtualMemory(); err == nil && memInfo != nil {
		s.Host.MemTotal = memInfo.Total
		s.Host.MemUsed = memInfo.Used
		s.Host.MemAvailable = memInfo.Available
	}

	if swapInfo, err := mem.SwapMemory(); err == nil && swapInfo != nil {
		s.Host.SwapUsed = swapInfo.Used
	}

	if loadAvg, err := load.Avg(); err == nil && loadAvg != nil {
		s.Host.LoadAvg1 = loadAvg.Load1
		s.Host.LoadAvg5 = loadAvg.Load5
		s.Host.LoadAvg15 = loadAvg.Load15
	}

	pid := os.Getpid()
	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		return s
	}

	cpuPct, _ := proc.CPUPercent()
	numThreads, _ := proc.NumThreads()
	s.Process = &ProcessSample{
		PID:        pid,
		CPUPercent: cpuPct,
		NumThreads: int(numThreads),
	}

	if memInfo, err := proc.MemoryInfo(); err == nil && memInfo != nil {
		s.Process.MemRSS = memInfo.RSS
		s.Process.MemVMS = memInfo.VMS
	}
	if numFDs, err := proc.NumFDs(); err == nil {
		s.Process.NumFDs = int(numFDs)
	}
	if conns, err := proc.Connections(); err == nil {
		s.Process.OpenConnections = len(conns)
	}

	return s
}
