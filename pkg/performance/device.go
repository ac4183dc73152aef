package performance

import (
	"context"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// Hosts at or below these limits start at Medium.
const (
	constrainedCPUs   = 2
	constrainedMemory = 2 << 30
)

// DeviceProfile describes the host the game is running on.
type DeviceProfile struct {
	LogicalCPUs     int     `json:"logical_cpus"`
	TotalMemory     uint64  `json:"total_memory"`
	AvailableMemory uint64  `json:"available_memory"`
	MemoryPercent   float64 `json:"memory_percent"`
}

// Constrained reports whether the host is small enough that the game should
// not start at full quality.
func (d DeviceProfile) Constrained() bool {
	if d.LogicalCPUs > 0 && d.LogicalCPUs <= constrainedCPUs {
		return true
	}
	return d.TotalMemory > 0 && d.TotalMemory <= constrainedMemory
}

// InitialLevel is the starting level for this host.
func (d DeviceProfile) InitialLevel() Level {
	if d.Constrained() {
		return Medium
	}
	return High
}

// DetectDevice probes the host. Probe failures leave the matching fields at
// zero, which never marks the host as constrained.
func DetectDevice(ctx context.Context) DeviceProfile {
	var d DeviceProfile

	if n, err := cpu.CountsWithContext(ctx, true); err == nil {
		d.LogicalCPUs = n
	} else {
		d.LogicalCPUs = runtime.NumCPU()
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		d.TotalMemory = vm.Total
		d.AvailableMemory = vm.Available
		d.MemoryPercent = vm.UsedPercent
	}
	return d
}

// ResourceMonitor samples the game process's own resource usage.
type ResourceMonitor struct {
	process      *process.Process
	startCPUTime float64
	startTime    time.Time
	mu           sync.RWMutex
}

// ResourceUsage contains resource usage information
type ResourceUsage struct {
	CPUPercent     float64 `json:"cpu_percent"`
	MemoryRSS      uint64  `json:"memory_rss"`
	HeapAlloc      uint64  `json:"heap_alloc"`
	NumGC          uint32  `json:"num_gc"`
	GoroutineCount int     `json:"goroutines"`
}

// NewResourceMonitor creates a resource monitor for the current process.
func NewResourceMonitor() *ResourceMonitor {
	rm := &ResourceMonitor{startTime: time.Now()}
	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		rm.process = proc
		if t, err := proc.Times(); err == nil {
			rm.startCPUTime = t.Total()
		}
	}
	return rm
}

// Usage returns current resource usage. Process metrics that cannot be read
// are left at zero.
func (rm *ResourceMonitor) Usage() ResourceUsage {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	var usage ResourceUsage
	if rm.process != nil {
		if t, err := rm.process.Times(); err == nil {
			if elapsed := time.Since(rm.startTime).Seconds(); elapsed > 0 {
				usage.CPUPercent = (t.Total() - rm.startCPUTime) / elapsed * 100
			}
		}
		if info, err := rm.process.MemoryInfo(); err == nil {
			usage.MemoryRSS = info.RSS
		}
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	usage.HeapAlloc = ms.HeapAlloc
	usage.NumGC = ms.NumGC
	usage.GoroutineCount = runtime.NumGoroutine()
	return usage
}
