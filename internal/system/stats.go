package system

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// HostStats описывает машину, на которой идет экспорт.
type HostStats struct {
	Platform        string
	CPUModel        string
	LogicalCores    int
	TotalMemory     uint64
	AvailableMemory uint64
	ProcessRSS      uint64
}

// CollectHostStats gathers what it can; missing pieces stay zero.
func CollectHostStats(ctx context.Context) HostStats {
	stats := HostStats{LogicalCores: runtime.NumCPU()}

	if info, err := host.InfoWithContext(ctx); err == nil {
		stats.Platform = fmt.Sprintf("%s %s (%s)", info.Platform, info.PlatformVersion, info.KernelArch)
	}
	if infos, err := cpu.InfoWithContext(ctx); err == nil && len(infos) > 0 {
		stats.CPUModel = infos[0].ModelName
	}
	if n, err := cpu.CountsWithContext(ctx, true); err == nil && n > 0 {
		stats.LogicalCores = n
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		stats.TotalMemory = vm.Total
		stats.AvailableMemory = vm.Available
	}
	if p, err := process.NewProcessWithContext(ctx, int32(os.Getpid())); err == nil {
		if mi, err := p.MemoryInfoWithContext(ctx); err == nil {
			stats.ProcessRSS = mi.RSS
		}
	}
	return stats
}

func (s HostStats) String() string {
	return fmt.Sprintf("Host: %s | CPU: %s x%d | RAM: %s free of %s | RSS: %s",
		s.Platform, s.CPUModel, s.LogicalCores,
		FormatBytes(s.AvailableMemory), FormatBytes(s.TotalMemory), FormatBytes(s.ProcessRSS))
}

// RecommendedWorkers caps the render pool so that in-flight frames fit in
// half of the available memory.
func RecommendedWorkers(ctx context.Context, width, height int) int {
	workers := runtime.NumCPU()
	if n, err := cpu.CountsWithContext(ctx, true); err == nil && n > 0 {
		workers = n
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil || width <= 0 || height <= 0 {
		return workers
	}
	// Каждый воркер держит кадр и два слоя перехода.
	perWorker := uint64(width) * uint64(height) * 4 * 3
	if fit := int(vm.Available / 2 / perWorker); fit < workers {
		workers = fit
	}
	return max(workers, 1)
}

func FormatBytes(b uint64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := uint64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}
