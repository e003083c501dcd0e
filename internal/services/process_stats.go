package services

import (
	"os"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"
)

type ProcessStats struct {
	CapturedAt        time.Time `json:"capturedAt"`
	ProcessRSSBytes   int64     `json:"processRssBytes"`
	SystemMemoryTotal int64     `json:"systemMemoryTotalBytes"`
	SystemMemoryUsed  int64     `json:"systemMemoryUsedBytes"`
	ProcessCpuLoad    float64   `json:"processCpuLoad"`
	SystemCpuLoad     float64   `json:"systemCpuLoad"`
}

// CaptureProcessStats samples memory and CPU of this process and the host.
// Probes that fail leave their fields at zero.
func CaptureProcessStats() ProcessStats {
	stats := ProcessStats{CapturedAt: time.Now().UTC()}
	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if rss, err := proc.MemoryInfo(); err == nil && rss != nil {
			stats.ProcessRSSBytes = int64(rss.RSS)
		}
		if cpuPerc, err := proc.CPUPercent(); err == nil {
			stats.ProcessCpuLoad = cpuPerc / 100.0
		}
	}
	if memStat, err := mem.VirtualMemory(); err == nil && memStat != nil {
		stats.SystemMemoryTotal = int64(memStat.Total)
		stats.SystemMemoryUsed = int64(memStat.Total - memStat.Available)
	}
	if sysCPU, err := cpu.Percent(0, false); err == nil && len(sysCPU) > 0 {
		stats.SystemCpuLoad = sysCPU[0] / 100.0
	}
	return stats
}

func (p ProcessStats) Fields() []zap.Field {
	return []zap.Field{
		zap.Int64("rss_bytes", p.ProcessRSSBytes),
		zap.Int64("system_memory_used_bytes", p.SystemMemoryUsed),
		zap.Float64("process_cpu_load", p.ProcessCpuLoad),
	}
}
