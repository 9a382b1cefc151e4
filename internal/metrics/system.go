/*-------------------------------------------------------------------------
 *
 * system.go
 *    Host system metrics collection
 *
 * Copyright (c) 2024-2026, AtelierFlow SAS <support@atelierflow.io>
 *
 * IDENTIFICATION
 *    docflow/internal/metrics/system.go
 *
 *-------------------------------------------------------------------------
 */

package metrics

import (
	"context"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/net"
)

/* SystemMetrics represents current host metrics */
type SystemMetrics struct {
	Timestamp time.Time      `json:"timestamp"`
	CPU       CPUMetrics     `json:"cpu"`
	Memory    MemoryMetrics  `json:"memory"`
	Disk      DiskMetrics    `json:"disk"`
	Network   NetworkMetrics `json:"network"`
	Process   ProcessMetrics `json:"process"`
}

/* CPUMetrics contains CPU usage information */
type CPUMetrics struct {
	UsagePercent float64 `json:"usage_percent"`
	Count        int     `json:"count"`
}

/* MemoryMetrics contains memory usage information */
type MemoryMetrics struct {
	Total       uint64  `json:"total"`
	Used        uint64  `json:"used"`
	Available   uint64  `json:"available"`
	UsedPercent float64 `json:"used_percent"`
}

/* DiskMetrics contains disk usage information */
type DiskMetrics struct {
	Total       uint64  `json:"total"`
	Used        uint64  `json:"used"`
	Free        uint64  `json:"free"`
	UsedPercent float64 `json:"used_percent"`
}

/* NetworkMetrics contains network usage information */
type NetworkMetrics struct {
	BytesSent   uint64 `json:"bytes_sent"`
	BytesRecv   uint64 `json:"bytes_recv"`
	PacketsSent uint64 `json:"packets_sent"`
	PacketsRecv uint64 `json:"packets_recv"`
}

/* ProcessMetrics contains process information */
type ProcessMetrics struct {
	GoRoutines int    `json:"go_routines"`
	HeapAlloc  uint64 `json:"heap_alloc"`
	HeapSys    uint64 `json:"heap_sys"`
	HeapInuse  uint64 `json:"heap_inuse"`
}

/* CollectSystemMetrics collects current host metrics. Partial failures are
 * tolerated; unavailable sections are left zeroed. */
func CollectSystemMetrics(ctx context.Context) (*SystemMetrics, error) {
	metrics := &SystemMetrics{
		Timestamp: time.Now(),
	}

	cpuPercent, err := cpu.PercentWithContext(ctx, time.Second, false)
	if err == nil && len(cpuPercent) > 0 {
		metrics.CPU.UsagePercent = cpuPercent[0]
	}

	cpuCount, err := cpu.Counts(true)
	if err == nil {
		metrics.CPU.Count = cpuCount
	}

	memStat, err := mem.VirtualMemoryWithContext(ctx)
	if err == nil {
		metrics.Memory.Total = memStat.Total
		metrics.Memory.Used = memStat.Used
		metrics.Memory.Available = memStat.Available
		metrics.Memory.UsedPercent = memStat.UsedPercent
	}

	diskStat, err := disk.UsageWithContext(ctx, "/")
	if err == nil {
		metrics.Disk.Total = diskStat.Total
		metrics.Disk.Used = diskStat.Used
		metrics.Disk.Free = diskStat.Free
		metrics.Disk.UsedPercent = diskStat.UsedPercent
	}

	netIO, err := net.IOCountersWithContext(ctx, false)
	if err == nil && len(netIO) > 0 {
		stats := netIO[0]
		metrics.Network.BytesSent = stats.BytesSent
		metrics.Network.BytesRecv = stats.BytesRecv
		metrics.Network.PacketsSent = stats.PacketsSent
		metrics.Network.PacketsRecv = stats.PacketsRecv
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.Process.GoRoutines = runtime.NumGoroutine()
	metrics.Process.HeapAlloc = m.HeapAlloc
	metrics.Process.HeapSys = m.HeapSys
	metrics.Process.HeapInuse = m.HeapInuse

	return metrics, nil
}
