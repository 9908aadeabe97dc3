// Package monitors implements the three pure-read, idempotent samplers the
// scheduler's monitor loop ticks once per interval: system metrics, the
// foreground process/window, and user-input activity.
package monitors

import (
	"context"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/net"

	"github.com/vthunder/bud2/internal/clock"
	"github.com/vthunder/bud2/internal/logging"
	"github.com/vthunder/bud2/internal/models"
)

// SystemMetricsMonitor samples CPU, memory, disk, and network counters.
// Network and disk I/O rates are computed as deltas against the previous
// sample; the first sample after construction yields zero rates, matching
// the cumulative-counter delta technique the teacher uses for per-process
// CPU in budget/cpuwatcher.go, generalized here to whole-system counters.
type SystemMetricsMonitor struct {
	clock      clock.Clock
	diskPath   string
	netIface   string
	hasPrev    bool
	prevTime   time.Time
	prevDiskRd uint64
	prevDiskWr uint64
	prevNetUp  uint64
	prevNetDn  uint64
	prevNetUpP uint64
	prevNetDnP uint64
}

// NewSystemMetricsMonitor constructs a monitor that reports disk usage for
// diskPath ("/" by default) and aggregates network counters across all
// interfaces when netIface is empty.
func NewSystemMetricsMonitor(c clock.Clock, diskPath, netIface string) *SystemMetricsMonitor {
	if diskPath == "" {
		diskPath = "/"
	}
	return &SystemMetricsMonitor{clock: c, diskPath: diskPath, netIface: netIface}
}

// Sample reads OS counters and returns one SystemMetricsSnapshot. Errors
// from any individual counter are logged and leave that field zeroed; the
// monitor never fails the whole tick for a single counter's failure.
func (m *SystemMetricsMonitor) Sample(ctx context.Context) models.SystemMetricsSnapshot {
	now := m.clock.Now().UTC()
	snap := models.SystemMetricsSnapshot{Timestamp: now}

	if pct, err := cpu.PercentWithContext(ctx, 0, false); err != nil {
		logging.Warn("monitors", "cpu sample failed", logging.F("err", err))
	} else if len(pct) > 0 {
		snap.CPUUsagePercent = clampPercent(pct[0])
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err != nil {
		logging.Warn("monitors", "memory sample failed", logging.F("err", err))
	} else {
		snap.MemoryUsedBytes = vm.Used
		snap.MemoryTotalBytes = vm.Total
		snap.MemoryAvailBytes = vm.Available
	}

	if du, err := disk.UsageWithContext(ctx, m.diskPath); err != nil {
		logging.Warn("monitors", "disk usage sample failed", logging.F("err", err))
	} else {
		snap.DiskUsedBytes = du.Used
		snap.DiskTotalBytes = du.Total
	}

	elapsed := time.Duration(0)
	if m.hasPrev {
		elapsed = now.Sub(m.prevTime)
	}

	if io, err := disk.IOCountersWithContext(ctx); err != nil {
		logging.Warn("monitors", "disk io sample failed", logging.F("err", err))
	} else {
		var readBytes, writeBytes uint64
		for _, c := range io {
			readBytes += c.ReadBytes
			writeBytes += c.WriteBytes
		}
		if m.hasPrev && elapsed > 0 {
			snap.DiskReadBytesPerS = rate(readBytes, m.prevDiskRd, elapsed)
			snap.DiskWriteBytesPerS = rate(writeBytes, m.prevDiskWr, elapsed)
		}
		m.prevDiskRd, m.prevDiskWr = readBytes, writeBytes
	}

	if counters, err := net.IOCountersWithContext(ctx, m.netIface == ""); err != nil {
		logging.Warn("monitors", "network sample failed", logging.F("err", err))
	} else {
		var up, down, upPkts, downPkts uint64
		for _, c := range counters {
			if m.netIface != "" && c.Name != m.netIface {
				continue
			}
			up += c.BytesSent
			down += c.BytesRecv
			upPkts += c.PacketsSent
			downPkts += c.PacketsRecv
		}
		if m.hasPrev && elapsed > 0 {
			snap.NetUpBytesPerS = rate(up, m.prevNetUp, elapsed)
			snap.NetDownBytesPerS = rate(down, m.prevNetDn, elapsed)
		}
		snap.NetUpPackets = upPkts
		snap.NetDownPackets = downPkts
		m.prevNetUp, m.prevNetDn = up, down
		m.prevNetUpP, m.prevNetDnP = upPkts, downPkts
	}

	m.prevTime = now
	m.hasPrev = true
	return snap
}

func clampPercent(p float64) float64 {
	if p > 100 {
		return 100
	}
	if p < 0 {
		return 0
	}
	return p
}

func rate(curr, prev uint64, elapsed time.Duration) float64 {
	if curr < prev {
		// Counter reset (e.g. interface replaced); treat as zero delta rather
		// than report a spurious negative rate.
		return 0
	}
	return float64(curr-prev) / elapsed.Seconds()
}
