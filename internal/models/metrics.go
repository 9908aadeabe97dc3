package models

import "time"

// SystemMetricsSnapshot is produced once per metrics tick by
// SystemMetricsMonitor. Network rates are deltas since the previous sample;
// the first sample after start yields zero rates.
type SystemMetricsSnapshot struct {
	Timestamp          time.Time `json:"timestamp"`
	CPUUsagePercent    float64   `json:"cpu_usage_percent"`
	MemoryUsedBytes    uint64    `json:"memory_used_bytes"`
	MemoryTotalBytes   uint64    `json:"memory_total_bytes"`
	MemoryAvailBytes   uint64    `json:"memory_available_bytes"`
	DiskUsedBytes      uint64    `json:"disk_used_bytes"`
	DiskTotalBytes     uint64    `json:"disk_total_bytes"`
	DiskReadBytesPerS  float64   `json:"disk_read_bytes_per_s"`
	DiskWriteBytesPerS float64   `json:"disk_write_bytes_per_s"`
	NetUpBytesPerS     float64   `json:"net_up_bytes_per_s"`
	NetDownBytesPerS   float64   `json:"net_down_bytes_per_s"`
	NetUpPackets       uint64    `json:"net_up_packets"`
	NetDownPackets     uint64    `json:"net_down_packets"`
}

// ProcessRecord is one process entry within a ProcessSnapshot.
type ProcessRecord struct {
	PID         int32   `json:"pid"`
	Name        string  `json:"name"`
	CPUPercent  float64 `json:"cpu_pct"`
	MemoryBytes uint64  `json:"memory_bytes"`
}

// ProcessSnapshot is the top-N processes by CPU+memory score, persisted per
// process tick.
type ProcessSnapshot struct {
	Timestamp time.Time       `json:"timestamp"`
	Processes []ProcessRecord `json:"processes"`
}

// WindowInfo is returned by the process monitor; it is never persisted on
// its own, only fused into a ContextEvent.
type WindowInfo struct {
	WindowID  string `json:"window_id"`
	Title     string `json:"title"`
	AppName   string `json:"app_name"`
	PID       int32  `json:"pid"`
	IsFocused bool   `json:"is_focused"`
}
