package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vthunder/bud2/internal/models"
)

// InsertMetrics persists one SystemMetricsSnapshot.
func (d *DB) InsertMetrics(ctx context.Context, m models.SystemMetricsSnapshot) error {
	_, err := d.execWithRetry(ctx, `INSERT INTO metrics
		(timestamp, cpu_pct, mem_used, mem_total, mem_available, disk_used, disk_total,
		 disk_read_bps, disk_write_bps, net_up, net_down, net_up_packets, net_down_packets)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.Timestamp.UTC(), m.CPUUsagePercent, m.MemoryUsedBytes, m.MemoryTotalBytes, m.MemoryAvailBytes,
		m.DiskUsedBytes, m.DiskTotalBytes, m.DiskReadBytesPerS, m.DiskWriteBytesPerS,
		m.NetUpBytesPerS, m.NetDownBytesPerS, m.NetUpPackets, m.NetDownPackets)
	if err != nil {
		return fmt.Errorf("insert metrics: %w", err)
	}
	return nil
}

// InsertProcesses persists one ProcessSnapshot as a JSON payload row.
func (d *DB) InsertProcesses(ctx context.Context, p models.ProcessSnapshot) error {
	payload, err := json.Marshal(p.Processes)
	if err != nil {
		return fmt.Errorf("marshal processes: %w", err)
	}
	_, err = d.execWithRetry(ctx, `INSERT INTO process_snapshots(timestamp, payload_json) VALUES (?, ?)`,
		p.Timestamp.UTC(), string(payload))
	if err != nil {
		return fmt.Errorf("insert process snapshot: %w", err)
	}
	return nil
}

// LatestMetrics returns the most recently persisted metrics row, if any.
func (d *DB) LatestMetrics(ctx context.Context) (*models.SystemMetricsSnapshot, error) {
	row := d.sql.QueryRowContext(ctx, `SELECT timestamp, cpu_pct, mem_used, mem_total, mem_available,
		disk_used, disk_total, disk_read_bps, disk_write_bps, net_up, net_down, net_up_packets, net_down_packets
		FROM metrics ORDER BY timestamp DESC LIMIT 1`)
	var m models.SystemMetricsSnapshot
	err := row.Scan(&m.Timestamp, &m.CPUUsagePercent, &m.MemoryUsedBytes, &m.MemoryTotalBytes, &m.MemoryAvailBytes,
		&m.DiskUsedBytes, &m.DiskTotalBytes, &m.DiskReadBytesPerS, &m.DiskWriteBytesPerS,
		&m.NetUpBytesPerS, &m.NetDownBytesPerS, &m.NetUpPackets, &m.NetDownPackets)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}
