package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/vthunder/bud2/internal/logging"
)

const retentionChunkSize = 1000

// diskSize returns database file size + artifact directory size, in bytes.
func (d *DB) diskSize() (int64, error) {
	var total int64
	for _, suffix := range []string{"", "-wal", "-shm"} {
		if info, err := os.Stat(d.path + suffix); err == nil {
			total += info.Size()
		}
	}
	err := filepath.Walk(d.artifact, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // best-effort; a transient stat failure shouldn't abort the sweep
		}
		if !info.IsDir() {
			total += info.Size()
		}
		return nil
	})
	return total, err
}

func (d *DB) oldestRowAge(ctx context.Context, now time.Time) (time.Duration, error) {
	var oldest sql.NullTime
	err := d.sql.QueryRowContext(ctx, `SELECT MIN(ts) FROM (
		SELECT MIN(timestamp) as ts FROM events
		UNION ALL SELECT MIN(timestamp) FROM frames
		UNION ALL SELECT MIN(timestamp) FROM metrics
		UNION ALL SELECT MIN(timestamp) FROM process_snapshots
		UNION ALL SELECT MIN(start_ts) FROM idle_periods
	)`).Scan(&oldest)
	if err != nil {
		return 0, err
	}
	if !oldest.Valid {
		return 0, nil
	}
	return now.Sub(oldest.Time), nil
}

func (d *DB) isStorageFull(ctx context.Context) (bool, error) {
	size, err := d.diskSize()
	if err != nil {
		return false, nil // best-effort: disk introspection failure never blocks writes
	}
	maxBytes := int64(d.policy.MaxStorageMB) * 1024 * 1024
	if maxBytes <= 0 {
		return false, nil
	}
	age, err := d.oldestRowAge(ctx, time.Now().UTC())
	if err != nil {
		return false, nil
	}
	// Over budget is only "full" when a sweep could not reclaim anything:
	// every remaining row is still inside the protected floor.
	return size > maxBytes && age <= ProtectedFloor, nil
}

// RetentionSweep deletes any row whose age exceeds retention_days OR whose
// cumulative storage exceeds max_storage_mb, oldest-first, stopping at the
// 24h protected floor. Idempotent and safe under concurrent reads.
func (d *DB) RetentionSweep(ctx context.Context, now time.Time) (DeleteCounts, error) {
	var totalCounts DeleteCounts

	size, err := d.diskSize()
	if err != nil {
		return totalCounts, fmt.Errorf("retention_sweep: disk size: %w", err)
	}
	maxBytes := int64(d.policy.MaxStorageMB) * 1024 * 1024
	retentionWindow := time.Duration(d.policy.RetentionDays) * 24 * time.Hour

	age, err := d.oldestRowAge(ctx, now)
	if err != nil {
		return totalCounts, fmt.Errorf("retention_sweep: oldest row age: %w", err)
	}
	if (maxBytes <= 0 || size <= maxBytes) && (retentionWindow <= 0 || age <= retentionWindow) {
		return totalCounts, nil
	}

	floor := now.Add(-ProtectedFloor)
	ageCutoff := now.Add(-retentionWindow)
	if retentionWindow <= 0 || ageCutoff.After(floor) {
		ageCutoff = floor
	}

	deletedSinceVacuum := int64(0)
	startSize := size

	for {
		withinBudget := maxBytes <= 0 || size <= maxBytes
		age, err = d.oldestRowAge(ctx, now)
		if err != nil {
			return totalCounts, err
		}
		withinAge := retentionWindow <= 0 || age <= retentionWindow
		if withinBudget && withinAge {
			break
		}

		cutoff := ageCutoff
		if !withinBudget && withinAge {
			// Size pressure only: still bounded by the protected floor.
			cutoff = floor
		}

		counts, deletedAny, err := d.deleteOldestChunk(ctx, cutoff)
		if err != nil {
			return totalCounts, fmt.Errorf("retention_sweep: delete chunk: %w", err)
		}
		totalCounts.add(counts)
		deletedSinceVacuum += counts.EventsDeleted + counts.FramesDeleted + counts.MetricsDeleted +
			counts.ProcessSnapshotsDeleted + counts.IdlePeriodsDeleted
		if !deletedAny {
			break // no rows remain younger than the protected floor
		}

		size, err = d.diskSize()
		if err != nil {
			return totalCounts, err
		}
	}

	if startSize > 0 && float64(startSize-size)/float64(startSize) > 0.20 {
		if _, err := d.sql.ExecContext(ctx, "VACUUM"); err != nil {
			logging.Warn("storage", "vacuum failed", logging.F("err", err))
		}
	}

	logging.Info("storage", "retention sweep complete",
		logging.F("events", totalCounts.EventsDeleted),
		logging.F("frames", totalCounts.FramesDeleted),
		logging.F("metrics", totalCounts.MetricsDeleted),
		logging.F("bytes_before", humanize.Bytes(uint64(startSize))),
		logging.F("bytes_after", humanize.Bytes(uint64(size))))

	return totalCounts, nil
}

// deleteOldestChunk deletes up to retentionChunkSize oldest rows per kind
// older than cutoff, in a single transaction, in the order events, process
// snapshots, metrics, frames (with artifacts), idle periods. Returns whether
// any row was deleted.
func (d *DB) deleteOldestChunk(ctx context.Context, cutoff time.Time) (DeleteCounts, bool, error) {
	var counts DeleteCounts
	var filePaths []string

	err := d.withTx(ctx, func(tx *sql.Tx) error {
		n, err := deleteOldest(ctx, tx, `DELETE FROM events WHERE event_id IN (
			SELECT event_id FROM events WHERE timestamp < ? ORDER BY timestamp ASC LIMIT ?)`, cutoff.UTC())
		if err != nil {
			return err
		}
		counts.EventsDeleted = n

		n, err = deleteOldest(ctx, tx, `DELETE FROM process_snapshots WHERE id IN (
			SELECT id FROM process_snapshots WHERE timestamp < ? ORDER BY timestamp ASC LIMIT ?)`, cutoff.UTC())
		if err != nil {
			return err
		}
		counts.ProcessSnapshotsDeleted = n

		n, err = deleteOldest(ctx, tx, `DELETE FROM metrics WHERE id IN (
			SELECT id FROM metrics WHERE timestamp < ? ORDER BY timestamp ASC LIMIT ?)`, cutoff.UTC())
		if err != nil {
			return err
		}
		counts.MetricsDeleted = n

		rows, err := tx.QueryContext(ctx, `SELECT frame_id, file_path FROM frames
			WHERE timestamp < ? AND file_path IS NOT NULL ORDER BY timestamp ASC LIMIT ?`, cutoff.UTC(), retentionChunkSize)
		if err != nil {
			return err
		}
		for rows.Next() {
			var id, path string
			if err := rows.Scan(&id, &path); err != nil {
				rows.Close()
				return err
			}
			filePaths = append(filePaths, path)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		n, err = deleteOldest(ctx, tx, `DELETE FROM frames WHERE frame_id IN (
			SELECT frame_id FROM frames WHERE timestamp < ? ORDER BY timestamp ASC LIMIT ?)`, cutoff.UTC())
		if err != nil {
			return err
		}
		counts.FramesDeleted = n

		n, err = deleteOldest(ctx, tx, `DELETE FROM idle_periods WHERE id IN (
			SELECT id FROM idle_periods WHERE start_ts < ? AND end_ts IS NOT NULL ORDER BY start_ts ASC LIMIT ?)`, cutoff.UTC())
		if err != nil {
			return err
		}
		counts.IdlePeriodsDeleted = n

		return nil
	})
	if err != nil {
		return counts, false, err
	}

	for _, p := range filePaths {
		if p == "" {
			continue
		}
		_ = os.Remove(filepath.Join(d.artifact, p))
	}

	any := counts.EventsDeleted+counts.FramesDeleted+counts.MetricsDeleted+
		counts.ProcessSnapshotsDeleted+counts.IdlePeriodsDeleted > 0
	return counts, any, nil
}

func deleteOldest(ctx context.Context, tx *sql.Tx, query string, cutoff time.Time) (int64, error) {
	res, err := tx.ExecContext(ctx, query, cutoff, retentionChunkSize)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// RetentionPreview reports what RetentionSweep would delete as of now
// without deleting anything, for the retention tool's -dry-run mode. kinds
// restricts which tables are counted ("events", "frames", "metrics",
// "process_snapshots", "idle_periods"); an empty slice counts all of them.
func (d *DB) RetentionPreview(ctx context.Context, now time.Time, kinds []string) (DeleteCounts, error) {
	var counts DeleteCounts

	retentionWindow := time.Duration(d.policy.RetentionDays) * 24 * time.Hour
	floor := now.Add(-ProtectedFloor)
	cutoff := now.Add(-retentionWindow)
	if retentionWindow <= 0 || cutoff.After(floor) {
		cutoff = floor
	}

	want := func(kind string) bool {
		if len(kinds) == 0 {
			return true
		}
		for _, k := range kinds {
			if k == kind {
				return true
			}
		}
		return false
	}

	count := func(query string) (int64, error) {
		var n int64
		err := d.sql.QueryRowContext(ctx, query, cutoff.UTC()).Scan(&n)
		return n, err
	}

	var err error
	if want("events") {
		if counts.EventsDeleted, err = count(`SELECT COUNT(*) FROM events WHERE timestamp < ?`); err != nil {
			return counts, err
		}
	}
	if want("frames") {
		if counts.FramesDeleted, err = count(`SELECT COUNT(*) FROM frames WHERE timestamp < ?`); err != nil {
			return counts, err
		}
	}
	if want("metrics") {
		if counts.MetricsDeleted, err = count(`SELECT COUNT(*) FROM metrics WHERE timestamp < ?`); err != nil {
			return counts, err
		}
	}
	if want("process_snapshots") {
		if counts.ProcessSnapshotsDeleted, err = count(`SELECT COUNT(*) FROM process_snapshots WHERE timestamp < ?`); err != nil {
			return counts, err
		}
	}
	if want("idle_periods") {
		if counts.IdlePeriodsDeleted, err = count(`SELECT COUNT(*) FROM idle_periods WHERE start_ts < ? AND end_ts IS NOT NULL`); err != nil {
			return counts, err
		}
	}

	return counts, nil
}

// DeleteRange removes rows in [r.From, r.To) across the named kinds (or all
// kinds if kinds is empty), returning counts per kind.
func (d *DB) DeleteRange(ctx context.Context, r TimeRange, kinds []string) (DeleteCounts, error) {
	var counts DeleteCounts
	include := func(k string) bool {
		if len(kinds) == 0 {
			return true
		}
		for _, x := range kinds {
			if x == k {
				return true
			}
		}
		return false
	}
	err := d.withTx(ctx, func(tx *sql.Tx) error {
		if include("events") {
			n, err := execDeleteRange(ctx, tx, "events", "timestamp", r)
			if err != nil {
				return err
			}
			counts.EventsDeleted = n
		}
		if include("frames") {
			n, err := execDeleteRange(ctx, tx, "frames", "timestamp", r)
			if err != nil {
				return err
			}
			counts.FramesDeleted = n
		}
		if include("metrics") {
			n, err := execDeleteRange(ctx, tx, "metrics", "timestamp", r)
			if err != nil {
				return err
			}
			counts.MetricsDeleted = n
		}
		if include("process_snapshots") {
			n, err := execDeleteRange(ctx, tx, "process_snapshots", "timestamp", r)
			if err != nil {
				return err
			}
			counts.ProcessSnapshotsDeleted = n
		}
		if include("idle_periods") {
			n, err := execDeleteRange(ctx, tx, "idle_periods", "start_ts", r)
			if err != nil {
				return err
			}
			counts.IdlePeriodsDeleted = n
		}
		return nil
	})
	return counts, err
}

func execDeleteRange(ctx context.Context, tx *sql.Tx, table, col string, r TimeRange) (int64, error) {
	query := fmt.Sprintf("DELETE FROM %s WHERE 1=1", table)
	var args []any
	if !r.From.IsZero() {
		query += fmt.Sprintf(" AND %s >= ?", col)
		args = append(args, r.From.UTC())
	}
	if !r.To.IsZero() {
		query += fmt.Sprintf(" AND %s < ?", col)
		args = append(args, r.To.UTC())
	}
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteAll clears the events, frames (with their artifacts), metrics,
// process_snapshots and idle_periods tables, for the dashboard's full-reset
// endpoint; the other tables are left as they are.
func (d *DB) DeleteAll(ctx context.Context) (DeleteCounts, error) {
	return d.DeleteRange(ctx, TimeRange{}, nil)
}
