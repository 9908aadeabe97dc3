package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// OpenIdle opens a new IdlePeriod at ts. Invariant: at most one open
// IdlePeriod may exist; callers must check HasOpenIdle first within the same
// tick to avoid violating it.
func (d *DB) OpenIdle(ctx context.Context, ts time.Time) (int64, error) {
	res, err := d.execWithRetry(ctx, `INSERT INTO idle_periods(start_ts, end_ts, duration_secs) VALUES (?, NULL, NULL)`, ts.UTC())
	if err != nil {
		return 0, fmt.Errorf("open idle: %w", err)
	}
	return res.LastInsertId()
}

// CloseIdle closes the open IdlePeriod (if any) at ts, recording duration.
// No-op if none is open.
func (d *DB) CloseIdle(ctx context.Context, ts time.Time) error {
	var id int64
	var start time.Time
	err := d.sql.QueryRowContext(ctx, `SELECT id, start_ts FROM idle_periods WHERE end_ts IS NULL ORDER BY start_ts DESC LIMIT 1`).Scan(&id, &start)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("find open idle: %w", err)
	}
	duration := ts.Sub(start).Seconds()
	if duration < 0 {
		duration = 0
	}
	_, err = d.execWithRetry(ctx, `UPDATE idle_periods SET end_ts = ?, duration_secs = ? WHERE id = ?`, ts.UTC(), duration, id)
	if err != nil {
		return fmt.Errorf("close idle: %w", err)
	}
	return nil
}

// HasOpenIdle reports whether an IdlePeriod is currently open.
func (d *DB) HasOpenIdle(ctx context.Context) (bool, error) {
	var count int
	if err := d.sql.QueryRowContext(ctx, `SELECT COUNT(*) FROM idle_periods WHERE end_ts IS NULL`).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}
