package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vthunder/bud2/internal/models"
)

// OpenSession creates a new Session row. Exactly one session is "active" per
// process instance; callers open one at startup and close it at shutdown.
func (d *DB) OpenSession(ctx context.Context, s models.Session) error {
	_, err := d.execWithRetry(ctx, `INSERT INTO sessions(session_id, started_at, ended_at, total_events, total_frames, total_idle_secs, active_duration_secs)
		VALUES (?, ?, NULL, 0, 0, 0, NULL)`, s.SessionID, s.StartedAt.UTC())
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	return nil
}

// CloseSession finalizes a session with its counters.
func (d *DB) CloseSession(ctx context.Context, s models.Session) error {
	var endedAt any
	if s.EndedAt != nil {
		endedAt = s.EndedAt.UTC()
	}
	var activeDuration any
	if s.ActiveDurationSecs != nil {
		activeDuration = *s.ActiveDurationSecs
	}
	_, err := d.execWithRetry(ctx, `UPDATE sessions SET ended_at = ?, total_events = ?, total_frames = ?,
		total_idle_secs = ?, active_duration_secs = ? WHERE session_id = ?`,
		endedAt, s.TotalEvents, s.TotalFrames, s.TotalIdleSecs, activeDuration, s.SessionID)
	if err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	return nil
}

// GetSession fetches one session by id.
func (d *DB) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	row := d.sql.QueryRowContext(ctx, `SELECT session_id, started_at, ended_at, total_events, total_frames, total_idle_secs, active_duration_secs
		FROM sessions WHERE session_id = ?`, sessionID)
	var s models.Session
	var endedAt sql.NullTime
	var activeDuration sql.NullFloat64
	if err := row.Scan(&s.SessionID, &s.StartedAt, &endedAt, &s.TotalEvents, &s.TotalFrames, &s.TotalIdleSecs, &activeDuration); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if endedAt.Valid {
		s.EndedAt = &endedAt.Time
	}
	if activeDuration.Valid {
		s.ActiveDurationSecs = &activeDuration.Float64
	}
	return &s, nil
}
