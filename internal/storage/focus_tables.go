package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/vthunder/bud2/internal/models"
)

// UpsertWorkSession inserts or replaces a work session row.
func (d *DB) UpsertWorkSession(ctx context.Context, ws models.WorkSession) error {
	_, err := d.execWithRetry(ctx, `INSERT INTO work_sessions
		(id, session_id, started_at, ended_at, primary_app, category, state, interruption_count, deep_work_secs, communication_secs, duration_secs)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET ended_at=excluded.ended_at, state=excluded.state,
			interruption_count=excluded.interruption_count, deep_work_secs=excluded.deep_work_secs,
			communication_secs=excluded.communication_secs, duration_secs=excluded.duration_secs`,
		ws.ID, ws.SessionID, ws.StartedAt.UTC(), nullTime(ws.EndedAt), ws.PrimaryApp, string(ws.Category),
		string(ws.State), ws.InterruptionCount, ws.DeepWorkSecs, ws.CommunicationSecs, ws.DurationSecs)
	if err != nil {
		return fmt.Errorf("upsert work session: %w", err)
	}
	return nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

// ListActiveWorkSession returns the single Active WorkSession for a session,
// if any (invariant: at most one).
func (d *DB) ListActiveWorkSession(ctx context.Context, sessionID string) (*models.WorkSession, error) {
	row := d.sql.QueryRowContext(ctx, `SELECT id, session_id, started_at, ended_at, primary_app, category, state,
		interruption_count, deep_work_secs, communication_secs, duration_secs
		FROM work_sessions WHERE session_id = ? AND state = 'active' ORDER BY started_at DESC LIMIT 1`, sessionID)
	ws, err := scanWorkSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return ws, err
}

func scanWorkSession(row *sql.Row) (*models.WorkSession, error) {
	var ws models.WorkSession
	var category, state string
	var ended sql.NullTime
	if err := row.Scan(&ws.ID, &ws.SessionID, &ws.StartedAt, &ended, &ws.PrimaryApp, &category, &state,
		&ws.InterruptionCount, &ws.DeepWorkSecs, &ws.CommunicationSecs, &ws.DurationSecs); err != nil {
		return nil, err
	}
	ws.Category = models.Category(category)
	ws.State = models.WorkSessionState(state)
	if ended.Valid {
		ws.EndedAt = &ended.Time
	}
	return &ws, nil
}

// ListWorkSessions returns work sessions in a time range, newest first.
func (d *DB) ListWorkSessions(ctx context.Context, r TimeRange, page Page) ([]models.WorkSession, Pagination, error) {
	page = page.normalized()
	where, args := timeRangeWhere("started_at", r)
	var total int
	if err := d.sql.QueryRowContext(ctx, "SELECT COUNT(*) FROM work_sessions"+where, args...).Scan(&total); err != nil {
		return nil, Pagination{}, err
	}
	query := `SELECT id, session_id, started_at, ended_at, primary_app, category, state,
		interruption_count, deep_work_secs, communication_secs, duration_secs FROM work_sessions` +
		where + " ORDER BY started_at DESC LIMIT ? OFFSET ?"
	rows, err := d.sql.QueryContext(ctx, query, append(append([]any{}, args...), page.Limit, page.Offset)...)
	if err != nil {
		return nil, Pagination{}, err
	}
	defer rows.Close()
	var out []models.WorkSession
	for rows.Next() {
		var ws models.WorkSession
		var category, state string
		var ended sql.NullTime
		if err := rows.Scan(&ws.ID, &ws.SessionID, &ws.StartedAt, &ended, &ws.PrimaryApp, &category, &state,
			&ws.InterruptionCount, &ws.DeepWorkSecs, &ws.CommunicationSecs, &ws.DurationSecs); err != nil {
			return nil, Pagination{}, err
		}
		ws.Category = models.Category(category)
		ws.State = models.WorkSessionState(state)
		if ended.Valid {
			ws.EndedAt = &ended.Time
		}
		out = append(out, ws)
	}
	return out, makePagination(total, page.Offset, page.Limit), rows.Err()
}

func timeRangeWhere(col string, r TimeRange) (string, []any) {
	var clauses []string
	var args []any
	if !r.From.IsZero() {
		clauses = append(clauses, col+" >= ?")
		args = append(args, r.From.UTC())
	}
	if !r.To.IsZero() {
		clauses = append(clauses, col+" < ?")
		args = append(args, r.To.UTC())
	}
	if len(clauses) == 0 {
		return "", args
	}
	where := " WHERE " + clauses[0]
	for _, c := range clauses[1:] {
		where += " AND " + c
	}
	return where, args
}

// UpsertInterruption inserts or replaces an interruption row.
func (d *DB) UpsertInterruption(ctx context.Context, in models.Interruption) error {
	_, err := d.execWithRetry(ctx, `INSERT INTO interruptions
		(id, work_session_id, interrupted_at, from_app, from_category, to_app, to_category, resumed_at, resumed_to_app, duration_secs)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET resumed_at=excluded.resumed_at, resumed_to_app=excluded.resumed_to_app,
			duration_secs=excluded.duration_secs`,
		in.ID, in.WorkSessionID, in.InterruptedAt.UTC(), in.FromApp, string(in.FromCategory),
		in.ToApp, string(in.ToCategory), nullTime(in.ResumedAt), in.ResumedToApp, in.DurationSecs)
	if err != nil {
		return fmt.Errorf("upsert interruption: %w", err)
	}
	return nil
}

// ListOpenInterruptions returns interruptions with no resumed_at, for a
// given work session.
func (d *DB) ListOpenInterruptions(ctx context.Context, workSessionID string) ([]models.Interruption, error) {
	rows, err := d.sql.QueryContext(ctx, `SELECT id, work_session_id, interrupted_at, from_app, from_category,
		to_app, to_category, resumed_at, resumed_to_app, duration_secs
		FROM interruptions WHERE work_session_id = ? AND resumed_at IS NULL ORDER BY interrupted_at ASC`, workSessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Interruption
	for rows.Next() {
		in, err := scanInterruption(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

func scanInterruption(rows *sql.Rows) (models.Interruption, error) {
	var in models.Interruption
	var fromCat, toCat string
	var resumedAt sql.NullTime
	var duration sql.NullFloat64
	err := rows.Scan(&in.ID, &in.WorkSessionID, &in.InterruptedAt, &in.FromApp, &fromCat,
		&in.ToApp, &toCat, &resumedAt, &in.ResumedToApp, &duration)
	if err != nil {
		return in, err
	}
	in.FromCategory = models.Category(fromCat)
	in.ToCategory = models.Category(toCat)
	if resumedAt.Valid {
		in.ResumedAt = &resumedAt.Time
	}
	if duration.Valid {
		in.DurationSecs = &duration.Float64
	}
	return in, nil
}

// UpsertFocusMetrics inserts or replaces the focus_metrics row for one date.
// Re-running is idempotent for dates in the past (§8 round-trip law).
func (d *DB) UpsertFocusMetrics(ctx context.Context, fm models.FocusMetrics) error {
	_, err := d.execWithRetry(ctx, `INSERT INTO focus_metrics
		(date, total_active_secs, deep_work_secs, communication_secs, context_switches, interruption_count,
		 avg_focus_duration_secs, max_focus_duration_secs, focus_score)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET total_active_secs=excluded.total_active_secs,
			deep_work_secs=excluded.deep_work_secs, communication_secs=excluded.communication_secs,
			context_switches=excluded.context_switches, interruption_count=excluded.interruption_count,
			avg_focus_duration_secs=excluded.avg_focus_duration_secs,
			max_focus_duration_secs=excluded.max_focus_duration_secs, focus_score=excluded.focus_score`,
		fm.Date, fm.TotalActiveSecs, fm.DeepWorkSecs, fm.CommunicationSecs, fm.ContextSwitches,
		fm.InterruptionCount, fm.AvgFocusDurationSecs, fm.MaxFocusDurationSecs, fm.FocusScore)
	if err != nil {
		return fmt.Errorf("upsert focus metrics: %w", err)
	}
	return nil
}

// GetFocusMetrics reads the stored row for one date, if present.
func (d *DB) GetFocusMetrics(ctx context.Context, date string) (*models.FocusMetrics, error) {
	row := d.sql.QueryRowContext(ctx, `SELECT date, total_active_secs, deep_work_secs, communication_secs,
		context_switches, interruption_count, avg_focus_duration_secs, max_focus_duration_secs, focus_score
		FROM focus_metrics WHERE date = ?`, date)
	var fm models.FocusMetrics
	err := row.Scan(&fm.Date, &fm.TotalActiveSecs, &fm.DeepWorkSecs, &fm.CommunicationSecs,
		&fm.ContextSwitches, &fm.InterruptionCount, &fm.AvgFocusDurationSecs, &fm.MaxFocusDurationSecs, &fm.FocusScore)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &fm, nil
}

// InsertSuggestion stores a new LocalSuggestion with ShownAt=nil.
func (d *DB) InsertSuggestion(ctx context.Context, s models.LocalSuggestion) error {
	payload, err := json.Marshal(s.Payload)
	if err != nil {
		return fmt.Errorf("marshal suggestion payload: %w", err)
	}
	if s.Source == "" {
		s.Source = "local"
	}
	_, err = d.execWithRetry(ctx, `INSERT INTO local_suggestions
		(id, suggestion_type, payload_json, created_at, shown_at, dismissed_at, acted_at, source)
		VALUES (?, ?, ?, ?, NULL, NULL, NULL, ?)`,
		s.ID, string(s.SuggestionType), string(payload), s.CreatedAt.UTC(), s.Source)
	if err != nil {
		return fmt.Errorf("insert suggestion: %w", err)
	}
	return nil
}

// ListPendingSuggestions returns suggestions of a given type created within
// the last hour with no dismissed_at/acted_at, for the "at most one pending
// per type per rolling hour" rule.
func (d *DB) ListPendingSuggestions(ctx context.Context, suggestionType models.SuggestionType, since time.Time) ([]models.LocalSuggestion, error) {
	rows, err := d.sql.QueryContext(ctx, `SELECT id, suggestion_type, payload_json, created_at, shown_at, dismissed_at, acted_at, source
		FROM local_suggestions WHERE suggestion_type = ? AND created_at >= ? AND dismissed_at IS NULL AND acted_at IS NULL ORDER BY created_at DESC`,
		string(suggestionType), since.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.LocalSuggestion
	for rows.Next() {
		s, err := scanSuggestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func scanSuggestion(rows *sql.Rows) (models.LocalSuggestion, error) {
	var s models.LocalSuggestion
	var suggType, payload string
	var shown, dismissed, acted sql.NullTime
	err := rows.Scan(&s.ID, &suggType, &payload, &s.CreatedAt, &shown, &dismissed, &acted, &s.Source)
	if err != nil {
		return s, err
	}
	s.SuggestionType = models.SuggestionType(suggType)
	if payload != "" {
		_ = json.Unmarshal([]byte(payload), &s.Payload)
	}
	if shown.Valid {
		s.ShownAt = &shown.Time
	}
	if dismissed.Valid {
		s.DismissedAt = &dismissed.Time
	}
	if acted.Valid {
		s.ActedAt = &acted.Time
	}
	return s, nil
}

// SuggestionAction is a feedback transition applied to a suggestion.
type SuggestionAction string

const (
	SuggestionShown     SuggestionAction = "shown"
	SuggestionDismissed SuggestionAction = "dismissed"
	SuggestionActedOn   SuggestionAction = "acted"
)

// FeedbackOnSuggestion applies a lifecycle transition, append-only (each
// column is set once and never cleared) for auditability.
func (d *DB) FeedbackOnSuggestion(ctx context.Context, id string, action SuggestionAction, now time.Time) error {
	var col string
	switch action {
	case SuggestionShown:
		col = "shown_at"
	case SuggestionDismissed:
		col = "dismissed_at"
	case SuggestionActedOn:
		col = "acted_at"
	default:
		return fmt.Errorf("feedback_on_suggestion: unknown action %q", action)
	}
	query := fmt.Sprintf(`UPDATE local_suggestions SET %s = ? WHERE id = ? AND %s IS NULL`, col, col)
	_, err := d.execWithRetry(ctx, query, now.UTC(), id)
	if err != nil {
		return fmt.Errorf("feedback on suggestion: %w", err)
	}
	return nil
}
