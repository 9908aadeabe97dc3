package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/vthunder/bud2/internal/coreerrors"
	"github.com/vthunder/bud2/internal/models"
)

// InsertEvent appends one ContextEvent. Fails with ErrStorageFull when the
// retention budget is already exceeded and cannot be reclaimed by the
// caller's own retention_sweep invocation.
func (d *DB) InsertEvent(ctx context.Context, e models.ContextEvent) error {
	return d.InsertEvents(ctx, []models.ContextEvent{e})
}

// InsertEvents appends a batch of events in a single transaction, preserving
// ingestion order.
func (d *DB) InsertEvents(ctx context.Context, events []models.ContextEvent) error {
	if len(events) == 0 {
		return nil
	}
	if full, err := d.isStorageFull(ctx); err != nil {
		return err
	} else if full {
		return coreerrors.ErrStorageFull
	}
	return d.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`INSERT INTO events(event_id, event_type, app_name, window_title, timestamp, metadata_json, session_id)
			VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, e := range events {
			metaJSON, err := json.Marshal(e.Metadata)
			if err != nil {
				return fmt.Errorf("marshal metadata: %w", err)
			}
			if _, err := stmt.ExecContext(ctx, e.EventID, string(e.EventType), e.AppName, e.WindowTitle, e.Timestamp.UTC(), string(metaJSON), e.SessionID); err != nil {
				return fmt.Errorf("insert event %s: %w", e.EventID, err)
			}
		}
		return nil
	})
}

// QueryEvents returns a paginated, time-ordered (descending) result set with
// a precomputed total count.
func (d *DB) QueryEvents(ctx context.Context, r TimeRange, filter EventFilter, page Page) ([]models.ContextEvent, Pagination, error) {
	page = page.normalized()
	where, args := buildEventWhere(r, filter)

	var total int
	countQuery := "SELECT COUNT(*) FROM events" + where
	if err := d.sql.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, Pagination{}, fmt.Errorf("count events: %w", err)
	}

	query := "SELECT event_id, event_type, app_name, window_title, timestamp, metadata_json, session_id FROM events" +
		where + " ORDER BY timestamp DESC LIMIT ? OFFSET ?"
	args = append(args, page.Limit, page.Offset)

	rows, err := d.sql.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, Pagination{}, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []models.ContextEvent
	for rows.Next() {
		var e models.ContextEvent
		var eventType, metaJSON string
		if err := rows.Scan(&e.EventID, &eventType, &e.AppName, &e.WindowTitle, &e.Timestamp, &metaJSON, &e.SessionID); err != nil {
			return nil, Pagination{}, fmt.Errorf("scan event: %w", err)
		}
		e.EventType = models.EventType(eventType)
		if metaJSON != "" {
			_ = json.Unmarshal([]byte(metaJSON), &e.Metadata)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, Pagination{}, err
	}
	return out, makePagination(total, page.Offset, page.Limit), nil
}

func buildEventWhere(r TimeRange, f EventFilter) (string, []any) {
	clauses := []string{}
	var args []any
	if !r.From.IsZero() {
		clauses = append(clauses, "timestamp >= ?")
		args = append(args, r.From.UTC())
	}
	if !r.To.IsZero() {
		clauses = append(clauses, "timestamp < ?")
		args = append(args, r.To.UTC())
	}
	if f.AppName != "" {
		clauses = append(clauses, "app_name = ?")
		args = append(args, f.AppName)
	}
	if f.SessionID != "" {
		clauses = append(clauses, "session_id = ?")
		args = append(args, f.SessionID)
	}
	if len(f.EventTypes) > 0 {
		placeholders := ""
		for i, t := range f.EventTypes {
			if i > 0 {
				placeholders += ", "
			}
			placeholders += "?"
			args = append(args, t)
		}
		clauses = append(clauses, "event_type IN ("+placeholders+")")
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
