package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vthunder/bud2/internal/models"
)

// InsertFrame atomically writes the frame row and its optional image
// artifact. On file I/O failure the row is not inserted (§4.1).
func (d *DB) InsertFrame(ctx context.Context, f models.ProcessedFrame, artifact []byte) error {
	if len(artifact) > 0 && f.FilePath != "" {
		fullPath := filepath.Join(d.artifact, f.FilePath)
		if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
			return fmt.Errorf("insert frame: mkdir artifact dir: %w", err)
		}
		if err := os.WriteFile(fullPath, artifact, 0644); err != nil {
			return fmt.Errorf("insert frame: write artifact: %w", err)
		}
	}

	_, err := d.execWithRetry(ctx, `INSERT INTO frames
		(frame_id, timestamp, trigger_type, app_name, window_title, importance, width, height, ocr_text, file_path, payload_kind, state, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)`,
		f.FrameID, f.Timestamp.UTC(), f.TriggerType, f.AppName, f.WindowTitle, f.Importance,
		f.Width, f.Height, nullIfEmpty(f.OCRText), nullIfEmpty(f.FilePath), string(f.ImagePayloadKind), string(models.FramePersisted))
	if err != nil {
		if len(artifact) > 0 && f.FilePath != "" {
			_ = os.Remove(filepath.Join(d.artifact, f.FilePath))
		}
		return fmt.Errorf("insert frame row: %w", err)
	}
	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// QueryFrames returns a paginated, time-ordered (descending) result set,
// optionally filtered by tag membership.
func (d *DB) QueryFrames(ctx context.Context, r TimeRange, filter FrameFilter, page Page) ([]models.ProcessedFrame, Pagination, error) {
	page = page.normalized()
	where, args, joinTags := buildFrameWhere(r, filter)

	base := "FROM frames f" + joinTags + where
	var total int
	if err := d.sql.QueryRowContext(ctx, "SELECT COUNT(DISTINCT f.frame_id) "+base, args...).Scan(&total); err != nil {
		return nil, Pagination{}, fmt.Errorf("count frames: %w", err)
	}

	query := "SELECT DISTINCT f.frame_id, f.timestamp, f.trigger_type, f.app_name, f.window_title, f.importance, f.width, f.height, f.ocr_text, f.file_path, f.payload_kind, f.state " +
		base + " ORDER BY f.timestamp DESC LIMIT ? OFFSET ?"
	queryArgs := append(append([]any{}, args...), page.Limit, page.Offset)

	rows, err := d.sql.QueryContext(ctx, query, queryArgs...)
	if err != nil {
		return nil, Pagination{}, fmt.Errorf("query frames: %w", err)
	}
	defer rows.Close()

	var out []models.ProcessedFrame
	for rows.Next() {
		var f models.ProcessedFrame
		var payloadKind, state string
		var ocrText, filePath sql.NullString
		var width, height sql.NullInt64
		if err := rows.Scan(&f.FrameID, &f.Timestamp, &f.TriggerType, &f.AppName, &f.WindowTitle, &f.Importance,
			&width, &height, &ocrText, &filePath, &payloadKind, &state); err != nil {
			return nil, Pagination{}, fmt.Errorf("scan frame: %w", err)
		}
		f.Width = int(width.Int64)
		f.Height = int(height.Int64)
		f.OCRText = ocrText.String
		f.FilePath = filePath.String
		f.ImagePayloadKind = models.ImagePayloadKind(payloadKind)
		f.State = models.FrameState(state)
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, Pagination{}, err
	}
	for i := range out {
		tagIDs, err := d.tagIDsForFrame(ctx, out[i].FrameID)
		if err != nil {
			return nil, Pagination{}, err
		}
		out[i].TagIDs = tagIDs
	}
	return out, makePagination(total, page.Offset, page.Limit), nil
}

func buildFrameWhere(r TimeRange, f FrameFilter) (string, []any, string) {
	clauses := []string{}
	var args []any
	join := ""
	if !r.From.IsZero() {
		clauses = append(clauses, "f.timestamp >= ?")
		args = append(args, r.From.UTC())
	}
	if !r.To.IsZero() {
		clauses = append(clauses, "f.timestamp < ?")
		args = append(args, r.To.UTC())
	}
	if f.AppName != "" {
		clauses = append(clauses, "f.app_name = ?")
		args = append(args, f.AppName)
	}
	if f.TriggerType != "" {
		clauses = append(clauses, "f.trigger_type = ?")
		args = append(args, f.TriggerType)
	}
	if len(f.TagIDs) > 0 {
		join = " JOIN frame_tags ft ON ft.frame_id = f.frame_id"
		placeholders := ""
		for i, id := range f.TagIDs {
			if i > 0 {
				placeholders += ", "
			}
			placeholders += "?"
			args = append(args, id)
		}
		clauses = append(clauses, "ft.tag_id IN ("+placeholders+")")
	}
	if len(clauses) == 0 {
		return "", args, join
	}
	where := " WHERE " + clauses[0]
	for _, c := range clauses[1:] {
		where += " AND " + c
	}
	return where, args, join
}
