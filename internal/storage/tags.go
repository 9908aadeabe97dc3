package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vthunder/bud2/internal/models"
)

// CreateTag creates a tag; name uniqueness is case-insensitive.
func (d *DB) CreateTag(ctx context.Context, name, color string, now time.Time) (*models.Tag, error) {
	res, err := d.execWithRetry(ctx, `INSERT INTO tags(name, color, created_at) VALUES (?, ?, ?)`, name, color, now.UTC())
	if err != nil {
		return nil, fmt.Errorf("create tag: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &models.Tag{ID: id, Name: name, Color: color, CreatedAt: now.UTC()}, nil
}

// GetTagByName performs a case-insensitive lookup.
func (d *DB) GetTagByName(ctx context.Context, name string) (*models.Tag, error) {
	row := d.sql.QueryRowContext(ctx, `SELECT id, name, color, created_at FROM tags WHERE LOWER(name) = LOWER(?)`, name)
	var t models.Tag
	if err := row.Scan(&t.ID, &t.Name, &t.Color, &t.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

// ListTags returns all tags ordered by name.
func (d *DB) ListTags(ctx context.Context) ([]models.Tag, error) {
	rows, err := d.sql.QueryContext(ctx, `SELECT id, name, color, created_at FROM tags ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Tag
	for rows.Next() {
		var t models.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Color, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// DeleteTag removes a tag and cascades membership deletion. Idempotent: a
// second call on the same id is a no-op.
func (d *DB) DeleteTag(ctx context.Context, id int64) error {
	_, err := d.execWithRetry(ctx, `DELETE FROM tags WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete tag: %w", err)
	}
	return nil
}

// TagFrame attaches a tag to a frame. Idempotent via INSERT OR IGNORE.
func (d *DB) TagFrame(ctx context.Context, frameID string, tagID int64) error {
	_, err := d.execWithRetry(ctx, `INSERT OR IGNORE INTO frame_tags(frame_id, tag_id) VALUES (?, ?)`, frameID, tagID)
	if err != nil {
		return fmt.Errorf("tag frame: %w", err)
	}
	return nil
}

// UntagFrame removes a tag from a frame. Idempotent.
func (d *DB) UntagFrame(ctx context.Context, frameID string, tagID int64) error {
	_, err := d.execWithRetry(ctx, `DELETE FROM frame_tags WHERE frame_id = ? AND tag_id = ?`, frameID, tagID)
	if err != nil {
		return fmt.Errorf("untag frame: %w", err)
	}
	return nil
}

func (d *DB) tagIDsForFrame(ctx context.Context, frameID string) ([]int64, error) {
	rows, err := d.sql.QueryContext(ctx, `SELECT tag_id FROM frame_tags WHERE frame_id = ? ORDER BY tag_id`, frameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// ResolveTagIDs resolves tag name strings to ids, case-insensitively.
func (d *DB) ResolveTagIDs(ctx context.Context, names []string) ([]int64, error) {
	var ids []int64
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		t, err := d.GetTagByName(ctx, n)
		if err != nil {
			return nil, err
		}
		if t != nil {
			ids = append(ids, t.ID)
		}
	}
	return ids, nil
}
