package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vthunder/bud2/internal/models"
)

// UpsertExecutionPolicy stores a policy record; the core never interprets
// its contents beyond storage and retrieval.
func (d *DB) UpsertExecutionPolicy(ctx context.Context, p models.ExecutionPolicy) error {
	patterns, err := json.Marshal(p.AllowedArgPatterns)
	if err != nil {
		return fmt.Errorf("marshal allowed arg patterns: %w", err)
	}
	_, err = d.execWithRetry(ctx, `INSERT INTO execution_policies
		(id, process_name, binary_hash, allowed_arg_patterns_json, requires_sudo, audit_level, sandbox_profile)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET process_name=excluded.process_name, binary_hash=excluded.binary_hash,
			allowed_arg_patterns_json=excluded.allowed_arg_patterns_json, requires_sudo=excluded.requires_sudo,
			audit_level=excluded.audit_level, sandbox_profile=excluded.sandbox_profile`,
		p.ID, p.ProcessName, p.BinaryHash, string(patterns), p.RequiresSudo, string(p.AuditLevel), string(p.SandboxProfile))
	if err != nil {
		return fmt.Errorf("upsert execution policy: %w", err)
	}
	return nil
}

// GetExecutionPolicy reads a policy by id, or nil if absent.
func (d *DB) GetExecutionPolicy(ctx context.Context, id string) (*models.ExecutionPolicy, error) {
	row := d.sql.QueryRowContext(ctx, `SELECT id, process_name, binary_hash, allowed_arg_patterns_json,
		requires_sudo, audit_level, sandbox_profile FROM execution_policies WHERE id = ?`, id)
	p, err := scanExecutionPolicy(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

// ListExecutionPolicies returns every stored policy.
func (d *DB) ListExecutionPolicies(ctx context.Context) ([]models.ExecutionPolicy, error) {
	rows, err := d.sql.QueryContext(ctx, `SELECT id, process_name, binary_hash, allowed_arg_patterns_json,
		requires_sudo, audit_level, sandbox_profile FROM execution_policies ORDER BY process_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.ExecutionPolicy
	for rows.Next() {
		var p models.ExecutionPolicy
		var patterns string
		var auditLevel, sandbox string
		if err := rows.Scan(&p.ID, &p.ProcessName, &p.BinaryHash, &patterns, &p.RequiresSudo, &auditLevel, &sandbox); err != nil {
			return nil, err
		}
		if patterns != "" {
			_ = json.Unmarshal([]byte(patterns), &p.AllowedArgPatterns)
		}
		p.AuditLevel = models.AuditLevel(auditLevel)
		p.SandboxProfile = models.SandboxProfile(sandbox)
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanExecutionPolicy(row *sql.Row) (*models.ExecutionPolicy, error) {
	var p models.ExecutionPolicy
	var patterns string
	var auditLevel, sandbox string
	if err := row.Scan(&p.ID, &p.ProcessName, &p.BinaryHash, &patterns, &p.RequiresSudo, &auditLevel, &sandbox); err != nil {
		return nil, err
	}
	if patterns != "" {
		_ = json.Unmarshal([]byte(patterns), &p.AllowedArgPatterns)
	}
	p.AuditLevel = models.AuditLevel(auditLevel)
	p.SandboxProfile = models.SandboxProfile(sandbox)
	return &p, nil
}

// DeleteExecutionPolicy removes a policy by id. Idempotent.
func (d *DB) DeleteExecutionPolicy(ctx context.Context, id string) error {
	_, err := d.execWithRetry(ctx, `DELETE FROM execution_policies WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete execution policy: %w", err)
	}
	return nil
}

// InsertAuditEntry appends one audit log row. Written by an external
// automation engine; the core never mutates or deletes an entry once
// written, only the retention sweep ages it out.
func (d *DB) InsertAuditEntry(ctx context.Context, e models.AuditEntry) error {
	_, err := d.execWithRetry(ctx, `INSERT INTO audit_log
		(entry_id, timestamp, session_id, command_id, action_type, status, details, execution_time_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.EntryID, e.Timestamp.UTC(), e.SessionID, e.CommandID, e.ActionType, e.Status, e.Details, e.ExecutionTimeMs)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// QueryAuditLog returns audit entries in a time range, newest first.
func (d *DB) QueryAuditLog(ctx context.Context, r TimeRange, sessionID string, page Page) ([]models.AuditEntry, Pagination, error) {
	page = page.normalized()
	where, args := timeRangeWhere("timestamp", r)
	if sessionID != "" {
		if where == "" {
			where = " WHERE session_id = ?"
		} else {
			where += " AND session_id = ?"
		}
		args = append(args, sessionID)
	}
	var total int
	if err := d.sql.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_log"+where, args...).Scan(&total); err != nil {
		return nil, Pagination{}, err
	}
	query := `SELECT entry_id, timestamp, session_id, command_id, action_type, status, details, execution_time_ms
		FROM audit_log` + where + " ORDER BY timestamp DESC LIMIT ? OFFSET ?"
	rows, err := d.sql.QueryContext(ctx, query, append(append([]any{}, args...), page.Limit, page.Offset)...)
	if err != nil {
		return nil, Pagination{}, err
	}
	defer rows.Close()
	var out []models.AuditEntry
	for rows.Next() {
		var e models.AuditEntry
		if err := rows.Scan(&e.EntryID, &e.Timestamp, &e.SessionID, &e.CommandID, &e.ActionType, &e.Status, &e.Details, &e.ExecutionTimeMs); err != nil {
			return nil, Pagination{}, err
		}
		out = append(out, e)
	}
	return out, makePagination(total, page.Offset, page.Limit), rows.Err()
}

// UpsertWorkflowPreset stores a preset; builtin presets are seeded once and
// never overwritten by a user-authored preset sharing the same id.
func (d *DB) UpsertWorkflowPreset(ctx context.Context, p models.WorkflowPreset) error {
	steps, err := json.Marshal(p.Steps)
	if err != nil {
		return fmt.Errorf("marshal preset steps: %w", err)
	}
	_, err = d.execWithRetry(ctx, `INSERT INTO workflow_presets
		(id, name, description, category, steps_json, builtin, platform)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name=excluded.name, description=excluded.description,
			category=excluded.category, steps_json=excluded.steps_json, platform=excluded.platform
		WHERE NOT (workflow_presets.builtin = 1 AND excluded.builtin = 0)`,
		p.ID, p.Name, p.Description, string(p.Category), string(steps), p.Builtin, p.Platform)
	if err != nil {
		return fmt.Errorf("upsert workflow preset: %w", err)
	}
	return nil
}

// ListWorkflowPresets returns presets, optionally filtered by category.
func (d *DB) ListWorkflowPresets(ctx context.Context, category models.PresetCategory) ([]models.WorkflowPreset, error) {
	query := `SELECT id, name, description, category, steps_json, builtin, platform FROM workflow_presets`
	var args []any
	if category != "" {
		query += " WHERE category = ?"
		args = append(args, string(category))
	}
	query += " ORDER BY name"
	rows, err := d.sql.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.WorkflowPreset
	for rows.Next() {
		var p models.WorkflowPreset
		var category string
		var steps string
		var platform sql.NullString
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &category, &steps, &p.Builtin, &platform); err != nil {
			return nil, err
		}
		p.Category = models.PresetCategory(category)
		if steps != "" {
			_ = json.Unmarshal([]byte(steps), &p.Steps)
		}
		if platform.Valid {
			p.Platform = platform.String
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// DeleteWorkflowPreset removes a user-authored preset. Builtin presets are
// reseeded on next startup by whatever loads the default set, so deleting
// one here only affects this process's view until that reseed runs.
func (d *DB) DeleteWorkflowPreset(ctx context.Context, id string) error {
	_, err := d.execWithRetry(ctx, `DELETE FROM workflow_presets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete workflow preset: %w", err)
	}
	return nil
}
