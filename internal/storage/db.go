// Package storage is the single-writer, multi-reader SQLite persistence
// layer for all core entities: events, metrics, frames, idle periods,
// sessions, tags, and the derived focus-analyzer tables.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/vthunder/bud2/internal/coreerrors"
	"github.com/vthunder/bud2/internal/logging"
)

// RetentionPolicy bounds the Storage Engine's retention sweep (§4.1).
type RetentionPolicy struct {
	RetentionDays int
	MaxStorageMB  int
}

// ProtectedFloor is the age below which retention_sweep never deletes a row,
// a safety margin against unintended loss after clock skew (§9 open question).
const ProtectedFloor = 24 * time.Hour

// DB is the storage engine handle over one database/sql pool shared by reads
// and writes. Writes are not serialized in-process; the write helpers go
// through execWithRetry, which retries when SQLite reports the database
// locked.
type DB struct {
	sql      *sql.DB
	path     string
	artifact string
	policy   RetentionPolicy
}

// Open opens or creates the database at path, configuring WAL journaling
// with NORMAL synchronous and a memory temp store, and runs forward-only
// migrations. artifactDir is the sibling directory for frame image
// artifacts (§6.1).
func Open(path, artifactDir string, policy RetentionPolicy) (*DB, error) {
	return openWithDriver("sqlite3", path, artifactDir, policy)
}

// OpenPure opens the database through the pure-Go modernc.org/sqlite driver
// instead of the default cgo mattn/go-sqlite3 one, for CGO-free entrypoints
// such as the retention tool. Schema and behavior are identical; only the
// driver and DSN pragma syntax differ.
func OpenPure(path, artifactDir string, policy RetentionPolicy) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("storage: mkdir: %w", errors.Join(err, coreerrors.ErrIo))
	}
	if err := os.MkdirAll(artifactDir, 0755); err != nil {
		return nil, fmt.Errorf("storage: mkdir artifacts: %w", errors.Join(err, coreerrors.ErrIo))
	}

	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: open: %w", err)
	}
	return finishOpen("sqlite", sqlDB, path, artifactDir, policy)
}

func openWithDriver(driverName, path, artifactDir string, policy RetentionPolicy) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("storage: mkdir: %w", errors.Join(err, coreerrors.ErrIo))
	}
	if err := os.MkdirAll(artifactDir, 0755); err != nil {
		return nil, fmt.Errorf("storage: mkdir artifacts: %w", errors.Join(err, coreerrors.ErrIo))
	}

	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: open: %w", err)
	}
	return finishOpen(driverName, sqlDB, path, artifactDir, policy)
}

func finishOpen(driverName string, sqlDB *sql.DB, path, artifactDir string, policy RetentionPolicy) (*DB, error) {
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("storage: ping: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA temp_store = MEMORY",
	} {
		if _, err := sqlDB.Exec(pragma); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("storage: pragma %q: %w", pragma, err)
		}
	}

	d := &DB{sql: sqlDB, path: path, artifact: artifactDir, policy: policy}

	if err := d.migrate(); err != nil {
		sqlDB.Close()
		if recovered, rerr := recoverCorruptSchema(driverName, path, artifactDir, policy, err); rerr == nil {
			return recovered, nil
		}
		return nil, fmt.Errorf("storage: migrate: %w", errors.Join(err, coreerrors.ErrSchemaCorrupt))
	}

	return d, nil
}

// recoverCorruptSchema implements the one-shot recovery: rename the
// database aside and start fresh (§7, "Storage" taxonomy entry).
func recoverCorruptSchema(driverName, path, artifactDir string, policy RetentionPolicy, cause error) (*DB, error) {
	backup := path + fmt.Sprintf(".corrupt-%d", time.Now().UnixNano())
	if err := os.Rename(path, backup); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("recovery rename failed: %w (original: %v)", err, cause)
	}
	logging.Warn("storage", "schema corrupt, recovered by rename-aside", logging.F("backup", backup), logging.F("cause", cause))
	return openWithDriver(driverName, path, artifactDir, policy)
}

func (d *DB) Close() error {
	return d.sql.Close()
}

// Path returns the database file path (used by the retention sweep to
// measure on-disk size).
func (d *DB) Path() string { return d.path }

// ArtifactDir returns the frame artifact directory.
func (d *DB) ArtifactDir() string { return d.artifact }

const currentSchemaVersion = 1

func (d *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sessions (
		session_id TEXT PRIMARY KEY,
		started_at DATETIME NOT NULL,
		ended_at DATETIME,
		total_events INTEGER NOT NULL DEFAULT 0,
		total_frames INTEGER NOT NULL DEFAULT 0,
		total_idle_secs REAL NOT NULL DEFAULT 0,
		active_duration_secs REAL
	);

	CREATE TABLE IF NOT EXISTS events (
		event_id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		app_name TEXT,
		window_title TEXT,
		timestamp DATETIME NOT NULL,
		metadata_json TEXT,
		session_id TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_events_timestamp ON events(timestamp);
	CREATE INDEX IF NOT EXISTS idx_events_type ON events(event_type);
	CREATE INDEX IF NOT EXISTS idx_events_app ON events(app_name);

	CREATE TABLE IF NOT EXISTS frames (
		frame_id TEXT PRIMARY KEY,
		timestamp DATETIME NOT NULL,
		trigger_type TEXT NOT NULL,
		app_name TEXT,
		window_title TEXT,
		importance REAL NOT NULL,
		width INTEGER,
		height INTEGER,
		ocr_text TEXT,
		file_path TEXT,
		payload_kind TEXT NOT NULL,
		state TEXT NOT NULL DEFAULT 'persisted',
		uploaded_at DATETIME
	);
	CREATE INDEX IF NOT EXISTS idx_frames_timestamp ON frames(timestamp);
	CREATE INDEX IF NOT EXISTS idx_frames_app ON frames(app_name);

	CREATE TABLE IF NOT EXISTS tags (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE COLLATE NOCASE,
		color TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS frame_tags (
		frame_id TEXT NOT NULL,
		tag_id INTEGER NOT NULL,
		PRIMARY KEY (frame_id, tag_id),
		FOREIGN KEY (frame_id) REFERENCES frames(frame_id) ON DELETE CASCADE,
		FOREIGN KEY (tag_id) REFERENCES tags(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_frame_tags_tag ON frame_tags(tag_id);

	CREATE TABLE IF NOT EXISTS metrics (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME NOT NULL,
		cpu_pct REAL NOT NULL,
		mem_used INTEGER NOT NULL,
		mem_total INTEGER NOT NULL,
		mem_available INTEGER NOT NULL,
		disk_used INTEGER NOT NULL,
		disk_total INTEGER NOT NULL,
		disk_read_bps REAL NOT NULL DEFAULT 0,
		disk_write_bps REAL NOT NULL DEFAULT 0,
		net_up REAL NOT NULL DEFAULT 0,
		net_down REAL NOT NULL DEFAULT 0,
		net_up_packets INTEGER NOT NULL DEFAULT 0,
		net_down_packets INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_metrics_timestamp ON metrics(timestamp);

	CREATE TABLE IF NOT EXISTS process_snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME NOT NULL,
		payload_json TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_process_snapshots_timestamp ON process_snapshots(timestamp);

	CREATE TABLE IF NOT EXISTS idle_periods (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		start_ts DATETIME NOT NULL,
		end_ts DATETIME,
		duration_secs REAL
	);
	CREATE INDEX IF NOT EXISTS idx_idle_periods_start ON idle_periods(start_ts);

	CREATE TABLE IF NOT EXISTS work_sessions (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		ended_at DATETIME,
		primary_app TEXT,
		category TEXT NOT NULL,
		state TEXT NOT NULL,
		interruption_count INTEGER NOT NULL DEFAULT 0,
		deep_work_secs REAL NOT NULL DEFAULT 0,
		communication_secs REAL NOT NULL DEFAULT 0,
		duration_secs REAL NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_work_sessions_session ON work_sessions(session_id);
	CREATE INDEX IF NOT EXISTS idx_work_sessions_state ON work_sessions(state);

	CREATE TABLE IF NOT EXISTS interruptions (
		id TEXT PRIMARY KEY,
		work_session_id TEXT NOT NULL,
		interrupted_at DATETIME NOT NULL,
		from_app TEXT,
		from_category TEXT,
		to_app TEXT,
		to_category TEXT,
		resumed_at DATETIME,
		resumed_to_app TEXT,
		duration_secs REAL
	);
	CREATE INDEX IF NOT EXISTS idx_interruptions_session ON interruptions(work_session_id);

	CREATE TABLE IF NOT EXISTS focus_metrics (
		date TEXT PRIMARY KEY,
		total_active_secs REAL NOT NULL DEFAULT 0,
		deep_work_secs REAL NOT NULL DEFAULT 0,
		communication_secs REAL NOT NULL DEFAULT 0,
		context_switches INTEGER NOT NULL DEFAULT 0,
		interruption_count INTEGER NOT NULL DEFAULT 0,
		avg_focus_duration_secs REAL NOT NULL DEFAULT 0,
		max_focus_duration_secs REAL NOT NULL DEFAULT 0,
		focus_score INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS local_suggestions (
		id TEXT PRIMARY KEY,
		suggestion_type TEXT NOT NULL,
		payload_json TEXT,
		created_at DATETIME NOT NULL,
		shown_at DATETIME,
		dismissed_at DATETIME,
		acted_at DATETIME,
		source TEXT NOT NULL DEFAULT 'local'
	);
	CREATE INDEX IF NOT EXISTS idx_suggestions_type_created ON local_suggestions(suggestion_type, created_at);

	CREATE TABLE IF NOT EXISTS execution_policies (
		id TEXT PRIMARY KEY,
		process_name TEXT NOT NULL,
		binary_hash TEXT,
		allowed_arg_patterns_json TEXT,
		requires_sudo INTEGER NOT NULL DEFAULT 0,
		audit_level TEXT NOT NULL DEFAULT 'none',
		sandbox_profile TEXT NOT NULL DEFAULT 'standard'
	);

	CREATE TABLE IF NOT EXISTS audit_log (
		entry_id TEXT PRIMARY KEY,
		timestamp DATETIME NOT NULL,
		session_id TEXT,
		command_id TEXT,
		action_type TEXT,
		status TEXT,
		details TEXT,
		execution_time_ms INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_audit_log_timestamp ON audit_log(timestamp);

	CREATE TABLE IF NOT EXISTS workflow_presets (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT,
		category TEXT NOT NULL,
		steps_json TEXT NOT NULL,
		builtin INTEGER NOT NULL DEFAULT 0,
		platform TEXT
	);
	`
	if _, err := d.sql.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}

	var count int
	if err := d.sql.QueryRow(`SELECT COUNT(*) FROM schema_version`).Scan(&count); err != nil {
		return fmt.Errorf("read schema_version: %w", err)
	}
	if count == 0 {
		if _, err := d.sql.Exec(`INSERT INTO schema_version(version) VALUES (?)`, currentSchemaVersion); err != nil {
			return fmt.Errorf("seed schema_version: %w", err)
		}
	}
	return nil
}

// execWithRetry retries transient lock failures with exponential backoff up
// to 3 attempts (§4.1 failure semantics).
func (d *DB) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	var lastErr error
	backoff := 50 * time.Millisecond
	for attempt := 0; attempt < 3; attempt++ {
		res, err := d.sql.ExecContext(ctx, query, args...)
		if err == nil {
			return res, nil
		}
		lastErr = err
		if !isLockError(err) {
			return nil, err
		}
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		backoff *= 2
	}
	return nil, fmt.Errorf("storage: exec retry exhausted: %w", lastErr)
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return contains(msg, "locked") || contains(msg, "busy")
}

func contains(s, sub string) bool {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}

// withTx runs fn inside a transaction, committing on success and rolling
// back on error or panic.
func (d *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
		if err != nil {
			tx.Rollback()
			return
		}
		err = tx.Commit()
	}()
	err = fn(tx)
	return err
}
