package journal

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"cardoff/internal/config"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is bumped on incompatible schema changes; the journal is an
// audit log, so a mismatch asks the user to archive the old database rather
// than migrating in place.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database was written by a different version.
var ErrSchemaMismatch = errors.New("journal schema version mismatch")

// ErrRunNotFound indicates no run exists with the requested ID.
var ErrRunNotFound = errors.New("run not found")

// Store manages journal persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the journal database under LogDir.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(filepath.Join(cfg.Paths.LogDir, "journal.db"))
}

// OpenPath opens the journal at an explicit database path.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin schema tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
			return fmt.Errorf("record schema version: %w", err)
		}
		return tx.Commit()
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (archive %s and retry)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

// BeginRun records a freshly started run.
func (s *Store) BeginRun(ctx context.Context, id, profile, source string) (*Run, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, profile, source, status, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		id, profile, source, StatusRunning, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return s.GetRun(ctx, id)
}

// SetRoute records the routing decision once it is made.
func (s *Store) SetRoute(ctx context.Context, id, route, destination string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET route = ?, destination = ?, updated_at = ? WHERE id = ?`,
		route, destination, now, id,
	)
	if err != nil {
		return fmt.Errorf("update route: %w", err)
	}
	return requireRow(res, id)
}

// CompleteRun marks a run finished with its final counters.
func (s *Store) CompleteRun(ctx context.Context, id string, files int, bytes int64) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, files = ?, bytes = ?, updated_at = ?, completed_at = ?
         WHERE id = ?`,
		StatusCompleted, files, bytes, now, now, id,
	)
	if err != nil {
		return fmt.Errorf("complete run: %w", err)
	}
	return requireRow(res, id)
}

// FailRun marks a run failed with its taxonomy kind and message.
func (s *Store) FailRun(ctx context.Context, id, kind, message string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, failure_kind = ?, failure_message = ?, updated_at = ?, completed_at = ?
         WHERE id = ?`,
		StatusFailed, kind, message, now, now, id,
	)
	if err != nil {
		return fmt.Errorf("fail run: %w", err)
	}
	return requireRow(res, id)
}

// GetRun fetches one run by ID.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, profile, source, destination, route, status, files, bytes,
                failure_kind, failure_message, created_at, updated_at, completed_at
         FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return run, err
}

// ListRuns returns up to limit runs, newest first. A limit below 1 returns
// everything.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	query := `SELECT id, profile, source, destination, route, status, files, bytes,
                     failure_kind, failure_message, created_at, updated_at, completed_at
              FROM runs ORDER BY created_at DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// RecordCleanup journals the files a cleanup pass is about to delete. The
// batch commits as one transaction before any unlink happens.
func (s *Store) RecordCleanup(ctx context.Context, runID string, records []CleanupRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin cleanup tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO cleanup_audit (run_id, rel_path, size, digest, recorded_at)
         VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare cleanup insert: %w", err)
	}
	defer stmt.Close()

	for _, record := range records {
		if _, err := stmt.ExecContext(ctx, runID, record.Rel, record.Size, record.Digest, now); err != nil {
			return fmt.Errorf("insert cleanup record %s: %w", record.Rel, err)
		}
	}
	return tx.Commit()
}

// CleanupAudit returns the journaled deletions for one run, ordered by path.
func (s *Store) CleanupAudit(ctx context.Context, runID string) ([]CleanupRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, rel_path, size, digest, recorded_at
         FROM cleanup_audit WHERE run_id = ? ORDER BY rel_path`, runID)
	if err != nil {
		return nil, fmt.Errorf("list cleanup audit: %w", err)
	}
	defer rows.Close()

	var records []CleanupRecord
	for rows.Next() {
		var record CleanupRecord
		var recordedAt string
		if err := rows.Scan(&record.RunID, &record.Rel, &record.Size, &record.Digest, &recordedAt); err != nil {
			return nil, fmt.Errorf("scan cleanup record: %w", err)
		}
		record.RecordedAt, err = parseTime(recordedAt)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var createdAt, updatedAt string
	var completedAt sql.NullString
	err := row.Scan(
		&run.ID, &run.Profile, &run.Source, &run.Destination, &run.Route,
		&run.Status, &run.Files, &run.Bytes, &run.FailureKind, &run.FailureMessage,
		&createdAt, &updatedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}

	if run.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if run.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if completedAt.Valid {
		completed, err := parseTime(completedAt.String)
		if err != nil {
			return nil, err
		}
		run.CompletedAt = &completed
	}
	return &run, nil
}

func parseTime(value string) (time.Time, error) {
	parsed, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", value, err)
	}
	return parsed, nil
}

func requireRow(res sql.Result, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}
