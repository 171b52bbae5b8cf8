package tagcache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// schemaVersion is the current schema version. Bump this when the schema
// changes; stale databases are rejected rather than migrated because cached
// tag values are cheap to rebuild.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database was written by a different
// schema version.
var ErrSchemaMismatch = errors.New("tag cache schema version mismatch")

const schemaSQL = `
CREATE TABLE schema_version (
    version INTEGER NOT NULL
);

CREATE TABLE tag_values (
    content_key TEXT NOT NULL,
    tag_code    TEXT NOT NULL,
    tag_value   TEXT NOT NULL,
    cached_at   TEXT NOT NULL,
    PRIMARY KEY (content_key, tag_code)
);
`

// Store is a content-addressed tag value cache backed by SQLite. It
// satisfies the read-through cache contract used by the tag reader.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the tag cache database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
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
func (s *Store) Path() string { return s.path }

// Get returns the cached value for one tag of one file content.
func (s *Store) Get(contentKey, code string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(
		"SELECT tag_value FROM tag_values WHERE content_key = ? AND tag_code = ?",
		contentKey, code,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("query tag value: %w", err)
	}
	return value, true, nil
}

// Put records a tag value for one file content, replacing any earlier value.
func (s *Store) Put(contentKey, code, value string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.Exec(
		`INSERT INTO tag_values (content_key, tag_code, tag_value, cached_at)
         VALUES (?, ?, ?, ?)
         ON CONFLICT (content_key, tag_code) DO UPDATE SET
             tag_value = excluded.tag_value,
             cached_at = excluded.cached_at`,
		contentKey, code, value, now,
	)
	if err != nil {
		return fmt.Errorf("store tag value: %w", err)
	}
	return nil
}

// Purge removes every cached value for one file content.
func (s *Store) Purge(contentKey string) error {
	if _, err := s.db.Exec("DELETE FROM tag_values WHERE content_key = ?", contentKey); err != nil {
		return fmt.Errorf("purge tag values: %w", err)
	}
	return nil
}

// Stats reports the number of cached values and distinct file contents.
func (s *Store) Stats() (values, contents int64, err error) {
	err = s.db.QueryRow(
		"SELECT COUNT(*), COUNT(DISTINCT content_key) FROM tag_values",
	).Scan(&values, &contents)
	if err != nil {
		return 0, 0, fmt.Errorf("count tag values: %w", err)
	}
	return values, contents, nil
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
		return s.createSchema(ctx)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to rebuild)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
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
