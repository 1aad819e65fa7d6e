// Package store provides the shared SQLite persistence layer. Modules own
// their tables and register migrations under their module name; the store
// tracks applied migrations and the schema's app version.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/mod/semver"
	_ "modernc.org/sqlite" // pure-Go SQLite driver

	"github.com/readyrun/readyrun/pkg/plugin"
)

// ErrNewerSchema means the database file was written by a newer ReadyRun
// build than the one running.
var ErrNewerSchema = errors.New("database was created by a newer version of ReadyRun")

var _ plugin.Store = (*SQLiteStore)(nil)

// SQLiteStore implements plugin.Store on top of a single SQLite file.
type SQLiteStore struct {
	db      *sql.DB
	mu      sync.Mutex // serializes migrations
	tracked sync.Once  // schema_migrations table creation
}

// Pragmas applied on open. modernc.org/sqlite wants them as statements,
// not DSN parameters.
var openPragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA foreign_keys=ON",
	"PRAGMA cache_size=-20000",
}

// New opens (or creates) the database at path. A single write connection
// with WAL keeps writers serialized while readers proceed concurrently.
func New(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite %q: %w", path, err)
	}
	for _, p := range openPragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %q: %w", p, err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

// DB exposes the underlying handle for module queries.
func (s *SQLiteStore) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// Tx runs fn inside a transaction, committing on nil and rolling back on
// error.
func (s *SQLiteStore) Tx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback: %v (after: %w)", rbErr, err)
		}
		return err
	}
	return tx.Commit()
}

// Migrate applies the module's pending migrations in order. Each migration
// runs in its own transaction together with its tracking row, so a failed
// Up leaves no trace.
func (s *SQLiteStore) Migrate(ctx context.Context, moduleName string, migrations []plugin.Migration) error {
	if err := s.initTracking(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	applied, err := s.appliedVersions(ctx, moduleName)
	if err != nil {
		return err
	}
	for _, m := range migrations {
		if applied[m.Version] {
			continue
		}
		err := s.Tx(ctx, func(tx *sql.Tx) error {
			if err := m.Up(tx); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx,
				"INSERT INTO schema_migrations (module, version, description) VALUES (?, ?, ?)",
				moduleName, m.Version, m.Description)
			return err
		})
		if err != nil {
			return fmt.Errorf("migration %s/%d (%s): %w", moduleName, m.Version, m.Description, err)
		}
	}
	return nil
}

// CheckVersion refuses to open a database written by a newer build and
// records the running version otherwise. "dev" builds always pass.
func (s *SQLiteStore) CheckVersion(ctx context.Context, currentVersion string) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_info (
			id          INTEGER  PRIMARY KEY CHECK (id = 1),
			app_version TEXT     NOT NULL,
			updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`)
	if err != nil {
		return fmt.Errorf("create schema_info: %w", err)
	}

	var stored string
	err = s.db.QueryRowContext(ctx, "SELECT app_version FROM schema_info WHERE id = 1").Scan(&stored)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		stored = ""
	case err != nil:
		return fmt.Errorf("read schema version: %w", err)
	}

	if stored != "" && stored != "dev" && currentVersion != "dev" {
		if semver.Compare(canonical(currentVersion), canonical(stored)) < 0 {
			return fmt.Errorf("%w: database=%s, binary=%s", ErrNewerSchema, stored, currentVersion)
		}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO schema_info (id, app_version) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET app_version = excluded.app_version, updated_at = CURRENT_TIMESTAMP`,
		currentVersion)
	if err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	return nil
}

func (s *SQLiteStore) initTracking(ctx context.Context) error {
	var err error
	s.tracked.Do(func() {
		_, err = s.db.ExecContext(ctx, `
			CREATE TABLE IF NOT EXISTS schema_migrations (
				module      TEXT    NOT NULL,
				version     INTEGER NOT NULL,
				description TEXT    NOT NULL,
				applied_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				PRIMARY KEY (module, version)
			)`)
	})
	return err
}

func (s *SQLiteStore) appliedVersions(ctx context.Context, moduleName string) (map[int]bool, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT version FROM schema_migrations WHERE module = ?", moduleName)
	if err != nil {
		return nil, fmt.Errorf("read applied migrations for %s: %w", moduleName, err)
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		applied[v] = true
	}
	return applied, rows.Err()
}

// canonical gives the version a "v" prefix so semver.Compare accepts it.
func canonical(v string) string {
	if v != "" && v[0] != 'v' {
		return "v" + v
	}
	return v
}
