package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/readyrun/readyrun/pkg/plugin"
)

func testDB(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestMigrate_AppliesOnce(t *testing.T) {
	s := testDB(t)
	ctx := context.Background()

	applied := 0
	migs := []plugin.Migration{
		{
			Version:     1,
			Description: "create table",
			Up: func(tx *sql.Tx) error {
				applied++
				_, err := tx.Exec(`CREATE TABLE t (id INTEGER PRIMARY KEY)`)
				return err
			},
		},
	}

	if err := s.Migrate(ctx, "trainlog", migs); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if err := s.Migrate(ctx, "trainlog", migs); err != nil {
		t.Fatalf("Migrate() second run error = %v", err)
	}
	if applied != 1 {
		t.Errorf("migration applied %d times, want 1", applied)
	}
}

func TestMigrate_IsolatedPerModule(t *testing.T) {
	s := testDB(t)
	ctx := context.Background()

	mig := func(table string) []plugin.Migration {
		return []plugin.Migration{{
			Version:     1,
			Description: "create " + table,
			Up: func(tx *sql.Tx) error {
				_, err := tx.Exec(`CREATE TABLE ` + table + ` (id INTEGER PRIMARY KEY)`)
				return err
			},
		}}
	}

	if err := s.Migrate(ctx, "trainlog", mig("training_log")); err != nil {
		t.Fatalf("Migrate(trainlog) error = %v", err)
	}
	if err := s.Migrate(ctx, "auth", mig("auth_users")); err != nil {
		t.Fatalf("Migrate(auth) error = %v", err)
	}
}

func TestMigrate_RollsBackOnFailure(t *testing.T) {
	s := testDB(t)
	ctx := context.Background()

	migs := []plugin.Migration{{
		Version:     1,
		Description: "create then fail",
		Up: func(tx *sql.Tx) error {
			if _, err := tx.Exec(`CREATE TABLE half_done (id INTEGER PRIMARY KEY)`); err != nil {
				return err
			}
			return errors.New("forced failure")
		},
	}}

	if err := s.Migrate(ctx, "trainlog", migs); err == nil {
		t.Fatal("Migrate() did not propagate migration failure")
	}

	// The failed migration's table must not exist.
	var name string
	err := s.DB().QueryRow(
		`SELECT name FROM sqlite_master WHERE type='table' AND name='half_done'`,
	).Scan(&name)
	if err != sql.ErrNoRows {
		t.Errorf("half_done table exists after rollback (err = %v)", err)
	}
}

func TestTx_RollsBackOnError(t *testing.T) {
	s := testDB(t)
	ctx := context.Background()

	if _, err := s.DB().Exec(`CREATE TABLE t (id INTEGER PRIMARY KEY)`); err != nil {
		t.Fatalf("create table: %v", err)
	}

	err := s.Tx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT INTO t (id) VALUES (1)`); err != nil {
			return err
		}
		return errors.New("abort")
	})
	if err == nil {
		t.Fatal("Tx() swallowed the error")
	}

	var count int
	if err := s.DB().QueryRow(`SELECT COUNT(*) FROM t`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Errorf("rows after rollback = %d, want 0", count)
	}
}

func TestCheckVersion_FirstRunRecords(t *testing.T) {
	s := testDB(t)
	ctx := context.Background()

	if err := s.CheckVersion(ctx, "0.2.0"); err != nil {
		t.Fatalf("CheckVersion() first run error = %v", err)
	}
	if err := s.CheckVersion(ctx, "0.2.0"); err != nil {
		t.Fatalf("CheckVersion() same version error = %v", err)
	}
}

func TestCheckVersion_RejectsOlderBinary(t *testing.T) {
	s := testDB(t)
	ctx := context.Background()

	if err := s.CheckVersion(ctx, "0.3.0"); err != nil {
		t.Fatalf("CheckVersion() error = %v", err)
	}
	err := s.CheckVersion(ctx, "0.2.0")
	if !errors.Is(err, ErrNewerSchema) {
		t.Errorf("CheckVersion() error = %v, want ErrNewerSchema", err)
	}
}

func TestCheckVersion_DevAlwaysPasses(t *testing.T) {
	s := testDB(t)
	ctx := context.Background()

	if err := s.CheckVersion(ctx, "0.3.0"); err != nil {
		t.Fatalf("CheckVersion() error = %v", err)
	}
	if err := s.CheckVersion(ctx, "dev"); err != nil {
		t.Errorf("CheckVersion(dev) error = %v, want nil", err)
	}
}
