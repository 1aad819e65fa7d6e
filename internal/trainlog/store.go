package trainlog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/readyrun/readyrun/pkg/training"
)

// LogStore persists training-log entries in the shared SQLite store.
// The table keys on the day string, so appending an entry for an existing
// date replaces it (last write wins).
type LogStore struct {
	db *sql.DB
}

// NewLogStore wraps the shared database handle.
func NewLogStore(db *sql.DB) *LogStore {
	return &LogStore{db: db}
}

// Append stores one entry, replacing any earlier entry for the same day.
func (s *LogStore) Append(ctx context.Context, e training.LogEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO training_log (day, resting_hr, distance_km, rpe, session)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(day) DO UPDATE SET
			resting_hr  = excluded.resting_hr,
			distance_km = excluded.distance_km,
			rpe         = excluded.rpe,
			session     = excluded.session
	`, e.Day(), e.RestingHR, e.DistanceKm, e.PerceivedExertion, string(e.Session))
	if err != nil {
		return fmt.Errorf("append entry %s: %w", e.Day(), err)
	}
	return nil
}

// AppendBatch stores entries atomically: either every row lands or none do.
func (s *LogStore) AppendBatch(ctx context.Context, entries []training.LogEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch append: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO training_log (day, resting_hr, distance_km, rpe, session)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(day) DO UPDATE SET
			resting_hr  = excluded.resting_hr,
			distance_km = excluded.distance_km,
			rpe         = excluded.rpe,
			session     = excluded.session
	`)
	if err != nil {
		return fmt.Errorf("prepare batch append: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, e.Day(), e.RestingHR, e.DistanceKm, e.PerceivedExertion, string(e.Session)); err != nil {
			return fmt.Errorf("append entry %s: %w", e.Day(), err)
		}
	}
	return tx.Commit()
}

// List returns every entry ordered by day ascending.
func (s *LogStore) List(ctx context.Context) ([]training.LogEntry, error) {
	return s.query(ctx, `
		SELECT day, resting_hr, distance_km, rpe, session
		FROM training_log ORDER BY day ASC
	`)
}

// ListRange returns entries with from <= day <= to, ordered ascending.
func (s *LogStore) ListRange(ctx context.Context, from, to time.Time) ([]training.LogEntry, error) {
	return s.query(ctx, `
		SELECT day, resting_hr, distance_km, rpe, session
		FROM training_log
		WHERE day >= ? AND day <= ?
		ORDER BY day ASC
	`, from.Format(training.DateLayout), to.Format(training.DateLayout))
}

// Count returns the number of logged days.
func (s *LogStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM training_log`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return n, nil
}

func (s *LogStore) query(ctx context.Context, q string, args ...any) ([]training.LogEntry, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var entries []training.LogEntry
	for rows.Next() {
		var (
			day     string
			session string
			e       training.LogEntry
		)
		if err := rows.Scan(&day, &e.RestingHR, &e.DistanceKm, &e.PerceivedExertion, &session); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		date, err := time.ParseInLocation(training.DateLayout, day, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("entry %q has unparseable day: %w", day, err)
		}
		e.Date = date
		e.Session = training.SessionType(session)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
