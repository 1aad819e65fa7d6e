package trainlog

import (
	"database/sql"

	"github.com/readyrun/readyrun/pkg/plugin"
)

// migrations defines the trainlog schema. One row per training day; a
// re-logged day replaces the earlier row, so the log stays deduplicated at
// the store and readers never see two entries for one date.
var migrations = []plugin.Migration{
	{
		Version:     1,
		Description: "create training_log table",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS training_log (
					day         TEXT PRIMARY KEY,
					resting_hr  INTEGER NOT NULL,
					distance_km REAL NOT NULL,
					rpe         REAL NOT NULL,
					session     TEXT NOT NULL,
					created_at  TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
				)
			`)
			return err
		},
	},
	{
		Version:     2,
		Description: "index session type for per-type summaries",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`CREATE INDEX IF NOT EXISTS idx_training_log_session ON training_log(session)`)
			return err
		},
	},
}
