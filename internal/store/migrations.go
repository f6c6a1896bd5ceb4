package store

// runMigrations executes all journal migrations.
func (j *Journal) runMigrations() error {
	migrations := []string{
		// One row per dispatched input
		`CREATE TABLE IF NOT EXISTS input_history (
			id TEXT PRIMARY KEY,
			gesture TEXT NOT NULL,
			bind TEXT NOT NULL,
			hand TEXT NOT NULL DEFAULT '',
			hold_seconds REAL NOT NULL DEFAULT 0,
			toggle INTEGER NOT NULL DEFAULT 0,
			outcome TEXT NOT NULL CHECK(outcome IN ('sent', 'preempted', 'failed')),
			created_at INTEGER NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_input_history_created_at ON input_history(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_input_history_gesture ON input_history(gesture)`,
	}

	for _, migration := range migrations {
		if _, err := j.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
