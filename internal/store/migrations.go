package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Samples table - one labeled hand observation per row. Landmarks
		// are the raw 21-point JSON array as produced by the detector.
		`CREATE TABLE IF NOT EXISTS samples (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			class_label TEXT NOT NULL,
			handedness INTEGER NOT NULL CHECK(handedness IN (0, 1)),
			landmarks TEXT NOT NULL,
			source TEXT NOT NULL DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Runs table - one row per training run with its final metrics.
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			epochs INTEGER NOT NULL,
			batch_size INTEGER NOT NULL,
			train_loss REAL NOT NULL,
			train_accuracy REAL NOT NULL,
			val_loss REAL NOT NULL,
			val_accuracy REAL NOT NULL,
			model_path TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Settings table - application settings as key-value pairs.
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_samples_class_label ON samples(class_label)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
