package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Signs table - one row per label the local classifier can emit
		`CREATE TABLE IF NOT EXISTS signs (
			id TEXT PRIMARY KEY,
			label TEXT NOT NULL UNIQUE,
			tolerance REAL NOT NULL DEFAULT 0.5,
			samples INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Trained template: normalized hand landmarks averaged over samples
		`CREATE TABLE IF NOT EXISTS sign_landmarks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			sign_id TEXT NOT NULL REFERENCES signs(id) ON DELETE CASCADE,
			landmark_index INTEGER NOT NULL,
			x REAL NOT NULL,
			y REAL NOT NULL,
			z REAL NOT NULL
		)`,

		// Raw recorded samples kept for retraining
		`CREATE TABLE IF NOT EXISTS sign_samples (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			sign_id TEXT NOT NULL REFERENCES signs(id) ON DELETE CASCADE,
			sample_index INTEGER NOT NULL,
			data TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_sign_landmarks_sign_id ON sign_landmarks(sign_id)`,
		`CREATE INDEX IF NOT EXISTS idx_sign_samples_sign_id ON sign_samples(sign_id)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
