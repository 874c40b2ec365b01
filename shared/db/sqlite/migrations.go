package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"
)

type migration struct {
	version int
	name    string
	up      string
}

// migrations only ever append. The images table is a cache of catalog data,
// so a future incompatible change may drop and recreate it in a new version.
var migrations = []migration{
	{
		version: 1,
		name:    "create_images_table",
		up: `
			CREATE TABLE IF NOT EXISTS images (
				id TEXT PRIMARY KEY,
				display_name TEXT,
				title TEXT NOT NULL,
				catalog_date TEXT NOT NULL,
				downloaded_at TEXT NOT NULL,
				file_ref TEXT NOT NULL
			);

			CREATE INDEX IF NOT EXISTS idx_images_catalog_date
			ON images(catalog_date);
		`,
	},
}

func runMigrations(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	currentVersion := 0
	err = conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get current schema version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}

		if err := applyMigration(conn, m); err != nil {
			return err
		}
		log.Info().Int("version", m.version).Str("name", m.name).Msg("Applied migration")
	}

	return nil
}

func applyMigration(conn *sql.DB, m migration) error {
	tx, err := conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction for migration %d: %w", m.version, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(m.up); err != nil {
		return fmt.Errorf("failed to execute migration %d (%s): %w", m.version, m.name, err)
	}

	_, err = tx.Exec("INSERT INTO schema_migrations (version, name) VALUES (?, ?)", m.version, m.name)
	if err != nil {
		return fmt.Errorf("failed to record migration %d: %w", m.version, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration %d: %w", m.version, err)
	}
	return nil
}
