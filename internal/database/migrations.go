package database

import (
	"database/sql"
	"fmt"
	"sort"
)

// Migration represents a database migration
type Migration struct {
	Version int
	Up      string
	Down    string
}

// Migrations contains all database migrations
var Migrations = []Migration{
	{
		Version: 1,
		Up: `
			CREATE EXTENSION IF NOT EXISTS "uuid-ossp";

			CREATE TABLE IF NOT EXISTS streamers (
				id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
				email VARCHAR(255) UNIQUE NOT NULL,
				username VARCHAR(25) UNIQUE NOT NULL,
				password_hash VARCHAR(255) NOT NULL,
				player_token VARCHAR(64) UNIQUE NOT NULL,
				player_paused BOOLEAN NOT NULL DEFAULT FALSE,
				player_volume DOUBLE PRECISION NOT NULL DEFAULT 0.5,
				created_at TIMESTAMP NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_streamers_email ON streamers(email);
			CREATE INDEX IF NOT EXISTS idx_streamers_player_token ON streamers(player_token);
		`,
		Down: `
			DROP TABLE IF EXISTS streamers;
		`,
	},
	{
		Version: 2,
		Up: `
			CREATE TABLE IF NOT EXISTS media_requests (
				id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
				streamer_id UUID NOT NULL REFERENCES streamers(id) ON DELETE CASCADE,
				original_url TEXT NOT NULL,
				processed_url TEXT NOT NULL,
				media_kind VARCHAR(20) NOT NULL,
				requested_by VARCHAR(100) NOT NULL,
				status VARCHAR(20) NOT NULL DEFAULT 'PENDING',
				created_at TIMESTAMP NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_media_requests_streamer_status ON media_requests(streamer_id, status);
			CREATE INDEX IF NOT EXISTS idx_media_requests_created ON media_requests(streamer_id, created_at);
		`,
		Down: `
			DROP TABLE IF EXISTS media_requests;
		`,
	},
	{
		Version: 3,
		Up: `
			-- at most one PLAYING request per streamer; a promotion loser
			-- hits a unique violation instead of double-promoting
			CREATE UNIQUE INDEX IF NOT EXISTS uniq_media_requests_playing
				ON media_requests(streamer_id) WHERE status = 'PLAYING';
		`,
		Down: `
			DROP INDEX IF EXISTS uniq_media_requests_playing;
		`,
	},
}

// RunMigrations executes all pending migrations
func RunMigrations(db *sql.DB) error {
	// Ensure migrations table exists
	if err := ensureMigrationsTable(db); err != nil {
		return err
	}

	// Get current version
	currentVersion, err := getCurrentVersion(db)
	if err != nil {
		return err
	}

	// Run pending migrations in ascending order by version
	sorted := make([]Migration, len(Migrations))
	copy(sorted, Migrations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Version < sorted[j].Version })

	for _, migration := range sorted {
		if migration.Version <= currentVersion {
			continue
		}

		fmt.Printf("Running migration %d...\n", migration.Version)

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}

		if _, err := tx.Exec(migration.Up); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to run migration %d: %w", migration.Version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES ($1)", migration.Version); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}

		fmt.Printf("Migration %d completed\n", migration.Version)
	}

	return nil
}

func ensureMigrationsTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INT PRIMARY KEY,
			applied_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	return err
}

func getCurrentVersion(db *sql.DB) (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		return 0, err
	}
	return version, nil
}
