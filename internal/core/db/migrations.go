package db

import (
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	embeddedmigrations "github.com/mlenstra/shrike/migrations"
)

/*
 * Embedded-migration runner for the alert store.
 *
 * Migrations are plain .sql files compiled into the binary, applied in
 * filename order, each inside a transaction together with its tracking
 * row. Driver selection (sqlite vs postgres) picks the matching embedded
 * directory since the dialects differ on timestamp types.
 */

// MigrationStatus reports one migration's applied state.
type MigrationStatus struct {
	ID        string
	Applied   bool
	AppliedAt *time.Time
}

// MigrateUp applies all pending migrations in order.
func MigrateUp(db *sqlx.DB) error {
	migrations, err := loadMigrations(db.DriverName())
	if err != nil {
		return err
	}

	if err := createMigrationsTable(db); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := appliedMigrations(db)
	if err != nil {
		return fmt.Errorf("failed to query applied migrations: %w", err)
	}

	for _, m := range migrations {
		if applied[m.id] {
			continue
		}

		// Migration and tracking row commit atomically
		tx, err := db.Beginx()
		if err != nil {
			return fmt.Errorf("failed to begin transaction for %s: %w", m.id, err)
		}

		if err := execStatements(tx, m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to apply migration %s: %w", m.id, err)
		}

		if _, err := tx.Exec(
			tx.Rebind("INSERT INTO schema_migrations (migration_id, applied_at) VALUES (?, ?)"),
			m.id, time.Now().UTC().Format(time.RFC3339),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %s: %w", m.id, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %s: %w", m.id, err)
		}
	}

	return nil
}

// MigrateStatus returns the status of all known migrations.
func MigrateStatus(db *sqlx.DB) ([]MigrationStatus, error) {
	migrations, err := loadMigrations(db.DriverName())
	if err != nil {
		return nil, err
	}

	if err := createMigrationsTable(db); err != nil {
		return nil, fmt.Errorf("failed to create migrations table: %w", err)
	}

	rows, err := db.Queryx("SELECT migration_id, applied_at FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to query migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]*time.Time)
	for rows.Next() {
		var id, appliedAt string
		if err := rows.Scan(&id, &appliedAt); err != nil {
			return nil, err
		}
		if ts, err := time.Parse(time.RFC3339, appliedAt); err == nil {
			applied[id] = &ts
		} else {
			applied[id] = nil
		}
	}

	statuses := make([]MigrationStatus, 0, len(migrations))
	for _, m := range migrations {
		ts, ok := applied[m.id]
		statuses = append(statuses, MigrationStatus{ID: m.id, Applied: ok, AppliedAt: ts})
	}
	return statuses, nil
}

type migration struct {
	id  string
	sql string
}

// loadMigrations reads the embedded migration files for the driver's
// dialect, sorted by filename for deterministic ordering.
func loadMigrations(driver string) ([]migration, error) {
	var dir string
	switch driver {
	case "sqlite3":
		dir = "sqlite"
	case "postgres":
		dir = "postgres"
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}

	entries, err := fs.ReadDir(embeddedmigrations.Files, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations: %w", err)
	}

	var migrations []migration
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		content, err := embeddedmigrations.Files.ReadFile(dir + "/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", entry.Name(), err)
		}
		migrations = append(migrations, migration{id: entry.Name(), sql: string(content)})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].id < migrations[j].id
	})
	return migrations, nil
}

func createMigrationsTable(db *sqlx.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			migration_id TEXT PRIMARY KEY,
			applied_at TEXT NOT NULL
		)
	`)
	return err
}

func appliedMigrations(db *sqlx.DB) (map[string]bool, error) {
	rows, err := db.Queryx("SELECT migration_id FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		applied[id] = true
	}
	return applied, nil
}

// execStatements splits on semicolons and executes each statement.
// lib/pq does not support multiple statements in a single Exec.
func execStatements(tx *sqlx.Tx, sqlText string) error {
	for _, stmt := range strings.Split(sqlText, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" || strings.HasPrefix(stmt, "--") {
			continue
		}
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("statement failed: %w", err)
		}
	}
	return nil
}
