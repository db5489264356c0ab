package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
)

const (
	upSuffix   = ".up.sql"
	downSuffix = ".down.sql"
)

// migration is one SQL file under the migrations dir. Version is the file
// name without its direction suffix, e.g. "0001_plans".
type migration struct {
	Version string
	Path    string
}

// discoverMigrations lists the files in dir ending in suffix, ordered by
// version. Subdirectories and other files are ignored.
func discoverMigrations(dir, suffix string) ([]migration, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}
	var found []migration
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, suffix) {
			continue
		}
		found = append(found, migration{
			Version: strings.TrimSuffix(name, suffix),
			Path:    filepath.Join(dir, name),
		})
	}
	sort.Slice(found, func(i, j int) bool { return found[i].Version < found[j].Version })
	return found, nil
}

// ApplyMigrations runs every pending up migration in version order, each in
// its own transaction together with its schema_migrations row.
func ApplyMigrations(ctx context.Context, db *sql.DB, migrationsDir string) error {
	if err := ensureMigrationsTable(ctx, db); err != nil {
		return err
	}
	pending, err := discoverMigrations(migrationsDir, upSuffix)
	if err != nil {
		return err
	}

	applied := 0
	for _, m := range pending {
		done, err := isMigrated(ctx, db, m.Version)
		if err != nil {
			return err
		}
		if done {
			continue
		}
		if err := runMigration(ctx, db, m, `INSERT INTO schema_migrations(version) VALUES($1)`); err != nil {
			return err
		}
		log.Info().Str("version", m.Version).Msg("applied migration")
		applied++
	}
	log.Debug().Int("applied", applied).Int("skipped", len(pending)-applied).Msg("migrations up to date")
	return nil
}

// RollbackMigrations reverts every applied migration in reverse version
// order using the matching down files.
func RollbackMigrations(ctx context.Context, db *sql.DB, migrationsDir string) error {
	if err := ensureMigrationsTable(ctx, db); err != nil {
		return err
	}
	downs, err := discoverMigrations(migrationsDir, downSuffix)
	if err != nil {
		return err
	}
	for i := len(downs) - 1; i >= 0; i-- {
		m := downs[i]
		done, err := isMigrated(ctx, db, m.Version)
		if err != nil {
			return err
		}
		if !done {
			continue
		}
		if err := runMigration(ctx, db, m, `DELETE FROM schema_migrations WHERE version=$1`); err != nil {
			return err
		}
		log.Info().Str("version", m.Version).Msg("rolled back migration")
	}
	return nil
}

// runMigration executes the file and the bookkeeping statement atomically.
func runMigration(ctx context.Context, db *sql.DB, m migration, record string) error {
	contents, err := os.ReadFile(m.Path)
	if err != nil {
		return fmt.Errorf("read migration %s: %w", m.Version, err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration tx %s: %w", m.Version, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, string(contents)); err != nil {
		return fmt.Errorf("execute migration %s: %w", m.Version, err)
	}
	if _, err := tx.ExecContext(ctx, record, m.Version); err != nil {
		return fmt.Errorf("record migration %s: %w", m.Version, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %s: %w", m.Version, err)
	}
	return nil
}

func ensureMigrationsTable(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}
	return nil
}

func isMigrated(ctx context.Context, db *sql.DB, version string) (bool, error) {
	var exists bool
	err := db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version=$1)`, version).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check migration %s: %w", version, err)
	}
	return exists, nil
}
