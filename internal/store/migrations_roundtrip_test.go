package store

import (
	"context"
	"database/sql"
	"os"
	"strings"
	"testing"
	"time"
)

var (
	planTables       = []string{"plans", "plan_annotations", "plan_decisions"}
	decisionTriggers = []string{"trg_plan_decisions_block_update", "trg_plan_decisions_block_delete"}
)

func TestMigrationsRoundTripPostgres(t *testing.T) {
	dsn := strings.TrimSpace(os.Getenv("TEST_DATABASE_URL"))
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := Open(ctx, dsn, PoolConfig{MaxOpenConns: 2})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()

	if err := resetPublicSchema(ctx, db); err != nil {
		t.Fatalf("reset schema: %v", err)
	}

	if err := ApplyMigrations(ctx, db, testMigrationsDir); err != nil {
		t.Fatalf("ApplyMigrations() pass 1 error = %v", err)
	}
	assertSchema(ctx, t, db, true)
	if n := countMigrations(ctx, t, db); n != 2 {
		t.Fatalf("schema_migrations rows = %d, want 2", n)
	}

	// a second run is a no-op
	if err := ApplyMigrations(ctx, db, testMigrationsDir); err != nil {
		t.Fatalf("ApplyMigrations() rerun error = %v", err)
	}

	if err := RollbackMigrations(ctx, db, testMigrationsDir); err != nil {
		t.Fatalf("RollbackMigrations() error = %v", err)
	}
	assertSchema(ctx, t, db, false)
	if n := countMigrations(ctx, t, db); n != 0 {
		t.Fatalf("schema_migrations rows after rollback = %d", n)
	}

	if err := ApplyMigrations(ctx, db, testMigrationsDir); err != nil {
		t.Fatalf("ApplyMigrations() pass 2 error = %v", err)
	}
	assertSchema(ctx, t, db, true)
}

func assertSchema(ctx context.Context, t *testing.T, db *sql.DB, present bool) {
	t.Helper()
	for _, table := range planTables {
		var exists bool
		if err := db.QueryRowContext(ctx, `SELECT to_regclass($1) IS NOT NULL`, "public."+table).Scan(&exists); err != nil {
			t.Fatalf("check table %s: %v", table, err)
		}
		if exists != present {
			t.Fatalf("table %s exists = %v, want %v", table, exists, present)
		}
	}
	for _, trigger := range decisionTriggers {
		var exists bool
		err := db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM pg_trigger WHERE tgname=$1 AND NOT tgisinternal)`, trigger).Scan(&exists)
		if err != nil {
			t.Fatalf("check trigger %s: %v", trigger, err)
		}
		if exists != present {
			t.Fatalf("trigger %s exists = %v, want %v", trigger, exists, present)
		}
	}
}

func countMigrations(ctx context.Context, t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations`).Scan(&n); err != nil {
		t.Fatalf("count schema_migrations: %v", err)
	}
	return n
}

func resetPublicSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `DROP SCHEMA IF EXISTS public CASCADE; CREATE SCHEMA public;`)
	return err
}
