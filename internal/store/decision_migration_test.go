package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestPlanDecisionsImmutabilityMigrationUsesBlockingTriggers(t *testing.T) {
	migrationPath := filepath.Join("..", "..", "db", "migrations", "0002_plan_decisions_immutability_trigger.up.sql")
	sqlBytes, err := os.ReadFile(migrationPath)
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	sqlText := string(sqlBytes)

	expectedSnippets := []string{
		"plan_decisions_immutable_guard",
		"RAISE EXCEPTION",
		"CREATE TRIGGER trg_plan_decisions_block_update",
		"CREATE TRIGGER trg_plan_decisions_block_delete",
	}
	for _, snippet := range expectedSnippets {
		if !strings.Contains(sqlText, snippet) {
			t.Fatalf("expected migration to contain %q", snippet)
		}
	}
	if strings.Contains(sqlText, "DO INSTEAD NOTHING") {
		t.Fatalf("expected hard-fail immutability guard, found silent DO INSTEAD NOTHING rule")
	}
}
