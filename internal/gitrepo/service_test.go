package gitrepo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

const initialPlan = "# Rollout\n\n- [ ] Build\n- [ ] Ship\n"

func TestPlanRepoLifecycle(t *testing.T) {
	tempDir := t.TempDir()
	svc := New(tempDir)

	first, err := svc.EnsurePlanRepo("plan-1", initialPlan, "Avery")
	if err != nil {
		t.Fatalf("EnsurePlanRepo() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(tempDir, "plan-1", PlanFile)); err != nil {
		t.Fatalf("plan file missing: %v", err)
	}
	if first.Hash == "" || first.Author != "Avery" {
		t.Fatalf("unexpected first version: %+v", first)
	}

	again, err := svc.EnsurePlanRepo("plan-1", "ignored", "Avery")
	if err != nil {
		t.Fatalf("second EnsurePlanRepo() error = %v", err)
	}
	if again.Hash != first.Hash {
		t.Fatalf("EnsurePlanRepo() on existing repo moved head to %s", again.Hash)
	}

	updated := strings.Replace(initialPlan, "- [ ] Build", "- [x] Build", 1)
	commit, changed, err := svc.CommitVersion("plan-1", updated, "Avery", "Check off build")
	if err != nil {
		t.Fatalf("CommitVersion() error = %v", err)
	}
	if !changed || commit.Hash == first.Hash {
		t.Fatalf("expected a new version, got %+v changed=%v", commit, changed)
	}

	history, err := svc.History("plan-1", 10)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 2 || history[0].Hash != commit.Hash || history[0].Message != "Check off build" {
		t.Fatalf("unexpected history: %+v", history)
	}

	old, info, err := svc.GetVersion("plan-1", first.Hash)
	if err != nil {
		t.Fatalf("GetVersion() error = %v", err)
	}
	if old != initialPlan || info.Hash != first.Hash {
		t.Fatalf("GetVersion() = %q, %+v", old, info)
	}

	head, _, err := svc.HeadVersion("plan-1")
	if err != nil {
		t.Fatalf("HeadVersion() error = %v", err)
	}
	if head != updated {
		t.Fatalf("HeadVersion() = %q", head)
	}
}

func TestCommitVersionSkipsUnchangedContent(t *testing.T) {
	svc := New(t.TempDir())
	first, err := svc.EnsurePlanRepo("plan-1", initialPlan, "Avery")
	if err != nil {
		t.Fatalf("EnsurePlanRepo() error = %v", err)
	}

	commit, changed, err := svc.CommitVersion("plan-1", initialPlan, "Avery", "No-op")
	if err != nil {
		t.Fatalf("CommitVersion() error = %v", err)
	}
	if changed || commit.Hash != first.Hash {
		t.Fatalf("CommitVersion() = %+v changed=%v, want unchanged head", commit, changed)
	}
}

func TestGetVersionNotFound(t *testing.T) {
	svc := New(t.TempDir())
	if _, err := svc.EnsurePlanRepo("plan-1", initialPlan, "Avery"); err != nil {
		t.Fatalf("EnsurePlanRepo() error = %v", err)
	}

	for _, hash := range []string{"deadbee", strings.Repeat("0", 40), ""} {
		if _, _, err := svc.GetVersion("plan-1", hash); !errors.Is(err, ErrVersionNotFound) {
			t.Fatalf("GetVersion(%q) error = %v, want ErrVersionNotFound", hash, err)
		}
	}
}

func TestSaveSnapshotTagsRounds(t *testing.T) {
	svc := New(t.TempDir())
	if _, err := svc.EnsurePlanRepo("plan-1", initialPlan, "Avery"); err != nil {
		t.Fatalf("EnsurePlanRepo() error = %v", err)
	}

	_, tag, err := svc.SaveSnapshot("plan-1", initialPlan, "Avery", DecisionDenied)
	if err != nil {
		t.Fatalf("SaveSnapshot() error = %v", err)
	}
	if tag != "denied-1" {
		t.Fatalf("first denial tag = %q", tag)
	}

	approved := initialPlan + "<!-- @APPROVED -->\n"
	commit, tag, err := svc.SaveSnapshot("plan-1", approved, "Avery", DecisionApproved)
	if err != nil {
		t.Fatalf("SaveSnapshot() error = %v", err)
	}
	if tag != "approved-1" || commit.Message != "Approve plan" {
		t.Fatalf("approval = %+v tag=%q", commit, tag)
	}

	_, tag, err = svc.SaveSnapshot("plan-1", approved, "Avery", DecisionApproved)
	if err != nil {
		t.Fatalf("repeated SaveSnapshot() error = %v", err)
	}
	if tag != "approved-2" {
		t.Fatalf("second approval tag = %q", tag)
	}

	history, err := svc.History("plan-1", 0)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 4 {
		t.Fatalf("expected 4 versions, got %d", len(history))
	}

	if _, _, err := svc.SaveSnapshot("plan-1", approved, "Avery", Decision("maybe")); err == nil {
		t.Fatal("expected error for unknown decision")
	}
}

func TestConcurrentCommitVersion(t *testing.T) {
	svc := New(t.TempDir())
	if _, err := svc.EnsurePlanRepo("plan-1", initialPlan, "Avery"); err != nil {
		t.Fatalf("EnsurePlanRepo() error = %v", err)
	}

	const writers = 12
	var wg sync.WaitGroup
	errCh := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			next := fmt.Sprintf("%s\nRevision %02d\n", initialPlan, idx)
			if _, _, err := svc.CommitVersion("plan-1", next, "Avery", fmt.Sprintf("Commit %02d", idx)); err != nil {
				errCh <- err
			}
		}(i)
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		if err != nil {
			t.Fatalf("CommitVersion() concurrent error = %v", err)
		}
	}

	history, err := svc.History("plan-1", 100)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != writers+1 {
		t.Fatalf("expected %d versions, got %d", writers+1, len(history))
	}

	head, _, err := svc.HeadVersion("plan-1")
	if err != nil {
		t.Fatalf("HeadVersion() error = %v", err)
	}
	if !strings.Contains(head, "Revision ") {
		t.Fatalf("unexpected head after concurrent commits: %q", head)
	}
}

func TestGenerateSlug(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"# Rollout Plan: Phase 2!\n\nBody", "rollout-plan-phase-2"},
		{"Intro\n\n## Second -- Heading", "second-heading"},
		{"No heading here", "plan"},
		{"# !!!\n\n# Real", "real"},
		{"# " + strings.Repeat("ab ", 30), "ab-ab-ab-ab-ab-ab-ab-ab-ab-ab-ab-ab-ab-ab-ab-ab-ab"},
		{"", "plan"},
	}
	for _, tt := range tests {
		if got := GenerateSlug(tt.input); got != tt.want {
			t.Fatalf("GenerateSlug(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
