package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const samplePlan = "---\nowner: platform\n---\n# Rollout\n\nInstall deps\n\n## Deploy\nShip it\n"

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(strings.NewReader(stdin), &out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestParseCommand(t *testing.T) {
	out, err := run(t, "", "parse", writeFile(t, "plan.md", samplePlan))
	if err != nil {
		t.Fatalf("parse error = %v", err)
	}
	var doc struct {
		Frontmatter map[string]any   `json:"frontmatter"`
		Blocks      []map[string]any `json:"blocks"`
	}
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if doc.Frontmatter["owner"] != "platform" || len(doc.Blocks) != 4 {
		t.Fatalf("parse output = %s", out)
	}
	if doc.Blocks[0]["id"] != "block-0" {
		t.Fatalf("first block = %v", doc.Blocks[0])
	}
}

func TestParseReadsStdin(t *testing.T) {
	out, err := run(t, "# From stdin\n", "parse", "-")
	if err != nil {
		t.Fatalf("parse error = %v", err)
	}
	if !strings.Contains(out, "From stdin") {
		t.Fatalf("parse output = %s", out)
	}
}

func TestFeedbackCommand(t *testing.T) {
	plan := writeFile(t, "plan.md", samplePlan)
	anns := writeFile(t, "anns.json", `[{"id":"a1","blockId":"block-1","type":"DELETION","originalText":"Install deps","createdAt":1}]`)

	out, err := run(t, "", "feedback", plan, anns, "--reference", "plan-1/diagram.png")
	if err != nil {
		t.Fatalf("feedback error = %v", err)
	}
	for _, want := range []string{"# Plan Feedback", "## Reference Images", "## 1. Remove this", "Install deps"} {
		if !strings.Contains(out, want) {
			t.Fatalf("feedback output missing %q:\n%s", want, out)
		}
	}
}

func TestFeedbackRejectsInvalidAnnotations(t *testing.T) {
	plan := writeFile(t, "plan.md", samplePlan)
	anns := writeFile(t, "anns.json", `[{"id":"a1","type":"GLOBAL_COMMENT","originalText":"x","text":"y","createdAt":1}]`)
	if _, err := run(t, "", "feedback", plan, anns); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestMarkersCommands(t *testing.T) {
	plan := writeFile(t, "plan.md", samplePlan)
	anns := writeFile(t, "anns.json", `[{"id":"a1","blockId":"block-1","type":"COMMENT","originalText":"Install deps","tag":"OK","author":"ana","createdAt":1767344400000}]`)

	injected, err := run(t, "", "markers", "inject", plan, anns)
	if err != nil {
		t.Fatalf("inject error = %v", err)
	}
	if !strings.Contains(injected, "Install deps\n<!-- @OK by=\"ana\" date=\"2026-01-02\" -->") {
		t.Fatalf("inject output:\n%s", injected)
	}

	withMarker := writeFile(t, "approved.md", injected)
	out, err := run(t, "", "markers", "extract", withMarker)
	if err != nil {
		t.Fatalf("extract error = %v", err)
	}
	var found []map[string]any
	if err := json.Unmarshal([]byte(out), &found); err != nil {
		t.Fatalf("decode markers: %v", err)
	}
	if len(found) != 1 || found[0]["tag"] != "OK" {
		t.Fatalf("extract output = %s", out)
	}

	stripped, err := run(t, "", "markers", "strip", withMarker)
	if err != nil {
		t.Fatalf("strip error = %v", err)
	}
	if strings.Contains(stripped, "<!--") {
		t.Fatalf("strip output still has markers:\n%s", stripped)
	}
}

func TestDiffCommand(t *testing.T) {
	oldPlan := writeFile(t, "old.md", "# Rollout\n\nShip it")
	newPlan := writeFile(t, "new.md", "# Rollout\n\nShip it now\n\nVerify")

	out, err := run(t, "", "diff", oldPlan, newPlan)
	if err != nil {
		t.Fatalf("diff error = %v", err)
	}
	var result struct {
		Summary map[string]int `json:"summary"`
	}
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("decode diff: %v", err)
	}
	if result.Summary["unchanged"] != 1 || result.Summary["modified"] != 1 || result.Summary["added"] != 1 {
		t.Fatalf("diff summary = %v", result.Summary)
	}

	out, err = run(t, "", "diff", oldPlan, newPlan, "--threshold", "1")
	if err != nil {
		t.Fatalf("diff error = %v", err)
	}
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("decode diff: %v", err)
	}
	if result.Summary["modified"] != 0 {
		t.Fatalf("strict diff summary = %v", result.Summary)
	}

	if _, err := run(t, "", "diff", oldPlan, newPlan, "--threshold", "2"); err == nil {
		t.Fatal("expected an out-of-range threshold error")
	}
}

func TestShareRoundTrip(t *testing.T) {
	plan := writeFile(t, "plan.md", samplePlan)
	out, err := run(t, "", "share", "encode", plan)
	if err != nil {
		t.Fatalf("encode error = %v", err)
	}
	var encoded map[string]string
	if err := json.Unmarshal([]byte(out), &encoded); err != nil {
		t.Fatalf("decode encode output: %v", err)
	}
	if encoded["id"] == "" || encoded["encoded"] == "" {
		t.Fatalf("encode output = %s", out)
	}

	out, err = run(t, encoded["encoded"]+"\n", "share", "decode", "-")
	if err != nil {
		t.Fatalf("decode error = %v", err)
	}
	var payload struct {
		Plan string `json:"plan"`
	}
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.Plan != samplePlan {
		t.Fatalf("decoded plan = %q", payload.Plan)
	}

	if _, err := run(t, "", "share", "decode", "!!!"); err == nil {
		t.Fatal("expected an invalid payload error")
	}
}
