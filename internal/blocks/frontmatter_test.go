package blocks

import (
	"reflect"
	"testing"
)

func TestExtractFrontmatter(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		frontmatter Frontmatter
		content     string
		bodyLine    int
	}{
		{
			name:        "scalar value",
			input:       "---\ntitle: X\n---\n\nBody",
			frontmatter: Frontmatter{"title": "X"},
			content:     "Body",
			bodyLine:    5,
		},
		{
			name:        "block list",
			input:       "---\ntags:\n  - plan\n  - auth\nstatus: draft\n---\n# Heading",
			frontmatter: Frontmatter{"tags": []string{"plan", "auth"}, "status": "draft"},
			content:     "# Heading",
			bodyLine:    7,
		},
		{
			name:        "invalid yaml falls back to line parser",
			input:       "---\ntitle: Plan: phase 1\nitems:\n- a\n- b\n---\nBody",
			frontmatter: Frontmatter{"title": "Plan: phase 1", "items": []string{"a", "b"}},
			content:     "Body",
			bodyLine:    7,
		},
		{
			name:     "unclosed",
			input:    "---\ntitle: X\n\nBody",
			content:  "---\ntitle: X\n\nBody",
			bodyLine: 1,
		},
		{
			name:     "no frontmatter",
			input:    "# Just a plan",
			content:  "# Just a plan",
			bodyLine: 1,
		},
		{
			name:        "empty header",
			input:       "---\n---\nBody",
			frontmatter: Frontmatter{},
			content:     "Body",
			bodyLine:    3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractFrontmatter(tt.input)
			if !reflect.DeepEqual(got.Frontmatter, tt.frontmatter) {
				t.Fatalf("Frontmatter = %#v, want %#v", got.Frontmatter, tt.frontmatter)
			}
			if got.Content != tt.content {
				t.Fatalf("Content = %q, want %q", got.Content, tt.content)
			}
			if got.BodyLine != tt.bodyLine {
				t.Fatalf("BodyLine = %d, want %d", got.BodyLine, tt.bodyLine)
			}
		})
	}
}

func TestFrontmatterAccessors(t *testing.T) {
	fm := Frontmatter{"title": "X", "tags": []string{"a", "b"}}
	if fm.String("title") != "X" {
		t.Fatalf("String(title) = %q", fm.String("title"))
	}
	if fm.String("tags") != "" {
		t.Fatal("String on a list should be empty")
	}
	if !reflect.DeepEqual(fm.List("tags"), []string{"a", "b"}) {
		t.Fatalf("List(tags) = %v", fm.List("tags"))
	}
	if !reflect.DeepEqual(fm.List("title"), []string{"X"}) {
		t.Fatalf("List(title) = %v", fm.List("title"))
	}
	var empty Frontmatter
	if empty.String("missing") != "" || empty.List("missing") != nil {
		t.Fatal("nil frontmatter should return zero values")
	}
}
