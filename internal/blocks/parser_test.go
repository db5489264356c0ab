package blocks

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

func TestParseHeadingLevels(t *testing.T) {
	got := Parse("# A\n## B\n### C")
	if len(got) != 3 {
		t.Fatalf("Parse() returned %d blocks, want 3", len(got))
	}
	for i, want := range []struct {
		level   int
		content string
	}{{1, "A"}, {2, "B"}, {3, "C"}} {
		if got[i].Type != TypeHeading || got[i].Level != want.level || got[i].Content != want.content {
			t.Fatalf("block %d = %+v, want heading level %d %q", i, got[i], want.level, want.content)
		}
	}
}

func TestParseListIndentation(t *testing.T) {
	got := Parse("- a\n  - b\n    - c\n- d")
	levels := make([]int, 0, len(got))
	for _, block := range got {
		if block.Type != TypeListItem {
			t.Fatalf("unexpected block type %s", block.Type)
		}
		levels = append(levels, block.Level)
	}
	if !reflect.DeepEqual(levels, []int{0, 1, 2, 0}) {
		t.Fatalf("levels = %v, want [0 1 2 0]", levels)
	}
}

func TestParseCheckboxes(t *testing.T) {
	got := Parse("- [x] Done\n- [ ] Pending\n- Plain")
	if len(got) != 3 {
		t.Fatalf("Parse() returned %d blocks, want 3", len(got))
	}
	if got[0].Checked == nil || !*got[0].Checked || got[0].Content != "Done" {
		t.Fatalf("first item = %+v, want checked Done", got[0])
	}
	if got[1].Checked == nil || *got[1].Checked || got[1].Content != "Pending" {
		t.Fatalf("second item = %+v, want unchecked Pending", got[1])
	}
	if got[2].Checked != nil {
		t.Fatalf("plain item should have nil Checked, got %v", *got[2].Checked)
	}
}

func TestParseBlockTypes(t *testing.T) {
	markdown := strings.Join([]string{
		"# Plan",
		"",
		"Intro line one",
		"line two",
		"",
		"> quoted",
		"> more",
		"",
		"```go",
		"func main() {}",
		"```",
		"",
		"---",
		"",
		"| a | b |",
		"|---|:-:|",
		"| 1 | 2 |",
		"",
		"1. first",
	}, "\n")

	got := Parse(markdown)
	wantTypes := []Type{TypeHeading, TypeParagraph, TypeBlockquote, TypeCode, TypeHR, TypeTable, TypeListItem}
	if len(got) != len(wantTypes) {
		t.Fatalf("Parse() returned %d blocks, want %d: %+v", len(got), len(wantTypes), got)
	}
	for i, want := range wantTypes {
		if got[i].Type != want {
			t.Fatalf("block %d type = %s, want %s", i, got[i].Type, want)
		}
	}

	if got[1].Content != "Intro line one\nline two" {
		t.Fatalf("paragraph content = %q", got[1].Content)
	}
	if got[2].Content != "quoted\nmore" {
		t.Fatalf("blockquote content = %q", got[2].Content)
	}
	if got[3].Language != "go" || got[3].Content != "func main() {}" {
		t.Fatalf("code block = %+v", got[3])
	}
	if got[5].Content != "| a | b |\n|---|:-:|\n| 1 | 2 |" {
		t.Fatalf("table content = %q", got[5].Content)
	}
	if got[6].Content != "first" {
		t.Fatalf("ordered list content = %q", got[6].Content)
	}

	wantLines := []int{1, 3, 6, 9, 13, 15, 19}
	for i, line := range wantLines {
		if got[i].StartLine != line {
			t.Fatalf("block %d startLine = %d, want %d", i, got[i].StartLine, line)
		}
	}
}

func TestParseIDsAndOrder(t *testing.T) {
	got := Parse("# A\n\ntext\n\n- item\n- item")
	seen := map[string]bool{}
	for i, block := range got {
		if block.Order != i {
			t.Fatalf("block %d order = %d", i, block.Order)
		}
		if seen[block.ID] {
			t.Fatalf("duplicate block id %s", block.ID)
		}
		seen[block.ID] = true
	}
}

func TestParseDeterministic(t *testing.T) {
	inputs := []string{
		"",
		"# Title\n\nSome *text*\n\n- [x] a\n  - b",
		"```\nunclosed",
		"| not | a table |\nplain",
		"---\ntitle: X\n---\n\n## Body",
	}
	for _, input := range inputs {
		first := Parse(input)
		second := Parse(input)
		if !reflect.DeepEqual(first, second) {
			t.Fatalf("Parse(%q) not deterministic:\n%+v\n%+v", input, first, second)
		}
	}
}

func TestParseDegradesToParagraph(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "unclosed fence", input: "```go\nfmt.Println()"},
		{name: "pipe without separator", input: "| a | b |\n| c | d |"},
		{name: "seven hashes", input: "####### too deep"},
		{name: "hashtag", input: "#hashtag"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.input)
			if len(got) == 0 {
				t.Fatal("expected at least one block")
			}
			if got[0].Type != TypeParagraph {
				t.Fatalf("first block type = %s, want paragraph", got[0].Type)
			}
		})
	}
}

func TestParseUnclosedFenceKeepsFollowingBlocks(t *testing.T) {
	got := Parse("```js\n# Heading")
	if len(got) != 2 {
		t.Fatalf("Parse() returned %d blocks, want 2: %+v", len(got), got)
	}
	if got[0].Type != TypeParagraph || got[1].Type != TypeHeading {
		t.Fatalf("unexpected types %s, %s", got[0].Type, got[1].Type)
	}
}

func TestParseStartLineAfterFrontmatter(t *testing.T) {
	got := Parse("---\ntitle: X\n---\n\n# Body\n\ntext")
	if len(got) != 2 {
		t.Fatalf("Parse() returned %d blocks, want 2", len(got))
	}
	if got[0].StartLine != 5 || got[1].StartLine != 7 {
		t.Fatalf("startLines = %d, %d, want 5, 7", got[0].StartLine, got[1].StartLine)
	}
}

func TestParseTabIndentedList(t *testing.T) {
	got := Parse("- a\n\t- b\n\t\t- c")
	levels := []int{got[0].Level, got[1].Level, got[2].Level}
	if !reflect.DeepEqual(levels, []int{0, 1, 2}) {
		t.Fatalf("levels = %v", levels)
	}
}

func TestParseSkipsMarkerLines(t *testing.T) {
	plain := "# Plan\n\nInstall deps\nConfigure env\n\n- Ship it"
	marked := "# Plan\n<!-- @OK by=\"ana\" date=\"2026-01-02\" -->\n\nInstall deps\nConfigure env\n<!-- @APPROVED -->\n\n- Ship it\n  <!-- @LOCKED -->"

	want := Parse(plain)
	got := Parse(marked)
	if len(got) != len(want) {
		t.Fatalf("Parse() returned %d blocks, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i].ID != want[i].ID || got[i].Type != want[i].Type || got[i].Content != want[i].Content {
			t.Fatalf("block %d = %+v, want %+v", i, got[i], want[i])
		}
	}
	if lines := []int{got[0].StartLine, got[1].StartLine, got[2].StartLine}; !reflect.DeepEqual(lines, []int{1, 4, 8}) {
		t.Fatalf("startLines = %v, want [1 4 8]", lines)
	}
}

func TestParseKeepsMarkerTextInsideCode(t *testing.T) {
	got := Parse("```html\n<!-- @OK -->\n```")
	if len(got) != 1 || got[0].Type != TypeCode || got[0].Content != "<!-- @OK -->" {
		t.Fatalf("Parse() = %+v", got)
	}
}

func TestBlockJSONLevel(t *testing.T) {
	tests := []struct {
		name      string
		block     Block
		wantLevel any
	}{
		{name: "heading", block: Block{Type: TypeHeading, Level: 2}, wantLevel: 2.0},
		{name: "top-level list item", block: Block{Type: TypeListItem}, wantLevel: 0.0},
		{name: "paragraph", block: Block{Type: TypeParagraph}},
		{name: "code", block: Block{Type: TypeCode, Language: "go"}},
		{name: "hr", block: Block{Type: TypeHR}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.block)
			if err != nil {
				t.Fatalf("json.Marshal() error = %v", err)
			}
			var decoded map[string]any
			if err := json.Unmarshal(data, &decoded); err != nil {
				t.Fatalf("json.Unmarshal() error = %v", err)
			}
			level, ok := decoded["level"]
			if tt.wantLevel == nil {
				if ok {
					t.Fatalf("json = %s, want no level", data)
				}
				return
			}
			if !ok || level != tt.wantLevel {
				t.Fatalf("json = %s, want level %v", data, tt.wantLevel)
			}
			if decoded["type"] != string(tt.block.Type) {
				t.Fatalf("json = %s, missing type", data)
			}
		})
	}
}

func TestTypeValid(t *testing.T) {
	for _, typ := range Types {
		if !typ.Valid() {
			t.Fatalf("%s should be valid", typ)
		}
	}
	if Type("image").Valid() {
		t.Fatal("image should not be a valid block type")
	}
}
