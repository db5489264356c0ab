package feedback

import (
	"strings"
	"testing"

	"planmark/api/internal/annotation"
	"planmark/api/internal/blocks"
)

func testBlocks() []blocks.Block {
	return blocks.Parse("# Plan\n\nFirst step\n\nSecond step")
}

func TestExportNoAnnotations(t *testing.T) {
	if got := Export(testBlocks(), nil); got != NoChanges {
		t.Fatalf("Export() = %q, want %q", got, NoChanges)
	}
	if got := Export(nil, []annotation.Annotation{}); got != "No changes detected." {
		t.Fatalf("Export() = %q", got)
	}
}

func TestExportPlurality(t *testing.T) {
	one := []annotation.Annotation{
		{ID: "a1", BlockID: "block-1", Type: annotation.TypeComment, OriginalText: "First step", Text: "Why?"},
	}
	if got := Export(testBlocks(), one); !strings.Contains(got, "1 piece of feedback") {
		t.Fatalf("Export() missing singular summary:\n%s", got)
	}

	three := append(one,
		annotation.Annotation{ID: "a2", BlockID: "block-2", Type: annotation.TypeDeletion, OriginalText: "Second step"},
		annotation.Annotation{ID: "a3", Type: annotation.TypeGlobalComment, Text: "Overall fine"},
	)
	if got := Export(testBlocks(), three); !strings.Contains(got, "3 pieces of feedback") {
		t.Fatalf("Export() missing plural summary:\n%s", got)
	}
}

func TestExportOrdersByBlockOrder(t *testing.T) {
	planBlocks := testBlocks()
	annotations := []annotation.Annotation{
		{ID: "late", BlockID: "block-2", Type: annotation.TypeComment, OriginalText: "Second step", Text: "second comment"},
		{ID: "early", BlockID: "block-1", Type: annotation.TypeComment, OriginalText: "First step", Text: "first comment"},
		{ID: "early-2", BlockID: "block-1", Type: annotation.TypeComment, OriginalText: "First", Text: "first again"},
		{ID: "global", Type: annotation.TypeGlobalComment, Text: "global note"},
	}

	got := Export(planBlocks, annotations)
	positions := []int{
		strings.Index(got, "global note"),
		strings.Index(got, "first comment"),
		strings.Index(got, "first again"),
		strings.Index(got, "second comment"),
	}
	for i := 1; i < len(positions); i++ {
		if positions[i-1] < 0 || positions[i] < 0 || positions[i-1] > positions[i] {
			t.Fatalf("unexpected ordering %v in:\n%s", positions, got)
		}
	}
	if annotations[0].ID != "late" {
		t.Fatal("Export() must not reorder its input")
	}
}

func TestExportTemplates(t *testing.T) {
	planBlocks := testBlocks()
	annotations := []annotation.Annotation{
		{ID: "d", BlockID: "block-1", Type: annotation.TypeDeletion, OriginalText: "First step"},
		{ID: "r", BlockID: "block-1", Type: annotation.TypeReplacement, OriginalText: "First", Text: "Initial"},
		{ID: "c", BlockID: "block-2", Type: annotation.TypeComment, OriginalText: "Second step", Text: "Clarify", Tag: annotation.TagFix, IsMacro: true},
		{ID: "i", BlockID: "block-2", Type: annotation.TypeInsertion, Text: "Third step", ImagePaths: []string{"plan-1/shot.png"}},
		{ID: "g", Type: annotation.TypeGlobalComment, Text: "Ship it"},
	}

	got := Export(planBlocks, annotations, "plan-1/overview.png")
	for _, want := range []string{
		"## Reference Images\n",
		"1. `plan-1/overview.png`\n",
		"## 1. General feedback\n> Ship it\n",
		"## 2. Remove this\n```\nFirst step\n```\n> I don't want this in the plan.\n",
		"## 3. Change this\n**From:**\n```\nFirst\n```\n**To:**\n```\nInitial\n```\n",
		"## 4. @FIX Feedback on: \"Second step\" [MACRO]\n> Clarify\n",
		"## 5. Add this\n```\nThird step\n```\n**Attached images:**\n- `plan-1/shot.png`\n",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("Export() missing %q in:\n%s", want, got)
		}
	}
}

func TestExportIsDeterministic(t *testing.T) {
	annotations := []annotation.Annotation{
		{ID: "a", BlockID: "block-2", Type: annotation.TypeComment, OriginalText: "Second step", Text: "x"},
		{ID: "b", BlockID: "block-1", Type: annotation.TypeComment, OriginalText: "First step", Text: "y"},
	}
	if Export(testBlocks(), annotations) != Export(testBlocks(), annotations) {
		t.Fatal("Export() should be deterministic")
	}
}

func TestExportTruncatesLongSelections(t *testing.T) {
	long := strings.Repeat("word ", 40)
	got := Export(testBlocks(), []annotation.Annotation{
		{ID: "a", BlockID: "block-1", Type: annotation.TypeComment, OriginalText: long, Text: "too long"},
	})
	if !strings.Contains(got, "...\"\n") {
		t.Fatalf("expected truncated selection in heading:\n%s", got)
	}
}

func TestExportUnknownBlockSortsLast(t *testing.T) {
	got := Export(testBlocks(), []annotation.Annotation{
		{ID: "stale", BlockID: "block-99", Type: annotation.TypeComment, OriginalText: "gone", Text: "stale note"},
		{ID: "fresh", BlockID: "block-1", Type: annotation.TypeComment, OriginalText: "First step", Text: "fresh note"},
	})
	if strings.Index(got, "fresh note") > strings.Index(got, "stale note") {
		t.Fatalf("annotation on a missing block should sort last:\n%s", got)
	}
}
