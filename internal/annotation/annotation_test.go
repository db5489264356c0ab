package annotation

import (
	"errors"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		input     Annotation
		wantField string
	}{
		{
			name:  "valid comment",
			input: Annotation{ID: "a1", BlockID: "block-1", Type: TypeComment, OriginalText: "step", Text: "why?"},
		},
		{
			name:  "valid global comment",
			input: Annotation{ID: "a2", Type: TypeGlobalComment, Text: "Looks good overall"},
		},
		{
			name:  "valid tagged deletion",
			input: Annotation{ID: "a3", BlockID: "block-2", Type: TypeDeletion, OriginalText: "drop me", Tag: TagFix},
		},
		{
			name:      "global comment with selection",
			input:     Annotation{ID: "a4", Type: TypeGlobalComment, OriginalText: "x", Text: "y"},
			wantField: "originalText",
		},
		{
			name:      "deletion without selection",
			input:     Annotation{ID: "a5", BlockID: "block-1", Type: TypeDeletion},
			wantField: "originalText",
		},
		{
			name:      "deletion with text",
			input:     Annotation{ID: "a6", BlockID: "block-1", Type: TypeDeletion, OriginalText: "x", Text: "y"},
			wantField: "text",
		},
		{
			name:      "insertion without text",
			input:     Annotation{ID: "a7", BlockID: "block-1", Type: TypeInsertion},
			wantField: "text",
		},
		{
			name:      "comment without block",
			input:     Annotation{ID: "a8", Type: TypeComment, OriginalText: "x", Text: "y"},
			wantField: "blockId",
		},
		{
			name:      "unknown type",
			input:     Annotation{ID: "a9", BlockID: "block-1", Type: "MOVE"},
			wantField: "type",
		},
		{
			name:      "unknown tag",
			input:     Annotation{ID: "a10", BlockID: "block-1", Type: TypeComment, OriginalText: "x", Text: "y", Tag: "NOPE"},
			wantField: "tag",
		},
		{
			name:      "missing id",
			input:     Annotation{BlockID: "block-1", Type: TypeComment, OriginalText: "x", Text: "y"},
			wantField: "id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.input)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			var validationErr *ValidationError
			if !errors.As(err, &validationErr) {
				t.Fatalf("Validate() error = %v, want *ValidationError", err)
			}
			if _, ok := validationErr.Fields[tt.wantField]; !ok {
				t.Fatalf("Validate() fields = %v, want %s", validationErr.Fields, tt.wantField)
			}
		})
	}
}

func TestTagCategories(t *testing.T) {
	counts := map[Category]int{}
	for _, tag := range Tags {
		counts[tag.Category()]++
	}
	if len(Tags) != 12 {
		t.Fatalf("expected 12 tags, got %d", len(Tags))
	}
	if counts[CategoryValidation] != 3 {
		t.Fatalf("expected 3 validation tags, got %d", counts[CategoryValidation])
	}
	for _, tag := range ValidationTags {
		if tag.Category() != CategoryValidation {
			t.Fatalf("%s should be a validation tag", tag)
		}
	}
	if Tag("OTHER").Category() != "" {
		t.Fatal("unknown tag should have no category")
	}
}

func TestParseTag(t *testing.T) {
	tests := []struct {
		input string
		want  Tag
		ok    bool
	}{
		{"@fix", TagFix, true},
		{"APPROVED", TagApproved, true},
		{" @Locked ", TagLocked, true},
		{"@unknown", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseTag(tt.input)
		if got != tt.want || ok != tt.ok {
			t.Fatalf("ParseTag(%q) = %q, %v; want %q, %v", tt.input, got, ok, tt.want, tt.ok)
		}
	}
	if TagFix.Label() != "@FIX" {
		t.Fatalf("Label() = %q", TagFix.Label())
	}
}

func TestListHelpers(t *testing.T) {
	list := []Annotation{
		{ID: "a", BlockID: "block-1", Tag: TagOK},
		{ID: "b", BlockID: "block-2"},
		{ID: "c", BlockID: "block-1", Tag: TagFix},
	}

	removed := Remove(list, "b")
	if len(removed) != 2 || removed[0].ID != "a" || removed[1].ID != "c" {
		t.Fatalf("Remove() = %+v", removed)
	}
	if len(list) != 3 {
		t.Fatal("Remove() must not modify its input")
	}

	if got := ForBlock(list, "block-1"); len(got) != 2 || got[1].ID != "c" {
		t.Fatalf("ForBlock() = %+v", got)
	}
	if got := WithValidationTags(list); len(got) != 1 || got[0].ID != "a" {
		t.Fatalf("WithValidationTags() = %+v", got)
	}
	if _, ok := Find(list, "missing"); ok {
		t.Fatal("Find() should miss unknown ids")
	}
}
