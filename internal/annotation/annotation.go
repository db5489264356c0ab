// Package annotation defines reviewer feedback records anchored to plan blocks.
package annotation

import (
	"strings"
)

// Type is the kind of change an annotation asks for.
type Type string

const (
	TypeDeletion      Type = "DELETION"
	TypeInsertion     Type = "INSERTION"
	TypeReplacement   Type = "REPLACEMENT"
	TypeComment       Type = "COMMENT"
	TypeGlobalComment Type = "GLOBAL_COMMENT"
)

// Types lists every annotation type.
var Types = []Type{TypeDeletion, TypeInsertion, TypeReplacement, TypeComment, TypeGlobalComment}

// Valid reports whether t is a known annotation type.
func (t Type) Valid() bool {
	switch t {
	case TypeDeletion, TypeInsertion, TypeReplacement, TypeComment, TypeGlobalComment:
		return true
	default:
		return false
	}
}

// Annotation is one piece of reviewer feedback. BlockID is empty for
// document-wide feedback.
type Annotation struct {
	ID           string   `json:"id" validate:"required"`
	BlockID      string   `json:"blockId"`
	Type         Type     `json:"type" validate:"required,annotation_type"`
	OriginalText string   `json:"originalText"`
	Text         string   `json:"text,omitempty"`
	Tag          Tag      `json:"tag,omitempty" validate:"omitempty,annotation_tag"`
	IsMacro      bool     `json:"isMacro,omitempty"`
	CreatedAt    int64    `json:"createdAt" validate:"gte=0"`
	Author       string   `json:"author,omitempty" validate:"max=200"`
	ImagePaths   []string `json:"imagePaths,omitempty" validate:"dive,required"`

	// Offsets are owned by the presentation layer and carried through untouched.
	StartOffset int `json:"startOffset,omitempty"`
	EndOffset   int `json:"endOffset,omitempty"`
}

// IsGlobal reports whether the annotation targets the whole document.
func (a Annotation) IsGlobal() bool {
	return a.Type == TypeGlobalComment || strings.TrimSpace(a.BlockID) == ""
}

// HasValidationTag reports whether the annotation carries a sign-off tag.
func (a Annotation) HasValidationTag() bool {
	return a.Tag.Category() == CategoryValidation
}

// Remove returns list without the annotation identified by id, preserving the
// order of the rest. The input slice is not modified.
func Remove(list []Annotation, id string) []Annotation {
	result := make([]Annotation, 0, len(list))
	for _, item := range list {
		if item.ID == id {
			continue
		}
		result = append(result, item)
	}
	return result
}

// Find returns the annotation with the given id.
func Find(list []Annotation, id string) (Annotation, bool) {
	for _, item := range list {
		if item.ID == id {
			return item, true
		}
	}
	return Annotation{}, false
}

// ForBlock returns the annotations targeting blockID in insertion order.
func ForBlock(list []Annotation, blockID string) []Annotation {
	result := make([]Annotation, 0)
	for _, item := range list {
		if item.BlockID == blockID {
			result = append(result, item)
		}
	}
	return result
}

// WithValidationTags filters list down to annotations carrying a sign-off tag.
func WithValidationTags(list []Annotation) []Annotation {
	result := make([]Annotation, 0)
	for _, item := range list {
		if item.HasValidationTag() {
			result = append(result, item)
		}
	}
	return result
}
