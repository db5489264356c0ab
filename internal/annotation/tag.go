package annotation

import "strings"

// Tag is a methodology label attached to an annotation.
type Tag string

// Category groups tags by intent.
type Category string

const (
	CategoryModification Category = "modification"
	CategoryVerification Category = "verification"
	CategoryValidation   Category = "validation"
)

const (
	TagFix      Tag = "FIX"
	TagRefactor Tag = "REFACTOR"
	TagRewrite  Tag = "REWRITE"
	TagExpand   Tag = "EXPAND"
	TagSimplify Tag = "SIMPLIFY"

	TagVerify   Tag = "VERIFY"
	TagTest     Tag = "TEST"
	TagQuestion Tag = "QUESTION"
	TagResearch Tag = "RESEARCH"

	TagOK       Tag = "OK"
	TagApproved Tag = "APPROVED"
	TagLocked   Tag = "LOCKED"
)

// Tags lists every tag grouped by category.
var Tags = []Tag{
	TagFix, TagRefactor, TagRewrite, TagExpand, TagSimplify,
	TagVerify, TagTest, TagQuestion, TagResearch,
	TagOK, TagApproved, TagLocked,
}

// ValidationTags are the tags persisted into plans as sign-off markers.
var ValidationTags = []Tag{TagOK, TagApproved, TagLocked}

// Category returns the group the tag belongs to, or "" for unknown tags.
func (t Tag) Category() Category {
	switch t {
	case TagFix, TagRefactor, TagRewrite, TagExpand, TagSimplify:
		return CategoryModification
	case TagVerify, TagTest, TagQuestion, TagResearch:
		return CategoryVerification
	case TagOK, TagApproved, TagLocked:
		return CategoryValidation
	default:
		return ""
	}
}

// Valid reports whether t is a known tag.
func (t Tag) Valid() bool {
	return t.Category() != ""
}

// Label renders the tag the way reviewers type it, e.g. "@FIX".
func (t Tag) Label() string {
	if t == "" {
		return ""
	}
	return "@" + string(t)
}

// ParseTag accepts "fix", "FIX" or "@fix". The second result is false for
// unknown tags.
func ParseTag(value string) (Tag, bool) {
	normalized := Tag(strings.ToUpper(strings.TrimPrefix(strings.TrimSpace(value), "@")))
	if !normalized.Valid() {
		return "", false
	}
	return normalized, true
}
