// Package blocks turns plan markdown into an ordered list of addressable blocks.
package blocks

import (
	"encoding/json"
	"fmt"
)

// Type identifies the kind of structural unit a Block represents.
type Type string

const (
	TypeParagraph  Type = "paragraph"
	TypeHeading    Type = "heading"
	TypeBlockquote Type = "blockquote"
	TypeListItem   Type = "list-item"
	TypeCode       Type = "code"
	TypeHR         Type = "hr"
	TypeTable      Type = "table"
)

// Types lists every block type in a stable order.
var Types = []Type{
	TypeParagraph,
	TypeHeading,
	TypeBlockquote,
	TypeListItem,
	TypeCode,
	TypeHR,
	TypeTable,
}

// Valid reports whether t is one of the known block types.
func (t Type) Valid() bool {
	switch t {
	case TypeParagraph, TypeHeading, TypeBlockquote, TypeListItem, TypeCode, TypeHR, TypeTable:
		return true
	default:
		return false
	}
}

// Block is one structural unit of a parsed document. Blocks are produced fresh
// by every parse and are never mutated afterwards.
type Block struct {
	ID      string `json:"id"`
	Type    Type   `json:"type"`
	Content string `json:"content"`
	// Level is the heading depth (1-6) or the 0-based list nesting depth. It
	// is only serialized for those two types.
	Level    int    `json:"level"`
	Language string `json:"language,omitempty"`
	// Checked is nil for anything that is not a checkbox list item.
	Checked   *bool `json:"checked,omitempty"`
	Order     int   `json:"order"`
	StartLine int   `json:"startLine"`
}

// MarshalJSON leaves level out for block types that have no depth.
func (b Block) MarshalJSON() ([]byte, error) {
	type plain Block
	out := struct {
		plain
		Level *int `json:"level,omitempty"`
	}{plain: plain(b)}
	if b.Type == TypeHeading || b.Type == TypeListItem {
		level := b.Level
		out.Level = &level
	}
	return json.Marshal(out)
}

// Document is a parsed plan: its frontmatter (nil when absent) and blocks.
type Document struct {
	Frontmatter Frontmatter `json:"frontmatter"`
	Blocks      []Block     `json:"blocks"`
}

func blockID(index int) string {
	return fmt.Sprintf("block-%d", index)
}
