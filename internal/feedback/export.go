// Package feedback renders reviewer annotations as a markdown report an agent
// can act on.
package feedback

import (
	"fmt"
	"sort"
	"strings"

	"planmark/api/internal/annotation"
	"planmark/api/internal/blocks"
)

// NoChanges is returned when there is nothing to report.
const NoChanges = "No changes detected."

const commentPreviewLength = 80

// Export renders annotations against the blocks they were made on. Document-wide
// feedback comes first, then block feedback in document order; annotations on
// the same block keep their insertion order. Annotations whose block is not in
// blocks are listed last.
func Export(planBlocks []blocks.Block, annotations []annotation.Annotation, globalAttachments ...string) string {
	if len(annotations) == 0 {
		return NoChanges
	}

	var out strings.Builder
	out.WriteString("# Plan Feedback\n\n")

	if len(globalAttachments) > 0 {
		out.WriteString("## Reference Images\n")
		out.WriteString("Please review these attached images:\n")
		for i, path := range globalAttachments {
			fmt.Fprintf(&out, "%d. `%s`\n", i+1, path)
		}
		out.WriteString("\n")
	}

	noun := "pieces"
	if len(annotations) == 1 {
		noun = "piece"
	}
	fmt.Fprintf(&out, "I've reviewed this plan and have %d %s of feedback:\n\n", len(annotations), noun)

	for i, item := range sortAnnotations(planBlocks, annotations) {
		writeEntry(&out, i+1, item)
	}

	out.WriteString("---\n")
	return out.String()
}

// sortAnnotations orders annotations by (global first, block order, insertion
// order) without modifying the input.
func sortAnnotations(planBlocks []blocks.Block, annotations []annotation.Annotation) []annotation.Annotation {
	orderByID := make(map[string]int, len(planBlocks))
	for _, block := range planBlocks {
		orderByID[block.ID] = block.Order
	}

	type ranked struct {
		item   annotation.Annotation
		group  int
		order  int
		insert int
	}
	rows := make([]ranked, 0, len(annotations))
	for i, item := range annotations {
		row := ranked{item: item, insert: i}
		switch order, known := orderByID[item.BlockID]; {
		case item.IsGlobal():
			row.group = 0
		case known:
			row.group = 1
			row.order = order
		default:
			row.group = 2
		}
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].group != rows[j].group {
			return rows[i].group < rows[j].group
		}
		if rows[i].order != rows[j].order {
			return rows[i].order < rows[j].order
		}
		return rows[i].insert < rows[j].insert
	})

	sorted := make([]annotation.Annotation, 0, len(rows))
	for _, row := range rows {
		sorted = append(sorted, row.item)
	}
	return sorted
}

func writeEntry(out *strings.Builder, index int, item annotation.Annotation) {
	fmt.Fprintf(out, "## %d. %s\n", index, heading(item))

	switch item.Type {
	case annotation.TypeDeletion:
		writeFenced(out, item.OriginalText)
		out.WriteString("> I don't want this in the plan.\n")
	case annotation.TypeInsertion:
		writeFenced(out, item.Text)
	case annotation.TypeReplacement:
		out.WriteString("**From:**\n")
		writeFenced(out, item.OriginalText)
		out.WriteString("**To:**\n")
		writeFenced(out, item.Text)
	case annotation.TypeComment, annotation.TypeGlobalComment:
		writeQuoted(out, item.Text)
	default:
		writeQuoted(out, item.Text)
	}

	if len(item.ImagePaths) > 0 {
		out.WriteString("**Attached images:**\n")
		for _, path := range item.ImagePaths {
			fmt.Fprintf(out, "- `%s`\n", path)
		}
	}
	out.WriteString("\n")
}

func heading(item annotation.Annotation) string {
	var title string
	switch item.Type {
	case annotation.TypeDeletion:
		title = "Remove this"
	case annotation.TypeInsertion:
		title = "Add this"
	case annotation.TypeReplacement:
		title = "Change this"
	case annotation.TypeComment:
		title = fmt.Sprintf("Feedback on: \"%s\"", truncate(item.OriginalText, commentPreviewLength))
	case annotation.TypeGlobalComment:
		title = "General feedback"
	default:
		title = "Feedback"
	}
	if item.Tag != "" {
		title = item.Tag.Label() + " " + title
	}
	if item.IsMacro {
		title += " [MACRO]"
	}
	return title
}

func writeFenced(out *strings.Builder, text string) {
	fence := "```"
	for strings.Contains(text, fence) {
		fence += "`"
	}
	fmt.Fprintf(out, "%s\n%s\n%s\n", fence, text, fence)
}

func writeQuoted(out *strings.Builder, text string) {
	for _, line := range strings.Split(text, "\n") {
		if line == "" {
			out.WriteString(">\n")
			continue
		}
		fmt.Fprintf(out, "> %s\n", line)
	}
}

func truncate(value string, limit int) string {
	collapsed := strings.Join(strings.Fields(value), " ")
	runes := []rune(collapsed)
	if len(runes) <= limit {
		return collapsed
	}
	return string(runes[:limit]) + "..."
}
