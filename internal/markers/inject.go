package markers

import (
	"sort"
	"strings"
	"time"

	"planmark/api/internal/annotation"
)

// InjectResult is the document after injection and the markers that were added.
type InjectResult struct {
	Markdown     string             `json:"markdown"`
	MarkersAdded int                `json:"markersAdded"`
	Markers      []ValidationMarker `json:"markers"`
}

type insertion struct {
	after int
	seq   int
	text  string
}

// Inject writes a marker for every annotation carrying a validation tag. The
// marker goes on the line after a heading, or after the last line of any other
// block. Annotations whose text cannot be located, or whose block already
// carries the same marker, are skipped.
func Inject(markdown string, annotations []annotation.Annotation) InjectResult {
	result := InjectResult{Markdown: markdown, Markers: make([]ValidationMarker, 0)}
	signOffs := annotation.WithValidationTags(annotations)
	if len(signOffs) == 0 || markdown == "" {
		return result
	}

	lines := strings.Split(markdown, "\n")
	pending := make(map[int]map[annotation.Tag]bool)
	inserts := make([]insertion, 0, len(signOffs))
	for _, item := range signOffs {
		target := findLine(lines, item.OriginalText)
		if target < 0 {
			continue
		}
		end := blockEnd(lines, target)
		if pending[end][item.Tag] || hasExistingMarker(lines, lineContext(lines[target]), item.Tag) {
			continue
		}
		if pending[end] == nil {
			pending[end] = make(map[annotation.Tag]bool)
		}
		pending[end][item.Tag] = true
		inserts = append(inserts, insertion{after: end, seq: len(inserts), text: Format(item)})
	}
	if len(inserts) == 0 {
		return result
	}

	sort.SliceStable(inserts, func(i, j int) bool {
		if inserts[i].after != inserts[j].after {
			return inserts[i].after < inserts[j].after
		}
		return inserts[i].seq < inserts[j].seq
	})

	out := make([]string, 0, len(lines)+len(inserts))
	added := make(map[int]bool, len(inserts))
	next := 0
	for i, line := range lines {
		out = append(out, line)
		for next < len(inserts) && inserts[next].after == i {
			out = append(out, inserts[next].text)
			added[len(out)] = true
			next++
		}
	}

	result.Markdown = strings.Join(out, "\n")
	result.MarkersAdded = len(inserts)
	for _, marker := range Extract(result.Markdown) {
		if added[marker.Line] {
			result.Markers = append(result.Markers, marker)
		}
	}
	return result
}

// Format renders the marker comment for a validation annotation.
func Format(item annotation.Annotation) string {
	var b strings.Builder
	b.WriteString("<!-- ")
	b.WriteString(item.Tag.Label())
	if author := sanitizeAttribute(item.Author); author != "" {
		b.WriteString(` by="` + author + `"`)
	}
	if item.CreatedAt > 0 {
		b.WriteString(` date="` + time.UnixMilli(item.CreatedAt).UTC().Format("2006-01-02") + `"`)
	}
	b.WriteString(" -->")
	return b.String()
}

// findLine returns the first line containing the first line of text, falling
// back to the first line whose content is contained in it.
func findLine(lines []string, text string) int {
	needle := firstNonEmptyLine(text)
	if needle == "" {
		return -1
	}
	for i, line := range lines {
		if !isMarkerLine(line) && strings.Contains(line, needle) {
			return i
		}
	}
	for i, line := range lines {
		if isBlank(line) || isMarkerLine(line) {
			continue
		}
		content := strings.TrimSpace(linePrefixPattern.ReplaceAllString(strings.TrimSpace(line), ""))
		if content != "" && strings.Contains(needle, content) {
			return i
		}
	}
	return -1
}

func firstNonEmptyLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func sanitizeAttribute(value string) string {
	value = strings.TrimSpace(value)
	value = strings.ReplaceAll(value, `"`, "'")
	for strings.Contains(value, "--") {
		value = strings.ReplaceAll(value, "--", "-")
	}
	return strings.Join(strings.Fields(value), " ")
}
