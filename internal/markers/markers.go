// Package markers reads and writes sign-off markers embedded in plan markdown
// as HTML comments, e.g. <!-- @APPROVED by="ana" date="2026-01-02" -->.
package markers

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"planmark/api/internal/annotation"
)

const (
	contextLength      = 50
	contextMatchLength = 30
	markerLookahead    = 3
)

var (
	markerPattern     = regexp.MustCompile(`<!--\s*@(OK|APPROVED|LOCKED)((?:\s+[A-Za-z][\w-]*="[^"]*")*)\s*-->`)
	markerLinePattern = regexp.MustCompile(`^\s*` + markerPattern.String() + `\s*$`)
	attributePattern  = regexp.MustCompile(`([A-Za-z][\w-]*)="([^"]*)"`)
	headingPattern    = regexp.MustCompile(`^#{1,6}\s+(.*?)(?:\s+#+)?\s*$`)
	hrPattern         = regexp.MustCompile(`^-{3,}$`)
	blankRunPattern   = regexp.MustCompile(`\n(?:[ \t]*\n){2,}`)
	linePrefixPattern = regexp.MustCompile(`^(?:#{1,6}\s+|>\s?|[-*+]\s+(?:\[[ xX]\]\s+)?|\d+[.)]\s+)`)
)

// ValidationMarker is one sign-off comment found in a document. Position is the
// byte offset of the comment, Line is 1-based.
type ValidationMarker struct {
	Tag        annotation.Tag    `json:"tag"`
	Position   int               `json:"position"`
	Line       int               `json:"line"`
	Context    string            `json:"context,omitempty"`
	Attributes map[string]string `json:"attributes"`
}

// Extract returns every marker in markdown in document order.
func Extract(markdown string) []ValidationMarker {
	found := make([]ValidationMarker, 0)
	if markdown == "" {
		return found
	}
	lines := strings.Split(markdown, "\n")
	position := 0
	for i, line := range lines {
		for _, match := range markerPattern.FindAllStringSubmatchIndex(line, -1) {
			found = append(found, ValidationMarker{
				Tag:        annotation.Tag(line[match[2]:match[3]]),
				Position:   position + match[0],
				Line:       i + 1,
				Context:    precedingContext(lines, i),
				Attributes: parseAttributes(line[match[4]:match[5]]),
			})
		}
		position += len(line) + 1
	}
	return found
}

// Strip removes every marker. Lines holding only a marker are dropped and the
// resulting runs of blank lines collapse to a single blank line.
func Strip(markdown string) string {
	if !markerPattern.MatchString(markdown) {
		return markdown
	}
	lines := strings.Split(markdown, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if markerLinePattern.MatchString(line) {
			continue
		}
		if markerPattern.MatchString(line) {
			line = strings.TrimRight(markerPattern.ReplaceAllString(line, ""), " \t")
		}
		kept = append(kept, line)
	}
	return blankRunPattern.ReplaceAllString(strings.Join(kept, "\n"), "\n\n")
}

// HasExistingMarker reports whether a line whose context starts like context
// is already followed by a tag marker within the next few lines of its block.
func HasExistingMarker(markdown, context string, tag annotation.Tag) bool {
	return hasExistingMarker(strings.Split(markdown, "\n"), context, tag)
}

func hasExistingMarker(lines []string, context string, tag annotation.Tag) bool {
	prefix := firstRunes(context, contextMatchLength)
	if prefix == "" {
		return false
	}
	for i, line := range lines {
		if isBlank(line) || isMarkerLine(line) {
			continue
		}
		if !strings.HasPrefix(lineContext(line), prefix) {
			continue
		}
		if markerFollows(lines, blockEnd(lines, i), tag) {
			return true
		}
	}
	return false
}

func markerFollows(lines []string, end int, tag annotation.Tag) bool {
	for j := end + 1; j < len(lines) && j <= end+markerLookahead; j++ {
		for _, match := range markerPattern.FindAllStringSubmatch(lines[j], -1) {
			if annotation.Tag(match[1]) == tag {
				return true
			}
		}
	}
	return false
}

// blockEnd returns the index of the last line of the block starting at start.
// A heading is its own block and a fenced code block ends at its closing fence.
func blockEnd(lines []string, start int) int {
	if _, closing := fenceRegion(lines, start); closing >= 0 {
		return closing
	}
	if headingPattern.MatchString(strings.TrimSpace(lines[start])) {
		return start
	}
	end := start
	for j := start + 1; j < len(lines); j++ {
		trimmed := strings.TrimSpace(lines[j])
		if trimmed == "" || isFence(trimmed) || headingPattern.MatchString(trimmed) || hrPattern.MatchString(trimmed) || isMarkerLine(lines[j]) {
			break
		}
		end = j
	}
	return end
}

// fenceRegion returns the opening and closing fence lines of the code block
// containing index, or -1, -1. A fence that is never closed opens nothing.
func fenceRegion(lines []string, index int) (int, int) {
	for i := 0; i < len(lines) && i <= index; i++ {
		if !isFence(strings.TrimSpace(lines[i])) {
			continue
		}
		closing := -1
		for j := i + 1; j < len(lines); j++ {
			if isFence(strings.TrimSpace(lines[j])) {
				closing = j
				break
			}
		}
		if closing < 0 {
			continue
		}
		if index <= closing {
			return i, closing
		}
		i = closing
	}
	return -1, -1
}

func isFence(trimmed string) bool {
	return strings.HasPrefix(trimmed, "```")
}

func precedingContext(lines []string, index int) string {
	for j := index - 1; j >= 0; j-- {
		if isBlank(lines[j]) || isMarkerLine(lines[j]) {
			continue
		}
		return lineContext(lines[j])
	}
	return ""
}

// lineContext is heading text for headings and the first characters of the
// line otherwise.
func lineContext(line string) string {
	trimmed := strings.TrimSpace(line)
	if match := headingPattern.FindStringSubmatch(trimmed); match != nil {
		return match[1]
	}
	return firstRunes(trimmed, contextLength)
}

func parseAttributes(raw string) map[string]string {
	attrs := make(map[string]string)
	for _, match := range attributePattern.FindAllStringSubmatch(raw, -1) {
		attrs[match[1]] = match[2]
	}
	return attrs
}

func isBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}

func isMarkerLine(line string) bool {
	return markerLinePattern.MatchString(line)
}

func firstRunes(value string, limit int) string {
	if utf8.RuneCountInString(value) <= limit {
		return value
	}
	return string([]rune(value)[:limit])
}
