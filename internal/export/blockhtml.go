package export

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"planmark/api/internal/blocks"
)

var (
	boldPattern      = regexp.MustCompile(`\*\*(.+?)\*\*`)
	italicPattern    = regexp.MustCompile(`\*([^*]+)\*`)
	linkPattern      = regexp.MustCompile(`\[([^\]]+)\]\(([^)\s]+)\)`)
	separatorPattern = regexp.MustCompile(`^\|?\s*:?-+:?\s*(\|\s*:?-+:?\s*)*\|?$`)
)

// RenderBlocksHTML converts parsed plan blocks to HTML. Consecutive list items
// share one list element.
func RenderBlocksHTML(planBlocks []blocks.Block) string {
	var out strings.Builder
	inList := false
	for _, block := range planBlocks {
		if block.Type == blocks.TypeListItem {
			if !inList {
				out.WriteString("<ul>\n")
				inList = true
			}
			out.WriteString(renderListItem(block))
			continue
		}
		if inList {
			out.WriteString("</ul>\n")
			inList = false
		}
		out.WriteString(renderBlock(block))
	}
	if inList {
		out.WriteString("</ul>\n")
	}
	return out.String()
}

func renderBlock(block blocks.Block) string {
	switch block.Type {
	case blocks.TypeHeading:
		level := min(max(block.Level, 1), 6)
		return fmt.Sprintf("<h%d>%s</h%d>\n", level, renderInline(block.Content), level)
	case blocks.TypeBlockquote:
		return fmt.Sprintf("<blockquote>\n<p>%s</p>\n</blockquote>\n", renderLines(block.Content))
	case blocks.TypeCode:
		if block.Language != "" {
			return fmt.Sprintf("<pre><code class=\"language-%s\">%s</code></pre>\n",
				html.EscapeString(block.Language), html.EscapeString(block.Content))
		}
		return fmt.Sprintf("<pre><code>%s</code></pre>\n", html.EscapeString(block.Content))
	case blocks.TypeHR:
		return "<hr>\n"
	case blocks.TypeTable:
		return renderTable(block.Content)
	default:
		if strings.TrimSpace(block.Content) == "" {
			return ""
		}
		return fmt.Sprintf("<p>%s</p>\n", renderLines(block.Content))
	}
}

func renderListItem(block blocks.Block) string {
	class := ""
	if block.Level > 0 {
		class = fmt.Sprintf(" class=\"level-%d\"", block.Level)
	}
	if block.Checked == nil {
		return fmt.Sprintf("<li%s>%s</li>\n", class, renderInline(block.Content))
	}
	checked := ""
	if *block.Checked {
		checked = " checked"
	}
	return fmt.Sprintf("<li%s><input type=\"checkbox\" disabled%s> %s</li>\n", class, checked, renderInline(block.Content))
}

func renderTable(content string) string {
	var rows [][]string
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || separatorPattern.MatchString(trimmed) {
			continue
		}
		rows = append(rows, splitCells(trimmed))
	}
	if len(rows) == 0 {
		return ""
	}

	var out strings.Builder
	out.WriteString("<table>\n<thead>\n<tr>")
	for _, cell := range rows[0] {
		out.WriteString("<th>" + renderInline(cell) + "</th>")
	}
	out.WriteString("</tr>\n</thead>\n")
	if len(rows) > 1 {
		out.WriteString("<tbody>\n")
		for _, row := range rows[1:] {
			out.WriteString("<tr>")
			for _, cell := range row {
				out.WriteString("<td>" + renderInline(cell) + "</td>")
			}
			out.WriteString("</tr>\n")
		}
		out.WriteString("</tbody>\n")
	}
	out.WriteString("</table>\n")
	return out.String()
}

func splitCells(row string) []string {
	row = strings.TrimPrefix(row, "|")
	row = strings.TrimSuffix(row, "|")
	cells := strings.Split(row, "|")
	for i := range cells {
		cells[i] = strings.TrimSpace(cells[i])
	}
	return cells
}

func renderLines(content string) string {
	lines := strings.Split(content, "\n")
	for i := range lines {
		lines[i] = renderInline(lines[i])
	}
	return strings.Join(lines, "<br>\n")
}

// renderInline handles code spans, links, bold and italic. Text inside code
// spans is escaped and left alone.
func renderInline(text string) string {
	parts := strings.Split(text, "`")
	var out strings.Builder
	for i, part := range parts {
		// An unmatched trailing backtick is literal.
		if i%2 == 1 && i < len(parts)-1 {
			out.WriteString("<code>" + html.EscapeString(part) + "</code>")
			continue
		}
		if i%2 == 1 {
			out.WriteString("`")
		}
		out.WriteString(renderEmphasis(html.EscapeString(part)))
	}
	return out.String()
}

func renderEmphasis(escaped string) string {
	escaped = linkPattern.ReplaceAllStringFunc(escaped, func(match string) string {
		groups := linkPattern.FindStringSubmatch(match)
		href := groups[2]
		if !safeHref(href) {
			return groups[1]
		}
		return fmt.Sprintf(`<a href="%s">%s</a>`, href, groups[1])
	})
	escaped = boldPattern.ReplaceAllString(escaped, "<strong>$1</strong>")
	return italicPattern.ReplaceAllString(escaped, "<em>$1</em>")
}

func safeHref(href string) bool {
	lower := strings.ToLower(href)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") || strings.HasPrefix(lower, "mailto:") {
		return true
	}
	return strings.HasPrefix(href, "#") || strings.HasPrefix(href, "/") || !strings.Contains(href, ":")
}
