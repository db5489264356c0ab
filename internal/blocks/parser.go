package blocks

import (
	"regexp"
	"strings"
)

var (
	headingPattern   = regexp.MustCompile(`^(#{1,6})(?:\s+(.*?))?(?:\s+#+)?\s*$`)
	listItemPattern  = regexp.MustCompile(`^([-*+]|\d+[.)])\s+(.*)$`)
	emptyListPattern = regexp.MustCompile(`^([-*+]|\d+[.)])$`)
	checkboxPattern  = regexp.MustCompile(`^\[([ xX])\](?:\s+|$)`)
	hrPattern        = regexp.MustCompile(`^-{3,}$`)
	tableSepPattern  = regexp.MustCompile(`^[\s|:-]+$`)
	// sign-off comments written after a block; they are not content
	markerLinePattern = regexp.MustCompile(`^\s*<!--\s*@(?:OK|APPROVED|LOCKED)(?:\s+[A-Za-z][\w-]*="[^"]*")*\s*-->\s*$`)
)

// indentUnit is the number of spaces that make up one list nesting level.
// A tab counts as one unit.
const indentUnit = 2

// ParseDocument extracts frontmatter and parses the remaining body.
func ParseDocument(markdown string) Document {
	extracted := ExtractFrontmatter(markdown)
	return Document{
		Frontmatter: extracted.Frontmatter,
		Blocks:      parseLines(extracted.Content, extracted.BodyLine),
	}
}

// Parse converts markdown into blocks in document order. Frontmatter is
// stripped first; StartLine values refer to lines of the original input.
// Parse never fails: input it cannot classify becomes paragraphs.
func Parse(markdown string) []Block {
	return ParseDocument(markdown).Blocks
}

type parser struct {
	lines     []string
	firstLine int
	blocks    []Block

	paragraph      []string
	paragraphStart int
}

func parseLines(content string, firstLine int) []Block {
	p := &parser{
		lines:     strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n"),
		firstLine: firstLine,
		blocks:    make([]Block, 0),
	}
	p.run()
	return p.blocks
}

func (p *parser) run() {
	for i := 0; i < len(p.lines); i++ {
		line := p.lines[i]
		trimmed := strings.TrimSpace(line)

		if trimmed == "" || markerLinePattern.MatchString(line) {
			p.flushParagraph()
			continue
		}

		if strings.HasPrefix(trimmed, "```") {
			if end := p.closingFence(i); end > 0 {
				p.flushParagraph()
				p.emit(Block{
					Type:     TypeCode,
					Content:  strings.Join(p.lines[i+1:end], "\n"),
					Language: fenceLanguage(trimmed),
				}, i)
				i = end
				continue
			}
			p.appendParagraph(line, i)
			continue
		}

		if match := headingPattern.FindStringSubmatch(trimmed); match != nil {
			p.flushParagraph()
			p.emit(Block{
				Type:    TypeHeading,
				Content: strings.TrimSpace(match[2]),
				Level:   len(match[1]),
			}, i)
			continue
		}

		if hrPattern.MatchString(trimmed) {
			p.flushParagraph()
			p.emit(Block{Type: TypeHR}, i)
			continue
		}

		if strings.HasPrefix(trimmed, ">") {
			p.flushParagraph()
			i = p.blockquote(i)
			continue
		}

		if isListItem(trimmed) {
			p.flushParagraph()
			p.emit(listItem(line, trimmed), i)
			continue
		}

		if p.isTableStart(i) {
			p.flushParagraph()
			i = p.table(i)
			continue
		}

		p.appendParagraph(line, i)
	}
	p.flushParagraph()
}

func (p *parser) emit(block Block, lineIndex int) {
	index := len(p.blocks)
	block.ID = blockID(index)
	block.Order = index
	block.StartLine = p.firstLine + lineIndex
	p.blocks = append(p.blocks, block)
}

func (p *parser) appendParagraph(line string, lineIndex int) {
	if len(p.paragraph) == 0 {
		p.paragraphStart = lineIndex
	}
	p.paragraph = append(p.paragraph, line)
}

func (p *parser) flushParagraph() {
	if len(p.paragraph) == 0 {
		return
	}
	p.emit(Block{
		Type:    TypeParagraph,
		Content: strings.Join(p.paragraph, "\n"),
	}, p.paragraphStart)
	p.paragraph = nil
}

// closingFence returns the index of the fence line closing the code block
// opened at start, or -1 when the fence is never closed.
func (p *parser) closingFence(start int) int {
	for j := start + 1; j < len(p.lines); j++ {
		if strings.HasPrefix(strings.TrimSpace(p.lines[j]), "```") {
			return j
		}
	}
	return -1
}

func fenceLanguage(openingFence string) string {
	info := strings.TrimSpace(strings.TrimLeft(openingFence, "`"))
	if info == "" {
		return ""
	}
	return strings.Fields(info)[0]
}

func (p *parser) blockquote(start int) int {
	quoted := make([]string, 0, 4)
	end := start
	for j := start; j < len(p.lines); j++ {
		trimmed := strings.TrimSpace(p.lines[j])
		if !strings.HasPrefix(trimmed, ">") {
			break
		}
		text := strings.TrimPrefix(trimmed, ">")
		text = strings.TrimPrefix(text, " ")
		quoted = append(quoted, text)
		end = j
	}
	p.emit(Block{Type: TypeBlockquote, Content: strings.Join(quoted, "\n")}, start)
	return end
}

func isListItem(trimmed string) bool {
	return listItemPattern.MatchString(trimmed) || emptyListPattern.MatchString(trimmed)
}

func listItem(line, trimmed string) Block {
	content := ""
	if match := listItemPattern.FindStringSubmatch(trimmed); match != nil {
		content = match[2]
	}

	block := Block{Type: TypeListItem, Level: indentLevel(line)}
	if match := checkboxPattern.FindStringSubmatch(content); match != nil {
		checked := match[1] != " "
		block.Checked = &checked
		content = content[len(match[0]):]
	}
	block.Content = strings.TrimSpace(content)
	return block
}

func indentLevel(line string) int {
	width := 0
	for _, r := range line {
		switch r {
		case ' ':
			width++
		case '\t':
			width += indentUnit
		default:
			return width / indentUnit
		}
	}
	return width / indentUnit
}

func isTableRow(trimmed string) bool {
	return strings.Contains(trimmed, "|")
}

func isTableSeparator(trimmed string) bool {
	return strings.Contains(trimmed, "-") &&
		strings.Contains(trimmed, "|") &&
		tableSepPattern.MatchString(trimmed)
}

func (p *parser) isTableStart(i int) bool {
	if i+1 >= len(p.lines) {
		return false
	}
	return isTableRow(strings.TrimSpace(p.lines[i])) && isTableSeparator(strings.TrimSpace(p.lines[i+1]))
}

func (p *parser) table(start int) int {
	rows := []string{p.lines[start], p.lines[start+1]}
	end := start + 1
	for j := start + 2; j < len(p.lines); j++ {
		trimmed := strings.TrimSpace(p.lines[j])
		if trimmed == "" || !isTableRow(trimmed) {
			break
		}
		rows = append(rows, p.lines[j])
		end = j
	}
	p.emit(Block{Type: TypeTable, Content: strings.Join(rows, "\n")}, start)
	return end
}
