package blocks

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// Frontmatter is the flat key/value header of a plan. Values are either a
// string or a []string.
type Frontmatter map[string]any

// String returns the scalar value stored under key.
func (f Frontmatter) String(key string) string {
	value, _ := f[key].(string)
	return value
}

// List returns the list value stored under key. A scalar is returned as a
// single-element list.
func (f Frontmatter) List(key string) []string {
	switch value := f[key].(type) {
	case []string:
		return value
	case string:
		return []string{value}
	default:
		return nil
	}
}

// FrontmatterResult is the outcome of ExtractFrontmatter.
type FrontmatterResult struct {
	Frontmatter Frontmatter
	Content     string
	// BodyLine is the 1-based line of the original input at which Content starts.
	BodyLine int
}

const fence = "---"

// ExtractFrontmatter splits a leading `---` delimited header from markdown.
// When the header is absent or never closed, Frontmatter is nil and Content is
// the original input.
func ExtractFrontmatter(markdown string) FrontmatterResult {
	original := FrontmatterResult{Content: markdown, BodyLine: 1}
	lines := strings.Split(markdown, "\n")
	if len(lines) == 0 || strings.TrimRight(lines[0], " \t\r") != fence {
		return original
	}

	closing := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimRight(lines[i], " \t\r") == fence {
			closing = i
			break
		}
	}
	if closing < 0 {
		return original
	}

	header := strings.Join(lines[1:closing], "\n")
	body := closing + 1
	for body < len(lines) && strings.TrimSpace(lines[body]) == "" {
		body++
	}

	content := ""
	if body < len(lines) {
		content = strings.Join(lines[body:], "\n")
	}
	return FrontmatterResult{
		Frontmatter: parseFrontmatter(header),
		Content:     content,
		BodyLine:    body + 1,
	}
}

func parseFrontmatter(header string) Frontmatter {
	var root yaml.Node
	if err := yaml.Unmarshal([]byte(header), &root); err != nil {
		return parseFrontmatterLines(header)
	}
	result := Frontmatter{}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return result
	}
	mapping := root.Content[0]
	if mapping.Kind != yaml.MappingNode {
		return parseFrontmatterLines(header)
	}

	for i := 0; i+1 < len(mapping.Content); i += 2 {
		key := mapping.Content[i]
		value := mapping.Content[i+1]
		if key.Kind != yaml.ScalarNode {
			continue
		}
		switch value.Kind {
		case yaml.ScalarNode:
			result[key.Value] = value.Value
		case yaml.SequenceNode:
			items := make([]string, 0, len(value.Content))
			for _, item := range value.Content {
				if item.Kind == yaml.ScalarNode {
					items = append(items, item.Value)
				}
			}
			result[key.Value] = items
		}
	}
	return result
}

// parseFrontmatterLines handles headers that are not valid YAML, such as
// unquoted values containing ": ".
func parseFrontmatterLines(header string) Frontmatter {
	result := Frontmatter{}
	currentKey := ""
	for _, raw := range strings.Split(header, "\n") {
		line := strings.TrimRight(raw, " \t\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		if strings.HasPrefix(trimmed, "- ") && currentKey != "" {
			items, _ := result[currentKey].([]string)
			result[currentKey] = append(items, unquote(strings.TrimSpace(trimmed[2:])))
			continue
		}
		key, value, ok := strings.Cut(trimmed, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" {
			continue
		}
		currentKey = key
		if value == "" {
			result[key] = []string{}
			continue
		}
		result[key] = unquote(value)
	}
	return result
}

func unquote(value string) string {
	if len(value) >= 2 {
		first, last := value[0], value[len(value)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			return value[1 : len(value)-1]
		}
	}
	return value
}
