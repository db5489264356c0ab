package gitrepo

import (
	"strings"

	"planmark/api/internal/blocks"
)

const maxSlugLength = 50

// GenerateSlug derives a file-safe name from the first heading of a plan,
// falling back to "plan".
func GenerateSlug(markdown string) string {
	for _, block := range blocks.Parse(markdown) {
		if block.Type != blocks.TypeHeading {
			continue
		}
		if slug := slugify(block.Content); slug != "" {
			return slug
		}
	}
	return "plan"
}

func slugify(input string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(input) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastHyphen = false
			continue
		}
		if !lastHyphen {
			b.WriteByte('-')
			lastHyphen = true
		}
	}
	slug := strings.Trim(b.String(), "-")
	if len(slug) > maxSlugLength {
		slug = strings.TrimRight(slug[:maxSlugLength], "-")
	}
	return slug
}
