package export

import (
	"bytes"
	"embed"
	"html/template"
	"strings"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

var documentTemplate = template.Must(template.New("document.html").Funcs(template.FuncMap{
	"lower": strings.ToLower,
	"formatDate": func(t time.Time, layout string) string {
		if t.IsZero() {
			return ""
		}
		return t.Format(layout)
	},
}).ParseFS(templateFS, "templates/document.html"))

// TemplateData holds data for document template rendering
type TemplateData struct {
	Title       string
	Status      string
	Author      string
	UpdatedAt   time.Time
	Fields      []TemplateField
	ContentHTML template.HTML
	Annotations []TemplateAnnotation
	Feedback    string
}

// TemplateField is one frontmatter entry.
type TemplateField struct {
	Key   string
	Value string
}

// TemplateAnnotation holds annotation data for template
type TemplateAnnotation struct {
	Label  string
	Anchor string
	Text   string
	Author string
	Images []string
}

// RenderDocumentHTML renders the document template with provided data
func RenderDocumentHTML(data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := documentTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
