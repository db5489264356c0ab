package export

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"sort"
	"strings"

	"planmark/api/internal/annotation"
	"planmark/api/internal/blocks"
	"planmark/api/internal/feedback"
)

// DataStore defines the interface for data access
type DataStore interface {
	GetPlanInfo(ctx context.Context, planID string) (PlanInfo, error)
	GetPlanMarkdown(ctx context.Context, planID, version string) (string, error)
	ListAnnotations(ctx context.Context, planID string) ([]annotation.Annotation, error)
}

// Service provides plan export functionality
type Service struct {
	store DataStore
}

// NewService creates a new export service
func NewService(store DataStore) *Service {
	return &Service{store: store}
}

// Export generates an export in the requested format
func (s *Service) Export(ctx context.Context, req Request) (*Result, error) {
	info, err := s.store.GetPlanInfo(ctx, req.PlanID)
	if err != nil {
		return nil, fmt.Errorf("get plan: %w", err)
	}

	markdown, err := s.store.GetPlanMarkdown(ctx, req.PlanID, req.Version)
	if err != nil {
		return nil, fmt.Errorf("get plan content: %w", err)
	}
	if strings.TrimSpace(markdown) == "" {
		return nil, ErrContentUnavailable
	}

	doc := blocks.ParseDocument(markdown)
	data := TemplateData{
		Title:       info.Title,
		Status:      info.Status,
		Author:      info.Author,
		UpdatedAt:   info.UpdatedAt,
		Fields:      frontmatterFields(doc.Frontmatter),
		ContentHTML: template.HTML(RenderBlocksHTML(doc.Blocks)),
	}
	if data.Title == "" {
		data.Title = firstHeading(doc.Blocks)
	}

	if req.IncludeAnnotations {
		annotations, err := s.store.ListAnnotations(ctx, req.PlanID)
		if err != nil {
			return nil, fmt.Errorf("list annotations: %w", err)
		}
		data.Annotations = templateAnnotations(annotations)
		if len(annotations) > 0 {
			data.Feedback = feedback.Export(doc.Blocks, annotations)
		}
	}

	html, err := RenderDocumentHTML(data)
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	switch req.Format {
	case FormatHTML:
		return &Result{
			Data:     []byte(html),
			Filename: sanitizeFilename(data.Title) + ".html",
			MimeType: "text/html; charset=utf-8",
		}, nil
	case FormatPDF:
		return exportPDF(ctx, html, data.Title)
	case FormatDOCX:
		return exportDOCX(ctx, html, data.Title)
	default:
		return nil, fmt.Errorf("unsupported format: %s", req.Format)
	}
}

// IsDependencyMissing reports whether err came from a missing converter binary.
func IsDependencyMissing(err error) bool {
	return errors.Is(err, ErrPDFDependencyMissing) || errors.Is(err, ErrDOCXDependencyMissing)
}

func frontmatterFields(fm blocks.Frontmatter) []TemplateField {
	if len(fm) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fm))
	for key := range fm {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	fields := make([]TemplateField, 0, len(keys))
	for _, key := range keys {
		value := fm.String(key)
		if value == "" {
			value = strings.Join(fm.List(key), ", ")
		}
		fields = append(fields, TemplateField{Key: key, Value: value})
	}
	return fields
}

func templateAnnotations(annotations []annotation.Annotation) []TemplateAnnotation {
	out := make([]TemplateAnnotation, 0, len(annotations))
	for _, a := range annotations {
		label := strings.ReplaceAll(strings.ToLower(string(a.Type)), "_", " ")
		if a.Tag != "" {
			label = a.Tag.Label() + " " + label
		}
		out = append(out, TemplateAnnotation{
			Label:  label,
			Anchor: a.OriginalText,
			Text:   a.Text,
			Author: a.Author,
			Images: a.ImagePaths,
		})
	}
	return out
}

func firstHeading(planBlocks []blocks.Block) string {
	for _, block := range planBlocks {
		if block.Type == blocks.TypeHeading && strings.TrimSpace(block.Content) != "" {
			return block.Content
		}
	}
	return "Plan"
}
