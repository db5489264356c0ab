// Package export renders a plan under review as a standalone document in
// HTML, PDF or DOCX form.
package export

import (
	"errors"
	"time"
)

// Format represents the export output format
type Format string

const (
	FormatHTML Format = "html"
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
)

// ParseFormat accepts html, pdf or docx, defaulting to pdf when empty.
func ParseFormat(value string) (Format, bool) {
	switch Format(value) {
	case "":
		return FormatPDF, true
	case FormatHTML, FormatPDF, FormatDOCX:
		return Format(value), true
	default:
		return "", false
	}
}

// Request contains parameters for an export operation
type Request struct {
	PlanID string
	// Version is "latest" or a commit hash.
	Version            string
	Format             Format
	IncludeAnnotations bool
}

// PlanInfo holds the plan metadata shown in the document header.
type PlanInfo struct {
	ID        string
	Title     string
	Status    string
	Author    string
	UpdatedAt time.Time
}

// Result contains the export output
type Result struct {
	Data     []byte
	Filename string
	MimeType string
}

var (
	// ErrContentUnavailable indicates plan content could not be loaded for export.
	ErrContentUnavailable = errors.New("export content unavailable")
	// ErrPDFDependencyMissing indicates PDF export runtime dependencies are unavailable.
	ErrPDFDependencyMissing = errors.New("export pdf dependency missing")
	// ErrDOCXDependencyMissing indicates DOCX export runtime dependencies are unavailable.
	ErrDOCXDependencyMissing = errors.New("export docx dependency missing")
)
