package search

import (
	"context"
	"strings"
)

// ResultType identifies the kind of entity in a search result.
type ResultType string

const (
	ResultPlan       ResultType = "plan"
	ResultBlock      ResultType = "block"
	ResultAnnotation ResultType = "annotation"
)

// ParseResultType accepts "", "plan", "block" or "annotation".
func ParseResultType(value string) (ResultType, bool) {
	switch ResultType(value) {
	case "", ResultPlan, ResultBlock, ResultAnnotation:
		return ResultType(value), true
	default:
		return "", false
	}
}

// Result is a single search hit returned to the caller.
type Result struct {
	Type    ResultType `json:"type"`
	ID      string     `json:"id"`
	Title   string     `json:"title"`
	Snippet string     `json:"snippet"`
	PlanID  string     `json:"planId"`
	BlockID string     `json:"blockId,omitempty"`
}

// Query describes a search request.
type Query struct {
	Text         string
	FilterType   ResultType // empty = all types
	FilterPlanID string
	Limit        int
	Offset       int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(ctx context.Context, q Query) ([]Result, int, error)
	Healthy() bool
}

// Indexer can push entities into a search index.
type Indexer interface {
	Searcher
	IndexPlan(plan PlanRecord) error
	IndexBlocks(blocks []BlockRecord) error
	IndexAnnotation(a AnnotationRecord) error
	DeleteBlocks(ids []string) error
	DeleteAnnotation(id string) error
}

// PlanRecord is the data we index for a plan.
type PlanRecord struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Slug   string `json:"slug"`
	Status string `json:"status"`
}

// BlockRecord is the data we index for one block of a plan's current version.
type BlockRecord struct {
	ID      string `json:"id"`
	PlanID  string `json:"planId"`
	BlockID string `json:"blockId"`
	Type    string `json:"type"`
	Content string `json:"content"`
	Order   int    `json:"order"`
}

// AnnotationRecord is the data we index for an annotation.
type AnnotationRecord struct {
	ID           string `json:"id"`
	PlanID       string `json:"planId"`
	BlockID      string `json:"blockId"`
	AnnotationID string `json:"annotationId"`
	Type         string `json:"type"`
	Tag          string `json:"tag"`
	OriginalText string `json:"originalText"`
	Text         string `json:"text"`
}

// BlockDocumentID is the index key of a plan block.
func BlockDocumentID(planID, blockID string) string {
	return documentKey(planID, blockID)
}

// AnnotationDocumentID is the index key of an annotation.
func AnnotationDocumentID(planID, annotationID string) string {
	return documentKey(planID, annotationID)
}

// documentKey joins parts with "_" and maps characters Meilisearch rejects in
// primary keys to "-".
func documentKey(parts ...string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, strings.Join(parts, "_"))
}
