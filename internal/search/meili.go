package search

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	meili "github.com/meilisearch/meilisearch-go"
	"github.com/rs/zerolog/log"
)

const (
	idxPlans       = "planmark_plans"
	idxBlocks      = "planmark_blocks"
	idxAnnotations = "planmark_annotations"
)

// Meili implements Indexer via Meilisearch.
type Meili struct {
	client  meili.ServiceManager
	healthy atomic.Bool
	done    chan struct{}
}

// NewMeili creates a Meilisearch client and configures indexes. An unreachable
// server leaves the client unhealthy until the health loop sees it recover.
func NewMeili(url, apiKey string) *Meili {
	client := meili.New(url, meili.WithAPIKey(apiKey))

	m := &Meili{
		client: client,
		done:   make(chan struct{}),
	}

	if _, err := client.Health(); err != nil {
		log.Warn().Err(err).Str("url", url).Msg("search: meilisearch unavailable")
		m.healthy.Store(false)
	} else {
		m.healthy.Store(true)
		m.configureIndexes()
	}

	go m.healthLoop()
	return m
}

func (m *Meili) configureIndexes() {
	indexes := []struct {
		uid        string
		filterable []string
		searchable []string
	}{
		{
			uid:        idxPlans,
			filterable: []string{"id", "status"},
			searchable: []string{"title", "slug"},
		},
		{
			uid:        idxBlocks,
			filterable: []string{"planId", "type"},
			searchable: []string{"content"},
		},
		{
			uid:        idxAnnotations,
			filterable: []string{"planId", "type", "tag"},
			searchable: []string{"text", "originalText"},
		},
	}

	for _, idx := range indexes {
		if _, err := m.client.CreateIndex(&meili.IndexConfig{
			Uid:        idx.uid,
			PrimaryKey: "id",
		}); err != nil {
			log.Debug().Err(err).Str("index", idx.uid).Msg("search: create index (may already exist)")
		}

		index := m.client.Index(idx.uid)
		filterableInterface := make([]interface{}, len(idx.filterable))
		for i, v := range idx.filterable {
			filterableInterface[i] = v
		}
		if _, err := index.UpdateFilterableAttributes(&filterableInterface); err != nil {
			log.Warn().Err(err).Str("index", idx.uid).Msg("search: update filterable attributes")
		}
		if _, err := index.UpdateSearchableAttributes(&idx.searchable); err != nil {
			log.Warn().Err(err).Str("index", idx.uid).Msg("search: update searchable attributes")
		}
	}
}

func (m *Meili) healthLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			wasHealthy := m.healthy.Load()
			m.healthy.Store(err == nil)
			if err == nil && !wasHealthy {
				log.Info().Msg("search: meilisearch recovered, reconfiguring indexes")
				m.configureIndexes()
			}
		}
	}
}

// Close stops the background health monitor.
func (m *Meili) Close() {
	close(m.done)
}

// Healthy reports whether Meilisearch is reachable.
func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

// Search queries all indexes (or a filtered subset) and merges results.
func (m *Meili) Search(ctx context.Context, q Query) ([]Result, int, error) {
	if !m.healthy.Load() {
		return nil, 0, fmt.Errorf("meilisearch unhealthy")
	}

	limit := int64(q.Limit)
	if limit == 0 {
		limit = 20
	}

	var queries []*meili.SearchRequest
	targetIndexes := []struct {
		uid      string
		rtyp     ResultType
		planAttr string
	}{
		{idxPlans, ResultPlan, "id"},
		{idxBlocks, ResultBlock, "planId"},
		{idxAnnotations, ResultAnnotation, "planId"},
	}

	for _, ti := range targetIndexes {
		if q.FilterType != "" && q.FilterType != ti.rtyp {
			continue
		}
		sr := &meili.SearchRequest{
			IndexUID:              ti.uid,
			Query:                 q.Text,
			Limit:                 limit,
			Offset:                int64(q.Offset),
			AttributesToHighlight: []string{"*"},
			HighlightPreTag:       "<mark>",
			HighlightPostTag:      "</mark>",
			ShowRankingScore:      true,
		}
		if q.FilterPlanID != "" {
			sr.Filter = []string{fmt.Sprintf("%s = %q", ti.planAttr, q.FilterPlanID)}
		}
		queries = append(queries, sr)
	}

	if len(queries) == 0 {
		return nil, 0, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	resp, err := m.client.MultiSearch(&meili.MultiSearchRequest{
		Queries: queries,
	})
	if err != nil {
		m.healthy.Store(false)
		return nil, 0, fmt.Errorf("meilisearch multi-search: %w", err)
	}

	var results []Result
	total := 0
	for _, sr := range resp.Results {
		total += int(sr.EstimatedTotalHits)
		rtyp := indexToResultType(sr.IndexUID)
		for _, hit := range sr.Hits {
			results = append(results, hitToResult(hit, rtyp))
		}
	}

	return results, total, nil
}

func indexToResultType(uid string) ResultType {
	switch uid {
	case idxPlans:
		return ResultPlan
	case idxBlocks:
		return ResultBlock
	case idxAnnotations:
		return ResultAnnotation
	default:
		return ""
	}
}

func hitToResult(hit meili.Hit, rtyp ResultType) Result {
	r := Result{Type: rtyp}
	r.ID = decodeString(hit, "id")
	r.PlanID = decodeString(hit, "planId")
	r.BlockID = decodeString(hit, "blockId")

	switch rtyp {
	case ResultPlan:
		r.Title = firstNonBlank(decodeFormattedString(hit, "title"), decodeString(hit, "title"))
		r.Snippet = decodeString(hit, "slug")
		r.PlanID = r.ID
	case ResultBlock:
		r.Title = decodeString(hit, "type")
		r.Snippet = firstNonBlank(decodeFormattedString(hit, "content"), decodeString(hit, "content"))
	case ResultAnnotation:
		r.ID = firstNonBlank(decodeString(hit, "annotationId"), r.ID)
		r.Title = firstNonBlank(decodeString(hit, "tag"), decodeString(hit, "type"))
		r.Snippet = firstNonBlank(decodeFormattedString(hit, "text"), decodeString(hit, "text"), decodeFormattedString(hit, "originalText"))
	}
	return r
}

func decodeString(hit meili.Hit, key string) string {
	raw, ok := hit[key]
	if !ok {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}

func decodeFormattedString(hit meili.Hit, key string) string {
	raw, ok := hit["_formatted"]
	if !ok {
		return ""
	}
	var formatted map[string]any
	if err := json.Unmarshal(raw, &formatted); err != nil {
		return ""
	}
	value, _ := formatted[key].(string)
	return strings.TrimSpace(value)
}

func firstNonBlank(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

// IndexPlan adds or updates a plan in the search index.
func (m *Meili) IndexPlan(plan PlanRecord) error {
	_, err := m.client.Index(idxPlans).AddDocuments([]PlanRecord{plan}, nil)
	return err
}

// IndexBlocks adds or updates the blocks of a plan version.
func (m *Meili) IndexBlocks(blocks []BlockRecord) error {
	if len(blocks) == 0 {
		return nil
	}
	_, err := m.client.Index(idxBlocks).AddDocuments(blocks, nil)
	return err
}

// IndexAnnotation adds or updates an annotation in the search index.
func (m *Meili) IndexAnnotation(a AnnotationRecord) error {
	_, err := m.client.Index(idxAnnotations).AddDocuments([]AnnotationRecord{a}, nil)
	return err
}

// DeleteBlocks removes blocks that no longer exist in a plan's current version.
func (m *Meili) DeleteBlocks(ids []string) error {
	for _, id := range ids {
		if _, err := m.client.Index(idxBlocks).DeleteDocument(id, nil); err != nil {
			return err
		}
	}
	return nil
}

// DeleteAnnotation removes an annotation from the search index.
func (m *Meili) DeleteAnnotation(id string) error {
	_, err := m.client.Index(idxAnnotations).DeleteDocument(id, nil)
	return err
}
