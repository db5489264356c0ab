package search

import (
	"context"

	"github.com/rs/zerolog/log"
)

// Service is the facade that tries Meilisearch first and falls back to PG FTS.
type Service struct {
	index    Indexer
	fallback Searcher
}

// NewService creates a search service. index may be nil if Meilisearch is not
// configured.
func NewService(index Indexer, fallback Searcher) *Service {
	return &Service{index: index, fallback: fallback}
}

// Search tries the index if healthy, otherwise falls back to PG FTS.
func (s *Service) Search(ctx context.Context, q Query) Response {
	if s.indexReady() {
		results, total, err := s.index.Search(ctx, q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		log.Warn().Err(err).Msg("search: meilisearch error, falling back to pgfts")
	}

	if s.fallback == nil {
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	results, total, err := s.fallback.Search(ctx, q)
	if err != nil {
		log.Error().Err(err).Msg("search: pgfts error")
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

// IndexPlan indexes a plan and the blocks of its current version, dropping
// blocks beyond the new length (fire-and-forget).
func (s *Service) IndexPlan(plan PlanRecord, blocks []BlockRecord, staleBlockIDs []string) {
	if !s.indexReady() {
		return
	}
	go func() {
		if err := s.index.IndexPlan(plan); err != nil {
			log.Warn().Err(err).Str("plan_id", plan.ID).Msg("search: index plan")
		}
		if err := s.index.IndexBlocks(blocks); err != nil {
			log.Warn().Err(err).Str("plan_id", plan.ID).Msg("search: index blocks")
		}
		if len(staleBlockIDs) > 0 {
			if err := s.index.DeleteBlocks(staleBlockIDs); err != nil {
				log.Warn().Err(err).Str("plan_id", plan.ID).Msg("search: delete stale blocks")
			}
		}
	}()
}

// IndexAnnotation indexes an annotation (fire-and-forget).
func (s *Service) IndexAnnotation(a AnnotationRecord) {
	if !s.indexReady() {
		return
	}
	go func() {
		if err := s.index.IndexAnnotation(a); err != nil {
			log.Warn().Err(err).Str("annotation_id", a.ID).Msg("search: index annotation")
		}
	}()
}

// DeleteAnnotation removes an annotation from the index (fire-and-forget).
func (s *Service) DeleteAnnotation(id string) {
	if !s.indexReady() {
		return
	}
	go func() {
		if err := s.index.DeleteAnnotation(id); err != nil {
			log.Warn().Err(err).Str("annotation_id", id).Msg("search: delete annotation")
		}
	}()
}

func (s *Service) indexReady() bool {
	return s != nil && s.index != nil && s.index.Healthy()
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
