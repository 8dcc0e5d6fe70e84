package search

import (
	"context"

	"go.uber.org/zap"
)

// Service is the facade that tries Meilisearch first and falls back to PG FTS.
type Service struct {
	primary  Backend
	fallback Searcher
	log      *zap.Logger
}

// NewService creates a search service. primary may be nil if Meilisearch is
// not configured.
func NewService(primary Backend, fallback Searcher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{primary: primary, fallback: fallback, log: logger.Named("search")}
}

func (s *Service) primaryReady() bool {
	return s.primary != nil && s.primary.Healthy()
}

// Search tries the primary index if healthy, otherwise falls back to PG FTS.
func (s *Service) Search(q Query) Response {
	if s.primaryReady() {
		results, total, err := s.primary.Search(q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		s.log.Warn("meilisearch error, falling back to pgfts", zap.Error(err))
	}

	if s.fallback == nil {
		return Response{Results: []Result{}, Query: q.Text}
	}
	results, total, err := s.fallback.Search(q)
	if err != nil {
		s.log.Error("pgfts error", zap.Error(err))
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

// IndexPresentation indexes a presentation (fire-and-forget).
func (s *Service) IndexPresentation(record PresentationRecord) {
	if !s.primaryReady() {
		return
	}
	go func() {
		if err := s.primary.IndexPresentations([]PresentationRecord{record}); err != nil {
			s.log.Warn("index presentation", zap.String("presentation_id", record.ID), zap.Error(err))
		}
	}()
}

// DeletePresentation removes a presentation from the index (fire-and-forget).
func (s *Service) DeletePresentation(id string) {
	if !s.primaryReady() {
		return
	}
	go func() {
		if err := s.primary.DeletePresentation(id); err != nil {
			s.log.Warn("delete presentation", zap.String("presentation_id", id), zap.Error(err))
		}
	}()
}

// ReindexAllFromPG pushes every stored presentation into the primary index.
func (s *Service) ReindexAllFromPG(ctx context.Context, pg *PgFTS) {
	if !s.primaryReady() || pg == nil {
		return
	}
	records, err := pg.LoadAllRecords(ctx)
	if err != nil {
		s.log.Warn("reindex load failed", zap.Error(err))
		return
	}
	if len(records) == 0 {
		return
	}
	if err := s.primary.IndexPresentations(records); err != nil {
		s.log.Warn("reindex presentations", zap.Error(err))
	}
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
