package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"supportlens/internal/model"
	"supportlens/internal/platform/logger"
)

// DefaultTopK is used by callers that omit k.
const DefaultTopK = 5

type SearchResult struct {
	FilePath string  `json:"file_path"`
	NodeID   string  `json:"node_id"`
	Score    float64 `json:"score"`
	Content  string  `json:"content"`
}

type SearchService struct {
	retriever Retriever
	recorder  *QueryRecorder
	log       *logger.Logger
}

func NewSearchService(retriever Retriever, recorder *QueryRecorder, log *logger.Logger) *SearchService {
	if log == nil {
		log = logger.NewNop()
	}
	return &SearchService{
		retriever: retriever,
		recorder:  recorder,
		log:       log.With("service", "search"),
	}
}

// Search returns the k chunks most similar to query. Retrieval failures and
// empty result sets are logged as failed attempts and yield an empty slice
// with a nil error; only invalid arguments return an error.
func (s *SearchService) Search(ctx context.Context, query string, k int) ([]SearchResult, error) {
	if k <= 0 {
		return nil, ErrInvalidTopK
	}
	if strings.TrimSpace(query) == "" {
		return nil, ErrInvalidInput
	}

	start := time.Now()
	hits, err := s.retriever.HybridSearch(ctx, query, k)
	latency := time.Since(start)
	if err == nil && len(hits) == 0 {
		err = ErrNoResults
	}

	if err != nil {
		s.log.Warn("search failed", "error", err, "k", k)
		response := fmt.Sprintf("Error searching documents: %v", err)
		s.recorder.Record(ctx, query, &response, latency, err, nil)
		return []SearchResult{}, nil
	}

	if len(hits) > k {
		hits = hits[:k]
	}
	results := make([]SearchResult, len(hits))
	cited := make([]model.CitedDocument, len(hits))
	for i, hit := range hits {
		results[i] = SearchResult{
			FilePath: hit.Chunk.FilePath,
			NodeID:   hit.Chunk.ID,
			Score:    hit.Score,
			Content:  hit.Chunk.CleanContent(),
		}
		cited[i] = model.CitedDocument{
			FilePath: hit.Chunk.FilePath,
			NodeID:   hit.Chunk.ID,
			Score:    hit.Score,
		}
	}

	response := fmt.Sprintf("Top %d similar documents retrieved!", k)
	s.recorder.Record(ctx, query, &response, latency, nil, cited)
	return results, nil
}
