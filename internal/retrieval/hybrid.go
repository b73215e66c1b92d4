package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"supportlens/internal/model"
	"supportlens/internal/platform/logger"
)

// DefaultRRFK is the Reciprocal Rank Fusion constant.
const DefaultRRFK = 60

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Index is the pair of rankings the hybrid search fuses.
type Index interface {
	DenseSearch(ctx context.Context, vec []float32, k int) ([]model.ScoredChunk, error)
	LexicalSearch(ctx context.Context, text string, k int) ([]model.ScoredChunk, error)
}

// HybridRetriever runs a lexical and a dense search in parallel and merges
// the two rankings with Reciprocal Rank Fusion. Every returned score is an
// RRF score, so results from either path are comparable.
type HybridRetriever struct {
	embedder Embedder
	index    Index
	rrfK     int
	log      *logger.Logger
}

func NewHybridRetriever(embedder Embedder, index Index, rrfK int, log *logger.Logger) *HybridRetriever {
	if rrfK <= 0 {
		rrfK = DefaultRRFK
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &HybridRetriever{
		embedder: embedder,
		index:    index,
		rrfK:     rrfK,
		log:      log.With("component", "hybrid_retriever"),
	}
}

// HybridSearch returns at most k chunks, best first. If one of the two
// searches fails the other one is used alone; an error is returned only when
// both fail.
func (r *HybridRetriever) HybridSearch(ctx context.Context, query string, k int) ([]model.ScoredChunk, error) {
	query = strings.TrimSpace(query)
	if k <= 0 || query == "" {
		return nil, nil
	}

	var lexical, dense []model.ScoredChunk
	var lexicalErr, denseErr error

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		lexical, lexicalErr = r.index.LexicalSearch(ctx, query, k)
	}()
	go func() {
		defer wg.Done()
		dense, denseErr = r.denseSearch(ctx, query, k)
	}()
	wg.Wait()

	switch {
	case lexicalErr != nil && denseErr != nil:
		return nil, fmt.Errorf("hybrid search failed: lexical=%v, dense=%w", lexicalErr, denseErr)
	case lexicalErr != nil:
		r.log.Warn("lexical search failed, using dense results only", "error", lexicalErr)
		lexical = nil
	case denseErr != nil:
		r.log.Warn("dense search failed, using lexical results only", "error", denseErr)
		dense = nil
	}

	merged := Fuse(r.rrfK, lexical, dense)
	r.log.Debug("hybrid search merged", "lexical", len(lexical), "dense", len(dense), "merged", len(merged))
	if len(merged) > k {
		merged = merged[:k]
	}
	return merged, nil
}

func (r *HybridRetriever) denseSearch(ctx context.Context, query string, k int) ([]model.ScoredChunk, error) {
	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query failed: %w", err)
	}
	return r.index.DenseSearch(ctx, vec, k)
}

// Fuse merges ranked lists with Reciprocal Rank Fusion: a chunk at 0-based
// rank i in a list contributes 1/(k+i+1). Ties are broken by chunk id.
func Fuse(k int, lists ...[]model.ScoredChunk) []model.ScoredChunk {
	scores := make(map[string]float64)
	chunks := make(map[string]model.Chunk)
	for _, list := range lists {
		for rank, hit := range list {
			scores[hit.Chunk.ID] += 1.0 / float64(k+rank+1)
			if _, ok := chunks[hit.Chunk.ID]; !ok {
				chunks[hit.Chunk.ID] = hit.Chunk
			}
		}
	}

	out := make([]model.ScoredChunk, 0, len(scores))
	for id, score := range scores {
		out = append(out, model.ScoredChunk{Chunk: chunks[id], Score: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Chunk.ID < out[j].Chunk.ID
	})
	return out
}
