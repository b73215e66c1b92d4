package app

import (
	"context"
	"strings"
	"time"

	"supportlens/internal/ai"
	"supportlens/internal/model"
	"supportlens/internal/platform/logger"
)

type Citation struct {
	FilePath string  `json:"file_path"`
	NodeID   string  `json:"node_id"`
	Score    float64 `json:"score"`
	Content  string  `json:"content"`
}

// GeneratedAnswer is what the caller of Answer sees. Error is set, and
// Citations is empty, when generation failed.
type GeneratedAnswer struct {
	Answer    string     `json:"response"`
	Citations []Citation `json:"citations"`
	Error     string     `json:"error,omitempty"`
}

type QueryService struct {
	generator AnswerGenerator
	extractor CitationExtractor
	recorder  *QueryRecorder
	topK      int
	log       *logger.Logger
}

func NewQueryService(
	generator AnswerGenerator,
	extractor CitationExtractor,
	recorder *QueryRecorder,
	topK int,
	log *logger.Logger,
) *QueryService {
	if extractor == nil {
		extractor = BracketCitationExtractor{}
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &QueryService{
		generator: generator,
		extractor: extractor,
		recorder:  recorder,
		topK:      topK,
		log:       log.With("service", "query"),
	}
}

// Answer generates a cited answer to query. Generation failures are logged
// and returned as a degraded answer, not as an error.
func (s *QueryService) Answer(ctx context.Context, query string) (*GeneratedAnswer, error) {
	return s.answer(ctx, query, nil)
}

// AnswerStream is Answer with the answer text passed to onChunk while it is
// generated. The returned value and the logged attempt match Answer.
func (s *QueryService) AnswerStream(ctx context.Context, query string, onChunk func(chunk string) error) (*GeneratedAnswer, error) {
	if onChunk == nil {
		onChunk = func(string) error { return nil }
	}
	return s.answer(ctx, query, onChunk)
}

func (s *QueryService) answer(ctx context.Context, query string, onChunk func(string) error) (*GeneratedAnswer, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrInvalidInput
	}

	start := time.Now()
	gen, err := s.generate(ctx, query, onChunk)
	latency := time.Since(start)

	if err != nil {
		s.log.Warn("generate answer failed", "error", err)
		s.recorder.Record(ctx, query, nil, latency, err, nil)
		return &GeneratedAnswer{Citations: []Citation{}, Error: err.Error()}, nil
	}

	indexes := s.extractor.Extract(gen.Answer, len(gen.Sources))
	citations := make([]Citation, 0, len(indexes))
	cited := make([]model.CitedDocument, 0, len(indexes))
	// Pieces split from the same chunk share one citation row.
	seenChunks := make(map[string]struct{}, len(indexes))
	for _, idx := range indexes {
		src := gen.Sources[idx]
		citations = append(citations, Citation{
			FilePath: src.FilePath,
			NodeID:   src.ChunkID,
			Score:    src.Score,
			Content:  strings.ReplaceAll(src.Content, "\r", ""),
		})
		if _, ok := seenChunks[src.ChunkID]; ok {
			continue
		}
		seenChunks[src.ChunkID] = struct{}{}
		cited = append(cited, model.CitedDocument{
			FilePath: src.FilePath,
			NodeID:   src.ChunkID,
			Score:    src.Score,
		})
	}

	response := gen.Answer
	s.recorder.Record(ctx, query, &response, latency, nil, cited)
	return &GeneratedAnswer{Answer: gen.Answer, Citations: citations}, nil
}

func (s *QueryService) generate(ctx context.Context, query string, onChunk func(string) error) (*ai.Generation, error) {
	if onChunk == nil {
		return s.generator.Generate(ctx, query, s.topK)
	}
	if streamer, ok := s.generator.(StreamingAnswerGenerator); ok {
		return streamer.GenerateStream(ctx, query, s.topK, onChunk)
	}
	gen, err := s.generator.Generate(ctx, query, s.topK)
	if err != nil {
		return nil, err
	}
	if err := onChunk(gen.Answer); err != nil {
		return nil, err
	}
	return gen, nil
}
