package app

import (
	"context"
	"time"

	"supportlens/internal/ai"
	"supportlens/internal/model"
	"supportlens/internal/repository"
)

type QueryLogWriter interface {
	Create(ctx context.Context, log *model.QueryLog) error
}

// CitationSink stores the citations of a logged query. Implementations may
// write synchronously or hand the rows off to a queue.
type CitationSink interface {
	Persist(ctx context.Context, queryLogID uint, docs []model.CitedDocument) error
}

type Retriever interface {
	HybridSearch(ctx context.Context, query string, k int) ([]model.ScoredChunk, error)
}

type AnswerGenerator interface {
	Generate(ctx context.Context, query string, topK int) (*ai.Generation, error)
}

type StreamingAnswerGenerator interface {
	AnswerGenerator
	GenerateStream(ctx context.Context, query string, topK int, onChunk func(chunk string) error) (*ai.Generation, error)
}

type TextSplitter interface {
	Split(text string) []string
}

type BatchEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

type ChunkWriter interface {
	Upsert(ctx context.Context, chunks []model.Chunk) error
}

type ChunkFetcher interface {
	FetchByIDs(ctx context.Context, ids []string) ([]model.Chunk, error)
}

type SourceDocumentStore interface {
	Get(ctx context.Context, id string) (*model.SourceDocument, error)
	Save(ctx context.Context, doc *model.SourceDocument) error
}

// IngestLocker guards a staging directory against concurrent ingestion runs.
type IngestLocker interface {
	Acquire(ctx context.Context, key string) (token string, ok bool, err error)
	Release(ctx context.Context, key, token string) error
}

type QueryLogReader interface {
	CountBetween(ctx context.Context, start, end time.Time, success *bool) (int64, error)
	AverageLatency(ctx context.Context, start, end time.Time) (float64, bool, error)
	List(ctx context.Context, start, end time.Time, limit int, includeErrors bool) ([]model.QueryLog, error)
}

type CitationReader interface {
	ListByQueryLogIDs(ctx context.Context, ids []uint) (map[uint][]model.CitedDocument, error)
	TopFilePaths(ctx context.Context, start, end time.Time, limit int) ([]repository.FileCitationCount, error)
}
