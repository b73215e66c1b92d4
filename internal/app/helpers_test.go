package app

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"supportlens/internal/ai"
	"supportlens/internal/model"
	"supportlens/internal/repository"
)

var errBoom = errors.New("boom")

type testStores struct {
	db        *gorm.DB
	chunks    *repository.ChunkRepository
	sources   *repository.SourceDocumentRepository
	logs      *repository.QueryLogRepository
	citations *repository.CitedDocumentRepository
}

func newTestStores(t *testing.T) *testStores {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "app.db")), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.SourceDocument{}, &model.QueryLog{}, &model.CitedDocument{}))

	chunks := repository.NewChunkRepository(db, "")
	require.NoError(t, chunks.Migrate(3))
	return &testStores{
		db:        db,
		chunks:    chunks,
		sources:   repository.NewSourceDocumentRepository(db),
		logs:      repository.NewQueryLogRepository(db),
		citations: repository.NewCitedDocumentRepository(db),
	}
}

func (s *testStores) countLogs(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, s.db.Model(&model.QueryLog{}).Count(&n).Error)
	return n
}

func cancelledContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}

func (s *testStores) allLogs(t *testing.T) []model.QueryLog {
	t.Helper()
	var logs []model.QueryLog
	require.NoError(t, s.db.Order("id").Find(&logs).Error)
	return logs
}

func (s *testStores) allCitations(t *testing.T) []model.CitedDocument {
	t.Helper()
	var docs []model.CitedDocument
	require.NoError(t, s.db.Order("id").Find(&docs).Error)
	return docs
}

type failingLogWriter struct{}

func (failingLogWriter) Create(context.Context, *model.QueryLog) error { return errBoom }

type recordingSink struct {
	mu    sync.Mutex
	err   error
	calls []sinkCall
}

type sinkCall struct {
	queryLogID uint
	docs       []model.CitedDocument
	ctxErr     error
}

func (s *recordingSink) Persist(ctx context.Context, queryLogID uint, docs []model.CitedDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, sinkCall{queryLogID: queryLogID, docs: docs, ctxErr: ctx.Err()})
	return s.err
}

type stubRetriever struct {
	hits  []model.ScoredChunk
	err   error
	calls int
}

func (r *stubRetriever) HybridSearch(_ context.Context, _ string, _ int) ([]model.ScoredChunk, error) {
	r.calls++
	return r.hits, r.err
}

type stubGenerator struct {
	gen   *ai.Generation
	err   error
	gotK  int
	calls int
}

func (g *stubGenerator) Generate(_ context.Context, _ string, topK int) (*ai.Generation, error) {
	g.calls++
	g.gotK = topK
	return g.gen, g.err
}

func hit(id, path, content string, score float64) model.ScoredChunk {
	return model.ScoredChunk{
		Chunk: model.Chunk{ID: id, DocumentID: path, FilePath: path, Content: content},
		Score: score,
	}
}

// fakeEmbedder returns a 3-dimensional vector derived from the text length.
type fakeEmbedder struct {
	mu     sync.Mutex
	err    error
	calls  int
	inputs int
}

func (e *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	e.inputs += len(texts)
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), 1, 0}
	}
	return out, nil
}

type fakeLock struct {
	held     bool
	err      error
	released []string
}

func (l *fakeLock) Acquire(_ context.Context, key string) (string, bool, error) {
	if l.err != nil {
		return "", false, l.err
	}
	if l.held {
		return "", false, nil
	}
	return "token-" + key, true, nil
}

func (l *fakeLock) Release(_ context.Context, key, token string) error {
	l.released = append(l.released, key+"="+token)
	return nil
}
