package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supportlens/internal/model"
)

type fakeEmbedder struct {
	err error
}

func (f *fakeEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []float32{1, 0}, nil
}

type fakeIndex struct {
	dense      []model.ScoredChunk
	lexical    []model.ScoredChunk
	denseErr   error
	lexicalErr error
}

func (f *fakeIndex) DenseSearch(_ context.Context, _ []float32, _ int) ([]model.ScoredChunk, error) {
	return f.dense, f.denseErr
}

func (f *fakeIndex) LexicalSearch(_ context.Context, _ string, _ int) ([]model.ScoredChunk, error) {
	return f.lexical, f.lexicalErr
}

func hits(ids ...string) []model.ScoredChunk {
	out := make([]model.ScoredChunk, len(ids))
	for i, id := range ids {
		out[i] = model.ScoredChunk{Chunk: model.Chunk{ID: id, FilePath: id + ".md"}, Score: 1}
	}
	return out
}

func ids(list []model.ScoredChunk) []string {
	out := make([]string, len(list))
	for i := range list {
		out[i] = list[i].Chunk.ID
	}
	return out
}

func TestFuseRewardsAgreement(t *testing.T) {
	merged := Fuse(60, hits("a", "b", "c"), hits("b", "d"))

	assert.Equal(t, []string{"b", "a", "d", "c"}, ids(merged))
	assert.InDelta(t, 1.0/62+1.0/61, merged[0].Score, 1e-12)
	assert.InDelta(t, 1.0/61, merged[1].Score, 1e-12)
	assert.Equal(t, "b.md", merged[0].Chunk.FilePath)
}

func TestHybridSearchTruncatesToK(t *testing.T) {
	index := &fakeIndex{lexical: hits("a", "b", "c"), dense: hits("c", "d", "e")}
	r := NewHybridRetriever(&fakeEmbedder{}, index, 0, nil)

	out, err := r.HybridSearch(context.Background(), "refund policy", 3)

	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, "c", out[0].Chunk.ID)
	for _, hit := range out {
		assert.Greater(t, hit.Score, 0.0)
		assert.LessOrEqual(t, hit.Score, 2.0/61)
	}
}

func TestHybridSearchDegradesToOneSide(t *testing.T) {
	boom := errors.New("boom")

	r := NewHybridRetriever(&fakeEmbedder{err: boom}, &fakeIndex{lexical: hits("a")}, 60, nil)
	out, err := r.HybridSearch(context.Background(), "q", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids(out))
	assert.InDelta(t, 1.0/61, out[0].Score, 1e-12)

	r = NewHybridRetriever(&fakeEmbedder{}, &fakeIndex{dense: hits("d"), lexicalErr: boom}, 60, nil)
	out, err = r.HybridSearch(context.Background(), "q", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"d"}, ids(out))
}

func TestHybridSearchFailsWhenBothSidesFail(t *testing.T) {
	boom := errors.New("boom")
	r := NewHybridRetriever(&fakeEmbedder{}, &fakeIndex{denseErr: boom, lexicalErr: errors.New("fts down")}, 60, nil)

	_, err := r.HybridSearch(context.Background(), "q", 5)

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "fts down")
}

func TestHybridSearchEmptyInput(t *testing.T) {
	r := NewHybridRetriever(&fakeEmbedder{}, &fakeIndex{lexical: hits("a")}, 60, nil)

	out, err := r.HybridSearch(context.Background(), "   ", 5)
	require.NoError(t, err)
	assert.Empty(t, out)

	out, err = r.HybridSearch(context.Background(), "q", 0)
	require.NoError(t, err)
	assert.Empty(t, out)
}
