package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supportlens/internal/ai"
)

func twoSources() []ai.Source {
	return []ai.Source{
		{ChunkID: "c1", FilePath: "refunds.md", Score: 0.03, Content: "Refunds take five days.\r"},
		{ChunkID: "c2", FilePath: "shipping.md", Score: 0.02, Content: "Shipping is free."},
	}
}

func newQueryService(t *testing.T, gen AnswerGenerator, sink CitationSink) (*QueryService, *testStores) {
	t.Helper()
	stores := newTestStores(t)
	if sink == nil {
		sink = stores.citations
	}
	rec := NewQueryRecorder(stores.logs, sink, nil)
	return NewQueryService(gen, nil, rec, 0, nil), stores
}

func TestAnswerDropsOutOfRangeCitation(t *testing.T) {
	gen := &stubGenerator{gen: &ai.Generation{Answer: "Five days [1], see also [3].", Sources: twoSources()}}
	svc, stores := newQueryService(t, gen, nil)

	out, err := svc.Answer(context.Background(), "how long do refunds take?")

	require.NoError(t, err)
	assert.Equal(t, DefaultTopK, gen.gotK)
	assert.Equal(t, "Five days [1], see also [3].", out.Answer)
	assert.Empty(t, out.Error)
	require.Len(t, out.Citations, 1)
	assert.Equal(t, Citation{FilePath: "refunds.md", NodeID: "c1", Score: 0.03, Content: "Refunds take five days."}, out.Citations[0])

	logs := stores.allLogs(t)
	require.Len(t, logs, 1)
	assert.True(t, logs[0].Success)
	assert.Equal(t, out.Answer, *logs[0].Response)

	cited := stores.allCitations(t)
	require.Len(t, cited, 1)
	assert.Equal(t, "c1", cited[0].NodeID)
	assert.Equal(t, logs[0].ID, cited[0].QueryLogID)
}

func TestAnswerDuplicateMarkersCiteOnce(t *testing.T) {
	gen := &stubGenerator{gen: &ai.Generation{Answer: "Yes [1]. Really [1].", Sources: twoSources()}}
	svc, stores := newQueryService(t, gen, nil)

	out, err := svc.Answer(context.Background(), "q")

	require.NoError(t, err)
	assert.Len(t, out.Citations, 1)
	assert.Len(t, stores.allCitations(t), 1)
}

func TestAnswerPiecesOfOneChunkShareACitationRow(t *testing.T) {
	sources := []ai.Source{
		{ChunkID: "c1", FilePath: "long.md", Score: 0.03, Content: "first half"},
		{ChunkID: "c1", FilePath: "long.md", Score: 0.03, Content: "second half"},
	}
	gen := &stubGenerator{gen: &ai.Generation{Answer: "[1] and [2]", Sources: sources}}
	svc, stores := newQueryService(t, gen, nil)

	out, err := svc.Answer(context.Background(), "q")

	require.NoError(t, err)
	assert.Len(t, out.Citations, 2)
	assert.Len(t, stores.allCitations(t), 1)
}

func TestAnswerGeneratorFailureIsDegradedResult(t *testing.T) {
	gen := &stubGenerator{err: errBoom}
	svc, stores := newQueryService(t, gen, nil)

	out, err := svc.Answer(context.Background(), "q")

	require.NoError(t, err)
	assert.Equal(t, "boom", out.Error)
	assert.NotNil(t, out.Citations)
	assert.Empty(t, out.Citations)

	logs := stores.allLogs(t)
	require.Len(t, logs, 1)
	assert.False(t, logs[0].Success)
	assert.Nil(t, logs[0].Response)
	assert.Equal(t, "boom", *logs[0].Error)
	assert.Empty(t, stores.allCitations(t))
}

func TestAnswerCitationSinkFailureStillReturnsAnswer(t *testing.T) {
	gen := &stubGenerator{gen: &ai.Generation{Answer: "Free [2].", Sources: twoSources()}}
	sink := &recordingSink{err: errBoom}
	svc, stores := newQueryService(t, gen, sink)

	out, err := svc.Answer(context.Background(), "q")

	require.NoError(t, err)
	require.Len(t, out.Citations, 1)
	assert.Equal(t, "c2", out.Citations[0].NodeID)
	require.Len(t, sink.calls, 1)
	logs := stores.allLogs(t)
	require.Len(t, logs, 1)
	assert.True(t, logs[0].Success)
}

func TestAnswerWithoutMarkersLogsSuccessWithoutCitations(t *testing.T) {
	gen := &stubGenerator{gen: &ai.Generation{Answer: ai.EmptyResponse}}
	svc, stores := newQueryService(t, gen, nil)

	out, err := svc.Answer(context.Background(), "q")

	require.NoError(t, err)
	assert.Equal(t, ai.EmptyResponse, out.Answer)
	assert.Empty(t, out.Citations)
	assert.EqualValues(t, 1, stores.countLogs(t))
	assert.Empty(t, stores.allCitations(t))
}

func TestAnswerRejectsBlankQuery(t *testing.T) {
	gen := &stubGenerator{}
	svc, stores := newQueryService(t, gen, nil)

	_, err := svc.Answer(context.Background(), " ")

	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, 0, gen.calls)
	assert.EqualValues(t, 0, stores.countLogs(t))
}

type streamingStub struct {
	stubGenerator
	deltas []string
}

func (g *streamingStub) GenerateStream(_ context.Context, _ string, topK int, onChunk func(string) error) (*ai.Generation, error) {
	g.gotK = topK
	for _, d := range g.deltas {
		if err := onChunk(d); err != nil {
			return nil, err
		}
	}
	return g.gen, g.err
}

func TestAnswerStreamUsesStreamingGenerator(t *testing.T) {
	gen := &streamingStub{
		stubGenerator: stubGenerator{gen: &ai.Generation{Answer: "Five days [1].", Sources: twoSources()}},
		deltas:        []string{"Five ", "days [1]."},
	}
	svc, stores := newQueryService(t, gen, nil)

	var streamed []string
	out, err := svc.AnswerStream(context.Background(), "refunds?", func(chunk string) error {
		streamed = append(streamed, chunk)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"Five ", "days [1]."}, streamed)
	assert.Zero(t, gen.calls)
	require.Len(t, out.Citations, 1)
	assert.Len(t, stores.allLogs(t), 1)
	assert.Len(t, stores.allCitations(t), 1)
}

func TestAnswerStreamFallsBackToSingleChunk(t *testing.T) {
	gen := &stubGenerator{gen: &ai.Generation{Answer: "Free [2].", Sources: twoSources()}}
	svc, _ := newQueryService(t, gen, nil)

	var streamed []string
	out, err := svc.AnswerStream(context.Background(), "shipping?", func(chunk string) error {
		streamed = append(streamed, chunk)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"Free [2]."}, streamed)
	require.Len(t, out.Citations, 1)
	assert.Equal(t, "c2", out.Citations[0].NodeID)
}

func TestAnswerExpiredRequestIsStillLogged(t *testing.T) {
	gen := &stubGenerator{err: context.DeadlineExceeded}
	svc, stores := newQueryService(t, gen, nil)

	ctx, cancel := context.WithTimeout(context.Background(), -time.Second)
	defer cancel()
	out, err := svc.Answer(ctx, "how long do refunds take?")

	require.NoError(t, err)
	assert.Equal(t, context.DeadlineExceeded.Error(), out.Error)
	logs := stores.allLogs(t)
	require.Len(t, logs, 1)
	assert.False(t, logs[0].Success)
	assert.Nil(t, logs[0].Response)
}

func TestAnswerCancelledAfterGenerationStillCites(t *testing.T) {
	gen := &stubGenerator{gen: &ai.Generation{Answer: "Five days [1].", Sources: twoSources()}}
	svc, stores := newQueryService(t, gen, nil)

	out, err := svc.Answer(cancelledContext(), "refunds?")

	require.NoError(t, err)
	require.Len(t, out.Citations, 1)
	logs := stores.allLogs(t)
	require.Len(t, logs, 1)
	assert.True(t, logs[0].Success)
	assert.Len(t, stores.allCitations(t), 1)
}
