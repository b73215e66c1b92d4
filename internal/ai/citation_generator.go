package ai

import (
	"context"
	"fmt"
	"strings"

	"supportlens/internal/model"
)

// EmptyResponse is the answer returned when retrieval finds nothing to cite.
const EmptyResponse = "Empty Response"

const citationSystemPrompt = `Answer the question using only the numbered sources provided.
Whenever a sentence relies on a source, cite it inline with the source number in square brackets, for example [1] or [2][3].
Only cite sources that actually support the sentence. If none of the sources are helpful, say that you do not know.`

// Retriever returns the top-k chunks for a query, best first.
type Retriever interface {
	HybridSearch(ctx context.Context, query string, k int) ([]model.ScoredChunk, error)
}

type ChatCompleter interface {
	Complete(ctx context.Context, messages []ChatMessage) (string, error)
}

type StreamCompleter interface {
	StreamComplete(ctx context.Context, messages []ChatMessage, onChunk func(chunk string) error) (string, error)
}

// Source is one numbered passage the model was allowed to cite. Source n in
// the prompt is Sources[n-1].
type Source struct {
	ChunkID  string
	FilePath string
	Score    float64
	Content  string
}

type Generation struct {
	Answer  string
	Sources []Source
}

// CitationGenerator retrieves context for a query, numbers it, and asks the
// model for an answer with inline [n] citations.
type CitationGenerator struct {
	retriever Retriever
	llm       ChatCompleter
	splitter  *Splitter
}

func NewCitationGenerator(retriever Retriever, llm ChatCompleter, citationChunkSize int) *CitationGenerator {
	return &CitationGenerator{
		retriever: retriever,
		llm:       llm,
		splitter:  NewSplitter(citationChunkSize, 0),
	}
}

func (g *CitationGenerator) Generate(ctx context.Context, query string, topK int) (*Generation, error) {
	return g.generate(ctx, query, topK, nil)
}

// GenerateStream is Generate with the answer delivered to onChunk as it is
// produced. It degrades to a single onChunk call when the model client
// cannot stream.
func (g *CitationGenerator) GenerateStream(
	ctx context.Context,
	query string,
	topK int,
	onChunk func(chunk string) error,
) (*Generation, error) {
	if onChunk == nil {
		onChunk = func(string) error { return nil }
	}
	return g.generate(ctx, query, topK, onChunk)
}

func (g *CitationGenerator) generate(
	ctx context.Context,
	query string,
	topK int,
	onChunk func(chunk string) error,
) (*Generation, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("query is empty")
	}

	hits, err := g.retriever.HybridSearch(ctx, query, topK)
	if err != nil {
		return nil, fmt.Errorf("retrieve context failed: %w", err)
	}

	sources := g.citationSources(hits)
	if len(sources) == 0 {
		if onChunk != nil {
			if err := onChunk(EmptyResponse); err != nil {
				return nil, err
			}
		}
		return &Generation{Answer: EmptyResponse}, nil
	}

	messages := []ChatMessage{
		{Role: "system", Content: citationSystemPrompt},
		{Role: "user", Content: buildCitationPrompt(query, sources)},
	}
	answer, err := g.complete(ctx, messages, onChunk)
	if err != nil {
		return nil, fmt.Errorf("generate answer failed: %w", err)
	}

	return &Generation{
		Answer:  strings.TrimSpace(answer),
		Sources: sources,
	}, nil
}

func (g *CitationGenerator) complete(ctx context.Context, messages []ChatMessage, onChunk func(string) error) (string, error) {
	if onChunk == nil {
		return g.llm.Complete(ctx, messages)
	}
	if streamer, ok := g.llm.(StreamCompleter); ok {
		return streamer.StreamComplete(ctx, messages, onChunk)
	}
	answer, err := g.llm.Complete(ctx, messages)
	if err != nil {
		return "", err
	}
	if err := onChunk(answer); err != nil {
		return "", err
	}
	return answer, nil
}

// citationSources splits long chunks so each numbered source stays small
// enough to be cited precisely. Pieces keep the score of their chunk.
func (g *CitationGenerator) citationSources(hits []model.ScoredChunk) []Source {
	var sources []Source
	for _, hit := range hits {
		for _, piece := range g.splitter.Split(hit.Chunk.CleanContent()) {
			sources = append(sources, Source{
				ChunkID:  hit.Chunk.ID,
				FilePath: hit.Chunk.FilePath,
				Score:    hit.Score,
				Content:  piece,
			})
		}
	}
	return sources
}

func buildCitationPrompt(query string, sources []Source) string {
	var b strings.Builder
	for i, s := range sources {
		fmt.Fprintf(&b, "Source %d:\n%s\n\n", i+1, s.Content)
	}
	b.WriteString("Question: ")
	b.WriteString(query)
	b.WriteString("\nAnswer:")
	return b.String()
}
