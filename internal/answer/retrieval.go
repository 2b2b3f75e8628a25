package answer

import (
	"context"
	"strings"

	"budgetadvisor/internal/generate"
	"budgetadvisor/internal/knowledge"
)

// Embedder is the subset of embed.Embedder used for query vectors.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// DefaultMaxLength bounds generated answers for both strategies.
const DefaultMaxLength = 150

// Retrieval embeds the query, picks the nearest reference sentence and asks
// the generator to answer with that sentence as context.
type Retrieval struct {
	embedder  Embedder
	index     *knowledge.Index
	generator generate.Generator
	maxLength int
}

// NewRetrieval builds the strategy from an already built index.
func NewRetrieval(e Embedder, idx *knowledge.Index, g generate.Generator, maxLength int) *Retrieval {
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	return &Retrieval{embedder: e, index: idx, generator: g, maxLength: maxLength}
}

// Context returns the reference sentence nearest to query.
func (r *Retrieval) Context(ctx context.Context, query string) (knowledge.Hit, error) {
	query = knowledge.NormalizeText(query)
	if query == "" {
		return knowledge.Hit{}, ErrEmptyQuery
	}
	vecs, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return knowledge.Hit{}, stageError("embed query", err)
	}
	if len(vecs) != 1 {
		return knowledge.Hit{}, stageError("embed query", errUnexpectedVectors)
	}
	hit, err := r.index.Nearest(vecs[0])
	if err != nil {
		return knowledge.Hit{}, stageError("search corpus", err)
	}
	return hit, nil
}

// Answer returns the generated text verbatim.
func (r *Retrieval) Answer(ctx context.Context, query string) (string, error) {
	hit, err := r.Context(ctx, query)
	if err != nil {
		return "", err
	}
	out, err := r.generator.Generate(ctx, RetrievalPrompt(hit.Text, knowledge.NormalizeText(query)), generate.Options{
		MaxLength: r.maxLength,
	})
	if err != nil {
		return "", stageError("generate", err)
	}
	return out, nil
}

// RetrievalPrompt formats the context and question for the generator.
func RetrievalPrompt(context, query string) string {
	var b strings.Builder
	b.WriteString("Context: ")
	b.WriteString(context)
	b.WriteString("\nQuestion: ")
	b.WriteString(query)
	b.WriteString("\nAnswer:")
	return b.String()
}
