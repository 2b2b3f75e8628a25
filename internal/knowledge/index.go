package knowledge

import (
	"context"
	"errors"
	"fmt"
	"math"
)

var (
	ErrEmptyIndex        = errors.New("knowledge index is empty")
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	ErrInvalidVector     = errors.New("vector has non-finite components")
)

// Embedder is the subset of embed.Embedder the index needs.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Hit is the result of a nearest-neighbour lookup.
type Hit struct {
	Position int
	Text     string
	Distance float64
}

// Index is an exact L2 index over the corpus embeddings. It is read-only
// once built and safe for concurrent use.
type Index struct {
	corpus  Corpus
	vectors [][]float32
	dim     int
}

// BuildIndex embeds every corpus sentence and returns the resulting index.
func BuildIndex(ctx context.Context, e Embedder, corpus Corpus) (*Index, error) {
	if corpus.Len() == 0 {
		return nil, ErrEmptyIndex
	}
	vecs, err := e.Embed(ctx, NormalizeAll(corpus.Sentences()))
	if err != nil {
		return nil, fmt.Errorf("embed corpus: %w", err)
	}
	return NewIndex(corpus, vecs)
}

// NewIndex builds an index from precomputed vectors, one per sentence.
func NewIndex(corpus Corpus, vectors [][]float32) (*Index, error) {
	if corpus.Len() == 0 {
		return nil, ErrEmptyIndex
	}
	if len(vectors) != corpus.Len() {
		return nil, fmt.Errorf("got %d vectors for %d sentences", len(vectors), corpus.Len())
	}
	dim := len(vectors[0])
	if dim == 0 {
		return nil, fmt.Errorf("%w: zero-length vector", ErrDimensionMismatch)
	}
	stored := make([][]float32, len(vectors))
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("%w: vector %d has %d dims, want %d", ErrDimensionMismatch, i, len(v), dim)
		}
		if !finite(v) {
			return nil, fmt.Errorf("%w: vector %d", ErrInvalidVector, i)
		}
		stored[i] = append([]float32(nil), v...)
	}
	return &Index{corpus: corpus, vectors: stored, dim: dim}, nil
}

// Dim returns the vector dimension of the index.
func (idx *Index) Dim() int { return idx.dim }

// Size returns the number of indexed sentences.
func (idx *Index) Size() int { return len(idx.vectors) }

// Nearest returns the sentence closest to vec by Euclidean distance (k=1).
// Ties resolve to the lowest position.
func (idx *Index) Nearest(vec []float32) (Hit, error) {
	if idx == nil || len(idx.vectors) == 0 {
		return Hit{}, ErrEmptyIndex
	}
	if len(vec) != idx.dim {
		return Hit{}, fmt.Errorf("%w: query has %d dims, index has %d", ErrDimensionMismatch, len(vec), idx.dim)
	}
	if !finite(vec) {
		return Hit{}, ErrInvalidVector
	}
	best := -1
	bestDist := math.Inf(1)
	for i, v := range idx.vectors {
		d := squaredL2(vec, v)
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 {
		return Hit{}, ErrInvalidVector
	}
	return Hit{
		Position: best,
		Text:     idx.corpus.At(best),
		Distance: math.Sqrt(bestDist),
	}, nil
}

func finite(v []float32) bool {
	for _, x := range v {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

func squaredL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}

// NormalizeAll normalizes a slice of strings into a new slice.
func NormalizeAll(texts []string) []string {
	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = NormalizeText(t)
	}
	return out
}
