package knowledge

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
)

// keywordEmbedder maps text onto a fixed set of keyword axes so nearest
// neighbour results are predictable.
type keywordEmbedder struct{ calls int }

var axes = []string{"50/30/20", "debt", "emergency", "credit"}

func (k *keywordEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	k.calls++
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, len(axes))
		lower := strings.ToLower(t)
		for j, a := range axes {
			if strings.Contains(lower, a) {
				v[j] = 1
			}
		}
		out[i] = v
	}
	return out, nil
}

type failingEmbedder struct{}

func (failingEmbedder) Embed(context.Context, []string) ([][]float32, error) {
	return nil, errors.New("boom")
}

func TestDefaultCorpus(t *testing.T) {
	c := DefaultCorpus()
	if c.Len() != 4 {
		t.Fatalf("Len = %d, want 4", c.Len())
	}
	s := c.Sentences()
	s[0] = "mutated"
	if c.At(0) == "mutated" {
		t.Fatal("Sentences must return a copy")
	}
}

func TestBuildIndexAndNearest(t *testing.T) {
	e := &keywordEmbedder{}
	idx, err := BuildIndex(context.Background(), e, DefaultCorpus())
	if err != nil {
		t.Fatalf("BuildIndex: %v", err)
	}
	if idx.Size() != 4 || idx.Dim() != len(axes) {
		t.Fatalf("Size=%d Dim=%d", idx.Size(), idx.Dim())
	}

	tests := []struct {
		query string
		want  int
	}{
		{"How big should my emergency fund be?", 2},
		{"Is credit card spending bad?", 3},
		{"What is the 50/30/20 rule?", 0},
	}
	for _, tt := range tests {
		vecs, _ := e.Embed(context.Background(), []string{tt.query})
		hit, err := idx.Nearest(vecs[0])
		if err != nil {
			t.Fatalf("Nearest(%q): %v", tt.query, err)
		}
		if hit.Position != tt.want {
			t.Errorf("Nearest(%q) = %d (%q), want %d", tt.query, hit.Position, hit.Text, tt.want)
		}
	}
}

func TestNearestIsDeterministic(t *testing.T) {
	e := &keywordEmbedder{}
	idx, err := BuildIndex(context.Background(), e, DefaultCorpus())
	if err != nil {
		t.Fatalf("BuildIndex: %v", err)
	}
	vec := []float32{0, 0, 0, 0} // equidistant from several entries
	first, _ := idx.Nearest(vec)
	for i := 0; i < 10; i++ {
		hit, _ := idx.Nearest(vec)
		if hit != first {
			t.Fatalf("run %d: %+v != %+v", i, hit, first)
		}
	}
	if first.Position != 0 {
		t.Fatalf("tie should resolve to lowest position, got %d", first.Position)
	}
}

func TestNearestErrors(t *testing.T) {
	idx, err := NewIndex(NewCorpus("a", "b"), [][]float32{{0, 1}, {1, 0}})
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	if _, err := idx.Nearest([]float32{1}); !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
	var empty *Index
	if _, err := empty.Nearest([]float32{1}); !errors.Is(err, ErrEmptyIndex) {
		t.Fatalf("expected ErrEmptyIndex, got %v", err)
	}
}

func TestNearestRejectsNonFiniteQuery(t *testing.T) {
	idx, err := NewIndex(NewCorpus("a", "b"), [][]float32{{0, 1}, {1, 0}})
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	tests := []struct {
		name string
		vec  []float32
	}{
		{"nan", []float32{float32(math.NaN()), 0}},
		{"all nan", []float32{float32(math.NaN()), float32(math.NaN())}},
		{"inf", []float32{float32(math.Inf(1)), 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := idx.Nearest(tt.vec); !errors.Is(err, ErrInvalidVector) {
				t.Fatalf("expected ErrInvalidVector, got %v", err)
			}
		})
	}
}

func TestNewIndexValidation(t *testing.T) {
	if _, err := NewIndex(NewCorpus(), nil); !errors.Is(err, ErrEmptyIndex) {
		t.Fatalf("expected ErrEmptyIndex, got %v", err)
	}
	if _, err := NewIndex(NewCorpus("a", "b"), [][]float32{{1}}); err == nil {
		t.Fatal("expected count mismatch error")
	}
	if _, err := NewIndex(NewCorpus("a", "b"), [][]float32{{1, 2}, {1}}); !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
	if _, err := NewIndex(NewCorpus("a"), [][]float32{{float32(math.NaN())}}); !errors.Is(err, ErrInvalidVector) {
		t.Fatalf("expected ErrInvalidVector, got %v", err)
	}
}

func TestBuildIndexPropagatesEmbedError(t *testing.T) {
	if _, err := BuildIndex(context.Background(), failingEmbedder{}, DefaultCorpus()); err == nil {
		t.Fatal("expected embed error")
	}
}

func TestNormalizeText(t *testing.T) {
	if got := NormalizeText("  ｆｕｌｌwidth\x00 text\n"); got != "fullwidth text" {
		t.Fatalf("NormalizeText = %q", got)
	}
}
