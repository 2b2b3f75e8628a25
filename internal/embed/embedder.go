// Package embed turns sentences into fixed-length vectors. Backends run a
// local ONNX model, call the HuggingFace Inference API, or call Gemini; the
// Cached decorator memoizes any of them.
package embed

import (
	"context"
	"errors"
	"math"
)

// Embedder exposes the minimal surface required by the answer layer.
type Embedder interface {
	// Embed returns one vector per input text, in order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// ModelID identifies the model for cache keys.
	ModelID() string
	Close() error
}

var (
	ErrNotInitialized = errors.New("embedder is not initialized")
	ErrCountMismatch  = errors.New("embedder returned a different number of vectors than inputs")
)

// meanPool averages token vectors weighted by the attention mask.
// hidden is laid out as [seqLen][dim] in row-major order.
func meanPool(hidden []float32, mask []int64, dim int) []float32 {
	out := make([]float32, dim)
	var count float32
	for t, m := range mask {
		if m == 0 {
			continue
		}
		row := hidden[t*dim : (t+1)*dim]
		for i, v := range row {
			out[i] += v
		}
		count++
	}
	if count == 0 {
		return out
	}
	for i := range out {
		out[i] /= count
	}
	return out
}

// l2Normalize scales vec to unit length in place and returns it.
func l2Normalize(vec []float32) []float32 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return vec
	}
	norm := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}

func cloneVector(vec []float32) []float32 {
	out := make([]float32, len(vec))
	copy(out, vec)
	return out
}
