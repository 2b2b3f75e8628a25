package embed

import (
	"context"
	"encoding/json"
	"fmt"

	"budgetadvisor/internal/hfapi"
)

// Remote embeds text with the HuggingFace feature-extraction pipeline.
type Remote struct {
	client *hfapi.Client
	model  string
}

// NewRemote builds a remote embedder for model.
func NewRemote(client *hfapi.Client, model string) *Remote {
	return &Remote{client: client, model: model}
}

type featureRequest struct {
	Inputs  []string       `json:"inputs"`
	Options map[string]any `json:"options,omitempty"`
}

// Embed sends all texts in a single request.
func (r *Remote) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	var raw json.RawMessage
	req := featureRequest{Inputs: texts, Options: map[string]any{"wait_for_model": true}}
	if err := r.client.Post(ctx, r.model, req, &raw); err != nil {
		return nil, fmt.Errorf("feature extraction: %w", err)
	}
	vecs, err := decodeFeatures(raw)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrCountMismatch, len(vecs), len(texts))
	}
	return vecs, nil
}

// decodeFeatures accepts either pooled [n][dim] output or token level
// [n][tokens][dim] output, mean-pooling the latter.
func decodeFeatures(raw json.RawMessage) ([][]float32, error) {
	var pooled [][]float32
	if err := json.Unmarshal(raw, &pooled); err == nil {
		return pooled, nil
	}
	var tokens [][][]float32
	if err := json.Unmarshal(raw, &tokens); err != nil {
		return nil, fmt.Errorf("decode feature extraction output: %w", err)
	}
	out := make([][]float32, len(tokens))
	for i, seq := range tokens {
		if len(seq) == 0 {
			return nil, fmt.Errorf("decode feature extraction output: empty token sequence %d", i)
		}
		dim := len(seq[0])
		flat := make([]float32, 0, len(seq)*dim)
		mask := make([]int64, len(seq))
		for t, row := range seq {
			if len(row) != dim {
				return nil, fmt.Errorf("decode feature extraction output: ragged token %d in sequence %d", t, i)
			}
			flat = append(flat, row...)
			mask[t] = 1
		}
		out[i] = meanPool(flat, mask, dim)
	}
	return out, nil
}

// ModelID returns the remote model id.
func (r *Remote) ModelID() string { return "hf:" + r.model }

// Close is a no-op.
func (r *Remote) Close() error { return nil }
