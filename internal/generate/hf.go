package generate

import (
	"context"
	"fmt"

	"budgetadvisor/internal/hfapi"
)

// DefaultHFModel is the sequence-to-sequence model used by default.
const DefaultHFModel = "google/flan-t5-base"

// HF runs text2text generation through the HuggingFace Inference API.
type HF struct {
	client *hfapi.Client
	model  string
}

// NewHF builds a generator for model, defaulting to DefaultHFModel.
func NewHF(client *hfapi.Client, model string) *HF {
	if model == "" {
		model = DefaultHFModel
	}
	return &HF{client: client, model: model}
}

type hfParameters struct {
	MaxLength     int  `json:"max_length,omitempty"`
	NumBeams      int  `json:"num_beams,omitempty"`
	EarlyStopping bool `json:"early_stopping,omitempty"`
	DoSample      bool `json:"do_sample"`
}

type hfRequest struct {
	Inputs     string         `json:"inputs"`
	Parameters hfParameters   `json:"parameters"`
	Options    map[string]any `json:"options,omitempty"`
}

type hfOutput struct {
	GeneratedText string `json:"generated_text"`
}

// Generate returns the first generated sequence.
func (h *HF) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	req := hfRequest{
		Inputs:     prompt,
		Parameters: requestParameters(opts),
		Options:    map[string]any{"wait_for_model": true},
	}
	var out []hfOutput
	if err := h.client.Post(ctx, h.model, req, &out); err != nil {
		return "", fmt.Errorf("text2text generation with %s: %w", h.model, err)
	}
	if len(out) == 0 {
		return "", ErrNoOutput
	}
	return out[0].GeneratedText, nil
}

func requestParameters(opts Options) hfParameters {
	p := hfParameters{MaxLength: opts.MaxLength}
	if opts.NumBeams > 1 {
		p.NumBeams = opts.NumBeams
		p.EarlyStopping = opts.EarlyStopping
	}
	return p
}
