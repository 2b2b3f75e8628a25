package embed

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// Gemini embeds text with the Gemini embedding models.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a Gemini API client for model using apiKey.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini embedder: API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Gemini{client: client, model: model}, nil
}

// Embed requests one embedding per text in a single call.
func (g *Gemini) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = genai.NewContentFromText(t, genai.RoleUser)
	}
	resp, err := g.client.Models.EmbedContent(ctx, g.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("embed content with gemini: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrCountMismatch, len(resp.Embeddings), len(texts))
	}
	out := make([][]float32, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		out[i] = cloneVector(e.Values)
	}
	return out, nil
}

// ModelID returns the Gemini model id.
func (g *Gemini) ModelID() string { return "gemini:" + g.model }

// Close is a no-op; the genai client holds no resources that need releasing.
func (g *Gemini) Close() error { return nil }
