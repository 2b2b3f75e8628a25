package generate

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// Gemini generates text with a Gemini model. The API has no beam search, so
// Options.NumBeams and EarlyStopping are ignored; temperature is pinned to
// zero to keep decoding greedy.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a Gemini API client for model using apiKey.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini generator: API key is required")
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

// Generate sends prompt as a single user turn.
func (g *Gemini) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	content := genai.NewContentFromText(prompt, genai.RoleUser)
	resp, err := g.client.Models.GenerateContent(ctx, g.model, []*genai.Content{content}, contentConfig(opts))
	if err != nil {
		return "", fmt.Errorf("generate content with gemini: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrNoOutput
	}

	var result strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			result.WriteString(part.Text)
		}
	}
	return result.String(), nil
}

func contentConfig(opts Options) *genai.GenerateContentConfig {
	temperature := float32(0)
	cfg := &genai.GenerateContentConfig{Temperature: &temperature}
	if opts.MaxLength > 0 {
		cfg.MaxOutputTokens = int32(opts.MaxLength)
	}
	return cfg
}
