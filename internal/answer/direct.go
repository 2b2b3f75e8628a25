package answer

import (
	"context"

	"budgetadvisor/internal/generate"
	"budgetadvisor/internal/knowledge"
)

// DefaultInstruction is the task prefix for the direct strategy.
const DefaultInstruction = "summarize: "

// DefaultNumBeams is the beam width used by the direct strategy.
const DefaultNumBeams = 4

// Direct prefixes the query with an instruction tag and decodes it with beam
// search, stripping special tokens from the output.
type Direct struct {
	generator   generate.Generator
	instruction string
	opts        generate.Options
}

// NewDirect builds the strategy. Zero values fall back to the defaults.
func NewDirect(g generate.Generator, instruction string, maxLength, numBeams int) *Direct {
	if instruction == "" {
		instruction = DefaultInstruction
	}
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	if numBeams <= 0 {
		numBeams = DefaultNumBeams
	}
	return &Direct{
		generator:   g,
		instruction: instruction,
		opts: generate.Options{
			MaxLength:     maxLength,
			NumBeams:      numBeams,
			EarlyStopping: true,
		},
	}
}

// Answer returns the decoded generation without special tokens.
func (d *Direct) Answer(ctx context.Context, query string) (string, error) {
	query = knowledge.NormalizeText(query)
	if query == "" {
		return "", ErrEmptyQuery
	}
	out, err := d.generator.Generate(ctx, d.instruction+query, d.opts)
	if err != nil {
		return "", stageError("generate", err)
	}
	return generate.StripSpecialTokens(out), nil
}
