// Package generate wraps pretrained text generation backends behind one
// interface.
package generate

import (
	"context"
	"errors"
	"strings"
)

// Options controls decoding. Sampling is never enabled, so for fixed weights
// and options the output is deterministic.
type Options struct {
	MaxLength     int  // maximum generated length in tokens
	NumBeams      int  // beam width; 0 or 1 means greedy decoding
	EarlyStopping bool // stop beam search once NumBeams candidates are finished
}

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts Options) (string, error)
}

var ErrNoOutput = errors.New("generator returned no output")

// specialTokens are the T5 family markers that may leak into decoded text.
var specialTokens = []string{"<pad>", "</s>", "<s>", "<unk>"}

// StripSpecialTokens removes tokenizer special tokens and collapses the
// whitespace they leave behind.
func StripSpecialTokens(s string) string {
	for _, tok := range specialTokens {
		s = strings.ReplaceAll(s, tok, " ")
	}
	return strings.Join(strings.Fields(s), " ")
}
