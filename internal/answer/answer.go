// Package answer implements the query answering fallback: a single Answerer
// capability with two interchangeable strategies, retrieval-augmented and
// direct generation, chosen at configuration time.
package answer

import (
	"context"
	"errors"
	"fmt"
)

// Answerer answers a free-text financial question.
type Answerer interface {
	Answer(ctx context.Context, query string) (string, error)
}

// MaxQueryLength bounds a question in characters at the HTTP and CLI edges.
const MaxQueryLength = 500

// Strategy selects how questions are answered.
type Strategy string

const (
	StrategyRetrieval Strategy = "retrieval"
	StrategyDirect    Strategy = "direct"
	StrategyNone      Strategy = "none"
)

// IsValid reports whether s is a known strategy.
func (s Strategy) IsValid() bool {
	switch s {
	case StrategyRetrieval, StrategyDirect, StrategyNone:
		return true
	default:
		return false
	}
}

// String implements fmt.Stringer
func (s Strategy) String() string { return string(s) }

var (
	// ErrInference marks failures of the underlying embedding, search or
	// generation calls. They are never retried.
	ErrInference = errors.New("inference failed")

	ErrEmptyQuery = errors.New("empty query")
	ErrDisabled   = errors.New("question answering is disabled")

	errUnexpectedVectors = errors.New("embedder returned an unexpected number of vectors")
)

// InferenceError records which stage of answering failed.
type InferenceError struct {
	Stage string
	Err   error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *InferenceError) Unwrap() []error { return []error{ErrInference, e.Err} }

func stageError(stage string, err error) error {
	return &InferenceError{Stage: stage, Err: err}
}

// Disabled is the Answerer used when no strategy is configured.
type Disabled struct{}

// Answer always returns ErrDisabled.
func (Disabled) Answer(context.Context, string) (string, error) { return "", ErrDisabled }
