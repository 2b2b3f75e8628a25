package backend

import (
	"budgetadvisor/internal/answer"
	"budgetadvisor/internal/cache"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Result contains the answerer and the resources it owns.
type Result struct {
	Answerer answer.Answerer
	Strategy answer.Strategy

	// Caches are registered with a cache.Manager by the caller.
	Caches map[string]cache.Observed

	// Warm builds the models eagerly; nil when nothing needs building.
	Warm func() error

	Cleanup CleanupFunc
}

// Factory creates answerers based on configuration
type Factory interface {
	CreateAnswerer(config Config) (*Result, error)
}

// EmbedBackend selects the sentence embedding implementation.
type EmbedBackend string

const (
	EmbedONNX   EmbedBackend = "onnx"
	EmbedHF     EmbedBackend = "hf"
	EmbedGemini EmbedBackend = "gemini"
)

// IsValid checks if the embed backend is supported
func (b EmbedBackend) IsValid() bool {
	switch b {
	case EmbedONNX, EmbedHF, EmbedGemini:
		return true
	default:
		return false
	}
}

// GenerateBackend selects the text generation implementation.
type GenerateBackend string

const (
	GenerateHF     GenerateBackend = "hf"
	GenerateGemini GenerateBackend = "gemini"
)

// IsValid checks if the generate backend is supported
func (b GenerateBackend) IsValid() bool {
	switch b {
	case GenerateHF, GenerateGemini:
		return true
	default:
		return false
	}
}
