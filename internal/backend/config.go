package backend

import (
	"fmt"
	"time"

	"budgetadvisor/internal/answer"
	"budgetadvisor/internal/config"
	"budgetadvisor/internal/embed"
)

// embeddingCacheSize bounds the in-memory embedding LRU. The corpus is four
// sentences, so most entries are query vectors.
const embeddingCacheSize = 1024

// Config holds configuration for answerer creation
type Config struct {
	Strategy         answer.Strategy
	InferenceTimeout time.Duration
	AnswerCacheSize  int
	AnswerCacheTTL   time.Duration

	EmbedBackend   EmbedBackend
	EmbedModel     string
	EmbedCachePath string
	ORT            embed.ORTConfig

	GenerateBackend GenerateBackend
	GenerateModel   string
	MaxLength       int
	NumBeams        int

	HFAPIURL   string
	HFAPIToken string

	GeminiAPIKey     string
	GeminiModel      string
	GeminiEmbedModel string
}

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	strategy := answer.Strategy(appConfig.AnswerStrategy)
	if !strategy.IsValid() {
		return Config{}, fmt.Errorf("invalid answer strategy in config: %s", appConfig.AnswerStrategy)
	}

	return Config{
		Strategy:         strategy,
		InferenceTimeout: appConfig.InferenceTimeout,
		AnswerCacheSize:  appConfig.AnswerCacheSize,
		AnswerCacheTTL:   appConfig.AnswerCacheTTL,

		EmbedBackend:   EmbedBackend(appConfig.EmbedBackend),
		EmbedModel:     appConfig.EmbedModel,
		EmbedCachePath: appConfig.EmbedCachePath,
		ORT: embed.ORTConfig{
			LibraryPath:   appConfig.ONNXLibraryPath,
			ModelPath:     appConfig.ONNXModelPath,
			TokenizerPath: appConfig.TokenizerPath,
			MaxSeqLen:     appConfig.EmbedMaxSeqLen,
			Dim:           appConfig.EmbedDim,
		},

		GenerateBackend: GenerateBackend(appConfig.GenerateBackend),
		GenerateModel:   appConfig.GenerateModel,
		MaxLength:       appConfig.GenerateMaxLength,
		NumBeams:        appConfig.GenerateNumBeams,

		HFAPIURL:   appConfig.HFAPIURL,
		HFAPIToken: appConfig.HFAPIToken,

		GeminiAPIKey:     appConfig.GeminiAPIKey,
		GeminiModel:      appConfig.GeminiModel,
		GeminiEmbedModel: appConfig.GeminiEmbedModel,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Strategy.IsValid() {
		return fmt.Errorf("invalid answer strategy: %s", c.Strategy)
	}
	if c.Strategy == answer.StrategyNone {
		return nil
	}

	if !c.GenerateBackend.IsValid() {
		return fmt.Errorf("invalid generate backend: %s", c.GenerateBackend)
	}
	if c.GenerateBackend == GenerateGemini && c.GeminiAPIKey == "" {
		return fmt.Errorf("Gemini API key is required for gemini generate backend")
	}

	if c.Strategy != answer.StrategyRetrieval {
		return nil
	}

	switch c.EmbedBackend {
	case EmbedONNX:
		if c.ORT.ModelPath == "" || c.ORT.TokenizerPath == "" {
			return fmt.Errorf("ONNX model and tokenizer paths are required for onnx embed backend")
		}
	case EmbedHF:
		if c.EmbedModel == "" {
			return fmt.Errorf("embedding model is required for hf embed backend")
		}
	case EmbedGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("Gemini API key is required for gemini embed backend")
		}
	default:
		return fmt.Errorf("invalid embed backend: %s", c.EmbedBackend)
	}

	return nil
}
