package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port         string
	RateLimitRPM int

	// Logging
	LogLevel  string
	LogFormat string

	// Answering
	AnswerStrategy   string
	InferenceTimeout time.Duration
	AnswerCacheSize  int
	AnswerCacheTTL   time.Duration

	// Embedding
	EmbedBackend    string
	EmbedModel      string
	EmbedMaxSeqLen  int
	EmbedDim        int
	EmbedCachePath  string
	ONNXLibraryPath string
	ONNXModelPath   string
	TokenizerPath   string

	// Generation
	GenerateBackend   string
	GenerateModel     string
	GenerateMaxLength int
	GenerateNumBeams  int

	// HuggingFace Inference API
	HFAPIURL   string
	HFAPIToken string

	// Gemini
	GeminiAPIKey     string
	GeminiModel      string
	GeminiEmbedModel string
}

var (
	validStrategies       = []string{"retrieval", "direct", "none"}
	validEmbedBackends    = []string{"onnx", "hf", "gemini"}
	validGenerateBackends = []string{"hf", "gemini"}
	validLogLevels        = []string{"debug", "info", "warn", "error"}
	validLogFormats       = []string{"text", "json"}
)

func Load() *Config {
	cfg := &Config{
		Port:         getEnv("PORT", "8081"),
		RateLimitRPM: getEnvInt("RATE_LIMIT_RPM", 60),

		LogLevel:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(getEnv("LOG_FORMAT", "text")),

		AnswerStrategy:   strings.ToLower(getEnv("ANSWER_STRATEGY", "retrieval")),
		InferenceTimeout: getEnvDuration("INFERENCE_TIMEOUT", 0),
		AnswerCacheSize:  getEnvInt("ANSWER_CACHE_SIZE", 256),
		AnswerCacheTTL:   getEnvDuration("ANSWER_CACHE_TTL", time.Hour),

		EmbedBackend:    strings.ToLower(getEnv("EMBED_BACKEND", "hf")),
		EmbedModel:      getEnv("EMBED_MODEL", "sentence-transformers/all-MiniLM-L6-v2"),
		EmbedMaxSeqLen:  getEnvInt("EMBED_MAX_SEQ_LEN", 256),
		EmbedDim:        getEnvInt("EMBED_DIM", 384),
		EmbedCachePath:  getEnv("EMBED_CACHE_PATH", "./data/embeddings.db"),
		ONNXLibraryPath: getEnv("ONNX_LIBRARY_PATH", ""),
		ONNXModelPath:   getEnv("ONNX_MODEL_PATH", "./models/all-MiniLM-L6-v2/model.onnx"),
		TokenizerPath:   getEnv("TOKENIZER_PATH", "./models/all-MiniLM-L6-v2/tokenizer.json"),

		GenerateBackend:   strings.ToLower(getEnv("GENERATE_BACKEND", "hf")),
		GenerateModel:     getEnv("GENERATE_MODEL", "google/flan-t5-base"),
		GenerateMaxLength: getEnvInt("GENERATE_MAX_LENGTH", 150),
		GenerateNumBeams:  getEnvInt("GENERATE_NUM_BEAMS", 4),

		HFAPIURL:   getEnv("HF_API_URL", "https://api-inference.huggingface.co/models"),
		HFAPIToken: getEnv("HF_API_TOKEN", ""),

		GeminiAPIKey:     getEnv("GEMINI_API_KEY", ""),
		GeminiModel:      getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		GeminiEmbedModel: getEnv("GEMINI_EMBED_MODEL", "text-embedding-004"),
	}

	return cfg
}

// UsesEmbedder reports whether the configured strategy needs an embedding backend.
func (c *Config) UsesEmbedder() bool { return c.AnswerStrategy == "retrieval" }

// UsesGenerator reports whether the configured strategy needs a generation backend.
func (c *Config) UsesGenerator() bool {
	return c.AnswerStrategy == "retrieval" || c.AnswerStrategy == "direct"
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.RateLimitRPM < 0 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must not be negative", c.RateLimitRPM))
	}

	if !slices.Contains(validLogLevels, c.LogLevel) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of %v", c.LogLevel, validLogLevels))
	}
	if !slices.Contains(validLogFormats, c.LogFormat) {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be one of %v", c.LogFormat, validLogFormats))
	}

	if !slices.Contains(validStrategies, c.AnswerStrategy) {
		errors = append(errors, fmt.Sprintf("invalid answer strategy '%s': must be one of %v", c.AnswerStrategy, validStrategies))
	}

	if c.InferenceTimeout < 0 {
		errors = append(errors, fmt.Sprintf("invalid inference timeout %v: must not be negative", c.InferenceTimeout))
	}
	if c.AnswerCacheSize < 0 {
		errors = append(errors, fmt.Sprintf("invalid answer cache size %d: must not be negative", c.AnswerCacheSize))
	}
	if c.AnswerCacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid answer cache TTL %v: must not be negative", c.AnswerCacheTTL))
	}

	if c.UsesEmbedder() {
		errors = append(errors, c.validateEmbedding()...)
	}
	if c.UsesGenerator() {
		errors = append(errors, c.validateGeneration()...)
	}

	needsHF := (c.UsesEmbedder() && c.EmbedBackend == "hf") || (c.UsesGenerator() && c.GenerateBackend == "hf")
	if needsHF {
		if parsedURL, err := url.Parse(c.HFAPIURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid HF API URL '%s': %v", c.HFAPIURL, err))
		} else if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
			errors = append(errors, fmt.Sprintf("invalid HF API URL scheme '%s': must be 'http' or 'https'", parsedURL.Scheme))
		}
	}

	needsGemini := (c.UsesEmbedder() && c.EmbedBackend == "gemini") || (c.UsesGenerator() && c.GenerateBackend == "gemini")
	if needsGemini && c.GeminiAPIKey == "" {
		errors = append(errors, "GEMINI_API_KEY is required when a gemini backend is selected")
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func (c *Config) validateEmbedding() []string {
	var errors []string

	if !slices.Contains(validEmbedBackends, c.EmbedBackend) {
		errors = append(errors, fmt.Sprintf("invalid embed backend '%s': must be one of %v", c.EmbedBackend, validEmbedBackends))
	}
	if c.EmbedBackend != "onnx" && c.EmbedModel == "" {
		errors = append(errors, "embedding model cannot be empty")
	}

	if c.EmbedBackend == "onnx" {
		if c.EmbedMaxSeqLen < 8 || c.EmbedMaxSeqLen > 4096 {
			errors = append(errors, fmt.Sprintf("invalid embed max sequence length %d: must be between 8 and 4096", c.EmbedMaxSeqLen))
		}
		if c.EmbedDim < 1 {
			errors = append(errors, fmt.Sprintf("invalid embed dimension %d: must be at least 1", c.EmbedDim))
		}
		if c.ONNXModelPath == "" {
			errors = append(errors, "ONNX model path is required for onnx embed backend")
		}
		if c.TokenizerPath == "" {
			errors = append(errors, "tokenizer path is required for onnx embed backend")
		}
		for _, path := range []string{c.ONNXModelPath, c.TokenizerPath, c.ONNXLibraryPath} {
			if path == "" {
				continue
			}
			if _, err := os.Stat(path); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("file does not exist: %s", path))
			}
		}
	}

	// Check if the embedding cache directory exists or can be created
	if c.EmbedCachePath != "" {
		dir := filepath.Dir(c.EmbedCachePath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create embedding cache directory '%s': %v", dir, err))
				}
			}
		}
	}

	return errors
}

func (c *Config) validateGeneration() []string {
	var errors []string

	if !slices.Contains(validGenerateBackends, c.GenerateBackend) {
		errors = append(errors, fmt.Sprintf("invalid generate backend '%s': must be one of %v", c.GenerateBackend, validGenerateBackends))
	}
	if c.GenerateBackend == "hf" && c.GenerateModel == "" {
		errors = append(errors, "generation model cannot be empty")
	}
	if c.GenerateMaxLength < 1 || c.GenerateMaxLength > 1024 {
		errors = append(errors, fmt.Sprintf("invalid generate max length %d: must be between 1 and 1024", c.GenerateMaxLength))
	}
	if c.GenerateNumBeams < 1 || c.GenerateNumBeams > 16 {
		errors = append(errors, fmt.Sprintf("invalid generate num beams %d: must be between 1 and 16", c.GenerateNumBeams))
	}

	return errors
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
