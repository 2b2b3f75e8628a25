package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		Port:              "8081",
		RateLimitRPM:      60,
		LogLevel:          "info",
		LogFormat:         "text",
		AnswerStrategy:    "retrieval",
		AnswerCacheSize:   16,
		AnswerCacheTTL:    time.Minute,
		EmbedBackend:      "hf",
		EmbedModel:        "sentence-transformers/all-MiniLM-L6-v2",
		EmbedMaxSeqLen:    256,
		EmbedDim:          384,
		GenerateBackend:   "hf",
		GenerateModel:     "google/flan-t5-base",
		GenerateMaxLength: 150,
		GenerateNumBeams:  4,
		HFAPIURL:          "https://api-inference.huggingface.co/models",
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		wantErr     bool
		errorString string
	}{
		{
			name:    "valid retrieval config",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "strategy none ignores backends",
			mutate:  func(c *Config) { c.AnswerStrategy = "none"; c.EmbedBackend = "bogus"; c.GenerateBackend = "bogus" },
			wantErr: false,
		},
		{
			name:    "direct strategy ignores embed backend",
			mutate:  func(c *Config) { c.AnswerStrategy = "direct"; c.EmbedBackend = "bogus" },
			wantErr: false,
		},
		{
			name:        "invalid port - non-numeric",
			mutate:      func(c *Config) { c.Port = "abc" },
			wantErr:     true,
			errorString: "invalid port 'abc': must be a number",
		},
		{
			name:        "invalid port - out of range high",
			mutate:      func(c *Config) { c.Port = "70000" },
			wantErr:     true,
			errorString: "invalid port 70000: must be between 1 and 65535",
		},
		{
			name:        "invalid log level",
			mutate:      func(c *Config) { c.LogLevel = "trace" },
			wantErr:     true,
			errorString: "invalid log level 'trace'",
		},
		{
			name:        "invalid log format",
			mutate:      func(c *Config) { c.LogFormat = "xml" },
			wantErr:     true,
			errorString: "invalid log format 'xml'",
		},
		{
			name:        "invalid strategy",
			mutate:      func(c *Config) { c.AnswerStrategy = "rag" },
			wantErr:     true,
			errorString: "invalid answer strategy 'rag': must be one of [retrieval direct none]",
		},
		{
			name:        "negative timeout",
			mutate:      func(c *Config) { c.InferenceTimeout = -time.Second },
			wantErr:     true,
			errorString: "invalid inference timeout -1s",
		},
		{
			name:        "negative cache size",
			mutate:      func(c *Config) { c.AnswerCacheSize = -1 },
			wantErr:     true,
			errorString: "invalid answer cache size -1",
		},
		{
			name:        "negative rate limit",
			mutate:      func(c *Config) { c.RateLimitRPM = -5 },
			wantErr:     true,
			errorString: "invalid rate limit -5",
		},
		{
			name:        "invalid embed backend",
			mutate:      func(c *Config) { c.EmbedBackend = "openai" },
			wantErr:     true,
			errorString: "invalid embed backend 'openai'",
		},
		{
			name:        "onnx backend missing model path",
			mutate:      func(c *Config) { c.EmbedBackend = "onnx"; c.TokenizerPath = "" },
			wantErr:     true,
			errorString: "tokenizer path is required for onnx embed backend",
		},
		{
			name:        "onnx backend missing files",
			mutate:      func(c *Config) { c.EmbedBackend = "onnx"; c.ONNXModelPath = "/nope/model.onnx"; c.TokenizerPath = "/nope/tokenizer.json" },
			wantErr:     true,
			errorString: "file does not exist: /nope/model.onnx",
		},
		{
			name:        "invalid generate backend",
			mutate:      func(c *Config) { c.GenerateBackend = "local" },
			wantErr:     true,
			errorString: "invalid generate backend 'local'",
		},
		{
			name:        "generate max length too large",
			mutate:      func(c *Config) { c.GenerateMaxLength = 5000 },
			wantErr:     true,
			errorString: "invalid generate max length 5000",
		},
		{
			name:        "generate beams zero",
			mutate:      func(c *Config) { c.GenerateNumBeams = 0 },
			wantErr:     true,
			errorString: "invalid generate num beams 0",
		},
		{
			name:        "invalid HF URL scheme",
			mutate:      func(c *Config) { c.HFAPIURL = "ftp://example.com" },
			wantErr:     true,
			errorString: "invalid HF API URL scheme 'ftp'",
		},
		{
			name:        "gemini without key",
			mutate:      func(c *Config) { c.GenerateBackend = "gemini" },
			wantErr:     true,
			errorString: "GEMINI_API_KEY is required",
		},
		{
			name:    "gemini with key skips HF URL",
			mutate:  func(c *Config) { c.EmbedBackend = "gemini"; c.GenerateBackend = "gemini"; c.GeminiAPIKey = "k"; c.HFAPIURL = "" },
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				if err == nil {
					t.Errorf("Config.Validate() error = nil, wantErr %v", tt.wantErr)
					return
				}
				if tt.errorString != "" && !strings.Contains(err.Error(), tt.errorString) {
					t.Errorf("Config.Validate() error = %v, want error containing %v", err.Error(), tt.errorString)
				}
			} else if err != nil {
				t.Errorf("Config.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_ValidateCollectsAllErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Port = "abc"
	cfg.LogLevel = "loud"
	cfg.GenerateNumBeams = 99

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"invalid port", "invalid log level", "invalid generate num beams"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
}

func TestConfig_ValidateWithFiles(t *testing.T) {
	tmpDir := t.TempDir()

	modelFile := filepath.Join(tmpDir, "model.onnx")
	tokenizerFile := filepath.Join(tmpDir, "tokenizer.json")
	for _, f := range []string{modelFile, tokenizerFile} {
		if err := os.WriteFile(f, []byte("{}"), 0644); err != nil {
			t.Fatalf("Failed to create test file: %v", err)
		}
	}

	cfg := validConfig()
	cfg.EmbedBackend = "onnx"
	cfg.ONNXModelPath = modelFile
	cfg.TokenizerPath = tokenizerFile
	cfg.EmbedCachePath = filepath.Join(tmpDir, "cache", "embeddings.db")

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Config.Validate() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(tmpDir, "cache")); err != nil {
		t.Errorf("cache directory not created: %v", err)
	}
}

func TestConfig_Uses(t *testing.T) {
	tests := []struct {
		strategy           string
		embedder, generate bool
	}{
		{"retrieval", true, true},
		{"direct", false, true},
		{"none", false, false},
	}
	for _, tt := range tests {
		cfg := Config{AnswerStrategy: tt.strategy}
		if cfg.UsesEmbedder() != tt.embedder || cfg.UsesGenerator() != tt.generate {
			t.Errorf("%s: UsesEmbedder=%v UsesGenerator=%v", tt.strategy, cfg.UsesEmbedder(), cfg.UsesGenerator())
		}
	}
}

func TestLoad(t *testing.T) {
	for _, key := range []string{
		"PORT", "LOG_LEVEL", "ANSWER_STRATEGY", "EMBED_BACKEND", "GENERATE_NUM_BEAMS",
		"INFERENCE_TIMEOUT", "ANSWER_CACHE_SIZE", "ANSWER_CACHE_TTL",
	} {
		t.Setenv(key, "")
	}

	t.Run("default values", func(t *testing.T) {
		cfg := Load()

		if cfg.Port != "8081" {
			t.Errorf("Load() Port = %v, want 8081", cfg.Port)
		}
		if cfg.AnswerStrategy != "retrieval" {
			t.Errorf("Load() AnswerStrategy = %v, want retrieval", cfg.AnswerStrategy)
		}
		if cfg.GenerateMaxLength != 150 || cfg.GenerateNumBeams != 4 {
			t.Errorf("Load() generation = %d/%d, want 150/4", cfg.GenerateMaxLength, cfg.GenerateNumBeams)
		}
		if cfg.InferenceTimeout != 0 {
			t.Errorf("Load() InferenceTimeout = %v, want 0", cfg.InferenceTimeout)
		}
		if cfg.AnswerCacheTTL != time.Hour {
			t.Errorf("Load() AnswerCacheTTL = %v, want 1h", cfg.AnswerCacheTTL)
		}
	})

	t.Run("environment variables", func(t *testing.T) {
		t.Setenv("PORT", "9090")
		t.Setenv("LOG_LEVEL", "DEBUG")
		t.Setenv("ANSWER_STRATEGY", "Direct")
		t.Setenv("GENERATE_NUM_BEAMS", "2")
		t.Setenv("INFERENCE_TIMEOUT", "30s")

		cfg := Load()

		if cfg.Port != "9090" {
			t.Errorf("Load() Port = %v, want 9090", cfg.Port)
		}
		if cfg.LogLevel != "debug" {
			t.Errorf("Load() LogLevel = %v, want debug", cfg.LogLevel)
		}
		if cfg.AnswerStrategy != "direct" {
			t.Errorf("Load() AnswerStrategy = %v, want direct", cfg.AnswerStrategy)
		}
		if cfg.GenerateNumBeams != 2 {
			t.Errorf("Load() GenerateNumBeams = %v, want 2", cfg.GenerateNumBeams)
		}
		if cfg.InferenceTimeout != 30*time.Second {
			t.Errorf("Load() InferenceTimeout = %v, want 30s", cfg.InferenceTimeout)
		}
	})

	t.Run("invalid environment variables use defaults", func(t *testing.T) {
		t.Setenv("ANSWER_CACHE_SIZE", "invalid")
		t.Setenv("ANSWER_CACHE_TTL", "invalid")

		cfg := Load()

		if cfg.AnswerCacheSize != 256 {
			t.Errorf("Load() AnswerCacheSize = %v, want 256 (default for invalid input)", cfg.AnswerCacheSize)
		}
		if cfg.AnswerCacheTTL != time.Hour {
			t.Errorf("Load() AnswerCacheTTL = %v, want 1h (default for invalid input)", cfg.AnswerCacheTTL)
		}
	})
}
