package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"budgetadvisor/internal/answer"
	"budgetadvisor/internal/config"
	"budgetadvisor/internal/knowledge"
	"budgetadvisor/internal/storage"
)

var keywords = []string{"50/30/20", "debt", "emergency", "credit"}

// fakeInference serves feature extraction on /test/embedder and text2text
// generation on /test/generator, echoing the prompt back.
type fakeInference struct {
	embedCalls    int32
	generateCalls int32
	failGenerate  bool
}

func (f *fakeInference) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	switch r.URL.Path {
	case "/test/embedder":
		atomic.AddInt32(&f.embedCalls, 1)
		var req struct {
			Inputs []string `json:"inputs"`
		}
		_ = json.Unmarshal(body, &req)
		out := make([][]float32, len(req.Inputs))
		for i, text := range req.Inputs {
			vec := make([]float32, len(keywords))
			for j, k := range keywords {
				if strings.Contains(strings.ToLower(text), k) {
					vec[j] = 1
				}
			}
			out[i] = vec
		}
		_ = json.NewEncoder(w).Encode(out)
	case "/test/generator":
		atomic.AddInt32(&f.generateCalls, 1)
		if f.failGenerate {
			http.Error(w, `{"error":"model is loading"}`, http.StatusServiceUnavailable)
			return
		}
		var req struct {
			Inputs string `json:"inputs"`
		}
		_ = json.Unmarshal(body, &req)
		_ = json.NewEncoder(w).Encode([]map[string]string{{"generated_text": "<pad> echo: " + req.Inputs + "</s>"}})
	default:
		http.NotFound(w, r)
	}
}

func testConfig(url string, strategy answer.Strategy) Config {
	return Config{
		Strategy:        strategy,
		EmbedBackend:    EmbedHF,
		EmbedModel:      "test/embedder",
		GenerateBackend: GenerateHF,
		GenerateModel:   "test/generator",
		MaxLength:       150,
		NumBeams:        4,
		HFAPIURL:        url,
		AnswerCacheSize: 8,
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCreateAnswerer_Retrieval(t *testing.T) {
	fake := &fakeInference{}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	cfg := testConfig(srv.URL, answer.StrategyRetrieval)
	cfg.EmbedCachePath = filepath.Join(t.TempDir(), "embeddings.db")

	res, err := NewFactory(quietLogger()).CreateAnswerer(cfg)
	if err != nil {
		t.Fatalf("CreateAnswerer: %v", err)
	}
	defer res.Cleanup()

	if atomic.LoadInt32(&fake.embedCalls) != 0 {
		t.Fatal("models should not be built before first use")
	}

	got, err := res.Answerer.Answer(context.Background(), "How big should an emergency fund be?")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if !strings.Contains(got, "Context: Emergency savings should cover 3 to 6 months of expenses.") {
		t.Fatalf("answer did not use the nearest sentence: %q", got)
	}
	if !strings.HasPrefix(got, "<pad>") {
		t.Fatalf("retrieval output should be returned verbatim: %q", got)
	}

	// corpus batch plus one query
	if atomic.LoadInt32(&fake.embedCalls) != 2 {
		t.Fatalf("embed calls = %d, want 2", atomic.LoadInt32(&fake.embedCalls))
	}
	if _, ok := res.Caches["embeddings"]; !ok {
		t.Fatal("embedding cache not exposed")
	}

	if _, err := res.Answerer.Answer(context.Background(), "How big should an emergency fund be?"); err != nil {
		t.Fatalf("second Answer: %v", err)
	}
	if atomic.LoadInt32(&fake.generateCalls) != 1 {
		t.Fatalf("generate calls = %d, want 1 (answer cache)", atomic.LoadInt32(&fake.generateCalls))
	}

	for _, q := range []string{"Should I pay off debt first?", "What is 50/30/20?", "Is a credit card bad?"} {
		if _, err := res.Answerer.Answer(context.Background(), q); err != nil {
			t.Fatalf("Answer(%q): %v", q, err)
		}
	}

	if err := res.Cleanup(); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}

	store, err := storage.NewSQLiteStore(cfg.EmbedCachePath)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer store.Close()
	n, err := store.Count(context.Background(), "hf:test/embedder")
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	// questions are never persisted
	if want := knowledge.DefaultCorpus().Len(); n != want {
		t.Fatalf("stored vectors = %d, want %d", n, want)
	}
}

func TestCreateAnswerer_Direct(t *testing.T) {
	fake := &fakeInference{}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	cfg := testConfig(srv.URL, answer.StrategyDirect)
	cfg.AnswerCacheSize = 0

	res, err := NewFactory(quietLogger()).CreateAnswerer(cfg)
	if err != nil {
		t.Fatalf("CreateAnswerer: %v", err)
	}
	defer res.Cleanup()

	got, err := res.Answerer.Answer(context.Background(), "What is a budget?")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if got != "echo: summarize: What is a budget?" {
		t.Fatalf("Answer = %q", got)
	}
	if atomic.LoadInt32(&fake.embedCalls) != 0 {
		t.Fatal("direct strategy should not embed")
	}
	if _, ok := res.Caches["answers"]; ok {
		t.Fatal("answer cache should be disabled")
	}
}

func TestCreateAnswerer_InferenceFailure(t *testing.T) {
	fake := &fakeInference{failGenerate: true}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	res, err := NewFactory(quietLogger()).CreateAnswerer(testConfig(srv.URL, answer.StrategyDirect))
	if err != nil {
		t.Fatalf("CreateAnswerer: %v", err)
	}
	defer res.Cleanup()

	for i := 0; i < 2; i++ {
		_, err = res.Answerer.Answer(context.Background(), "q")
		if !errors.Is(err, answer.ErrInference) {
			t.Fatalf("expected ErrInference, got %v", err)
		}
	}
	if atomic.LoadInt32(&fake.generateCalls) != 2 {
		t.Fatalf("generate calls = %d, want 2 (errors are not cached)", atomic.LoadInt32(&fake.generateCalls))
	}
}

func TestCreateAnswerer_None(t *testing.T) {
	res, err := NewFactory(nil).CreateAnswerer(Config{Strategy: answer.StrategyNone})
	if err != nil {
		t.Fatalf("CreateAnswerer: %v", err)
	}
	if res.Warm != nil || res.Cleanup != nil {
		t.Fatal("disabled answerer owns no resources")
	}
	if _, err := res.Answerer.Answer(context.Background(), "q"); !errors.Is(err, answer.ErrDisabled) {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"none needs nothing", Config{Strategy: answer.StrategyNone}, false},
		{"invalid strategy", Config{Strategy: "rag"}, true},
		{"direct hf", Config{Strategy: answer.StrategyDirect, GenerateBackend: GenerateHF}, false},
		{"direct gemini without key", Config{Strategy: answer.StrategyDirect, GenerateBackend: GenerateGemini}, true},
		{"retrieval missing embed backend", Config{Strategy: answer.StrategyRetrieval, GenerateBackend: GenerateHF}, true},
		{"retrieval onnx without paths", Config{Strategy: answer.StrategyRetrieval, GenerateBackend: GenerateHF, EmbedBackend: EmbedONNX}, true},
		{"retrieval hf", Config{Strategy: answer.StrategyRetrieval, GenerateBackend: GenerateHF, EmbedBackend: EmbedHF, EmbedModel: "m"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}

	app := &config.Config{
		AnswerStrategy:    "retrieval",
		EmbedBackend:      "onnx",
		ONNXModelPath:     "/models/model.onnx",
		TokenizerPath:     "/models/tokenizer.json",
		EmbedMaxSeqLen:    128,
		GenerateBackend:   "hf",
		GenerateMaxLength: 150,
		GenerateNumBeams:  4,
	}
	cfg, err := FromAppConfig(app)
	if err != nil {
		t.Fatalf("FromAppConfig: %v", err)
	}
	if cfg.Strategy != answer.StrategyRetrieval || cfg.EmbedBackend != EmbedONNX {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.ORT.ModelPath != app.ONNXModelPath || cfg.ORT.MaxSeqLen != 128 {
		t.Fatalf("ORT config not carried over: %+v", cfg.ORT)
	}

	app.AnswerStrategy = "bogus"
	if _, err := FromAppConfig(app); err == nil {
		t.Fatal("expected error for invalid strategy")
	}
}
